package engine

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/srcbridge/abi"
	"github.com/wippyai/srcbridge/errors"
	"github.com/wippyai/srcbridge/foreign"
	"github.com/wippyai/srcbridge/memory"
)

// Variable is a variable's state as stored in foreign memory, read from
// its root.
type Variable struct {
	Text    string
	Default string
	Float   float32
	Int     int32
	Min     float32
	Max     float32
	HasMin  bool
	HasMax  bool
	Root    bool
}

func (c *Cvar) variable(addr uint32) Variable {
	v := abi.Borrow(c.env, foreign.VariableLayout, addr)
	root := v
	if p := v.Ptr("parent"); p != 0 && p != addr {
		root = abi.Borrow(c.env, foreign.VariableLayout, p)
	}
	text, _ := memory.CString(c.env.Mem, root.Ptr("string"))
	def, _ := memory.CString(c.env.Mem, root.Ptr("default"))
	return Variable{
		Text:    text,
		Default: def,
		Float:   root.F32("float"),
		Int:     root.I32("int"),
		HasMin:  root.Bool("hasMin"),
		Min:     root.F32("min"),
		HasMax:  root.Bool("hasMax"),
		Max:     root.F32("max"),
		Root:    root.Addr() == addr,
	}
}

// Variable reads the variable called name.
func (c *Cvar) Variable(ctx context.Context, name string) (Variable, bool) {
	addr := c.find(ctx, name)
	if addr == 0 || c.isCommand(ctx, addr) {
		return Variable{}, false
	}
	return c.variable(addr), true
}

// SetValue sets the variable called name through its SetValueString slot.
func (c *Cvar) SetValue(ctx context.Context, name, value string) error {
	addr := c.find(ctx, name)
	if addr == 0 || c.isCommand(ctx, addr) {
		return errors.NotFound(errors.PhaseValue, "variable", name)
	}
	return c.setString(ctx, addr, value)
}

// Execute runs console text. Statements are separated by ';' or newlines
// outside quotes. Every statement runs; the first failure is returned.
func (c *Cvar) Execute(ctx context.Context, text string) error {
	var first error
	for _, stmt := range splitStatements(text) {
		if err := c.executeOne(ctx, stmt); err != nil {
			c.log.Debug("statement failed", zap.String("statement", stmt), zap.Error(err))
			if first == nil {
				first = err
			}
		}
	}
	return first
}

func (c *Cvar) executeOne(ctx context.Context, stmt string) error {
	inv, err := foreign.Tokenize(stmt)
	if err != nil {
		c.printf("%v\n", err)
		return err
	}
	if inv.Argc() == 0 {
		return nil
	}
	name := inv.Arg(0)
	addr := c.find(ctx, name)
	if addr == 0 {
		c.printf("Unknown command \"%s\"\n", name)
		return errors.NotFound(errors.PhaseDispatch, "command", name)
	}

	if c.isCommand(ctx, addr) {
		return c.dispatch(ctx, addr, inv)
	}
	if inv.Argc() == 1 {
		c.describe(RecordInfo{
			Name:  c.name(ctx, addr),
			Help:  c.help(ctx, addr),
			Addr:  addr,
			Flags: foreign.Flags(c.base(addr).I32("flags")),
		})
		return nil
	}
	value := inv.Arg(1)
	if inv.Argc() > 2 {
		value, _ = inv.ArgS()
	}
	return c.setString(ctx, addr, value)
}

// dispatch hands inv to a command's Dispatch slot in a CCommand allocated
// for the call.
func (c *Cvar) dispatch(ctx context.Context, addr uint32, inv *foreign.Invocation) error {
	obj, err := abi.New(c.env, foreign.InvocationLayout, 0)
	if err != nil {
		return err
	}
	defer obj.Free()
	inv.Store(obj)
	_, err = abi.Borrow(c.env, foreign.CommandLayout, addr).Call(ctx, "Dispatch", abi.U32Arg(obj.Addr()))
	return err
}

// splitStatements splits on ';' and newlines that are not inside quotes.
func splitStatements(text string) []string {
	var (
		out    []string
		start  int
		quoted bool
	)
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '"':
			quoted = !quoted
		case '\n':
			quoted = false
			out = append(out, text[start:i])
			start = i + 1
		case ';':
			if !quoted {
				out = append(out, text[start:i])
				start = i + 1
			}
		}
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

// Complete returns completions for a partial console line. A bare name
// completes against every record; a line with arguments asks the command's
// AutoCompleteSuggest slot.
func (c *Cvar) Complete(ctx context.Context, partial string) ([]string, error) {
	trimmed := strings.TrimLeft(partial, " ")
	name, _, hasArgs := strings.Cut(trimmed, " ")
	if !hasArgs {
		return c.completeName(ctx, name), nil
	}

	addr := c.find(ctx, name)
	if addr == 0 || !c.isCommand(ctx, addr) {
		return nil, nil
	}
	cmd := abi.Borrow(c.env, foreign.CommandLayout, addr)
	res, err := cmd.Call(ctx, "CanAutoComplete")
	if err != nil {
		return nil, err
	}
	if !abi.ResultBool(res) {
		return nil, nil
	}

	list, err := abi.New(c.env, foreign.SuggestionsLayout, 0)
	if err != nil {
		return nil, err
	}
	defer list.Free()
	ptr, err := memory.NewCString(c.env.Mem, c.env.Alloc, trimmed)
	if err != nil {
		return nil, err
	}
	defer memory.FreeCString(c.env.Alloc, ptr, trimmed)

	if _, err := cmd.Call(ctx, "AutoCompleteSuggest", abi.U32Arg(ptr), abi.U32Arg(list.Addr())); err != nil {
		return nil, err
	}
	return foreign.LoadSuggestions(list).Items(), nil
}

func (c *Cvar) completeName(ctx context.Context, prefix string) []string {
	prefix = strings.ToLower(prefix)
	var names []string
	c.walk(func(addr uint32) bool {
		n := c.name(ctx, addr)
		if strings.HasPrefix(strings.ToLower(n), prefix) {
			names = append(names, n)
		}
		return true
	})
	sort.Strings(names)
	if len(names) > foreign.MaxSuggestions {
		names = names[:foreign.MaxSuggestions]
	}
	return names
}
