package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/wippyai/srcbridge/abi"
	"github.com/wippyai/srcbridge/errors"
	"github.com/wippyai/srcbridge/foreign"
	"github.com/wippyai/srcbridge/memory"
)

// Callback shapes recorded in a ConCommand's kind fields.
const (
	callbackArgs   = 2
	completionFunc = 1
)

// native is a command owned by the engine itself.
type native struct {
	run      func(ctx context.Context, inv *foreign.Invocation)
	complete func(ctx context.Context, partial string, out *foreign.Suggestions)
	obj      abi.Object
	name     string
	help     string
	namePtr  uint32
	helpPtr  uint32
}

func (n *native) free() {
	env := n.obj.Env()
	memory.FreeCString(env.Alloc, n.namePtr, n.name)
	memory.FreeCString(env.Alloc, n.helpPtr, n.help)
	n.obj.Free()
}

func (c *Cvar) registerNatives(ctx context.Context) error {
	natives := []*native{
		{name: "cvarlist", help: "Show the list of convars/concommands.", run: c.cmdList},
		{name: "find", help: "Find concommands with the specified string in their name/help text.", run: c.cmdFind},
		{name: "help", help: "Find help about a convar/concommand.", run: c.cmdHelp, complete: c.completeNames},
		{name: "echo", help: "Echo text to console.", run: c.cmdEcho},
	}
	for _, n := range natives {
		if err := c.addNative(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cvar) addNative(ctx context.Context, n *native) error {
	obj, err := abi.New(c.env, foreign.CommandLayout, c.cmdTable)
	if err != nil {
		return err
	}
	n.obj = obj
	if n.namePtr, err = memory.NewCString(c.env.Mem, c.env.Alloc, n.name); err != nil {
		obj.Free()
		return err
	}
	if n.helpPtr, err = memory.NewCString(c.env.Mem, c.env.Alloc, n.help); err != nil {
		memory.FreeCString(c.env.Alloc, n.namePtr, n.name)
		obj.Free()
		return err
	}
	obj.SetPtr("name", n.namePtr)
	obj.SetPtr("help", n.helpPtr)
	obj.SetU8("callbackKind", callbackArgs)
	if n.complete != nil {
		obj.SetU8("completionKind", completionFunc)
	}
	c.natives[obj.Addr()] = n
	return c.register(ctx, obj.Addr())
}

func (c *Cvar) nativeFor(f *abi.Frame) (*native, bool) {
	n, ok := c.natives[f.This()]
	if !ok {
		f.Fail(errors.NotFound(errors.PhaseDispatch, "engine command", fmt.Sprintf("0x%x", f.This())))
	}
	return n, ok
}

func (c *Cvar) nativeSlots() map[string]abi.Func {
	field := func(name string) abi.Func {
		return func(_ context.Context, f *abi.Frame) {
			if n, ok := c.nativeFor(f); ok {
				f.ReturnU32(n.obj.U32(name))
			}
		}
	}
	return map[string]abi.Func{
		"IsCommand": func(_ context.Context, f *abi.Frame) { f.ReturnBool(true) },
		"IsFlagSet": func(_ context.Context, f *abi.Frame) {
			if n, ok := c.nativeFor(f); ok {
				f.ReturnBool(foreign.Flags(n.obj.I32("flags")).Has(foreign.Flags(f.ArgI32(0))))
			}
		},
		"AddFlags": func(_ context.Context, f *abi.Frame) {
			if n, ok := c.nativeFor(f); ok {
				n.obj.SetI32("flags", n.obj.I32("flags")|f.ArgI32(0))
			}
		},
		"GetName":     field("name"),
		"GetHelpText": field("help"),
		"IsRegistered": func(_ context.Context, f *abi.Frame) {
			if n, ok := c.nativeFor(f); ok {
				f.ReturnBool(n.obj.Bool("registered"))
			}
		},
		"GetDLLIdentifier": func(_ context.Context, f *abi.Frame) { f.ReturnI32(c.owner) },
		"Init":             func(context.Context, *abi.Frame) {},
		"CanAutoComplete": func(_ context.Context, f *abi.Frame) {
			if n, ok := c.nativeFor(f); ok {
				f.ReturnBool(n.complete != nil)
			}
		},
		"AutoCompleteSuggest": func(ctx context.Context, f *abi.Frame) {
			n, ok := c.nativeFor(f)
			if !ok {
				return
			}
			partial, err := memory.CString(f.Env.Mem, f.ArgU32(0))
			if err != nil {
				f.Fail(err)
				return
			}
			out := foreign.NewSuggestions()
			if n.complete != nil {
				n.complete(ctx, partial, out)
			}
			out.Store(abi.Borrow(f.Env, foreign.SuggestionsLayout, f.ArgU32(1)))
			f.ReturnI32(int32(out.Len()))
		},
		"Dispatch": func(ctx context.Context, f *abi.Frame) {
			n, ok := c.nativeFor(f)
			if !ok {
				return
			}
			inv, err := foreign.LoadInvocation(abi.Borrow(f.Env, foreign.InvocationLayout, f.ArgU32(0)))
			if err != nil {
				f.Fail(err)
				return
			}
			n.run(ctx, inv)
		},
	}
}

func (c *Cvar) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func (c *Cvar) cmdList(ctx context.Context, inv *foreign.Invocation) {
	prefix := strings.ToLower(inv.Arg(1))
	count := 0
	for _, r := range c.Records(ctx) {
		if prefix != "" && !strings.HasPrefix(strings.ToLower(r.Name), prefix) {
			continue
		}
		count++
		if r.Command {
			c.printf("%-40s : %-8s : %-16s : %s\n", r.Name, "cmd", flagList(r.Flags), r.Help)
			continue
		}
		c.printf("%-40s : %-8s : %-16s : %s\n", r.Name, c.variable(r.Addr).Text, flagList(r.Flags), r.Help)
	}
	c.printf("--------------\n%3d convars/concommands\n", count)
}

func flagList(f foreign.Flags) string {
	if f == foreign.FlagNone {
		return ""
	}
	return strings.ReplaceAll(f.String(), "|", ", ")
}

func (c *Cvar) cmdFind(ctx context.Context, inv *foreign.Invocation) {
	if inv.Argc() != 2 {
		c.printf("Usage:  find <string>\n")
		return
	}
	needle := strings.ToLower(inv.Arg(1))
	for _, r := range c.Records(ctx) {
		if strings.Contains(strings.ToLower(r.Name), needle) || strings.Contains(strings.ToLower(r.Help), needle) {
			c.describe(r)
		}
	}
}

func (c *Cvar) cmdHelp(ctx context.Context, inv *foreign.Invocation) {
	if inv.Argc() != 2 {
		c.printf("Usage:  help <cvarname>\n")
		return
	}
	addr := c.find(ctx, inv.Arg(1))
	if addr == 0 {
		c.printf("help:  no cvar or command named %s\n", inv.Arg(1))
		return
	}
	c.describe(RecordInfo{
		Name:    c.name(ctx, addr),
		Help:    c.help(ctx, addr),
		Addr:    addr,
		Flags:   foreign.Flags(c.base(addr).I32("flags")),
		Command: c.isCommand(ctx, addr),
	})
}

func (c *Cvar) cmdEcho(_ context.Context, inv *foreign.Invocation) {
	s, _ := inv.ArgS()
	c.printf("%s\n", s)
}

func (c *Cvar) completeNames(ctx context.Context, partial string, out *foreign.Suggestions) {
	cmd, rest, _ := strings.Cut(partial, " ")
	rest = strings.ToLower(strings.TrimSpace(rest))
	var names []string
	for _, r := range c.Records(ctx) {
		if strings.HasPrefix(strings.ToLower(r.Name), rest) {
			names = append(names, cmd+" "+r.Name)
		}
	}
	sort.Strings(names)
	for _, n := range names {
		if !out.Push(n) {
			return
		}
	}
}

func (c *Cvar) describe(r RecordInfo) {
	if r.Command {
		c.printf("\"%s\"\n", r.Name)
	} else {
		v := c.variable(r.Addr)
		c.printf("\"%s\" = \"%s\"", r.Name, v.Text)
		if v.Text != v.Default {
			c.printf(" ( def. \"%s\" )", v.Default)
		}
		if v.HasMin {
			c.printf(" min. %f", v.Min)
		}
		if v.HasMax {
			c.printf(" max. %f", v.Max)
		}
		c.printf("\n")
	}
	if fl := flagList(r.Flags); fl != "" {
		c.printf(" %s\n", fl)
	}
	if r.Help != "" {
		c.printf(" - %s\n", r.Help)
	}
}
