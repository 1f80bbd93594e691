package foreign

import (
	"strings"

	"github.com/wippyai/srcbridge/abi"
	"github.com/wippyai/srcbridge/errors"
	"github.com/wippyai/srcbridge/memory"
)

// breakChars end a token and form a token of their own.
const breakChars = "{}()':"

// Invocation is one tokenized console line: argument 0 is the command name.
type Invocation struct {
	line      string
	args      []string
	argv0Size int
}

// Tokenize splits line into arguments. Double quotes group text into one
// argument; an unterminated quote runs to the end of the line. A line must
// fit the fixed CCommand buffers, otherwise a capacity error is returned.
func Tokenize(line string) (*Invocation, error) {
	if len(line) >= MaxCommandLength {
		return nil, errors.Capacity(errors.PhaseParse, "command line bytes", MaxCommandLength-1)
	}
	if i := strings.IndexByte(line, 0); i >= 0 {
		line = line[:i]
	}

	inv := &Invocation{line: line}
	pos, used := 0, 0
	for {
		pos = skipSpace(line, pos)
		if pos >= len(line) {
			break
		}
		tok, next := nextToken(line, pos)
		if len(inv.args) == MaxArgs {
			return nil, errors.Capacity(errors.PhaseParse, "command arguments", MaxArgs)
		}
		if used += len(tok) + 1; used > MaxCommandLength {
			return nil, errors.Capacity(errors.PhaseParse, "argument buffer bytes", MaxCommandLength)
		}
		inv.args = append(inv.args, tok)
		pos = next
		if len(inv.args) == 1 {
			inv.argv0Size = skipSpace(line, pos)
		}
	}
	return inv, nil
}

func skipSpace(s string, pos int) int {
	for pos < len(s) && s[pos] <= ' ' {
		pos++
	}
	return pos
}

func nextToken(s string, pos int) (string, int) {
	if s[pos] == '"' {
		end := strings.IndexByte(s[pos+1:], '"')
		if end < 0 {
			return s[pos+1:], len(s)
		}
		return s[pos+1 : pos+1+end], pos + end + 2
	}
	if strings.IndexByte(breakChars, s[pos]) >= 0 {
		return s[pos : pos+1], pos + 1
	}
	start := pos
	for pos < len(s) && s[pos] > ' ' && s[pos] != '"' && strings.IndexByte(breakChars, s[pos]) < 0 {
		pos++
	}
	return s[start:pos], pos
}

// NewInvocation builds an invocation from already split arguments.
func NewInvocation(args ...string) (*Invocation, error) {
	if len(args) > MaxArgs {
		return nil, errors.Capacity(errors.PhaseParse, "command arguments", MaxArgs)
	}
	quoted := make([]string, len(args))
	for i, a := range args {
		if a == "" || strings.ContainsAny(a, " \t"+breakChars) {
			a = `"` + a + `"`
		}
		quoted[i] = a
	}
	line := strings.Join(quoted, " ")
	if len(line) >= MaxCommandLength {
		return nil, errors.Capacity(errors.PhaseParse, "command line bytes", MaxCommandLength-1)
	}
	inv := &Invocation{line: line, args: append([]string(nil), args...)}
	if len(args) > 0 {
		inv.argv0Size = len(quoted[0]) + 1
		if len(args) == 1 {
			inv.argv0Size = len(line)
		}
	}
	return inv, nil
}

// Argc returns the argument count including the command name.
func (c *Invocation) Argc() int { return len(c.args) }

// Arg returns argument i, or "" when i is out of range.
func (c *Invocation) Arg(i int) string {
	if i < 0 || i >= len(c.args) {
		return ""
	}
	return c.args[i]
}

// Args returns a copy of all arguments.
func (c *Invocation) Args() []string { return append([]string(nil), c.args...) }

// ArgS returns the raw text after the command name. It is absent when the
// line had no arguments at all.
func (c *Invocation) ArgS() (string, bool) {
	if len(c.args) == 0 {
		return "", false
	}
	return c.line[c.argv0Size:], true
}

// Line returns the full command line.
func (c *Invocation) Line() string { return c.line }

// Store writes the invocation into obj, which must view InvocationLayout.
func (c *Invocation) Store(obj abi.Object) {
	obj.SetI32("argc", int32(len(c.args)))
	obj.SetI32("argv0Size", int32(c.argv0Size))
	obj.SetBytes("argS", append([]byte(c.line), 0))

	buf := make([]byte, 0, MaxCommandLength)
	argv := make([]byte, 0, MaxArgs*abi.WordSize)
	base := obj.FieldAddr("argvBuffer")
	for _, a := range c.args {
		ptr := base + uint32(len(buf))
		buf = append(buf, a...)
		buf = append(buf, 0)
		argv = append(argv, byte(ptr), byte(ptr>>8), byte(ptr>>16), byte(ptr>>24))
	}
	obj.SetBytes("argvBuffer", buf)
	obj.SetBytes("argv", argv)
}

// LoadInvocation reads an invocation stored in foreign memory.
func LoadInvocation(obj abi.Object) (*Invocation, error) {
	argc := obj.I32("argc")
	if argc < 0 || argc > MaxArgs {
		return nil, errors.New(errors.PhaseParse, errors.KindInvalidInput).
			Layout(InvocationLayout.Name()).
			Value(argc).
			Detail("argc outside [0, %d]", MaxArgs).
			Build()
	}
	argv0 := obj.I32("argv0Size")
	line := cstr(obj.Bytes("argS"))
	if argv0 < 0 || int(argv0) > len(line) {
		return nil, errors.New(errors.PhaseParse, errors.KindInvalidInput).
			Layout(InvocationLayout.Name()).
			Value(argv0).
			Detail("argv0 size outside the command line").
			Build()
	}

	env := obj.Env()
	inv := &Invocation{line: line, argv0Size: int(argv0), args: make([]string, 0, argc)}
	argvAddr := obj.FieldAddr("argv")
	for i := int32(0); i < argc; i++ {
		ptr, err := env.Mem.ReadU32(argvAddr + uint32(i)*abi.WordSize)
		if err != nil {
			return nil, err
		}
		s, err := memory.CString(env.Mem, ptr)
		if err != nil {
			return nil, err
		}
		inv.args = append(inv.args, s)
	}
	return inv, nil
}

func cstr(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
