package foreign

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/srcbridge/abi"
	"github.com/wippyai/srcbridge/errors"
	"github.com/wippyai/srcbridge/memory"
)

func newTestEnv(t *testing.T) *abi.Env {
	t.Helper()
	ctx := context.Background()
	space, err := memory.NewSpace(ctx, nil)
	require.NoError(t, err)
	t.Cleanup(func() { space.Close(ctx) })
	return abi.NewEnv(space, space)
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		line string
		args []string
		argS string
	}{
		{"empty", "", nil, ""},
		{"blank", "   \t ", nil, ""},
		{"name only", "status", []string{"status"}, ""},
		{"simple", "volume 0.5", []string{"volume", "0.5"}, "0.5"},
		{"spacing kept in argS", "say  hello   world", []string{"say", "hello", "world"}, "hello   world"},
		{"quoted", `say "hello world" now`, []string{"say", "hello world", "now"}, `"hello world" now`},
		{"unterminated quote", `say "hello world`, []string{"say", "hello world"}, `"hello world`},
		{"break characters", "bind k:{x}", []string{"bind", "k", ":", "{", "x", "}"}, "k:{x}"},
		{"single quote breaks", "echo it's", []string{"echo", "it", "'", "s"}, "it's"},
		{"cut at nul", "echo a\x00b", []string{"echo", "a"}, "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := Tokenize(tt.line)
			require.NoError(t, err)
			assert.Equal(t, len(tt.args), inv.Argc())
			assert.Equal(t, tt.args, nilIfEmpty(inv.Args()))
			argS, ok := inv.ArgS()
			assert.Equal(t, len(tt.args) > 0, ok)
			assert.Equal(t, tt.argS, argS)
		})
	}
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

func TestTokenize_Limits(t *testing.T) {
	_, err := Tokenize(strings.Repeat("x", MaxCommandLength))
	require.Error(t, err)
	assert.True(t, errors.Match(err, errors.PhaseParse, errors.KindCapacity))

	inv, err := Tokenize(strings.Repeat("x", MaxCommandLength-1))
	require.NoError(t, err)
	assert.Equal(t, 1, inv.Argc())

	_, err = Tokenize(strings.TrimSpace(strings.Repeat("a ", MaxArgs+1)))
	require.Error(t, err)

	inv, err = Tokenize(strings.TrimSpace(strings.Repeat("a ", MaxArgs)))
	require.NoError(t, err)
	assert.Equal(t, MaxArgs, inv.Argc())

	// 63 tokens fit the argument count. With longer words the line still
	// fits but the terminated tokens overflow the argument buffer.
	word := strings.Repeat("w", 7)
	parts := make([]string, 32)
	for i := range parts {
		parts[i] = word
	}
	_, err = Tokenize(strings.Join(parts, ":"))
	require.NoError(t, err)
	long := strings.Repeat("w", 14)
	for i := range parts {
		parts[i] = long
	}
	_, err = Tokenize(strings.Join(parts, ":"))
	require.Error(t, err)
}

func TestInvocation_Arg(t *testing.T) {
	inv, err := Tokenize("give weapon 3")
	require.NoError(t, err)
	assert.Equal(t, "give", inv.Arg(0))
	assert.Equal(t, "3", inv.Arg(2))
	assert.Equal(t, "", inv.Arg(3))
	assert.Equal(t, "", inv.Arg(-1))
}

func TestNewInvocation(t *testing.T) {
	inv, err := NewInvocation("say", "hello world", "")
	require.NoError(t, err)
	assert.Equal(t, `say "hello world" ""`, inv.Line())
	argS, ok := inv.ArgS()
	require.True(t, ok)
	assert.Equal(t, `"hello world" ""`, argS)

	again, err := Tokenize(inv.Line())
	require.NoError(t, err)
	assert.Equal(t, inv.Args(), again.Args())

	inv, err = NewInvocation("status")
	require.NoError(t, err)
	argS, ok = inv.ArgS()
	assert.True(t, ok)
	assert.Equal(t, "", argS)

	_, err = NewInvocation(make([]string, MaxArgs+1)...)
	assert.Error(t, err)
}

func TestInvocation_StoreLoad(t *testing.T) {
	env := newTestEnv(t)
	obj, err := abi.New(env, InvocationLayout, 0)
	require.NoError(t, err)
	defer obj.Free()

	inv, err := Tokenize(`exec "my config.cfg" fast`)
	require.NoError(t, err)
	inv.Store(obj)

	assert.Equal(t, int32(3), obj.I32("argc"))

	// argv entries point into the object's own argument buffer.
	first, err := env.Mem.ReadU32(obj.FieldAddr("argv"))
	require.NoError(t, err)
	assert.Equal(t, obj.FieldAddr("argvBuffer"), first)

	got, err := LoadInvocation(obj)
	require.NoError(t, err)
	assert.Equal(t, inv.Args(), got.Args())
	assert.Equal(t, inv.Line(), got.Line())
	argS, ok := got.ArgS()
	assert.True(t, ok)
	assert.Equal(t, `"my config.cfg" fast`, argS)
}

func TestLoadInvocation_Corrupt(t *testing.T) {
	env := newTestEnv(t)
	obj, err := abi.New(env, InvocationLayout, 0)
	require.NoError(t, err)
	defer obj.Free()

	obj.SetI32("argc", MaxArgs+1)
	_, err = LoadInvocation(obj)
	require.Error(t, err)

	obj.SetI32("argc", 0)
	obj.SetI32("argv0Size", 10)
	_, err = LoadInvocation(obj)
	require.Error(t, err)
}
