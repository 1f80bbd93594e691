package abi

import (
	"context"
	"testing"

	"github.com/wippyai/srcbridge/memory"
)

func newTestEnv(t *testing.T) (*Env, *memory.Space) {
	t.Helper()
	ctx := context.Background()
	space, err := memory.NewSpace(ctx, nil)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	t.Cleanup(func() { space.Close(ctx) })
	return NewEnv(space, space), space
}

func mustPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected panic", name)
		}
	}()
	fn()
}
