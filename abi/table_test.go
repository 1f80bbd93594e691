package abi

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/wippyai/srcbridge/errors"
)

func TestTable_ExtendKeepsPrefix(t *testing.T) {
	base := NewTable("Base", ConvDefault, "A", "B")
	mid := base.Extend("Mid", "C")
	leaf := mid.Extend("Leaf", "D", "E")

	if leaf.Len() != 5 {
		t.Fatalf("Len = %d, want 5", leaf.Len())
	}
	for i, name := range base.Slots() {
		got, ok := leaf.Index(name)
		if !ok || got != i {
			t.Errorf("Index(%s) = %d,%v, want %d", name, got, ok, i)
		}
	}
	if i, _ := leaf.Index("C"); i != 2 {
		t.Errorf("Index(C) = %d, want 2", i)
	}
	if leaf.Conv() != ConvDefault {
		t.Errorf("derived table changed convention")
	}
	if leaf.Size() != 5*WordSize {
		t.Errorf("Size = %d", leaf.Size())
	}
}

func TestTable_Extends(t *testing.T) {
	base := NewTable("Base", ConvDefault, "A")
	mid := base.Extend("Mid", "B")
	leaf := mid.Extend("Leaf", "C")
	other := base.Extend("Other", "B")

	tests := []struct {
		name string
		t    *Table
		base *Table
		want bool
	}{
		{"self", base, base, true},
		{"direct", mid, base, true},
		{"transitive", leaf, base, true},
		{"reverse", base, leaf, false},
		{"sibling", other, mid, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.t.Extends(tt.base); got != tt.want {
				t.Errorf("Extends = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTable_DuplicateSlotPanics(t *testing.T) {
	mustPanic(t, "NewTable", func() { NewTable("T", ConvDefault, "A", "A") })
	base := NewTable("T", ConvDefault, "A")
	mustPanic(t, "Extend", func() { base.Extend("U", "A") })
}

func TestTable_InstallUnknownSlot(t *testing.T) {
	env, space := newTestEnv(t)
	tbl := NewTable("T", ConvDefault, "A")

	_, err := tbl.Install(env, map[string]Func{
		"Missing": func(context.Context, *Frame) {},
	})
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseLayout, Kind: errors.KindUnknownSlot}) {
		t.Fatalf("err = %v, want unknown slot", err)
	}
	if space.InUse() != 0 {
		t.Errorf("failed install leaked %d bytes", space.InUse())
	}
}

func TestTable_InstallUninstall(t *testing.T) {
	env, space := newTestEnv(t)
	tbl := NewTable("T", ConvDefault, "A", "B", "C")
	nop := func(context.Context, *Frame) {}

	addr, err := tbl.Install(env, map[string]Func{"A": nop, "C": nop})
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if env.Funcs.Len() != 2 {
		t.Errorf("Funcs.Len = %d, want 2", env.Funcs.Len())
	}
	b, _ := env.Mem.ReadU32(addr + WordSize)
	if b != 0 {
		t.Errorf("unbound slot B = %d, want null", b)
	}

	if err := tbl.Uninstall(env, addr); err != nil {
		t.Fatalf("Uninstall: %v", err)
	}
	if env.Funcs.Len() != 0 {
		t.Errorf("Funcs.Len = %d after Uninstall", env.Funcs.Len())
	}
	if space.InUse() != 0 {
		t.Errorf("InUse = %d after Uninstall", space.InUse())
	}
}

func TestFuncTable_ReusesIndices(t *testing.T) {
	ft := NewFuncTable()
	nop := func(context.Context, *Frame) {}

	a := ft.Add("a", nop)
	b := ft.Add("b", nop)
	if a == 0 || b == 0 || a == b {
		t.Fatalf("bad indices %d %d", a, b)
	}
	ft.Remove(a)
	if _, _, ok := ft.Lookup(a); ok {
		t.Error("removed index still resolves")
	}
	if c := ft.Add("c", nop); c != a {
		t.Errorf("Add after Remove = %d, want reuse of %d", c, a)
	}
	if _, _, ok := ft.Lookup(0); ok {
		t.Error("index 0 must stay null")
	}
}
