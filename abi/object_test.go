package abi

import "testing"

func TestObject_Fields(t *testing.T) {
	env, space := newTestEnv(t)
	tbl := NewTable("Var", ConvDefault, "A")
	l := NewLayout("Var", tbl,
		Ptr("name"),
		Bool("flag"),
		I32("int"),
		F32("float"),
		Bytes("buf", 8),
	)

	obj, err := New(env, l, 0xabcd)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !obj.Owned() || obj.IsNull() {
		t.Fatal("New should return an owned, non-null handle")
	}
	if obj.TablePtr() != 0xabcd {
		t.Errorf("TablePtr = %x", obj.TablePtr())
	}

	obj.SetPtr("name", 0x40)
	obj.SetBool("flag", true)
	obj.SetI32("int", -7)
	obj.SetF32("float", 0.25)
	obj.SetBytes("buf", []byte("abc"))

	if obj.Ptr("name") != 0x40 || !obj.Bool("flag") || obj.I32("int") != -7 || obj.F32("float") != 0.25 {
		t.Errorf("field round trip failed")
	}
	if got := string(obj.Bytes("buf")[:3]); got != "abc" {
		t.Errorf("buf = %q", got)
	}

	raw, _ := env.Mem.ReadU32(obj.Addr() + l.Field("int").Offset)
	if int32(raw) != -7 {
		t.Errorf("field not at declared offset")
	}

	mustPanic(t, "oversized bytes", func() { obj.SetBytes("buf", make([]byte, 9)) })

	obj.Free()
	if space.InUse() != 0 {
		t.Errorf("InUse = %d after Free", space.InUse())
	}
}

func TestObject_AsAndBorrow(t *testing.T) {
	env, space := newTestEnv(t)
	bt := NewTable("Base", ConvDefault, "A")
	dt := bt.Extend("Derived", "B")
	base := NewLayout("Base", bt, I32("x"))
	derived := base.Derive("Derived", dt, I32("y"))
	other := NewLayout("Other", bt, I32("x"))

	obj, err := New(env, derived, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	obj.SetI32("x", 11)

	view, ok := obj.As(base)
	if !ok {
		t.Fatal("As(base) should succeed")
	}
	if view.Owned() || view.Addr() != obj.Addr() || view.I32("x") != 11 {
		t.Errorf("view = %+v", view)
	}
	if _, ok := view.As(derived); ok {
		t.Error("base view must not reinterpret as derived")
	}
	if _, ok := obj.As(other); ok {
		t.Error("structurally identical layout must not be inferred compatible")
	}
	mustPanic(t, "MustAs", func() { obj.MustAs(other) })

	view.Free()
	if space.InUse() == 0 {
		t.Error("freeing a borrowed view released memory")
	}
	b := Borrow(env, derived, obj.Addr())
	b.SetI32("y", 5)
	if obj.I32("y") != 5 {
		t.Error("borrowed handle does not alias owner")
	}
	obj.Free()
}
