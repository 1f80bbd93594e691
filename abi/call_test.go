package abi

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/wippyai/srcbridge/errors"
)

func TestCall_Conventions(t *testing.T) {
	for _, conv := range []CallConv{ConvDefault, ConvThiscall} {
		t.Run(conv.String(), func(t *testing.T) {
			env, _ := newTestEnv(t)
			tbl := NewTable("Adder", conv, "Add")
			layout := NewLayout("Adder", tbl, I32("bias"))

			var seen *Frame
			vt, err := tbl.Install(env, map[string]Func{
				"Add": func(_ context.Context, f *Frame) {
					seen = f
					self := Borrow(f.Env, layout, f.This())
					f.ReturnI32(self.I32("bias") + f.ArgI32(0) + f.ArgI32(1))
				},
			})
			if err != nil {
				t.Fatalf("Install: %v", err)
			}
			obj, err := New(env, layout, vt)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			obj.SetI32("bias", 100)

			res, err := obj.Call(context.Background(), "Add", I32Arg(2), I32Arg(-5))
			if err != nil {
				t.Fatalf("Call: %v", err)
			}
			if got := int32(res[0]); got != 97 {
				t.Errorf("result = %d, want 97", got)
			}
			if seen.NumArgs() != 2 {
				t.Errorf("NumArgs = %d, want 2", seen.NumArgs())
			}

			switch conv {
			case ConvThiscall:
				if seen.ECX != obj.Addr() || len(seen.Stack) != 2 {
					t.Errorf("thiscall frame ecx=%x stack=%v", seen.ECX, seen.Stack)
				}
			default:
				if seen.ECX != 0 || uint32(seen.Stack[0]) != obj.Addr() {
					t.Errorf("default frame ecx=%x stack=%v", seen.ECX, seen.Stack)
				}
			}
		})
	}
}

func TestCall_DerivedThroughBaseTable(t *testing.T) {
	env, _ := newTestEnv(t)
	base := NewTable("Shape", Native, "Sides", "Name")
	square := base.Extend("Square", "Area")

	baseLayout := NewLayout("Shape", base)
	squareLayout := baseLayout.Derive("Square", square, F32("side"))

	vt, err := square.Install(env, map[string]Func{
		"Sides": func(_ context.Context, f *Frame) { f.ReturnU32(4) },
		"Area": func(_ context.Context, f *Frame) {
			s := Borrow(f.Env, squareLayout, f.This()).F32("side")
			f.ReturnF32(s * s)
		},
	})
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	obj, err := New(env, squareLayout, vt)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	obj.SetF32("side", 3)

	asShape := obj.MustAs(baseLayout)
	res, err := asShape.Call(context.Background(), "Sides")
	if err != nil {
		t.Fatalf("Sides: %v", err)
	}
	if res[0] != 4 {
		t.Errorf("Sides = %d", res[0])
	}

	res, err = obj.Call(context.Background(), "Area")
	if err != nil {
		t.Fatalf("Area: %v", err)
	}
	if got := F32Arg(9); res[0] != got {
		t.Errorf("Area bits = %x, want %x", res[0], got)
	}

	_, err = asShape.Call(context.Background(), "Name")
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseDispatch, Kind: errors.KindNullSlot}) {
		t.Errorf("unbound slot err = %v, want null slot", err)
	}
	_, err = asShape.Call(context.Background(), "Area")
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseDispatch, Kind: errors.KindUnknownSlot}) {
		t.Errorf("slot outside base table err = %v, want unknown slot", err)
	}
}

func TestCall_FailPropagates(t *testing.T) {
	env, _ := newTestEnv(t)
	tbl := NewTable("T", Native, "Boom")
	layout := NewLayout("T", tbl)
	want := stderrors.New("boom")

	vt, _ := tbl.Install(env, map[string]Func{
		"Boom": func(_ context.Context, f *Frame) { f.Fail(want) },
	})
	obj, _ := New(env, layout, vt)

	if _, err := obj.Call(context.Background(), "Boom"); !stderrors.Is(err, want) {
		t.Errorf("err = %v, want %v", err, want)
	}
}

func TestCall_NullReceiver(t *testing.T) {
	env, _ := newTestEnv(t)
	tbl := NewTable("T", Native, "A")

	if _, err := Call(context.Background(), env, tbl, 0, 0); err == nil {
		t.Error("expected error for null receiver")
	}
	if _, err := Call(context.Background(), env, tbl, 64, 3); err == nil {
		t.Error("expected error for slot out of range")
	}
}

func TestNativeConvention(t *testing.T) {
	if Native != ConvDefault && Native != ConvThiscall {
		t.Fatalf("Native = %v", Native)
	}
}

func TestResultDecoders(t *testing.T) {
	if got := ResultU32([]uint64{U32Arg(0xdeadbeef)}); got != 0xdeadbeef {
		t.Errorf("ResultU32 = 0x%x", got)
	}
	if got := ResultI32([]uint64{I32Arg(-7)}); got != -7 {
		t.Errorf("ResultI32 = %d", got)
	}
	if got := ResultF32([]uint64{F32Arg(2.5)}); got != 2.5 {
		t.Errorf("ResultF32 = %v", got)
	}
	if !ResultBool([]uint64{BoolArg(true)}) || ResultBool([]uint64{BoolArg(false)}) {
		t.Error("ResultBool did not round trip")
	}

	if ResultU32(nil) != 0 || ResultI32(nil) != 0 || ResultF32(nil) != 0 || ResultBool(nil) {
		t.Error("missing result should read as zero")
	}
}
