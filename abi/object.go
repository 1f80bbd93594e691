package abi

import (
	"context"
	"math"

	"github.com/wippyai/srcbridge/errors"
)

// Object is a handle to a foreign object: an address whose bytes follow
// layout. An owned handle allocated its memory and releases it with Free;
// a borrowed handle only views memory someone else owns.
//
// Field accessors treat a faulting address as a broken layout contract and
// panic with an *errors.Error.
type Object struct {
	env    *Env
	layout *Layout
	addr   uint32
	owned  bool
}

// New allocates a zeroed object of layout and stores table as its table
// pointer.
func New(env *Env, layout *Layout, table uint32) (Object, error) {
	addr, err := env.Alloc.Alloc(layout.Size(), layout.Align())
	if err != nil {
		return Object{}, err
	}
	if layout.Table() != nil {
		if err := env.Mem.WriteU32(addr, table); err != nil {
			env.Alloc.Free(addr, layout.Size(), layout.Align())
			return Object{}, err
		}
	}
	return Object{env: env, layout: layout, addr: addr, owned: true}, nil
}

// Borrow views the object at addr as layout without taking ownership.
func Borrow(env *Env, layout *Layout, addr uint32) Object {
	return Object{env: env, layout: layout, addr: addr}
}

// Free releases an owned object. Borrowed handles are left untouched.
func (o Object) Free() {
	if !o.owned || o.addr == 0 {
		return
	}
	o.env.Alloc.Free(o.addr, o.layout.Size(), o.layout.Align())
}

// IsNull reports whether the handle points nowhere.
func (o Object) IsNull() bool { return o.addr == 0 }

// Addr returns the object's foreign address.
func (o Object) Addr() uint32 { return o.addr }

// Layout returns the layout the handle views the object as.
func (o Object) Layout() *Layout { return o.layout }

// Env returns the environment the object lives in.
func (o Object) Env() *Env { return o.env }

// Owned reports whether Free releases memory.
func (o Object) Owned() bool { return o.owned }

// TablePtr returns the object's table pointer.
func (o Object) TablePtr() uint32 {
	v, err := o.env.Mem.ReadU32(o.addr)
	if err != nil {
		panic(err)
	}
	return v
}

// As reinterprets the handle as target when a compatibility edge was
// declared. The result is always borrowed and has the same address.
func (o Object) As(target *Layout) (Object, bool) {
	if !o.layout.CompatibleWith(target) {
		return Object{}, false
	}
	return Object{env: o.env, layout: target, addr: o.addr}, true
}

// MustAs is As for edges that hold by construction.
func (o Object) MustAs(target *Layout) Object {
	v, ok := o.As(target)
	if !ok {
		panic(errors.Incompatible(o.layout.Name(), target.Name()))
	}
	return v
}

// Call invokes a slot of the object's table by name.
func (o Object) Call(ctx context.Context, slot string, args ...uint64) ([]uint64, error) {
	t := o.layout.Table()
	if t == nil {
		return nil, errors.New(errors.PhaseDispatch, errors.KindUnknownSlot).
			Layout(o.layout.Name()).
			Slot(slot).
			Detail("layout has no table").
			Build()
	}
	return CallNamed(ctx, o.env, t, o.addr, slot, args...)
}

// FieldAddr returns the foreign address of a field.
func (o Object) FieldAddr(name string) uint32 {
	return o.addr + o.layout.Field(name).Offset
}

// U8 reads a byte field.
func (o Object) U8(name string) uint8 {
	v, err := o.env.Mem.ReadU8(o.FieldAddr(name))
	if err != nil {
		panic(err)
	}
	return v
}

// SetU8 writes a byte field.
func (o Object) SetU8(name string, v uint8) {
	if err := o.env.Mem.WriteU8(o.FieldAddr(name), v); err != nil {
		panic(err)
	}
}

// Bool reads a boolean field.
func (o Object) Bool(name string) bool { return o.U8(name) != 0 }

// SetBool writes a boolean field.
func (o Object) SetBool(name string, v bool) {
	var b uint8
	if v {
		b = 1
	}
	o.SetU8(name, b)
}

// U32 reads an unsigned 32-bit or pointer field.
func (o Object) U32(name string) uint32 {
	v, err := o.env.Mem.ReadU32(o.FieldAddr(name))
	if err != nil {
		panic(err)
	}
	return v
}

// SetU32 writes an unsigned 32-bit or pointer field.
func (o Object) SetU32(name string, v uint32) {
	if err := o.env.Mem.WriteU32(o.FieldAddr(name), v); err != nil {
		panic(err)
	}
}

// I32 reads a signed 32-bit field.
func (o Object) I32(name string) int32 { return int32(o.U32(name)) }

// SetI32 writes a signed 32-bit field.
func (o Object) SetI32(name string, v int32) { o.SetU32(name, uint32(v)) }

// F32 reads a float field.
func (o Object) F32(name string) float32 { return math.Float32frombits(o.U32(name)) }

// SetF32 writes a float field.
func (o Object) SetF32(name string, v float32) { o.SetU32(name, math.Float32bits(v)) }

// Ptr reads a pointer field.
func (o Object) Ptr(name string) uint32 { return o.U32(name) }

// SetPtr writes a pointer field.
func (o Object) SetPtr(name string, v uint32) { o.SetU32(name, v) }

// Bytes reads an inline byte array field.
func (o Object) Bytes(name string) []byte {
	f := o.layout.Field(name)
	v, err := o.env.Mem.Read(o.addr+f.Offset, f.Size)
	if err != nil {
		panic(err)
	}
	return v
}

// SetBytes writes data at the start of an inline byte array field. data
// longer than the field is a caller error and panics.
func (o Object) SetBytes(name string, data []byte) {
	f := o.layout.Field(name)
	if uint32(len(data)) > f.Size {
		panic(errors.Capacity(errors.PhaseMemory, "field "+name, int(f.Size)))
	}
	if err := o.env.Mem.Write(o.addr+f.Offset, data); err != nil {
		panic(err)
	}
}
