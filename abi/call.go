package abi

import (
	"context"

	"github.com/wippyai/srcbridge/errors"
)

// Call invokes slot of the object at this through its table pointer, using
// the convention declared on t. t must describe the object's table or a
// base of it; that is the caller's contract and is not checked.
func Call(ctx context.Context, env *Env, t *Table, this uint32, slot int, args ...uint64) ([]uint64, error) {
	if slot < 0 || slot >= t.Len() {
		return nil, errors.New(errors.PhaseDispatch, errors.KindUnknownSlot).
			Layout(t.name).
			Value(slot).
			Detail("slot index %d outside table of %d", slot, t.Len()).
			Build()
	}
	if this == 0 {
		return nil, errors.New(errors.PhaseDispatch, errors.KindNullSlot).
			Layout(t.name).
			Slot(t.slots[slot]).
			Detail("null receiver").
			Build()
	}

	vt, err := env.Mem.ReadU32(this)
	if err != nil {
		return nil, err
	}
	if vt == 0 {
		return nil, errors.New(errors.PhaseDispatch, errors.KindNullSlot).
			Layout(t.name).
			Slot(t.slots[slot]).
			Detail("receiver 0x%x has no table", this).
			Build()
	}
	idx, err := env.Mem.ReadU32(vt + uint32(slot)*WordSize)
	if err != nil {
		return nil, err
	}
	fn, _, ok := env.Funcs.Lookup(idx)
	if !ok {
		return nil, errors.NullSlot(t.name, t.slots[slot], idx)
	}

	f := newFrame(env, t.conv, this, args)
	fn(ctx, f)
	if f.err != nil {
		return nil, f.err
	}
	return f.Results, nil
}

// CallNamed resolves slot by name and invokes it.
func CallNamed(ctx context.Context, env *Env, t *Table, this uint32, slot string, args ...uint64) ([]uint64, error) {
	i, ok := t.Index(slot)
	if !ok {
		return nil, errors.UnknownSlot(errors.PhaseDispatch, t.name, slot)
	}
	return Call(ctx, env, t, this, i, args...)
}
