package abi

import (
	"encoding/binary"
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/srcbridge/errors"
)

// Table declares the ordered slots of a foreign dispatch table.
type Table struct {
	base  *Table
	index map[string]int
	bases map[*Table]struct{}
	name  string
	slots []string
	conv  CallConv
}

// NewTable declares a root table. Slot names must be unique.
func NewTable(name string, conv CallConv, slots ...string) *Table {
	t := &Table{
		name:  name,
		conv:  conv,
		index: make(map[string]int, len(slots)),
		bases: make(map[*Table]struct{}, 1),
	}
	t.bases[t] = struct{}{}
	t.appendSlots(slots)
	return t
}

// Extend declares a derived table: the receiver's slots followed by slots.
// The derived table keeps the receiver's convention.
func (t *Table) Extend(name string, slots ...string) *Table {
	d := &Table{
		base:  t,
		name:  name,
		conv:  t.conv,
		slots: append([]string(nil), t.slots...),
		index: make(map[string]int, len(t.slots)+len(slots)),
		bases: make(map[*Table]struct{}, len(t.bases)+1),
	}
	for k, v := range t.index {
		d.index[k] = v
	}
	for b := range t.bases {
		d.bases[b] = struct{}{}
	}
	d.bases[d] = struct{}{}
	d.appendSlots(slots)
	return d
}

func (t *Table) appendSlots(slots []string) {
	for _, s := range slots {
		if _, dup := t.index[s]; dup {
			panic(fmt.Sprintf("abi: table %s declares slot %q twice", t.name, s))
		}
		t.index[s] = len(t.slots)
		t.slots = append(t.slots, s)
	}
}

// Name returns the table's declared name.
func (t *Table) Name() string { return t.name }

// Conv returns the calling convention shared by every slot.
func (t *Table) Conv() CallConv { return t.conv }

// Base returns the table this one extends, or nil.
func (t *Table) Base() *Table { return t.base }

// Len returns the slot count.
func (t *Table) Len() int { return len(t.slots) }

// Size returns the table's size in foreign memory.
func (t *Table) Size() uint32 { return uint32(len(t.slots)) * WordSize }

// Slots returns the slot names in declaration order.
func (t *Table) Slots() []string { return append([]string(nil), t.slots...) }

// Index returns the position of slot.
func (t *Table) Index(slot string) (int, bool) {
	i, ok := t.index[slot]
	return i, ok
}

// Extends reports whether t is base or was derived from it.
func (t *Table) Extends(base *Table) bool {
	_, ok := t.bases[base]
	return ok
}

// Install writes a table instance into foreign memory and returns its
// address. Slots without an implementation stay null; a call through them
// fails with KindNullSlot.
func (t *Table) Install(env *Env, impls map[string]Func) (uint32, error) {
	for name := range impls {
		if _, ok := t.index[name]; !ok {
			return 0, errors.UnknownSlot(errors.PhaseLayout, t.name, name)
		}
	}

	addr, err := env.Alloc.Alloc(t.Size(), WordSize)
	if err != nil {
		return 0, err
	}

	entries := make([]byte, t.Size())
	for i, name := range t.slots {
		fn, ok := impls[name]
		if !ok {
			continue
		}
		idx := env.Funcs.Add(t.name+"::"+name, fn)
		binary.LittleEndian.PutUint32(entries[i*WordSize:], idx)
	}
	if err := env.Mem.Write(addr, entries); err != nil {
		t.releaseEntries(env, entries)
		env.Alloc.Free(addr, t.Size(), WordSize)
		return 0, err
	}

	Logger().Debug("table installed",
		zap.String("table", t.name),
		zap.Uint32("addr", addr),
		zap.Int("slots", len(t.slots)),
		zap.Int("bound", len(impls)))
	return addr, nil
}

// Uninstall releases a table instance created by Install.
func (t *Table) Uninstall(env *Env, addr uint32) error {
	if addr == 0 {
		return nil
	}
	entries, err := env.Mem.Read(addr, t.Size())
	if err != nil {
		return err
	}
	t.releaseEntries(env, entries)
	env.Alloc.Free(addr, t.Size(), WordSize)
	return nil
}

func (t *Table) releaseEntries(env *Env, entries []byte) {
	for i := 0; i+WordSize <= len(entries); i += WordSize {
		if idx := binary.LittleEndian.Uint32(entries[i:]); idx != 0 {
			env.Funcs.Remove(idx)
		}
	}
}
