package abi

import (
	"context"
	"sync"

	"github.com/wippyai/srcbridge"
)

// Env bundles the foreign address space with the function table that
// installed dispatch tables index into.
type Env struct {
	Mem   srcbridge.Memory
	Alloc srcbridge.Allocator
	Funcs *FuncTable
}

// NewEnv creates an environment with an empty function table.
func NewEnv(mem srcbridge.Memory, alloc srcbridge.Allocator) *Env {
	return &Env{
		Mem:   mem,
		Alloc: alloc,
		Funcs: NewFuncTable(),
	}
}

// Func is a slot implementation. It reads its receiver and arguments from
// the frame and reports results through Return.
type Func func(ctx context.Context, f *Frame)

// FuncTable maps function indices stored in foreign tables to Go functions.
// Index 0 is reserved as null.
type FuncTable struct {
	funcs []tableEntry
	free  []uint32
	mu    sync.RWMutex
}

type tableEntry struct {
	fn   Func
	name string
}

// NewFuncTable creates a table whose only entry is the null function.
func NewFuncTable() *FuncTable {
	return &FuncTable{funcs: make([]tableEntry, 1, 64)}
}

// Add registers fn and returns its index.
func (t *FuncTable) Add(name string, fn Func) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n := len(t.free); n > 0 {
		idx := t.free[n-1]
		t.free = t.free[:n-1]
		t.funcs[idx] = tableEntry{fn: fn, name: name}
		return idx
	}
	t.funcs = append(t.funcs, tableEntry{fn: fn, name: name})
	return uint32(len(t.funcs) - 1)
}

// Lookup returns the function at idx.
func (t *FuncTable) Lookup(idx uint32) (Func, string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if idx == 0 || int(idx) >= len(t.funcs) || t.funcs[idx].fn == nil {
		return nil, "", false
	}
	e := t.funcs[idx]
	return e.fn, e.name, true
}

// Remove clears idx so it can be reused.
func (t *FuncTable) Remove(idx uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if idx == 0 || int(idx) >= len(t.funcs) || t.funcs[idx].fn == nil {
		return
	}
	t.funcs[idx] = tableEntry{}
	t.free = append(t.free, idx)
}

// Len returns the number of live functions.
func (t *FuncTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.funcs) - 1 - len(t.free)
}
