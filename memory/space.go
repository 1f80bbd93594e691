package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/wippyai/srcbridge/errors"
)

const (
	pageSize = 65536

	// heapBase keeps the first bytes unused so that 0 stays a null pointer.
	heapBase = 16

	defaultInitialPages = 1
	defaultMaxPages     = 1024
)

// Config holds configuration for a Space.
type Config struct {
	// InitialPages is the starting size in 64KiB pages. 0 means 1.
	InitialPages uint32

	// MaxPages bounds growth. 0 means 1024 (64MiB).
	MaxPages uint32
}

// Space is a foreign address space backed by a wazero linear memory.
// It implements srcbridge.Memory, srcbridge.MemorySizer and srcbridge.Allocator.
type Space struct {
	*Wrapper
	rt   wazero.Runtime
	mu   sync.Mutex
	free []span
	max  uint32
}

type span struct {
	off  uint32
	size uint32
}

// NewSpace instantiates a memory-only module and returns its memory as a Space.
func NewSpace(ctx context.Context, cfg *Config) (*Space, error) {
	initial, maxPages := uint32(defaultInitialPages), uint32(defaultMaxPages)
	if cfg != nil {
		if cfg.InitialPages > 0 {
			initial = cfg.InitialPages
		}
		if cfg.MaxPages > 0 {
			maxPages = cfg.MaxPages
		}
	}
	if initial > maxPages {
		return nil, errors.InvalidInput(errors.PhaseMemory,
			fmt.Sprintf("initial pages %d exceed max pages %d", initial, maxPages))
	}

	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfigInterpreter().
		WithMemoryLimitPages(maxPages))

	compiled, err := rt.CompileModule(ctx, memoryModule(initial, maxPages))
	if err != nil {
		rt.Close(ctx)
		return nil, errors.Wrap(errors.PhaseMemory, errors.KindAllocation, err, "compile memory module")
	}
	mod, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName("foreign"))
	if err != nil {
		rt.Close(ctx)
		return nil, errors.Wrap(errors.PhaseMemory, errors.KindAllocation, err, "instantiate memory module")
	}

	mem := mod.Memory()
	s := &Space{
		Wrapper: &Wrapper{Mem: mem},
		rt:      rt,
		max:     maxPages,
	}
	s.free = []span{{off: heapBase, size: mem.Size() - heapBase}}

	Logger().Debug("foreign space created",
		zap.Uint32("initial_pages", initial),
		zap.Uint32("max_pages", maxPages))
	return s, nil
}

// Close releases the underlying runtime.
func (s *Space) Close(ctx context.Context) error {
	return s.rt.Close(ctx)
}

// Alloc returns a zeroed block of at least size bytes aligned to align.
func (s *Space) Alloc(size, align uint32) (uint32, error) {
	if align == 0 {
		align = 1
	}
	size = roundSize(size)

	s.mu.Lock()
	defer s.mu.Unlock()

	ptr, ok := s.take(size, align)
	if !ok {
		if err := s.grow(size + align); err != nil {
			return 0, err
		}
		if ptr, ok = s.take(size, align); !ok {
			return 0, errors.AllocationFailed(errors.PhaseMemory, size, align)
		}
	}

	if !s.Mem.Write(ptr, make([]byte, size)) {
		return 0, errors.OutOfBounds(errors.PhaseMemory, ptr, int(size))
	}
	return ptr, nil
}

// Free returns a block obtained from Alloc. size must match the request.
func (s *Space) Free(ptr, size, _ uint32) {
	if ptr == 0 {
		return
	}
	size = roundSize(size)

	s.mu.Lock()
	defer s.mu.Unlock()

	i := sort.Search(len(s.free), func(i int) bool { return s.free[i].off > ptr })
	s.free = append(s.free, span{})
	copy(s.free[i+1:], s.free[i:])
	s.free[i] = span{off: ptr, size: size}
	s.coalesce(i)
}

// InUse returns the number of allocated bytes.
func (s *Space) InUse() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := s.Mem.Size() - heapBase
	for _, f := range s.free {
		total -= f.size
	}
	return total
}

func (s *Space) take(size, align uint32) (uint32, bool) {
	for i, f := range s.free {
		aligned := alignTo(f.off, align)
		end := f.off + f.size
		if aligned+size > end {
			continue
		}
		var parts []span
		if aligned > f.off {
			parts = append(parts, span{off: f.off, size: aligned - f.off})
		}
		if aligned+size < end {
			parts = append(parts, span{off: aligned + size, size: end - aligned - size})
		}
		s.free = append(s.free[:i], append(parts, s.free[i+1:]...)...)
		return aligned, true
	}
	return 0, false
}

func (s *Space) grow(atLeast uint32) error {
	pages := (atLeast + pageSize - 1) / pageSize
	before := s.Mem.Size()
	if before/pageSize+pages > s.max {
		return errors.AllocationFailed(errors.PhaseMemory, atLeast, 1)
	}
	if _, ok := s.Mem.Grow(pages); !ok {
		return errors.AllocationFailed(errors.PhaseMemory, atLeast, 1)
	}
	s.free = append(s.free, span{off: before, size: pages * pageSize})
	s.coalesce(len(s.free) - 1)
	Logger().Debug("foreign space grown", zap.Uint32("pages", pages))
	return nil
}

func (s *Space) coalesce(i int) {
	if i+1 < len(s.free) && s.free[i].off+s.free[i].size == s.free[i+1].off {
		s.free[i].size += s.free[i+1].size
		s.free = append(s.free[:i+1], s.free[i+2:]...)
	}
	if i > 0 && s.free[i-1].off+s.free[i-1].size == s.free[i].off {
		s.free[i-1].size += s.free[i].size
		s.free = append(s.free[:i], s.free[i+1:]...)
	}
}

func roundSize(size uint32) uint32 {
	if size == 0 {
		size = 1
	}
	return alignTo(size, 4)
}

func alignTo(v, align uint32) uint32 {
	return (v + align - 1) &^ (align - 1)
}

// memoryModule encodes a module that declares and exports one memory.
func memoryModule(initial, maxPages uint32) []byte {
	limits := append([]byte{0x01}, uleb(initial)...)
	limits = append(limits, uleb(maxPages)...)

	memSec := append([]byte{0x01}, limits...)
	expSec := append([]byte{0x01, 0x06}, "memory"...)
	expSec = append(expSec, 0x02, 0x00)

	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	out = append(out, 0x05)
	out = append(out, uleb(uint32(len(memSec)))...)
	out = append(out, memSec...)
	out = append(out, 0x07)
	out = append(out, uleb(uint32(len(expSec)))...)
	out = append(out, expSec...)
	return out
}

func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}
