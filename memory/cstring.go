package memory

import (
	"github.com/wippyai/srcbridge"
	"github.com/wippyai/srcbridge/errors"
)

// MaxCString bounds how far CString scans for a terminator.
const MaxCString = 1 << 16

// CString reads a NUL-terminated string at ptr. A null pointer reads as "".
func CString(mem srcbridge.Memory, ptr uint32) (string, error) {
	if ptr == 0 {
		return "", nil
	}
	buf := make([]byte, 0, 32)
	for i := uint32(0); i < MaxCString; i++ {
		b, err := mem.ReadU8(ptr + i)
		if err != nil {
			return "", err
		}
		if b == 0 {
			return string(buf), nil
		}
		buf = append(buf, b)
	}
	return "", errors.New(errors.PhaseMemory, errors.KindOutOfBounds).
		Value(ptr).
		Detail("no terminator within %d bytes of 0x%x", MaxCString, ptr).
		Build()
}

// NewCString copies s plus a terminator into a fresh allocation.
// Release it with FreeCString using the same string.
func NewCString(mem srcbridge.Memory, alloc srcbridge.Allocator, s string) (uint32, error) {
	ptr, err := alloc.Alloc(uint32(len(s))+1, 1)
	if err != nil {
		return 0, err
	}
	if err := WriteCString(mem, ptr, s); err != nil {
		alloc.Free(ptr, uint32(len(s))+1, 1)
		return 0, err
	}
	return ptr, nil
}

// WriteCString writes s plus a terminator at ptr. The caller owns capacity.
func WriteCString(mem srcbridge.Memory, ptr uint32, s string) error {
	data := make([]byte, len(s)+1)
	copy(data, s)
	return mem.Write(ptr, data)
}

// FreeCString releases a string allocated by NewCString.
func FreeCString(alloc srcbridge.Allocator, ptr uint32, s string) {
	if ptr == 0 {
		return
	}
	alloc.Free(ptr, uint32(len(s))+1, 1)
}
