package abi

import (
	"github.com/tetratelabs/wazero/api"
)

// Frame is the machine-level view of one slot invocation. Where the
// receiver lives depends on the convention: the ECX word under thiscall,
// Stack[0] otherwise.
type Frame struct {
	Env     *Env
	err     error
	Stack   []uint64
	Results []uint64
	ECX     uint32
	Conv    CallConv
}

func newFrame(env *Env, conv CallConv, this uint32, args []uint64) *Frame {
	f := &Frame{Env: env, Conv: conv}
	switch conv {
	case ConvThiscall:
		f.ECX = this
		f.Stack = append(make([]uint64, 0, len(args)), args...)
	default:
		f.Stack = make([]uint64, 0, len(args)+1)
		f.Stack = append(f.Stack, api.EncodeU32(this))
		f.Stack = append(f.Stack, args...)
	}
	return f
}

// This returns the receiver address.
func (f *Frame) This() uint32 {
	if f.Conv == ConvThiscall {
		return f.ECX
	}
	return api.DecodeU32(f.Stack[0])
}

// NumArgs returns the argument count, excluding the receiver.
func (f *Frame) NumArgs() int {
	if f.Conv == ConvThiscall {
		return len(f.Stack)
	}
	return len(f.Stack) - 1
}

// Arg returns argument i, excluding the receiver. Missing arguments read as 0.
func (f *Frame) Arg(i int) uint64 {
	if f.Conv != ConvThiscall {
		i++
	}
	if i < 0 || i >= len(f.Stack) {
		return 0
	}
	return f.Stack[i]
}

// ArgU32 returns argument i as an unsigned 32-bit value.
func (f *Frame) ArgU32(i int) uint32 { return api.DecodeU32(f.Arg(i)) }

// ArgI32 returns argument i as a signed 32-bit value.
func (f *Frame) ArgI32(i int) int32 { return api.DecodeI32(f.Arg(i)) }

// ArgF32 returns argument i as a float.
func (f *Frame) ArgF32(i int) float32 { return api.DecodeF32(f.Arg(i)) }

// Return sets the results.
func (f *Frame) Return(vals ...uint64) {
	f.Results = append(f.Results[:0], vals...)
}

// ReturnU32 sets a single unsigned 32-bit result.
func (f *Frame) ReturnU32(v uint32) { f.Return(api.EncodeU32(v)) }

// ReturnI32 sets a single signed 32-bit result.
func (f *Frame) ReturnI32(v int32) { f.Return(api.EncodeI32(v)) }

// ReturnF32 sets a single float result.
func (f *Frame) ReturnF32(v float32) { f.Return(api.EncodeF32(v)) }

// ReturnBool sets a single boolean result.
func (f *Frame) ReturnBool(v bool) {
	if v {
		f.Return(1)
		return
	}
	f.Return(0)
}

// Fail aborts the invocation with err. Call returns it to the caller.
func (f *Frame) Fail(err error) {
	f.err = err
}

// Word helpers for building argument lists.

// U32Arg encodes an unsigned 32-bit argument.
func U32Arg(v uint32) uint64 { return api.EncodeU32(v) }

// I32Arg encodes a signed 32-bit argument.
func I32Arg(v int32) uint64 { return api.EncodeI32(v) }

// F32Arg encodes a float argument.
func F32Arg(v float32) uint64 { return api.EncodeF32(v) }

// BoolArg encodes a boolean argument.
func BoolArg(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}

// Result decoders for values returned by Call. A missing result reads as 0.

// ResultU32 decodes the first result as an unsigned 32-bit value.
func ResultU32(res []uint64) uint32 {
	if len(res) == 0 {
		return 0
	}
	return api.DecodeU32(res[0])
}

// ResultI32 decodes the first result as a signed 32-bit value.
func ResultI32(res []uint64) int32 {
	if len(res) == 0 {
		return 0
	}
	return api.DecodeI32(res[0])
}

// ResultF32 decodes the first result as a float.
func ResultF32(res []uint64) float32 {
	if len(res) == 0 {
		return 0
	}
	return api.DecodeF32(res[0])
}

// ResultBool decodes the first result as a boolean.
func ResultBool(res []uint64) bool {
	return len(res) > 0 && api.DecodeU32(res[0]) != 0
}
