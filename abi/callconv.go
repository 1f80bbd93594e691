package abi

// CallConv identifies how a slot receives its receiver.
type CallConv uint8

const (
	// ConvDefault passes the receiver as the first stack word.
	ConvDefault CallConv = iota
	// ConvThiscall passes the receiver in a register word (ecx) and the
	// arguments on the stack.
	ConvThiscall
)

func (c CallConv) String() string {
	switch c {
	case ConvDefault:
		return "default"
	case ConvThiscall:
		return "thiscall"
	default:
		return "unknown"
	}
}

// WordSize is the foreign machine word size in bytes.
const WordSize = 4
