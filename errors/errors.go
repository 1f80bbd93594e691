package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseLayout   Phase = "layout"   // table and layout declaration
	PhaseMemory   Phase = "memory"   // foreign memory access
	PhaseDispatch Phase = "dispatch" // slot invocation
	PhaseRegister Phase = "register" // registry list operations
	PhaseLoad     Phase = "load"     // plugin load/unload
	PhaseValue    Phase = "value"    // variable value protocol
	PhaseParse    Phase = "parse"    // command line tokenizing
)

// Kind categorizes the error
type Kind string

const (
	KindOutOfBounds  Kind = "out_of_bounds"
	KindNullSlot     Kind = "null_slot"
	KindUnknownSlot  Kind = "unknown_slot"
	KindAllocation   Kind = "allocation"
	KindUnavailable  Kind = "unavailable"
	KindCapacity     Kind = "capacity"
	KindInvalidInput Kind = "invalid_input"
	KindNotFound     Kind = "not_found"
	KindMisuse       Kind = "misuse"
	KindIncompatible Kind = "incompatible"
)

// Error is the structured error type used throughout srcbridge
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Layout string
	Slot   string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Layout != "" || e.Slot != "" {
		b.WriteString(": ")
		switch {
		case e.Layout != "" && e.Slot != "":
			b.WriteString(e.Layout)
			b.WriteString("::")
			b.WriteString(e.Slot)
		case e.Layout != "":
			b.WriteString("layout ")
			b.WriteString(e.Layout)
		default:
			b.WriteString("slot ")
			b.WriteString(e.Slot)
		}
	}

	if e.Detail != "" {
		if e.Layout != "" || e.Slot != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the record path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Layout sets the foreign layout name
func (b *Builder) Layout(name string) *Builder {
	b.err.Layout = name
	return b
}

// Slot sets the dispatch slot name
func (b *Builder) Slot(name string) *Builder {
	b.err.Slot = name
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// OutOfBounds creates a foreign memory access error
func OutOfBounds(phase Phase, offset uint32, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("access of %d bytes at 0x%x out of bounds", length, offset),
		Value:  offset,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, align uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
	}
}

// NullSlot creates an error for a table entry with no function behind it
func NullSlot(layout, slot string, index uint32) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindNullSlot,
		Layout: layout,
		Slot:   slot,
		Detail: fmt.Sprintf("function index %d is not bound", index),
		Value:  index,
	}
}

// UnknownSlot creates an error for a slot name the table does not declare
func UnknownSlot(phase Phase, layout, slot string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnknownSlot,
		Layout: layout,
		Slot:   slot,
		Detail: "slot not declared",
	}
}

// Unavailable creates an error for a foreign interface that could not be obtained
func Unavailable(phase Phase, iface string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnavailable,
		Detail: fmt.Sprintf("interface %q is not provided by the host", iface),
		Value:  iface,
	}
}

// Capacity creates a bounded-container overflow error
func Capacity(phase Phase, what string, limit int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindCapacity,
		Detail: fmt.Sprintf("%s exceeds capacity %d", what, limit),
		Value:  limit,
	}
}

// Misuse creates an error for a broken call-order contract
func Misuse(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindMisuse,
		Path:   path,
		Detail: detail,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Incompatible creates an error for an undeclared layout reinterpretation
func Incompatible(from, to string) *Error {
	return &Error{
		Phase:  PhaseLayout,
		Kind:   KindIncompatible,
		Layout: from,
		Detail: fmt.Sprintf("no declared prefix relation to %s", to),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool { return stderrors.As(err, target) }

// Match reports whether err carries an *Error with phase and kind.
func Match(err error, phase Phase, kind Kind) bool {
	return Is(err, &Error{Phase: phase, Kind: kind})
}
