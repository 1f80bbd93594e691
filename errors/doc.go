// Package errors provides structured error types for srcbridge.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the foreign layout and slot involved, a record path
// and the cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDispatch, errors.KindNullSlot).
//		Layout("ConVar").
//		Slot("SetValueFloat").
//		Detail("table entry is empty").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.OutOfBounds(errors.PhaseMemory, 0x1000, 4)
//	err := errors.Unavailable(errors.PhaseLoad, "VEngineCvar007")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
