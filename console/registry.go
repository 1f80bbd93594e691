package console

import (
	"context"

	"github.com/wippyai/srcbridge/abi"
)

// OwnerID identifies the module that registered a record.
type OwnerID int32

// DeferredKind tells which setter a deferred material thread set replays.
type DeferredKind uint8

const (
	DeferredText DeferredKind = iota
	DeferredFloat
	DeferredInt
)

// Deferred is a variable set postponed until the material thread drains
// the registry queue.
type Deferred struct {
	Text  string
	Float float32
	Int   int32
	Kind  DeferredKind
}

// Registry is the engine-side list of console records. Records cross the
// interface as foreign objects.
type Registry interface {
	AllocateOwnerID(ctx context.Context) (OwnerID, error)
	Register(ctx context.Context, rec abi.Object) error
	Unregister(ctx context.Context, rec abi.Object) error
	UnregisterAll(ctx context.Context, owner OwnerID) error
	Find(ctx context.Context, name string) (abi.Object, bool, error)
	IsMaterialThreadSetAllowed(ctx context.Context) bool
	QueueMaterialThreadSet(ctx context.Context, v abi.Object, value Deferred) error
	CallGlobalChangeCallbacks(ctx context.Context, v abi.Object, oldText string, oldFloat float32) error
}
