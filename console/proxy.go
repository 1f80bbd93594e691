package console

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/srcbridge/abi"
	"github.com/wippyai/srcbridge/errors"
	"github.com/wippyai/srcbridge/foreign"
	"github.com/wippyai/srcbridge/memory"
)

// Proxy implements Registry by calling through the engine's ICvar table.
type Proxy struct {
	obj abi.Object
}

var _ Registry = (*Proxy)(nil)

// Connect resolves the console registry through factory.
func Connect(factory foreign.Factory) (*Proxy, error) {
	if factory == nil {
		return nil, errors.New(errors.PhaseLoad, errors.KindUnavailable).
			Value(foreign.CvarInterfaceVersion).
			Detail("no interface factory to resolve %s", foreign.CvarInterfaceVersion).
			Build()
	}
	obj, ok := factory(foreign.CvarInterfaceVersion)
	if !ok || obj.IsNull() {
		return nil, errors.Unavailable(errors.PhaseLoad, foreign.CvarInterfaceVersion)
	}
	return NewProxy(obj)
}

// NewProxy wraps an ICvar object. The object must have been declared with
// a layout compatible with foreign.CvarLayout.
func NewProxy(obj abi.Object) (*Proxy, error) {
	if obj.Layout() == nil {
		return nil, errors.Incompatible("untyped object", foreign.CvarLayout.Name())
	}
	cvar, ok := obj.As(foreign.CvarLayout)
	if !ok {
		return nil, errors.New(errors.PhaseLoad, errors.KindIncompatible).
			Layout(obj.Layout().Name()).
			Detail("registry object is not an %s", foreign.CvarLayout.Name()).
			Build()
	}
	return &Proxy{obj: cvar}, nil
}

// Object returns the wrapped registry object.
func (p *Proxy) Object() abi.Object { return p.obj }

// AllocateOwnerID asks the engine for a fresh owner id.
func (p *Proxy) AllocateOwnerID(ctx context.Context) (OwnerID, error) {
	res, err := p.obj.Call(ctx, "AllocateDLLIdentifier")
	if err != nil {
		return 0, err
	}
	return OwnerID(abi.ResultI32(res)), nil
}

// Register links rec into the engine list.
func (p *Proxy) Register(ctx context.Context, rec abi.Object) error {
	_, err := p.obj.Call(ctx, "RegisterConCommand", abi.U32Arg(rec.Addr()))
	return err
}

// Unregister unlinks rec.
func (p *Proxy) Unregister(ctx context.Context, rec abi.Object) error {
	_, err := p.obj.Call(ctx, "UnregisterConCommand", abi.U32Arg(rec.Addr()))
	return err
}

// UnregisterAll unlinks every record whose owner is owner.
func (p *Proxy) UnregisterAll(ctx context.Context, owner OwnerID) error {
	_, err := p.obj.Call(ctx, "UnregisterConCommands", abi.I32Arg(int32(owner)))
	return err
}

// Find looks a record up by name.
func (p *Proxy) Find(ctx context.Context, name string) (abi.Object, bool, error) {
	env := p.obj.Env()
	ptr, err := memory.NewCString(env.Mem, env.Alloc, name)
	if err != nil {
		return abi.Object{}, false, err
	}
	defer memory.FreeCString(env.Alloc, ptr, name)

	res, err := p.obj.Call(ctx, "FindCommandBase", abi.U32Arg(ptr))
	if err != nil {
		return abi.Object{}, false, err
	}
	addr := abi.ResultU32(res)
	if addr == 0 {
		return abi.Object{}, false, nil
	}
	return abi.Borrow(env, foreign.BaseLayout, addr), true, nil
}

// IsMaterialThreadSetAllowed reports whether material thread variables may
// be set from ctx's thread. A failed query allows the set.
func (p *Proxy) IsMaterialThreadSetAllowed(ctx context.Context) bool {
	res, err := p.obj.Call(ctx, "IsMaterialThreadSetAllowed")
	if err != nil {
		Logger().Warn("material thread query failed", zap.Error(err))
		return true
	}
	return abi.ResultBool(res)
}

// QueueMaterialThreadSet hands a set to the engine queue.
func (p *Proxy) QueueMaterialThreadSet(ctx context.Context, v abi.Object, value Deferred) error {
	this := abi.U32Arg(v.Addr())
	switch value.Kind {
	case DeferredFloat:
		_, err := p.obj.Call(ctx, "QueueMaterialThreadSetValueFloat", this, abi.F32Arg(value.Float))
		return err
	case DeferredInt:
		_, err := p.obj.Call(ctx, "QueueMaterialThreadSetValueInt", this, abi.I32Arg(value.Int))
		return err
	default:
		env := p.obj.Env()
		ptr, err := memory.NewCString(env.Mem, env.Alloc, value.Text)
		if err != nil {
			return err
		}
		defer memory.FreeCString(env.Alloc, ptr, value.Text)
		_, err = p.obj.Call(ctx, "QueueMaterialThreadSetValueString", this, abi.U32Arg(ptr))
		return err
	}
}

// CallGlobalChangeCallbacks runs the engine's change callbacks for v.
func (p *Proxy) CallGlobalChangeCallbacks(ctx context.Context, v abi.Object, oldText string, oldFloat float32) error {
	env := p.obj.Env()
	ptr, err := memory.NewCString(env.Mem, env.Alloc, oldText)
	if err != nil {
		return err
	}
	defer memory.FreeCString(env.Alloc, ptr, oldText)
	_, err = p.obj.Call(ctx, "CallGlobalChangeCallbacks",
		abi.U32Arg(v.Addr()), abi.U32Arg(ptr), abi.F32Arg(oldFloat))
	return err
}
