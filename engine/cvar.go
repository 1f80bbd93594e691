package engine

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wippyai/srcbridge/abi"
	"github.com/wippyai/srcbridge/errors"
	"github.com/wippyai/srcbridge/foreign"
	"github.com/wippyai/srcbridge/memory"
)

// Config holds configuration for a Cvar registry.
type Config struct {
	// Output receives text printed by console lines. nil discards it.
	Output io.Writer

	// QueuedMaterialSystem makes the material system run on its own
	// thread, so material variables may only be set from it.
	QueuedMaterialSystem bool
}

// ChangeCallback observes every variable whose text changed.
type ChangeCallback func(ctx context.Context, v abi.Object, oldText string, oldFloat float32)

// Cvar is the engine's console registry.
type Cvar struct {
	env *abi.Env
	obj abi.Object
	log *zap.Logger
	out io.Writer
	id  uuid.UUID

	table    uint32
	cmdTable uint32

	// list state, written from the main thread only
	head     uint32
	nextID   int32
	owner    int32
	children map[uint32]uint32
	natives  map[uint32]*native

	cbMu      sync.RWMutex
	callbacks []ChangeCallback

	queued atomic.Bool
	qmu    sync.Mutex
	queue  []queuedSet
}

// New creates a registry in env and registers the engine's own commands.
func New(ctx context.Context, env *abi.Env, cfg *Config) (*Cvar, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	c := &Cvar{
		env:      env,
		id:       uuid.New(),
		out:      cfg.Output,
		children: make(map[uint32]uint32),
		natives:  make(map[uint32]*native),
	}
	if c.out == nil {
		c.out = io.Discard
	}
	c.log = Logger().With(zap.Stringer("cvar", c.id))
	c.queued.Store(cfg.QueuedMaterialSystem)

	var err error
	if c.table, err = foreign.CvarTable.Install(env, c.slots()); err != nil {
		return nil, err
	}
	if c.obj, err = abi.New(env, foreign.CvarLayout, c.table); err != nil {
		_ = foreign.CvarTable.Uninstall(env, c.table)
		return nil, err
	}
	if c.cmdTable, err = foreign.CommandTable.Install(env, c.nativeSlots()); err != nil {
		c.obj.Free()
		_ = foreign.CvarTable.Uninstall(env, c.table)
		return nil, err
	}
	c.owner = c.allocateID()

	if err := c.registerNatives(ctx); err != nil {
		c.Close(ctx)
		return nil, err
	}
	c.log.Debug("registry created", zap.Int("natives", len(c.natives)))
	return c, nil
}

// Close unregisters the engine's commands and releases the registry.
// Plugin records still linked are dropped from the list, not freed.
func (c *Cvar) Close(ctx context.Context) {
	if c.obj.IsNull() {
		return
	}
	c.unregisterOwner(ctx, c.owner)
	for addr, n := range c.natives {
		n.free()
		delete(c.natives, addr)
	}
	c.head = 0
	c.children = make(map[uint32]uint32)
	_ = foreign.CommandTable.Uninstall(c.env, c.cmdTable)
	c.obj.Free()
	_ = foreign.CvarTable.Uninstall(c.env, c.table)
	c.obj = abi.Object{}
	c.log.Debug("registry closed")
}

// ID returns the registry instance id.
func (c *Cvar) ID() uuid.UUID { return c.id }

// Object returns a borrowed view of the registry object.
func (c *Cvar) Object() abi.Object { return c.obj.MustAs(foreign.CvarLayout) }

// Env returns the environment the registry lives in.
func (c *Cvar) Env() *abi.Env { return c.env }

// Factory resolves foreign.CvarInterfaceVersion to the registry.
func (c *Cvar) Factory() foreign.Factory {
	return func(name string) (abi.Object, bool) {
		if name != foreign.CvarInterfaceVersion || c.obj.IsNull() {
			return abi.Object{}, false
		}
		return c.Object(), true
	}
}

// SetQueuedMode switches between a material system on its own thread and
// one sharing the main thread.
func (c *Cvar) SetQueuedMode(on bool) { c.queued.Store(on) }

// InstallGlobalChangeCallback adds fn to the callbacks run on every
// variable text change.
func (c *Cvar) InstallGlobalChangeCallback(fn ChangeCallback) {
	c.cbMu.Lock()
	c.callbacks = append(c.callbacks, fn)
	c.cbMu.Unlock()
}

func (c *Cvar) allocateID() int32 {
	id := c.nextID
	c.nextID++
	return id
}

func (c *Cvar) materialSetAllowed(ctx context.Context) bool {
	return !c.queued.Load() || foreign.ThreadFrom(ctx) == foreign.ThreadMaterial
}

func (c *Cvar) callGlobalChangeCallbacks(ctx context.Context, v abi.Object, oldText string, oldFloat float32) {
	c.cbMu.RLock()
	cbs := append([]ChangeCallback(nil), c.callbacks...)
	c.cbMu.RUnlock()
	for _, cb := range cbs {
		cb(ctx, v, oldText, oldFloat)
	}
}

func (c *Cvar) slots() map[string]abi.Func {
	return map[string]abi.Func{
		"Connect":    func(_ context.Context, f *abi.Frame) { f.ReturnBool(true) },
		"Disconnect": func(context.Context, *abi.Frame) {},
		"QueryInterface": func(_ context.Context, f *abi.Frame) {
			name, err := memory.CString(f.Env.Mem, f.ArgU32(0))
			if err != nil {
				f.Fail(err)
				return
			}
			if name == foreign.CvarInterfaceVersion {
				f.ReturnU32(c.obj.Addr())
				return
			}
			f.ReturnU32(0)
		},
		"Init":     func(_ context.Context, f *abi.Frame) { f.ReturnI32(1) },
		"Shutdown": func(context.Context, *abi.Frame) {},

		"AllocateDLLIdentifier": func(_ context.Context, f *abi.Frame) {
			f.ReturnI32(c.allocateID())
		},
		"RegisterConCommand": func(ctx context.Context, f *abi.Frame) {
			if err := c.register(ctx, f.ArgU32(0)); err != nil {
				f.Fail(err)
			}
		},
		"UnregisterConCommand": func(ctx context.Context, f *abi.Frame) {
			c.unregister(ctx, f.ArgU32(0))
		},
		"UnregisterConCommands": func(ctx context.Context, f *abi.Frame) {
			c.unregisterOwner(ctx, f.ArgI32(0))
		},
		"FindCommandBase": func(ctx context.Context, f *abi.Frame) {
			c.findSlot(ctx, f, func(bool) bool { return true })
		},
		"FindVar": func(ctx context.Context, f *abi.Frame) {
			c.findSlot(ctx, f, func(cmd bool) bool { return !cmd })
		},
		"FindCommand": func(ctx context.Context, f *abi.Frame) {
			c.findSlot(ctx, f, func(cmd bool) bool { return cmd })
		},
		"CallGlobalChangeCallbacks": func(ctx context.Context, f *abi.Frame) {
			old, err := memory.CString(f.Env.Mem, f.ArgU32(1))
			if err != nil {
				f.Fail(err)
				return
			}
			v := abi.Borrow(c.env, foreign.VariableLayout, f.ArgU32(0))
			c.callGlobalChangeCallbacks(ctx, v, old, f.ArgF32(2))
		},
		"IsMaterialThreadSetAllowed": func(ctx context.Context, f *abi.Frame) {
			f.ReturnBool(c.materialSetAllowed(ctx))
		},
		"QueueMaterialThreadSetValueString": func(_ context.Context, f *abi.Frame) {
			text, err := memory.CString(f.Env.Mem, f.ArgU32(1))
			if err != nil {
				f.Fail(err)
				return
			}
			c.enqueue(queuedSet{addr: f.ArgU32(0), kind: queuedText, text: text})
		},
		"QueueMaterialThreadSetValueFloat": func(_ context.Context, f *abi.Frame) {
			c.enqueue(queuedSet{addr: f.ArgU32(0), kind: queuedFloat, f: f.ArgF32(1)})
		},
		"QueueMaterialThreadSetValueInt": func(_ context.Context, f *abi.Frame) {
			c.enqueue(queuedSet{addr: f.ArgU32(0), kind: queuedInt, i: f.ArgI32(1)})
		},
		"HasQueuedMaterialThreadConVarSets": func(_ context.Context, f *abi.Frame) {
			f.ReturnBool(c.QueuedSets() > 0)
		},
		"ProcessQueuedMaterialThreadConVarSets": func(ctx context.Context, f *abi.Frame) {
			if err := c.ProcessQueuedMaterialThreadSets(ctx); err != nil {
				f.Fail(err)
			}
		},
	}
}

func (c *Cvar) findSlot(ctx context.Context, f *abi.Frame, want func(cmd bool) bool) {
	name, err := memory.CString(f.Env.Mem, f.ArgU32(0))
	if err != nil {
		f.Fail(err)
		return
	}
	addr := c.find(ctx, name)
	if addr == 0 || !want(c.isCommand(ctx, addr)) {
		f.ReturnU32(0)
		return
	}
	f.ReturnU32(addr)
}

// misuse builds a register-phase error for a record.
func misuse(name, detail string) error {
	return errors.Misuse(errors.PhaseRegister, []string{"ICvar", name}, detail)
}
