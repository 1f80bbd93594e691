package console

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/srcbridge/abi"
	"github.com/wippyai/srcbridge/errors"
	"github.com/wippyai/srcbridge/foreign"
)

// process is the state of a loaded console: the registry connection, the
// installed record tables and every record with foreign storage.
type process struct {
	env      *abi.Env
	registry Registry
	objects  map[uint32]Record
	mu       sync.RWMutex
	owner    OwnerID
	command  uint32
	variable uint32
}

var (
	current atomic.Pointer[process]

	declMu   sync.Mutex
	declared []Record
)

func (st *process) lookup(addr uint32) Record {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.objects[addr]
}

func (st *process) track(rec Record) {
	st.mu.Lock()
	st.objects[rec.Object().Addr()] = rec
	st.mu.Unlock()
}

func (st *process) untrack(rec Record) {
	st.mu.Lock()
	delete(st.objects, rec.Object().Addr())
	st.mu.Unlock()
}

// Declare adds records to the set Load registers. Declaring a record twice
// keeps the first declaration.
func Declare(records ...Record) {
	declMu.Lock()
	defer declMu.Unlock()
	for _, rec := range records {
		if isDeclared(rec) {
			assertf(false, "Declare", rec.Name(), "record declared twice")
			continue
		}
		declared = append(declared, rec)
	}
}

func isDeclared(rec Record) bool {
	for _, d := range declared {
		if d == rec {
			return true
		}
	}
	return false
}

// Declared returns the declared records in declaration order.
func Declared() []Record {
	declMu.Lock()
	defer declMu.Unlock()
	return append([]Record(nil), declared...)
}

// Load resolves the registry through factory and registers every declared
// record. A missing registry fails the load with a load/unavailable error.
func Load(ctx context.Context, env *abi.Env, factory foreign.Factory) error {
	proxy, err := Connect(factory)
	if err != nil {
		Logger().Warn("console registry unavailable", zap.Error(err))
		return err
	}
	return Attach(ctx, env, proxy)
}

// Attach registers every declared record with reg.
func Attach(ctx context.Context, env *abi.Env, reg Registry) error {
	assertf(onMainThread(ctx), "Load", "console", "load off the main thread")
	if current.Load() != nil {
		return errors.Misuse(errors.PhaseLoad, []string{"console", "Load"}, "console is already loaded")
	}

	st := &process{env: env, registry: reg, objects: make(map[uint32]Record)}
	var err error
	if st.command, err = foreign.CommandTable.Install(env, commandSlots()); err != nil {
		return loadError(err, "install command table")
	}
	if st.variable, err = foreign.VariableTable.Install(env, variableSlots()); err != nil {
		_ = foreign.CommandTable.Uninstall(env, st.command)
		return loadError(err, "install variable table")
	}
	if st.owner, err = reg.AllocateOwnerID(ctx); err != nil {
		st.uninstall()
		return loadError(err, "allocate owner id")
	}
	if !current.CompareAndSwap(nil, st) {
		st.uninstall()
		return errors.Misuse(errors.PhaseLoad, []string{"console", "Load"}, "console is already loaded")
	}

	records := Declared()
	for _, rec := range records {
		if err := st.register(ctx, rec); err != nil {
			Logger().Warn("registration failed, unloading",
				zap.String("name", rec.Name()),
				zap.Error(err))
			_ = st.shutdown(ctx)
			return loadError(err, "register "+rec.Name())
		}
	}

	Logger().Info("console loaded",
		zap.Int32("owner", int32(st.owner)),
		zap.Int("records", len(records)))
	return nil
}

// Unload unregisters everything owned by this console, releases the
// foreign storage and forgets the declarations.
func Unload(ctx context.Context) error {
	assertf(onMainThread(ctx), "Unload", "console", "unload off the main thread")
	var err error
	if st := current.Load(); st != nil {
		err = st.shutdown(ctx)
	}
	declMu.Lock()
	declared = nil
	declMu.Unlock()
	return err
}

func (st *process) shutdown(ctx context.Context) error {
	err := st.registry.UnregisterAll(ctx, st.owner)
	if err != nil {
		Logger().Warn("unregister all failed", zap.Int32("owner", int32(st.owner)), zap.Error(err))
	}

	st.mu.Lock()
	records := make([]Record, 0, len(st.objects))
	for _, rec := range st.objects {
		records = append(records, rec)
	}
	st.objects = make(map[uint32]Record)
	st.mu.Unlock()

	for _, rec := range records {
		rec.teardown()
	}
	st.uninstall()
	current.CompareAndSwap(st, nil)

	Logger().Info("console unloaded", zap.Int32("owner", int32(st.owner)), zap.Int("records", len(records)))
	if err != nil {
		return loadError(err, "unregister owner records")
	}
	return nil
}

func (st *process) uninstall() {
	if err := foreign.CommandTable.Uninstall(st.env, st.command); err != nil {
		Logger().Warn("uninstall command table", zap.Error(err))
	}
	if err := foreign.VariableTable.Uninstall(st.env, st.variable); err != nil {
		Logger().Warn("uninstall variable table", zap.Error(err))
	}
}

// Loaded reports whether the console is loaded.
func Loaded() bool { return current.Load() != nil }

// Owner returns the owner id records are registered under, 0 when not
// loaded.
func Owner() OwnerID {
	if st := current.Load(); st != nil {
		return st.owner
	}
	return 0
}

// Register materializes and registers rec on a loaded console.
func Register(ctx context.Context, rec Record) error {
	st := current.Load()
	if st == nil {
		return errors.Misuse(errors.PhaseRegister, []string{"Register", rec.Name()}, "console is not loaded")
	}
	return st.register(ctx, rec)
}

func (st *process) register(ctx context.Context, rec Record) error {
	assertf(onMainThread(ctx), "Register", rec.Name(), "registration off the main thread")
	assertf(!rec.IsRegistered(), "Register", rec.Name(), "record is already registered")

	if rec.Object().IsNull() {
		if err := rec.materialize(st); err != nil {
			return err
		}
		st.track(rec)
	}
	if err := st.registry.Register(ctx, rec.Object()); err != nil {
		return err
	}
	Logger().Debug("registered",
		zap.String("name", rec.Name()),
		zap.Bool("command", rec.IsCommand()),
		zap.Bool("linked", rec.IsRegistered()))
	return nil
}

// Unregister removes rec from the registry and releases its storage.
// Registering it again starts from its declaration.
func Unregister(ctx context.Context, rec Record) error {
	assertf(onMainThread(ctx), "Unregister", rec.Name(), "unregistration off the main thread")
	assertf(rec.IsRegistered(), "Unregister", rec.Name(), "record is not registered")

	st := current.Load()
	if st == nil || rec.Object().IsNull() {
		return nil
	}
	if err := st.registry.Unregister(ctx, rec.Object()); err != nil {
		return err
	}
	st.untrack(rec)
	rec.teardown()
	Logger().Debug("unregistered", zap.String("name", rec.Name()))
	return nil
}

// Find resolves name through the registry. It returns the Go record when
// this console owns the match.
func Find(ctx context.Context, name string) (Record, bool) {
	st := current.Load()
	if st == nil {
		return nil, false
	}
	obj, ok, err := st.registry.Find(ctx, name)
	if err != nil {
		Logger().Warn("find failed", zap.String("name", name), zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	rec := st.lookup(obj.Addr())
	return rec, rec != nil
}

// FindVariable is Find restricted to variables.
func FindVariable(ctx context.Context, name string) (*Variable, bool) {
	rec, ok := Find(ctx, name)
	if !ok {
		return nil, false
	}
	v, ok := rec.(*Variable)
	return v, ok
}

func loadError(err error, detail string) error {
	kind := errors.KindUnavailable
	var e *errors.Error
	if errors.As(err, &e) {
		kind = e.Kind
	}
	return errors.New(errors.PhaseLoad, kind).Cause(err).Detail("%s", detail).Build()
}
