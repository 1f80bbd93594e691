package console

import (
	"context"
	"math"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/srcbridge/abi"
	"github.com/wippyai/srcbridge/foreign"
	"github.com/wippyai/srcbridge/memory"
)

// competitiveTolerance is how far a competitive variable without bounds may
// drift from its default before it is forced back.
const competitiveTolerance = 0.0001

// Value is one consistent snapshot of a variable.
type Value struct {
	Text  string
	Float float32
	Int   int32
}

// ChangeHook observes a variable whose text changed. It runs after the
// variable's mutex is released, so it may read or set variables.
type ChangeHook func(ctx context.Context, v *Variable, old, cur Value)

type bound struct {
	set bool
	val float32
}

type bounds struct {
	min, max         bound
	compMin, compMax bound
	competitive      bool
}

// Variable is a named value kept as text, float and integer at once. Its
// foreign form is a ConVar. A variable registered under a name that is
// already taken becomes a child: it reads through to the first variable
// and its own sets are ignored.
type Variable struct {
	Base

	mu     sync.Mutex
	def    string
	bounds bounds
	hook   ChangeHook
	defPtr uint32
}

// VariableOption configures a Variable.
type VariableOption func(*Variable)

// WithHelp sets the help text.
func WithHelp(help string) VariableOption {
	return func(v *Variable) { v.help = help }
}

// WithMin sets a lower bound.
func WithMin(lo float32) VariableOption {
	return func(v *Variable) { v.bounds.min = bound{true, lo} }
}

// WithMax sets an upper bound.
func WithMax(hi float32) VariableOption {
	return func(v *Variable) { v.bounds.max = bound{true, hi} }
}

// WithBounds sets both bounds.
func WithBounds(lo, hi float32) VariableOption {
	return func(v *Variable) {
		v.bounds.min = bound{true, lo}
		v.bounds.max = bound{true, hi}
	}
}

// WithCompetitiveMin sets the lower bound used in competitive mode.
func WithCompetitiveMin(lo float32) VariableOption {
	return func(v *Variable) { v.bounds.compMin = bound{true, lo} }
}

// WithCompetitiveMax sets the upper bound used in competitive mode.
func WithCompetitiveMax(hi float32) VariableOption {
	return func(v *Variable) { v.bounds.compMax = bound{true, hi} }
}

// WithCompetitive starts the variable in competitive mode.
func WithCompetitive() VariableOption {
	return func(v *Variable) { v.bounds.competitive = true }
}

// WithChangeHook sets the change hook.
func WithChangeHook(h ChangeHook) VariableOption {
	return func(v *Variable) { v.hook = h }
}

// NewVariable declares a variable with a default value. The variable has
// no storage until it is loaded; until then reads return the default.
func NewVariable(name, def string, flags foreign.Flags, opts ...VariableOption) *Variable {
	v := &Variable{
		Base: Base{name: name, flags: flags},
		def:  cutNUL(def),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// IsCommand reports false.
func (v *Variable) IsCommand() bool { return false }

// Default returns the default text.
func (v *Variable) Default() string { return v.def }

func (v *Variable) materialize(st *process) error {
	env := st.env
	if err := v.materializeBase(env, foreign.VariableLayout, st.variable); err != nil {
		return err
	}
	o := v.obj

	defPtr, err := memory.NewCString(env.Mem, env.Alloc, v.def)
	if err != nil {
		v.teardownBase()
		return err
	}
	v.defPtr = defPtr

	f := parseFloat(v.def)
	o.SetPtr("parent", o.Addr())
	o.SetPtr("default", defPtr)
	o.SetF32("float", f)
	o.SetI32("int", truncInt(f))
	v.storeBounds()
	if err := v.writeText(v.def); err != nil {
		v.teardown()
		return err
	}
	return nil
}

func (v *Variable) teardown() {
	if v.obj.IsNull() {
		return
	}
	env := v.obj.Env()
	if ptr := v.obj.Ptr("string"); ptr != 0 {
		env.Alloc.Free(ptr, uint32(v.obj.I32("stringLength")), 1)
	}
	memory.FreeCString(env.Alloc, v.defPtr, v.def)
	v.defPtr = 0
	v.teardownBase()
}

func (v *Variable) storeBounds() {
	o, b := v.obj, v.bounds
	o.SetBool("hasMin", b.min.set)
	o.SetF32("min", b.min.val)
	o.SetBool("hasMax", b.max.set)
	o.SetF32("max", b.max.val)
	o.SetBool("hasCompMin", b.compMin.set)
	o.SetF32("compMin", b.compMin.val)
	o.SetBool("hasCompMax", b.compMax.set)
	o.SetF32("compMax", b.compMax.val)
	o.SetBool("competitive", b.competitive)
}

func (v *Variable) loadBounds() bounds {
	o := v.obj
	if o.IsNull() {
		return v.bounds
	}
	return bounds{
		min:         bound{o.Bool("hasMin"), o.F32("min")},
		max:         bound{o.Bool("hasMax"), o.F32("max")},
		compMin:     bound{o.Bool("hasCompMin"), o.F32("compMin")},
		compMax:     bound{o.Bool("hasCompMax"), o.F32("compMax")},
		competitive: o.Bool("competitive"),
	}
}

func (v *Variable) updateBounds(fn func(*bounds)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	b := v.loadBounds()
	fn(&b)
	v.bounds = b
	if !v.obj.IsNull() {
		v.storeBounds()
	}
}

// IsRoot reports whether the variable holds its own value rather than
// reading through to another variable of the same name.
func (v *Variable) IsRoot() bool {
	if v.obj.IsNull() {
		return true
	}
	p := v.obj.Ptr("parent")
	return p == 0 || p == v.obj.Addr()
}

// root returns the object holding the live value and the mutex guarding
// it. The mutex is nil when the root belongs to another module.
func (v *Variable) root() (abi.Object, *sync.Mutex) {
	p := v.obj.Ptr("parent")
	if p == 0 || p == v.obj.Addr() {
		return v.obj, &v.mu
	}
	if st := current.Load(); st != nil {
		if pv, ok := st.lookup(p).(*Variable); ok && !pv.obj.IsNull() {
			return pv.obj, &pv.mu
		}
	}
	return abi.Borrow(v.obj.Env(), foreign.VariableLayout, p), nil
}

// Value returns text, float and integer read together.
func (v *Variable) Value() Value {
	if v.obj.IsNull() {
		f := parseFloat(v.def)
		return Value{Text: v.def, Float: f, Int: truncInt(f)}
	}
	o, mu := v.root()
	if mu != nil {
		mu.Lock()
		defer mu.Unlock()
	}
	return Value{Text: readText(o), Float: o.F32("float"), Int: o.I32("int")}
}

// Text returns the text value.
func (v *Variable) Text() string { return v.Value().Text }

// Float returns the float value.
func (v *Variable) Float() float32 { return v.Value().Float }

// Int returns the integer value.
func (v *Variable) Int() int32 { return v.Value().Int }

// Bool reports whether the integer value is non-zero.
func (v *Variable) Bool() bool { return v.Int() != 0 }

// Min returns the lower bound.
func (v *Variable) Min() (float32, bool) {
	b := v.loadBounds()
	return b.min.val, b.min.set
}

// Max returns the upper bound.
func (v *Variable) Max() (float32, bool) {
	b := v.loadBounds()
	return b.max.val, b.max.set
}

// SetBounds replaces both bounds. The current value is not re-clamped.
func (v *Variable) SetBounds(lo, hi float32) {
	v.updateBounds(func(b *bounds) {
		b.min = bound{true, lo}
		b.max = bound{true, hi}
	})
}

// ClearBounds removes both bounds.
func (v *Variable) ClearBounds() {
	v.updateBounds(func(b *bounds) {
		b.min = bound{}
		b.max = bound{}
	})
}

// SetCompetitiveBounds replaces the competitive bounds.
func (v *Variable) SetCompetitiveBounds(lo, hi float32) {
	v.updateBounds(func(b *bounds) {
		b.compMin = bound{true, lo}
		b.compMax = bound{true, hi}
	})
}

// SetCompetitive turns competitive restrictions on or off.
func (v *Variable) SetCompetitive(on bool) {
	v.updateBounds(func(b *bounds) { b.competitive = on })
}

// Competitive reports whether competitive restrictions apply.
func (v *Variable) Competitive() bool { return v.loadBounds().competitive }

// Clamp returns f limited by the variable's bounds.
func (v *Variable) Clamp(f float32) float32 {
	c, _ := v.clamp(f)
	return c
}

func (v *Variable) clamp(f float32) (float32, bool) {
	b := v.loadBounds()
	clamped := false
	if b.min.set && f < b.min.val {
		f, clamped = b.min.val, true
	} else if b.max.set && f > b.max.val {
		f, clamped = b.max.val, true
	}
	if !b.competitive {
		return f, clamped
	}
	switch {
	case b.compMin.set && f < b.compMin.val:
		return b.compMin.val, true
	case b.compMax.set && f > b.compMax.val:
		return b.compMax.val, true
	case !b.compMin.set && !b.compMax.set:
		def := parseFloat(v.def)
		if math.Abs(float64(f-def)) > competitiveTolerance {
			return def, true
		}
	}
	return f, clamped
}

type setKind uint8

const (
	setText setKind = iota
	setFloat
	setInt
)

type pending struct {
	text string
	f    float32
	i    int32
	kind setKind
}

func (p pending) deferred() Deferred {
	switch p.kind {
	case setFloat:
		return Deferred{Kind: DeferredFloat, Float: p.f}
	case setInt:
		return Deferred{Kind: DeferredInt, Int: p.i}
	default:
		return Deferred{Kind: DeferredText, Text: p.text}
	}
}

// SetText parses s as a number and stores it. The text is kept as given
// unless clamping changed the value, in which case the clamped value is
// rendered. Text without a leading number stores 0.
func (v *Variable) SetText(ctx context.Context, s string) {
	v.set(ctx, pending{kind: setText, text: cutNUL(s)})
}

// SetFloat stores f. A value bitwise equal to the current float is
// ignored.
func (v *Variable) SetFloat(ctx context.Context, f float32) {
	if !v.obj.IsNull() {
		v.mu.Lock()
		same := math.Float32bits(v.obj.F32("float")) == math.Float32bits(f)
		v.mu.Unlock()
		if same {
			return
		}
	}
	v.set(ctx, pending{kind: setFloat, f: f})
}

// SetFloatForced stores f even when it equals the current float.
func (v *Variable) SetFloatForced(ctx context.Context, f float32) {
	v.set(ctx, pending{kind: setFloat, f: f})
}

// SetInt stores i. When clamping applies the integer is derived from the
// clamped float.
func (v *Variable) SetInt(ctx context.Context, i int32) {
	v.set(ctx, pending{kind: setInt, i: i})
}

// SetBool stores 1 or 0.
func (v *Variable) SetBool(ctx context.Context, b bool) {
	var i int32
	if b {
		i = 1
	}
	v.SetInt(ctx, i)
}

// Revert stores the default text.
func (v *Variable) Revert(ctx context.Context) {
	v.SetText(ctx, v.def)
}

func (v *Variable) set(ctx context.Context, p pending) {
	if v.obj.IsNull() {
		Logger().Debug("set on unloaded variable ignored", zap.String("name", v.name))
		return
	}

	st := current.Load()
	if st != nil && v.Flags().Has(foreign.MaterialThreadMask) && !st.registry.IsMaterialThreadSetAllowed(ctx) {
		if err := st.registry.QueueMaterialThreadSet(ctx, v.Object(), p.deferred()); err != nil {
			Logger().Warn("failed to defer variable set", zap.String("name", v.name), zap.Error(err))
			return
		}
		Logger().Debug("variable set deferred to material thread",
			zap.String("name", v.name),
			zap.Stringer("thread", foreign.ThreadFrom(ctx)))
		return
	}

	if !v.IsRoot() {
		return
	}

	var (
		nf   float32
		ni   int32
		text string
	)
	switch p.kind {
	case setText:
		c, clamped := v.clamp(parseFloat(p.text))
		nf, ni, text = c, truncInt(c), p.text
		if clamped {
			text = formatFloat(c)
		}
	case setFloat:
		c, _ := v.clamp(p.f)
		nf, ni, text = c, truncInt(c), formatFloat(c)
	case setInt:
		c, clamped := v.clamp(float32(p.i))
		nf, ni = c, p.i
		if clamped {
			ni = truncInt(c)
		}
		text = strconv.FormatInt(int64(ni), 10)
	}
	asText := !v.Flags().Has(foreign.FlagNeverAsString)

	o := v.obj
	v.mu.Lock()
	old := Value{Text: readText(o), Float: o.F32("float"), Int: o.I32("int")}
	o.SetF32("float", nf)
	o.SetI32("int", ni)
	cur := Value{Text: old.Text, Float: nf, Int: ni}
	if asText {
		if err := v.writeText(text); err != nil {
			Logger().Warn("failed to store variable text", zap.String("name", v.name), zap.Error(err))
		} else {
			cur.Text = text
		}
	}
	v.mu.Unlock()

	if old.Text == cur.Text {
		return
	}
	if v.hook != nil {
		v.hook(ctx, v, old, cur)
	}
	if st != nil {
		if err := st.registry.CallGlobalChangeCallbacks(ctx, v.Object(), old.Text, old.Float); err != nil {
			Logger().Warn("global change callbacks failed", zap.String("name", v.name), zap.Error(err))
		}
	}
}

// writeText stores s in the text buffer, growing it when s does not fit.
func (v *Variable) writeText(s string) error {
	o := v.obj
	env := o.Env()
	need := uint32(len(s)) + 1
	ptr := o.Ptr("string")
	capacity := uint32(o.I32("stringLength"))
	if ptr == 0 || need > capacity {
		np, err := env.Alloc.Alloc(need, 1)
		if err != nil {
			return err
		}
		if ptr != 0 {
			env.Alloc.Free(ptr, capacity, 1)
		}
		ptr, capacity = np, need
		o.SetPtr("string", ptr)
		o.SetI32("stringLength", int32(capacity))
	}
	return memory.WriteCString(env.Mem, ptr, s)
}

func readText(o abi.Object) string {
	s, err := memory.CString(o.Env().Mem, o.Ptr("string"))
	if err != nil {
		Logger().Warn("unreadable variable text", zap.Uint32("addr", o.Addr()), zap.Error(err))
		return ""
	}
	return s
}
