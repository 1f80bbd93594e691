package console_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/srcbridge/abi"
	"github.com/wippyai/srcbridge/console"
	"github.com/wippyai/srcbridge/engine"
	"github.com/wippyai/srcbridge/errors"
	"github.com/wippyai/srcbridge/foreign"
	"github.com/wippyai/srcbridge/memory"
)

type harness struct {
	ctx  context.Context
	env  *abi.Env
	cvar *engine.Cvar
	out  *bytes.Buffer
}

func newHarness(t *testing.T, cfg *engine.Config) *harness {
	t.Helper()
	ctx := context.Background()
	space, err := memory.NewSpace(ctx, nil)
	require.NoError(t, err)
	env := abi.NewEnv(space, space)

	if cfg == nil {
		cfg = &engine.Config{}
	}
	out := &bytes.Buffer{}
	cfg.Output = out
	cv, err := engine.New(ctx, env, cfg)
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, console.Unload(ctx))
		cv.Close(ctx)
		space.Close(ctx)
	})
	return &harness{ctx: ctx, env: env, cvar: cv, out: out}
}

// load declares records and loads the console against the harness engine.
func (h *harness) load(t *testing.T, records ...console.Record) {
	t.Helper()
	console.Declare(records...)
	require.NoError(t, console.Load(h.ctx, h.env, h.cvar.Factory()))
}

type change struct {
	old, cur console.Value
}

func recordChanges(changes *[]change) console.VariableOption {
	return console.WithChangeHook(func(_ context.Context, _ *console.Variable, old, cur console.Value) {
		*changes = append(*changes, change{old, cur})
	})
}

func TestVolumeExample(t *testing.T) {
	h := newHarness(t, nil)

	var changes []change
	volume := console.NewVariable("volume", "0.5", foreign.FlagArchive,
		console.WithBounds(0, 1),
		console.WithHelp("master volume"),
		recordChanges(&changes))

	var global []string
	h.cvar.InstallGlobalChangeCallback(func(_ context.Context, v abi.Object, oldText string, oldFloat float32) {
		global = append(global, oldText)
		assert.Equal(t, volume.Object().Addr(), v.Addr())
		assert.Equal(t, float32(0.5), oldFloat)
	})
	h.load(t, volume)

	volume.SetText(h.ctx, "2.5")

	assert.Equal(t, "1.0", volume.Text())
	assert.Equal(t, float32(1), volume.Float())
	assert.Equal(t, int32(1), volume.Int())

	require.Len(t, changes, 1)
	assert.Equal(t, "0.5", changes[0].old.Text)
	assert.Equal(t, float32(0.5), changes[0].old.Float)
	assert.Equal(t, console.Value{Text: "1.0", Float: 1, Int: 1}, changes[0].cur)
	assert.Equal(t, []string{"0.5"}, global)
}

func TestVariable_Defaults(t *testing.T) {
	h := newHarness(t, nil)
	v := console.NewVariable("sv_gravity", "800", foreign.FlagReplicated)

	// Unloaded variables read their default and ignore sets.
	assert.Equal(t, "800", v.Text())
	assert.Equal(t, float32(800), v.Float())
	v.SetFloat(h.ctx, 100)
	assert.Equal(t, float32(800), v.Float())
	assert.True(t, v.Object().IsNull())

	h.load(t, v)
	assert.Equal(t, console.Value{Text: "800", Float: 800, Int: 800}, v.Value())
	assert.Equal(t, "800", v.Default())
	assert.True(t, v.IsRoot())
	assert.True(t, v.IsRegistered())
	assert.True(t, v.Bool())
}

func TestVariable_Idempotent(t *testing.T) {
	h := newHarness(t, nil)
	var changes []change
	v := console.NewVariable("rate", "0", 0, recordChanges(&changes))
	h.load(t, v)

	v.SetFloat(h.ctx, 0.25)
	v.SetFloat(h.ctx, 0.25)
	assert.Len(t, changes, 1)

	// Forced sets skip the equality check but the text is unchanged, so
	// no hook runs.
	v.SetFloatForced(h.ctx, 0.25)
	assert.Len(t, changes, 1)

	v.SetText(h.ctx, "0.25")
	assert.Len(t, changes, 1)
	v.SetText(h.ctx, "0.250")
	assert.Len(t, changes, 2)
	assert.Equal(t, "0.250", v.Text())
}

func TestVariable_TextRoundTrip(t *testing.T) {
	h := newHarness(t, nil)
	v := console.NewVariable("fps_max", "300", 0)
	h.load(t, v)

	for _, f := range []float32{0.1, 1e-7, 123456.79, -3.5, 42, 1e10} {
		v.SetFloat(h.ctx, f)
		got := v.Value()
		assert.Equal(t, f, got.Float)

		v.SetText(h.ctx, got.Text)
		assert.Equal(t, f, v.Float(), "text %q", got.Text)
	}

	v.SetFloat(h.ctx, 3)
	assert.Equal(t, "3.0", v.Text())
	assert.Equal(t, int32(3), v.Int())
}

func TestVariable_SetText(t *testing.T) {
	h := newHarness(t, nil)
	v := console.NewVariable("name", "1", 0)
	h.load(t, v)

	v.SetText(h.ctx, "0.50")
	assert.Equal(t, "0.50", v.Text())
	assert.Equal(t, float32(0.5), v.Float())
	assert.Equal(t, int32(0), v.Int())

	v.SetText(h.ctx, "player")
	assert.Equal(t, "player", v.Text())
	assert.Equal(t, float32(0), v.Float())

	v.SetText(h.ctx, "-7.9")
	assert.Equal(t, int32(-7), v.Int())

	// A long value grows the foreign text buffer.
	long := "12345678901234567890123456789012345678901234567890"
	v.SetText(h.ctx, long)
	assert.Equal(t, long, v.Text())

	v.SetText(h.ctx, "")
	assert.Equal(t, "", v.Text())
	assert.Equal(t, float32(0), v.Float())
}

func TestVariable_NullStringSetsZero(t *testing.T) {
	h := newHarness(t, nil)
	v := console.NewVariable("cl_interp", "0.1", 0)
	h.load(t, v)

	_, err := v.Object().MustAs(foreign.VariableLayout).Call(h.ctx, "SetValueString", abi.U32Arg(0))
	require.NoError(t, err)
	assert.Equal(t, float32(0), v.Float())
	assert.Equal(t, "", v.Text())
}

func TestVariable_Clamp(t *testing.T) {
	h := newHarness(t, nil)
	v := console.NewVariable("fov", "90", 0, console.WithMin(75), console.WithMax(110))
	h.load(t, v)

	tests := []struct {
		name string
		set  func()
		want console.Value
	}{
		{"float below", func() { v.SetFloat(h.ctx, 10) }, console.Value{Text: "75.0", Float: 75, Int: 75}},
		{"float above", func() { v.SetFloat(h.ctx, 200) }, console.Value{Text: "110.0", Float: 110, Int: 110}},
		{"text inside", func() { v.SetText(h.ctx, "90.5") }, console.Value{Text: "90.5", Float: 90.5, Int: 90}},
		{"text above", func() { v.SetText(h.ctx, "999") }, console.Value{Text: "110.0", Float: 110, Int: 110}},
		{"int inside", func() { v.SetInt(h.ctx, 100) }, console.Value{Text: "100", Float: 100, Int: 100}},
		{"int below", func() { v.SetInt(h.ctx, -5) }, console.Value{Text: "75", Float: 75, Int: 75}},
		{"int above", func() { v.SetInt(h.ctx, 1000) }, console.Value{Text: "110", Float: 110, Int: 110}},
		{"revert", func() { v.Revert(h.ctx) }, console.Value{Text: "90", Float: 90, Int: 90}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.set()
			assert.Equal(t, tt.want, v.Value())
		})
	}

	lo, ok := v.Min()
	assert.True(t, ok)
	assert.Equal(t, float32(75), lo)
	assert.Equal(t, float32(110), v.Clamp(500))

	v.ClearBounds()
	_, ok = v.Max()
	assert.False(t, ok)
	v.SetFloat(h.ctx, 500)
	assert.Equal(t, float32(500), v.Float())

	v.SetBounds(0, 1)
	// Bounds apply to later sets only.
	assert.Equal(t, float32(500), v.Float())
	v.SetFloatForced(h.ctx, 500)
	assert.Equal(t, float32(1), v.Float())
}

func TestVariable_Competitive(t *testing.T) {
	h := newHarness(t, nil)
	free := console.NewVariable("cl_bob", "1", 0, console.WithCompetitive())
	bounded := console.NewVariable("viewmodel_fov", "60", 0,
		console.WithBounds(0, 200),
		console.WithCompetitiveMin(54),
		console.WithCompetitiveMax(68),
		console.WithCompetitive())
	h.load(t, free, bounded)

	// Without competitive bounds any drift from the default is undone.
	free.SetFloat(h.ctx, 5)
	assert.Equal(t, float32(1), free.Float())
	assert.Equal(t, "1.0", free.Text())

	free.SetFloat(h.ctx, 1.00005)
	assert.Equal(t, float32(1.00005), free.Float())

	bounded.SetFloat(h.ctx, 120)
	assert.Equal(t, float32(68), bounded.Float())
	bounded.SetFloat(h.ctx, 10)
	assert.Equal(t, float32(54), bounded.Float())
	bounded.SetFloat(h.ctx, 65)
	assert.Equal(t, float32(65), bounded.Float())

	bounded.SetCompetitive(false)
	assert.False(t, bounded.Competitive())
	bounded.SetFloat(h.ctx, 120)
	assert.Equal(t, float32(120), bounded.Float())
}

func TestVariable_NeverAsString(t *testing.T) {
	h := newHarness(t, nil)
	var changes []change
	v := console.NewVariable("mat_dxlevel", "90", foreign.FlagNeverAsString, recordChanges(&changes))
	h.load(t, v)

	v.SetFloat(h.ctx, 95)
	assert.Equal(t, float32(95), v.Float())
	assert.Equal(t, int32(95), v.Int())
	assert.Equal(t, "90", v.Text())
	assert.Empty(t, changes)
}

func TestVariable_NonRoot(t *testing.T) {
	h := newHarness(t, nil)
	first := console.NewVariable("sensitivity", "2", 0)
	second := console.NewVariable("sensitivity", "5", 0)
	h.load(t, first, second)

	assert.True(t, first.IsRoot())
	assert.False(t, second.IsRoot())
	assert.True(t, second.IsRegistered())
	assert.Equal(t, float32(2), second.Float())

	second.SetFloat(h.ctx, 9)
	second.SetText(h.ctx, "9")
	second.SetInt(h.ctx, 9)
	assert.Equal(t, float32(2), first.Float())
	assert.Equal(t, float32(2), second.Float())

	first.SetFloat(h.ctx, 3)
	assert.Equal(t, float32(3), second.Float())
	assert.Equal(t, "3.0", second.Text())

	// The engine lists only the root.
	obj, ok := h.cvar.Find(h.ctx, "sensitivity")
	require.True(t, ok)
	assert.Equal(t, first.Object().Addr(), obj.Addr())
}

func TestVariable_MaterialThreadDeferral(t *testing.T) {
	h := newHarness(t, &engine.Config{QueuedMaterialSystem: true})
	var changes []change
	picmip := console.NewVariable("mat_picmip", "0", foreign.FlagMaterialSystemThread, recordChanges(&changes))
	reload := console.NewVariable("mat_reloadtextures", "0", foreign.FlagReloadTextures)
	plain := console.NewVariable("cl_showfps", "0", 0)
	h.load(t, picmip, reload, plain)

	picmip.SetInt(h.ctx, 2)
	reload.SetText(h.ctx, "1")
	plain.SetInt(h.ctx, 1)

	assert.Equal(t, int32(0), picmip.Int())
	assert.Equal(t, "0", reload.Text())
	assert.Equal(t, int32(1), plain.Int())
	assert.Equal(t, 2, h.cvar.QueuedSets())
	assert.Empty(t, changes)

	err := h.cvar.ProcessQueuedMaterialThreadSets(h.ctx)
	require.Error(t, err)
	assert.True(t, errors.Match(err, errors.PhaseValue, errors.KindMisuse))
	assert.Equal(t, 2, h.cvar.QueuedSets())

	mat := foreign.WithThread(h.ctx, foreign.ThreadMaterial)
	require.NoError(t, h.cvar.ProcessQueuedMaterialThreadSets(mat))
	assert.Equal(t, 0, h.cvar.QueuedSets())
	assert.Equal(t, int32(2), picmip.Int())
	assert.Equal(t, "2", picmip.Text())
	assert.Equal(t, "1", reload.Text())
	require.Len(t, changes, 1)

	// Sets from the material thread apply at once.
	picmip.SetFloat(mat, 1)
	assert.Equal(t, float32(1), picmip.Float())

	// Without a queued material system every thread may set.
	h.cvar.SetQueuedMode(false)
	picmip.SetFloat(h.ctx, 3)
	assert.Equal(t, float32(3), picmip.Float())
	assert.Equal(t, 0, h.cvar.QueuedSets())
}

func TestLifecycle(t *testing.T) {
	h := newHarness(t, nil)
	v := console.NewVariable("developer", "0", 0)
	c := console.NewCommand("status", console.VoidCallback(func(context.Context) {}), 0)
	h.load(t, v, c)

	owner := console.Owner()
	assert.True(t, console.Loaded())
	assert.NotZero(t, owner)
	assert.True(t, v.IsRegistered())
	assert.True(t, c.IsRegistered())

	for _, name := range []string{"developer", "status", "echo"} {
		_, ok := h.cvar.Find(h.ctx, name)
		assert.True(t, ok, name)
	}
	for _, r := range h.cvar.Records(h.ctx) {
		if r.Name == "status" {
			assert.Equal(t, int32(owner), r.Owner)
			assert.True(t, r.Command)
		}
	}

	require.NoError(t, console.Unload(h.ctx))
	assert.False(t, console.Loaded())
	assert.False(t, v.IsRegistered())
	assert.False(t, c.IsRegistered())
	assert.True(t, v.Object().IsNull())
	for _, name := range []string{"developer", "status"} {
		_, ok := h.cvar.Find(h.ctx, name)
		assert.False(t, ok, name)
	}
	_, ok := h.cvar.Find(h.ctx, "echo")
	assert.True(t, ok, "engine commands survive a plugin unload")
	assert.Empty(t, console.Declared())

	// A reload starts from the declarations again.
	h.load(t, v)
	assert.True(t, v.IsRegistered())
	assert.NotEqual(t, owner, console.Owner())
	assert.Equal(t, "0", v.Text())
}

func TestLoad_Twice(t *testing.T) {
	h := newHarness(t, nil)
	h.load(t)
	err := console.Load(h.ctx, h.env, h.cvar.Factory())
	require.Error(t, err)
	assert.True(t, errors.Match(err, errors.PhaseLoad, errors.KindMisuse))
}

func TestLoad_RegistryUnavailable(t *testing.T) {
	h := newHarness(t, nil)
	console.Declare(console.NewVariable("orphan", "1", 0))
	t.Cleanup(func() { _ = console.Unload(h.ctx) })

	missing := func(string) (abi.Object, bool) { return abi.Object{}, false }
	err := console.Load(h.ctx, h.env, missing)
	require.Error(t, err)
	assert.True(t, errors.Match(err, errors.PhaseLoad, errors.KindUnavailable))
	assert.Contains(t, err.Error(), foreign.CvarInterfaceVersion)
	assert.False(t, console.Loaded())

	err = console.Load(h.ctx, h.env, nil)
	assert.True(t, errors.Match(err, errors.PhaseLoad, errors.KindUnavailable))

	wrong := func(string) (abi.Object, bool) {
		return abi.Borrow(h.env, foreign.BaseLayout, 64), true
	}
	err = console.Load(h.ctx, h.env, wrong)
	assert.True(t, errors.Match(err, errors.PhaseLoad, errors.KindIncompatible))
}

func TestRegisterUnregister(t *testing.T) {
	h := newHarness(t, nil)
	h.load(t)

	v := console.NewVariable("late", "4", 0)
	require.NoError(t, console.Register(h.ctx, v))
	assert.True(t, v.IsRegistered())

	got, ok := console.FindVariable(h.ctx, "LATE")
	require.True(t, ok)
	assert.Same(t, v, got)

	rec, ok := console.Find(h.ctx, "echo")
	assert.False(t, ok, "engine records have no Go record")
	assert.Nil(t, rec)

	require.NoError(t, console.Unregister(h.ctx, v))
	assert.False(t, v.IsRegistered())
	assert.True(t, v.Object().IsNull())
	_, ok = h.cvar.Find(h.ctx, "late")
	assert.False(t, ok)

	// Registering again materializes a fresh object from the declaration.
	require.NoError(t, console.Register(h.ctx, v))
	assert.Equal(t, "4", v.Text())
}

func TestRegister_NotLoaded(t *testing.T) {
	err := console.Register(context.Background(), console.NewVariable("x", "1", 0))
	require.Error(t, err)
	assert.True(t, errors.Match(err, errors.PhaseRegister, errors.KindMisuse))
}

func TestFlags(t *testing.T) {
	h := newHarness(t, nil)
	v := console.NewVariable("sv_cheats", "0", foreign.FlagNotify|foreign.FlagReplicated)
	h.load(t, v)

	assert.True(t, v.IsFlagSet(foreign.FlagNotify))
	assert.False(t, v.IsFlagSet(foreign.FlagCheat))

	// The engine sees the same flags through the table.
	obj := v.Object().MustAs(foreign.BaseLayout)
	res, err := obj.Call(h.ctx, "IsFlagSet", abi.I32Arg(int32(foreign.FlagReplicated)))
	require.NoError(t, err)
	assert.True(t, abi.ResultBool(res))

	_, err = obj.Call(h.ctx, "AddFlags", abi.I32Arg(int32(foreign.FlagCheat)))
	require.NoError(t, err)
	assert.True(t, v.IsFlagSet(foreign.FlagCheat))
	assert.Equal(t, foreign.FlagNotify|foreign.FlagReplicated|foreign.FlagCheat, v.Flags())
}
