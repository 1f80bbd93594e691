package console

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/srcbridge/abi"
	"github.com/wippyai/srcbridge/errors"
	"github.com/wippyai/srcbridge/foreign"
	"github.com/wippyai/srcbridge/memory"
)

// Slot implementations the engine reaches through the installed tables.
// Each resolves its receiver address back to the Go record.

func receiver(f *abi.Frame) (Record, bool) {
	st := current.Load()
	if st == nil {
		f.Fail(errors.Misuse(errors.PhaseDispatch, []string{"console"}, "slot called while unloaded"))
		return nil, false
	}
	rec := st.lookup(f.This())
	if rec == nil {
		f.Fail(errors.NotFound(errors.PhaseDispatch, "record", fmt.Sprintf("0x%x", f.This())))
		return nil, false
	}
	return rec, true
}

func baseSlots() map[string]abi.Func {
	return map[string]abi.Func{
		"IsCommand": func(_ context.Context, f *abi.Frame) {
			if rec, ok := receiver(f); ok {
				f.ReturnBool(rec.IsCommand())
			}
		},
		"IsFlagSet": func(_ context.Context, f *abi.Frame) {
			if rec, ok := receiver(f); ok {
				f.ReturnBool(rec.IsFlagSet(foreign.Flags(f.ArgI32(0))))
			}
		},
		"AddFlags": func(_ context.Context, f *abi.Frame) {
			if rec, ok := receiver(f); ok {
				rec.AddFlags(foreign.Flags(f.ArgI32(0)))
			}
		},
		"GetName": func(_ context.Context, f *abi.Frame) {
			if rec, ok := receiver(f); ok {
				f.ReturnU32(rec.base().namePtr)
			}
		},
		"GetHelpText": func(_ context.Context, f *abi.Frame) {
			if rec, ok := receiver(f); ok {
				f.ReturnU32(rec.base().helpPtr)
			}
		},
		"IsRegistered": func(_ context.Context, f *abi.Frame) {
			if rec, ok := receiver(f); ok {
				f.ReturnBool(rec.IsRegistered())
			}
		},
		"GetDLLIdentifier": func(_ context.Context, f *abi.Frame) {
			if _, ok := receiver(f); ok {
				f.ReturnI32(int32(Owner()))
			}
		},
		"Init": func(context.Context, *abi.Frame) {},
	}
}

func commandSlots() map[string]abi.Func {
	slots := baseSlots()
	slots["CanAutoComplete"] = func(_ context.Context, f *abi.Frame) {
		if cmd, ok := commandReceiver(f); ok {
			f.ReturnBool(cmd.CanAutoComplete())
		}
	}
	slots["AutoCompleteSuggest"] = func(ctx context.Context, f *abi.Frame) {
		cmd, ok := commandReceiver(f)
		if !ok {
			return
		}
		partial, err := memory.CString(f.Env.Mem, f.ArgU32(0))
		if err != nil {
			f.Fail(err)
			return
		}
		list := f.ArgU32(1)
		if list == 0 {
			f.Fail(errors.InvalidInput(errors.PhaseDispatch, "null suggestion list"))
			return
		}
		out := foreign.NewSuggestions()
		cmd.AutoComplete(ctx, partial, out)
		out.Store(abi.Borrow(f.Env, foreign.SuggestionsLayout, list))
		f.ReturnI32(int32(out.Len()))
	}
	slots["Dispatch"] = func(ctx context.Context, f *abi.Frame) {
		cmd, ok := commandReceiver(f)
		if !ok {
			return
		}
		ptr := f.ArgU32(0)
		if ptr == 0 {
			f.Fail(errors.InvalidInput(errors.PhaseDispatch, "null invocation"))
			return
		}
		inv, err := foreign.LoadInvocation(abi.Borrow(f.Env, foreign.InvocationLayout, ptr))
		if err != nil {
			f.Fail(err)
			return
		}
		Logger().Debug("dispatch", zap.String("name", cmd.Name()), zap.Int("argc", inv.Argc()))
		cmd.Dispatch(ctx, inv)
	}
	return slots
}

func commandReceiver(f *abi.Frame) (*Command, bool) {
	rec, ok := receiver(f)
	if !ok {
		return nil, false
	}
	cmd, ok := rec.(*Command)
	if !ok {
		f.Fail(errors.Incompatible(foreign.VariableLayout.Name(), foreign.CommandLayout.Name()))
	}
	return cmd, ok
}

func variableSlots() map[string]abi.Func {
	slots := baseSlots()
	slots["SetValueString"] = func(ctx context.Context, f *abi.Frame) {
		v, ok := variableReceiver(f)
		if !ok {
			return
		}
		// A null string sets the value to zero.
		text, err := memory.CString(f.Env.Mem, f.ArgU32(0))
		if err != nil {
			f.Fail(err)
			return
		}
		v.SetText(ctx, text)
	}
	slots["SetValueFloat"] = func(ctx context.Context, f *abi.Frame) {
		if v, ok := variableReceiver(f); ok {
			v.SetFloat(ctx, f.ArgF32(0))
		}
	}
	slots["SetValueInt"] = func(ctx context.Context, f *abi.Frame) {
		if v, ok := variableReceiver(f); ok {
			v.SetInt(ctx, f.ArgI32(0))
		}
	}
	slots["GetFloat"] = func(_ context.Context, f *abi.Frame) {
		if v, ok := variableReceiver(f); ok {
			f.ReturnF32(v.Float())
		}
	}
	slots["GetInt"] = func(_ context.Context, f *abi.Frame) {
		if v, ok := variableReceiver(f); ok {
			f.ReturnI32(v.Int())
		}
	}
	slots["ClampValue"] = func(_ context.Context, f *abi.Frame) {
		if v, ok := variableReceiver(f); ok {
			f.ReturnF32(v.Clamp(f.ArgF32(0)))
		}
	}
	return slots
}

func variableReceiver(f *abi.Frame) (*Variable, bool) {
	rec, ok := receiver(f)
	if !ok {
		return nil, false
	}
	v, ok := rec.(*Variable)
	if !ok {
		f.Fail(errors.Incompatible(foreign.CommandLayout.Name(), foreign.VariableLayout.Name()))
	}
	return v, ok
}
