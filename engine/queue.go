package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/srcbridge/abi"
	"github.com/wippyai/srcbridge/errors"
	"github.com/wippyai/srcbridge/foreign"
	"github.com/wippyai/srcbridge/memory"
)

type queuedKind uint8

const (
	queuedText queuedKind = iota
	queuedFloat
	queuedInt
)

type queuedSet struct {
	text string
	addr uint32
	f    float32
	i    int32
	kind queuedKind
}

func (c *Cvar) enqueue(s queuedSet) {
	c.qmu.Lock()
	c.queue = append(c.queue, s)
	n := len(c.queue)
	c.qmu.Unlock()
	c.log.Debug("material thread set queued", zap.Uint32("addr", s.addr), zap.Int("pending", n))
}

// QueuedSets returns the number of sets waiting for the material thread.
func (c *Cvar) QueuedSets() int {
	c.qmu.Lock()
	defer c.qmu.Unlock()
	return len(c.queue)
}

// ProcessQueuedMaterialThreadSets replays queued sets, in order, through
// each variable's own SetValue slots. ctx must be marked as the material
// thread. Every set is attempted; the first failure is returned.
func (c *Cvar) ProcessQueuedMaterialThreadSets(ctx context.Context) error {
	if t := foreign.ThreadFrom(ctx); t != foreign.ThreadMaterial {
		return errors.Misuse(errors.PhaseValue, []string{"ICvar", "ProcessQueuedMaterialThreadConVarSets"},
			"queued sets must be processed on the material thread, not "+t.String())
	}

	c.qmu.Lock()
	pending := c.queue
	c.queue = nil
	c.qmu.Unlock()

	var first error
	for _, s := range pending {
		if err := c.replay(ctx, s); err != nil {
			c.log.Warn("queued set failed", zap.Uint32("addr", s.addr), zap.Error(err))
			if first == nil {
				first = err
			}
		}
	}
	if len(pending) > 0 {
		c.log.Debug("material thread sets processed", zap.Int("count", len(pending)))
	}
	return first
}

func (c *Cvar) replay(ctx context.Context, s queuedSet) error {
	v := abi.Borrow(c.env, foreign.VariableLayout, s.addr)
	switch s.kind {
	case queuedFloat:
		_, err := v.Call(ctx, "SetValueFloat", abi.F32Arg(s.f))
		return err
	case queuedInt:
		_, err := v.Call(ctx, "SetValueInt", abi.I32Arg(s.i))
		return err
	default:
		return c.setString(ctx, s.addr, s.text)
	}
}

// setString calls a variable's SetValueString slot with a temporary copy
// of text.
func (c *Cvar) setString(ctx context.Context, addr uint32, text string) error {
	ptr, err := memory.NewCString(c.env.Mem, c.env.Alloc, text)
	if err != nil {
		return err
	}
	defer memory.FreeCString(c.env.Alloc, ptr, text)
	_, err = abi.Borrow(c.env, foreign.VariableLayout, addr).Call(ctx, "SetValueString", abi.U32Arg(ptr))
	return err
}
