package engine

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/srcbridge/abi"
	"github.com/wippyai/srcbridge/errors"
	"github.com/wippyai/srcbridge/foreign"
	"github.com/wippyai/srcbridge/memory"
)

// RecordInfo describes a listed record as its module reports it.
type RecordInfo struct {
	Name    string
	Help    string
	Addr    uint32
	Flags   foreign.Flags
	Owner   int32
	Command bool
}

func (c *Cvar) base(addr uint32) abi.Object {
	return abi.Borrow(c.env, foreign.BaseLayout, addr)
}

// walk visits every linked record in list order until fn returns false.
func (c *Cvar) walk(fn func(addr uint32) bool) {
	for addr := c.head; addr != 0; {
		next := c.base(addr).Ptr("next")
		if !fn(addr) {
			return
		}
		addr = next
	}
}

func (c *Cvar) name(ctx context.Context, addr uint32) string {
	res, err := c.base(addr).Call(ctx, "GetName")
	if err != nil {
		c.log.Warn("GetName failed", zap.Uint32("addr", addr), zap.Error(err))
		return ""
	}
	s, err := memory.CString(c.env.Mem, abi.ResultU32(res))
	if err != nil {
		c.log.Warn("unreadable record name", zap.Uint32("addr", addr), zap.Error(err))
		return ""
	}
	return s
}

func (c *Cvar) help(ctx context.Context, addr uint32) string {
	res, err := c.base(addr).Call(ctx, "GetHelpText")
	if err != nil {
		return ""
	}
	s, _ := memory.CString(c.env.Mem, abi.ResultU32(res))
	return s
}

func (c *Cvar) isCommand(ctx context.Context, addr uint32) bool {
	res, err := c.base(addr).Call(ctx, "IsCommand")
	if err != nil {
		c.log.Warn("IsCommand failed", zap.Uint32("addr", addr), zap.Error(err))
		return false
	}
	return abi.ResultBool(res)
}

func (c *Cvar) ownerOf(ctx context.Context, addr uint32) (int32, bool) {
	res, err := c.base(addr).Call(ctx, "GetDLLIdentifier")
	if err != nil {
		c.log.Warn("GetDLLIdentifier failed", zap.Uint32("addr", addr), zap.Error(err))
		return 0, false
	}
	return abi.ResultI32(res), true
}

// find returns the linked record called name, compared without case.
func (c *Cvar) find(ctx context.Context, name string) uint32 {
	var found uint32
	c.walk(func(addr uint32) bool {
		if strings.EqualFold(c.name(ctx, addr), name) {
			found = addr
			return false
		}
		return true
	})
	return found
}

func (c *Cvar) register(ctx context.Context, addr uint32) error {
	if addr == 0 {
		return errors.InvalidInput(errors.PhaseRegister, "null record")
	}
	rec := c.base(addr)
	if rec.Bool("registered") {
		c.log.Warn("Register: record already registered", zap.Uint32("addr", addr))
		return nil
	}
	name := c.name(ctx, addr)
	if name == "" {
		return misuse("RegisterConCommand", "record has no name")
	}

	if existing := c.find(ctx, name); existing != 0 {
		if c.isCommand(ctx, existing) || c.isCommand(ctx, addr) {
			c.log.Warn("Register: unable to link, one or more is a command",
				zap.String("name", name))
			return nil
		}
		root := abi.Borrow(c.env, foreign.VariableLayout, existing).Ptr("parent")
		if root == 0 {
			root = existing
		}
		abi.Borrow(c.env, foreign.VariableLayout, addr).SetPtr("parent", root)
		rec.SetBool("registered", true)
		c.children[addr] = root
		c.log.Debug("variable bound to existing root",
			zap.String("name", name),
			zap.Uint32("root", root))
		return nil
	}

	rec.SetPtr("next", c.head)
	rec.SetBool("registered", true)
	c.head = addr
	debugf("registered %s at 0x%x", name, addr)
	return nil
}

func (c *Cvar) unregister(ctx context.Context, addr uint32) {
	if addr == 0 {
		return
	}
	rec := c.base(addr)
	if !rec.Bool("registered") {
		return
	}
	rec.SetBool("registered", false)

	if _, ok := c.children[addr]; ok {
		delete(c.children, addr)
		abi.Borrow(c.env, foreign.VariableLayout, addr).SetPtr("parent", addr)
		return
	}
	c.unlink(addr)
	c.promoteChildren(ctx, addr)
}

func (c *Cvar) unlink(addr uint32) {
	var prev uint32
	c.walk(func(cur uint32) bool {
		if cur != addr {
			prev = cur
			return true
		}
		next := c.base(cur).Ptr("next")
		if prev == 0 {
			c.head = next
		} else {
			c.base(prev).SetPtr("next", next)
		}
		c.base(cur).SetPtr("next", 0)
		return false
	})
}

// promoteChildren turns the children of a departing root into roots of
// their own. The first one takes the root's place in the list and the
// rest bind to it.
func (c *Cvar) promoteChildren(ctx context.Context, root uint32) {
	var kids []uint32
	for child, r := range c.children {
		if r == root {
			kids = append(kids, child)
		}
	}
	if len(kids) == 0 {
		return
	}
	sort.Slice(kids, func(i, j int) bool { return kids[i] < kids[j] })

	heir := kids[0]
	delete(c.children, heir)
	abi.Borrow(c.env, foreign.VariableLayout, heir).SetPtr("parent", heir)
	c.base(heir).SetPtr("next", c.head)
	c.head = heir
	for _, child := range kids[1:] {
		c.children[child] = heir
		abi.Borrow(c.env, foreign.VariableLayout, child).SetPtr("parent", heir)
	}
	c.log.Debug("children promoted", zap.String("name", c.name(ctx, heir)), zap.Int("children", len(kids)))
}

func (c *Cvar) unregisterOwner(ctx context.Context, owner int32) {
	var doomed []uint32
	for child := range c.children {
		if id, ok := c.ownerOf(ctx, child); ok && id == owner {
			doomed = append(doomed, child)
		}
	}
	sort.Slice(doomed, func(i, j int) bool { return doomed[i] < doomed[j] })
	c.walk(func(addr uint32) bool {
		if id, ok := c.ownerOf(ctx, addr); ok && id == owner {
			doomed = append(doomed, addr)
		}
		return true
	})
	for _, addr := range doomed {
		c.unregister(ctx, addr)
	}
	c.log.Debug("owner unregistered", zap.Int32("owner", owner), zap.Int("records", len(doomed)))
}

// Find returns the linked record called name.
func (c *Cvar) Find(ctx context.Context, name string) (abi.Object, bool) {
	addr := c.find(ctx, name)
	if addr == 0 {
		return abi.Object{}, false
	}
	return c.base(addr), true
}

// Records lists the linked records sorted by name.
func (c *Cvar) Records(ctx context.Context) []RecordInfo {
	var out []RecordInfo
	c.walk(func(addr uint32) bool {
		owner, _ := c.ownerOf(ctx, addr)
		out = append(out, RecordInfo{
			Name:    c.name(ctx, addr),
			Help:    c.help(ctx, addr),
			Addr:    addr,
			Flags:   foreign.Flags(c.base(addr).I32("flags")),
			Owner:   owner,
			Command: c.isCommand(ctx, addr),
		})
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}
