package console

import (
	"github.com/wippyai/srcbridge/abi"
	"github.com/wippyai/srcbridge/foreign"
	"github.com/wippyai/srcbridge/memory"
)

// Record is a console record declared by the plugin: a *Variable or a
// *Command.
type Record interface {
	Name() string
	Help() string
	Flags() foreign.Flags
	IsFlagSet(f foreign.Flags) bool
	AddFlags(f foreign.Flags)
	IsCommand() bool
	IsRegistered() bool

	// Object returns a borrowed view of the record's foreign object, or a
	// null handle before the record is loaded.
	Object() abi.Object

	base() *Base
	materialize(st *process) error
	teardown()
}

// Base is the part every record shares. Its foreign form is a
// ConCommandBase: the engine links records through its next field and
// owns the registered flag.
type Base struct {
	obj     abi.Object
	name    string
	help    string
	flags   foreign.Flags
	namePtr uint32
	helpPtr uint32
}

// Name returns the record name.
func (b *Base) Name() string { return b.name }

// Help returns the help text.
func (b *Base) Help() string { return b.help }

// Flags returns the live flags.
func (b *Base) Flags() foreign.Flags {
	if b.obj.IsNull() {
		return b.flags
	}
	return foreign.Flags(b.obj.I32("flags"))
}

// IsFlagSet reports whether any of f is set.
func (b *Base) IsFlagSet(f foreign.Flags) bool { return b.Flags().Has(f) }

// AddFlags sets f in addition to the current flags.
func (b *Base) AddFlags(f foreign.Flags) {
	b.flags |= f
	if !b.obj.IsNull() {
		b.obj.SetI32("flags", int32(b.Flags()|f))
	}
}

// IsRegistered reports whether the engine currently lists the record.
func (b *Base) IsRegistered() bool {
	return !b.obj.IsNull() && b.obj.Bool("registered")
}

// Object returns a borrowed view of the foreign object.
func (b *Base) Object() abi.Object {
	if b.obj.IsNull() {
		return abi.Object{}
	}
	return b.obj.MustAs(b.obj.Layout())
}

func (b *Base) base() *Base { return b }

func (b *Base) materializeBase(env *abi.Env, layout *abi.Layout, table uint32) error {
	obj, err := abi.New(env, layout, table)
	if err != nil {
		return err
	}
	namePtr, err := memory.NewCString(env.Mem, env.Alloc, b.name)
	if err != nil {
		obj.Free()
		return err
	}
	var helpPtr uint32
	if b.help != "" {
		helpPtr, err = memory.NewCString(env.Mem, env.Alloc, b.help)
		if err != nil {
			memory.FreeCString(env.Alloc, namePtr, b.name)
			obj.Free()
			return err
		}
	}

	obj.SetPtr("name", namePtr)
	obj.SetPtr("help", helpPtr)
	obj.SetI32("flags", int32(b.flags))
	b.obj, b.namePtr, b.helpPtr = obj, namePtr, helpPtr
	return nil
}

func (b *Base) teardownBase() {
	if b.obj.IsNull() {
		return
	}
	env := b.obj.Env()
	b.flags = foreign.Flags(b.obj.I32("flags"))
	memory.FreeCString(env.Alloc, b.namePtr, b.name)
	memory.FreeCString(env.Alloc, b.helpPtr, b.help)
	b.obj.Free()
	b.obj, b.namePtr, b.helpPtr = abi.Object{}, 0, 0
}
