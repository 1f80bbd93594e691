package console

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/srcbridge/foreign"
)

// CallbackKind discriminates the shapes a command callback may take.
type CallbackKind uint8

const (
	CallbackNone CallbackKind = iota
	CallbackVoid
	CallbackArgs
	CallbackHandler
)

// Handler receives dispatches for commands built with HandlerCallback.
type Handler interface {
	CommandCallback(ctx context.Context, inv *foreign.Invocation)
}

// Callback is a command callback in one of three shapes. The zero value
// does nothing.
type Callback struct {
	void    func(ctx context.Context)
	args    func(ctx context.Context, inv *foreign.Invocation)
	handler Handler
	kind    CallbackKind
}

// VoidCallback wraps a callback that ignores its arguments.
func VoidCallback(fn func(ctx context.Context)) Callback {
	return Callback{kind: CallbackVoid, void: fn}
}

// ArgsCallback wraps a callback that receives the invocation.
func ArgsCallback(fn func(ctx context.Context, inv *foreign.Invocation)) Callback {
	return Callback{kind: CallbackArgs, args: fn}
}

// HandlerCallback routes dispatches to h.
func HandlerCallback(h Handler) Callback {
	return Callback{kind: CallbackHandler, handler: h}
}

// Kind returns the callback shape.
func (c Callback) Kind() CallbackKind { return c.kind }

func (c Callback) call(ctx context.Context, inv *foreign.Invocation) {
	switch c.kind {
	case CallbackVoid:
		c.void(ctx)
	case CallbackArgs:
		c.args(ctx, inv)
	case CallbackHandler:
		c.handler.CommandCallback(ctx, inv)
	}
}

// CompletionKind discriminates completion callback shapes.
type CompletionKind uint8

const (
	CompletionNone CompletionKind = iota
	CompletionFunc
	CompletionHandler
)

// Completer fills suggestions for commands built with CompleteWith.
type Completer interface {
	CommandCompletion(ctx context.Context, partial string, out *foreign.Suggestions) int
}

// Completion produces suggestions for a partially typed command line.
type Completion struct {
	fn        func(ctx context.Context, partial string, out *foreign.Suggestions) int
	completer Completer
	kind      CompletionKind
}

// CompleteFunc wraps a completion function. It returns the number of
// suggestions it pushed.
func CompleteFunc(fn func(ctx context.Context, partial string, out *foreign.Suggestions) int) Completion {
	return Completion{kind: CompletionFunc, fn: fn}
}

// CompleteWith routes completion requests to c.
func CompleteWith(c Completer) Completion {
	return Completion{kind: CompletionHandler, completer: c}
}

// Kind returns the completion shape.
func (c Completion) Kind() CompletionKind { return c.kind }

// Command is a named console action. Its foreign form is a ConCommand.
type Command struct {
	Base

	cb   Callback
	comp Completion
}

// CommandOption configures a Command.
type CommandOption func(*Command)

// WithCommandHelp sets the help text.
func WithCommandHelp(help string) CommandOption {
	return func(c *Command) { c.help = help }
}

// WithCompletion sets the completion callback.
func WithCompletion(comp Completion) CommandOption {
	return func(c *Command) { c.comp = comp }
}

// NewCommand declares a command.
func NewCommand(name string, cb Callback, flags foreign.Flags, opts ...CommandOption) *Command {
	c := &Command{
		Base: Base{name: name, flags: flags},
		cb:   cb,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsCommand reports true.
func (c *Command) IsCommand() bool { return true }

// Callback returns the command callback.
func (c *Command) Callback() Callback { return c.cb }

// Dispatch runs the callback with inv.
func (c *Command) Dispatch(ctx context.Context, inv *foreign.Invocation) {
	if c.cb.kind == CallbackNone {
		Logger().Debug("command has no callback", zap.String("name", c.name))
		return
	}
	c.cb.call(ctx, inv)
}

// CanAutoComplete reports whether the command has a completion callback.
func (c *Command) CanAutoComplete() bool { return c.comp.kind != CompletionNone }

// AutoComplete fills out with suggestions for partial and returns the
// count the callback reported.
func (c *Command) AutoComplete(ctx context.Context, partial string, out *foreign.Suggestions) int {
	switch c.comp.kind {
	case CompletionFunc:
		return c.comp.fn(ctx, partial, out)
	case CompletionHandler:
		return c.comp.completer.CommandCompletion(ctx, partial, out)
	default:
		return 0
	}
}

func (c *Command) materialize(st *process) error {
	if err := c.materializeBase(st.env, foreign.CommandLayout, st.command); err != nil {
		return err
	}
	c.obj.SetU8("callbackKind", uint8(c.cb.kind))
	c.obj.SetU8("completionKind", uint8(c.comp.kind))
	return nil
}

func (c *Command) teardown() {
	c.teardownBase()
}
