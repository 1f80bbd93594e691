package main

import (
	"bytes"
	"context"
	"io"
	"sort"

	"go.uber.org/zap"

	"github.com/wippyai/srcbridge/abi"
	"github.com/wippyai/srcbridge/console"
	"github.com/wippyai/srcbridge/engine"
	"github.com/wippyai/srcbridge/foreign"
	"github.com/wippyai/srcbridge/memory"
)

// session is one engine with the sample plugin loaded into it.
type session struct {
	ctx    context.Context
	log    *zap.Logger
	space  *memory.Space
	cvar   *engine.Cvar
	plugin *plugin
	out    bytes.Buffer
}

func newSession(ctx context.Context, cfg *Config, log *zap.Logger) (*session, error) {
	s := &session{ctx: ctx, log: log}

	var err error
	s.space, err = memory.NewSpace(ctx, &memory.Config{
		InitialPages: cfg.InitialPages,
		MaxPages:     cfg.MaxPages,
	})
	if err != nil {
		return nil, err
	}
	env := abi.NewEnv(s.space, s.space)

	s.cvar, err = engine.New(ctx, env, &engine.Config{
		Output:               &s.out,
		QueuedMaterialSystem: cfg.QueuedMaterial,
	})
	if err != nil {
		_ = s.space.Close(ctx)
		return nil, err
	}

	s.plugin = newPlugin(&s.out, log.Named("plugin"))
	console.Declare(s.plugin.records()...)
	if err := console.Load(ctx, env, s.cvar.Factory()); err != nil {
		s.cvar.Close(ctx)
		_ = s.space.Close(ctx)
		return nil, err
	}

	names := make([]string, 0, len(cfg.Cvars))
	for name := range cfg.Cvars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := s.cvar.SetValue(ctx, name, cfg.Cvars[name]); err != nil {
			log.Warn("config variable not applied", zap.String("name", name), zap.Error(err))
		}
	}
	s.tick()

	for _, line := range cfg.Exec {
		_ = s.execute(line)
	}
	log.Debug("session ready",
		zap.Stringer("cvar", s.cvar.ID()),
		zap.Int32("owner", int32(console.Owner())),
		zap.Uint32("heap", s.space.InUse()))
	return s, nil
}

// execute runs one console line and then lets the material thread catch
// up, as a frame would.
func (s *session) execute(line string) error {
	err := s.cvar.Execute(s.ctx, line)
	s.tick()
	return err
}

func (s *session) tick() {
	if s.cvar.QueuedSets() == 0 {
		return
	}
	mat := foreign.WithThread(s.ctx, foreign.ThreadMaterial)
	if err := s.cvar.ProcessQueuedMaterialThreadSets(mat); err != nil {
		s.log.Warn("material thread sets failed", zap.Error(err))
	}
}

func (s *session) complete(partial string) []string {
	items, err := s.cvar.Complete(s.ctx, partial)
	if err != nil {
		s.log.Debug("completion failed", zap.String("partial", partial), zap.Error(err))
		return nil
	}
	return items
}

// flush moves pending console output to w.
func (s *session) flush(w io.Writer) {
	_, _ = s.out.WriteTo(w)
}

// drain returns pending console output.
func (s *session) drain() string {
	text := s.out.String()
	s.out.Reset()
	return text
}

func (s *session) close() {
	if err := console.Unload(s.ctx); err != nil {
		s.log.Warn("unload failed", zap.Error(err))
	}
	s.cvar.Close(s.ctx)
	_ = s.space.Close(s.ctx)
}
