package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/srcbridge/console"
	"github.com/wippyai/srcbridge/foreign"
)

// plugin is the sample module the shell loads: a handful of variables
// and commands declared the way a game module declares its console.
type plugin struct {
	out io.Writer
	log *zap.Logger

	volume      *console.Variable
	sensitivity *console.Variable
	viewFOV     *console.Variable
	name        *console.Variable
	picmip      *console.Variable
	cheats      *console.Variable

	level string
	maps  []string
}

func newPlugin(out io.Writer, log *zap.Logger) *plugin {
	p := &plugin{
		out:   out,
		log:   log,
		level: "de_dust2",
		maps:  []string{"cs_italy", "cs_office", "de_dust2", "de_inferno", "de_nuke", "de_train"},
	}

	p.volume = console.NewVariable("volume", "0.7", foreign.FlagArchive,
		console.WithHelp("Sound volume"),
		console.WithBounds(0, 1),
		console.WithChangeHook(p.logChange))
	p.sensitivity = console.NewVariable("sensitivity", "3", foreign.FlagArchive,
		console.WithHelp("Mouse sensitivity."),
		console.WithBounds(0.0001, 1000))
	p.viewFOV = console.NewVariable("viewmodel_fov", "60", foreign.FlagArchive|foreign.FlagCheat,
		console.WithBounds(0, 200),
		console.WithCompetitiveMin(54),
		console.WithCompetitiveMax(68),
		console.WithCompetitive())
	p.name = console.NewVariable("name", "unnamed", foreign.FlagArchive|foreign.FlagUserInfo|foreign.FlagPrintableOnly,
		console.WithHelp("Current user name"),
		console.WithChangeHook(func(_ context.Context, _ *console.Variable, old, cur console.Value) {
			fmt.Fprintf(p.out, "* %s changed name to %s\n", old.Text, cur.Text)
		}))
	p.picmip = console.NewVariable("mat_picmip", "0", foreign.FlagArchive|foreign.FlagMaterialSystemThread,
		console.WithHelp("Texture detail; lower is better"),
		console.WithBounds(-10, 4),
		console.WithChangeHook(p.logChange))
	p.cheats = console.NewVariable("sv_cheats", "0", foreign.FlagNotify|foreign.FlagReplicated,
		console.WithHelp("Allow cheats on server"))
	return p
}

func (p *plugin) records() []console.Record {
	return []console.Record{
		p.volume,
		p.sensitivity,
		p.viewFOV,
		p.name,
		p.picmip,
		p.cheats,
		console.NewCommand("status", console.VoidCallback(p.status), 0,
			console.WithCommandHelp("Display map and client settings")),
		console.NewCommand("say", console.HandlerCallback(p), foreign.FlagServerCanExecute,
			console.WithCommandHelp("Display player message")),
		console.NewCommand("changelevel", console.ArgsCallback(p.changeLevel), 0,
			console.WithCommandHelp("Change the current level"),
			console.WithCompletion(console.CompleteWith(p))),
		console.NewCommand("revert", console.ArgsCallback(p.revert), 0,
			console.WithCommandHelp("Reset variables to their defaults"),
			console.WithCompletion(console.CompleteFunc(p.completeVariables))),
	}
}

func (p *plugin) logChange(_ context.Context, v *console.Variable, old, cur console.Value) {
	p.log.Debug("variable changed",
		zap.String("name", v.Name()),
		zap.String("old", old.Text),
		zap.String("new", cur.Text))
}

func (p *plugin) status(context.Context) {
	fmt.Fprintf(p.out, "map     : %s\n", p.level)
	fmt.Fprintf(p.out, "player  : %s\n", p.name.Text())
	fmt.Fprintf(p.out, "volume  : %s\n", p.volume.Text())
	fmt.Fprintf(p.out, "cheats  : %t\n", p.cheats.Bool())
	fmt.Fprintf(p.out, "picmip  : %d\n", p.picmip.Int())
}

// CommandCallback handles say.
func (p *plugin) CommandCallback(_ context.Context, inv *foreign.Invocation) {
	text, ok := inv.ArgS()
	if !ok || strings.TrimSpace(text) == "" {
		return
	}
	fmt.Fprintf(p.out, "%s: %s\n", p.name.Text(), strings.Trim(text, `"`))
}

func (p *plugin) changeLevel(_ context.Context, inv *foreign.Invocation) {
	if inv.Argc() != 2 {
		fmt.Fprintf(p.out, "changelevel <levelname> : continue game on a new level\n")
		return
	}
	level := inv.Arg(1)
	for _, m := range p.maps {
		if strings.EqualFold(m, level) {
			p.level = m
			fmt.Fprintf(p.out, "changing level to %s\n", m)
			return
		}
	}
	fmt.Fprintf(p.out, "changelevel failed: %s not found\n", level)
}

// CommandCompletion completes map names for changelevel.
func (p *plugin) CommandCompletion(_ context.Context, partial string, out *foreign.Suggestions) int {
	cmd, rest, _ := strings.Cut(partial, " ")
	rest = strings.ToLower(strings.TrimSpace(rest))
	for _, m := range p.maps {
		if strings.HasPrefix(m, rest) && !out.Push(cmd+" "+m) {
			break
		}
	}
	return out.Len()
}

func (p *plugin) revert(ctx context.Context, inv *foreign.Invocation) {
	if inv.Argc() < 2 {
		fmt.Fprintf(p.out, "Usage:  revert <cvarname> [...]\n")
		return
	}
	for _, name := range inv.Args()[1:] {
		v, ok := console.FindVariable(ctx, name)
		if !ok {
			fmt.Fprintf(p.out, "revert: no variable named %s\n", name)
			continue
		}
		v.Revert(ctx)
	}
}

func (p *plugin) completeVariables(_ context.Context, partial string, out *foreign.Suggestions) int {
	cmd, rest, _ := strings.Cut(partial, " ")
	rest = strings.ToLower(strings.TrimSpace(rest))
	var names []string
	for _, v := range []*console.Variable{p.volume, p.sensitivity, p.viewFOV, p.name, p.picmip, p.cheats} {
		if strings.HasPrefix(v.Name(), rest) {
			names = append(names, v.Name())
		}
	}
	sort.Strings(names)
	for _, n := range names {
		out.Push(cmd + " " + n)
	}
	return out.Len()
}
