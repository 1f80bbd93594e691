package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/srcbridge/abi"
	"github.com/wippyai/srcbridge/console"
	"github.com/wippyai/srcbridge/engine"
	"github.com/wippyai/srcbridge/memory"
)

func newRootCommand() *cobra.Command {
	v := newViper()
	var configFile string

	root := &cobra.Command{
		Use:   "cvarsh",
		Short: "Console for a plugin module loaded into an emulated engine",
		Long: `cvarsh hosts an emulated engine console registry, loads a sample plugin
module into it and gives you its console. Variables and commands are real
foreign objects: every read, set and dispatch goes through their tables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, v, configFile, func(s *session) error {
				if term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())) {
					return runInteractive(s)
				}
				return runLines(s, os.Stdin, cmd.OutOrStdout())
			})
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "config file (default ./cvarsh.yaml)")
	flags.String("log-level", "off", "log level: off, debug, info, warn, error")
	flags.Bool("queued-material", true, "run the material system on its own thread")
	flags.Bool("no-color", false, "disable colored output")
	flags.StringArrayP("exec", "e", nil, "console line to run at startup (repeatable)")
	mustBind(v, "log_level", flags.Lookup("log-level"))
	mustBind(v, "queued_material", flags.Lookup("queued-material"))
	mustBind(v, "no_color", flags.Lookup("no-color"))
	mustBind(v, "exec", flags.Lookup("exec"))

	root.AddCommand(newExecCommand(v, &configFile))
	root.AddCommand(newListCommand(v, &configFile))
	return root
}

func newExecCommand(v *viper.Viper, configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "exec <line>...",
		Short: "Run console lines and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, v, *configFile, func(s *session) error {
				var first error
				for _, line := range args {
					if err := s.execute(line); err != nil && first == nil {
						first = err
					}
				}
				s.flush(cmd.OutOrStdout())
				return first
			})
		},
	}
}

func newListCommand(v *viper.Viper, configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list [prefix]",
		Short: "List registered variables and commands",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, v, *configFile, func(s *session) error {
				prefix := ""
				if len(args) == 1 {
					prefix = args[0]
				}
				for _, r := range s.cvar.Records(s.ctx) {
					if !hasPrefixFold(r.Name, prefix) {
						continue
					}
					kind := "var"
					if r.Command {
						kind = "cmd"
					}
					owner := "engine"
					if r.Owner != 0 {
						owner = fmt.Sprintf("plugin %d", r.Owner)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%-24s %-4s %-10s %s\n", r.Name, kind, owner, r.Flags)
				}
				return nil
			})
		},
	}
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func mustBind(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

// withSession loads config, wires loggers, builds a session and runs fn
// against it.
func withSession(cmd *cobra.Command, v *viper.Viper, configFile string, fn func(*session) error) error {
	cfg, err := loadConfig(v, configFile)
	if err != nil {
		return report(cmd, err)
	}
	if cfg.NoColor {
		color.NoColor = true
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return report(cmd, err)
	}
	defer func() { _ = log.Sync() }()
	memory.SetLogger(log.Named("memory"))
	abi.SetLogger(log.Named("abi"))
	engine.SetLogger(log.Named("engine"))
	console.SetLogger(log.Named("console"))

	s, err := newSession(cmd.Context(), cfg, log)
	if err != nil {
		return report(cmd, err)
	}
	defer s.close()

	if err := fn(s); err != nil {
		log.Debug("session ended with error", zap.Error(err))
		return report(cmd, err)
	}
	return nil
}

func report(cmd *cobra.Command, err error) error {
	color.New(color.FgRed, color.Bold).Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	return err
}
