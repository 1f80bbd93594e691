package main

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config is the shell configuration, merged from flags, CVARSH_*
// environment variables and an optional YAML file.
type Config struct {
	// Cvars are applied after the console loads.
	Cvars map[string]string `mapstructure:"cvars"`

	// LogLevel is off, debug, info, warn or error.
	LogLevel string `mapstructure:"log_level"`

	// Exec lines run at startup, after Cvars.
	Exec []string `mapstructure:"exec"`

	// InitialPages and MaxPages size the foreign address space.
	InitialPages uint32 `mapstructure:"initial_pages"`
	MaxPages     uint32 `mapstructure:"max_pages"`

	// QueuedMaterial runs the material system on its own thread.
	QueuedMaterial bool `mapstructure:"queued_material"`

	NoColor bool `mapstructure:"no_color"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("log_level", "off")
	v.SetDefault("initial_pages", 1)
	v.SetDefault("max_pages", 256)
	v.SetDefault("queued_material", true)

	v.SetEnvPrefix("CVARSH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// loadConfig reads file when set, or cvarsh.yaml from the working
// directory when present.
func loadConfig(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("cvarsh")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// newLogger builds the process logger. debug gets the development
// encoder; other levels the production one.
func newLogger(level string) (*zap.Logger, error) {
	switch strings.ToLower(level) {
	case "", "off":
		return zap.NewNop(), nil
	case "debug":
		return zap.NewDevelopment()
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
