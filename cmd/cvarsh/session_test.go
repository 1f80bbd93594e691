package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSession(t *testing.T, cfg *Config) *session {
	t.Helper()
	color.NoColor = true
	s, err := newSession(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(s.close)
	return s
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "shell.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
log_level: warn
queued_material: false
cvars:
  volume: "0.25"
  sv_cheats: "1"
exec:
  - echo ready
`), 0o600))

	cfg, err := loadConfig(newViper(), file)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.False(t, cfg.QueuedMaterial)
	assert.Equal(t, map[string]string{"volume": "0.25", "sv_cheats": "1"}, cfg.Cvars)
	assert.Equal(t, []string{"echo ready"}, cfg.Exec)
	assert.Equal(t, uint32(256), cfg.MaxPages)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("CVARSH_LOG_LEVEL", "error")
	t.Chdir(t.TempDir())

	cfg, err := loadConfig(newViper(), "")
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.True(t, cfg.QueuedMaterial)
}

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"", "off", "debug", "info", "WARN"} {
		log, err := newLogger(level)
		require.NoError(t, err, level)
		assert.NotNil(t, log)
	}
	_, err := newLogger("loud")
	assert.Error(t, err)
}

func TestSession_Startup(t *testing.T) {
	s := newTestSession(t, &Config{
		QueuedMaterial: true,
		Cvars:          map[string]string{"volume": "5", "mat_picmip": "2", "nosuch": "1"},
		Exec:           []string{"name gordon"},
	})

	assert.Equal(t, "1.0", s.plugin.volume.Text())
	assert.Equal(t, int32(2), s.plugin.picmip.Int())
	assert.Equal(t, "gordon", s.plugin.name.Text())
	assert.Contains(t, s.drain(), "* unnamed changed name to gordon\n")
}

func TestRunLines(t *testing.T) {
	s := newTestSession(t, &Config{QueuedMaterial: true})

	in := strings.NewReader(`
# comment
changelevel de_nuke
mat_picmip 3
say "hello there"
bogus
status
quit
echo never
`)
	var out bytes.Buffer
	require.NoError(t, runLines(s, in, &out))

	text := out.String()
	assert.Contains(t, text, "] changelevel de_nuke\nchanging level to de_nuke\n")
	assert.Contains(t, text, "unnamed: hello there\n")
	assert.Contains(t, text, "Unknown command \"bogus\"\n")
	assert.Contains(t, text, "map     : de_nuke\n")
	assert.Contains(t, text, "picmip  : 3\n")
	assert.NotContains(t, text, "never")
}

func TestPluginCompletion(t *testing.T) {
	s := newTestSession(t, &Config{})

	assert.Equal(t, []string{"changelevel de_dust2"}, s.complete("changelevel de_d"))
	assert.Equal(t, []string{"revert sensitivity", "revert sv_cheats"}, s.complete("revert s"))
	assert.Equal(t, []string{"say", "sensitivity", "status", "sv_cheats"}, s.complete("s"))
}

func TestPluginRevert(t *testing.T) {
	s := newTestSession(t, &Config{})

	require.NoError(t, s.execute("sensitivity 9; volume 0.1"))
	require.NoError(t, s.execute("revert sensitivity volume missing"))
	assert.Equal(t, "3", s.plugin.sensitivity.Text())
	assert.Equal(t, "0.7", s.plugin.volume.Text())
	assert.Contains(t, s.drain(), "revert: no variable named missing\n")
}
