package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.False(t, cfg.Serial)
	assert.False(t, cfg.ImmediateErrors)
	assert.Empty(t, cfg.Journal)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.Format)
	assert.Empty(t, cfg.Page.URL)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "custom.yaml", `
serial: true
immediate_errors: true
journal: /tmp/j.db
log_level: debug
format: json
page:
  url: https://shop.example.com/
  cookies: consent=yes
  now: "2024-03-13"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Serial)
	assert.True(t, cfg.ImmediateErrors)
	assert.Equal(t, "/tmp/j.db", cfg.Journal)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "https://shop.example.com/", cfg.Page.URL)
	assert.Equal(t, "consent=yes", cfg.Page.Cookies)
	assert.Equal(t, "2024-03-13", cfg.Page.Now)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoad_SearchPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "configs"), 0o755))
	writeConfig(t, filepath.Join(dir, "configs"), "tagmgr.yaml", "serial: true\n")
	chdir(t, dir)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.Serial)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "tagmgr.yaml", "serial: false\npage:\n  url: https://file.example.com/\n")
	t.Setenv("TAGMGR_SERIAL", "true")
	t.Setenv("TAGMGR_PAGE_URL", "https://env.example.com/")
	t.Setenv("TAGMGR_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Serial)
	assert.Equal(t, "https://env.example.com/", cfg.Page.URL)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		path string
	}{
		{"missing explicit file", filepath.Join(dir, "nope.yaml")},
		{"malformed file", writeConfig(t, dir, "bad.yaml", "serial: [\n")},
		{"bad level", writeConfig(t, dir, "level.yaml", "log_level: loud\n")},
		{"bad format", writeConfig(t, dir, "format.yaml", "format: xml\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path)
			assert.Error(t, err)
		})
	}
}

// chdir changes the working directory for the duration of the test,
// restoring it on cleanup (equivalent of testing.T.Chdir from Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
