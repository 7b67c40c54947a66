package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cli.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "table", cfg.Output)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 500*time.Millisecond, cfg.Load.ReloadInterval)
	assert.NoError(t, Verify(cfg))
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()
	assert.True(t, filepath.IsAbs(path) || path == filepath.Join(".kvopts", "cli.yaml"))
	assert.Equal(t, "cli.yaml", filepath.Base(path))
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
output: json
log:
  level: debug
load:
  cache_size: 1048576
  reload_interval: 2s
storage:
  gc_interval: 1h
metrics:
  addr: 127.0.0.1:9100
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Output)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format, "unset keys keep defaults")
	assert.EqualValues(t, 1<<20, cfg.Load.CacheSize)
	assert.Equal(t, 2*time.Second, cfg.Load.ReloadInterval)
	assert.Equal(t, "1h", cfg.Storage.GCInterval)
	assert.Equal(t, "127.0.0.1:9100", cfg.Metrics.Addr)
}

func TestLoad_Precedence(t *testing.T) {
	path := writeConfig(t, "output: json\nlog:\n  level: info\n")
	t.Setenv("KVOPTS_OUTPUT", "yaml")
	t.Setenv("KVOPTS_LOAD__IGNORE_UNKNOWN_OPTIONS", "true")

	cfg, err := Load(path, map[string]any{"log.level": "error"})
	require.NoError(t, err)
	assert.Equal(t, "yaml", cfg.Output, "environment overrides the file")
	assert.Equal(t, "error", cfg.Log.Level, "flags override everything")
	assert.True(t, cfg.Load.IgnoreUnknownOptions)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err, "an explicit path must exist")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		key     string
	}{
		{"output", "output: xml\n", "output"},
		{"log level", "log:\n  level: loud\n", "log.level"},
		{"negative cache", "load:\n  cache_size: -1\n", "load.cache_size"},
		{"threshold", "storage:\n  gc_threshold: 2\n", "storage.gc_threshold"},
		{"metrics addr", "metrics:\n  addr: nowhere\n", "metrics.addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}
