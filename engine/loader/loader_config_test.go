package loader

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
flip_v = true
webgpu = false
uint32_indices = false
workers = 3
log_level = "debug"
base_url = "https://cdn.example.com/assets"
watch_debounce_ms = 250
`))
	require.NoError(t, err)
	assert.True(t, cfg.FlipV)
	assert.False(t, cfg.WebGPU)
	assert.False(t, cfg.Uint32Indices)
	assert.False(t, cfg.FlattenAccessors)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 256, cfg.QueueSize, "unset keys keep their defaults")
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "https://cdn.example.com/assets", cfg.BaseURL)
	assert.Equal(t, 250*time.Millisecond, cfg.debounce())
}

func TestParseConfigNormalizes(t *testing.T) {
	cfg, err := ParseConfig([]byte("workers = 0\nqueue_size = -4\nwatch_debounce_ms = -1\n"))
	require.NoError(t, err)
	assert.Equal(t, runtime.NumCPU(), cfg.Workers)
	assert.Equal(t, 256, cfg.QueueSize)
	assert.Zero(t, cfg.WatchDebounceMs)
}

func TestParseConfigErrors(t *testing.T) {
	_, err := ParseConfig([]byte(`flip_u = true`))
	assert.ErrorContains(t, err, "failed to parse loader config")

	_, err = ParseConfig([]byte(`workers = "many"`))
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfigEncodeRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FlipV = true
	cfg.Workers = 5
	cfg.BaseURL = "assets"

	data, err := cfg.Encode()
	require.NoError(t, err)
	assert.Contains(t, string(data), "flip_v = true")

	path := filepath.Join(t.TempDir(), "loader.toml")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
