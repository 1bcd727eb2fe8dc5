package loader

import (
	"bytes"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds the decode options of a Loader. The zero value is not useful; start from DefaultConfig.
type Config struct {
	// FlipV mirrors TEXCOORD_0 and TEXCOORD_1 V coordinates (v = 1 - v).
	FlipV bool `toml:"flip_v"`

	// WebGPU restricts output to layouts a WebGPU device accepts (no 8-bit indices).
	WebGPU bool `toml:"webgpu"`

	// Uint32Indices allows 32-bit index buffers. When false they are narrowed to 16 bits.
	Uint32Indices bool `toml:"uint32_indices"`

	// FlattenAccessors copies interleaved accessor data into tightly packed slices.
	FlattenAccessors bool `toml:"flatten_accessors"`

	// Workers is the number of pool workers used for buffer and image fan-out.
	Workers int `toml:"workers"`

	// QueueSize is the pool task queue capacity.
	QueueSize int `toml:"queue_size"`

	// LogLevel is applied to the loader logger when set (debug, info, warn, error).
	LogLevel string `toml:"log_level"`

	// BaseURL is the base relative URIs resolve against when the load path gives none.
	BaseURL string `toml:"base_url"`

	// WatchDebounceMs coalesces file change events for Watch.
	WatchDebounceMs int `toml:"watch_debounce_ms"`
}

// DefaultConfig returns the configuration used when none is supplied.
//
// Returns:
//   - Config: the defaults
func DefaultConfig() Config {
	return Config{
		WebGPU:          true,
		Uint32Indices:   true,
		Workers:         runtime.NumCPU(),
		QueueSize:       256,
		WatchDebounceMs: 100,
	}
}

// ParseConfig decodes a TOML document over DefaultConfig. Keys missing from data keep their defaults.
//
// Parameters:
//   - data: the TOML document
//
// Returns:
//   - Config: the decoded configuration
//   - error: error if the document is malformed or holds unknown keys
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse loader config: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

// LoadConfig reads and decodes a TOML config file.
//
// Parameters:
//   - path: the config file path
//
// Returns:
//   - Config: the decoded configuration
//   - error: error if the file cannot be read or parsed
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultConfig(), fmt.Errorf("failed to read loader config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// Encode writes cfg as a TOML document.
func (c Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

// normalize replaces non-positive sizes with their defaults.
func (c *Config) normalize() {
	def := DefaultConfig()
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.QueueSize <= 0 {
		c.QueueSize = def.QueueSize
	}
	if c.WatchDebounceMs < 0 {
		c.WatchDebounceMs = 0
	}
}

// debounce returns WatchDebounceMs as a duration.
func (c Config) debounce() time.Duration {
	return time.Duration(c.WatchDebounceMs) * time.Millisecond
}
