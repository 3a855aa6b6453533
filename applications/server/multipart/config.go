package multipart

import (
	"github.com/go-kit/log"
)

const (
	// DefaultSpillThreshold keeps ordinary form fields in memory while file
	// uploads move to disk.
	DefaultSpillThreshold = 32 << 10 // 32 KiB

	defaultBufferSize     = 4 << 10
	minBufferSize         = 256
	defaultMaxHeaderBytes = 16 << 10
	defaultTempPattern    = "multipart-*"
)

// Config holds decoding settings.
type Config struct {
	SpillThreshold int64      // part bytes kept in memory before the store moves to a temp file
	TempDir        string     // empty for the OS default, ex: /tmp
	TempPattern    string     // os.CreateTemp pattern for the spill file
	BufferSize     int        // read window over the source
	MaxHeaderBytes int        // limit for the header block of a single part
	Logger         log.Logger // nil for no logging
}

// DefaultConfig returns the configuration used when none is provided.
func DefaultConfig() *Config {
	return &Config{
		SpillThreshold: DefaultSpillThreshold,
		TempDir:        "",
		TempPattern:    defaultTempPattern,
		BufferSize:     defaultBufferSize,
		MaxHeaderBytes: defaultMaxHeaderBytes,
		Logger:         log.NewNopLogger(),
	}
}

// mergeConfig returns a copy of c with unset values replaced by the defaults.
func mergeConfig(c *Config) *Config {
	d := DefaultConfig()
	if c == nil {
		return d
	}
	merged := *c
	if merged.SpillThreshold <= 0 {
		merged.SpillThreshold = d.SpillThreshold
	}
	if merged.TempPattern == "" {
		merged.TempPattern = d.TempPattern
	}
	if merged.BufferSize <= 0 {
		merged.BufferSize = d.BufferSize
	}
	if merged.BufferSize < minBufferSize {
		merged.BufferSize = minBufferSize
	}
	if merged.MaxHeaderBytes <= 0 {
		merged.MaxHeaderBytes = d.MaxHeaderBytes
	}
	if merged.Logger == nil {
		merged.Logger = d.Logger
	}
	// skipping TempDir as the empty string selects the OS default
	return &merged
}
