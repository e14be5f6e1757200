package engine

import (
	"io"
	"log/slog"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config controls session limits and matching heuristics.
//
// Example:
//
//	config := engine.DefaultConfig().
//	    WithMaxLiveRoots(10_000).
//	    WithLogger(slog.Default())
//	s, err := engine.NewSession(prog, src, config)
type Config struct {
	// MaxLiveRoots caps the number of unresolved root candidates of one
	// session. Exceeding it aborts the session with ErrCandidateLimit.
	// Default: 100000
	MaxLiveRoots int `yaml:"max_live_roots"`

	// CompactRatio is the fraction of tombstoned waiting slots that triggers
	// compaction of the waiting registry.
	// Default: 0.5
	CompactRatio float64 `yaml:"compact_ratio"`

	// EnablePrefilter lets callers skip texts that contain none of the
	// required literals of the search targets. The session itself does not
	// consult it.
	// Default: true
	EnablePrefilter bool `yaml:"enable_prefilter"`

	// SuppressOverlappingSpans stops unbounded spans of patterns that can
	// never be rejected from starting a new left side while an earlier one
	// is still waiting for its right side.
	// Default: true
	SuppressOverlappingSpans bool `yaml:"suppress_overlapping_spans"`

	// FoldFieldReferences makes field references match the captured text
	// case-insensitively.
	// Default: false
	FoldFieldReferences bool `yaml:"fold_field_references"`

	// Logger receives debug events and the session summary.
	// nil means slog.Default().
	Logger *slog.Logger `yaml:"-"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxLiveRoots:             100_000,
		CompactRatio:             0.5,
		EnablePrefilter:          true,
		SuppressOverlappingSpans: true,
	}
}

// Validate checks if the configuration is valid.
//
// Valid ranges:
//   - MaxLiveRoots: 1 to 100,000,000
//   - CompactRatio: greater than 0, at most 1
func (c Config) Validate() error {
	if c.MaxLiveRoots < 1 || c.MaxLiveRoots > 100_000_000 {
		return &ConfigError{
			Field:   "MaxLiveRoots",
			Message: "must be between 1 and 100,000,000",
		}
	}
	if c.CompactRatio <= 0 || c.CompactRatio > 1 {
		return &ConfigError{
			Field:   "CompactRatio",
			Message: "must be in (0, 1]",
		}
	}
	return nil
}

// WithMaxLiveRoots returns a new config with the specified root limit
func (c Config) WithMaxLiveRoots(n int) Config {
	c.MaxLiveRoots = n
	return c
}

// WithCompactRatio returns a new config with the specified compaction ratio
func (c Config) WithCompactRatio(ratio float64) Config {
	c.CompactRatio = ratio
	return c
}

// WithPrefilter returns a new config with prefilter enabled/disabled
func (c Config) WithPrefilter(enabled bool) Config {
	c.EnablePrefilter = enabled
	return c
}

// WithSpanSuppression returns a new config with overlapping span
// suppression enabled/disabled
func (c Config) WithSpanSuppression(enabled bool) Config {
	c.SuppressOverlappingSpans = enabled
	return c
}

// WithFoldedFieldReferences returns a new config with case-insensitive
// field references enabled/disabled
func (c Config) WithFoldedFieldReferences(enabled bool) Config {
	c.FoldFieldReferences = enabled
	return c
}

// WithLogger returns a new config with the specified logger
func (c Config) WithLogger(logger *slog.Logger) Config {
	c.Logger = logger
	return c
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// LoadConfig reads a YAML document over DefaultConfig and validates it.
// Keys absent from the document keep their default values.
//
//	max_live_roots: 5000
//	suppress_overlapping_spans: false
func LoadConfig(r io.Reader) (Config, error) {
	config := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Wrap(err, "engine: decode config")
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}
