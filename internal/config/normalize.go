// internal/config/normalize.go
package config

import "path/filepath"

const (
	DefaultTimeoutMs  = 1000
	DefaultIntervalMs = 1000
	DefaultLogLevel   = "info"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
//
// baseDir is the directory of the config file; relative declaration paths
// are resolved against it.
func Normalize(cfg *Config, baseDir string) {
	if cfg == nil {
		return
	}

	if cfg.Controller.TimeoutMs == 0 {
		cfg.Controller.TimeoutMs = DefaultTimeoutMs
	}
	if cfg.Poll.IntervalMs == 0 {
		cfg.Poll.IntervalMs = DefaultIntervalMs
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}

	for i := range cfg.Blocks {
		b := &cfg.Blocks[i]

		if b.Alignment == "" {
			b.Alignment = "even"
		}

		if baseDir != "" && !filepath.IsAbs(b.Declarations) {
			b.Declarations = filepath.Join(baseDir, b.Declarations)
		}
	}
}
