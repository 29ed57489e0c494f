// internal/config/validate.go
package config

import (
	"errors"
	"fmt"

	"go.uber.org/zap/zapcore"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil")
	}

	// ------------------------------------------------------------
	// CONTROLLER
	// ------------------------------------------------------------

	if cfg.Controller.Endpoint == "" {
		return errors.New("controller.endpoint is required")
	}
	if cfg.Controller.TimeoutMs < 0 {
		return fmt.Errorf("controller.timeout_ms must be >= 0, got %d", cfg.Controller.TimeoutMs)
	}

	// ------------------------------------------------------------
	// DATA BLOCKS
	// ------------------------------------------------------------

	if len(cfg.Blocks) == 0 {
		return errors.New("at least one block is required")
	}

	seen := make(map[int]struct{})

	for _, b := range cfg.Blocks {
		if b.Number < 0 {
			return fmt.Errorf("block %d: number must be >= 0", b.Number)
		}
		if _, dup := seen[b.Number]; dup {
			return fmt.Errorf("block %d: declared more than once", b.Number)
		}
		seen[b.Number] = struct{}{}

		if b.Declarations == "" {
			return fmt.Errorf("block %d: declarations path is required", b.Number)
		}

		switch b.Alignment {
		case "", "even", "byte":
		default:
			return fmt.Errorf("block %d: alignment must be even or byte, got %q", b.Number, b.Alignment)
		}
	}

	// ------------------------------------------------------------
	// POLL / LOG
	// ------------------------------------------------------------

	if cfg.Poll.IntervalMs < 0 {
		return fmt.Errorf("poll.interval_ms must be >= 0, got %d", cfg.Poll.IntervalMs)
	}

	if cfg.Log.Level != "" {
		if _, err := zapcore.ParseLevel(cfg.Log.Level); err != nil {
			return fmt.Errorf("log.level: %w", err)
		}
	}

	return nil
}

// ValidateSpans checks that no two blocks share controller registers once
// their sizes (in bytes) are known. Blocks missing from sizes are ignored.
func ValidateSpans(cfg *Config, sizes map[int]int) error {
	type span struct {
		start int
		end   int // inclusive
		block int
	}

	var spans []span

	for _, b := range cfg.Blocks {
		size, ok := sizes[b.Number]
		if !ok || size == 0 {
			continue
		}

		start := int(b.RegisterBase)
		end := start + (size+1)/2 - 1

		if end > 0xFFFF {
			return fmt.Errorf(
				"block %d: register range %d-%d exceeds 65535",
				b.Number,
				start,
				end,
			)
		}

		for _, s := range spans {
			// overlap check (inclusive)
			if !(end < s.start || start > s.end) {
				return fmt.Errorf(
					"register overlap: block %d range=%d-%d overlaps with block %d range=%d-%d",
					b.Number,
					start,
					end,
					s.block,
					s.start,
					s.end,
				)
			}
		}

		spans = append(spans, span{
			start: start,
			end:   end,
			block: b.Number,
		})
	}

	return nil
}
