// internal/poller/poller.go
package poller

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Block abstracts the data block operations the poller needs.
type Block interface {
	Number() int
	Refresh(ctx context.Context) error
	Values() map[string]any
}

// Config is the minimal runtime config the poller needs.
type Config struct {
	Interval time.Duration
}

// Poller is a dumb, clock-driven reader.
type Poller struct {
	cfg    Config
	blocks []Block
	log    *zap.Logger
}

// New creates a poller with immutable config.
func New(cfg Config, blocks []Block, log *zap.Logger) (*Poller, error) {
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if len(blocks) == 0 {
		return nil, errors.New("poller: at least one block required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Poller{cfg: cfg, blocks: blocks, log: log}, nil
}

// PollOnce refreshes every block exactly once, in order.
// Blocks are independent: one failing block does not abort the others,
// and a failed block reports no values.
func (p *Poller) PollOnce(ctx context.Context) PollResult {
	res := PollResult{
		At:     time.Now(),
		Blocks: make([]BlockResult, 0, len(p.blocks)),
	}

	for _, b := range p.blocks {
		br := BlockResult{Number: b.Number()}

		if err := b.Refresh(ctx); err != nil {
			p.log.Warn("refresh failed", zap.Int("db", br.Number), zap.Error(err))
			br.Err = err
		} else {
			br.Values = b.Values()
		}

		res.Blocks = append(res.Blocks, br)
	}

	return res
}
