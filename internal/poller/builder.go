// internal/poller/builder.go
package poller

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	cfg "github.com/tamzrod/plcdb/internal/config"
	"github.com/tamzrod/plcdb/internal/datablock"
)

// OpenBlocks parses every configured declaration file and binds it to ctrl.
// Register windows are checked for overlap once sizes are known.
func OpenBlocks(c *cfg.Config, ctrl datablock.Controller) ([]*datablock.DataBlock, error) {
	blocks := make([]*datablock.DataBlock, 0, len(c.Blocks))
	sizes := make(map[int]int, len(c.Blocks))

	for _, b := range c.Blocks {
		align, err := datablock.ParseAlignment(b.Alignment)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", b.Number, err)
		}

		db, err := datablock.Open(b.Number, b.Declarations, datablock.Options{
			Alignment: align,
			Strict:    b.StrictTypes,
		}, ctrl)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", b.Number, err)
		}

		blocks = append(blocks, db)
		sizes[b.Number] = db.Size()
	}

	if err := cfg.ValidateSpans(c, sizes); err != nil {
		return nil, err
	}

	return blocks, nil
}

// Build constructs a Poller over already opened blocks.
func Build(c *cfg.Config, blocks []*datablock.DataBlock, log *zap.Logger) (*Poller, error) {
	bs := make([]Block, 0, len(blocks))
	for _, b := range blocks {
		bs = append(bs, b)
	}

	return New(
		Config{Interval: time.Duration(c.Poll.IntervalMs) * time.Millisecond},
		bs,
		log,
	)
}
