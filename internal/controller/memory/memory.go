// internal/controller/memory/memory.go
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/tamzrod/plcdb/internal/datablock"
)

type key struct {
	area  datablock.Area
	block int
}

// Controller is an in-process byte store implementing datablock.Controller.
// Areas grow on write; reads past the stored end return zeros.
type Controller struct {
	mu     sync.Mutex
	blocks map[key][]byte

	// Reads and Writes count completed round trips.
	Reads  int
	Writes int
}

func New() *Controller {
	return &Controller{blocks: make(map[key][]byte)}
}

// Set replaces the raw contents of a block.
func (c *Controller) Set(area datablock.Area, block int, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blocks[key{area, block}] = append([]byte(nil), data...)
}

// Bytes returns a copy of the raw contents of a block.
func (c *Controller) Bytes(area datablock.Area, block int) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.blocks[key{area, block}]...)
}

func (c *Controller) ReadArea(ctx context.Context, area datablock.Area, block, start, length int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if start < 0 || length < 0 {
		return nil, fmt.Errorf("memory controller: invalid range start=%d length=%d", start, length)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]byte, length)
	data := c.blocks[key{area, block}]
	if start < len(data) {
		copy(out, data[start:])
	}
	c.Reads++
	return out, nil
}

func (c *Controller) WriteArea(ctx context.Context, area datablock.Area, block, start int, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if start < 0 {
		return fmt.Errorf("memory controller: invalid start %d", start)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	k := key{area, block}
	cur := c.blocks[k]
	if end := start + len(data); end > len(cur) {
		grown := make([]byte, end)
		copy(grown, cur)
		cur = grown
	}
	copy(cur[start:], data)
	c.blocks[k] = cur
	c.Writes++
	return nil
}
