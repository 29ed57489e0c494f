// internal/datablock/block.go
package datablock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Area identifies a controller memory area.
type Area uint8

// AreaDB is the data block area (S7 area code 0x84).
const AreaDB Area = 0x84

// Controller is the raw byte-range transport a data block needs.
// Implementations own connection handling, timeouts and retries.
type Controller interface {
	ReadArea(ctx context.Context, area Area, block, start, length int) ([]byte, error)
	WriteArea(ctx context.Context, area Area, block, start int, data []byte) error
}

// DataBlock gives typed access to the variables of one controller data block.
// Refresh and Write on the same DataBlock are serialized; nothing protects
// against other actors writing the block between a Write's read and write.
type DataBlock struct {
	number int
	layout *Layout
	ctrl   Controller

	ioMu sync.Mutex // serializes controller round trips

	mu     sync.RWMutex
	values map[string]any
}

// New binds a layout to a controller data block. No I/O is performed.
func New(number int, layout *Layout, ctrl Controller) (*DataBlock, error) {
	if number < 0 {
		return nil, fmt.Errorf("datablock: invalid block number %d", number)
	}
	if layout == nil {
		return nil, errors.New("datablock: layout required")
	}
	if ctrl == nil {
		return nil, errors.New("datablock: controller required")
	}
	return &DataBlock{
		number: number,
		layout: layout,
		ctrl:   ctrl,
	}, nil
}

// Open parses the declaration file at path and binds it to block number.
func Open(number int, path string, opts Options, ctrl Controller) (*DataBlock, error) {
	l, _, err := ParseFile(path, opts)
	if err != nil {
		return nil, err
	}
	return New(number, l, ctrl)
}

// Number returns the controller data block number.
func (db *DataBlock) Number() int { return db.number }

func (db *DataBlock) Layout() *Layout { return db.layout }

// Size returns the number of bytes read and written per round trip.
func (db *DataBlock) Size() int { return db.layout.Size() }

// Refresh reads the whole block and replaces every cached value.
// All-or-nothing: on error the cache is left as it was.
func (db *DataBlock) Refresh(ctx context.Context) error {
	db.ioMu.Lock()
	defer db.ioMu.Unlock()

	start := time.Now()

	buf, err := db.read(ctx)
	if err != nil {
		return err
	}

	values := make(map[string]any, db.layout.Len())
	for _, s := range db.layout.slots {
		v, err := s.Type.decode(buf, s.ByteOffset, s.BitOffset)
		if err != nil {
			return fmt.Errorf("datablock: DB%d %s: %w", db.number, s.Name, err)
		}
		values[s.Name] = v
	}

	db.mu.Lock()
	db.values = values
	db.mu.Unlock()

	Logger().Debug("data block refreshed",
		zap.Int("db", db.number),
		zap.Int("size", len(buf)),
		zap.Duration("took", time.Since(start)))
	return nil
}

// Write stores v into the named variable with a read-modify-write of the
// whole block. v is validated against the slot type before any I/O.
// On success only the written variable's cached value changes; on failure
// the cache is untouched and may be stale.
func (db *DataBlock) Write(ctx context.Context, name string, v any) error {
	slot, ok := db.layout.Slot(name)
	if !ok {
		return fmt.Errorf("%w: %q in DB%d", ErrUnknownVariable, name, db.number)
	}

	cv, err := slot.Type.coerce(v)
	if err != nil {
		return fmt.Errorf("datablock: DB%d %s: %w", db.number, name, err)
	}

	db.ioMu.Lock()
	defer db.ioMu.Unlock()

	if err := db.readModifyWrite(ctx, func(buf []byte) error {
		return slot.Type.encode(buf, slot.ByteOffset, slot.BitOffset, cv)
	}); err != nil {
		return err
	}

	db.mu.Lock()
	if db.values == nil {
		db.values = make(map[string]any, db.layout.Len())
	}
	db.values[name] = cv
	db.mu.Unlock()

	Logger().Debug("data block variable written",
		zap.Int("db", db.number),
		zap.String("name", name),
		zap.Any("value", cv))
	return nil
}

// readModifyWrite owns the buffer for the whole fetch, mutate, store cycle.
// The buffer never outlives the call.
func (db *DataBlock) readModifyWrite(ctx context.Context, mutate func([]byte) error) error {
	buf, err := db.read(ctx)
	if err != nil {
		return err
	}
	if err := mutate(buf); err != nil {
		return fmt.Errorf("datablock: DB%d: %w", db.number, err)
	}
	if err := db.ctrl.WriteArea(ctx, AreaDB, db.number, 0, buf); err != nil {
		return fmt.Errorf("datablock: write DB%d: %w", db.number, err)
	}
	return nil
}

func (db *DataBlock) read(ctx context.Context) ([]byte, error) {
	size := db.layout.Size()

	buf, err := db.ctrl.ReadArea(ctx, AreaDB, db.number, 0, size)
	if err != nil {
		return nil, fmt.Errorf("datablock: read DB%d: %w", db.number, err)
	}
	if len(buf) < size {
		return nil, fmt.Errorf("%w: DB%d returned %d bytes, want %d",
			ErrShortBuffer, db.number, len(buf), size)
	}
	// Longer replies are trimmed so a write never extends the block.
	return buf[:size:size], nil
}

// Value returns the cached value of name from the last Refresh or Write.
// ok is false if the name is unknown or has not been read yet.
func (db *DataBlock) Value(name string) (v any, ok bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	v, ok = db.values[name]
	return v, ok
}

// Values returns a copy of all cached values.
func (db *DataBlock) Values() map[string]any {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make(map[string]any, len(db.values))
	for k, v := range db.values {
		out[k] = v
	}
	return out
}
