// internal/controller/modbus/client.go
package modbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"

	"github.com/tamzrod/plcdb/internal/datablock"
)

// Per-request register limits of the Modbus protocol (FC3 / FC16).
const (
	maxReadRegs  = 125
	maxWriteRegs = 123
)

// registerClient is the subset of modbus.Client the controller uses.
type registerClient interface {
	ReadHoldingRegisters(address, quantity uint16) ([]byte, error)
	WriteMultipleRegisters(address, quantity uint16, value []byte) ([]byte, error)
}

// Controller exposes controller data blocks over Modbus TCP.
// Each data block is mapped onto a window of holding registers starting at
// its base address; register bytes are big-endian, so byte i of the block
// is the high byte of register base+i/2 when i is even.
//
// Blocks larger than one request are read and written in chunks, so only
// blocks up to 250 bytes (read) / 246 bytes (write) are transferred in a
// single request.
type Controller struct {
	mu      sync.Mutex
	handler *modbus.TCPClientHandler
	client  registerClient
	bases   map[int]uint16
}

type Config struct {
	Endpoint string
	UnitID   uint8
	Timeout  time.Duration

	// Bases maps data block number to its first holding register.
	Bases map[int]uint16
}

// New connects to a Modbus TCP endpoint.
func New(cfg Config) (*Controller, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("modbus controller: endpoint required")
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout
	h.SlaveId = cfg.UnitID

	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("modbus controller: connect %s: %w", cfg.Endpoint, err)
	}

	return newController(h, modbus.NewClient(h), cfg.Bases), nil
}

func newController(h *modbus.TCPClientHandler, c registerClient, bases map[int]uint16) *Controller {
	cp := make(map[int]uint16, len(bases))
	for k, v := range bases {
		cp[k] = v
	}
	return &Controller{handler: h, client: c, bases: cp}
}

func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handler == nil {
		return nil
	}
	return c.handler.Close()
}

// ReadArea reads length bytes of a data block starting at byte start.
func (c *Controller) ReadArea(ctx context.Context, area datablock.Area, block, start, length int) ([]byte, error) {
	if length == 0 {
		return []byte{}, nil
	}
	first, qty, err := c.window(area, block, start, length)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := c.readRegs(ctx, first, qty)
	if err != nil {
		return nil, err
	}

	skip := start % 2
	return raw[skip : skip+length], nil
}

// WriteArea writes data into a data block starting at byte start.
// Bytes sharing a register with data but outside it are read back first
// and preserved.
func (c *Controller) WriteArea(ctx context.Context, area datablock.Area, block, start int, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	first, qty, err := c.window(area, block, start, len(data))
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	payload := make([]byte, int(qty)*2)
	skip := start % 2
	copy(payload[skip:], data)

	// odd edges: keep the neighbouring byte of the first / last register
	if skip == 1 {
		r, err := c.readRegs(ctx, first, 1)
		if err != nil {
			return err
		}
		payload[0] = r[0]
	}
	if end := skip + len(data); end%2 == 1 {
		last := first + qty - 1
		r, err := c.readRegs(ctx, last, 1)
		if err != nil {
			return err
		}
		payload[len(payload)-1] = r[1]
	}

	for off := 0; off < int(qty); off += maxWriteRegs {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := min(int(qty)-off, maxWriteRegs)
		addr := first + uint16(off)
		if _, err := c.client.WriteMultipleRegisters(addr, uint16(n), payload[off*2:(off+n)*2]); err != nil {
			return fmt.Errorf("modbus controller: write regs addr=%d qty=%d: %w", addr, n, err)
		}
	}
	return nil
}

// window converts a byte range of a block into a register range.
func (c *Controller) window(area datablock.Area, block, start, length int) (uint16, uint16, error) {
	if area != datablock.AreaDB {
		return 0, 0, fmt.Errorf("modbus controller: unsupported area 0x%02x", uint8(area))
	}
	base, ok := c.bases[block]
	if !ok {
		return 0, 0, fmt.Errorf("modbus controller: no register base for DB%d", block)
	}
	if start < 0 || length < 0 {
		return 0, 0, fmt.Errorf("modbus controller: invalid range start=%d length=%d", start, length)
	}

	firstReg := int(base) + start/2
	lastReg := int(base) + (start+length-1)/2
	if lastReg > 0xFFFF || lastReg-firstReg+1 > 0xFFFF {
		return 0, 0, fmt.Errorf("modbus controller: DB%d range exceeds register space", block)
	}
	return uint16(firstReg), uint16(lastReg - firstReg + 1), nil
}

func (c *Controller) readRegs(ctx context.Context, addr, qty uint16) ([]byte, error) {
	out := make([]byte, 0, int(qty)*2)
	for off := 0; off < int(qty); off += maxReadRegs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n := min(int(qty)-off, maxReadRegs)
		a := addr + uint16(off)
		b, err := c.client.ReadHoldingRegisters(a, uint16(n))
		if err != nil {
			return nil, fmt.Errorf("modbus controller: read regs addr=%d qty=%d: %w", a, n, err)
		}
		if len(b) < n*2 {
			return nil, fmt.Errorf("modbus controller: short reply addr=%d: got %d bytes want %d", a, len(b), n*2)
		}
		out = append(out, b[:n*2]...)
	}
	return out, nil
}
