// cmd/plcdb/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tamzrod/plcdb/internal/config"
	"github.com/tamzrod/plcdb/internal/controller/memory"
	"github.com/tamzrod/plcdb/internal/controller/modbus"
	"github.com/tamzrod/plcdb/internal/datablock"
	"github.com/tamzrod/plcdb/internal/poller"
	"github.com/tamzrod/plcdb/internal/status"
	"github.com/tamzrod/plcdb/internal/writer"
)

const usage = `usage: plcdb [-sim] <config.yaml> <command> [args]

commands:
  layout [db]                      print slot offsets and block sizes
  read   [db]                      refresh and print values
  write  <db> name=value ...       read-modify-write variables
  monitor                          poll all blocks until interrupted
`

func main() {
	sim := flag.Bool("sim", false, "use an in-memory controller instead of Modbus TCP")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 2 {
		flag.Usage()
		os.Exit(2)
	}

	cfgPath := flag.Arg(0)
	cmd := flag.Arg(1)
	args := flag.Args()[2:]

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fatal("config load failed: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		fatal("config validation failed: %v", err)
	}
	config.Normalize(cfg, filepath.Dir(cfgPath))

	log, err := buildLogger(cfg.Log)
	if err != nil {
		fatal("logger: %v", err)
	}
	defer log.Sync() //nolint:errcheck

	datablock.SetLogger(log.Named("datablock"))

	// --------------------
	// Controller + blocks
	// --------------------

	ctrl, closeCtrl, err := buildController(cfg, *sim)
	if err != nil {
		log.Fatal("controller connect failed", zap.String("endpoint", cfg.Controller.Endpoint), zap.Error(err))
	}
	defer closeCtrl()

	blocks, err := poller.OpenBlocks(cfg, ctrl)
	if err != nil {
		log.Fatal("data blocks failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "layout":
		sel, err := selectBlocks(blocks, args)
		if err != nil {
			log.Fatal("layout", zap.Error(err))
		}
		printLayout(sel)

	case "read":
		sel, err := selectBlocks(blocks, args)
		if err != nil {
			log.Fatal("read", zap.Error(err))
		}
		for _, db := range sel {
			if err := db.Refresh(ctx); err != nil {
				log.Fatal("refresh failed", zap.Int("db", db.Number()), zap.Error(err))
			}
		}
		printValues(sel)

	case "write":
		if len(args) < 2 {
			flag.Usage()
			os.Exit(2)
		}
		sel, err := selectBlocks(blocks, args[:1])
		if err != nil {
			log.Fatal("write", zap.Error(err))
		}
		db := sel[0]

		as, err := writer.Parse(db, args[1:])
		if err != nil {
			log.Fatal("bad assignments", zap.Error(err))
		}
		n, err := writer.Apply(ctx, db, as)
		if err != nil {
			log.Fatal("write failed", zap.Int("db", db.Number()), zap.Int("written", n), zap.Error(err))
		}
		log.Info("write complete", zap.Int("db", db.Number()), zap.Int("written", n))

	case "monitor":
		if err := monitor(ctx, cfg, blocks, log); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatal("monitor", zap.Error(err))
		}

	default:
		flag.Usage()
		os.Exit(2)
	}
}

// monitor polls every block and tracks per-block health.
// Health changes are logged; values are logged at debug.
func monitor(ctx context.Context, cfg *config.Config, blocks []*datablock.DataBlock, log *zap.Logger) error {
	p, err := poller.Build(cfg, blocks, log.Named("poller"))
	if err != nil {
		return err
	}

	out := make(chan poller.PollResult)
	go p.Run(ctx, out)

	snaps := make(map[int]*status.Snapshot, len(blocks))
	for _, db := range blocks {
		snaps[db.Number()] = &status.Snapshot{Health: status.HealthUnknown}
	}

	secTicker := time.NewTicker(time.Second)
	defer secTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case res := <-out:
			for _, b := range res.Blocks {
				snap := snaps[b.Number]
				if snap.Observe(b.Err) {
					logHealth(log, b.Number, *snap, b.Err)
				}
				if b.Err == nil {
					log.Debug("values", zap.Int("db", b.Number), zap.Any("values", b.Values))
				}
			}

		case <-secTicker.C:
			// NOTE: seconds_in_error only advances here.
			for _, snap := range snaps {
				snap.Tick()
			}
		}
	}
}

func logHealth(log *zap.Logger, db int, s status.Snapshot, err error) {
	fields := []zap.Field{
		zap.Int("db", db),
		zap.String("health", status.HealthName(s.Health)),
		zap.Uint16("last_error_code", s.LastErrorCode),
		zap.Uint16("seconds_in_error", s.SecondsInError),
	}
	if err != nil {
		log.Warn("block health changed", append(fields, zap.Error(err))...)
		return
	}
	log.Info("block health changed", fields...)
}

func buildController(cfg *config.Config, sim bool) (datablock.Controller, func(), error) {
	if sim {
		return memory.New(), func() {}, nil
	}

	bases := make(map[int]uint16, len(cfg.Blocks))
	for _, b := range cfg.Blocks {
		bases[b.Number] = b.RegisterBase
	}

	c, err := modbus.New(modbus.Config{
		Endpoint: cfg.Controller.Endpoint,
		UnitID:   cfg.Controller.UnitID,
		Timeout:  time.Duration(cfg.Controller.TimeoutMs) * time.Millisecond,
		Bases:    bases,
	})
	if err != nil {
		return nil, nil, err
	}
	return c, func() { _ = c.Close() }, nil
}

func buildLogger(lc config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(lc.Level)
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	if lc.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// selectBlocks returns all blocks, or the one named by args[0].
func selectBlocks(blocks []*datablock.DataBlock, args []string) ([]*datablock.DataBlock, error) {
	if len(args) == 0 {
		return blocks, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return nil, fmt.Errorf("block number %q: %w", args[0], err)
	}
	for _, db := range blocks {
		if db.Number() == n {
			return []*datablock.DataBlock{db}, nil
		}
	}
	return nil, fmt.Errorf("block %d is not configured", n)
}

func printLayout(blocks []*datablock.DataBlock) {
	for _, db := range blocks {
		fmt.Printf("DB%d (size=%d)\n", db.Number(), db.Size())
		for _, s := range db.Layout().Slots() {
			if s.Type == datablock.Bool {
				fmt.Printf("  %-24s %-5s %d.%d\n", s.Name, s.Type, s.ByteOffset, s.BitOffset)
			} else {
				fmt.Printf("  %-24s %-5s %d\n", s.Name, s.Type, s.ByteOffset)
			}
		}
	}
}

func printValues(blocks []*datablock.DataBlock) {
	for _, db := range blocks {
		fmt.Printf("DB%d\n", db.Number())
		for _, s := range db.Layout().Slots() {
			v, _ := db.Value(s.Name)
			fmt.Printf("  %-24s %-5s %v\n", s.Name, s.Type, v)
		}
	}
}

func fatal(format string, a ...any) {
	fmt.Fprintf(os.Stderr, "plcdb: "+format+"\n", a...)
	os.Exit(1)
}
