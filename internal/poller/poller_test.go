// internal/poller/poller_test.go
package poller

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	cfg "github.com/tamzrod/plcdb/internal/config"
	"github.com/tamzrod/plcdb/internal/controller/memory"
	"github.com/tamzrod/plcdb/internal/datablock"
)

type fakeBlock struct {
	number int
	fail   bool
	calls  int
}

func (f *fakeBlock) Number() int { return f.number }

func (f *fakeBlock) Refresh(ctx context.Context) error {
	f.calls++
	if f.fail {
		return errors.New("read failed")
	}
	return nil
}

func (f *fakeBlock) Values() map[string]any {
	return map[string]any{"x": int16(f.number)}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Interval: 0}, []Block{&fakeBlock{}}, nil)
	require.Error(t, err)

	_, err = New(Config{Interval: time.Second}, nil, nil)
	require.Error(t, err)
}

func TestPollOnce_Success(t *testing.T) {
	p, err := New(Config{Interval: time.Second}, []Block{&fakeBlock{number: 1}, &fakeBlock{number: 2}}, nil)
	require.NoError(t, err)

	res := p.PollOnce(context.Background())
	require.NoError(t, res.Err())
	require.Len(t, res.Blocks, 2)
	require.Equal(t, int16(2), res.Blocks[1].Values["x"])
}

func TestPollOnce_FailureIsolatedPerBlock(t *testing.T) {
	bad := &fakeBlock{number: 1, fail: true}
	good := &fakeBlock{number: 2}

	p, err := New(Config{Interval: time.Second}, []Block{bad, good}, nil)
	require.NoError(t, err)

	res := p.PollOnce(context.Background())
	require.Error(t, res.Err())
	require.Nil(t, res.Blocks[0].Values)
	require.NoError(t, res.Blocks[1].Err)
	require.Equal(t, 1, good.calls)
}

func TestRun_EmitsUntilCancelled(t *testing.T) {
	p, err := New(Config{Interval: 5 * time.Millisecond}, []Block{&fakeBlock{number: 1}}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan PollResult)
	done := make(chan struct{})
	go func() {
		p.Run(ctx, out)
		close(done)
	}()

	select {
	case res := <-out:
		require.Len(t, res.Blocks, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("no poll result")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestOpenBlocksAndBuild(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "db1.db"), []byte("a: Bool; b: Real;"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "db2.db"), []byte("n: Int;"), 0o644))

	c := &cfg.Config{
		Controller: cfg.ControllerConfig{Endpoint: "sim"},
		Blocks: []cfg.BlockConfig{
			{Number: 1, Declarations: "db1.db", RegisterBase: 0},
			{Number: 2, Declarations: "db2.db", RegisterBase: 3},
		},
	}
	require.NoError(t, cfg.Validate(c))
	cfg.Normalize(c, dir)

	mem := memory.New()
	blocks, err := OpenBlocks(c, mem)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	require.Equal(t, 6, blocks[0].Size())

	require.NoError(t, blocks[1].Write(context.Background(), "n", 5))

	p, err := Build(c, blocks, nil)
	require.NoError(t, err)

	res := p.PollOnce(context.Background())
	require.NoError(t, res.Err())
	require.Equal(t, int16(5), res.Blocks[1].Values["n"])
	require.Equal(t, []byte{0, 5}, mem.Bytes(datablock.AreaDB, 2))
}

func TestOpenBlocks_OverlapRejected(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "db.db"), []byte("a: Real;"), 0o644))

	c := &cfg.Config{
		Controller: cfg.ControllerConfig{Endpoint: "sim"},
		Blocks: []cfg.BlockConfig{
			{Number: 1, Declarations: "db.db", RegisterBase: 0},
			{Number: 2, Declarations: "db.db", RegisterBase: 1},
		},
	}
	cfg.Normalize(c, dir)

	_, err := OpenBlocks(c, memory.New())
	require.Error(t, err)
}
