// internal/poller/types.go
package poller

import "time"

// BlockResult is the outcome of refreshing one data block.
type BlockResult struct {
	Number int
	Values map[string]any // nil when Err is set
	Err    error
}

// PollResult is a snapshot produced by one poll cycle.
type PollResult struct {
	At     time.Time
	Blocks []BlockResult
}

// Err returns the first block error of the cycle, if any.
func (r PollResult) Err() error {
	for _, b := range r.Blocks {
		if b.Err != nil {
			return b.Err
		}
	}
	return nil
}
