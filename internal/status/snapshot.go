// internal/status/snapshot.go
package status

import (
	"errors"

	mb "github.com/goburrow/modbus"
)

// Snapshot is the health of one data block as seen by the poller.
type Snapshot struct {
	Health         uint16
	LastErrorCode  uint16
	SecondsInError uint16
}

// Observe folds one refresh outcome into the snapshot.
// It reports whether anything changed.
func (s *Snapshot) Observe(err error) bool {
	changed := false

	if err == nil {
		// Recovery / OK
		if s.Health != HealthOK {
			s.Health = HealthOK
			changed = true
		}
		if s.LastErrorCode != 0 {
			s.LastErrorCode = 0
			changed = true
		}
		if s.SecondsInError != 0 {
			s.SecondsInError = 0
			changed = true
		}
		return changed
	}

	if s.Health != HealthError {
		s.Health = HealthError
		changed = true
	}

	// NOTE: seconds_in_error increments on Tick only.
	code := ErrorCode(err)
	if s.LastErrorCode != code {
		s.LastErrorCode = code
		changed = true
	}
	return changed
}

// Tick advances SecondsInError by one while the block is not OK.
// It reports whether the snapshot changed.
func (s *Snapshot) Tick() bool {
	if s.Health == HealthOK {
		return false
	}
	if s.SecondsInError >= MaxSecondsInError {
		return false
	}
	s.SecondsInError++
	return true
}

// ErrorCode extracts a best-effort uint16 code from an error without
// assuming concrete types. Modbus exceptions report their exception code.
// Errors that expose no code report GenericErrorCode.
func ErrorCode(err error) uint16 {
	if err == nil {
		return 0
	}

	var mbErr *mb.ModbusError
	if errors.As(err, &mbErr) {
		return uint16(mbErr.ExceptionCode)
	}

	type coder interface{ Code() uint16 }

	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}

	return GenericErrorCode
}
