// internal/status/constants.go
package status

// ---- HEALTH CODES ----

// HealthUnknown represents the state before the first poll.
const HealthUnknown uint16 = 0

// HealthOK represents a block whose last refresh succeeded.
const HealthOK uint16 = 1

// HealthError represents a block whose last refresh failed.
const HealthError uint16 = 2

// ---- LIMITS ----

// MaxSecondsInError is where SecondsInError saturates. It MUST NOT wrap.
const MaxSecondsInError = 65535

// GenericErrorCode is reported for errors that carry no code of their own.
const GenericErrorCode uint16 = 1

// HealthName returns a short label for a health code.
func HealthName(h uint16) string {
	switch h {
	case HealthUnknown:
		return "unknown"
	case HealthOK:
		return "ok"
	case HealthError:
		return "error"
	}
	return "invalid"
}
