// internal/datablock/errors.go
package datablock

import "errors"

var (
	// ErrUnknownVariable is returned when a name is not part of the layout.
	ErrUnknownVariable = errors.New("datablock: unknown variable")

	// ErrUnsupportedType is returned for type tokens other than Real, Int, Bool.
	ErrUnsupportedType = errors.New("datablock: unsupported type")

	// ErrTypeMismatch is returned when a value is not representable in a slot's type.
	ErrTypeMismatch = errors.New("datablock: type mismatch")

	// ErrShortBuffer is returned when the controller hands back fewer bytes
	// than the layout needs.
	ErrShortBuffer = errors.New("datablock: short buffer")
)
