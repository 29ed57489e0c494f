// internal/datablock/types.go
package datablock

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ScalarType is the closed set of variable types a data block can hold.
type ScalarType uint8

const (
	Real ScalarType = iota + 1 // 4 bytes, IEEE-754 single, big-endian
	Int                        // 2 bytes, signed, big-endian
	Bool                       // 1 bit, packed
)

// ParseType maps a declaration type token to a ScalarType.
// Tokens are matched case-insensitively.
func ParseType(token string) (ScalarType, error) {
	switch strings.ToLower(token) {
	case "real":
		return Real, nil
	case "int":
		return Int, nil
	case "bool":
		return Bool, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedType, token)
}

func (t ScalarType) String() string {
	switch t {
	case Real:
		return "Real"
	case Int:
		return "Int"
	case Bool:
		return "Bool"
	}
	return fmt.Sprintf("ScalarType(%d)", uint8(t))
}

// Width returns the number of bytes the type reserves.
// Bool reports 1: the whole byte its bit lives in.
func (t ScalarType) Width() int {
	switch t {
	case Real:
		return 4
	case Int:
		return 2
	case Bool:
		return 1
	}
	return 0
}

// decode reads a value of type t from buf. bit is ignored unless t is Bool.
// Returned values are float32, int16 or bool.
func (t ScalarType) decode(buf []byte, off, bit int) (any, error) {
	if off < 0 || off+t.Width() > len(buf) {
		return nil, fmt.Errorf("%w: %s at byte %d needs %d bytes, buffer has %d",
			ErrShortBuffer, t, off, t.Width(), len(buf))
	}

	switch t {
	case Real:
		return math.Float32frombits(binary.BigEndian.Uint32(buf[off:])), nil
	case Int:
		return int16(binary.BigEndian.Uint16(buf[off:])), nil
	case Bool:
		return buf[off]&(1<<uint(bit)) != 0, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
}

// encode writes v into buf in place. v must already be normalized by coerce.
func (t ScalarType) encode(buf []byte, off, bit int, v any) error {
	if off < 0 || off+t.Width() > len(buf) {
		return fmt.Errorf("%w: %s at byte %d needs %d bytes, buffer has %d",
			ErrShortBuffer, t, off, t.Width(), len(buf))
	}

	switch t {
	case Real:
		binary.BigEndian.PutUint32(buf[off:], math.Float32bits(v.(float32)))
	case Int:
		binary.BigEndian.PutUint16(buf[off:], uint16(v.(int16)))
	case Bool:
		if v.(bool) {
			buf[off] |= 1 << uint(bit)
		} else {
			buf[off] &^= 1 << uint(bit)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedType, t)
	}
	return nil
}

// coerce validates that v is representable as t and converts it to the
// canonical Go type (float32, int16, bool).
func (t ScalarType) coerce(v any) (any, error) {
	switch t {
	case Real:
		var f float64
		switch x := v.(type) {
		case float32:
			f = float64(x)
		case float64:
			f = x
		default:
			n, ok := asInt64(v)
			if !ok {
				return nil, mismatch(t, v)
			}
			f = float64(n)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: Real value %v is not finite", ErrTypeMismatch, f)
		}
		if math.Abs(f) > math.MaxFloat32 {
			return nil, fmt.Errorf("%w: Real value %v out of float32 range", ErrTypeMismatch, f)
		}
		return float32(f), nil

	case Int:
		n, ok := asInt64(v)
		if !ok {
			return nil, mismatch(t, v)
		}
		if n < math.MinInt16 || n > math.MaxInt16 {
			return nil, fmt.Errorf("%w: Int value %d out of range [%d, %d]",
				ErrTypeMismatch, n, math.MinInt16, math.MaxInt16)
		}
		return int16(n), nil

	case Bool:
		b, ok := v.(bool)
		if !ok {
			return nil, mismatch(t, v)
		}
		return b, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
}

// ParseValue converts the textual form of a value into the canonical Go
// value for t.
func ParseValue(t ScalarType, s string) (any, error) {
	s = strings.TrimSpace(s)

	switch t {
	case Real:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a Real", ErrTypeMismatch, s)
		}
		return t.coerce(f)
	case Int:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an Int", ErrTypeMismatch, s)
		}
		return t.coerce(n)
	case Bool:
		switch strings.ToLower(s) {
		case "1", "true", "on":
			return true, nil
		case "0", "false", "off":
			return false, nil
		}
		return nil, fmt.Errorf("%w: %q is not a Bool", ErrTypeMismatch, s)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint:
		if uint64(x) > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	case uint64:
		if x > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	}
	return 0, false
}

func mismatch(t ScalarType, v any) error {
	return fmt.Errorf("%w: cannot store %T in %s", ErrTypeMismatch, v, t)
}
