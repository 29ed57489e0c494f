// internal/datablock/layout.go
package datablock

import (
	"fmt"
	"os"
	"regexp"

	"go.uber.org/zap"
)

// Alignment selects where a non-Bool scalar may start.
type Alignment uint8

const (
	// AlignEven pads scalars to the next even byte (S7 word alignment).
	AlignEven Alignment = iota
	// AlignByte lets scalars start at any byte not shared with Bool bits.
	AlignByte
)

// ParseAlignment maps a config token to an Alignment. Empty means AlignEven.
func ParseAlignment(s string) (Alignment, error) {
	switch s {
	case "", "even":
		return AlignEven, nil
	case "byte":
		return AlignByte, nil
	}
	return 0, fmt.Errorf("datablock: unknown alignment %q (want even|byte)", s)
}

func (a Alignment) String() string {
	if a == AlignByte {
		return "byte"
	}
	return "even"
}

// Options control how declarations are laid out.
type Options struct {
	Alignment Alignment

	// Strict turns unsupported type tokens into an error instead of
	// reporting them as skipped.
	Strict bool
}

// Slot is the position of one variable inside the data block.
type Slot struct {
	Name       string
	Type       ScalarType
	ByteOffset int
	BitOffset  int // Bool only
}

// End returns the first byte past the slot.
func (s Slot) End() int {
	return s.ByteOffset + s.Type.Width()
}

func (s Slot) String() string {
	if s.Type == Bool {
		return fmt.Sprintf("%s %s @%d.%d", s.Name, s.Type, s.ByteOffset, s.BitOffset)
	}
	return fmt.Sprintf("%s %s @%d", s.Name, s.Type, s.ByteOffset)
}

// SkipReason tells why a declaration did not become a slot.
type SkipReason string

const (
	SkipUnsupported SkipReason = "unsupported type"
	SkipDuplicate   SkipReason = "duplicate name"
)

// Skipped is a matched declaration that is not part of the layout.
type Skipped struct {
	Name   string
	Type   string
	Reason SkipReason
}

// Layout is the immutable, declaration-ordered set of slots of a data block.
type Layout struct {
	slots []Slot
	index map[string]int
	size  int
}

// declRe matches `<identifier> : <identifier> ;` anywhere in the text.
var declRe = regexp.MustCompile(`(\w+)\s*:\s*(\w+)\s*;`)

// Parse derives a Layout from declaration text.
//
// Bools are packed LSB first into consecutive bytes. A scalar following
// Bools starts on a fresh byte, and under AlignEven on an even one.
// Unsupported types do not move the cursors.
func Parse(text string, opts Options) (*Layout, []Skipped, error) {
	l := &Layout{index: make(map[string]int)}
	var skipped []Skipped

	byteCur, bitCur := 0, 0

	for _, m := range declRe.FindAllStringSubmatch(text, -1) {
		name, token := m[1], m[2]

		typ, err := ParseType(token)
		if err != nil {
			if opts.Strict {
				return nil, nil, fmt.Errorf("declaration %q: %w", name, err)
			}
			skipped = append(skipped, Skipped{Name: name, Type: token, Reason: SkipUnsupported})
			continue
		}

		slot := Slot{Name: name, Type: typ}

		if typ == Bool {
			slot.ByteOffset, slot.BitOffset = byteCur, bitCur
			bitCur++
			if bitCur == 8 {
				bitCur = 0
				byteCur++
			}
		} else {
			// close an open Bool byte
			if bitCur > 0 {
				byteCur++
				bitCur = 0
			}
			if opts.Alignment == AlignEven && byteCur%2 != 0 {
				byteCur++
			}
			slot.ByteOffset = byteCur
			byteCur += typ.Width()
		}

		// A repeated name still occupies memory in the controller.
		if _, dup := l.index[name]; dup {
			skipped = append(skipped, Skipped{Name: name, Type: token, Reason: SkipDuplicate})
			continue
		}

		l.index[name] = len(l.slots)
		l.slots = append(l.slots, slot)
		if end := slot.End(); end > l.size {
			l.size = end
		}
	}

	return l, skipped, nil
}

// ParseFile reads a declaration file and parses it. Skipped declarations
// are logged as warnings.
func ParseFile(path string, opts Options) (*Layout, []Skipped, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("datablock: read declarations: %w", err)
	}

	l, skipped, err := Parse(string(b), opts)
	if err != nil {
		return nil, nil, fmt.Errorf("datablock: %s: %w", path, err)
	}

	for _, s := range skipped {
		Logger().Warn("declaration skipped",
			zap.String("file", path),
			zap.String("name", s.Name),
			zap.String("type", s.Type),
			zap.String("reason", string(s.Reason)))
	}
	Logger().Debug("layout parsed",
		zap.String("file", path),
		zap.Int("slots", l.Len()),
		zap.Int("size", l.Size()),
		zap.Stringer("alignment", opts.Alignment))

	return l, skipped, nil
}

// Len returns the number of slots.
func (l *Layout) Len() int { return len(l.slots) }

// Size returns the minimum buffer length holding every slot, i.e. the
// largest occupied end byte.
func (l *Layout) Size() int { return l.size }

// Slot looks up a slot by name.
func (l *Layout) Slot(name string) (Slot, bool) {
	i, ok := l.index[name]
	if !ok {
		return Slot{}, false
	}
	return l.slots[i], true
}

// Slots returns a copy of all slots in declaration order.
func (l *Layout) Slots() []Slot {
	out := make([]Slot, len(l.slots))
	copy(out, l.slots)
	return out
}
