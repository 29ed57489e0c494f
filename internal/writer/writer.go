// internal/writer/writer.go
package writer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/plcdb/internal/datablock"
)

// Parse turns `name=value` arguments into typed assignments using the
// target's layout. Every argument is checked; all problems are reported
// together and nothing is returned if any argument is bad.
func Parse(t Target, args []string) ([]Assignment, error) {
	var errs []string
	out := make([]Assignment, 0, len(args))

	for _, arg := range args {
		name, raw, ok := strings.Cut(arg, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			errs = append(errs, fmt.Sprintf("writer: %q is not name=value", arg))
			continue
		}

		slot, found := t.Layout().Slot(name)
		if !found {
			errs = append(errs, fmt.Sprintf("writer: DB%d: %v: %q", t.Number(), datablock.ErrUnknownVariable, name))
			continue
		}

		v, err := datablock.ParseValue(slot.Type, raw)
		if err != nil {
			errs = append(errs, fmt.Sprintf("writer: DB%d %s: %v", t.Number(), name, err))
			continue
		}

		out = append(out, Assignment{Name: name, Value: v})
	}

	if len(errs) > 0 {
		return nil, errors.New(strings.Join(errs, " | "))
	}
	return out, nil
}

// Apply writes each assignment in order, one read-modify-write per
// assignment. It keeps going after a failed write and returns every failure.
// It returns the number of assignments written.
func Apply(ctx context.Context, t Target, as []Assignment) (int, error) {
	var errs []string
	written := 0

	for _, a := range as {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Sprintf("writer: DB%d: %v", t.Number(), err))
			break
		}
		if err := t.Write(ctx, a.Name, a.Value); err != nil {
			errs = append(errs, fmt.Sprintf("writer: DB%d %s: %v", t.Number(), a.Name, err))
			continue
		}
		written++
	}

	if len(errs) > 0 {
		return written, errors.New(strings.Join(errs, " | "))
	}
	return written, nil
}
