// internal/writer/types.go
package writer

import (
	"context"

	"github.com/tamzrod/plcdb/internal/datablock"
)

// Assignment is one `name=value` request with its value already parsed
// for the target slot.
type Assignment struct {
	Name  string
	Value any
}

// Target is the data block contract the writer uses.
type Target interface {
	Number() int
	Layout() *datablock.Layout
	Write(ctx context.Context, name string, v any) error
}
