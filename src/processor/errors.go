// Package processor implements the table transformations of the pipeline:
// per-year cleaning and merging, feature enrichment, and finalization into
// train/test sets.
package processor

import (
	"errors"
	"fmt"
)

// ErrMissingInput marks a per-year source file that is not on disk. The year
// is skipped; the run continues with the remaining years.
var ErrMissingInput = errors.New("missing input file")

// SchemaError reports an expected column absent from a source file. It is
// fatal for that year's merge only.
type SchemaError struct {
	File   string
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error in %s: missing column %s", e.File, e.Column)
}
