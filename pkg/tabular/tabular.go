// Package tabular defines the row-and-column collaborator contracts
// around the cbf format: a Source the encoder consumes and a Consumer
// that adopts decoded zero-copy columns. An in-memory Table implements
// both sides.
package tabular

import "errors"

var (
	// ErrUnknownColumn indicates a column name the table does not carry.
	ErrUnknownColumn = errors.New("tabular: unknown column")

	// ErrLengthMismatch indicates a column whose length disagrees with the
	// table's row count.
	ErrLengthMismatch = errors.New("tabular: column length mismatch")

	// ErrReadOnlyColumn indicates an assignment into an adopted view
	// column. Adopted columns are never writable.
	ErrReadOnlyColumn = errors.New("tabular: column is read-only")
)

// Column is a read-only, randomly-indexable sequence with null reporting.
// cbf column views satisfy this contract directly.
type Column interface {
	Len() int
	IsNull(i int) bool
	Value(i int) any
}

// Source provides row-and-column shaped data to an encoder: column names
// in a stable order, a row count, and amortised O(1) cell access. A
// Source may expose a natural partitioning the encoder uses for batch
// boundaries; a nil partition list means one batch.
type Source interface {
	// Columns returns the column names in their stable order.
	Columns() []string

	// NumRows returns the number of rows.
	NumRows() int

	// Value returns the cell at (col, row) and whether it is present.
	// A false second result marks a null.
	Value(col string, row int) (any, bool)

	// Partitions returns an ordered batching hint, or nil.
	Partitions() []Source
}

// Consumer accepts named columns by adopting them as opaque read-only
// sequences, without copying. Implementations must reject assignment into
// adopted columns rather than corrupt shared views.
type Consumer interface {
	Adopt(name string, col Column) error
}
