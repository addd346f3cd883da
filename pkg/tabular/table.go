package tabular

import "fmt"

// Table is an in-memory implementation of both Source and Consumer.
// Columns added with AddColumn are slice-backed and writable through Set;
// columns adopted from decoded buffers stay read-only views.
type Table struct {
	names []string
	cols  map[string]tableColumn
	rows  int
}

type tableColumn interface {
	Column
	set(i int, v any) error
}

// sliceColumn is a writable, slice-backed column; nil marks a null.
type sliceColumn struct {
	values []any
}

func (c *sliceColumn) Len() int           { return len(c.values) }
func (c *sliceColumn) IsNull(i int) bool  { return c.values[i] == nil }
func (c *sliceColumn) Value(i int) any    { return c.values[i] }
func (c *sliceColumn) set(i int, v any) error {
	if i < 0 || i >= len(c.values) {
		return fmt.Errorf("%w: row %d", ErrLengthMismatch, i)
	}
	c.values[i] = v
	return nil
}

// viewColumn wraps an adopted read-only column.
type viewColumn struct {
	Column
}

func (c viewColumn) set(int, any) error { return ErrReadOnlyColumn }

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{cols: make(map[string]tableColumn)}
}

// FromColumns builds a table from named value slices.
func FromColumns(names []string, values [][]any) (*Table, error) {
	if len(names) != len(values) {
		return nil, fmt.Errorf("%w: %d names for %d columns", ErrLengthMismatch, len(names), len(values))
	}
	t := NewTable()
	for i, name := range names {
		if err := t.AddColumn(name, values[i]); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// AddColumn appends a writable slice-backed column.
func (t *Table) AddColumn(name string, values []any) error {
	if err := t.checkNew(name, len(values)); err != nil {
		return err
	}
	t.insert(name, &sliceColumn{values: values}, len(values))
	return nil
}

// Adopt accepts a decoded column view without copying. The column becomes
// part of the table but stays read-only.
func (t *Table) Adopt(name string, col Column) error {
	if err := t.checkNew(name, col.Len()); err != nil {
		return err
	}
	t.insert(name, viewColumn{col}, col.Len())
	return nil
}

func (t *Table) checkNew(name string, length int) error {
	if _, exists := t.cols[name]; exists {
		return fmt.Errorf("tabular: column %q already present", name)
	}
	if len(t.names) > 0 && length != t.rows {
		return fmt.Errorf("%w: column %q has %d rows, table has %d", ErrLengthMismatch, name, length, t.rows)
	}
	return nil
}

func (t *Table) insert(name string, col tableColumn, length int) {
	if len(t.names) == 0 {
		t.rows = length
	}
	t.names = append(t.names, name)
	t.cols[name] = col
}

// Columns returns the column names in insertion order.
func (t *Table) Columns() []string {
	cp := make([]string, len(t.names))
	copy(cp, t.names)
	return cp
}

// NumRows returns the table's row count.
func (t *Table) NumRows() int { return t.rows }

// Value returns the cell at (col, row) and whether it is present.
func (t *Table) Value(col string, row int) (any, bool) {
	c, ok := t.cols[col]
	if !ok {
		return nil, false
	}
	if c.IsNull(row) {
		return nil, false
	}
	return c.Value(row), true
}

// Column returns the named column.
func (t *Table) Column(name string) (Column, bool) {
	c, ok := t.cols[name]
	return c, ok
}

// Set assigns into a slice-backed column. Assigning into an adopted view
// column fails with ErrReadOnlyColumn.
func (t *Table) Set(col string, row int, v any) error {
	c, ok := t.cols[col]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownColumn, col)
	}
	return c.set(row, v)
}

// Partitions returns nil: an in-memory table encodes as a single batch
// unless the caller slices it up.
func (t *Table) Partitions() []Source { return nil }
