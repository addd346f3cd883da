package cbf

import (
	"fmt"
	"sort"
	"time"
)

// Chained presents an ordered sequence of same-typed columns, typically
// one per batch, as a single logical column. It owns no data: it holds
// references to the constituent views and resolves a global row index to
// the right constituent with a binary search over cumulative lengths.
// Chained is immutable and safe to share across goroutines.
type Chained struct {
	field  Field
	cols   []*Column
	cum    []int // cum[i] = rows in cols[:i+1]
	length int
}

// Concat chains cols in order. All constituents must share a physical
// layout (same logical type, matching struct children); mixing types
// fails with ErrTypeMismatch. Field names, nullability and tags may
// differ; the chain reports the first constituent's field.
func Concat(cols ...*Column) (*Chained, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: concat of zero columns", ErrTypeMismatch)
	}
	field := cols[0].Field()
	cum := make([]int, len(cols))
	total := 0
	for i, c := range cols {
		if !layoutEqual(c.Field(), field) {
			return nil, fmt.Errorf("%w: constituent %d is %s, want %s",
				ErrTypeMismatch, i, c.Type(), field.Type)
		}
		total += c.Len()
		cum[i] = total
	}
	return &Chained{field: field, cols: cols, cum: cum, length: total}, nil
}

// layoutEqual reports whether two fields read the same way: identical
// logical type and, for structs, matching child layouts. Names,
// nullability and tags do not change how a row is accessed.
func layoutEqual(a, b Field) bool {
	if a.Type != b.Type || len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !layoutEqual(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

// Len returns the total number of rows across constituents.
func (ch *Chained) Len() int { return ch.length }

// Field returns the shared field layout.
func (ch *Chained) Field() Field { return ch.field }

// Type returns the shared logical type.
func (ch *Chained) Type() Type { return ch.field.Type }

// NumChunks returns the number of constituent columns.
func (ch *Chained) NumChunks() int { return len(ch.cols) }

// Chunk returns the i-th constituent.
func (ch *Chained) Chunk(i int) *Column { return ch.cols[i] }

// locate maps global index i to (constituent, local index).
func (ch *Chained) locate(i int) (*Column, int) {
	if i < 0 || i >= ch.length {
		panic("cbf: chained index out of range")
	}
	k := sort.SearchInts(ch.cum, i+1)
	local := i
	if k > 0 {
		local -= ch.cum[k-1]
	}
	return ch.cols[k], local
}

// IsNull reports whether global row i is null.
func (ch *Chained) IsNull(i int) bool {
	c, li := ch.locate(i)
	return c.IsNull(li)
}

// Int64 returns global row i of an int64 chain.
func (ch *Chained) Int64(i int) int64 {
	c, li := ch.locate(i)
	return c.Int64(li)
}

// Float64 returns global row i of a float64 chain.
func (ch *Chained) Float64(i int) float64 {
	c, li := ch.locate(i)
	return c.Float64(li)
}

// String returns global row i of a utf8 chain.
func (ch *Chained) String(i int) string {
	c, li := ch.locate(i)
	return c.String(li)
}

// Date returns global row i of a date chain.
func (ch *Chained) Date(i int) time.Time {
	c, li := ch.locate(i)
	return c.Date(li)
}

// Timestamp returns global row i of a timestamp chain.
func (ch *Chained) Timestamp(i int) time.Time {
	c, li := ch.locate(i)
	return c.Timestamp(li)
}

// Record materialises global row i of a struct chain.
func (ch *Chained) Record(i int) (any, error) {
	c, li := ch.locate(i)
	return c.Record(li)
}

// Value returns global row i as a generic value, nil for nulls.
func (ch *Chained) Value(i int) any {
	c, li := ch.locate(i)
	return c.Value(li)
}

// NullCount counts null rows across constituents.
func (ch *Chained) NullCount() int {
	n := 0
	for _, c := range ch.cols {
		n += c.NullCount()
	}
	return n
}

// Each visits every row in order, walking constituents without
// materialising a flat copy. fn receives the global index and the generic
// value; returning false stops the walk.
func (ch *Chained) Each(fn func(i int, v any) bool) {
	i := 0
	for _, c := range ch.cols {
		for li := 0; li < c.Len(); li++ {
			if !fn(i, c.Value(li)) {
				return
			}
			i++
		}
	}
}
