package cbf

import (
	"encoding/binary"
	"math"
	"time"
	"unsafe"
)

// Column is an immutable, zero-copy view over one column of a decoded
// batch. Its region slices alias the buffer that was decoded; the view is
// valid only while that buffer is alive and unmutated. Columns are safe to
// share across goroutines.
type Column struct {
	field  Field
	length int

	// Region views into the source buffer. validity is nil when the
	// column carries no bitmap (all rows present). data holds fixed-width
	// elements or the utf8 blob; offsets holds (length+1) uint32s for
	// variable-width columns.
	validity []byte
	offsets  []byte
	data     []byte

	children []*Column
	rec      *RecordType // resolved struct tag, nil for untagged/unknown
}

// Len returns the number of rows.
func (c *Column) Len() int { return c.length }

// Field returns the schema field this column is typed against.
func (c *Column) Field() Field { return c.field }

// Type returns the column's logical type.
func (c *Column) Type() Type { return c.field.Type }

// IsNull reports whether row i is null. i must be in [0, Len()).
func (c *Column) IsNull(i int) bool {
	if i < 0 || i >= c.length {
		panic("cbf: column index out of range")
	}
	return c.validity != nil && !bitmapGet(c.validity, i)
}

// NullCount counts the null rows.
func (c *Column) NullCount() int {
	if c.validity == nil {
		return 0
	}
	n := 0
	for i := 0; i < c.length; i++ {
		if !bitmapGet(c.validity, i) {
			n++
		}
	}
	return n
}

// Int64 returns the value at row i of an int64 column. The result for a
// null row is unspecified; check IsNull first.
func (c *Column) Int64(i int) int64 {
	c.checkType(TypeInt64, i)
	return int64(binary.LittleEndian.Uint64(c.data[i*8:]))
}

// Float64 returns the value at row i of a float64 column.
func (c *Column) Float64(i int) float64 {
	c.checkType(TypeFloat64, i)
	return math.Float64frombits(binary.LittleEndian.Uint64(c.data[i*8:]))
}

// Bytes returns the raw bytes at row i of a utf8 column, aliasing the
// source buffer.
func (c *Column) Bytes(i int) []byte {
	c.checkType(TypeUtf8, i)
	start := binary.LittleEndian.Uint32(c.offsets[i*4:])
	end := binary.LittleEndian.Uint32(c.offsets[(i+1)*4:])
	return c.data[start:end]
}

// String returns the value at row i of a utf8 column as a zero-copy
// string view over the source buffer.
func (c *Column) String(i int) string {
	b := c.Bytes(i)
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(b), len(b))
}

// Date returns the value at row i of a date column as a UTC midnight.
func (c *Column) Date(i int) time.Time {
	c.checkType(TypeDate, i)
	days := int32(binary.LittleEndian.Uint32(c.data[i*4:]))
	return time.Unix(int64(days)*86400, 0).UTC()
}

// Timestamp returns the value at row i of a timestamp column with
// microsecond precision, in UTC.
func (c *Column) Timestamp(i int) time.Time {
	c.checkType(TypeTimestamp, i)
	us := int64(binary.LittleEndian.Uint64(c.data[i*8:]))
	return time.UnixMicro(us).UTC()
}

// NumChildren returns the number of child columns of a struct column.
func (c *Column) NumChildren() int { return len(c.children) }

// Child returns the j-th child column of a struct column.
func (c *Column) Child(j int) *Column { return c.children[j] }

// Record materialises row i of a struct column. With a registered tag the
// registered constructor runs; otherwise a GenericRecord is returned.
// Construction is lazy, one row per call.
func (c *Column) Record(i int) (any, error) {
	c.checkType(TypeStruct, i)
	values := make([]any, len(c.children))
	for j, ch := range c.children {
		values[j] = ch.Value(i)
	}
	if c.rec != nil {
		return c.rec.New(values)
	}
	names := make([]string, len(c.field.Children))
	for j := range c.field.Children {
		names[j] = c.field.Children[j].Name
	}
	return GenericRecord{Names: names, Values: values}, nil
}

// Value returns the row i element as a generic value, nil for null rows.
// Struct rows come back as the registered record type or GenericRecord.
func (c *Column) Value(i int) any {
	if c.IsNull(i) {
		return nil
	}
	switch c.field.Type {
	case TypeInt64:
		return c.Int64(i)
	case TypeFloat64:
		return c.Float64(i)
	case TypeUtf8:
		return c.String(i)
	case TypeDate:
		return c.Date(i)
	case TypeTimestamp:
		return c.Timestamp(i)
	case TypeStruct:
		v, err := c.Record(i)
		if err != nil {
			return nil
		}
		return v
	}
	return nil
}

func (c *Column) checkType(t Type, i int) {
	if c.field.Type != t {
		panic("cbf: wrong accessor for " + c.field.Type.String() + " column")
	}
	if i < 0 || i >= c.length {
		panic("cbf: column index out of range")
	}
}
