package cbf

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Batch is one decoded unit of the wire format: a schema reference, a row
// count, and a zero-copy column view per field. Batches own no bytes.
type Batch struct {
	schema *Schema
	rows   int
	cols   []*Column
}

// Schema returns the schema the batch is typed against.
func (b *Batch) Schema() *Schema { return b.schema }

// NumRows returns the batch's row count.
func (b *Batch) NumRows() int { return b.rows }

// NumCols returns the number of top-level columns.
func (b *Batch) NumCols() int { return len(b.cols) }

// ColumnAt returns the column at schema position i.
func (b *Batch) ColumnAt(i int) *Column { return b.cols[i] }

// Column returns the named column.
func (b *Batch) Column(name string) (*Column, bool) {
	i, ok := b.schema.Lookup(name)
	if !ok {
		return nil, false
	}
	return b.cols[i], true
}

// validateBuffer checks the fixed buffer header and returns the offset of
// the first message.
func validateBuffer(buf []byte) (int, error) {
	if len(buf) < headerSize {
		return 0, fmt.Errorf("%w: buffer shorter than header", ErrInvalidFormat)
	}
	hdr, ok := decodeHeader(buf)
	if !ok || !hdr.Valid() {
		return 0, fmt.Errorf("%w: bad magic", ErrInvalidFormat)
	}
	if !hdr.Compatible() {
		return 0, fmt.Errorf("%w: major %d", ErrUnsupportedMajor, hdr.Major)
	}
	return headerSize, nil
}

// nextMessage parses the message starting at off. It returns the message
// kind, a view of the body, and the offset of the following message.
// The caller must ensure off < len(buf).
func nextMessage(buf []byte, off int) (MessageKind, []byte, int, error) {
	if off+msgHdrSize > len(buf) {
		return 0, nil, 0, fmt.Errorf("%w: message header at %d", ErrTruncatedBuffer, off)
	}
	mh, _ := decodeMessageHeader(buf[off:])
	if mh.Kind != MessageSchema && mh.Kind != MessageData {
		return 0, nil, 0, fmt.Errorf("%w: unknown message kind %d", ErrInvalidFormat, mh.Kind)
	}
	if mh.BodyLen > uint64(len(buf)-off-msgHdrSize) {
		return 0, nil, 0, fmt.Errorf("%w: message at %d claims %d body bytes", ErrTruncatedBuffer, off, mh.BodyLen)
	}
	bodyStart := off + msgHdrSize
	bodyEnd := bodyStart + int(mh.BodyLen)
	next := alignUp(bodyEnd, bufAlign)
	if next > len(buf) {
		// Trailing padding may be absent at end of buffer.
		next = len(buf)
	}
	return mh.Kind, buf[bodyStart:bodyEnd], next, nil
}

// descriptor mirrors the on-wire 40-byte layout node record. Offsets are
// body-relative.
type descriptor struct {
	flags       uint32
	validityOff uint32
	validityLen uint32
	dataOff     uint32
	dataLen     uint32
	offsetsOff  uint32
	offsetsLen  uint32
}

const descFlagValidity uint32 = 1 << 0

func readDescriptor(body []byte, i int) descriptor {
	d := body[dataHdrSize+i*descSize:]
	return descriptor{
		flags:       binary.LittleEndian.Uint32(d[0:4]),
		validityOff: binary.LittleEndian.Uint32(d[8:12]),
		validityLen: binary.LittleEndian.Uint32(d[12:16]),
		dataOff:     binary.LittleEndian.Uint32(d[16:20]),
		dataLen:     binary.LittleEndian.Uint32(d[20:24]),
		offsetsOff:  binary.LittleEndian.Uint32(d[24:28]),
		offsetsLen:  binary.LittleEndian.Uint32(d[28:32]),
	}
}

// region returns a view of [off, off+length) within body after bounds and
// alignment checks.
func region(body []byte, off, length uint32) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}
	end := uint64(off) + uint64(length)
	if end > uint64(len(body)) {
		return nil, fmt.Errorf("%w: region [%d,%d) beyond body of %d", ErrTruncatedBuffer, off, end, len(body))
	}
	if off%bufAlign != 0 {
		return nil, fmt.Errorf("%w: region at %d not %d-byte aligned", ErrInvalidFormat, off, bufAlign)
	}
	return body[off:end], nil
}

// decodeDataBody builds column views over one data message body. All
// validation happens here, before any view escapes: a caller never sees a
// partially valid batch.
func decodeDataBody(schema *Schema, reg *Registry, body []byte) (*Batch, error) {
	if len(body) < dataHdrSize {
		return nil, fmt.Errorf("%w: data body of %d bytes", ErrTruncatedBuffer, len(body))
	}
	rows64 := binary.LittleEndian.Uint64(body[0:8])
	if rows64 > math.MaxInt32 {
		return nil, fmt.Errorf("%w: row count %d", ErrInvalidFormat, rows64)
	}
	rows := int(rows64)
	ndesc := int(binary.LittleEndian.Uint32(body[8:12]))
	if ndesc != schema.nodes {
		return nil, fmt.Errorf("%w: %d layout nodes, schema has %d", ErrSchemaMismatch, ndesc, schema.nodes)
	}
	if len(body) < dataHdrSize+ndesc*descSize {
		return nil, fmt.Errorf("%w: descriptor table", ErrTruncatedBuffer)
	}

	b := &Batch{schema: schema, rows: rows, cols: make([]*Column, schema.NumFields())}
	idx := 0
	for i := 0; i < schema.NumFields(); i++ {
		col, err := buildColumn(schema.Field(i), reg, rows, body, &idx)
		if err != nil {
			return nil, err
		}
		b.cols[i] = col
	}
	return b, nil
}

func buildColumn(f Field, reg *Registry, rows int, body []byte, idx *int) (*Column, error) {
	d := readDescriptor(body, *idx)
	*idx++

	c := &Column{field: f, length: rows}

	if d.flags&descFlagValidity != 0 {
		if int(d.validityLen) != bitmapBytes(rows) {
			return nil, fmt.Errorf("%w: column %q: validity bitmap of %d bytes for %d rows", ErrInvalidFormat, f.Name, d.validityLen, rows)
		}
		v, err := region(body, d.validityOff, d.validityLen)
		if err != nil {
			return nil, err
		}
		c.validity = v
	}

	switch f.Type {
	case TypeInt64, TypeFloat64, TypeDate, TypeTimestamp:
		width, _ := TypeSize(f.Type)
		if int(d.dataLen) != rows*width {
			return nil, fmt.Errorf("%w: column %q: %d data bytes for %d rows of %s", ErrInvalidFormat, f.Name, d.dataLen, rows, f.Type)
		}
		data, err := region(body, d.dataOff, d.dataLen)
		if err != nil {
			return nil, err
		}
		c.data = data

	case TypeUtf8:
		if int(d.offsetsLen) != offsetsBytes(rows) {
			return nil, fmt.Errorf("%w: column %q: %d offset bytes for %d rows", ErrInvalidFormat, f.Name, d.offsetsLen, rows)
		}
		offsets, err := region(body, d.offsetsOff, d.offsetsLen)
		if err != nil {
			return nil, err
		}
		data, err := region(body, d.dataOff, d.dataLen)
		if err != nil {
			return nil, err
		}
		if err := validateOffsets(f.Name, offsets, rows, len(data)); err != nil {
			return nil, err
		}
		c.offsets = offsets
		c.data = data

	case TypeStruct:
		c.children = make([]*Column, len(f.Children))
		for j := range f.Children {
			ch, err := buildColumn(f.Children[j], reg, rows, body, idx)
			if err != nil {
				return nil, err
			}
			c.children[j] = ch
		}
		if f.Tag != "" {
			// A registered type whose layout disagrees with the wire is
			// treated like an unknown tag: rows stay GenericRecord.
			if rt, ok := reg.Resolve(f.Tag); ok && rt.matches(f.Children) {
				c.rec = &rt
			}
		}

	default:
		return nil, fmt.Errorf("%w: column %q: unsupported type", ErrInvalidFormat, f.Name)
	}
	return c, nil
}

// validateOffsets rejects offsets arrays that are not non-decreasing or
// whose final entry runs past the blob.
func validateOffsets(name string, offsets []byte, rows, blobLen int) error {
	prev := uint32(0)
	for i := 0; i <= rows; i++ {
		o := binary.LittleEndian.Uint32(offsets[i*4:])
		if o < prev {
			return fmt.Errorf("%w: column %q: offsets decrease at %d", ErrInvalidFormat, name, i)
		}
		prev = o
	}
	if int(prev) > blobLen {
		return fmt.Errorf("%w: column %q: final offset %d beyond blob of %d", ErrTruncatedBuffer, name, prev, blobLen)
	}
	return nil
}

// DecodeBatch decodes the first batch of buf using the default registry.
// Use a Stream to walk a multi-batch buffer.
func DecodeBatch(buf []byte) (*Batch, error) {
	s, err := NewStream(buf)
	if err != nil {
		return nil, err
	}
	if !s.Next() {
		if err := s.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: no data message", ErrTruncatedBuffer)
	}
	return s.Batch(), nil
}
