package cbf

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// ColumnData carries the values of one logical batch: field name to an
// ordered sequence of values, nil marking a null. Every schema field must
// be present and all sequences must share one length.
type ColumnData map[string][]any

// Encoder builds a multi-batch CBF buffer in memory. The buffer header
// and the schema message are written on construction; each AppendBatch
// adds one self-contained data message.
type Encoder struct {
	schema *Schema
	reg    *Registry
	buf    []byte
}

// NewEncoder creates an encoder using the default registry.
func NewEncoder(schema *Schema) (*Encoder, error) {
	return NewEncoderWithRegistry(schema, DefaultRegistry)
}

// NewEncoderWithRegistry creates an encoder resolving struct tags against
// reg when projecting typed record values.
func NewEncoderWithRegistry(schema *Schema, reg *Registry) (*Encoder, error) {
	if schema == nil {
		return nil, fmt.Errorf("%w: nil schema", ErrEncoding)
	}
	if reg == nil {
		reg = DefaultRegistry
	}
	e := &Encoder{schema: schema, reg: reg}

	hdr := make([]byte, headerSize)
	encodeHeader(hdr, currentHeader())
	e.buf = append(e.buf, hdr...)

	msg, err := encodeSchemaMessage(schema)
	if err != nil {
		return nil, err
	}
	e.buf = append(e.buf, msg...)
	return e, nil
}

// Schema returns the encoder's schema.
func (e *Encoder) Schema() *Schema { return e.schema }

// AppendBatch encodes cols as one data message. The caller controls batch
// boundaries; zero-row batches are valid.
func (e *Encoder) AppendBatch(cols ColumnData) error {
	msg, err := encodeDataMessage(e.schema, e.reg, cols)
	if err != nil {
		return err
	}
	e.buf = append(e.buf, msg...)
	return nil
}

// Bytes returns the encoded buffer. The returned slice aliases the
// encoder's internal buffer and must not be mutated.
func (e *Encoder) Bytes() []byte { return e.buf }

// Encode writes schema plus the given batches into a fresh buffer using
// the default registry.
func Encode(schema *Schema, batches []ColumnData) ([]byte, error) {
	e, err := NewEncoder(schema)
	if err != nil {
		return nil, err
	}
	for _, b := range batches {
		if err := e.AppendBatch(b); err != nil {
			return nil, err
		}
	}
	return e.Bytes(), nil
}

func encodeSchemaMessage(s *Schema) ([]byte, error) {
	body, err := marshalSchema(s)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal schema: %v", ErrEncoding, err)
	}
	return frameMessage(MessageSchema, body), nil
}

func encodeDataMessage(s *Schema, reg *Registry, cols ColumnData) ([]byte, error) {
	body, err := encodeDataBody(s, reg, cols)
	if err != nil {
		return nil, err
	}
	return frameMessage(MessageData, body), nil
}

// frameMessage prefixes body with a message header and pads the whole
// message to the buffer alignment, keeping every following message start
// aligned.
func frameMessage(kind MessageKind, body []byte) []byte {
	total := alignUp(msgHdrSize+len(body), bufAlign)
	msg := make([]byte, total)
	encodeMessageHeader(msg, messageHeader{Kind: kind, BodyLen: uint64(len(body))})
	copy(msg[msgHdrSize:], body)
	return msg
}

// colRegions holds the physical regions of one layout node before final
// placement in the data body.
type colRegions struct {
	hasValidity bool
	validity    []byte
	offsets     []byte
	data        []byte
}

func encodeDataBody(s *Schema, reg *Registry, cols ColumnData) ([]byte, error) {
	if len(cols) != s.NumFields() {
		for name := range cols {
			if _, ok := s.Lookup(name); !ok {
				return nil, fmt.Errorf("%w: column %q not in schema", ErrEncoding, name)
			}
		}
	}

	rows := -1
	for i := 0; i < s.NumFields(); i++ {
		name := s.Field(i).Name
		values, ok := cols[name]
		if !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrEncoding, name)
		}
		if rows == -1 {
			rows = len(values)
		} else if len(values) != rows {
			return nil, fmt.Errorf("%w: column %q has %d rows, want %d", ErrEncoding, name, len(values), rows)
		}
	}

	var regions []colRegions
	for i := 0; i < s.NumFields(); i++ {
		f := s.Field(i)
		rs, err := encodeColumn(f, reg, cols[f.Name], nil)
		if err != nil {
			return nil, err
		}
		regions = append(regions, rs...)
	}

	// Place regions after the descriptor table, each aligned.
	off := dataHdrSize + len(regions)*descSize
	type placement struct{ validity, offsets, data int }
	places := make([]placement, len(regions))
	place := func(b []byte) int {
		if len(b) == 0 {
			return 0
		}
		off = alignUp(off, bufAlign)
		p := off
		off += len(b)
		return p
	}
	for i := range regions {
		places[i].validity = place(regions[i].validity)
		places[i].offsets = place(regions[i].offsets)
		places[i].data = place(regions[i].data)
	}
	if off > math.MaxUint32 {
		return nil, fmt.Errorf("%w: batch exceeds 4 GiB", ErrEncoding)
	}

	body := make([]byte, off)
	binary.LittleEndian.PutUint64(body[0:8], uint64(rows))
	binary.LittleEndian.PutUint32(body[8:12], uint32(len(regions)))

	for i := range regions {
		d := body[dataHdrSize+i*descSize:]
		var flags uint32
		if regions[i].hasValidity {
			flags |= 1
		}
		binary.LittleEndian.PutUint32(d[0:4], flags)
		binary.LittleEndian.PutUint32(d[8:12], uint32(places[i].validity))
		binary.LittleEndian.PutUint32(d[12:16], uint32(len(regions[i].validity)))
		binary.LittleEndian.PutUint32(d[16:20], uint32(places[i].data))
		binary.LittleEndian.PutUint32(d[20:24], uint32(len(regions[i].data)))
		binary.LittleEndian.PutUint32(d[24:28], uint32(places[i].offsets))
		binary.LittleEndian.PutUint32(d[28:32], uint32(len(regions[i].offsets)))

		copy(body[places[i].validity:], regions[i].validity)
		copy(body[places[i].offsets:], regions[i].offsets)
		copy(body[places[i].data:], regions[i].data)
	}
	return body, nil
}

// encodeColumn produces the layout nodes for one field, depth first:
// the field's own regions followed by its children's. parentNull marks
// rows a null struct parent already masks; their child slots are
// don't-care and exempt from the non-nullable check.
func encodeColumn(f Field, reg *Registry, values []any, parentNull []bool) ([]colRegions, error) {
	rows := len(values)
	var own colRegions

	if f.Nullable {
		own.hasValidity = true
		own.validity = make([]byte, bitmapBytes(rows))
		for i, v := range values {
			if v != nil {
				bitmapSet(own.validity, i)
			}
		}
	} else {
		for i, v := range values {
			if v == nil && (parentNull == nil || !parentNull[i]) {
				return nil, fmt.Errorf("%w: null at row %d of non-nullable column %q", ErrEncoding, i, f.Name)
			}
		}
	}

	switch f.Type {
	case TypeInt64, TypeFloat64, TypeDate, TypeTimestamp:
		width, _ := TypeSize(f.Type)
		own.data = make([]byte, rows*width)
		for i, v := range values {
			if v == nil {
				continue
			}
			if err := putFixed(own.data[i*width:], f, v); err != nil {
				return nil, fmt.Errorf("%w: column %q row %d: %v", ErrEncoding, f.Name, i, err)
			}
		}
		return []colRegions{own}, nil

	case TypeUtf8:
		own.offsets = make([]byte, offsetsBytes(rows))
		var blob []byte
		for i, v := range values {
			if v != nil {
				b, err := utf8Bytes(v)
				if err != nil {
					return nil, fmt.Errorf("%w: column %q row %d: %v", ErrEncoding, f.Name, i, err)
				}
				blob = append(blob, b...)
			}
			// Null entries contribute zero length: offset[i+1] == offset[i].
			binary.LittleEndian.PutUint32(own.offsets[(i+1)*4:], uint32(len(blob)))
		}
		own.data = blob
		return []colRegions{own}, nil

	case TypeStruct:
		var rt *RecordType
		if f.Tag != "" {
			if resolved, ok := reg.Resolve(f.Tag); ok {
				if !resolved.matches(f.Children) {
					return nil, fmt.Errorf("%w: column %q: children differ from layout registered for tag %q",
						ErrEncoding, f.Name, f.Tag)
				}
				rt = &resolved
			}
		}
		childValues := make([][]any, len(f.Children))
		for j := range f.Children {
			childValues[j] = make([]any, rows)
		}
		childNull := make([]bool, rows)
		for i, v := range values {
			if v == nil {
				childNull[i] = true
				continue
			}
			fieldVals, err := projectStructValue(f, rt, v)
			if err != nil {
				return nil, err
			}
			for j := range f.Children {
				childValues[j][i] = fieldVals[j]
			}
		}
		out := []colRegions{own}
		for j := range f.Children {
			rs, err := encodeColumn(f.Children[j], reg, childValues[j], childNull)
			if err != nil {
				return nil, err
			}
			out = append(out, rs...)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("%w: column %q: unsupported type", ErrEncoding, f.Name)
	}
}

func putFixed(dst []byte, f Field, v any) error {
	switch f.Type {
	case TypeInt64:
		n, err := int64Value(v)
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint64(dst, uint64(n))
	case TypeFloat64:
		x, ok := v.(float64)
		if !ok {
			return fmt.Errorf("want float64, got %T", v)
		}
		binary.LittleEndian.PutUint64(dst, math.Float64bits(x))
	case TypeDate:
		t, ok := v.(time.Time)
		if !ok {
			return fmt.Errorf("want time.Time, got %T", v)
		}
		binary.LittleEndian.PutUint32(dst, uint32(epochDays(t)))
	case TypeTimestamp:
		t, ok := v.(time.Time)
		if !ok {
			return fmt.Errorf("want time.Time, got %T", v)
		}
		binary.LittleEndian.PutUint64(dst, uint64(t.UnixMicro()))
	}
	return nil
}

func int64Value(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("want int64, got %T", v)
	}
}

func utf8Bytes(v any) ([]byte, error) {
	switch s := v.(type) {
	case string:
		return []byte(s), nil
	case []byte:
		return s, nil
	default:
		return nil, fmt.Errorf("want string, got %T", v)
	}
}

// epochDays converts t to whole days since the Unix epoch, flooring for
// instants before it.
func epochDays(t time.Time) int32 {
	sec := t.Unix()
	days := sec / 86400
	if sec%86400 < 0 {
		days--
	}
	return int32(days)
}
