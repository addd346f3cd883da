package cbf

import (
	"fmt"
	"time"
)

// Type identifies the logical element type of a column.
// Keep these stable forever; add new values only.
type Type uint32

const (
	TypeInvalid Type = iota
	TypeInt64
	TypeFloat64
	TypeUtf8
	TypeDate
	TypeTimestamp
	TypeStruct
)

var typeNames = map[Type]string{
	TypeInt64:     "int64",
	TypeFloat64:   "float64",
	TypeUtf8:      "utf8",
	TypeDate:      "date",
	TypeTimestamp: "timestamp",
	TypeStruct:    "struct",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("type(%d)", uint32(t))
}

// ParseType maps a wire-level type name onto a Type.
func ParseType(s string) (Type, bool) {
	for t, name := range typeNames {
		if name == s {
			return t, true
		}
	}
	return TypeInvalid, false
}

// FixedWidth reports whether t is a fixed-width type.
func (t Type) FixedWidth() bool {
	_, ok := TypeSize(t)
	return ok
}

// Field describes one column of a schema.
type Field struct {
	Name     string
	Type     Type
	Nullable bool

	// Tag names a registered record type for struct columns. Empty means
	// untagged, which is the default compatibility mode.
	Tag string

	// Children are the ordered child fields of a struct column.
	Children []Field
}

// Equal reports whether f and other describe the same physical layout.
func (f Field) Equal(other Field) bool {
	if f.Name != other.Name || f.Type != other.Type ||
		f.Nullable != other.Nullable || f.Tag != other.Tag {
		return false
	}
	if len(f.Children) != len(other.Children) {
		return false
	}
	for i := range f.Children {
		if !f.Children[i].Equal(other.Children[i]) {
			return false
		}
	}
	return true
}

// nodeCount returns the number of layout descriptors this field occupies
// in a data message: one for the field itself plus one per struct child,
// depth first.
func (f Field) nodeCount() int {
	n := 1
	for i := range f.Children {
		n += f.Children[i].nodeCount()
	}
	return n
}

func (f Field) validate() error {
	if f.Name == "" {
		return fmt.Errorf("%w: empty field name", ErrTypeInference)
	}
	switch f.Type {
	case TypeInt64, TypeFloat64, TypeUtf8, TypeDate, TypeTimestamp:
		if len(f.Children) != 0 {
			return fmt.Errorf("%w: field %q: non-struct field with children", ErrTypeInference, f.Name)
		}
	case TypeStruct:
		if len(f.Children) == 0 {
			return fmt.Errorf("%w: field %q: struct field without children", ErrTypeInference, f.Name)
		}
		seen := make(map[string]struct{}, len(f.Children))
		for i := range f.Children {
			c := f.Children[i]
			if _, dup := seen[c.Name]; dup {
				return fmt.Errorf("%w: field %q: duplicate child %q", ErrTypeInference, f.Name, c.Name)
			}
			seen[c.Name] = struct{}{}
			if c.Type == TypeStruct {
				// Nested struct-of-struct stays out of scope.
				return fmt.Errorf("%w: field %q: nested struct child %q", ErrTypeInference, f.Name, c.Name)
			}
			if err := c.validate(); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: field %q: unsupported type", ErrTypeInference, f.Name)
	}
	return nil
}

// Schema is an ordered, immutable sequence of fields. Field order defines
// physical column order in every data message.
type Schema struct {
	fields []Field
	byName map[string]int
	nodes  int
}

// NewSchema validates the fields and builds a schema. Field names must be
// unique within the schema.
func NewSchema(fields []Field) (*Schema, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: schema requires at least one field", ErrTypeInference)
	}
	byName := make(map[string]int, len(fields))
	nodes := 0
	for i := range fields {
		if err := fields[i].validate(); err != nil {
			return nil, err
		}
		if _, dup := byName[fields[i].Name]; dup {
			return nil, fmt.Errorf("%w: duplicate field %q", ErrTypeInference, fields[i].Name)
		}
		byName[fields[i].Name] = i
		nodes += fields[i].nodeCount()
	}
	cp := make([]Field, len(fields))
	copy(cp, fields)
	return &Schema{fields: cp, byName: byName, nodes: nodes}, nil
}

// MustSchema is NewSchema for statically known schemas.
func MustSchema(fields []Field) *Schema {
	s, err := NewSchema(fields)
	if err != nil {
		panic(err)
	}
	return s
}

// NumFields returns the number of top-level fields.
func (s *Schema) NumFields() int { return len(s.fields) }

// Field returns the top-level field at index i.
func (s *Schema) Field(i int) Field { return s.fields[i] }

// Fields returns a copy of the top-level fields in schema order.
func (s *Schema) Fields() []Field {
	cp := make([]Field, len(s.fields))
	copy(cp, s.fields)
	return cp
}

// Lookup returns the index of the named top-level field.
func (s *Schema) Lookup(name string) (int, bool) {
	i, ok := s.byName[name]
	return i, ok
}

// Equal reports whether two schemas describe the same layout.
func (s *Schema) Equal(other *Schema) bool {
	if s == other {
		return true
	}
	if s == nil || other == nil || len(s.fields) != len(other.fields) {
		return false
	}
	for i := range s.fields {
		if !s.fields[i].Equal(other.fields[i]) {
			return false
		}
	}
	return true
}

// InferSchema derives a schema from named columns of Go values. A nil
// element marks a null and makes the column nullable. Supported element
// types: int64/int, float64, string/[]byte, time.Time (timestamp) and
// GenericRecord (untagged struct).
func InferSchema(names []string, cols [][]any) (*Schema, error) {
	if len(names) != len(cols) {
		return nil, fmt.Errorf("%w: %d names for %d columns", ErrTypeInference, len(names), len(cols))
	}
	fields := make([]Field, len(names))
	for i, name := range names {
		f, err := inferField(name, cols[i])
		if err != nil {
			return nil, err
		}
		fields[i] = f
	}
	return NewSchema(fields)
}

func inferField(name string, values []any) (Field, error) {
	f := Field{Name: name}
	for _, v := range values {
		if v == nil {
			f.Nullable = true
			continue
		}
		t, err := inferType(name, v)
		if err != nil {
			return Field{}, err
		}
		if f.Type == TypeInvalid {
			f.Type = t
			if t == TypeStruct {
				rec := v.(GenericRecord)
				f.Children = make([]Field, len(rec.Names))
				for j, cn := range rec.Names {
					cf, err := inferField(cn, []any{rec.Values[j]})
					if err != nil {
						return Field{}, err
					}
					cf.Nullable = true
					f.Children[j] = cf
				}
			}
			continue
		}
		if f.Type != t {
			return Field{}, fmt.Errorf("%w: column %q mixes %s and %s", ErrTypeInference, name, f.Type, t)
		}
	}
	if f.Type == TypeInvalid {
		return Field{}, fmt.Errorf("%w: column %q has no non-null values", ErrTypeInference, name)
	}
	return f, nil
}

func inferType(name string, v any) (Type, error) {
	switch v.(type) {
	case int64, int:
		return TypeInt64, nil
	case float64:
		return TypeFloat64, nil
	case string, []byte:
		return TypeUtf8, nil
	case time.Time:
		return TypeTimestamp, nil
	case GenericRecord:
		return TypeStruct, nil
	default:
		return TypeInvalid, fmt.Errorf("%w: column %q: unsupported element type %T", ErrTypeInference, name, v)
	}
}
