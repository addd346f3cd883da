package cbf

import "fmt"

// RegisterRecord registers a typed codec for T under tag. fields names
// the child layout the codec expects (nil to accept any); from builds a T
// from decoded child values in field order; to projects a T back into
// child values. Columns carrying the tag then decode into T instances
// instead of GenericRecord rows.
func RegisterRecord[T any](r *Registry, tag string, fields []Field, from func(values []any) (T, error), to func(v T) ([]any, error)) error {
	return r.Register(RecordType{
		Tag:    tag,
		Fields: fields,
		New: func(values []any) (any, error) {
			return from(values)
		},
		Project: func(v any) ([]any, error) {
			t, ok := v.(T)
			if !ok {
				return nil, fmt.Errorf("%w: tag %q: value is %T", ErrEncoding, tag, v)
			}
			return to(t)
		},
	})
}

// projectStructValue turns one struct-column element into child values in
// child order, consulting the registry for tagged columns. Accepted forms:
// a value of a registered record type, a GenericRecord, or a plain []any
// already in child order.
func projectStructValue(f Field, rt *RecordType, v any) ([]any, error) {
	switch x := v.(type) {
	case GenericRecord:
		if len(x.Values) != len(f.Children) {
			return nil, fmt.Errorf("%w: field %q: record has %d values, want %d", ErrEncoding, f.Name, len(x.Values), len(f.Children))
		}
		return x.Values, nil
	case []any:
		if len(x) != len(f.Children) {
			return nil, fmt.Errorf("%w: field %q: tuple has %d values, want %d", ErrEncoding, f.Name, len(x), len(f.Children))
		}
		return x, nil
	}
	if rt != nil {
		return rt.Project(v)
	}
	return nil, fmt.Errorf("%w: field %q: cannot project %T", ErrEncoding, f.Name, v)
}
