package cbf

import (
	"fmt"
	"sync"
)

// RecordType binds a wire-level struct tag to a user record type. New
// builds an instance from decoded field values in child order; Project
// does the reverse for encoding. Fields, when set, pins the child layout
// the codec expects: encoding a tagged column with different children
// fails, and decoding one falls back to GenericRecord rows.
type RecordType struct {
	Tag     string
	Fields  []Field
	New     func(values []any) (any, error)
	Project func(v any) ([]any, error)
}

// matches reports whether the registered layout accepts children. An
// empty Fields accepts any layout.
func (rt RecordType) matches(children []Field) bool {
	if len(rt.Fields) == 0 {
		return true
	}
	if len(rt.Fields) != len(children) {
		return false
	}
	for i := range children {
		if !rt.Fields[i].Equal(children[i]) {
			return false
		}
	}
	return true
}

// Registry maps struct tags to record types. The zero value is not usable;
// call NewRegistry. A Registry is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	types map[string]RecordType
}

func NewRegistry() *Registry {
	return &Registry{types: make(map[string]RecordType)}
}

// DefaultRegistry backs encoders and streams that are not given an
// explicit registry.
var DefaultRegistry = NewRegistry()

// Register associates rt.Tag with rt. Registering the same tag twice
// fails with ErrDuplicateTag.
func (r *Registry) Register(rt RecordType) error {
	if rt.Tag == "" {
		return fmt.Errorf("%w: empty tag", ErrDuplicateTag)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[rt.Tag]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateTag, rt.Tag)
	}
	r.types[rt.Tag] = rt
	return nil
}

// Resolve looks up a tag. An unresolved tag is not an error: the decoder
// falls back to GenericRecord rows for forward compatibility.
func (r *Registry) Resolve(tag string) (RecordType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.types[tag]
	return rt, ok
}

// GenericRecord is the untyped fallback representation of one struct row:
// child field names and values in schema order. Values of unregistered
// tags decode to GenericRecord.
type GenericRecord struct {
	Names  []string
	Values []any
}

// Get returns the value of the named field.
func (g GenericRecord) Get(name string) (any, bool) {
	for i, n := range g.Names {
		if n == name {
			return g.Values[i], true
		}
	}
	return nil, false
}
