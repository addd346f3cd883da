package cbf

import "fmt"

// Stream walks the batches of a multi-batch buffer lazily, one data
// message per Next call, in the manner of bufio.Scanner:
//
//	s, err := cbf.NewStream(buf)
//	...
//	for s.Next() {
//	    b := s.Batch()
//	    ...
//	}
//	if err := s.Err(); err != nil { ... }
//
// The schema is parsed once, on construction, and shared read-only by
// every yielded batch. Column views of yielded batches alias the source
// buffer and stay valid for the buffer's lifetime, independent of further
// stream advancement. A Stream is single-pass and must not be advanced
// concurrently.
type Stream struct {
	buf    []byte
	off    int
	schema *Schema
	reg    *Registry
	cur    *Batch
	err    error
	done   bool
}

// NewStream validates the buffer header and parses the leading schema
// message using the default registry. A buffer whose first message is not
// a schema fails with ErrMissingSchema.
func NewStream(buf []byte) (*Stream, error) {
	return NewStreamWithRegistry(buf, DefaultRegistry)
}

// NewStreamWithRegistry is NewStream resolving struct tags against reg.
func NewStreamWithRegistry(buf []byte, reg *Registry) (*Stream, error) {
	if reg == nil {
		reg = DefaultRegistry
	}
	off, err := validateBuffer(buf)
	if err != nil {
		return nil, err
	}
	if off >= len(buf) {
		return nil, fmt.Errorf("%w: empty buffer", ErrMissingSchema)
	}
	kind, body, next, err := nextMessage(buf, off)
	if err != nil {
		return nil, err
	}
	if kind != MessageSchema {
		return nil, fmt.Errorf("%w: first message has kind %d", ErrMissingSchema, kind)
	}
	schema, err := unmarshalSchema(body)
	if err != nil {
		return nil, err
	}
	return &Stream{buf: buf, off: next, schema: schema, reg: reg}, nil
}

// Schema returns the stream's schema.
func (s *Stream) Schema() *Schema { return s.schema }

// Next decodes the next data message. It returns false when the stream is
// exhausted or an error occurred; Err distinguishes the two.
func (s *Stream) Next() bool {
	if s.err != nil || s.done {
		return false
	}
	if s.off >= len(s.buf) {
		s.done = true
		s.cur = nil
		return false
	}
	kind, body, next, err := nextMessage(s.buf, s.off)
	if err != nil {
		s.fail(err)
		return false
	}
	if kind == MessageSchema {
		// The format requires a single schema per stream.
		s.fail(fmt.Errorf("%w: second schema message", ErrSchemaMismatch))
		return false
	}
	batch, err := decodeDataBody(s.schema, s.reg, body)
	if err != nil {
		s.fail(err)
		return false
	}
	s.off = next
	s.cur = batch
	return true
}

// Batch returns the batch decoded by the last successful Next.
func (s *Stream) Batch() *Batch { return s.cur }

// Err returns the first error encountered. A fully consumed stream
// returns nil.
func (s *Stream) Err() error { return s.err }

func (s *Stream) fail(err error) {
	s.err = err
	s.cur = nil
	s.done = true
}
