package cbf

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

const writerPadBufSize = 4096

// Writer streams a CBF buffer to a file: header and schema message up
// front, then one data message per WriteBatch. Unlike the in-memory
// Encoder it never holds more than one batch's encoding at a time.
type Writer struct {
	f      *os.File
	schema *Schema
	reg    *Registry
	closed bool

	padBuf []byte

	mu sync.Mutex
}

// NewWriter creates a writer targeting f using the default registry. It
// truncates the file and writes the header and schema message.
func NewWriter(f *os.File, schema *Schema) (*Writer, error) {
	return NewWriterWithRegistry(f, schema, DefaultRegistry)
}

// NewWriterWithRegistry is NewWriter resolving struct tags against reg.
func NewWriterWithRegistry(f *os.File, schema *Schema, reg *Registry) (*Writer, error) {
	if f == nil {
		return nil, errors.New("cbf: nil file")
	}
	if schema == nil {
		return nil, fmt.Errorf("%w: nil schema", ErrEncoding)
	}
	if reg == nil {
		reg = DefaultRegistry
	}
	if err := f.Truncate(0); err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	w := &Writer{f: f, schema: schema, reg: reg, padBuf: make([]byte, writerPadBufSize)}

	var hdr [headerSize]byte
	encodeHeader(hdr[:], currentHeader())
	if err := writeFull(f, hdr[:]); err != nil {
		return nil, err
	}
	msg, err := encodeSchemaMessage(schema)
	if err != nil {
		return nil, err
	}
	if err := writeFull(f, msg); err != nil {
		return nil, err
	}
	return w, nil
}

// Append opens an existing CBF file for appending further data messages.
// The file's header and schema are re-validated; batches written through
// the returned writer are typed against that schema.
func Append(f *os.File) (*Writer, error) {
	return AppendWithRegistry(f, DefaultRegistry)
}

// AppendWithRegistry is Append resolving struct tags against reg.
func AppendWithRegistry(f *os.File, reg *Registry) (*Writer, error) {
	if f == nil {
		return nil, errors.New("cbf: nil file")
	}
	if reg == nil {
		reg = DefaultRegistry
	}
	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	schema, err := readFileSchema(f, stat.Size())
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return nil, err
	}
	return &Writer{f: f, schema: schema, reg: reg, padBuf: make([]byte, writerPadBufSize)}, nil
}

// readFileSchema validates the file header and parses the leading schema
// message without loading the data messages.
func readFileSchema(r io.ReaderAt, size int64) (*Schema, error) {
	if size < headerSize+msgHdrSize {
		return nil, fmt.Errorf("%w: file of %d bytes", ErrInvalidFormat, size)
	}
	var fixed [headerSize + msgHdrSize]byte
	if _, err := r.ReadAt(fixed[:], 0); err != nil {
		return nil, err
	}
	if _, err := validateBuffer(fixed[:]); err != nil {
		return nil, err
	}
	mh, _ := decodeMessageHeader(fixed[headerSize:])
	if mh.Kind != MessageSchema {
		return nil, fmt.Errorf("%w: first message has kind %d", ErrMissingSchema, mh.Kind)
	}
	if mh.BodyLen > uint64(size-headerSize-msgHdrSize) {
		return nil, fmt.Errorf("%w: schema message", ErrTruncatedBuffer)
	}
	body := make([]byte, mh.BodyLen)
	if _, err := r.ReadAt(body, headerSize+msgHdrSize); err != nil {
		return nil, err
	}
	return unmarshalSchema(body)
}

// Schema returns the schema batches are typed against.
func (w *Writer) Schema() *Schema { return w.schema }

// WriteBatch encodes cols as one data message and appends it to the file.
func (w *Writer) WriteBatch(cols ColumnData) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errors.New("cbf: writer already closed")
	}
	msg, err := encodeDataMessage(w.schema, w.reg, cols)
	if err != nil {
		return err
	}
	// Message starts must stay aligned; a no-op for files this writer
	// produced, real padding after a foreign writer's unpadded tail.
	if err := w.alignTo(bufAlign); err != nil {
		return err
	}
	return writeFull(w.f, msg)
}

// Close syncs the file. The writer must not be used afterwards; closing
// the underlying file stays with the caller.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	return w.f.Sync()
}

func (w *Writer) alignTo(n int64) error {
	pos, err := w.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	mod := pos % n
	if mod == 0 {
		return nil
	}
	return w.writeZeros(int(n - mod))
}

func (w *Writer) writeZeros(n int) error {
	buf := w.padBuf
	if len(buf) == 0 {
		buf = make([]byte, writerPadBufSize)
	}
	for n > 0 {
		toWrite := min(n, len(buf))
		if err := writeFull(w.f, buf[:toWrite]); err != nil {
			return err
		}
		n -= toWrite
	}
	return nil
}

func writeFull(f *os.File, p []byte) error {
	for len(p) > 0 {
		n, err := f.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}
