package cbf

import (
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// File is a CBF buffer backed by a file, mmapped where possible so that
// column views alias the mapping directly. The file owns the bytes every
// derived view borrows: views must not outlive Close.
type File struct {
	data    []byte
	mmapped bool
}

// Open maps a CBF file read-only and validates its header. If mmap is
// unavailable, it falls back to ReadAt-based loading. The returned file
// must be closed to release any mapping.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size64 := stat.Size()
	if size64 < headerSize {
		return nil, ErrInvalidFormat
	}
	if size64 > int64(int(^uint(0)>>1)) {
		// cannot index this file safely as []byte on this architecture.
		return nil, ErrInvalidFormat
	}
	size := int(size64)

	// Prefer mmap where available for zero-copy column views.
	data, err := unix.Mmap(
		int(f.Fd()),
		0,
		size,
		unix.PROT_READ,
		unix.MAP_SHARED,
	)
	if err == nil {
		if _, verr := validateBuffer(data); verr != nil {
			_ = unix.Munmap(data)
			return nil, verr
		}
		return &File{data: data, mmapped: true}, nil
	}

	// Fallback path that does not require mmap support.
	data, err = readAllAt(f, size)
	if err != nil {
		return nil, err
	}
	if _, err := validateBuffer(data); err != nil {
		return nil, err
	}
	return &File{data: data}, nil
}

// OpenReaderAt loads and validates a CBF buffer from a random-access
// reader without mmap.
func OpenReaderAt(r io.ReaderAt, size int64) (*File, error) {
	if size < headerSize || size > int64(int(^uint(0)>>1)) {
		return nil, ErrInvalidFormat
	}
	data, err := readAllAt(r, int(size))
	if err != nil {
		return nil, err
	}
	if _, err := validateBuffer(data); err != nil {
		return nil, err
	}
	return &File{data: data}, nil
}

func readAllAt(r io.ReaderAt, size int) ([]byte, error) {
	out := make([]byte, size)
	var off int64
	for off < int64(size) {
		n, err := r.ReadAt(out[off:], off)
		off += int64(n)
		if err == nil {
			continue
		}
		if err == io.EOF && off == int64(size) {
			break
		}
		return nil, err
	}
	return out, nil
}

// Bytes returns the whole underlying buffer. The slice is invalid after
// Close.
func (f *File) Bytes() []byte { return f.data }

// Stream returns a fresh batch stream over the file using the default
// registry.
func (f *File) Stream() (*Stream, error) {
	return NewStream(f.data)
}

// StreamWithRegistry is Stream resolving struct tags against reg.
func (f *File) StreamWithRegistry(reg *Registry) (*Stream, error) {
	return NewStreamWithRegistry(f.data, reg)
}

// Close releases the mapping. Every view derived from the file is invalid
// afterwards.
func (f *File) Close() error {
	if f == nil || f.data == nil {
		return nil
	}
	var err error
	if f.mmapped {
		err = unix.Munmap(f.data)
	}
	f.data = nil
	f.mmapped = false
	return err
}
