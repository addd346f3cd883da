package cbf

import "errors"

var (
	// ErrInvalidFormat indicates a bad magic marker or an unparseable header.
	ErrInvalidFormat = errors.New("cbf: invalid format")

	// ErrUnsupportedMajor indicates a buffer written by an incompatible
	// format revision.
	ErrUnsupportedMajor = errors.New("cbf: unsupported major version")

	// ErrTruncatedBuffer indicates a message or region that claims more
	// bytes than remain in the buffer.
	ErrTruncatedBuffer = errors.New("cbf: truncated buffer")

	// ErrMissingSchema indicates a stream whose first message is not a
	// schema message.
	ErrMissingSchema = errors.New("cbf: missing schema message")

	// ErrSchemaMismatch indicates a data message whose layout disagrees
	// with the stream's schema.
	ErrSchemaMismatch = errors.New("cbf: schema mismatch")

	// ErrTypeMismatch indicates an operation on incompatible logical types,
	// such as chaining an int64 column with a utf8 column.
	ErrTypeMismatch = errors.New("cbf: type mismatch")

	// ErrEncoding indicates a value that does not match its column's
	// declared logical type during encode.
	ErrEncoding = errors.New("cbf: encoding error")

	// ErrDuplicateTag indicates a struct tag registered twice.
	ErrDuplicateTag = errors.New("cbf: duplicate type tag")

	// ErrTypeInference indicates a column whose element type cannot be
	// mapped onto a supported logical type.
	ErrTypeInference = errors.New("cbf: type inference failed")
)
