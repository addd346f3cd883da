// Package cbf implements the Columnar Batch Format.
//
// CBF is a single-buffer, memory-mappable interchange format for columnar
// tables. A buffer holds a fixed header, one schema message, and any number
// of data messages (batches). Decoding hands out typed views directly over
// the buffer's bytes and never copies column data.
package cbf

import "encoding/binary"

// CBF global constants must never change.
const (
	// Magic is the leading marker for all CBF buffers.
	// It is encoded as "CBF\0".
	Magic = "CBF\x00"

	// Current Major Version: Any change indicates a breaking format change.
	CurrentMajor uint16 = 1

	// Current Minor Version: Versions may add new optional fields.
	CurrentMinor uint16 = 0
)

const (
	// All regions and message starts are aligned to this many bytes.
	bufAlign = 8

	headerSize  = 16
	msgHdrSize  = 16
	dataHdrSize = 16
	descSize    = 40
)

// MessageKind discriminates the messages that follow the buffer header.
type MessageKind uint32

const (
	MessageSchema MessageKind = 1
	MessageData   MessageKind = 2
)

// Header is the fixed leading structure of every CBF buffer.
type Header struct {
	Magic [4]byte
	Major uint16
	Minor uint16
	Flags uint64
}

func (h *Header) Valid() bool {
	return string(h.Magic[:]) == Magic
}

func (h *Header) Compatible() bool {
	return h.Major == CurrentMajor
}

func encodeHeader(dst []byte, h Header) bool {
	if len(dst) < headerSize {
		return false
	}
	copy(dst[0:4], h.Magic[:])
	binary.LittleEndian.PutUint16(dst[4:6], h.Major)
	binary.LittleEndian.PutUint16(dst[6:8], h.Minor)
	binary.LittleEndian.PutUint64(dst[8:16], h.Flags)
	return true
}

func decodeHeader(b []byte) (Header, bool) {
	if len(b) < headerSize {
		return Header{}, false
	}
	var h Header
	copy(h.Magic[:], b[0:4])
	h.Major = binary.LittleEndian.Uint16(b[4:6])
	h.Minor = binary.LittleEndian.Uint16(b[6:8])
	h.Flags = binary.LittleEndian.Uint64(b[8:16])
	return h, true
}

func currentHeader() Header {
	var h Header
	copy(h.Magic[:], Magic)
	h.Major = CurrentMajor
	h.Minor = CurrentMinor
	return h
}

// messageHeader frames a single schema or data message.
type messageHeader struct {
	Kind    MessageKind
	BodyLen uint64
}

func encodeMessageHeader(dst []byte, m messageHeader) bool {
	if len(dst) < msgHdrSize {
		return false
	}
	binary.LittleEndian.PutUint32(dst[0:4], uint32(m.Kind))
	binary.LittleEndian.PutUint32(dst[4:8], 0) // reserved
	binary.LittleEndian.PutUint64(dst[8:16], m.BodyLen)
	return true
}

func decodeMessageHeader(b []byte) (messageHeader, bool) {
	if len(b) < msgHdrSize {
		return messageHeader{}, false
	}
	var m messageHeader
	m.Kind = MessageKind(binary.LittleEndian.Uint32(b[0:4]))
	m.BodyLen = binary.LittleEndian.Uint64(b[8:16])
	return m, true
}
