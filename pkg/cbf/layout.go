package cbf

// TypeSize returns the fixed per-element byte width of t. The second
// result is false for variable-width types (utf8) and for struct, whose
// storage is carried entirely by its children.
func TypeSize(t Type) (int, bool) {
	switch t {
	case TypeInt64, TypeTimestamp:
		return 8, true
	case TypeFloat64:
		return 8, true
	case TypeDate:
		return 4, true
	default:
		return 0, false
	}
}

// AlignPad returns the padding needed to advance off to the next multiple
// of align. align must be a power of two.
func AlignPad(off, align int) int {
	if align <= 1 {
		return 0
	}
	return (align - off&(align-1)) & (align - 1)
}

func alignUp(off, align int) int {
	return off + AlignPad(off, align)
}

// bitmapBytes returns the byte length of a validity bitmap covering n rows.
func bitmapBytes(n int) int {
	return (n + 7) / 8
}

// offsetsBytes returns the byte length of the offsets array for a
// variable-width column of n rows (n+1 uint32 entries).
func offsetsBytes(n int) int {
	return (n + 1) * 4
}
