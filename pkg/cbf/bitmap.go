package cbf

// Validity bitmaps use Arrow bit order: bit i%8 of byte i/8, 1 = present.

func bitmapSet(bm []byte, i int) {
	bm[i/8] |= 1 << (i % 8)
}

func bitmapGet(bm []byte, i int) bool {
	return bm[i/8]&(1<<(i%8)) != 0
}
