package noproto

// Variable-length string/bytes values (FixedSize == 0 in the schema) are
// stored as a self-describing region: a u16 big-endian length followed by
// that many bytes of payload (spec.md §4.4, §6.4). Writing a value whose
// length is no greater than the previously stored length overwrites in
// place (the old region is at least that big) and only updates the length
// prefix; a longer value leaks the old region (reclaimed by the next
// Compact) and allocates a fresh one sized exactly to the new value, then
// repoints the owning pointer record (spec.md §3.4, §5).
//
// Fixed-size string/bytes values (FixedSize > 0, used for sortable tuples
// and columns with a known maximum) are stored as exactly FixedSize raw
// bytes with no length prefix, right-padded with zero bytes.

const varBlobHeaderSize = 2

func writeVarBlob(mem *arena, cur Cursor, value []byte) error {
	existing := readAddr(mem, cur.BufAddr)
	if existing != 0 {
		hdr, ok := mem.slice(existing, varBlobHeaderSize)
		if ok {
			oldLen := decodeU16(hdr)
			if int(oldLen) >= len(value) {
				var lb [2]byte
				putU16(lb[:], uint16(len(value)))
				mem.writeAt(existing, lb[:])
				mem.writeAt(existing+varBlobHeaderSize, value)
				return nil
			}
		}
	}
	region := make([]byte, varBlobHeaderSize+len(value))
	putU16(region[0:2], uint16(len(value)))
	copy(region[varBlobHeaderSize:], value)
	newOff, err := mem.malloc(region)
	if err != nil {
		return err
	}
	if !writeAddr(mem, cur.BufAddr, newOff) {
		return ErrUnreachable
	}
	return nil
}

func readVarBlob(mem *arena, cur Cursor) ([]byte, bool) {
	off := readAddr(mem, cur.BufAddr)
	if off == 0 {
		return nil, false
	}
	hdr, ok := mem.slice(off, varBlobHeaderSize)
	if !ok {
		return nil, false
	}
	l := decodeU16(hdr)
	b, ok := mem.slice(off+varBlobHeaderSize, int(l))
	if !ok {
		return nil, false
	}
	out := make([]byte, l)
	copy(out, b)
	return out, true
}

func writeFixedBlob(mem *arena, cur Cursor, value []byte, size uint16) error {
	if uint16(len(value)) > size {
		return &TypeMismatchError{Wanted: "fixed-size value exceeds declared size", Err: ErrIndexOutOfRange}
	}
	region := make([]byte, size)
	copy(region, value)

	existing := readAddr(mem, cur.BufAddr)
	if existing != 0 {
		mem.writeAt(existing, region)
		return nil
	}
	off, err := mem.malloc(region)
	if err != nil {
		return err
	}
	if !writeAddr(mem, cur.BufAddr, off) {
		return ErrUnreachable
	}
	return nil
}

func readFixedBlob(mem *arena, cur Cursor, size uint16) ([]byte, bool) {
	off := readAddr(mem, cur.BufAddr)
	if off == 0 {
		return nil, false
	}
	b, ok := mem.slice(off, int(size))
	if !ok {
		return nil, false
	}
	out := make([]byte, size)
	copy(out, b)
	return out, true
}

func putU16(dst []byte, v uint16) {
	dst[0] = byte(v >> 8)
	dst[1] = byte(v)
}
