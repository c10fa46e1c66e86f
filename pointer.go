package noproto

import "encoding/binary"

// Pointer record sizes, per spec.md §3.2.
const (
	scalarPointerSize = 2
	listItemSize       = 5
	mapItemSize        = 6
	vtableSize         = 10
	vtableSlots        = 4
)

// readU16 reads a bounds-checked big-endian u16 at off, returning 0 if the
// offset is 0 (the null pointer) or out of range.
func readU16(a *arena, off uint16) uint16 {
	if off == 0 {
		return 0
	}
	b, ok := a.get2Bytes(off)
	if !ok {
		return 0
	}
	return binary.BigEndian.Uint16(b[:])
}

// writeU16 writes a big-endian u16 at off. off must already be allocated.
func writeU16(a *arena, off uint16, v uint16) bool {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return a.writeAt(off, b[:])
}

// allocU16 appends a single u16 pointer record, returning its offset.
func allocU16(a *arena, v uint16) (uint16, error) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return a.malloc(b[:])
}

// --- List item record: addr(u16) next(u16) index(u8), 5 bytes ---

type listItemView struct {
	off uint16
}

func readListItem(a *arena, off uint16) (addr, next uint16, index uint8, ok bool) {
	b, k := a.slice(off, listItemSize)
	if !k {
		return 0, 0, 0, false
	}
	addr = binary.BigEndian.Uint16(b[0:2])
	next = binary.BigEndian.Uint16(b[2:4])
	index = b[4]
	return addr, next, index, true
}

func writeListItem(a *arena, off uint16, addr, next uint16, index uint8) bool {
	var b [listItemSize]byte
	binary.BigEndian.PutUint16(b[0:2], addr)
	binary.BigEndian.PutUint16(b[2:4], next)
	b[4] = index
	return a.writeAt(off, b[:])
}

func allocListItem(a *arena, addr, next uint16, index uint8) (uint16, error) {
	var b [listItemSize]byte
	binary.BigEndian.PutUint16(b[0:2], addr)
	binary.BigEndian.PutUint16(b[2:4], next)
	b[4] = index
	return a.malloc(b[:])
}

// --- List head block: head(u16) tail(u16), 4 bytes ---

func readListHead(a *arena, off uint16) (head, tail uint16, ok bool) {
	b, k := a.slice(off, 4)
	if !k {
		return 0, 0, false
	}
	return binary.BigEndian.Uint16(b[0:2]), binary.BigEndian.Uint16(b[2:4]), true
}

func writeListHead(a *arena, off uint16, head, tail uint16) bool {
	var b [4]byte
	binary.BigEndian.PutUint16(b[0:2], head)
	binary.BigEndian.PutUint16(b[2:4], tail)
	return a.writeAt(off, b[:])
}

func allocListHead(a *arena, head, tail uint16) (uint16, error) {
	var b [4]byte
	binary.BigEndian.PutUint16(b[0:2], head)
	binary.BigEndian.PutUint16(b[2:4], tail)
	return a.malloc(b[:])
}

// --- Map item record: addr(u16) next(u16) key_addr(u16), 6 bytes ---

func readMapItem(a *arena, off uint16) (addr, next, keyAddr uint16, ok bool) {
	b, k := a.slice(off, mapItemSize)
	if !k {
		return 0, 0, 0, false
	}
	addr = binary.BigEndian.Uint16(b[0:2])
	next = binary.BigEndian.Uint16(b[2:4])
	keyAddr = binary.BigEndian.Uint16(b[4:6])
	return addr, next, keyAddr, true
}

func writeMapItem(a *arena, off uint16, addr, next, keyAddr uint16) bool {
	var b [mapItemSize]byte
	binary.BigEndian.PutUint16(b[0:2], addr)
	binary.BigEndian.PutUint16(b[2:4], next)
	binary.BigEndian.PutUint16(b[4:6], keyAddr)
	return a.writeAt(off, b[:])
}

func allocMapItem(a *arena, addr, next, keyAddr uint16) (uint16, error) {
	var b [mapItemSize]byte
	binary.BigEndian.PutUint16(b[0:2], addr)
	binary.BigEndian.PutUint16(b[2:4], next)
	binary.BigEndian.PutUint16(b[4:6], keyAddr)
	return a.malloc(b[:])
}

// allocKey appends a length-prefixed UTF-8 key blob: 1 byte length + bytes.
func allocKey(a *arena, key string) (uint16, error) {
	if len(key) > 255 {
		return 0, &ListIndexError{Index: len(key), Reason: "map key longer than 255 bytes"}
	}
	b := make([]byte, 1+len(key))
	b[0] = byte(len(key))
	copy(b[1:], key)
	return a.malloc(b)
}

func readKey(a *arena, off uint16) (string, bool) {
	if off == 0 {
		return "", false
	}
	lb, ok := a.slice(off, 1)
	if !ok {
		return "", false
	}
	l := int(lb[0])
	kb, ok := a.slice(off+1, l)
	if !ok {
		return "", false
	}
	return string(kb), true
}

// --- Vtable record: 4 x u16 slot + u16 next, 10 bytes ---

func vtableSlotOffset(vtableOff uint16, slot int) uint16 {
	return vtableOff + uint16(slot*2)
}

func readVtableNext(a *arena, vtableOff uint16) uint16 {
	return readU16(a, vtableOff+8)
}

func writeVtableNext(a *arena, vtableOff uint16, next uint16) bool {
	return writeU16(a, vtableOff+8, next)
}

func allocVtable(a *arena) (uint16, error) {
	return a.mallocZero(vtableSize)
}
