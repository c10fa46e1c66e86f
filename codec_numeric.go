package noproto

import (
	"encoding/binary"
	"math"
)

// Fixed-width integer and float scalars are stored as plain big-endian
// two's-complement/IEEE-754 bytes when addressed through a normal pointer
// record. Inside a sortable tuple the same bytes are additionally remapped
// (flipSignBit) so that an unsigned byte-wise comparison of the tuple's
// inline region agrees with numeric order (spec.md §3.5.6).

func encodeU8(v uint8) []byte  { return []byte{v} }
func decodeU8(b []byte) uint8  { return b[0] }
func encodeI8(v int8) []byte   { return []byte{byte(v)} }
func decodeI8(b []byte) int8   { return int8(b[0]) }

func encodeU16(v uint16) []byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return b[:]
}
func decodeU16(b []byte) uint16 { return binary.BigEndian.Uint16(b) }

func encodeI16(v int16) []byte  { return encodeU16(uint16(v)) }
func decodeI16(b []byte) int16  { return int16(decodeU16(b)) }

func encodeU32(v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return b[:]
}
func decodeU32(b []byte) uint32 { return binary.BigEndian.Uint32(b) }

func encodeI32(v int32) []byte  { return encodeU32(uint32(v)) }
func decodeI32(b []byte) int32  { return int32(decodeU32(b)) }

func encodeU64(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}
func decodeU64(b []byte) uint64 { return binary.BigEndian.Uint64(b) }

func encodeI64(v int64) []byte  { return encodeU64(uint64(v)) }
func decodeI64(b []byte) int64  { return int64(decodeU64(b)) }

func encodeF32(v float32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], math.Float32bits(v))
	return b[:]
}
func decodeF32(b []byte) float32 { return math.Float32frombits(binary.BigEndian.Uint32(b)) }

func encodeF64(v float64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
	return b[:]
}
func decodeF64(b []byte) float64 { return math.Float64frombits(binary.BigEndian.Uint64(b)) }

// flipSignBit toggles the top bit of a big-endian fixed-width signed-integer
// encoding in place, the standard trick for making two's-complement order
// match unsigned byte order (min negative -> all-zero, max positive ->
// all-one). Applying it twice is its own inverse.
func flipSignBit(b []byte) {
	if len(b) == 0 {
		return
	}
	b[0] ^= 0x80
}

// remapFloatForSort reorders an IEEE-754 big-endian encoding so unsigned
// byte comparison matches float order: flip all bits for negatives, just the
// sign bit for non-negatives. It is not its own inverse (a remapped negative
// has its top bit clear, a remapped non-negative has it set), so the sortable
// read path in scalarValueTyped undoes it with the opposite branch test.
func remapFloatForSort(b []byte) {
	if len(b) == 0 {
		return
	}
	if b[0]&0x80 != 0 {
		for i := range b {
			b[i] = ^b[i]
		}
	} else {
		b[0] ^= 0x80
	}
}

// remapForSortableOrder applies flipSignBit/remapFloatForSort in place to b
// when node's kind needs it to make unsigned byte order agree with logical
// order inside a sortable tuple (spec.md §3.5.6 / §8 testable property 6).
// flipSignBit is its own inverse, so the same call also undoes it on read;
// the float remap is undone separately (see remapFloatForSort).
func remapForSortableOrder(kind Kind, b []byte) {
	switch kind {
	case KindI8, KindI16, KindI32, KindI64, KindDecimal:
		flipSignBit(b)
	case KindF32, KindF64:
		remapFloatForSort(b)
	}
}
