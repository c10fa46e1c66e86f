package noproto

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// ULID values are stored as their raw 16 bytes: a 6-byte big-endian
// millisecond timestamp prefix followed by 10 random bytes, so that
// unsigned byte comparison sorts by creation time (spec.md §3.4).
type ULID [16]byte

func newULID() (ULID, error) {
	var u ULID
	ms := uint64(time.Now().UnixMilli())
	var tb [8]byte
	binary.BigEndian.PutUint64(tb[:], ms)
	copy(u[:6], tb[2:])
	if _, err := rand.Read(u[6:]); err != nil {
		return ULID{}, err
	}
	return u, nil
}

func encodeULID(u ULID) []byte {
	b := make([]byte, 16)
	copy(b, u[:])
	return b
}

func decodeULID(b []byte) ULID {
	var u ULID
	copy(u[:], b)
	return u
}

func (u ULID) Time() time.Time {
	var tb [8]byte
	copy(tb[2:], u[:6])
	return time.UnixMilli(int64(binary.BigEndian.Uint64(tb[:]))).UTC()
}
