package noproto

import "github.com/google/uuid"

// UUID values are stored as their raw 16-byte binary form.

func encodeUUID(id uuid.UUID) []byte {
	b := make([]byte, 16)
	copy(b, id[:])
	return b
}

func decodeUUID(b []byte) uuid.UUID {
	var id uuid.UUID
	copy(id[:], b)
	return id
}
