package noproto

import "time"

// Date values are stored as a u64 count of milliseconds since the Unix
// epoch, UTC (spec.md §3.4).

func encodeDate(t time.Time) []byte { return encodeU64(uint64(t.UnixMilli())) }

func decodeDate(b []byte) time.Time {
	return time.UnixMilli(int64(decodeU64(b))).UTC()
}
