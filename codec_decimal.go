package noproto

// Decimal values are stored as a plain 8-byte i64 body; the fractional
// exponent is fixed per-schema (SchemaNode.DecimalExp), not carried in the
// value bytes, so every decimal value in a column encodes to exactly 8
// bytes (spec.md §3.4: "decimal fixed exponent").

// Decimal is a fixed-point value: Unscaled * 10^-Exp.
type Decimal struct {
	Unscaled int64
	Exp      uint8
}

func encodeDecimal(v int64) []byte { return encodeI64(v) }
func decodeDecimal(b []byte) int64 { return decodeI64(b) }
