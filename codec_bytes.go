package noproto

// Bytes values share the variable/fixed blob storage defined in
// codec_string.go; string values are the same storage with a UTF-8
// string<->[]byte conversion at the edges.

func encodeStringValue(s string) []byte { return []byte(s) }
func decodeStringValue(b []byte) string { return string(b) }
