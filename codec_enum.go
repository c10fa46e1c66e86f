package noproto

// Enum values are stored as a single byte: the index into the schema's
// ordered EnumChoices list.

func encodeEnumIndex(i int) []byte { return []byte{byte(i)} }
func decodeEnumIndex(b []byte) int { return int(b[0]) }

func enumIndexOf(choices []string, name string) (int, bool) {
	for i, c := range choices {
		if c == name {
			return i, true
		}
	}
	return 0, false
}
