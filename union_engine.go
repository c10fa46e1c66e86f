package noproto

// A union's pointer-record addr points to a 3-byte discriminant block:
// tag(u8) value_addr(u16). Selecting a variant that disagrees with the
// block's stored tag is an error (spec.md §4.3: "error if the branch
// disagrees with path") rather than a silent re-tag or a reported absence
// — the caller must switch variants explicitly by deleting the union
// first (clearing its discriminant block) before writing a different one.

const unionBlockSize = 3

func selectUnionVariant(mem *arena, cur Cursor, tag uint8, childSchemaAddr int, makePath bool) (Cursor, bool, error) {
	blockOff := readAddr(mem, cur.BufAddr)
	if blockOff == 0 {
		if !makePath {
			return Cursor{BufAddr: 0, SchemaAddr: childSchemaAddr, ParentSchemaAddr: cur.SchemaAddr, ParentKind: ParentNone}, true, nil
		}
		nb, err := mem.mallocZero(unionBlockSize)
		if err != nil {
			return Cursor{}, false, err
		}
		if !writeUnionTag(mem, nb, tag) {
			return Cursor{}, false, ErrUnreachable
		}
		if !writeAddr(mem, cur.BufAddr, nb) {
			return Cursor{}, false, ErrUnreachable
		}
		return Cursor{BufAddr: nb + 1, SchemaAddr: childSchemaAddr, ParentSchemaAddr: cur.SchemaAddr}, true, nil
	}

	curTag, ok := readUnionTag(mem, blockOff)
	if !ok {
		return Cursor{}, false, ErrUnreachable
	}
	if curTag != tag {
		return Cursor{}, false, &UnionVariantError{Requested: int(tag), Stored: int(curTag)}
	}
	return Cursor{BufAddr: blockOff + 1, SchemaAddr: childSchemaAddr, ParentSchemaAddr: cur.SchemaAddr}, true, nil
}

// unionActiveTag reports the currently selected variant, or (0, false) if
// the union has never been written.
func unionActiveTag(mem *arena, cur Cursor) (uint8, bool) {
	blockOff := readAddr(mem, cur.BufAddr)
	if blockOff == 0 {
		return 0, false
	}
	tag, ok := readUnionTag(mem, blockOff)
	return tag, ok
}

func readUnionTag(mem *arena, blockOff uint16) (uint8, bool) {
	b, ok := mem.slice(blockOff, 1)
	if !ok {
		return 0, false
	}
	return b[0], true
}

func writeUnionTag(mem *arena, blockOff uint16, tag uint8) bool {
	return mem.writeAt(blockOff, []byte{tag})
}
