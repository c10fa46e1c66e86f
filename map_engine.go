package noproto

// A map's pointer-record addr points directly to the first 6-byte item
// record in a singly-linked chain; there is no separate head/tail block
// (unlike lists), since maps have no ordering invariant to maintain
// (spec.md §4.8). Keys are length-prefixed blobs allocated once per entry:
// selecting an existing key reuses its item and key blob, and a new key
// allocates a fresh blob that is not shared with any other map.

func selectMapItem(mem *arena, cur Cursor, key string, childSchemaAddr int, makePath bool) (Cursor, bool, error) {
	vchild := func() Cursor {
		return Cursor{BufAddr: 0, SchemaAddr: childSchemaAddr, ParentSchemaAddr: cur.SchemaAddr, ParentKind: ParentNone}
	}

	itemOff := readAddr(mem, cur.BufAddr)
	if itemOff == 0 {
		if !makePath {
			return vchild(), true, nil
		}
		return appendMapItem(mem, cur, 0, key, childSchemaAddr)
	}

	var prevOff uint16
	steps := 0
	for itemOff != 0 {
		steps++
		if steps > maxSelectDepth {
			return Cursor{}, false, ErrRecursionLimit
		}
		_, next, keyAddr, ok := readMapItem(mem, itemOff)
		if !ok {
			return Cursor{}, false, ErrUnreachable
		}
		k, ok := readKey(mem, keyAddr)
		if ok && k == key {
			return Cursor{BufAddr: itemOff, SchemaAddr: childSchemaAddr, ParentSchemaAddr: cur.SchemaAddr}, true, nil
		}
		if next == 0 {
			if !makePath {
				return vchild(), true, nil
			}
			return appendMapItem(mem, cur, itemOff, key, childSchemaAddr)
		}
		prevOff = itemOff
		itemOff = next
	}
	_ = prevOff
	return vchild(), true, nil
}

// appendMapItem allocates the key blob and a new item record, linking it
// after tailOff (or writing the root pointer when tailOff == 0, i.e. the
// map was empty).
func appendMapItem(mem *arena, cur Cursor, tailOff uint16, key string, childSchemaAddr int) (Cursor, bool, error) {
	keyAddr, err := allocKey(mem, key)
	if err != nil {
		return Cursor{}, false, err
	}
	newOff, err := allocMapItem(mem, 0, 0, keyAddr)
	if err != nil {
		return Cursor{}, false, err
	}
	if tailOff == 0 {
		if !writeAddr(mem, cur.BufAddr, newOff) {
			return Cursor{}, false, ErrUnreachable
		}
	} else {
		addr, _, keyA, _ := readMapItem(mem, tailOff)
		if !writeMapItem(mem, tailOff, addr, newOff, keyA) {
			return Cursor{}, false, ErrUnreachable
		}
	}
	return Cursor{BufAddr: newOff, SchemaAddr: childSchemaAddr, ParentSchemaAddr: cur.SchemaAddr}, true, nil
}

// MapEntry is one key/value pair yielded by iterating a map.
type MapEntry struct {
	Key    string
	Cursor Cursor
}

func mapIter(mem *arena, cur Cursor, childSchemaAddr int) ([]MapEntry, error) {
	itemOff := readAddr(mem, cur.BufAddr)
	var out []MapEntry
	steps := 0
	for itemOff != 0 {
		steps++
		if steps > maxSelectDepth+maxListIndex {
			return nil, ErrRecursionLimit
		}
		_, next, keyAddr, ok := readMapItem(mem, itemOff)
		if !ok {
			return nil, ErrUnreachable
		}
		k, _ := readKey(mem, keyAddr)
		out = append(out, MapEntry{Key: k, Cursor: Cursor{BufAddr: itemOff, SchemaAddr: childSchemaAddr, ParentSchemaAddr: cur.SchemaAddr}})
		itemOff = next
	}
	return out, nil
}

// mapLength counts live entries without materializing cursors, used by
// Buffer.Length.
func mapLength(mem *arena, cur Cursor) int {
	itemOff := readAddr(mem, cur.BufAddr)
	n := 0
	for itemOff != 0 {
		n++
		_, next, _, ok := readMapItem(mem, itemOff)
		if !ok {
			break
		}
		itemOff = next
	}
	return n
}
