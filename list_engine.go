package noproto

// A list's pointer-record addr points to a 4-byte head block (head, tail
// u16 offsets of the first/last 5-byte item records). Each item record is
// addr(u16) next(u16) index(u8); indices increase strictly along the chain
// (spec.md §4.7).

const maxListIndex = 255

func selectListItem(mem *arena, cur Cursor, target uint8, childSchemaAddr int, makePath bool) (Cursor, bool, error) {
	vchild := func() Cursor {
		return Cursor{BufAddr: 0, SchemaAddr: childSchemaAddr, ParentSchemaAddr: cur.SchemaAddr, ParentKind: ParentNone}
	}

	headBlockOff := readAddr(mem, cur.BufAddr)
	if headBlockOff == 0 {
		if !makePath {
			return vchild(), true, nil
		}
		itemOff, err := allocListItem(mem, 0, 0, target)
		if err != nil {
			return Cursor{}, false, err
		}
		hb, err := allocListHead(mem, itemOff, itemOff)
		if err != nil {
			return Cursor{}, false, err
		}
		if !writeAddr(mem, cur.BufAddr, hb) {
			return Cursor{}, false, ErrUnreachable
		}
		return Cursor{BufAddr: itemOff, SchemaAddr: childSchemaAddr, ParentSchemaAddr: cur.SchemaAddr}, true, nil
	}

	head, tail, ok := readListHead(mem, headBlockOff)
	if !ok {
		return Cursor{}, false, ErrUnreachable
	}

	_, _, headIdx, ok := readListItem(mem, head)
	if !ok {
		return Cursor{}, false, ErrUnreachable
	}

	if target < headIdx {
		if !makePath {
			return vchild(), true, nil
		}
		newOff, err := allocListItem(mem, 0, head, target)
		if err != nil {
			return Cursor{}, false, err
		}
		if !writeListHead(mem, headBlockOff, newOff, tail) {
			return Cursor{}, false, ErrUnreachable
		}
		return Cursor{BufAddr: newOff, SchemaAddr: childSchemaAddr, ParentSchemaAddr: cur.SchemaAddr}, true, nil
	}

	prevOff := uint16(0)
	itemOff := head
	steps := 0
	for itemOff != 0 {
		steps++
		if steps > maxSelectDepth {
			return Cursor{}, false, ErrRecursionLimit
		}
		_, next, idx, ok := readListItem(mem, itemOff)
		if !ok {
			return Cursor{}, false, ErrUnreachable
		}
		if idx == target {
			return Cursor{BufAddr: itemOff, SchemaAddr: childSchemaAddr, ParentSchemaAddr: cur.SchemaAddr}, true, nil
		}
		if idx > target {
			if !makePath {
				return vchild(), true, nil
			}
			newOff, err := allocListItem(mem, 0, itemOff, target)
			if err != nil {
				return Cursor{}, false, err
			}
			if prevOff == 0 {
				if !writeListHead(mem, headBlockOff, newOff, tail) {
					return Cursor{}, false, ErrUnreachable
				}
			} else {
				writeListItemNext(mem, prevOff, newOff)
			}
			return Cursor{BufAddr: newOff, SchemaAddr: childSchemaAddr, ParentSchemaAddr: cur.SchemaAddr}, true, nil
		}
		if next == 0 {
			// idx < target and this is the tail: append, or stop.
			if !makePath {
				return vchild(), true, nil
			}
			newOff, err := allocListItem(mem, 0, 0, target)
			if err != nil {
				return Cursor{}, false, err
			}
			writeListItemNext(mem, itemOff, newOff)
			if !writeListHead(mem, headBlockOff, head, newOff) {
				return Cursor{}, false, ErrUnreachable
			}
			return Cursor{BufAddr: newOff, SchemaAddr: childSchemaAddr, ParentSchemaAddr: cur.SchemaAddr}, true, nil
		}
		prevOff = itemOff
		itemOff = next
	}
	return Cursor{}, false, ErrUnreachable
}

func writeListItemNext(mem *arena, itemOff uint16, next uint16) {
	addr, _, index, _ := readListItem(mem, itemOff)
	writeListItem(mem, itemOff, addr, next, index)
}

// Push appends a new item after the current tail (or creates index 0 if the
// list is empty), or inserts at an explicit index that must be greater than
// the current tail index (spec.md §9 open question #2: lower insertions
// must go through Select with makePath).
func listPush(mem *arena, cur Cursor, childSchemaAddr int, explicitIndex *int) (Cursor, int, error) {
	headBlockOff := readAddr(mem, cur.BufAddr)
	if headBlockOff == 0 {
		idx := 0
		if explicitIndex != nil {
			idx = *explicitIndex
		}
		if idx < 0 || idx > maxListIndex {
			return Cursor{}, 0, &ListIndexError{Index: idx, Reason: "list index exceeds 255"}
		}
		itemOff, err := allocListItem(mem, 0, 0, uint8(idx))
		if err != nil {
			return Cursor{}, 0, err
		}
		hb, err := allocListHead(mem, itemOff, itemOff)
		if err != nil {
			return Cursor{}, 0, err
		}
		if !writeAddr(mem, cur.BufAddr, hb) {
			return Cursor{}, 0, ErrUnreachable
		}
		return Cursor{BufAddr: itemOff, SchemaAddr: childSchemaAddr, ParentSchemaAddr: cur.SchemaAddr}, idx, nil
	}

	head, tail, ok := readListHead(mem, headBlockOff)
	if !ok {
		return Cursor{}, 0, ErrUnreachable
	}
	_, _, tailIdx, ok := readListItem(mem, tail)
	if !ok {
		return Cursor{}, 0, ErrUnreachable
	}

	idx := int(tailIdx) + 1
	if explicitIndex != nil {
		idx = *explicitIndex
		if idx <= int(tailIdx) {
			return Cursor{}, 0, &ListIndexError{Index: idx, Reason: "push index must exceed the current tail index; use Select to insert below it"}
		}
	}
	if idx > maxListIndex {
		return Cursor{}, 0, &ListIndexError{Index: idx, Reason: "list index exceeds 255"}
	}

	newOff, err := allocListItem(mem, 0, 0, uint8(idx))
	if err != nil {
		return Cursor{}, 0, err
	}
	writeListItemNext(mem, tail, newOff)
	if !writeListHead(mem, headBlockOff, head, newOff) {
		return Cursor{}, 0, ErrUnreachable
	}
	_ = head
	return Cursor{BufAddr: newOff, SchemaAddr: childSchemaAddr, ParentSchemaAddr: cur.SchemaAddr}, idx, nil
}

// ListItem describes one entry yielded by iterating a list.
type ListItem struct {
	Index  int
	Cursor Cursor
	OK     bool // false for a gap when OnlyReal is false
}

// listIter yields every index from 0 to the tail index; when onlyReal is
// true, gaps (indices with no allocated item) are skipped entirely.
func listIter(mem *arena, cur Cursor, childSchemaAddr int, onlyReal bool) ([]ListItem, error) {
	headBlockOff := readAddr(mem, cur.BufAddr)
	if headBlockOff == 0 {
		return nil, nil
	}
	head, tail, ok := readListHead(mem, headBlockOff)
	if !ok {
		return nil, ErrUnreachable
	}
	_, _, tailIdx, ok := readListItem(mem, tail)
	if !ok {
		return nil, ErrUnreachable
	}

	var out []ListItem
	itemOff := head
	nextWant := 0
	steps := 0
	for itemOff != 0 {
		steps++
		if steps > maxSelectDepth+maxListIndex {
			return nil, ErrRecursionLimit
		}
		_, next, idx, ok := readListItem(mem, itemOff)
		if !ok {
			return nil, ErrUnreachable
		}
		if !onlyReal {
			for nextWant < int(idx) {
				out = append(out, ListItem{Index: nextWant, OK: false})
				nextWant++
			}
		}
		out = append(out, ListItem{Index: int(idx), Cursor: Cursor{BufAddr: itemOff, SchemaAddr: childSchemaAddr, ParentSchemaAddr: cur.SchemaAddr}, OK: true})
		nextWant = int(idx) + 1
		itemOff = next
	}
	_ = tailIdx
	return out, nil
}
