package noproto

// Struct and non-sortable tuple fields share the same vtable layout
// (spec.md §4.5/§4.6): a pointer record whose addr names the first 10-byte
// vtable in a chain; field k lives in slot (k mod 4) of vtable k/4.

// selectVtableField walks/extends the vtable chain rooted at cur (whose
// addr, if non-zero, is the offset of the first vtable) to the slot for
// fieldIdx, allocating vtables on demand when makePath is set.
func selectVtableField(mem *arena, cur Cursor, fieldIdx int, childSchemaAddr int, parentKind ParentKind, makePath bool) (Cursor, bool, error) {
	vchild := func() Cursor {
		return Cursor{BufAddr: 0, SchemaAddr: childSchemaAddr, ParentSchemaAddr: cur.SchemaAddr, ParentKind: parentKind}
	}

	addr := readAddr(mem, cur.BufAddr)
	if addr == 0 {
		if !makePath {
			return vchild(), true, nil
		}
		newVtable, err := allocVtable(mem)
		if err != nil {
			return Cursor{}, false, err
		}
		if !writeAddr(mem, cur.BufAddr, newVtable) {
			return Cursor{}, false, ErrUnreachable
		}
		addr = newVtable
	}

	vtableIdx := fieldIdx / vtableSlots
	slot := fieldIdx % vtableSlots
	vtableOff := addr

	for v := 0; v < vtableIdx; v++ {
		next := readVtableNext(mem, vtableOff)
		if next == 0 {
			if !makePath {
				return vchild(), true, nil
			}
			nv, err := allocVtable(mem)
			if err != nil {
				return Cursor{}, false, err
			}
			if !writeVtableNext(mem, vtableOff, nv) {
				return Cursor{}, false, ErrUnreachable
			}
			next = nv
		}
		vtableOff = next
	}

	slotOff := vtableSlotOffset(vtableOff, slot)
	return Cursor{BufAddr: slotOff, SchemaAddr: childSchemaAddr, ParentSchemaAddr: cur.SchemaAddr, ParentKind: parentKind}, true, nil
}

// readAddr reads the pointer-record "addr" field at cur's buffer offset,
// returning 0 (the null pointer) for a virtual (BufAddr == 0) cursor
// without touching the arena.
func readAddr(mem *arena, bufAddr uint16) uint16 {
	if bufAddr == 0 {
		return 0
	}
	return readU16(mem, bufAddr)
}

func writeAddr(mem *arena, bufAddr uint16, addr uint16) bool {
	if bufAddr == 0 {
		return false
	}
	return writeU16(mem, bufAddr, addr)
}

// structVtableCount returns how many vtables are reachable from root
// (0 if no vtable has been allocated), the quantity spec.md §8 invariant 3
// bounds (N fields -> ceil(N/4) vtables). Nothing in the package calls it;
// Buffer.Length reports a struct's declared field count instead.
func structVtableCount(mem *arena, rootAddr uint16) int {
	addr := readU16(mem, rootAddr)
	if addr == 0 {
		return 0
	}
	count := 0
	for addr != 0 {
		count++
		addr = readVtableNext(mem, addr)
	}
	return count
}

// StructFieldIter yields (name, cursor, present, ok) for every declared
// field of a struct in declaration order (spec.md §4.5 iter); ok is false
// once every field has been yielded.
type StructFieldIter struct {
	mem     *arena
	node    *SchemaNode
	cur     Cursor
	idx     int
}

func newStructFieldIter(mem *arena, node *SchemaNode, cur Cursor) *StructFieldIter {
	return &StructFieldIter{mem: mem, node: node, cur: cur}
}

func (it *StructFieldIter) Next() (name string, field Cursor, present bool, ok bool) {
	if it.idx >= len(it.node.Fields) {
		return "", Cursor{}, false, false
	}
	f := it.node.Fields[it.idx]
	fc, _, err := selectVtableField(it.mem, it.cur, it.idx, f.Child, ParentNone, false)
	it.idx++
	if err != nil {
		return f.Name, Cursor{}, false, true
	}
	return f.Name, fc, fc.valid() && readAddr(it.mem, fc.BufAddr) != 0, true
}
