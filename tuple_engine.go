package noproto

// Tuples are fixed-arity and come in two layouts (spec.md §4.6):
//
//   - Non-sortable tuple: identical wire layout to a struct, walked via
//     selectVtableField. Field order is positional instead of named.
//   - Sortable tuple: a dedicated inline layout that produces a
//     lexicographically-ordered byte prefix, so two sortable tuples can be
//     compared with bytes.Compare without decoding them. Laid out as a
//     header of (vtableCount * 0, i.e. none) followed directly by, for each
//     element, a 1-byte presence flag and its fixed-width value bytes
//     back-to-back in declaration order. Only fixed-width scalar kinds,
//     fixed-size string/bytes and nested sortable tuples may appear in a
//     sortable tuple; at schema-build time a tuple with any other element
//     has its Sortable flag cleared (computeSortable in schema.go).

// sortableRootSentinel marks a Cursor whose BufAddr names the root of a
// Buffer opened with OpenSortableBuffer/EmptySortableBuffer: such a buffer
// has no root pointer record at all (the whole arena from byte 0 IS the
// tuple's inline region, so the buffer's own bytes can be compared
// directly), so selectSortableField must not dereference it like an
// ordinary slot. 0xFFFF is never a valid allocated offset (malloc rejects
// any allocation starting there, since the arena is capped at 0xFFFF
// bytes), so it is safe to reserve as this marker.
const sortableRootSentinel = 0xFFFF

func selectTupleField(mem *arena, schema *Schema, cur Cursor, node *SchemaNode, idx int, childSchemaAddr int, makePath bool) (Cursor, bool, error) {
	if !node.Sortable {
		return selectVtableField(mem, cur, idx, childSchemaAddr, ParentTuple, makePath)
	}
	return selectSortableField(mem, schema, cur, node, idx, childSchemaAddr, makePath)
}

// sortableSlotOffsets returns, for a sortable tuple whose inline region
// starts at base, the (presenceOffset, valueOffset) pair for element idx.
func sortableSlotOffsets(schema *Schema, node *SchemaNode, base uint16, idx int) (presence uint16, value uint16) {
	off := base
	for i := 0; i < idx; i++ {
		child := schema.Get(node.Values[i])
		off += 1 + sortableChildWidth(schema, child)
	}
	return off, off + 1
}

// fixedWidthOf returns the inline byte width of a scalar kind usable inside
// a sortable tuple; non-fixed-width kinds never reach here because schema
// construction rejects them for sortable tuples (see computeSortable).
func fixedWidthOf(n *SchemaNode) uint16 {
	switch n.Kind {
	case KindBool, KindU8, KindI8:
		return 1
	case KindU16, KindI16:
		return 2
	case KindU32, KindI32, KindF32:
		return 4
	case KindU64, KindI64, KindF64, KindDate, KindDecimal:
		return 8
	case KindGeo:
		return uint16(n.GeoSize)
	case KindUUID:
		return 16
	case KindULID:
		return 16
	case KindEnum:
		return 1
	default:
		return 0
	}
}

func sortableTupleWidth(schema *Schema, node *SchemaNode) uint16 {
	var total uint16
	for _, childIdx := range node.Values {
		total += 1 + sortableChildWidth(schema, schema.Get(childIdx))
	}
	return total
}

func selectSortableField(mem *arena, schema *Schema, cur Cursor, node *SchemaNode, idx int, childSchemaAddr int, makePath bool) (Cursor, bool, error) {
	if cur.BufAddr == sortableRootSentinel {
		presenceOff, _ := sortableSlotOffsets(schema, node, 0, idx)
		return Cursor{
			BufAddr:          presenceOff,
			SchemaAddr:       childSchemaAddr,
			ParentSchemaAddr: cur.SchemaAddr,
			ParentKind:       ParentTuple,
			sortableSlot:     presenceOff,
			inSortableTuple:  true,
		}, true, nil
	}

	base := readAddr(mem, cur.BufAddr)
	if base == 0 {
		if !makePath {
			return Cursor{BufAddr: 0, SchemaAddr: childSchemaAddr, ParentSchemaAddr: cur.SchemaAddr, ParentKind: ParentTuple}, true, nil
		}
		width := sortableTupleWidth(schema, node)
		newBase, err := mem.mallocZero(int(width))
		if err != nil {
			return Cursor{}, false, err
		}
		if !writeAddr(mem, cur.BufAddr, newBase) {
			return Cursor{}, false, ErrUnreachable
		}
		base = newBase
	}
	presenceOff, valueOff := sortableSlotOffsets(schema, node, base, idx)
	_ = valueOff
	return Cursor{
		BufAddr:          presenceOff,
		SchemaAddr:       childSchemaAddr,
		ParentSchemaAddr: cur.SchemaAddr,
		ParentKind:       ParentTuple,
		sortableSlot:     presenceOff,
		inSortableTuple:  true,
	}, true, nil
}

// closeSortable finalizes a sortable tuple buffer for use as a sort key: it
// is already laid out back-to-back in declaration order, so this simply
// returns a copy of the raw byte span — there is no separate "close"
// transform, unlike compaction.
func closeSortable(mem *arena, schema *Schema, cur Cursor, node *SchemaNode) ([]byte, error) {
	var base uint16
	if cur.BufAddr == sortableRootSentinel {
		base = 0
	} else {
		base = readAddr(mem, cur.BufAddr)
		if base == 0 {
			return nil, ErrNotFound
		}
	}
	width := sortableTupleWidth(schema, node)
	b, ok := mem.slice(base, int(width))
	if !ok {
		return nil, ErrUnreachable
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// computeSortable (schema.go) and isSortableLeaf (schema.go) validate
// Sortable at build time; fixedWidthOf above mirrors isSortableLeaf's
// accepted kind set for fixed-width scalars, plus fixed-length
// string/bytes and nested sortable tuples handled in sortableChildWidth.

// sortableChildWidth returns the inline width of a sortable-tuple element,
// covering fixed-width scalars, fixed-length string/bytes, and nested
// sortable tuples (isSortableLeaf in schema.go accepts all three).
func sortableChildWidth(schema *Schema, n *SchemaNode) uint16 {
	switch n.Kind {
	case KindString, KindBytes:
		return n.FixedSize
	case KindTuple:
		return sortableTupleWidth(schema, n)
	default:
		return fixedWidthOf(n)
	}
}
