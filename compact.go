package noproto

import "github.com/dustin/go-humanize"

// compact.go implements the copy-live-only rebuild pass (spec.md §5):
// walk every reachable value from the root, copying it into a fresh arena,
// and discard everything else — orphaned vtable slots, superseded variable
// blob regions, stale union branches, and any other byte run nothing
// reachable from the root still points to.

// BufferStats reports the byte accounting used by CalcBytes/MaybeCompact.
type BufferStats struct {
	Current        int
	AfterCompaction int
	Wasted          int
}

// String renders the stats the way compaction diagnostics get logged,
// using github.com/dustin/go-humanize for human-readable byte counts.
func (s BufferStats) String() string {
	return "current=" + humanize.Bytes(uint64(s.Current)) +
		" after_compaction=" + humanize.Bytes(uint64(s.AfterCompaction)) +
		" wasted=" + humanize.Bytes(uint64(s.Wasted))
}

// calcBytes computes current/after-compaction/wasted sizes without
// mutating mem, by running the same copy-live walk against a throwaway
// destination arena and keeping only its length.
func calcBytes(mem *arena, schema *Schema, rootPtrOff uint16) (BufferStats, error) {
	dst := newArena(mem.len())
	if _, err := compactRoot(mem, dst, schema, rootPtrOff); err != nil {
		return BufferStats{}, err
	}
	current := mem.len()
	after := dst.len()
	return BufferStats{Current: current, AfterCompaction: after, Wasted: current - after}, nil
}

// compactBuffer rebuilds mem into a fresh arena containing only reachable
// bytes, returning the new arena and the root pointer record's new offset.
func compactBuffer(mem *arena, schema *Schema, rootPtrOff uint16) (*arena, uint16, error) {
	dst := newArena(mem.len())
	newRoot, err := compactRoot(mem, dst, schema, rootPtrOff)
	if err != nil {
		return nil, 0, err
	}
	return dst, newRoot, nil
}

// compactRoot copies the root's own pointer record (identical shape to any
// struct-field slot) plus everything it reaches. The destination keeps the
// same 2-byte reserved format tag a fresh writable buffer carries (spec.md
// §3.1), so a compacted buffer's root pointer always lands back at offset
// 2, same as Factory.OpenBuffer expects.
func compactRoot(src, dst *arena, schema *Schema, rootPtrOff uint16) (uint16, error) {
	if _, err := dst.mallocZero(2); err != nil {
		return 0, err
	}
	newPtr, err := allocU16(dst, 0)
	if err != nil {
		return 0, err
	}
	addr := readAddr(src, rootPtrOff)
	if addr != 0 {
		newVal, err := compactValue(src, dst, schema, 0, addr)
		if err != nil {
			return 0, err
		}
		if !writeAddr(dst, newPtr, newVal) {
			return 0, ErrUnreachable
		}
	}
	return newPtr, nil
}

// compactValue copies the pointer record (or scalar bytes) at srcOff in
// src, and everything it reaches, into dst, returning its new offset. srcOff
// == 0 (nothing allocated) is copied as 0 without touching either arena.
func compactValue(src, dst *arena, schema *Schema, schemaAddr int, srcOff uint16) (uint16, error) {
	if srcOff == 0 {
		return 0, nil
	}
	node := schema.Get(schemaAddr)

	switch node.Kind {
	case KindPortal:
		return compactValue(src, dst, schema, node.Target, srcOff)

	case KindStruct:
		return compactVtableChain(src, dst, schema, node.fieldChildren(), srcOff)

	case KindTuple:
		if !node.Sortable {
			return compactVtableChain(src, dst, schema, node.Values, srcOff)
		}
		return compactSortableTuple(src, dst, schema, node, srcOff)

	case KindList:
		return compactList(src, dst, schema, node.Of, srcOff)

	case KindMap:
		return compactMap(src, dst, schema, node.Of, srcOff)

	case KindUnion:
		return compactUnion(src, dst, schema, node, srcOff)

	case KindString, KindBytes:
		if node.FixedSize > 0 {
			b, ok := src.slice(srcOff, int(node.FixedSize))
			if !ok {
				return 0, ErrUnreachable
			}
			return dst.malloc(b)
		}
		hdr, ok := src.slice(srcOff, varBlobHeaderSize)
		if !ok {
			return 0, ErrUnreachable
		}
		l := decodeU16(hdr)
		body, ok := src.slice(srcOff+varBlobHeaderSize, int(l))
		if !ok {
			return 0, ErrUnreachable
		}
		region := make([]byte, varBlobHeaderSize+int(l))
		putU16(region[0:2], l)
		copy(region[varBlobHeaderSize:], body)
		return dst.malloc(region)

	case KindAny, KindNone:
		return 0, nil

	default: // fixed-width scalar
		w := int(fixedWidthOf(node))
		if w == 0 {
			return 0, nil
		}
		b, ok := src.slice(srcOff, w)
		if !ok {
			return 0, ErrUnreachable
		}
		return dst.malloc(b)
	}
}

// fieldChildren returns the child schema index for each struct field, in
// declaration order, matching the positional shape compactVtableChain
// shares with tuples.
func (n *SchemaNode) fieldChildren() []int {
	out := make([]int, len(n.Fields))
	for i, f := range n.Fields {
		out[i] = f.Child
	}
	return out
}

// compactVtableChain copies a chain of vtables (struct or non-sortable
// tuple) and, for every occupied slot, the value it points to.
func compactVtableChain(src, dst *arena, schema *Schema, children []int, srcVtable uint16) (uint16, error) {
	var firstNew uint16
	var prevNew uint16
	srcV := srcVtable
	idx := 0
	for srcV != 0 && idx < len(children) {
		newV, err := allocVtable(dst)
		if err != nil {
			return 0, err
		}
		if firstNew == 0 {
			firstNew = newV
		} else {
			writeVtableNext(dst, prevNew, newV)
		}
		for slot := 0; slot < vtableSlots && idx < len(children); slot, idx = slot+1, idx+1 {
			slotOff := vtableSlotOffset(srcV, slot)
			valAddr := readU16(src, slotOff)
			if valAddr != 0 {
				newVal, err := compactValue(src, dst, schema, children[idx], valAddr)
				if err != nil {
					return 0, err
				}
				writeU16(dst, vtableSlotOffset(newV, slot), newVal)
			}
		}
		prevNew = newV
		srcV = readVtableNext(src, srcV)
	}
	if firstNew == 0 {
		return allocVtable(dst)
	}
	return firstNew, nil
}

func compactSortableTuple(src, dst *arena, schema *Schema, node *SchemaNode, srcBase uint16) (uint16, error) {
	width := sortableTupleWidth(schema, node)
	b, ok := src.slice(srcBase, int(width))
	if !ok {
		return 0, ErrUnreachable
	}
	return dst.malloc(b)
}

func compactList(src, dst *arena, schema *Schema, childSchemaAddr int, srcHeadBlock uint16) (uint16, error) {
	head, _, ok := readListHead(src, srcHeadBlock)
	if !ok {
		return 0, ErrUnreachable
	}
	var newHead, newTail uint16
	itemOff := head
	for itemOff != 0 {
		addr, next, index, ok := readListItem(src, itemOff)
		if !ok {
			return 0, ErrUnreachable
		}
		var newAddr uint16
		if addr != 0 {
			var err error
			newAddr, err = compactValue(src, dst, schema, childSchemaAddr, addr)
			if err != nil {
				return 0, err
			}
		}
		newItem, err := allocListItem(dst, newAddr, 0, index)
		if err != nil {
			return 0, err
		}
		if newHead == 0 {
			newHead = newItem
		} else {
			writeListItemNext(dst, newTail, newItem)
		}
		newTail = newItem
		itemOff = next
	}
	if newHead == 0 {
		return 0, nil
	}
	return allocListHead(dst, newHead, newTail)
}

func compactMap(src, dst *arena, schema *Schema, childSchemaAddr int, srcFirst uint16) (uint16, error) {
	var newFirst, newTail uint16
	itemOff := srcFirst
	for itemOff != 0 {
		addr, next, keyAddr, ok := readMapItem(src, itemOff)
		if !ok {
			return 0, ErrUnreachable
		}
		key, _ := readKey(src, keyAddr)
		newKeyAddr, err := allocKey(dst, key)
		if err != nil {
			return 0, err
		}
		var newAddr uint16
		if addr != 0 {
			newAddr, err = compactValue(src, dst, schema, childSchemaAddr, addr)
			if err != nil {
				return 0, err
			}
		}
		newItem, err := allocMapItem(dst, newAddr, 0, newKeyAddr)
		if err != nil {
			return 0, err
		}
		if newFirst == 0 {
			newFirst = newItem
		} else {
			addrPrev, _, keyPrev, _ := readMapItem(dst, newTail)
			writeMapItem(dst, newTail, addrPrev, newItem, keyPrev)
		}
		newTail = newItem
		itemOff = next
	}
	return newFirst, nil
}

func compactUnion(src, dst *arena, schema *Schema, node *SchemaNode, srcBlock uint16) (uint16, error) {
	tag, ok := readUnionTag(src, srcBlock)
	if !ok {
		return 0, ErrUnreachable
	}
	valAddr := readU16(src, srcBlock+1)
	var newVal uint16
	if valAddr != 0 && int(tag) < len(node.Variants) {
		var err error
		newVal, err = compactValue(src, dst, schema, node.Variants[tag], valAddr)
		if err != nil {
			return 0, err
		}
	}
	nb, err := dst.mallocZero(unionBlockSize)
	if err != nil {
		return 0, err
	}
	writeUnionTag(dst, nb, tag)
	writeU16(dst, nb+1, newVal)
	return nb, nil
}
