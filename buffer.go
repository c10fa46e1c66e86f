package noproto

import (
	"time"

	"github.com/google/uuid"
)

// Buffer holds one value's binary encoding and the Schema it was written
// against. A Buffer is not safe for concurrent use from multiple
// goroutines: every read walks live pointer records, and every write
// mutates them, so callers needing concurrent access must serialize it
// themselves (spec.md §6.2).
type Buffer struct {
	mem          *arena
	schema       *Schema
	rootPtr      uint16
	sortableRoot bool
}

// ReadOnlyBuffer wraps a Buffer and rejects every mutating call with
// ErrTypeMismatch, for callers that only ever want to read shared,
// possibly memory-mapped buffers without risking an accidental write. The
// generic Set/ListPush helpers take a *Buffer directly, so callers must
// not unwrap ro.Buffer and pass it to them if they want the guarantee to
// hold.
type ReadOnlyBuffer struct {
	*Buffer
}

var errReadOnly = &TypeMismatchError{Wanted: "read-only buffer: mutation rejected"}

// Del overrides Buffer.Del to reject every mutation on a ReadOnlyBuffer.
func (b *ReadOnlyBuffer) Del(path ...string) error { return errReadOnly }

// ApplyJSON overrides Buffer.ApplyJSON to reject every mutation on a
// ReadOnlyBuffer.
func (b *ReadOnlyBuffer) ApplyJSON(raw []byte, applyNull bool) error { return errReadOnly }

// Compact runs the ordinary compaction pass over the borrowed bytes but,
// since a ReadOnlyBuffer never owns its arena, hands the result back as a
// freshly-owned writable Buffer instead of mutating in place (spec.md
// §3.4: a read-only buffer "supports all read operations plus compact,
// which returns a fresh writable buffer").
func (b *ReadOnlyBuffer) Compact() (*Buffer, error) {
	if b.sortableRoot {
		return nil, ErrSortableViolation
	}
	newMem, newRoot, err := compactBuffer(b.mem, b.schema, b.rootPtr)
	if err != nil {
		return nil, err
	}
	return &Buffer{mem: newMem, schema: b.schema, rootPtr: newRoot}, nil
}

// MaybeCompact overrides Buffer.MaybeCompact to reject every mutation on a
// ReadOnlyBuffer.
func (b *ReadOnlyBuffer) MaybeCompact(capacity int, predicate func(BufferStats) bool) (bool, error) {
	return false, errReadOnly
}

// SetMin overrides Buffer.SetMin to reject every mutation on a
// ReadOnlyBuffer.
func (b *ReadOnlyBuffer) SetMin(path ...string) error { return errReadOnly }

// SetMax overrides Buffer.SetMax to reject every mutation on a
// ReadOnlyBuffer.
func (b *ReadOnlyBuffer) SetMax(path ...string) error { return errReadOnly }

// Root returns a Cursor naming the buffer's root value.
func (b *Buffer) Root() Cursor {
	return Cursor{BufAddr: b.rootPtr, SchemaAddr: 0, ParentSchemaAddr: -1, ParentKind: ParentNone}
}

// CursorToRoot is an alias for Root kept for readers coming from the
// MoveCursor/CursorToRoot pairing named in the public surface.
func (b *Buffer) CursorToRoot() Cursor { return b.Root() }

// MoveCursor re-resolves path from the root, returning the resolved Cursor.
// A path to an absent value still returns true, with a virtual cursor
// (BufAddr 0); a zero Cursor and false mean the path names no node of the
// schema.
func (b *Buffer) MoveCursor(path ...string) (Cursor, bool, error) {
	return Select(b.mem, b.schema, b.Root(), path, false, false)
}

// GetSchemaType reports the Kind of the schema node named by path, without
// touching the buffer (schemaQuery mode).
func (b *Buffer) GetSchemaType(path ...string) (Kind, error) {
	cur, ok, err := Select(b.mem, b.schema, b.Root(), path, false, true)
	if err != nil {
		return KindInvalid, err
	}
	if !ok {
		return KindInvalid, ErrNotFound
	}
	return b.schema.Get(cur.SchemaAddr).Kind, nil
}

// GetSchemaDefault returns path's declared schema default, type-asserted
// to T, or (zero, false, nil) if the node has no default.
func GetSchemaDefault[T any](b *Buffer, path ...string) (T, bool, error) {
	var zero T
	cur, ok, err := Select(b.mem, b.schema, b.Root(), path, false, true)
	if err != nil || !ok {
		return zero, false, err
	}
	node := b.schema.Get(cur.SchemaAddr)
	if node.Default == nil {
		return zero, false, nil
	}
	v := decodeScalarTyped(node, node.Default)
	t, ok2 := v.(T)
	if !ok2 {
		return zero, false, &TypeMismatchError{Path: path, Schema: node.Kind, Wanted: "requested type does not match default's"}
	}
	return t, true, nil
}

// Get resolves path and type-asserts the scalar value found there to T. A
// path that resolves to an absent value, or names no node of the schema,
// returns (zero, false, nil); a malformed list/tuple/union segment, a path
// naming a non-scalar node, or a T that does not match the stored value is
// an error.
func Get[T any](b *Buffer, path ...string) (T, bool, error) {
	var zero T
	cur, ok, err := Select(b.mem, b.schema, b.Root(), path, false, false)
	if err != nil {
		return zero, false, err
	}
	if !ok {
		return zero, false, nil
	}
	node := b.schema.Get(cur.SchemaAddr)
	if !node.Kind.IsScalar() {
		return zero, false, &TypeMismatchError{Path: path, Schema: node.Kind, Wanted: "scalar"}
	}
	if !valuePresent(b.mem, b.schema, cur) {
		return zero, false, nil
	}
	v, err := scalarValueTyped(b.mem, node, cur)
	if err != nil {
		return zero, false, err
	}
	t, ok2 := v.(T)
	if !ok2 {
		return zero, false, &TypeMismatchError{Path: path, Schema: node.Kind, Wanted: "requested type does not match schema's"}
	}
	return t, true, nil
}

// Set resolves path (allocating any missing intermediate collections) and
// writes value, encoded according to the schema kind at path.
func Set[T any](b *Buffer, value T, path ...string) error {
	cur, ok, err := Select(b.mem, b.schema, b.Root(), path, true, false)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	node := b.schema.Get(cur.SchemaAddr)
	if !node.Kind.IsScalar() {
		return &TypeMismatchError{Path: path, Schema: node.Kind, Wanted: "scalar"}
	}
	return writeScalarTyped(b.mem, node, cur, any(value))
}

// Del clears the value at path: the pointer record's addr is zeroed (or,
// inside a sortable tuple, the presence byte is cleared), orphaning
// whatever was there for the next Compact. Deleting a whole collection
// (not just one of its fields) clears its root pointer the same way; per
// the sortable-tuple decision, deleting inside a sortable tuple clears
// just that element's presence flag and is a no-op for the tuple itself.
func (b *Buffer) Del(path ...string) error {
	cur, ok, err := Select(b.mem, b.schema, b.Root(), path, false, false)
	if err != nil || !ok {
		return err
	}
	if cur.inSortableTuple {
		if !b.mem.writeAt(cur.sortableSlot, []byte{0}) {
			return ErrUnreachable
		}
		return nil
	}
	if !cur.valid() {
		return nil
	}
	writeAddr(b.mem, cur.BufAddr, 0)
	return nil
}

// Length reports the number of items in the list or map (or key/value
// pairs) at path, or the declared arity for a struct/tuple.
func (b *Buffer) Length(path ...string) (int, error) {
	cur, ok, err := Select(b.mem, b.schema, b.Root(), path, false, false)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrNotFound
	}
	node := b.schema.Get(cur.SchemaAddr)
	switch node.Kind {
	case KindStruct:
		return len(node.Fields), nil
	case KindTuple:
		return len(node.Values), nil
	case KindList:
		items, err := listIter(b.mem, cur, node.Of, true)
		if err != nil {
			return 0, err
		}
		return len(items), nil
	case KindMap:
		return mapLength(b.mem, cur), nil
	default:
		return 0, &TypeMismatchError{Path: path, Schema: node.Kind, Wanted: "collection"}
	}
}

// ListPush appends value to the list at path, after its current tail
// index (or at index 0 for an empty list).
func ListPush[T any](b *Buffer, value T, path ...string) (int, error) {
	cur, ok, err := Select(b.mem, b.schema, b.Root(), path, true, false)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrNotFound
	}
	node := b.schema.Get(cur.SchemaAddr)
	if node.Kind != KindList {
		return 0, &TypeMismatchError{Path: path, Schema: node.Kind, Wanted: "list"}
	}
	elemCur, idx, err := listPush(b.mem, cur, node.Of, nil)
	if err != nil {
		return 0, err
	}
	elemNode := b.schema.Get(node.Of)
	if err := writeScalarTyped(b.mem, elemNode, elemCur, any(value)); err != nil {
		return 0, err
	}
	return idx, nil
}

// SetMin marks the element at path present and fills its value bytes with
// 0x00, and SetMax fills them with 0xFF, giving the lowest and highest sort
// key for that element (not a decoded minimum/maximum of the type, e.g. for
// floats); both are rejected outside a sortable tuple with
// ErrSortableViolation since their purpose is building range-scan keys
// (spec.md §4.6, §9 decision 1).
func (b *Buffer) SetMin(path ...string) error { return b.setBound(path, true) }
func (b *Buffer) SetMax(path ...string) error { return b.setBound(path, false) }

func (b *Buffer) setBound(path []string, min bool) error {
	cur, ok, err := Select(b.mem, b.schema, b.Root(), path, true, false)
	if err != nil || !ok {
		if err == nil {
			err = ErrNotFound
		}
		return err
	}
	if !cur.inSortableTuple {
		return ErrSortableViolation
	}
	node := b.schema.Get(cur.SchemaAddr)
	w := int(sortableChildWidthPublic(node))
	val := make([]byte, w)
	if !min {
		for i := range val {
			val[i] = 0xFF
		}
	}
	if !b.mem.writeAt(cur.sortableSlot, []byte{1}) {
		return ErrUnreachable
	}
	if w > 0 && !b.mem.writeAt(cur.sortableSlot+1, val) {
		return ErrUnreachable
	}
	return nil
}

// JSONEncode renders the value at path as JSON.
func (b *Buffer) JSONEncode(path ...string) ([]byte, error) {
	cur, ok, err := Select(b.mem, b.schema, b.Root(), path, false, false)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []byte("null"), nil
	}
	return EncodeJSON(b.mem, b.schema, cur)
}

// ApplyJSON decodes JSON and writes it into the buffer at its root.
// applyNull selects what a JSON null does (spec.md §4.10): true deletes
// whatever was previously at that position, false leaves it untouched.
func (b *Buffer) ApplyJSON(raw []byte, applyNull bool) error {
	return ApplyJSON(b.mem, b.schema, b.Root(), raw, applyNull)
}

// ReadBytes returns the buffer's raw encoded bytes.
func (b *Buffer) ReadBytes() []byte { return b.mem.readBytes() }

// CalcBytes reports the buffer's current size, its size after a Compact,
// and how many bytes a Compact would reclaim.
func (b *Buffer) CalcBytes() (BufferStats, error) {
	if b.sortableRoot {
		return BufferStats{}, ErrSortableViolation
	}
	return calcBytes(b.mem, b.schema, b.rootPtr)
}

// Compact rebuilds the buffer in place, discarding every byte not
// reachable from the root. Sortable-tuple-root buffers have no root
// pointer record to rebuild from (their whole arena IS the inline tuple
// region already, with nothing to reclaim), so Compact rejects them with
// ErrSortableViolation rather than silently doing nothing useful.
func (b *Buffer) Compact() error {
	if b.sortableRoot {
		return ErrSortableViolation
	}
	newMem, newRoot, err := compactBuffer(b.mem, b.schema, b.rootPtr)
	if err != nil {
		return err
	}
	b.mem = newMem
	b.rootPtr = newRoot
	return nil
}

// MaybeCompact runs Compact only when the buffer's current size exceeds
// capacity and predicate(stats) reports true, letting callers tune how
// aggressively they reclaim space (e.g. only compact when more than half
// the buffer is wasted).
func (b *Buffer) MaybeCompact(capacity int, predicate func(BufferStats) bool) (bool, error) {
	if b.mem.len() <= capacity {
		return false, nil
	}
	stats, err := b.CalcBytes()
	if err != nil {
		return false, err
	}
	if predicate != nil && !predicate(stats) {
		return false, nil
	}
	return true, b.Compact()
}

// CloseSortable finalizes a sortable-tuple buffer for use as a comparison
// key: the returned bytes compare, byte for byte, in the same order as the
// tuple's declared field values (spec.md §4.6).
func (b *Buffer) CloseSortable() ([]byte, error) {
	root := b.schema.Root()
	if root.Kind != KindTuple || !root.Sortable {
		return nil, ErrSortableViolation
	}
	return closeSortable(b.mem, b.schema, b.Root(), root)
}

// GetCollection iterates the list or map at path. For a list, keys are the
// decimal string form of each index; for a map, the stored key.
func (b *Buffer) GetCollection(path ...string) ([]CollectionEntry, error) {
	cur, ok, err := Select(b.mem, b.schema, b.Root(), path, false, false)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	node := b.schema.Get(cur.SchemaAddr)
	switch node.Kind {
	case KindList:
		items, err := listIter(b.mem, cur, node.Of, true)
		if err != nil {
			return nil, err
		}
		out := make([]CollectionEntry, len(items))
		for i, it := range items {
			out[i] = CollectionEntry{Key: itoa(it.Index), Cursor: it.Cursor}
		}
		return out, nil
	case KindMap:
		entries, err := mapIter(b.mem, cur, node.Of)
		if err != nil {
			return nil, err
		}
		out := make([]CollectionEntry, len(entries))
		for i, e := range entries {
			out[i] = CollectionEntry{Key: e.Key, Cursor: e.Cursor}
		}
		return out, nil
	default:
		return nil, &TypeMismatchError{Path: path, Schema: node.Kind, Wanted: "list or map"}
	}
}

// CollectionEntry is one element yielded by GetCollection.
type CollectionEntry struct {
	Key    string
	Cursor Cursor
}

// scalarValueTyped decodes the scalar at cur into a native Go type (as
// opposed to scalarToJSON's JSON-friendly strings for uuid/ulid/date).
func scalarValueTyped(mem *arena, node *SchemaNode, cur Cursor) (any, error) {
	if cur.inSortableTuple {
		presence, ok := mem.slice(cur.sortableSlot, 1)
		if !ok || presence[0] == 0 {
			return nil, nil
		}
		w := int(sortableChildWidthPublic(node))
		raw, ok := mem.slice(cur.sortableSlot+1, w)
		if !ok {
			return nil, ErrUnreachable
		}
		// slice aliases the arena's backing array; undo the remap in a
		// private copy so decoding never mutates the stored sortable-order
		// bytes.
		b := make([]byte, w)
		copy(b, raw)
		if node.Kind == KindF32 || node.Kind == KindF64 {
			// remapFloatForSort is not its own inverse: a set top bit marks
			// a stored non-negative value (clear that bit), a clear top bit
			// a stored negative one (invert every byte).
			if w > 0 && b[0]&0x80 != 0 {
				b[0] ^= 0x80
			} else {
				for i := range b {
					b[i] = ^b[i]
				}
			}
		} else {
			remapForSortableOrder(node.Kind, b)
		}
		return decodeScalarTyped(node, b), nil
	}
	switch node.Kind {
	case KindString:
		var b []byte
		var ok bool
		if node.FixedSize > 0 {
			b, ok = readFixedBlob(mem, cur, node.FixedSize)
		} else {
			b, ok = readVarBlob(mem, cur)
		}
		if !ok {
			return nil, ErrUnreachable
		}
		return decodeStringValue(b), nil
	case KindBytes:
		var b []byte
		var ok bool
		if node.FixedSize > 0 {
			b, ok = readFixedBlob(mem, cur, node.FixedSize)
		} else {
			b, ok = readVarBlob(mem, cur)
		}
		if !ok {
			return nil, ErrUnreachable
		}
		return b, nil
	default:
		off := readAddr(mem, cur.BufAddr)
		w := int(fixedWidthOf(node))
		b, ok := mem.slice(off, w)
		if !ok {
			return nil, ErrUnreachable
		}
		return decodeScalarTyped(node, b), nil
	}
}

func decodeScalarTyped(node *SchemaNode, b []byte) any {
	switch node.Kind {
	case KindBool:
		return decodeBool(b)
	case KindI8:
		return decodeI8(b)
	case KindI16:
		return decodeI16(b)
	case KindI32:
		return decodeI32(b)
	case KindI64:
		return decodeI64(b)
	case KindU8:
		return decodeU8(b)
	case KindU16:
		return decodeU16(b)
	case KindU32:
		return decodeU32(b)
	case KindU64:
		return decodeU64(b)
	case KindF32:
		return decodeF32(b)
	case KindF64:
		return decodeF64(b)
	case KindDecimal:
		return decodeDecimal(b)
	case KindGeo:
		return decodeGeo(node.GeoSize, b)
	case KindDate:
		return decodeDate(b)
	case KindUUID:
		return decodeUUID(b)
	case KindULID:
		return decodeULID(b)
	case KindEnum:
		idx := decodeEnumIndex(b)
		if idx >= 0 && idx < len(node.EnumChoices) {
			return node.EnumChoices[idx]
		}
		return ""
	case KindString:
		return decodeStringValue(b)
	case KindBytes:
		return b
	default:
		return nil
	}
}

// writeScalarTyped encodes value (a native Go type matching the schema
// kind, e.g. int32 for KindI32, uuid.UUID for KindUUID, time.Time for
// KindDate) and writes it at cur.
func writeScalarTyped(mem *arena, node *SchemaNode, cur Cursor, value any) error {
	if cur.inSortableTuple {
		var enc []byte
		var err error
		switch node.Kind {
		case KindString:
			s, ok := value.(string)
			if !ok {
				return &TypeMismatchError{Schema: node.Kind, Wanted: "string"}
			}
			enc = make([]byte, node.FixedSize)
			copy(enc, s)
		case KindBytes:
			bs, ok := value.([]byte)
			if !ok {
				return &TypeMismatchError{Schema: node.Kind, Wanted: "[]byte"}
			}
			enc = make([]byte, node.FixedSize)
			copy(enc, bs)
		default:
			enc, err = encodeTyped(node, value)
			if err != nil {
				return err
			}
			remapForSortableOrder(node.Kind, enc)
		}
		if !mem.writeAt(cur.sortableSlot, []byte{1}) {
			return ErrUnreachable
		}
		if len(enc) > 0 && !mem.writeAt(cur.sortableSlot+1, enc) {
			return ErrUnreachable
		}
		return nil
	}

	switch node.Kind {
	case KindString:
		s, ok := value.(string)
		if !ok {
			return &TypeMismatchError{Schema: node.Kind, Wanted: "string"}
		}
		if node.FixedSize > 0 {
			return writeFixedBlob(mem, cur, encodeStringValue(s), node.FixedSize)
		}
		return writeVarBlob(mem, cur, encodeStringValue(s))

	case KindBytes:
		bs, ok := value.([]byte)
		if !ok {
			return &TypeMismatchError{Schema: node.Kind, Wanted: "[]byte"}
		}
		if node.FixedSize > 0 {
			return writeFixedBlob(mem, cur, bs, node.FixedSize)
		}
		return writeVarBlob(mem, cur, bs)

	default:
		enc, err := encodeTyped(node, value)
		if err != nil {
			return err
		}
		off, err := mem.malloc(enc)
		if err != nil {
			return err
		}
		if !writeAddr(mem, cur.BufAddr, off) {
			return ErrUnreachable
		}
		return nil
	}
}

func encodeTyped(node *SchemaNode, value any) ([]byte, error) {
	switch node.Kind {
	case KindBool:
		v, ok := value.(bool)
		if !ok {
			return nil, &TypeMismatchError{Schema: node.Kind, Wanted: "bool"}
		}
		return encodeBool(v), nil
	case KindI8:
		v, ok := value.(int8)
		if !ok {
			return nil, &TypeMismatchError{Schema: node.Kind, Wanted: "int8"}
		}
		return encodeI8(v), nil
	case KindI16:
		v, ok := value.(int16)
		if !ok {
			return nil, &TypeMismatchError{Schema: node.Kind, Wanted: "int16"}
		}
		return encodeI16(v), nil
	case KindI32:
		v, ok := value.(int32)
		if !ok {
			return nil, &TypeMismatchError{Schema: node.Kind, Wanted: "int32"}
		}
		return encodeI32(v), nil
	case KindI64:
		v, ok := value.(int64)
		if !ok {
			return nil, &TypeMismatchError{Schema: node.Kind, Wanted: "int64"}
		}
		return encodeI64(v), nil
	case KindU8:
		v, ok := value.(uint8)
		if !ok {
			return nil, &TypeMismatchError{Schema: node.Kind, Wanted: "uint8"}
		}
		return encodeU8(v), nil
	case KindU16:
		v, ok := value.(uint16)
		if !ok {
			return nil, &TypeMismatchError{Schema: node.Kind, Wanted: "uint16"}
		}
		return encodeU16(v), nil
	case KindU32:
		v, ok := value.(uint32)
		if !ok {
			return nil, &TypeMismatchError{Schema: node.Kind, Wanted: "uint32"}
		}
		return encodeU32(v), nil
	case KindU64:
		v, ok := value.(uint64)
		if !ok {
			return nil, &TypeMismatchError{Schema: node.Kind, Wanted: "uint64"}
		}
		return encodeU64(v), nil
	case KindF32:
		v, ok := value.(float32)
		if !ok {
			return nil, &TypeMismatchError{Schema: node.Kind, Wanted: "float32"}
		}
		return encodeF32(v), nil
	case KindF64:
		v, ok := value.(float64)
		if !ok {
			return nil, &TypeMismatchError{Schema: node.Kind, Wanted: "float64"}
		}
		return encodeF64(v), nil
	case KindDecimal:
		v, ok := value.(int64)
		if !ok {
			return nil, &TypeMismatchError{Schema: node.Kind, Wanted: "int64 unscaled decimal"}
		}
		return encodeDecimal(v), nil
	case KindGeo:
		v, ok := value.(Geo)
		if !ok {
			return nil, &TypeMismatchError{Schema: node.Kind, Wanted: "Geo"}
		}
		return encodeGeo(node.GeoSize, v), nil
	case KindDate:
		v, ok := value.(time.Time)
		if !ok {
			return nil, &TypeMismatchError{Schema: node.Kind, Wanted: "time.Time"}
		}
		return encodeDate(v), nil
	case KindUUID:
		v, ok := value.(uuid.UUID)
		if !ok {
			return nil, &TypeMismatchError{Schema: node.Kind, Wanted: "uuid.UUID"}
		}
		return encodeUUID(v), nil
	case KindULID:
		v, ok := value.(ULID)
		if !ok {
			return nil, &TypeMismatchError{Schema: node.Kind, Wanted: "ULID"}
		}
		return encodeULID(v), nil
	case KindEnum:
		name, ok := value.(string)
		if !ok {
			return nil, &TypeMismatchError{Schema: node.Kind, Wanted: "enum choice name"}
		}
		idx, ok := enumIndexOf(node.EnumChoices, name)
		if !ok {
			return nil, &TypeMismatchError{Schema: node.Kind, Wanted: "known enum choice"}
		}
		return encodeEnumIndex(idx), nil
	default:
		return nil, &TypeMismatchError{Schema: node.Kind, Wanted: "scalar kind"}
	}
}
