package noproto

import (
	"encoding/base64"
	"fmt"

	"github.com/goccy/go-json"
)

// jsonbridge.go is the cursor<->abstract-JSON-value glue behind
// Buffer.JSONEncode and Buffer.ApplyJSON (spec.md §6.2/§6.4), built the same
// way the schema JSON form is: goccy/go-json into/from `any`, depth-bounded
// against runaway recursive schemas.

const maxJSONDepth = 255

// ApplyJSON decodes raw JSON and writes it into mem at cur, allocating
// collections and scalar storage as needed. apply_null selects what a JSON
// null does at any position (spec.md §4.10/§6.4): true deletes whatever was
// previously there, false leaves it untouched.
func ApplyJSON(mem *arena, schema *Schema, cur Cursor, raw []byte, applyNullFlag bool) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return &SchemaParseError{Reason: "invalid json: " + err.Error()}
	}
	return applyValue(mem, schema, cur, v, 0, applyNullFlag)
}

func applyValue(mem *arena, schema *Schema, cur Cursor, v any, depth int, applyNullFlag bool) error {
	if depth > maxJSONDepth {
		return ErrRecursionLimit
	}
	node := schema.Get(cur.SchemaAddr)

	if node.Kind == KindPortal {
		return applyValue(mem, schema, Cursor{BufAddr: cur.BufAddr, SchemaAddr: node.Target, ParentSchemaAddr: cur.ParentSchemaAddr}, v, depth, applyNullFlag)
	}

	if v == nil {
		if !applyNullFlag {
			return nil
		}
		return applyNull(mem, cur)
	}

	switch node.Kind {
	case KindStruct:
		obj, ok := v.(map[string]any)
		if !ok {
			return &TypeMismatchError{Schema: node.Kind, Wanted: "object"}
		}
		for i, f := range node.Fields {
			fv, present := obj[f.Name]
			if !present {
				continue
			}
			fc, ok, err := selectVtableField(mem, cur, i, f.Child, ParentNone, true)
			if err != nil || !ok {
				return err
			}
			if err := applyValue(mem, schema, fc, fv, depth+1, applyNullFlag); err != nil {
				return err
			}
		}
		return nil

	case KindTuple:
		arr, ok := v.([]any)
		if !ok {
			return &TypeMismatchError{Schema: node.Kind, Wanted: "array"}
		}
		for i, childIdx := range node.Values {
			if i >= len(arr) {
				break
			}
			fc, ok, err := selectTupleField(mem, schema, cur, node, i, childIdx, true)
			if err != nil || !ok {
				return err
			}
			if err := applyValue(mem, schema, fc, arr[i], depth+1, applyNullFlag); err != nil {
				return err
			}
		}
		return nil

	case KindList:
		arr, ok := v.([]any)
		if !ok {
			return &TypeMismatchError{Schema: node.Kind, Wanted: "array"}
		}
		for i, elem := range arr {
			if elem == nil && !applyNullFlag {
				continue
			}
			idx := i
			fc, ok, err := selectListItem(mem, cur, uint8(idx), node.Of, true)
			if err != nil || !ok {
				return err
			}
			if err := applyValue(mem, schema, fc, elem, depth+1, applyNullFlag); err != nil {
				return err
			}
		}
		return nil

	case KindMap:
		obj, ok := v.(map[string]any)
		if !ok {
			return &TypeMismatchError{Schema: node.Kind, Wanted: "object"}
		}
		for k, mv := range obj {
			if mv == nil && !applyNullFlag {
				continue
			}
			fc, ok, err := selectMapItem(mem, cur, k, node.Of, true)
			if err != nil || !ok {
				return err
			}
			if err := applyValue(mem, schema, fc, mv, depth+1, applyNullFlag); err != nil {
				return err
			}
		}
		return nil

	case KindUnion:
		obj, ok := v.(map[string]any)
		if !ok {
			return &TypeMismatchError{Schema: node.Kind, Wanted: "union object"}
		}
		tagF, ok := obj["variant"].(float64)
		if !ok || int(tagF) >= len(node.Variants) {
			return &TypeMismatchError{Schema: node.Kind, Wanted: "variant index"}
		}
		tag := uint8(tagF)
		fc, ok, err := selectUnionVariant(mem, cur, tag, node.Variants[tag], true)
		if err != nil || !ok {
			return err
		}
		return applyValue(mem, schema, fc, obj["value"], depth+1, applyNullFlag)

	case KindAny, KindNone:
		return nil

	default:
		return applyScalar(mem, node, cur, v)
	}
}

func applyNull(mem *arena, cur Cursor) error {
	if cur.inSortableTuple {
		if !mem.writeAt(cur.sortableSlot, []byte{0}) {
			return ErrUnreachable
		}
		return nil
	}
	if !cur.valid() {
		return nil
	}
	writeAddr(mem, cur.BufAddr, 0)
	return nil
}

func applyScalar(mem *arena, node *SchemaNode, cur Cursor, v any) error {
	if cur.inSortableTuple {
		var enc []byte
		switch node.Kind {
		case KindString:
			s, ok := v.(string)
			if !ok {
				return &TypeMismatchError{Schema: node.Kind, Wanted: "string"}
			}
			enc = make([]byte, node.FixedSize)
			copy(enc, s)
		case KindBytes:
			s, ok := v.(string)
			if !ok {
				return &TypeMismatchError{Schema: node.Kind, Wanted: "base64 string"}
			}
			b, err := base64.StdEncoding.DecodeString(s)
			if err != nil {
				return err
			}
			enc = make([]byte, node.FixedSize)
			copy(enc, b)
		default:
			var err error
			enc, err = encodeDefaultFromJSON(node, v)
			if err != nil {
				return err
			}
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
		s, ok := v.(string)
		if !ok {
			return &TypeMismatchError{Schema: node.Kind, Wanted: "string"}
		}
		if node.FixedSize > 0 {
			return writeFixedBlob(mem, cur, encodeStringValue(s), node.FixedSize)
		}
		return writeVarBlob(mem, cur, encodeStringValue(s))

	case KindBytes:
		s, ok := v.(string)
		if !ok {
			return &TypeMismatchError{Schema: node.Kind, Wanted: "base64 string"}
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return err
		}
		if node.FixedSize > 0 {
			return writeFixedBlob(mem, cur, b, node.FixedSize)
		}
		return writeVarBlob(mem, cur, b)

	default:
		enc, err := encodeDefaultFromJSON(node, v)
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

// EncodeJSON renders the value at cur (and everything beneath it) as JSON.
func EncodeJSON(mem *arena, schema *Schema, cur Cursor) ([]byte, error) {
	v, err := valueToJSON(mem, schema, cur, 0)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func valueToJSON(mem *arena, schema *Schema, cur Cursor, depth int) (any, error) {
	if depth > maxJSONDepth {
		return nil, ErrRecursionLimit
	}
	node := schema.Get(cur.SchemaAddr)

	switch node.Kind {
	case KindPortal:
		return valueToJSON(mem, schema, Cursor{BufAddr: cur.BufAddr, SchemaAddr: node.Target, ParentSchemaAddr: cur.ParentSchemaAddr}, depth)

	case KindStruct:
		out := make(map[string]any, len(node.Fields))
		it := newStructFieldIter(mem, node, cur)
		for {
			name, fc, present, ok := it.Next()
			if !ok {
				break
			}
			if !present {
				continue
			}
			v, err := valueToJSON(mem, schema, fc, depth+1)
			if err != nil {
				return nil, err
			}
			out[name] = v
		}
		return out, nil

	case KindTuple:
		out := make([]any, len(node.Values))
		for i, childIdx := range node.Values {
			fc, ok, err := selectTupleField(mem, schema, cur, node, i, childIdx, false)
			if err != nil {
				return nil, err
			}
			if !ok || !valuePresent(mem, schema, fc) {
				out[i] = nil
				continue
			}
			v, err := valueToJSON(mem, schema, fc, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil

	case KindList:
		items, err := listIter(mem, cur, node.Of, false)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(items))
		for i, it := range items {
			if !it.OK {
				out[i] = nil
				continue
			}
			v, err := valueToJSON(mem, schema, it.Cursor, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil

	case KindMap:
		entries, err := mapIter(mem, cur, node.Of)
		if err != nil {
			return nil, err
		}
		out := make(map[string]any, len(entries))
		for _, e := range entries {
			v, err := valueToJSON(mem, schema, e.Cursor, depth+1)
			if err != nil {
				return nil, err
			}
			out[e.Key] = v
		}
		return out, nil

	case KindUnion:
		tag, ok := unionActiveTag(mem, cur)
		if !ok {
			return nil, nil
		}
		if int(tag) >= len(node.Variants) {
			return nil, ErrUnreachable
		}
		fc, ok2, err := selectUnionVariant(mem, cur, tag, node.Variants[tag], false)
		if err != nil || !ok2 {
			return nil, err
		}
		v, err := valueToJSON(mem, schema, fc, depth+1)
		if err != nil {
			return nil, err
		}
		return map[string]any{"variant": int(tag), "value": v}, nil

	case KindAny, KindNone:
		return nil, nil

	default:
		return scalarToJSON(mem, node, cur)
	}
}

func valuePresent(mem *arena, schema *Schema, cur Cursor) bool {
	if cur.inSortableTuple {
		b, ok := mem.slice(cur.sortableSlot, 1)
		return ok && b[0] != 0
	}
	return cur.valid() && readAddr(mem, cur.BufAddr) != 0
}

func scalarToJSON(mem *arena, node *SchemaNode, cur Cursor) (any, error) {
	if cur.inSortableTuple {
		presence, ok := mem.slice(cur.sortableSlot, 1)
		if !ok || presence[0] == 0 {
			return nil, nil
		}
		w := int(sortableChildWidthPublic(node))
		b, ok := mem.slice(cur.sortableSlot+1, w)
		if !ok {
			return nil, ErrUnreachable
		}
		return decodeScalarBytes(node, b), nil
	}
	off := readAddr(mem, cur.BufAddr)
	if off == 0 {
		return nil, nil
	}
	switch node.Kind {
	case KindString:
		if node.FixedSize > 0 {
			b, ok := readFixedBlob(mem, cur, node.FixedSize)
			if !ok {
				return nil, ErrUnreachable
			}
			return decodeStringValue(b), nil
		}
		b, ok := readVarBlob(mem, cur)
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
		return base64.StdEncoding.EncodeToString(b), nil
	default:
		w := int(fixedWidthOf(node))
		b, ok := mem.slice(off, w)
		if !ok {
			return nil, ErrUnreachable
		}
		return decodeScalarBytes(node, b), nil
	}
}

// sortableChildWidthPublic avoids a schema-reference dependency cycle: a
// sortable-tuple scalar leaf's width never depends on nested tuple width.
func sortableChildWidthPublic(n *SchemaNode) uint16 {
	if n.Kind == KindString || n.Kind == KindBytes {
		return n.FixedSize
	}
	return fixedWidthOf(n)
}

func decodeScalarBytes(node *SchemaNode, b []byte) any {
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
		return decodeUUID(b).String()
	case KindULID:
		return fmt.Sprintf("%x", decodeULID(b))
	case KindEnum:
		idx := decodeEnumIndex(b)
		if idx >= 0 && idx < len(node.EnumChoices) {
			return node.EnumChoices[idx]
		}
		return nil
	default:
		return nil
	}
}
