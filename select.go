package noproto

// maxSelectDepth bounds pathological recursion (portal chains, deeply
// nested paths) per spec.md §4.3.
const maxSelectDepth = 256

// Select walks path through the collection engines guided by schema,
// starting at start. When makePath is true, missing intermediate
// collections (vtables, list items, map items) are allocated as needed.
// When schemaQuery is true, the buffer is never touched: Select only
// resolves which schema index the path names, for GetSchemaType and
// GetSchemaDefault.
//
// Select returns (cursor, true, nil) when the path resolves, (Cursor{},
// false, nil) when it does not (and no value is present), or a non-nil
// error for malformed paths, overflow, or recursion-limit violations.
func Select(mem *arena, schema *Schema, start Cursor, path []string, makePath, schemaQuery bool) (Cursor, bool, error) {
	cur := start
	i := 0
	steps := 0

	for i < len(path) {
		steps++
		if steps > maxSelectDepth {
			return Cursor{}, false, ErrRecursionLimit
		}

		node := schema.Get(cur.SchemaAddr)

		switch node.Kind {
		case KindPortal:
			cur.SchemaAddr = node.Target
			continue // redirect only; does not consume a path segment

		case KindStruct:
			seg := path[i]
			fieldIdx, childSchemaAddr, ok := lookupStructField(node, seg)
			if !ok {
				return Cursor{}, false, nil
			}
			if schemaQuery {
				cur = virtualChild(cur, childSchemaAddr, ParentNone)
				i++
				continue
			}
			next, ok, err := selectVtableField(mem, cur, fieldIdx, childSchemaAddr, ParentNone, makePath)
			if err != nil || !ok {
				return Cursor{}, ok, err
			}
			cur = next
			i++

		case KindTuple:
			idx, err := parseTupleIndex(path[i], len(node.Values))
			if err != nil {
				return Cursor{}, false, err
			}
			childSchemaAddr := node.Values[idx]
			if schemaQuery {
				cur = virtualChild(cur, childSchemaAddr, ParentTuple)
				i++
				continue
			}
			next, ok, err := selectTupleField(mem, schema, cur, node, idx, childSchemaAddr, makePath)
			if err != nil || !ok {
				return Cursor{}, ok, err
			}
			cur = next
			i++

		case KindList:
			idx, err := parseListIndex(path[i])
			if err != nil {
				return Cursor{}, false, err
			}
			childSchemaAddr := node.Of
			if schemaQuery {
				cur = virtualChild(cur, childSchemaAddr, ParentNone)
				i++
				continue
			}
			next, ok, err := selectListItem(mem, cur, uint8(idx), childSchemaAddr, makePath)
			if err != nil || !ok {
				return Cursor{}, ok, err
			}
			cur = next
			i++

		case KindMap:
			key := path[i]
			childSchemaAddr := node.Of
			if schemaQuery {
				cur = virtualChild(cur, childSchemaAddr, ParentNone)
				i++
				continue
			}
			next, ok, err := selectMapItem(mem, cur, key, childSchemaAddr, makePath)
			if err != nil || !ok {
				return Cursor{}, ok, err
			}
			cur = next
			i++

		case KindUnion:
			idx, err := parseTupleIndex(path[i], len(node.Variants))
			if err != nil {
				return Cursor{}, false, err
			}
			childSchemaAddr := node.Variants[idx]
			if schemaQuery {
				cur = virtualChild(cur, childSchemaAddr, ParentNone)
				i++
				continue
			}
			next, ok, err := selectUnionVariant(mem, cur, uint8(idx), childSchemaAddr, makePath)
			if err != nil || !ok {
				return Cursor{}, ok, err
			}
			cur = next
			i++

		default:
			// Scalar/any/none node but path segments remain: no such path.
			return Cursor{}, false, nil
		}
	}

	return cur, true, nil
}

func lookupStructField(node *SchemaNode, name string) (fieldIdx int, childSchemaAddr int, ok bool) {
	for i, f := range node.Fields {
		if f.Name == name {
			return i, f.Child, true
		}
	}
	return 0, 0, false
}

func virtualChild(cur Cursor, childSchemaAddr int, parentKind ParentKind) Cursor {
	return Cursor{BufAddr: 0, SchemaAddr: childSchemaAddr, ParentSchemaAddr: cur.SchemaAddr, ParentKind: parentKind}
}
