package noproto

import (
	"github.com/goccy/go-json"
)

// schemaJSON is the JSON serial form described in spec.md §6.4: a tree of
// objects carrying "type" plus type-specific keys, parsed by ParseSchemaJSON
// into the same Schema the compact binary form yields. There is no encoder
// from a Schema back to this JSON form.
type schemaJSON struct {
	Type     string            `json:"type"`
	Fields   []schemaJSONField `json:"fields,omitempty"`
	Values   []*schemaJSON     `json:"values,omitempty"`
	Of       *schemaJSON       `json:"of,omitempty"`
	Value    *schemaJSON       `json:"value,omitempty"`
	Variants []*schemaJSON     `json:"variants,omitempty"`
	Target   string            `json:"target,omitempty"`
	Sortable bool              `json:"sortable,omitempty"`
	Exp      uint8             `json:"exp,omitempty"`
	Size     uint16            `json:"size,omitempty"`
	Choices  []string          `json:"choices,omitempty"`
	Default  any               `json:"default,omitempty"`
}

type schemaJSONField struct {
	Name string `json:"name"`
	schemaJSON
}

// ParseSchemaJSON parses the JSON schema form into a flat, immutable Schema.
func ParseSchemaJSON(data []byte) (*Schema, error) {
	var root schemaJSON
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, &SchemaParseError{Reason: "invalid json: " + err.Error()}
	}
	b := newSchemaBuilder()
	if _, err := buildFromJSON(b, &root, "", -1); err != nil {
		return nil, err
	}
	return b.finish()
}

func buildFromJSON(b *schemaBuilder, node *schemaJSON, path string, parentIdx int) (int, error) {
	kind, ok := kindFromName[node.Type]
	if !ok {
		return 0, &SchemaParseError{Reason: "unknown schema type " + node.Type}
	}

	idx := b.reserve(path)

	switch kind {
	case KindStruct:
		if len(node.Fields) > 255 {
			return 0, &SchemaParseError{Offset: idx, Reason: "struct has more than 255 fields"}
		}
		fields := make([]StructField, 0, len(node.Fields))
		for _, f := range node.Fields {
			if len(f.Name) > 255 {
				return 0, &SchemaParseError{Offset: idx, Reason: "struct field name longer than 255 bytes"}
			}
			childPath := joinPath(path, f.Name)
			fn := f.schemaJSON
			childIdx, err := buildFromJSON(b, &fn, childPath, idx)
			if err != nil {
				return 0, err
			}
			fields = append(fields, StructField{Name: f.Name, Child: childIdx})
		}
		b.set(idx, SchemaNode{Kind: KindStruct, Fields: fields})

	case KindTuple:
		values := make([]int, 0, len(node.Values))
		for i, v := range node.Values {
			childIdx, err := buildFromJSON(b, v, joinPath(path, itoa(i)), idx)
			if err != nil {
				return 0, err
			}
			values = append(values, childIdx)
		}
		b.set(idx, SchemaNode{Kind: KindTuple, Values: values, Sortable: node.Sortable})

	case KindList:
		if node.Of == nil {
			return 0, &SchemaParseError{Offset: idx, Reason: "list missing \"of\""}
		}
		childIdx, err := buildFromJSON(b, node.Of, joinPath(path, "item"), idx)
		if err != nil {
			return 0, err
		}
		b.set(idx, SchemaNode{Kind: KindList, Of: childIdx})

	case KindMap:
		if node.Value == nil {
			return 0, &SchemaParseError{Offset: idx, Reason: "map missing \"value\""}
		}
		childIdx, err := buildFromJSON(b, node.Value, joinPath(path, "value"), idx)
		if err != nil {
			return 0, err
		}
		b.set(idx, SchemaNode{Kind: KindMap, Of: childIdx})

	case KindUnion:
		variants := make([]int, 0, len(node.Variants))
		for i, v := range node.Variants {
			childIdx, err := buildFromJSON(b, v, joinPath(path, itoa(i)), idx)
			if err != nil {
				return 0, err
			}
			variants = append(variants, childIdx)
		}
		b.set(idx, SchemaNode{Kind: KindUnion, Variants: variants})

	case KindPortal:
		if node.Target == "" {
			return 0, &SchemaParseError{Offset: idx, Reason: "portal missing \"target\""}
		}
		b.portalByPath = append(b.portalByPath, pendingPortal{nodeIdx: idx, targetPath: node.Target})
		b.set(idx, SchemaNode{Kind: KindPortal, Parent: parentIdx})

	case KindAny, KindNone:
		b.set(idx, SchemaNode{Kind: kind})

	default: // scalar
		n := SchemaNode{Kind: kind, DecimalExp: node.Exp, GeoSize: node.Size, EnumChoices: node.Choices, FixedSize: node.Size}
		if kind != KindString && kind != KindBytes {
			n.FixedSize = 0
		}
		if node.Default != nil {
			enc, err := encodeDefaultFromJSON(&n, node.Default)
			if err != nil {
				return 0, &SchemaParseError{Offset: idx, Reason: "bad default: " + err.Error()}
			}
			n.Default = enc
		}
		b.set(idx, n)
	}

	return idx, nil
}

var kindFromName = map[string]Kind{
	"i8": KindI8, "i16": KindI16, "i32": KindI32, "i64": KindI64,
	"u8": KindU8, "u16": KindU16, "u32": KindU32, "u64": KindU64,
	"f32": KindF32, "f64": KindF64,
	"bool": KindBool, "decimal": KindDecimal, "geo": KindGeo, "date": KindDate,
	"uuid": KindUUID, "ulid": KindULID, "enum": KindEnum,
	"utf8_string": KindString, "string": KindString, "bytes": KindBytes,
	"struct": KindStruct, "tuple": KindTuple, "list": KindList, "map": KindMap,
	"portal": KindPortal, "union": KindUnion, "any": KindAny, "none": KindNone,
}

func joinPath(base, seg string) string {
	if base == "" {
		return seg
	}
	return base + "." + seg
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}
