package noproto

import "encoding/binary"

// CompileSchema returns the compact binary form of the schema, per
// spec.md §4.2/§6.1 (compile_schema).
func (s *Schema) CompileSchema() []byte {
	var buf []byte
	encodeSchemaNode(&buf, s, 0)
	return buf
}

func encodeSchemaNode(buf *[]byte, s *Schema, idx int) {
	n := s.Get(idx)
	*buf = append(*buf, byte(n.Kind))

	switch n.Kind {
	case KindDecimal:
		*buf = append(*buf, n.DecimalExp)
		appendDefault(buf, n.Default)
	case KindGeo:
		*buf = append(*buf, n.GeoSize)
		appendDefault(buf, n.Default)
	case KindEnum:
		*buf = append(*buf, byte(len(n.EnumChoices)))
		for _, c := range n.EnumChoices {
			*buf = append(*buf, byte(len(c)))
			*buf = append(*buf, c...)
		}
		appendDefault(buf, n.Default)
	case KindString, KindBytes:
		appendU16(buf, n.FixedSize)
		appendDefault(buf, n.Default)
	case KindStruct:
		*buf = append(*buf, byte(len(n.Fields)))
		for _, f := range n.Fields {
			*buf = append(*buf, byte(len(f.Name)))
			*buf = append(*buf, f.Name...)
			var sub []byte
			encodeSchemaNode(&sub, s, f.Child)
			appendU16(buf, uint16(len(sub)))
			*buf = append(*buf, sub...)
		}
	case KindTuple:
		*buf = append(*buf, byte(len(n.Values)))
		if n.Sortable {
			*buf = append(*buf, 1)
		} else {
			*buf = append(*buf, 0)
		}
		for _, v := range n.Values {
			var sub []byte
			encodeSchemaNode(&sub, s, v)
			appendU16(buf, uint16(len(sub)))
			*buf = append(*buf, sub...)
		}
	case KindList, KindMap:
		encodeSchemaNode(buf, s, n.Of)
	case KindUnion:
		*buf = append(*buf, byte(len(n.Variants)))
		for _, v := range n.Variants {
			var sub []byte
			encodeSchemaNode(&sub, s, v)
			appendU16(buf, uint16(len(sub)))
			*buf = append(*buf, sub...)
		}
	case KindPortal:
		appendU16(buf, uint16(n.Target))
		appendU16(buf, uint16(n.Parent+1)) // +1 so "no parent" (-1) round-trips as 0
	case KindAny, KindNone:
		// no payload
	default: // fixed-width scalars with no type-specific prefix
		appendDefault(buf, n.Default)
	}
}

func appendU16(buf *[]byte, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	*buf = append(*buf, b[:]...)
}

func appendDefault(buf *[]byte, def []byte) {
	appendU16(buf, uint16(len(def)))
	*buf = append(*buf, def...)
}

// ParseSchemaBytes parses the compact binary schema form back into a Schema.
func ParseSchemaBytes(data []byte) (*Schema, error) {
	b := newSchemaBuilder()
	_, n, err := decodeSchemaNode(b, data, 0)
	if err != nil {
		return nil, err
	}
	if n != len(data) {
		return nil, &SchemaParseError{Offset: n, Reason: "trailing bytes after schema"}
	}
	return b.finish()
}

func decodeSchemaNode(b *schemaBuilder, data []byte, off int) (int, int, error) {
	if off >= len(data) {
		return 0, 0, &SchemaParseError{Offset: off, Reason: "unexpected end of schema bytes"}
	}
	kind := Kind(data[off])
	pos := off + 1
	idx := b.reserve("")

	readU16At := func(p int) (uint16, int, error) {
		if p+2 > len(data) {
			return 0, p, &SchemaParseError{Offset: p, Reason: "truncated u16"}
		}
		return binary.BigEndian.Uint16(data[p : p+2]), p + 2, nil
	}
	readDefault := func(p int) ([]byte, int, error) {
		l, p2, err := readU16At(p)
		if err != nil {
			return nil, p2, err
		}
		if p2+int(l) > len(data) {
			return nil, p2, &SchemaParseError{Offset: p2, Reason: "truncated default"}
		}
		if l == 0 {
			return nil, p2, nil
		}
		out := make([]byte, l)
		copy(out, data[p2:p2+int(l)])
		return out, p2 + int(l), nil
	}

	switch kind {
	case KindDecimal:
		if pos >= len(data) {
			return 0, 0, &SchemaParseError{Offset: pos, Reason: "truncated decimal exponent"}
		}
		exp := data[pos]
		pos++
		def, p2, err := readDefault(pos)
		if err != nil {
			return 0, 0, err
		}
		pos = p2
		b.set(idx, SchemaNode{Kind: kind, DecimalExp: exp, Default: def})

	case KindGeo:
		if pos >= len(data) {
			return 0, 0, &SchemaParseError{Offset: pos, Reason: "truncated geo size"}
		}
		size := data[pos]
		pos++
		def, p2, err := readDefault(pos)
		if err != nil {
			return 0, 0, err
		}
		pos = p2
		b.set(idx, SchemaNode{Kind: kind, GeoSize: size, Default: def})

	case KindEnum:
		if pos >= len(data) {
			return 0, 0, &SchemaParseError{Offset: pos, Reason: "truncated enum count"}
		}
		count := int(data[pos])
		pos++
		choices := make([]string, 0, count)
		for i := 0; i < count; i++ {
			if pos >= len(data) {
				return 0, 0, &SchemaParseError{Offset: pos, Reason: "truncated enum choice"}
			}
			l := int(data[pos])
			pos++
			if pos+l > len(data) {
				return 0, 0, &SchemaParseError{Offset: pos, Reason: "truncated enum choice bytes"}
			}
			choices = append(choices, string(data[pos:pos+l]))
			pos += l
		}
		def, p2, err := readDefault(pos)
		if err != nil {
			return 0, 0, err
		}
		pos = p2
		b.set(idx, SchemaNode{Kind: kind, EnumChoices: choices, Default: def})

	case KindString, KindBytes:
		size, p2, err := readU16At(pos)
		if err != nil {
			return 0, 0, err
		}
		pos = p2
		def, p3, err := readDefault(pos)
		if err != nil {
			return 0, 0, err
		}
		pos = p3
		b.set(idx, SchemaNode{Kind: kind, FixedSize: size, Default: def})

	case KindStruct:
		if pos >= len(data) {
			return 0, 0, &SchemaParseError{Offset: pos, Reason: "truncated struct field count"}
		}
		count := int(data[pos])
		pos++
		fields := make([]StructField, 0, count)
		for i := 0; i < count; i++ {
			if pos >= len(data) {
				return 0, 0, &SchemaParseError{Offset: pos, Reason: "truncated struct field name length"}
			}
			nl := int(data[pos])
			pos++
			if pos+nl > len(data) {
				return 0, 0, &SchemaParseError{Offset: pos, Reason: "truncated struct field name"}
			}
			name := string(data[pos : pos+nl])
			pos += nl
			subLen, p2, err := readU16At(pos)
			if err != nil {
				return 0, 0, err
			}
			pos = p2
			if pos+int(subLen) > len(data) {
				return 0, 0, &SchemaParseError{Offset: pos, Reason: "truncated struct sub-schema"}
			}
			childIdx, consumed, err := decodeSchemaNode(b, data[:pos+int(subLen)], pos)
			if err != nil {
				return 0, 0, err
			}
			pos = consumed
			fields = append(fields, StructField{Name: name, Child: childIdx})
		}
		b.set(idx, SchemaNode{Kind: kind, Fields: fields})

	case KindTuple:
		if pos+2 > len(data) {
			return 0, 0, &SchemaParseError{Offset: pos, Reason: "truncated tuple header"}
		}
		count := int(data[pos])
		sortable := data[pos+1] != 0
		pos += 2
		values := make([]int, 0, count)
		for i := 0; i < count; i++ {
			subLen, p2, err := readU16At(pos)
			if err != nil {
				return 0, 0, err
			}
			pos = p2
			if pos+int(subLen) > len(data) {
				return 0, 0, &SchemaParseError{Offset: pos, Reason: "truncated tuple sub-schema"}
			}
			childIdx, consumed, err := decodeSchemaNode(b, data[:pos+int(subLen)], pos)
			if err != nil {
				return 0, 0, err
			}
			pos = consumed
			values = append(values, childIdx)
		}
		b.set(idx, SchemaNode{Kind: kind, Values: values, Sortable: sortable})

	case KindList, KindMap:
		childIdx, consumed, err := decodeSchemaNode(b, data, pos)
		if err != nil {
			return 0, 0, err
		}
		pos = consumed
		b.set(idx, SchemaNode{Kind: kind, Of: childIdx})

	case KindUnion:
		if pos >= len(data) {
			return 0, 0, &SchemaParseError{Offset: pos, Reason: "truncated union count"}
		}
		count := int(data[pos])
		pos++
		variants := make([]int, 0, count)
		for i := 0; i < count; i++ {
			subLen, p2, err := readU16At(pos)
			if err != nil {
				return 0, 0, err
			}
			pos = p2
			if pos+int(subLen) > len(data) {
				return 0, 0, &SchemaParseError{Offset: pos, Reason: "truncated union sub-schema"}
			}
			childIdx, consumed, err := decodeSchemaNode(b, data[:pos+int(subLen)], pos)
			if err != nil {
				return 0, 0, err
			}
			pos = consumed
			variants = append(variants, childIdx)
		}
		b.set(idx, SchemaNode{Kind: kind, Variants: variants})

	case KindPortal:
		target, p2, err := readU16At(pos)
		if err != nil {
			return 0, 0, err
		}
		pos = p2
		parentPlus1, p3, err := readU16At(pos)
		if err != nil {
			return 0, 0, err
		}
		pos = p3
		b.set(idx, SchemaNode{Kind: kind, Target: int(target), Parent: int(parentPlus1) - 1})

	case KindAny, KindNone:
		b.set(idx, SchemaNode{Kind: kind})

	default: // fixed-width scalar
		def, p2, err := readDefault(pos)
		if err != nil {
			return 0, 0, err
		}
		pos = p2
		b.set(idx, SchemaNode{Kind: kind, Default: def})
	}

	return idx, pos, nil
}
