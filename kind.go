package noproto

// Kind identifies the type tag of a schema node. The set is closed: every
// node in a parsed Schema is exactly one of these.
type Kind uint8

const (
	KindInvalid Kind = iota

	// Fixed-width scalars.
	KindI8
	KindI16
	KindI32
	KindI64
	KindU8
	KindU16
	KindU32
	KindU64
	KindF32
	KindF64
	KindBool
	KindDecimal
	KindGeo
	KindDate
	KindUUID
	KindULID
	KindEnum
	KindString
	KindBytes

	// Collections.
	KindStruct
	KindTuple
	KindList
	KindMap
	KindPortal
	KindUnion
	KindAny
	KindNone
)

var kindNames = map[Kind]string{
	KindInvalid: "invalid",
	KindI8:      "i8",
	KindI16:     "i16",
	KindI32:     "i32",
	KindI64:     "i64",
	KindU8:      "u8",
	KindU16:     "u16",
	KindU32:     "u32",
	KindU64:     "u64",
	KindF32:     "f32",
	KindF64:     "f64",
	KindBool:    "bool",
	KindDecimal: "decimal",
	KindGeo:     "geo",
	KindDate:    "date",
	KindUUID:    "uuid",
	KindULID:    "ulid",
	KindEnum:    "enum",
	KindString:  "utf8_string",
	KindBytes:   "bytes",
	KindStruct:  "struct",
	KindTuple:   "tuple",
	KindList:    "list",
	KindMap:     "map",
	KindPortal:  "portal",
	KindUnion:   "union",
	KindAny:     "any",
	KindNone:    "none",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// IsScalar reports whether values of this kind are stored as a single
// encoded byte run, rather than as a pointer-record collection.
func (k Kind) IsScalar() bool {
	switch k {
	case KindI8, KindI16, KindI32, KindI64, KindU8, KindU16, KindU32, KindU64,
		KindF32, KindF64, KindBool, KindDecimal, KindGeo, KindDate, KindUUID,
		KindULID, KindEnum, KindString, KindBytes:
		return true
	}
	return false
}

// IsCollection reports whether values of this kind are collection engines
// addressed through pointer records (struct/tuple vtables, list/map chains).
func (k Kind) IsCollection() bool {
	switch k {
	case KindStruct, KindTuple, KindList, KindMap, KindUnion:
		return true
	}
	return false
}

// IsIndexable reports whether a numeric path segment may select into a node
// of this kind (list and tuple; struct and map take string segments).
func (k Kind) IsIndexable() bool {
	return k == KindList || k == KindTuple
}
