package noproto

// ParentKind records whether a cursor's parent collection is a tuple,
// sortable or not (spec.md §3.5.6, §4.6). Whether a write must also update a
// presence byte is decided by the cursor's inSortableTuple flag, not by
// ParentKind.
type ParentKind uint8

const (
	ParentNone ParentKind = iota
	ParentTuple
)

// Cursor is a lightweight handle for one value position inside a Buffer. It
// pairs a buffer offset with a schema index and is cheap to copy; it must
// never outlive the Buffer or Schema it names.
type Cursor struct {
	// BufAddr is the offset of the pointer record for this value, not of
	// the value's own bytes. BufAddr == 0 marks a "virtual" cursor: the
	// path resolved against the schema, but no record has been allocated
	// for it yet (reads yield absent, writes require MakePath).
	BufAddr uint16

	SchemaAddr       int
	ParentSchemaAddr int
	ParentKind       ParentKind

	// sortableSlot is set when this cursor names one element of a sortable
	// tuple: the byte offset of its presence flag, immediately followed by
	// its fixed-width value bytes. It is mutually exclusive with the usual
	// BufAddr/pointer-record interpretation (see tuple_engine.go).
	sortableSlot    uint16
	inSortableTuple bool
}

func rootCursor(rootOffset uint16, schemaAddr int) Cursor {
	return Cursor{BufAddr: rootOffset, SchemaAddr: schemaAddr, ParentSchemaAddr: -1, ParentKind: ParentNone}
}

// valid reports whether this cursor names an allocated (non-virtual) value.
func (c Cursor) valid() bool { return c.BufAddr != 0 || c.inSortableTuple }
