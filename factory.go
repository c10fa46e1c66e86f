package noproto

// Factory compiles a Schema once and produces Buffers bound to it. Keeping
// the Schema on the Factory (rather than per-Buffer) is what lets Schema
// stay a cheap, shared, read-only value (spec.md §6.1).
type Factory struct {
	schema *Schema
}

// FactoryOption configures a Factory at construction time.
type FactoryOption func(*Factory)

// NewFactory builds a Factory around an already-parsed Schema.
func NewFactory(schema *Schema, opts ...FactoryOption) *Factory {
	f := &Factory{schema: schema}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewFromJSON builds a Factory from the JSON schema serial form.
func NewFromJSON(data []byte, opts ...FactoryOption) (*Factory, error) {
	s, err := ParseSchemaJSON(data)
	if err != nil {
		return nil, err
	}
	return NewFactory(s, opts...), nil
}

// NewFromBytes builds a Factory from the compact binary schema serial form.
func NewFromBytes(data []byte, opts ...FactoryOption) (*Factory, error) {
	s, err := ParseSchemaBytes(data)
	if err != nil {
		return nil, err
	}
	return NewFactory(s, opts...), nil
}

// Schema returns the Factory's compiled schema.
func (f *Factory) Schema() *Schema { return f.schema }

// CompileSchema returns the compact binary form of the Factory's schema, for
// distributing alongside buffers produced from it.
func (f *Factory) CompileSchema() []byte { return f.schema.CompileSchema() }

// EmptyBuffer allocates a new Buffer with no root value set yet. Per
// spec.md §3.1, a writable buffer reserves its first 2 bytes for a
// format/version tag and places the 2-byte root pointer record right
// after, at offset 2 (R = 2); offset 0 itself still doubles as the
// reserved null-pointer sentinel, which readAddr/writeAddr never
// dereference.
func (f *Factory) EmptyBuffer(capacityHint int) (*Buffer, error) {
	mem := newArena(capacityHint)
	if _, err := mem.mallocZero(2); err != nil {
		return nil, err
	}
	ptr, err := allocU16(mem, 0)
	if err != nil {
		return nil, err
	}
	return &Buffer{mem: mem, schema: f.schema, rootPtr: ptr}, nil
}

// OpenBuffer wraps an existing encoded buffer for read/write access.
func (f *Factory) OpenBuffer(data []byte) (*Buffer, error) {
	if len(data) < 4 {
		return nil, &SchemaParseError{Reason: "buffer shorter than the format tag and root pointer record"}
	}
	mem := arenaFromBytes(data)
	return &Buffer{mem: mem, schema: f.schema, rootPtr: 2}, nil
}

// OpenBufferRO wraps an existing encoded buffer for read-only access: its
// Del, ApplyJSON, MaybeCompact, SetMin and SetMax methods return an error
// wrapping ErrTypeMismatch instead of mutating data, and Compact returns a
// fresh writable Buffer. The generic Set and ListPush take a *Buffer and are
// not guarded (see ReadOnlyBuffer).
func (f *Factory) OpenBufferRO(data []byte) (*ReadOnlyBuffer, error) {
	b, err := f.OpenBuffer(data)
	if err != nil {
		return nil, err
	}
	return &ReadOnlyBuffer{Buffer: b}, nil
}

// OpenSortableBuffer wraps a buffer produced by Buffer.CloseSortable: the
// root schema node must be a sortable tuple, and the root itself is the
// inline region rather than a pointer record (spec.md §4.6).
func (f *Factory) OpenSortableBuffer(data []byte) (*Buffer, error) {
	if f.schema.Root().Kind != KindTuple || !f.schema.Root().Sortable {
		return nil, ErrSortableViolation
	}
	mem := arenaFromBytes(data)
	return &Buffer{mem: mem, schema: f.schema, rootPtr: sortableRootSentinel, sortableRoot: true}, nil
}

// EmptySortableBuffer allocates a zero-filled sortable-tuple buffer ready
// for Set calls, sized exactly to the root tuple's inline width.
func (f *Factory) EmptySortableBuffer() (*Buffer, error) {
	root := f.schema.Root()
	if root.Kind != KindTuple || !root.Sortable {
		return nil, ErrSortableViolation
	}
	width := sortableTupleWidth(f.schema, root)
	mem := newArena(int(width))
	if _, err := mem.mallocZero(int(width)); err != nil {
		return nil, err
	}
	return &Buffer{mem: mem, schema: f.schema, rootPtr: sortableRootSentinel, sortableRoot: true}, nil
}

// NewFromJSONValue builds a Factory from schemaJSON (the JSON schema form)
// and returns a fresh Buffer with valueJSON applied to its root, with JSON
// nulls treated as deletes. It is a convenience wrapper over NewFromJSON
// and Buffer.ApplyJSON, useful for fixtures.
func NewFromJSONValue(schemaJSON, valueJSON []byte) (*Buffer, error) {
	f, err := NewFromJSON(schemaJSON)
	if err != nil {
		return nil, err
	}
	buf, err := f.EmptyBuffer(64)
	if err != nil {
		return nil, err
	}
	if err := buf.ApplyJSON(valueJSON, true); err != nil {
		return nil, err
	}
	return buf, nil
}
