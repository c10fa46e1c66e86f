package noproto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustFactory(t *testing.T, schemaJSON string) *Factory {
	t.Helper()
	f, err := NewFromJSON([]byte(schemaJSON))
	require.NoError(t, err)
	return f
}

func TestStructRoundTrip(t *testing.T) {
	f := mustFactory(t, `{"type":"struct","fields":[
		{"name":"name","type":"utf8_string"},
		{"name":"age","type":"u8"}
	]}`)

	buf, err := f.EmptyBuffer(16)
	require.NoError(t, err)

	require.NoError(t, Set(buf, "hello", "name"))
	require.NoError(t, Set(buf, uint8(30), "age"))

	name, ok, err := Get[string](buf, "name")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello", name)

	age, ok, err := Get[uint8](buf, "age")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint8(30), age)

	// Round-trip through the raw bytes: opening a fresh Factory against the
	// same bytes must read back identical values.
	raw := buf.ReadBytes()
	reopened, err := f.OpenBuffer(raw)
	require.NoError(t, err)
	name2, ok, err := Get[string](reopened, "name")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello", name2)

	require.NoError(t, buf.Del())
	require.NoError(t, buf.Compact())

	// Deleting the whole struct (not a single field) clears the root
	// pointer itself, orphaning the entire vtable chain; after compaction
	// nothing but the 4-byte buffer header (2-byte format tag + 2-byte
	// root pointer) remains, regardless of whether a given field's value
	// was ever inlined into its vtable slot or indirected through a
	// separate allocation.
	stats, err := buf.CalcBytes()
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Current)
	assert.Equal(t, 4, stats.AfterCompaction)
	assert.Equal(t, 0, stats.Wasted)

	_, ok, err = Get[string](buf, "name")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListSparseIndices(t *testing.T) {
	f := mustFactory(t, `{"type":"list","of":{"type":"utf8_string"}}`)
	buf, err := f.EmptyBuffer(16)
	require.NoError(t, err)

	require.NoError(t, Set(buf, "hello, world", "10"))
	require.NoError(t, Set(buf, "hello, world2", "12"))

	v10, ok, err := Get[string](buf, "10")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello, world", v10)

	v12, ok, err := Get[string](buf, "12")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello, world2", v12)

	// Index 11 was never set: a gap, not an error.
	_, ok, err = Get[string](buf, "11")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := buf.Length()
	require.NoError(t, err)
	assert.Equal(t, 2, n, "Length counts only allocated items, not the gap")
}

func TestListPushAppendsAfterTail(t *testing.T) {
	f := mustFactory(t, `{"type":"list","of":{"type":"u32"}}`)
	buf, err := f.EmptyBuffer(16)
	require.NoError(t, err)

	i0, err := ListPush(buf, uint32(100))
	require.NoError(t, err)
	assert.Equal(t, 0, i0)

	i1, err := ListPush(buf, uint32(200))
	require.NoError(t, err)
	assert.Equal(t, 1, i1)

	v, ok, err := Get[uint32](buf, "1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint32(200), v)
}

func TestFlexibleStringGrowthAndCompaction(t *testing.T) {
	f := mustFactory(t, `{"type":"utf8_string"}`)
	buf, err := f.EmptyBuffer(4)
	require.NoError(t, err)

	require.NoError(t, Set(buf, "hello"))
	assert.Equal(t, 11, buf.mem.len(), "4-byte header + 2-byte length prefix + 5 bytes")

	require.NoError(t, Set(buf, "hello, world"))
	assert.Equal(t, 25, buf.mem.len(), "old 7-byte region is abandoned, a fresh 14-byte region is appended")

	stats, err := buf.CalcBytes()
	require.NoError(t, err)
	assert.Equal(t, 25, stats.Current)
	assert.Equal(t, 18, stats.AfterCompaction)
	assert.Equal(t, 7, stats.Wasted)

	require.NoError(t, buf.Compact())
	assert.Equal(t, 18, buf.mem.len())

	v, ok, err := Get[string](buf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello, world", v)

	// A write no longer than the stored length reuses the region in place.
	before := buf.mem.len()
	require.NoError(t, Set(buf, "bye"))
	assert.Equal(t, before, buf.mem.len(), "shrinking overwrite must not allocate")
	v, ok, err = Get[string](buf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "bye", v)
}

func TestDecimalFixedExponent(t *testing.T) {
	f := mustFactory(t, `{"type":"decimal","exp":2}`)
	buf, err := f.EmptyBuffer(4)
	require.NoError(t, err)

	require.NoError(t, Set[int64](buf, 12345))
	v, ok, err := Get[int64](buf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(12345), v)

	// A decimal value always encodes to exactly 8 bytes (a plain i64 body);
	// the fractional exponent lives in the schema, not the value bytes.
	off := readAddr(buf.mem, buf.rootPtr)
	b, ok := buf.mem.slice(off, 8)
	require.True(t, ok)
	assert.Len(t, b, 8)
}

func TestBytesDefault(t *testing.T) {
	f := mustFactory(t, `{"type":"bytes","default":[1,2,3,4]}`)
	buf, err := f.EmptyBuffer(4)
	require.NoError(t, err)

	_, ok, err := Get[[]byte](buf)
	require.NoError(t, err)
	assert.False(t, ok, "nothing has been written yet")

	def, ok, err := GetSchemaDefault[[]byte](buf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3, 4}, def)
}

func TestSortableTupleByteOrdering(t *testing.T) {
	f := mustFactory(t, `{"type":"tuple","sortable":true,"values":[
		{"type":"u8"},
		{"type":"utf8_string","size":6}
	]}`)

	minBuf, err := f.EmptySortableBuffer()
	require.NoError(t, err)
	require.NoError(t, minBuf.SetMin("0"))
	require.NoError(t, minBuf.SetMin("1"))

	midBuf, err := f.EmptySortableBuffer()
	require.NoError(t, err)
	require.NoError(t, Set(midBuf, uint8(55), "0"))
	require.NoError(t, Set(midBuf, "hello ", "1"))

	maxBuf, err := f.EmptySortableBuffer()
	require.NoError(t, err)
	require.NoError(t, maxBuf.SetMax("0"))
	require.NoError(t, maxBuf.SetMax("1"))

	minBytes, err := minBuf.CloseSortable()
	require.NoError(t, err)
	midBytes, err := midBuf.CloseSortable()
	require.NoError(t, err)
	maxBytes, err := maxBuf.CloseSortable()
	require.NoError(t, err)

	assert.Less(t, string(minBytes), string(midBytes))
	assert.Less(t, string(midBytes), string(maxBytes))

	// Element 0's presence byte + 1-byte u8 value, element 1's presence
	// byte + 6-byte fixed string, back to back: 55, 'h','e','l','l','o',' '.
	assert.Equal(t, []byte{1, 55, 1, 'h', 'e', 'l', 'l', 'o', ' '}, midBytes)

	// CalcBytes/Compact must reject a sortable-root buffer outright: there
	// is no root pointer record for the ordinary compactor to rebuild from.
	_, err = midBuf.CalcBytes()
	assert.ErrorIs(t, err, ErrSortableViolation)
	assert.ErrorIs(t, midBuf.Compact(), ErrSortableViolation)
}

func TestSortableTupleSignedAndFloatOrdering(t *testing.T) {
	f := mustFactory(t, `{"type":"tuple","sortable":true,"values":[
		{"type":"i8"},
		{"type":"f32"}
	]}`)

	build := func(i int8, v float32) []byte {
		b, err := f.EmptySortableBuffer()
		require.NoError(t, err)
		require.NoError(t, Set(b, i, "0"))
		require.NoError(t, Set(b, v, "1"))
		out, err := b.CloseSortable()
		require.NoError(t, err)
		return out
	}

	neg := build(-5, -1.0)
	zero := build(0, 0.0)
	pos := build(10, 1.0)

	// Signed ints and floats are remapped (flipSignBit/remapFloatForSort)
	// so unsigned byte-wise comparison of the sortable tuple's tail agrees
	// with numeric order, per spec.md §3.5.6.
	assert.Less(t, string(neg), string(zero))
	assert.Less(t, string(zero), string(pos))

	// Reading back must reverse the remap: the stored on-disk bytes are not
	// the plain two's-complement/IEEE-754 encoding.
	negBuf, err := f.EmptySortableBuffer()
	require.NoError(t, err)
	require.NoError(t, Set(negBuf, int8(-5), "0"))
	require.NoError(t, Set(negBuf, float32(-1.0), "1"))

	i, ok, err := Get[int8](negBuf, "0")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int8(-5), i)

	v, ok, err := Get[float32](negBuf, "1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, float32(-1.0), v)
}

func TestDelClearsValueNotCollection(t *testing.T) {
	f := mustFactory(t, `{"type":"struct","fields":[{"name":"a","type":"u32"}]}`)
	buf, err := f.EmptyBuffer(16)
	require.NoError(t, err)

	require.NoError(t, Set(buf, uint32(7), "a"))
	require.NoError(t, buf.Del("a"))

	_, ok, err := Get[uint32](buf, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMapIterationAndLength(t *testing.T) {
	f := mustFactory(t, `{"type":"map","value":{"type":"u16"}}`)
	buf, err := f.EmptyBuffer(16)
	require.NoError(t, err)

	require.NoError(t, Set(buf, uint16(1), "a"))
	require.NoError(t, Set(buf, uint16(2), "b"))
	require.NoError(t, Set(buf, uint16(3), "a")) // overwrite, not a new entry

	n, err := buf.Length()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	v, ok, err := Get[uint16](buf, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint16(3), v)

	entries, err := buf.GetCollection()
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestJSONRoundTrip(t *testing.T) {
	f := mustFactory(t, `{"type":"struct","fields":[
		{"name":"id","type":"u32"},
		{"name":"tags","type":"list","of":{"type":"utf8_string"}}
	]}`)
	buf, err := f.EmptyBuffer(32)
	require.NoError(t, err)

	require.NoError(t, buf.ApplyJSON([]byte(`{"id":7,"tags":["a","b"]}`), true))

	out, err := buf.JSONEncode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":7,"tags":["a","b"]}`, string(out))
}

func TestApplyJSONNullMode(t *testing.T) {
	f := mustFactory(t, `{"type":"struct","fields":[
		{"name":"id","type":"u32"},
		{"name":"name","type":"utf8_string"}
	]}`)
	buf, err := f.EmptyBuffer(32)
	require.NoError(t, err)

	require.NoError(t, buf.ApplyJSON([]byte(`{"id":7,"name":"hello"}`), true))

	// apply_null=false: a null leaves the existing value untouched.
	require.NoError(t, buf.ApplyJSON([]byte(`{"id":7,"name":null}`), false))
	name, ok, err := Get[string](buf, "name")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello", name)

	// apply_null=true: a null deletes the existing value.
	require.NoError(t, buf.ApplyJSON([]byte(`{"id":7,"name":null}`), true))
	_, ok, err = Get[string](buf, "name")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReadOnlyBufferRejectsMutation(t *testing.T) {
	f := mustFactory(t, `{"type":"u8"}`)
	buf, err := f.EmptyBuffer(4)
	require.NoError(t, err)
	require.NoError(t, Set[uint8](buf, 9))

	ro, err := f.OpenBufferRO(buf.ReadBytes())
	require.NoError(t, err)
	assert.Error(t, ro.Del())

	v, ok, err := Get[uint8](ro.Buffer)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint8(9), v)

	// Compact is the one mutating-looking call a read-only buffer still
	// honors: it never touches the borrowed bytes, instead handing back a
	// freshly-owned writable Buffer.
	fresh, err := ro.Compact()
	require.NoError(t, err)
	fv, ok, err := Get[uint8](fresh)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint8(9), fv)

	require.NoError(t, Set[uint8](fresh, 10))
	fv2, ok, err := Get[uint8](fresh)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint8(10), fv2)
}
