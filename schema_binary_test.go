package noproto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSchemaBinaryRoundTrip checks the compile_schema/from_bytes law from
// spec.md §8: parsing a schema's compact binary form back must reproduce a
// Schema that behaves identically to the original, field for field.
func TestSchemaBinaryRoundTrip(t *testing.T) {
	orig, err := ParseSchemaJSON([]byte(`{"type":"struct","fields":[
		{"name":"id","type":"u64"},
		{"name":"name","type":"utf8_string","default":"anon"},
		{"name":"tags","type":"list","of":{"type":"utf8_string"}},
		{"name":"rating","type":"decimal","exp":2},
		{"name":"kind","type":"enum","choices":["a","b","c"]},
		{"name":"pair","type":"tuple","sortable":true,"values":[
			{"type":"u8"},{"type":"u8"}
		]}
	]}`))
	require.NoError(t, err)

	compiled := orig.CompileSchema()
	require.NotEmpty(t, compiled)

	round, err := ParseSchemaBytes(compiled)
	require.NoError(t, err)
	require.Equal(t, len(orig.Nodes), len(round.Nodes))

	assert.Equal(t, orig.Root().Kind, round.Root().Kind)
	for i, f := range orig.Root().Fields {
		assert.Equal(t, f.Name, round.Root().Fields[i].Name)
	}

	// Compiling the round-tripped schema again must produce byte-identical
	// output: CompileSchema is a pure function of the flat node vector.
	assert.Equal(t, compiled, round.CompileSchema())

	// A buffer built against the round-tripped schema must read/write the
	// same way as one built against the original.
	f1 := NewFactory(orig)
	f2 := NewFactory(round)

	b1, err := f1.EmptyBuffer(32)
	require.NoError(t, err)
	require.NoError(t, Set(b1, uint64(42), "id"))

	b2, err := f2.EmptyBuffer(32)
	require.NoError(t, err)
	require.NoError(t, Set(b2, uint64(42), "id"))

	v1, _, _ := Get[uint64](b1, "id")
	v2, _, _ := Get[uint64](b2, "id")
	assert.Equal(t, v1, v2)

	def, ok, err := GetSchemaDefault[string](b2, "name")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "anon", def)
}

func TestSchemaBinaryPortalRoundTrip(t *testing.T) {
	orig, err := ParseSchemaJSON([]byte(`{"type":"struct","fields":[
		{"name":"self","type":"portal","target":"other"},
		{"name":"other","type":"u32"}
	]}`))
	require.NoError(t, err)

	compiled := orig.CompileSchema()
	round, err := ParseSchemaBytes(compiled)
	require.NoError(t, err)

	portalIdx := round.Root().Fields[0].Child
	otherIdx := round.Root().Fields[1].Child
	assert.Equal(t, KindPortal, round.Get(portalIdx).Kind)
	assert.Equal(t, otherIdx, round.Get(portalIdx).Target)
}

func TestSchemaBinaryTruncatedIsError(t *testing.T) {
	orig, err := ParseSchemaJSON([]byte(`{"type":"u32"}`))
	require.NoError(t, err)
	compiled := orig.CompileSchema()

	_, err = ParseSchemaBytes(compiled[:len(compiled)-1])
	assert.Error(t, err)
}
