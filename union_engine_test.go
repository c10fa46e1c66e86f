package noproto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnionVariantMismatchErrors(t *testing.T) {
	f := mustFactory(t, `{"type":"union","variants":[
		{"type":"utf8_string"},
		{"type":"u32"}
	]}`)
	buf, err := f.EmptyBuffer(16)
	require.NoError(t, err)

	require.NoError(t, Set(buf, "hello, world", "0"))

	v, ok, err := Get[string](buf, "0")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello, world", v)

	// Writing a different variant while the union already holds one is an
	// error (spec.md §4.3: "error if the branch disagrees with path"), not
	// a silent re-tag.
	err = Set(buf, uint32(99), "1")
	assert.ErrorIs(t, err, ErrTypeMismatch)
	var uverr *UnionVariantError
	require.ErrorAs(t, err, &uverr)
	assert.Equal(t, 0, uverr.Stored)
	assert.Equal(t, 1, uverr.Requested)

	// Reading the mismatched variant is an error too, not a reported absence.
	_, _, err = Get[uint32](buf, "1")
	assert.ErrorIs(t, err, ErrTypeMismatch)

	// The originally-written variant is untouched by the failed attempt.
	v2, ok, err := Get[string](buf, "0")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello, world", v2)
}

func TestUnionVariantSwitchRequiresDeleteFirst(t *testing.T) {
	f := mustFactory(t, `{"type":"struct","fields":[
		{"name":"u","type":"union","variants":[
			{"type":"utf8_string"},
			{"type":"u32"}
		]}
	]}`)
	buf, err := f.EmptyBuffer(16)
	require.NoError(t, err)

	require.NoError(t, Set(buf, "hello, world", "u", "0"))
	require.ErrorIs(t, Set(buf, uint32(99), "u", "1"), ErrTypeMismatch)

	// Deleting the whole union field (not a variant) clears the struct's
	// vtable slot, orphaning the discriminant block; only then can a
	// different variant be written.
	require.NoError(t, buf.Del("u"))
	require.NoError(t, Set(buf, uint32(99), "u", "1"))

	v, ok, err := Get[uint32](buf, "u", "1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint32(99), v)

	_, _, err = Get[string](buf, "u", "0")
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestUnionUnwrittenIsAbsent(t *testing.T) {
	f := mustFactory(t, `{"type":"union","variants":[{"type":"u8"},{"type":"u8"}]}`)
	buf, err := f.EmptyBuffer(8)
	require.NoError(t, err)

	_, ok, err := Get[uint8](buf, "0")
	require.NoError(t, err)
	assert.False(t, ok)
}
