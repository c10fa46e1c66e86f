package noproto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaMallocOverflow(t *testing.T) {
	a := newArena(4)
	_, err := a.malloc(make([]byte, maxArenaSize))
	require.NoError(t, err)

	_, err = a.malloc([]byte{1})
	assert.ErrorIs(t, err, ErrMemoryOverflow)
}

func TestArenaSliceBoundsChecked(t *testing.T) {
	a := newArena(4)
	_, err := a.malloc([]byte{1, 2, 3})
	require.NoError(t, err)

	b, ok := a.slice(0, 3)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, b)

	_, ok = a.slice(0, 4)
	assert.False(t, ok, "reading past the high-water mark must fail, not panic")

	_, ok = a.slice(10, 1)
	assert.False(t, ok)
}

func TestArenaWriteAtOverwritesInPlace(t *testing.T) {
	a := newArena(4)
	off, err := a.malloc([]byte{0, 0, 0})
	require.NoError(t, err)

	ok := a.writeAt(off, []byte{9, 9})
	require.True(t, ok)

	b, ok := a.slice(off, 3)
	require.True(t, ok)
	assert.Equal(t, []byte{9, 9, 0}, b)

	// Writing past the allocated region is rejected, not appended.
	ok = a.writeAt(off, []byte{1, 2, 3, 4})
	assert.False(t, ok)
}
