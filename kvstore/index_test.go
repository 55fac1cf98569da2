package kvstore

import (
	"testing"

	"github.com/kjk/kvlog/require"
)

func TestIndexLookupEmpty(t *testing.T) {
	idx := NewIndex()
	_, ok := idx.Lookup("key")
	require.False(t, ok)
	require.Equal(t, int64(0), idx.Cursor())
	require.Equal(t, 0, idx.Len())
}

func TestIndexRecordReturnsTotalBytes(t *testing.T) {
	idx := NewIndex()

	k1Size := int64(11)
	size, err := idx.Record("k1", k1Size)
	require.NoError(t, err)
	require.Equal(t, int64(11), size)

	k2Size := int64(12)
	size, err = idx.Record("k2", k2Size)
	require.NoError(t, err)
	require.Equal(t, k1Size+k2Size, size)
	require.Equal(t, size, idx.Cursor())

	loc, ok := idx.Lookup("k2")
	require.True(t, ok)
	require.Equal(t, int64(11+len("k2")+1), loc.Offset)
}

func TestIndexOffsetAndLength(t *testing.T) {
	idx := NewIndex()

	k1 := "key1"
	k1Size := int64(11)
	sizeAfterK1, err := idx.Record(k1, k1Size)
	require.NoError(t, err)

	keyPrefix := int64(len(k1) + delimLen)
	loc, ok := idx.Lookup(k1)
	require.True(t, ok)
	require.Equal(t, ValueLocation{Offset: keyPrefix, Length: k1Size - keyPrefix - termLen}, loc)

	k2 := "key2"
	k2Size := int64(12)
	_, err = idx.Record(k2, k2Size)
	require.NoError(t, err)

	keyPrefix = int64(len(k2) + delimLen)
	loc, ok = idx.Lookup(k2)
	require.True(t, ok)
	require.Equal(t, ValueLocation{Offset: sizeAfterK1 + keyPrefix, Length: k2Size - keyPrefix - termLen}, loc)
}

func TestIndexLastWriteWins(t *testing.T) {
	idx := NewIndex()
	_, err := idx.Record("k", len64("k,v1\n"))
	require.NoError(t, err)
	_, err = idx.Record("k", len64("k,value2\n"))
	require.NoError(t, err)

	loc, ok := idx.Lookup("k")
	require.True(t, ok)
	require.Equal(t, ValueLocation{Offset: 5 + 2, Length: 6}, loc)
	require.Equal(t, 1, idx.Len())
	require.Equal(t, int64(14), idx.Cursor())
}

func TestIndexEmptyValue(t *testing.T) {
	idx := NewIndex()
	// "k,\n"
	_, err := idx.Record("k", 3)
	require.NoError(t, err)
	loc, ok := idx.Lookup("k")
	require.True(t, ok)
	require.Equal(t, ValueLocation{Offset: 2, Length: 0}, loc)
}

func TestIndexInvalidRecord(t *testing.T) {
	idx := NewIndex()
	_, err := idx.Record("a", 5)
	require.NoError(t, err)

	// "key" + delimiter + terminator needs at least 5 bytes
	for _, n := range []int64{0, 1, 4, -3} {
		cursor, err := idx.Record("key", n)
		require.ErrorIs(t, err, ErrInvalidRecord)
		require.Equal(t, int64(5), cursor)
	}
	_, ok := idx.Lookup("key")
	require.False(t, ok)
	require.Equal(t, int64(5), idx.Cursor())

	_, err = idx.Record("", 10)
	require.ErrorIs(t, err, ErrInvalidKey)
	require.Equal(t, int64(5), idx.Cursor())
}

func TestIndexKeysAndSnapshot(t *testing.T) {
	idx := NewIndex()
	for _, k := range []string{"c", "a", "b", "a"} {
		_, err := idx.Record(k, 4)
		require.NoError(t, err)
	}
	require.Equal(t, []string{"a", "b", "c"}, idx.Keys())

	snap := idx.Snapshot()
	require.Len(t, snap, 3)
	require.Equal(t, ValueLocation{Offset: 14, Length: 1}, snap["a"])

	// snapshot is a copy
	delete(snap, "a")
	_, ok := idx.Lookup("a")
	require.True(t, ok)
}

func len64(s string) int64 {
	return int64(len(s))
}
