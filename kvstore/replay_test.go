package kvstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/kjk/kvlog/require"
)

func TestParseRecord(t *testing.T) {
	tests := []struct {
		line  string
		key   string
		value string
	}{
		{"k,v", "k", "v"},
		{"key1,val1.4", "key1", "val1.4"},
		{"k,", "k", ""},
		{"k,a,b", "k", "a,b"},
		{"k, spaced ", "k", " spaced "},
	}
	for _, test := range tests {
		k, v, err := ParseRecord(test.line)
		require.NoError(t, err)
		require.Equal(t, test.key, k)
		require.Equal(t, test.value, v)
	}

	for _, line := range []string{"", "novalue", ",v"} {
		_, _, err := ParseRecord(line)
		require.ErrorIs(t, err, ErrCorruptRecord, "line: %q", line)
	}
}

func writeFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "store.txt")
	err := os.WriteFile(path, []byte(content), 0644)
	require.NoError(t, err)
	return path
}

func TestParseFile(t *testing.T) {
	path := writeFile(t, "a,1\nbb,22\na,333\n")
	var got []Entry
	entries, errFn := ParseFile(path)
	for e := range entries {
		got = append(got, e)
	}
	require.NoError(t, errFn())

	exp := []Entry{
		{Key: "a", Value: "1", Offset: 0, Size: 4},
		{Key: "bb", Value: "22", Offset: 4, Size: 6},
		{Key: "a", Value: "333", Offset: 10, Size: 6},
	}
	if diff := cmp.Diff(exp, got); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFileStopEarly(t *testing.T) {
	path := writeFile(t, "a,1\nb,2\nc,3\n")
	n := 0
	entries, errFn := ParseFile(path)
	for range entries {
		n++
		if n == 2 {
			break
		}
	}
	require.NoError(t, errFn())
	require.Equal(t, 2, n)
}

func TestParseFileMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.txt")
	n := 0
	entries, errFn := ParseFile(path)
	for range entries {
		n++
	}
	require.NoError(t, errFn())
	require.Equal(t, 0, n)
}

func TestReplay(t *testing.T) {
	path := writeFile(t, "a,1\nbb,22\na,333\n")
	idx, n, err := Replay(path)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, int64(16), idx.Cursor())
	require.Equal(t, 2, idx.Len())

	loc, ok := idx.Lookup("a")
	require.True(t, ok)
	require.Equal(t, ValueLocation{Offset: 12, Length: 3}, loc)
	loc, ok = idx.Lookup("bb")
	require.True(t, ok)
	require.Equal(t, ValueLocation{Offset: 7, Length: 2}, loc)
}

func TestReplayCorrupt(t *testing.T) {
	path := writeFile(t, "a,1\nbroken\nc,3\n")
	idx, n, err := Replay(path)
	require.ErrorIs(t, err, ErrCorruptRecord)
	require.Nil(t, idx)
	require.Equal(t, 1, n)
}
