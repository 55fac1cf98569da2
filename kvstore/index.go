package kvstore

import (
	"fmt"
	"maps"
	"slices"
)

const (
	// Delim separates the key from the value in a record
	Delim = ','
	// Term ends a record
	Term = '\n'

	delimLen = 1
	termLen  = 1
)

// ValueLocation is the byte range of a value inside the store file.
// It doesn't include the key, the delimiter or the terminator.
type ValueLocation struct {
	Offset int64
	Length int64
}

// Index maps a key to the location of its most recent value.
// It only does arithmetic on record lengths and never touches the file,
// so it must agree with the writer on Delim and Term lengths.
// Not safe for concurrent use.
type Index struct {
	// total bytes of all records passed to Record(), equal to file size
	cursor int64
	locs   map[string]ValueLocation
}

func NewIndex() *Index {
	return &Index{
		locs: map[string]ValueLocation{},
	}
}

// Record notes that a record of recordLen bytes (key, delimiter, value and
// terminator) for key was written at the current end of the file.
// Returns total number of bytes recorded so far, which should be equal to
// the file size.
func (idx *Index) Record(key string, recordLen int64) (int64, error) {
	if key == "" {
		return idx.cursor, fmt.Errorf("%w: key is empty", ErrInvalidKey)
	}
	keyPrefixLen := int64(len(key)) + delimLen
	if recordLen < keyPrefixLen+termLen {
		return idx.cursor, fmt.Errorf("%w: %d bytes is too short for key '%s'", ErrInvalidRecord, recordLen, key)
	}
	idx.locs[key] = ValueLocation{
		Offset: idx.cursor + keyPrefixLen,
		Length: recordLen - keyPrefixLen - termLen,
	}
	idx.cursor += recordLen
	return idx.cursor, nil
}

// Lookup returns location of the latest value recorded for key
func (idx *Index) Lookup(key string) (ValueLocation, bool) {
	loc, ok := idx.locs[key]
	return loc, ok
}

// Cursor returns total number of bytes recorded
func (idx *Index) Cursor() int64 {
	return idx.cursor
}

// Len returns number of distinct keys
func (idx *Index) Len() int {
	return len(idx.locs)
}

// Keys returns all keys, sorted
func (idx *Index) Keys() []string {
	return slices.Sorted(maps.Keys(idx.locs))
}

// Snapshot returns a copy of the key to location mapping
func (idx *Index) Snapshot() map[string]ValueLocation {
	return maps.Clone(idx.locs)
}
