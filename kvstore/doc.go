// Package kvstore is a minimal log-structured key-value store.
//
// Values are appended to a single file as text records and an in-memory
// index maps each key to the byte range of its latest value, so Get is a
// single seek and read regardless of the file size.
//
// # File Format
//
// One record per line, no header and no persisted index:
//
//	<key>,<value>\n
//
// A later Set for the same key appends a new record. The old one stays in
// the file but the index only points to the newest. There is no compaction.
//
// Keys and values are not escaped. A key containing ',' or a key or value
// containing '\n' will corrupt the file. It's up to the caller to not do that.
//
// # Basic Usage
//
//	s, err := kvstore.Open("data/store.txt")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = s.Set("name", "John")
//	v, ok, err := s.Get("name")
//
// # Recovery
//
// OpenStore rebuilds the index by reading the whole file. Offsets are
// derived from cumulative record sizes. A line without ',' or an
// unterminated last line fails OpenStore with ErrCorruptRecord.
//
// # Thread Safety
//
// Store is not safe for concurrent use. See package segments for a
// multi-file store that is.
package kvstore
