package kvstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/kjk/kvlog/log"
	"github.com/prometheus/client_golang/prometheus"
)

// Store is a key-value store backed by a single append-only file.
// Each Set appends a "key,value\n" record and the in-memory Index
// remembers where the latest value of each key is.
//
// Store is not safe for concurrent use. The caller must serialize
// calls to Set and Get.
type Store struct {
	// Path of the store file. Doesn't have to exist.
	Path string

	// if true, will call file.Sync() after every Set
	SyncWrite bool

	// if set, store metrics are registered with it
	Registerer prometheus.Registerer

	filePath string
	index    *Index
	metrics  *storeMetrics
}

// Open opens a store at path. See OpenStore.
func Open(path string) (*Store, error) {
	s := &Store{
		Path: path,
	}
	if err := OpenStore(s); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenStore initializes the Store by replaying all records in s.Path.
// A missing file is an empty store. The directory is created if needed,
// the file is created by the first Set.
func OpenStore(s *Store) error {
	if s.Path == "" {
		return fmt.Errorf("store path is not set")
	}
	var err error
	s.filePath, err = filepath.Abs(s.Path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for store file: %w", err)
	}
	if st, err := os.Stat(s.filePath); err == nil && st.IsDir() {
		return fmt.Errorf("%w: '%s' is a directory", ErrIO, s.filePath)
	}
	if err = os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	timeStart := time.Now()
	idx, n, err := Replay(s.filePath)
	if err != nil {
		return fmt.Errorf("failed to replay '%s': %w", s.filePath, err)
	}
	s.index = idx
	if s.metrics == nil {
		s.metrics = newStoreMetrics(s.Registerer, s.filePath)
	}
	s.metrics.replayedRecords.Add(float64(n))
	s.metrics.keys.Set(float64(idx.Len()))

	dur := time.Since(timeStart)
	log.Verbosef("kvstore: opened '%s', %d records, %d keys, %d bytes in %s\n", s.filePath, n, idx.Len(), idx.Cursor(), dur)
	log.EventWithDuration("kvstore_open", dur, "path", s.filePath, "records", n, "keys", idx.Len(), "size", idx.Cursor())
	return nil
}

// appendToFile appends data to the file at path, creating it if needed.
// expectedOff is where we think the file ends.
func appendToFile(path string, data []byte, expectedOff int64, sync bool) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	st, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	if st.Size() != expectedOff {
		file.Close()
		return fmt.Errorf("%w: file is %d bytes, index expects %d", ErrOutOfSync, st.Size(), expectedOff)
	}
	n, err := file.Write(data)
	if err == nil && n != len(data) {
		err = io.ErrShortWrite
	}
	if err != nil {
		file.Close()
		return fmt.Errorf("%w: wrote %d of %d bytes: %w", ErrIO, n, len(data), err)
	}
	if sync {
		if err = file.Sync(); err != nil {
			file.Close()
			return fmt.Errorf("%w: %w", ErrIO, err)
		}
	}
	if err = file.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}

// Set appends a record for key.
// key can't be empty. Neither key nor value should contain
// Delim or Term, it's not checked and will corrupt the store.
func (s *Store) Set(key string, value string) error {
	if key == "" {
		return fmt.Errorf("%w: key is empty", ErrInvalidKey)
	}
	rec := make([]byte, 0, len(key)+len(value)+delimLen+termLen)
	rec = append(rec, key...)
	rec = append(rec, Delim)
	rec = append(rec, value...)
	rec = append(rec, Term)

	if err := appendToFile(s.filePath, rec, s.index.Cursor(), s.SyncWrite); err != nil {
		return fmt.Errorf("Set('%s'): %w", key, err)
	}
	if _, err := s.index.Record(key, int64(len(rec))); err != nil {
		return fmt.Errorf("Set('%s'): %w", key, err)
	}
	s.metrics.sets.Inc()
	s.metrics.appendedBytes.Add(float64(len(rec)))
	s.metrics.keys.Set(float64(s.index.Len()))
	return nil
}

// readFilePart reads length bytes at offset
func readFilePart(path string, offset int64, length int64) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer file.Close()

	_, err = file.Seek(offset, io.SeekStart)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to seek to offset %d: %w", ErrIO, offset, err)
	}

	buf := make([]byte, length)
	n, err := io.ReadFull(file, buf)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: reached end of file after reading %d bytes, expected %d: %w", ErrIO, n, length, io.ErrUnexpectedEOF)
		}
		return nil, fmt.Errorf("%w: failed to read %d bytes: %w", ErrIO, length, err)
	}
	return buf, nil
}

// Get returns the latest value for key.
// Returns false if key was never set.
func (s *Store) Get(key string) (string, bool, error) {
	s.metrics.gets.Inc()
	loc, ok := s.index.Lookup(key)
	if !ok {
		s.metrics.getMisses.Inc()
		return "", false, nil
	}
	if loc.Length == 0 {
		return "", true, nil
	}
	d, err := readFilePart(s.filePath, loc.Offset, loc.Length)
	if err != nil {
		return "", false, fmt.Errorf("Get('%s'): %w", key, err)
	}
	if !utf8.Valid(d) {
		return "", false, fmt.Errorf("Get('%s'): %w: %d bytes at offset %d", key, ErrDecode, loc.Length, loc.Offset)
	}
	return string(d), true, nil
}

// Lookup returns location of the value for key in the store file
func (s *Store) Lookup(key string) (ValueLocation, bool) {
	return s.index.Lookup(key)
}

// Size returns size of the store file in bytes
func (s *Store) Size() int64 {
	return s.index.Cursor()
}

// Len returns number of distinct keys
func (s *Store) Len() int {
	return s.index.Len()
}

// Keys returns all keys, sorted
func (s *Store) Keys() []string {
	return s.index.Keys()
}

// FilePath returns absolute path of the store file
func (s *Store) FilePath() string {
	return s.filePath
}

// Index returns a copy of the index
func (s *Store) Index() map[string]ValueLocation {
	return s.index.Snapshot()
}
