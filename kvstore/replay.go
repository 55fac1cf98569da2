package kvstore

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"
)

// Entry is a single record as read from the store file
type Entry struct {
	Key   string
	Value string
	// offset of the start of the record in the file
	Offset int64
	// number of bytes taken by the record, including the terminator
	Size int64
}

// ParseRecord splits a record line (without the terminator) into key and value.
// The split is on the first delimiter so the value may contain delimiters
// but the key can't.
func ParseRecord(line string) (string, string, error) {
	key, value, ok := strings.Cut(line, string(Delim))
	if !ok {
		return "", "", fmt.Errorf("%w: no delimiter in '%s'", ErrCorruptRecord, line)
	}
	if key == "" {
		return "", "", fmt.Errorf("%w: empty key in '%s'", ErrCorruptRecord, line)
	}
	return key, value, nil
}

// ParseFile returns an iterator over records in the file at path, in file order.
// A missing file yields no records.
// Call the returned error function after iteration to check for errors.
func ParseFile(path string) (iter.Seq[Entry], func() error) {
	var iterErr error

	seq := func(yield func(Entry) bool) {
		file, err := os.Open(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return
			}
			iterErr = fmt.Errorf("%w: %w", ErrIO, err)
			return
		}
		defer file.Close()

		reader := bufio.NewReader(file)
		var currentOffset int64
		for {
			line, err := reader.ReadString(Term)
			if err == io.EOF {
				if line == "" {
					return
				}
				// a record without terminator is a torn write
				iterErr = fmt.Errorf("%w: unterminated record at offset %d", ErrCorruptRecord, currentOffset)
				return
			} else if err != nil {
				iterErr = fmt.Errorf("%w: reading '%s': %w", ErrIO, path, err)
				return
			}

			size := int64(len(line))
			key, value, err := ParseRecord(line[:len(line)-termLen])
			if err != nil {
				iterErr = fmt.Errorf("record at offset %d: %w", currentOffset, err)
				return
			}
			e := Entry{
				Key:    key,
				Value:  value,
				Offset: currentOffset,
				Size:   size,
			}
			currentOffset += size
			if !yield(e) {
				return
			}
		}
	}

	return seq, func() error { return iterErr }
}

// Replay builds an index from the records in the file at path.
// Returns the index and number of records read.
func Replay(path string) (*Index, int, error) {
	idx := NewIndex()
	n := 0
	entries, errFn := ParseFile(path)
	for e := range entries {
		if _, err := idx.Record(e.Key, e.Size); err != nil {
			return nil, n, fmt.Errorf("record at offset %d: %w", e.Offset, err)
		}
		n++
	}
	if err := errFn(); err != nil {
		return nil, n, err
	}
	return idx, n, nil
}
