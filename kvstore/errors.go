package kvstore

import "errors"

var (
	// ErrInvalidKey is returned when an empty key is passed to Set or Index.Record
	ErrInvalidKey = errors.New("invalid key")

	// ErrCorruptRecord is returned by OpenStore when a line in the store file
	// can't be parsed as a record
	ErrCorruptRecord = errors.New("corrupt record")

	// ErrInvalidRecord is returned by Index.Record when the record length is
	// too short to hold the key, the delimiter and the terminator
	ErrInvalidRecord = errors.New("invalid record length")

	// ErrIO wraps failures of the underlying file operations
	ErrIO = errors.New("i/o failure")

	// ErrDecode is returned by Get when the bytes at an index location are not
	// valid UTF-8. It means the index and the file disagree.
	ErrDecode = errors.New("value is not valid utf-8")

	// ErrOutOfSync is returned by Set when the file size doesn't match the
	// index cursor i.e. something other than this Store wrote to the file
	ErrOutOfSync = errors.New("store file size doesn't match index")
)
