package backup

import (
	"errors"
	"os"
	"path/filepath"
)

var errCancelled = errors.New("cancelled")

// atomicWriter writes to a temporary file in the destination directory
// and renames it to the destination on Close.
// If anything fails, the temporary file is removed and the destination
// is left untouched.
type atomicWriter struct {
	dstPath string
	dir     string
	tmp     *os.File
	err     error
}

func newAtomicWriter(path string) (*atomicWriter, error) {
	dir, name := filepath.Split(path)
	if name == "" {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrInvalid}
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err = os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp(dir, name+".tmp-*")
	if err != nil {
		return nil, err
	}
	return &atomicWriter{
		dstPath: path,
		dir:     dir,
		tmp:     tmp,
	}, nil
}

func (w *atomicWriter) Write(d []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	n, err := w.tmp.Write(d)
	if err != nil {
		w.err = err
		_ = w.Close()
	}
	return n, err
}

// Cancel removes the temporary file unless Close already happened.
// Safe to defer.
func (w *atomicWriter) Cancel() {
	if w.tmp == nil {
		return
	}
	w.err = errCancelled
	_ = w.Close()
}

// Close syncs and renames the temporary file to destination.
// Can be called multiple times, returns the first error.
func (w *atomicWriter) Close() error {
	if w.tmp == nil {
		return w.err
	}
	tmp := w.tmp
	w.tmp = nil
	tmpPath := tmp.Name()

	errSync := tmp.Sync()
	errClose := tmp.Close()
	err := w.err
	if err == nil {
		err = errors.Join(errSync, errClose)
	}
	if err == nil {
		err = os.Rename(tmpPath, w.dstPath)
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		if w.err == nil {
			w.err = err
		}
		return w.err
	}

	if d, _ := os.Open(w.dir); d != nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
