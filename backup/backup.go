package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/kjk/kvlog/log"
)

// ToFile writes a copy of srcPath to dstPath, compressed based on
// the extension of dstPath (see CompressionFromPath).
// dstPath only appears once fully written.
func ToFile(dstPath string, srcPath string) error {
	timeStart := time.Now()
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	aw, err := newAtomicWriter(dstPath)
	if err != nil {
		return err
	}
	defer aw.Cancel()

	c := CompressionFromPath(dstPath)
	cw, err := newCompressWriter(aw, c)
	if err != nil {
		return err
	}
	n, err := io.Copy(cw, src)
	if err != nil {
		return fmt.Errorf("backup of '%s' failed: %w", srcPath, err)
	}
	if err = cw.Close(); err != nil {
		return err
	}
	if err = aw.Close(); err != nil {
		return err
	}

	dur := time.Since(timeStart)
	log.Verbosef("backup: '%s' => '%s' (%s, %d bytes) in %s\n", srcPath, dstPath, c, n, dur)
	log.EventWithDuration("backup_to_file", dur, "src", srcPath, "dst", dstPath, "size", n, "compression", c.String())
	return nil
}

// Restore decompresses backupPath into dstPath.
// It refuses to overwrite dstPath and returns an error wrapping
// os.ErrExist if it exists.
func Restore(dstPath string, backupPath string) error {
	if _, err := os.Lstat(dstPath); err == nil {
		return fmt.Errorf("restore to '%s': %w", dstPath, os.ErrExist)
	}
	r, err := Open(backupPath)
	if err != nil {
		return err
	}
	defer r.Close()

	aw, err := newAtomicWriter(dstPath)
	if err != nil {
		return err
	}
	defer aw.Cancel()
	n, err := io.Copy(aw, r)
	if err != nil {
		return fmt.Errorf("restore of '%s' failed: %w", backupPath, err)
	}
	if err = aw.Close(); err != nil {
		return err
	}
	log.Verbosef("backup: restored '%s' => '%s' (%d bytes)\n", backupPath, dstPath, n)
	log.Event("backup_restore", "src", backupPath, "dst", dstPath, "size", n)
	return nil
}

// DidRollToDir returns a function for segments.Manager.DidRoll
// that backs up every sealed segment to dir, appending ext
// (e.g. ".zst") to the segment file name.
// Errors are logged.
func DidRollToDir(dir string, ext string) func(path string) {
	return func(path string) {
		dst := filepath.Join(dir, filepath.Base(path)+ext)
		if err := ToFile(dst, path); err != nil {
			log.Errorf("backup of sealed segment '%s' failed: %s\n", path, err)
		}
	}
}
