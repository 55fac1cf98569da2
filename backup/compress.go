package backup

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression is the kind of compression applied to a backup file
type Compression int

const (
	None Compression = iota
	Zstd
	Brotli
	Gzip
)

func (c Compression) String() string {
	switch c {
	case Zstd:
		return "zstd"
	case Brotli:
		return "brotli"
	case Gzip:
		return "gzip"
	}
	return "none"
}

// CompressionFromPath picks compression based on file extension:
// .zst or .zstd is zstd, .br is brotli, .gz is gzip, anything else is none
func CompressionFromPath(path string) Compression {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".zst", ".zstd":
		return Zstd
	case ".br":
		return Brotli
	case ".gz":
		return Gzip
	}
	return None
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error {
	return nil
}

// newCompressWriter wraps w. Closing the returned writer flushes
// compressed data but doesn't close w.
func newCompressWriter(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case Zstd:
		// zstd.SpeedBestCompression is much slower and not much smaller
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	case Brotli:
		return brotli.NewWriterLevel(w, brotli.DefaultCompression), nil
	case Gzip:
		return gzip.NewWriterLevel(w, gzip.BestCompression)
	}
	return nopWriteCloser{w}, nil
}

// readerWrappedFile reads from r and on Close releases the decompressor
// and closes the file
type readerWrappedFile struct {
	f       *os.File
	r       io.Reader
	release func()
}

func (rc *readerWrappedFile) Read(p []byte) (int, error) {
	return rc.r.Read(p)
}

func (rc *readerWrappedFile) Close() error {
	if rc.release != nil {
		rc.release()
	}
	return rc.f.Close()
}

// Open opens a backup file for reading, decompressing based on
// file extension
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	switch CompressionFromPath(path) {
	case Zstd:
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return &readerWrappedFile{f: f, r: zr, release: zr.Close}, nil
	case Brotli:
		return &readerWrappedFile{f: f, r: brotli.NewReader(f)}, nil
	case Gzip:
		gr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return &readerWrappedFile{f: f, r: gr, release: func() { _ = gr.Close() }}, nil
	}
	return f, nil
}

// ReadFile reads and decompresses the whole backup file
func ReadFile(path string) ([]byte, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
