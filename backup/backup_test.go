package backup

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-faker/faker/v4"
	"github.com/kjk/kvlog/kvstore"
	"github.com/kjk/kvlog/require"
	"github.com/kjk/kvlog/segments"
)

func writeStore(t *testing.T, dir string) *kvstore.Store {
	s, err := kvstore.Open(filepath.Join(dir, "store.txt"))
	require.NoError(t, err)
	for i := 0; i < 200; i++ {
		key := faker.Word()
		require.NoError(t, s.Set(key, faker.Word()+" "+faker.Word()))
	}
	return s
}

func assertNoTmpFiles(t *testing.T, dir string) {
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		require.False(t, strings.Contains(e.Name(), ".tmp-"), "leftover temp file %s", e.Name())
	}
}

func TestCompressionFromPath(t *testing.T) {
	tests := []struct {
		path string
		exp  Compression
	}{
		{"a/store.txt.zst", Zstd},
		{"store.ZSTD", Zstd},
		{"store.br", Brotli},
		{"store.gz", Gzip},
		{"store.txt", None},
		{"store", None},
	}
	for _, test := range tests {
		require.Equal(t, test.exp, CompressionFromPath(test.path), "path: %s", test.path)
	}
	require.Equal(t, "zstd", Zstd.String())
	require.Equal(t, "none", None.String())
}

func TestToFileRoundtrip(t *testing.T) {
	dir := t.TempDir()
	s := writeStore(t, dir)
	orig, err := os.ReadFile(s.FilePath())
	require.NoError(t, err)

	for _, ext := range []string{".bak", ".zst", ".zstd", ".br", ".gz"} {
		backupDir := filepath.Join(dir, "backups")
		dst := filepath.Join(backupDir, "store"+ext)
		require.NoError(t, ToFile(dst, s.FilePath()))

		d, err := ReadFile(dst)
		require.NoError(t, err)
		require.Equal(t, string(orig), string(d), "ext: %s", ext)
		assertNoTmpFiles(t, backupDir)

		if ext != ".bak" {
			compressed, err := os.ReadFile(dst)
			require.NoError(t, err)
			require.NotEqual(t, string(orig), string(compressed))
		}
	}
}

func TestToFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	err := ToFile(filepath.Join(dir, "out.zst"), filepath.Join(dir, "missing.txt"))
	require.True(t, errors.Is(err, os.ErrNotExist))
	_, err = os.Stat(filepath.Join(dir, "out.zst"))
	require.True(t, os.IsNotExist(err))
}

func TestRestore(t *testing.T) {
	dir := t.TempDir()
	s := writeStore(t, dir)
	bak := filepath.Join(dir, "store.txt.zst")
	require.NoError(t, ToFile(bak, s.FilePath()))

	dst := filepath.Join(dir, "restored", "store.txt")
	require.NoError(t, Restore(dst, bak))

	s2, err := kvstore.Open(dst)
	require.NoError(t, err)
	require.Equal(t, s.Index(), s2.Index())
	for _, k := range s.Keys() {
		v1, _, err := s.Get(k)
		require.NoError(t, err)
		v2, ok, err := s2.Get(k)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, v1, v2)
	}

	// doesn't overwrite
	err = Restore(s.FilePath(), bak)
	require.ErrorIs(t, err, os.ErrExist)
}

func TestAtomicWriterCancel(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "out.txt")
	w, err := newAtomicWriter(dst)
	require.NoError(t, err)
	_, err = w.Write([]byte("partial"))
	require.NoError(t, err)
	w.Cancel()

	require.ErrorIs(t, w.Close(), errCancelled)
	_, err = os.Stat(dst)
	require.True(t, os.IsNotExist(err))
	assertNoTmpFiles(t, dir)

	// Close after Close is a no-op
	w, err = newAtomicWriter(dst)
	require.NoError(t, err)
	_, err = w.Write([]byte("full"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	w.Cancel()
	d, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "full", string(d))
}

func TestDidRollToDir(t *testing.T) {
	dir := t.TempDir()
	backupDir := filepath.Join(dir, "backups")
	m := &segments.Manager{
		Dir:     filepath.Join(dir, "segments"),
		DidRoll: DidRollToDir(backupDir, ".gz"),
	}
	require.NoError(t, segments.OpenManager(m))
	require.NoError(t, m.Set("k", "v1"))
	require.NoError(t, m.Roll())

	sealed := m.Segments()[1]
	d, err := ReadFile(filepath.Join(backupDir, filepath.Base(sealed)+".gz"))
	require.NoError(t, err)
	require.Equal(t, "k,v1\n", string(d))
}

func TestConfigValidation(t *testing.T) {
	_, err := NewS3(nil)
	require.Error(t, err)
	_, err = NewS3(&S3Config{Access: "a", Secret: "s", Endpoint: "localhost:9000"})
	require.Error(t, err)

	_, err = NewSFTP(nil)
	require.Error(t, err)
	_, err = NewSFTP(&SFTPConfig{User: "root", Host: "example.com"})
	require.Error(t, err)
}
