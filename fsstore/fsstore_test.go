package fsstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/eahydra/gotftp/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderReadBlock(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "src.bin")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0644))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	size, ok, err := r.Size(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(10), size)

	b1, err := r.ReadBlock(context.Background(), 1, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte("0123"), b1)

	b3, err := r.ReadBlock(context.Background(), 3, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte("89"), b3, "last block is shorter than the block size")

	b4, err := r.ReadBlock(context.Background(), 4, 4)
	require.NoError(t, err)
	assert.Empty(t, b4, "reading past the end of the file yields an empty final block")
}

func TestReaderOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.bin"))
	assert.ErrorIs(t, err, store.ErrFileNotFound)
}

func TestWriterWriteBlockIdempotentOnRetry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dst.bin")

	w, err := Create(path)
	require.NoError(t, err)

	require.NoError(t, w.WriteBlock(context.Background(), 1, []byte("abcd")))
	// A retried block 1 (peer never saw our ACK) must land at the same
	// offset, not append.
	require.NoError(t, w.WriteBlock(context.Background(), 1, []byte("abcd")))
	require.NoError(t, w.WriteBlock(context.Background(), 2, []byte("ef")))
	require.NoError(t, w.Finish(context.Background()))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("abcdef"), got)
}

func TestWriterCreateExistingFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dst.bin")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	_, err := Create(path)
	assert.ErrorIs(t, err, store.ErrFileExists)
}

func TestWriterCancelRemovesPartialFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dst.bin")

	w, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteBlock(context.Background(), 1, []byte("partial")))
	require.NoError(t, w.Cancel())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
