// Package fsstore implements store.Reader and store.Writer over an
// *os.File, the concrete backing a tftpd server hands to the bootstrap
// layer. Blocks are addressed with ReadAt/WriteAt by block number and
// block size rather than by a running Read/Write cursor, so a retried or
// out-of-order block (the peer re-sends DATA(n) because our ACK was lost)
// lands at the same file offset instead of appending garbage.
package fsstore

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"syscall"

	"github.com/eahydra/gotftp/store"
)

// Reader serves RRQ downloads from an already-opened, read-only file.
type Reader struct {
	file *os.File
	size int64
}

// Open opens name for reading and wraps it as a store.Reader. The file's
// size is stat'd eagerly so Size never has to touch the filesystem again.
func Open(name string) (*Reader, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, translateOpenErr(err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &Reader{file: f, size: fi.Size()}, nil
}

// ReadBlock implements store.Reader: the n-th block (1-indexed) of at most
// size bytes, read directly at its file offset.
func (r *Reader) ReadBlock(ctx context.Context, n uint32, size int) ([]byte, error) {
	offset := int64(n-1) * int64(size)
	buf := make([]byte, size)
	read, err := r.file.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return buf[:read], nil
}

// Size implements store.Reader, reporting the size stat'd at Open.
func (r *Reader) Size(ctx context.Context) (uint64, bool, error) {
	return uint64(r.size), true, nil
}

// Close implements store.Reader.
func (r *Reader) Close() error { return r.file.Close() }

// Writer serves WRQ uploads into a freshly-created file.
type Writer struct {
	file      *os.File
	name      string
	blockSize int
}

// Create opens name for writing, failing if it already exists (TFTP WRQ
// does not overwrite by default; the caller maps store.ErrFileExists to
// ERROR code 6).
func Create(name string) (*Writer, error) {
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, translateCreateErr(err)
	}
	return &Writer{file: f, name: name}, nil
}

// SetSize implements store.Writer. Truncate is a preallocation hint only:
// failure is not fatal, since not every filesystem supports sparse
// preallocation and the transfer can proceed without it.
func (w *Writer) SetSize(n uint64) {
	_ = w.file.Truncate(int64(n))
}

// WriteBlock implements store.Writer. The block size for this transfer is
// latched from the first call's payload length, since the session never
// passes it explicitly; every block but the last arrives at that width.
func (w *Writer) WriteBlock(ctx context.Context, n uint32, p []byte) error {
	if w.blockSize == 0 && len(p) > 0 {
		w.blockSize = len(p)
	}
	if w.blockSize == 0 {
		return nil
	}
	offset := int64(n-1) * int64(w.blockSize)
	_, err := w.file.WriteAt(p, offset)
	if err != nil {
		return translateWriteErr(err)
	}
	return nil
}

// Finish implements store.Writer.
func (w *Writer) Finish(ctx context.Context) error {
	return w.file.Close()
}

// Cancel implements store.Writer: closes and removes the partial file.
func (w *Writer) Cancel() error {
	w.file.Close()
	return os.Remove(w.name)
}

func translateOpenErr(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return store.ErrFileNotFound
	case errors.Is(err, fs.ErrPermission):
		return store.ErrAccessViolation
	default:
		return err
	}
}

func translateCreateErr(err error) error {
	switch {
	case errors.Is(err, fs.ErrExist):
		return store.ErrFileExists
	case errors.Is(err, fs.ErrPermission):
		return store.ErrAccessViolation
	default:
		return err
	}
}

func translateWriteErr(err error) error {
	switch {
	case errors.Is(err, syscall.ENOSPC):
		return store.ErrDiskFull
	case errors.Is(err, fs.ErrPermission):
		return store.ErrAccessViolation
	default:
		return err
	}
}
