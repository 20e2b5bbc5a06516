// Package store defines the abstract backing-store interfaces a TFTP
// session reads from and writes to. Concrete adapters (such as fsstore)
// live outside this package; the session core only depends on these
// interfaces, never on a filesystem.
package store

import (
	"context"
	"errors"
)

// Sentinel errors translated to wire ERROR packets by the session layer.
var (
	// ErrFileNotFound maps to wire.ErrCodeFileNotFound.
	ErrFileNotFound = errors.New("store: file not found")
	// ErrAccessViolation maps to wire.ErrCodeAccessViolation.
	ErrAccessViolation = errors.New("store: access violation")
	// ErrDiskFull maps to wire.ErrCodeDiskFull.
	ErrDiskFull = errors.New("store: disk full or allocation exceeded")
	// ErrFileExists maps to wire.ErrCodeFileAlreadyExists.
	ErrFileExists = errors.New("store: file already exists")
)

// Reader is the backing store a ReadSession drives: it is the source of
// truth for the file being downloaded by the peer.
type Reader interface {
	// ReadBlock returns the n-th block (1-indexed) of at most size bytes.
	// Returning fewer bytes than size signals end of stream; the session
	// calls ReadBlock at most once per block number.
	ReadBlock(ctx context.Context, n uint32, size int) ([]byte, error)

	// Size reports the total size of the file, when known. ok is false if
	// the backing store cannot report a size cheaply.
	Size(ctx context.Context) (size uint64, ok bool, err error)

	// Close releases any resources held by the reader.
	Close() error
}

// Writer is the backing store a WriteSession drives: it is the destination
// for the file being uploaded by the peer.
type Writer interface {
	// WriteBlock appends the n-th block (1-indexed). The session calls
	// WriteBlock at most once per block number; a retried/duplicate block
	// is answered by the session without a second call.
	WriteBlock(ctx context.Context, n uint32, p []byte) error

	// SetSize records a tsize hint (the peer-declared total size) before
	// the first WriteBlock call, for preallocation. Absence of a call
	// means the size is unknown.
	SetSize(n uint64)

	// Finish flushes and closes the destination after the final block.
	Finish(ctx context.Context) error

	// Cancel discards partial state after an error or abort. Idempotent.
	Cancel() error
}
