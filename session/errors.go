package session

import (
	"errors"

	"github.com/eahydra/gotftp/store"
	"github.com/eahydra/gotftp/wire"
)

// ErrTimeout is returned by HandleTimeout once the retransmission schedule
// is exhausted without progress. No ERROR packet is sent on the wire for a
// pure timeout; the session simply terminates.
var ErrTimeout = errors.New("session: retransmission schedule exhausted")

// errorCodeFor maps a backing-store error to the wire error code used to
// report it to the peer. Unrecognized errors map to ErrCodeNotDefined.
func errorCodeFor(err error) wire.ErrorCode {
	switch {
	case errors.Is(err, store.ErrFileNotFound):
		return wire.ErrCodeFileNotFound
	case errors.Is(err, store.ErrAccessViolation):
		return wire.ErrCodeAccessViolation
	case errors.Is(err, store.ErrDiskFull):
		return wire.ErrCodeDiskFull
	case errors.Is(err, store.ErrFileExists):
		return wire.ErrCodeFileAlreadyExists
	default:
		return wire.ErrCodeNotDefined
	}
}
