package bootstrap

import (
	"errors"
	"fmt"

	"github.com/eahydra/gotftp/wire"
)

// ErrHandshakeTimeout is returned when no reply arrives before the
// handshake watchdog (local-origin) or the OACK retransmit schedule
// (remote-origin) runs out. No ERROR packet is sent on the wire for this
// case; the transport is simply torn down.
var ErrHandshakeTimeout = errors.New("bootstrap: handshake timed out")

// RequestRejectedError is returned by a LocalOriginReadSession/
// LocalOriginWriteSession when the peer answers our RRQ/WRQ with an ERROR
// before the handshake completes: the request itself was refused (file
// not found, access violation, ...), as opposed to an ERROR received
// mid-transfer, which RFC 1350 treats as a silent abort (see
// session.WriteSession/ReadSession.HandleError).
type RequestRejectedError struct {
	Code    wire.ErrorCode
	Message string
}

func (e *RequestRejectedError) Error() string {
	return fmt.Sprintf("bootstrap: request rejected: %s (code %d)", e.Message, e.Code)
}
