package bootstrap

import (
	"net"

	"github.com/eahydra/gotftp/session"
	"github.com/eahydra/gotftp/wire"
)

// checkTID reports whether addr matches the TID a transfer was bound to at
// handshake time. A datagram from any other source is answered with
// ERROR(5) to its own address without disturbing session state, per RFC
// 1350 §4.
func checkTID(transport session.Transport, bound, addr net.Addr) bool {
	if addr.String() == bound.String() {
		return true
	}
	transport.WriteTo(wire.Encode(wire.NewError(wire.ErrCodeUnknownTransferID, "")), addr)
	return false
}
