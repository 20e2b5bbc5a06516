// Package bootstrap drives the four shapes a TFTP transfer's handshake can
// take (local- or remote-origin, reading or writing locally), sitting
// between the raw wire codec and a session's lock-step state machine. It
// owns option negotiation, the handshake watchdog, TID validation, and the
// timing of when negotiated options become live on the session underneath.
package bootstrap

import (
	"context"
	"net"
	"time"

	"github.com/eahydra/gotftp/session"
	"github.com/eahydra/gotftp/wire"
)

// Transport is the datagram surface a bootstrap session needs: sessions
// only need WriteTo, but the handshake layer additionally needs to close
// the underlying socket once a transfer concludes or a watchdog fires.
type Transport interface {
	session.Transport
	Close() error
	LocalAddr() net.Addr
}

// Session is the shape all four bootstrap session kinds share, letting a
// driver loop (gotftp.Server/gotftp.Client) treat them uniformly: arm a
// read deadline off NextTimeout, call HandleTimeout when it fires, and feed
// every inbound datagram addressed to this transfer through
// DatagramReceived. Neither this interface nor any implementation owns a
// clock or a goroutine; the driver supplies both.
type Session interface {
	// StartProtocol sends the initial packet (RRQ/WRQ for a local-origin
	// session; OACK or ACK(0) for a remote-origin one).
	StartProtocol(ctx context.Context) error

	// NextTimeout reports how long the driver should wait before calling
	// HandleTimeout, measured from the moment the prior packet was sent.
	NextTimeout() time.Duration

	// HandleTimeout is called when no datagram arrived within NextTimeout.
	// The returned bool reports whether the session reached a terminal state.
	HandleTimeout(ctx context.Context) (bool, error)

	// DatagramReceived routes one inbound packet that came from addr; the
	// implementation checks addr against the transfer's TID itself. The
	// returned bool reports whether the session reached a terminal state.
	DatagramReceived(ctx context.Context, addr net.Addr, p wire.Packet) (bool, error)

	// Cancel tears the session down before natural completion.
	Cancel() error
}
