package gotftp

import (
	"context"
	"net"

	"github.com/eahydra/gotftp/bootstrap"
	"github.com/eahydra/gotftp/store"
	"github.com/eahydra/gotftp/wire"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// Client drives locally-initiated transfers against a single remote TFTP
// endpoint: Get for downloads, Put for uploads. Each call binds its own
// ephemeral socket and runs its own single-goroutine reactor loop to
// completion, the client-side mirror of Server.runSession.
type Client struct {
	remoteAddr net.Addr
	clock      clockwork.Clock
	log        *logrus.Entry
}

// NewClient resolves addr as the remote tftpd to talk to. clock and log may
// be nil to use the package defaults.
func NewClient(addr string, clock clockwork.Clock, log *logrus.Entry) (*Client, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Client{remoteAddr: raddr, clock: clock, log: loggerOrDefault(log)}, nil
}

// Get downloads filename from the server into w, sending requested (which
// may be nil) as the RRQ's negotiated options.
func (c *Client) Get(ctx context.Context, filename string, w store.Writer, requested *wire.Options) error {
	conn, err := net.ListenPacket("udp", ":0")
	if err != nil {
		return err
	}
	sess := bootstrap.NewLocalOriginWriteSession(conn, c.remoteAddr, w, filename, wire.ModeOctet, requested)
	return c.drive(ctx, conn, sess)
}

// Put uploads filename to the server, reading its content from r.
func (c *Client) Put(ctx context.Context, filename string, r store.Reader, requested *wire.Options) error {
	conn, err := net.ListenPacket("udp", ":0")
	if err != nil {
		return err
	}
	sess := bootstrap.NewLocalOriginReadSession(conn, c.remoteAddr, r, filename, wire.ModeOctet, requested)
	return c.drive(ctx, conn, sess)
}

func (c *Client) drive(ctx context.Context, conn net.PacketConn, sess bootstrap.Session) error {
	defer conn.Close()
	log := c.log.WithField("remote_addr", c.remoteAddr)

	if err := sess.StartProtocol(ctx); err != nil {
		return err
	}

	buf := make([]byte, 65536)
	for {
		conn.SetReadDeadline(c.clock.Now().Add(sess.NextTimeout()))
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				terminal, herr := sess.HandleTimeout(ctx)
				if terminal {
					return herr
				}
				continue
			}
			return err
		}

		pkt, err := wire.Decode(buf[:n])
		if err != nil {
			log.WithError(err).Debug("dropped malformed datagram")
			continue
		}

		terminal, err := sess.DatagramReceived(ctx, addr, pkt)
		if terminal {
			return err
		}
	}
}
