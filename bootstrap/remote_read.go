package bootstrap

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/eahydra/gotftp/session"
	"github.com/eahydra/gotftp/store"
	"github.com/eahydra/gotftp/wire"
)

// RemoteOriginReadSession handles a peer-sent RRQ: the peer wants to
// download, so the local role is to read the backing store and send DATA.
// If the RRQ carried options, an OACK is sent and retransmitted until the
// peer's ACK(0) arrives; accepted options are applied to the session
// before the first DATA goes out, since a read-role session must know its
// block size before it can produce anything.
type RemoteOriginReadSession struct {
	transport  Transport
	remoteAddr net.Addr
	session    *session.ReadSession

	accepted    *wire.Options
	rt          *retransmitter
	established bool
}

// NewRemoteOriginReadSession constructs the handshake driver for a
// peer-initiated read. requested is the option set from the RRQ, or nil/
// empty if the peer sent none.
func NewRemoteOriginReadSession(transport Transport, remoteAddr net.Addr, reader store.Reader, requested *wire.Options) *RemoteOriginReadSession {
	sess := session.NewReadSession(transport, remoteAddr, reader)
	return &RemoteOriginReadSession{
		transport:  transport,
		remoteAddr: remoteAddr,
		session:    sess,
		accepted:   ProcessOptions(requested),
		rt:         newRetransmitter(sess.Timeout()),
	}
}

// Session returns the underlying session, for the caller's post-handshake
// event loop (ACK/ERROR/timeout dispatch once established).
func (s *RemoteOriginReadSession) Session() *session.ReadSession { return s.session }

// Established reports whether the handshake is complete and subsequent
// datagrams should be routed straight to Session().
func (s *RemoteOriginReadSession) Established() bool { return s.established }

// StartProtocol begins the handshake: sends the first OACK if options were
// negotiated, or starts the transfer directly if not.
func (s *RemoteOriginReadSession) StartProtocol(ctx context.Context) error {
	if v, ok := s.accepted.Get("tsize"); ok && v == "0" {
		// RFC 2349: a read request with tsize=0 is asking us to report the
		// file's actual size in the OACK, not echo the literal zero back.
		if sz, known, err := s.session.ReaderSize(ctx); err == nil && known {
			s.accepted.Set("tsize", strconv.FormatUint(sz, 10))
		}
	}

	if s.accepted.Len() == 0 {
		s.established = true
		return s.session.Start(ctx)
	}
	ApplyOptions(s.session, s.accepted)
	return s.sendOACK()
}

func (s *RemoteOriginReadSession) sendOACK() error {
	_, err := s.transport.WriteTo(wire.Encode(&wire.OACK{Options: s.accepted}), s.remoteAddr)
	return err
}

// NextTimeout returns the delay the caller should arm its timer for.
func (s *RemoteOriginReadSession) NextTimeout() time.Duration {
	if s.established {
		return s.session.NextTimeout()
	}
	return s.rt.currentDelay()
}

// HandleTimeout retransmits the outstanding OACK, or gives up once the
// schedule is exhausted.
func (s *RemoteOriginReadSession) HandleTimeout(ctx context.Context) (bool, error) {
	if s.established {
		return s.session.HandleTimeout(ctx)
	}
	s.rt.expire()
	if s.rt.exhausted() {
		s.transport.Close()
		return true, ErrHandshakeTimeout
	}
	if err := s.sendOACK(); err != nil {
		return true, err
	}
	return false, nil
}

// DatagramReceived routes an inbound packet: TID-guarded, handshake-aware.
func (s *RemoteOriginReadSession) DatagramReceived(ctx context.Context, addr net.Addr, p wire.Packet) (bool, error) {
	if !checkTID(s.transport, s.remoteAddr, addr) {
		return false, nil
	}
	if s.established {
		switch pkt := p.(type) {
		case *wire.ACK:
			return s.session.HandleACK(ctx, pkt)
		case *wire.ERROR:
			return s.session.HandleError(pkt)
		default:
			return false, nil
		}
	}
	ack, ok := p.(*wire.ACK)
	if !ok || ack.Block != 0 {
		return false, nil
	}
	s.established = true
	return false, s.session.Start(ctx)
}

// Cancel tears down the session before completion.
func (s *RemoteOriginReadSession) Cancel() error {
	return s.session.Cancel()
}
