package bootstrap

import (
	"context"
	"net"
	"time"

	"github.com/eahydra/gotftp/session"
	"github.com/eahydra/gotftp/store"
	"github.com/eahydra/gotftp/wire"
)

// RemoteOriginWriteSession handles a peer-sent WRQ: the peer wants to
// upload, so the local role is to write incoming DATA to the backing
// store. If the WRQ carried options, an OACK is sent and retransmitted
// until the peer's first DATA arrives; accepted options are applied to
// the session at that point, not before (see SPEC_FULL.md §4.4 - a
// write-role session's first productive moment coincides with its first
// DATA, and that is when its parameters should finally latch).
type RemoteOriginWriteSession struct {
	transport  Transport
	remoteAddr net.Addr
	session    *session.WriteSession

	accepted    *wire.Options
	rt          *retransmitter
	established bool
}

// NewRemoteOriginWriteSession constructs the handshake driver for a
// peer-initiated write.
func NewRemoteOriginWriteSession(transport Transport, remoteAddr net.Addr, writer store.Writer, requested *wire.Options) *RemoteOriginWriteSession {
	sess := session.NewWriteSession(transport, remoteAddr, writer)
	return &RemoteOriginWriteSession{
		transport:  transport,
		remoteAddr: remoteAddr,
		session:    sess,
		accepted:   ProcessOptions(requested),
		rt:         newRetransmitter(sess.Timeout()),
	}
}

// Session returns the underlying session, for the caller's post-handshake
// event loop.
func (s *RemoteOriginWriteSession) Session() *session.WriteSession { return s.session }

// Established reports whether the handshake is complete.
func (s *RemoteOriginWriteSession) Established() bool { return s.established }

// StartProtocol begins the handshake: sends ACK(0) directly if the WRQ
// carried no options, or an OACK otherwise.
func (s *RemoteOriginWriteSession) StartProtocol(ctx context.Context) error {
	if s.accepted.Len() == 0 {
		s.established = true
		_, err := s.transport.WriteTo(wire.Encode(&wire.ACK{Block: 0}), s.remoteAddr)
		return err
	}
	return s.sendOACK()
}

func (s *RemoteOriginWriteSession) sendOACK() error {
	_, err := s.transport.WriteTo(wire.Encode(&wire.OACK{Options: s.accepted}), s.remoteAddr)
	return err
}

// NextTimeout returns the delay the caller should arm its timer for.
func (s *RemoteOriginWriteSession) NextTimeout() time.Duration {
	if s.established {
		return s.session.Timeout()[0]
	}
	return s.rt.currentDelay()
}

// HandleTimeout retransmits the outstanding OACK. Once established, a
// WriteSession never retransmits on its own (it only ever ACKs what it's
// sent); a caller-side idle timeout covering the whole transfer, if any,
// is outside this layer's concern.
func (s *RemoteOriginWriteSession) HandleTimeout(ctx context.Context) (bool, error) {
	if s.established {
		return false, nil
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
func (s *RemoteOriginWriteSession) DatagramReceived(ctx context.Context, addr net.Addr, p wire.Packet) (bool, error) {
	if !checkTID(s.transport, s.remoteAddr, addr) {
		return false, nil
	}
	if s.established {
		switch pkt := p.(type) {
		case *wire.DATA:
			return s.session.HandleDATA(ctx, pkt)
		case *wire.ERROR:
			return s.session.HandleError(pkt)
		default:
			return false, nil
		}
	}
	data, ok := p.(*wire.DATA)
	if !ok || data.Block != 1 {
		return false, nil
	}
	s.established = true
	ApplyOptions(s.session, s.accepted)
	return s.session.HandleDATA(ctx, data)
}

// Cancel tears down the session before completion.
func (s *RemoteOriginWriteSession) Cancel() error {
	return s.session.Cancel()
}
