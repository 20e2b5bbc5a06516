package bootstrap

import (
	"context"
	"net"
	"time"

	"github.com/eahydra/gotftp/session"
	"github.com/eahydra/gotftp/store"
	"github.com/eahydra/gotftp/wire"
)

// LocalOriginWriteSession drives the reply to an RRQ we send ourselves:
// we're downloading, so the local role is to write received DATA to the
// backing store. We expect either an OACK (which we must ACK(0) ourselves
// to set the transfer moving) or the peer's first DATA directly (meaning
// it ignored our options). If neither arrives before the handshake
// deadline, HandleTimeout closes the transport and returns
// ErrHandshakeTimeout.
type LocalOriginWriteSession struct {
	transport  Transport
	remoteAddr net.Addr
	session    *session.WriteSession

	filename  string
	mode      string
	requested *wire.Options
	pending   *wire.Options // latched from the peer's OACK, applied on first DATA

	tidLocked      bool
	established    bool
	handshakeDelay time.Duration
}

// NewLocalOriginWriteSession constructs the handshake driver for a
// locally-initiated download of filename. requested is the option set to
// put in our RRQ, or nil/empty to request none.
func NewLocalOriginWriteSession(transport Transport, remoteAddr net.Addr, writer store.Writer, filename, mode string, requested *wire.Options) *LocalOriginWriteSession {
	sess := session.NewWriteSession(transport, remoteAddr, writer)
	return &LocalOriginWriteSession{
		transport:      transport,
		remoteAddr:     remoteAddr,
		session:        sess,
		filename:       filename,
		mode:           mode,
		requested:      requested,
		handshakeDelay: watchdogDuration(sess.Timeout()),
	}
}

// Session returns the underlying session.
func (s *LocalOriginWriteSession) Session() *session.WriteSession { return s.session }

// Established reports whether the handshake is complete.
func (s *LocalOriginWriteSession) Established() bool { return s.established }

// StartProtocol sends the RRQ.
func (s *LocalOriginWriteSession) StartProtocol(ctx context.Context) error {
	rrq := &wire.RRQ{Filename: s.filename, Mode: s.mode, Options: s.requested}
	_, err := s.transport.WriteTo(wire.Encode(rrq), s.remoteAddr)
	return err
}

// NextTimeout returns the delay the caller should arm its read deadline
// for: the handshake watchdog span before establishment, the session's own
// schedule afterward (though a WriteSession never times itself out).
func (s *LocalOriginWriteSession) NextTimeout() time.Duration {
	if !s.established {
		return s.handshakeDelay
	}
	return s.session.Timeout()[0]
}

// HandleTimeout gives up once the handshake deadline passes. Once
// established, a WriteSession never retransmits on its own, so this is a
// no-op.
func (s *LocalOriginWriteSession) HandleTimeout(ctx context.Context) (bool, error) {
	if s.established {
		return false, nil
	}
	s.transport.Close()
	return true, ErrHandshakeTimeout
}

// DatagramReceived routes an inbound packet. The very first reply we see,
// of any kind, fixes the TID: RFC 1350 has the server answer our RRQ from a
// fresh ephemeral port of its own choosing, which becomes its TID for the
// rest of the transfer. Every datagram after that is checked against it.
func (s *LocalOriginWriteSession) DatagramReceived(ctx context.Context, addr net.Addr, p wire.Packet) (bool, error) {
	if s.tidLocked {
		if !checkTID(s.transport, s.remoteAddr, addr) {
			return false, nil
		}
	} else {
		s.remoteAddr = addr
		s.session.SetRemoteAddr(addr)
		s.tidLocked = true
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

	switch pkt := p.(type) {
	case *wire.OACK:
		// Options are latched, but not applied yet - the server may
		// still retransmit a modified OACK before its first DATA shows
		// up.
		s.pending = pkt.Options
		_, err := s.transport.WriteTo(wire.Encode(&wire.ACK{Block: 0}), addr)
		return false, err
	case *wire.DATA:
		if pkt.Block != 1 {
			return false, nil
		}
		s.established = true
		if s.pending != nil {
			ApplyOptions(s.session, s.pending)
		}
		return s.session.HandleDATA(ctx, pkt)
	case *wire.ERROR:
		return true, &RequestRejectedError{Code: pkt.Code, Message: pkt.Message}
	default:
		return false, nil
	}
}

// Cancel tears down the session before completion.
func (s *LocalOriginWriteSession) Cancel() error {
	return s.session.Cancel()
}
