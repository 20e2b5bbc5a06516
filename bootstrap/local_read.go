package bootstrap

import (
	"context"
	"net"
	"time"

	"github.com/eahydra/gotftp/session"
	"github.com/eahydra/gotftp/store"
	"github.com/eahydra/gotftp/wire"
)

// LocalOriginReadSession drives the reply to a WRQ we send ourselves: we're
// uploading, so the local role is to read the backing store and send DATA.
// The peer ACKs our WRQ with either an OACK (options) or a plain ACK(0);
// either way, we then send DATA(1) ourselves. A read-role session must
// know its block size before it can produce anything, so unlike the write
// side, accepted options are applied the moment the OACK arrives.
type LocalOriginReadSession struct {
	transport  Transport
	remoteAddr net.Addr
	session    *session.ReadSession

	filename  string
	mode      string
	requested *wire.Options

	tidLocked      bool
	established    bool
	handshakeDelay time.Duration
}

// NewLocalOriginReadSession constructs the handshake driver for a
// locally-initiated upload of filename.
func NewLocalOriginReadSession(transport Transport, remoteAddr net.Addr, reader store.Reader, filename, mode string, requested *wire.Options) *LocalOriginReadSession {
	sess := session.NewReadSession(transport, remoteAddr, reader)
	return &LocalOriginReadSession{
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
func (s *LocalOriginReadSession) Session() *session.ReadSession { return s.session }

// Established reports whether the handshake is complete.
func (s *LocalOriginReadSession) Established() bool { return s.established }

// StartProtocol sends the WRQ.
func (s *LocalOriginReadSession) StartProtocol(ctx context.Context) error {
	wrq := &wire.WRQ{Filename: s.filename, Mode: s.mode, Options: s.requested}
	_, err := s.transport.WriteTo(wire.Encode(wrq), s.remoteAddr)
	return err
}

// NextTimeout returns the delay the caller should arm its read deadline
// for: the handshake watchdog span before establishment, the session's own
// per-block schedule afterward.
func (s *LocalOriginReadSession) NextTimeout() time.Duration {
	if !s.established {
		return s.handshakeDelay
	}
	return s.session.NextTimeout()
}

// HandleTimeout gives up before establishment; afterward it delegates to
// the session's own retransmission schedule.
func (s *LocalOriginReadSession) HandleTimeout(ctx context.Context) (bool, error) {
	if !s.established {
		s.transport.Close()
		return true, ErrHandshakeTimeout
	}
	return s.session.HandleTimeout(ctx)
}

// DatagramReceived routes an inbound packet. The very first reply we see,
// of any kind, fixes the TID: RFC 1350 has the server answer our WRQ from a
// fresh ephemeral port of its own choosing, which becomes its TID for the
// rest of the transfer. Every datagram after that is checked against it.
func (s *LocalOriginReadSession) DatagramReceived(ctx context.Context, addr net.Addr, p wire.Packet) (bool, error) {
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
		case *wire.ACK:
			return s.session.HandleACK(ctx, pkt)
		case *wire.ERROR:
			return s.session.HandleError(pkt)
		default:
			return false, nil
		}
	}

	switch pkt := p.(type) {
	case *wire.OACK:
		ApplyOptions(s.session, pkt.Options)
		s.established = true
		return false, s.session.Start(ctx)
	case *wire.ACK:
		if pkt.Block != 0 {
			return false, nil
		}
		s.established = true
		return false, s.session.Start(ctx)
	case *wire.ERROR:
		return true, &RequestRejectedError{Code: pkt.Code, Message: pkt.Message}
	default:
		return false, nil
	}
}

// Cancel tears down the session before completion.
func (s *LocalOriginReadSession) Cancel() error {
	return s.session.Cancel()
}
