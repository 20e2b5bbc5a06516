package session

import (
	"context"
	"net"

	"github.com/eahydra/gotftp/store"
	"github.com/eahydra/gotftp/wire"
)

// WriteSession drives a file upload: the local end acknowledges each DATA
// block the peer sends, in order, and flushes the backing writer once a
// short final block arrives.
type WriteSession struct {
	core
	writer store.Writer

	expected uint16 // next block number we're awaiting; starts at 1
}

// NewWriteSession constructs a WriteSession bound to remoteAddr, sending
// ACKs over transport and appending blocks to writer. Block 0 (the
// WRQ/OACK handshake ACK) is the bootstrap layer's responsibility; this
// session begins awaiting DATA(1).
func NewWriteSession(transport Transport, remoteAddr net.Addr, writer store.Writer) *WriteSession {
	return &WriteSession{
		core:     newCore(transport, remoteAddr),
		writer:   writer,
		expected: 1,
	}
}

// HandleDATA processes an incoming DATA packet. The returned bool reports
// whether the session reached a terminal state.
func (s *WriteSession) HandleDATA(ctx context.Context, dq *wire.DATA) (bool, error) {
	if s.completed {
		return true, s.err
	}

	switch {
	case dq.Block == s.expected:
		return s.acceptBlock(ctx, dq)
	case dq.Block == s.expected-1:
		// Duplicate of the already-acked block: resend the ACK without
		// re-invoking the writer (sorcerer's-apprentice avoidance).
		if err := s.core.send(&wire.ACK{Block: dq.Block}); err != nil {
			s.terminate(err)
			return true, err
		}
		return false, nil
	default:
		// Unknown block number: silently dropped.
		return false, nil
	}
}

// SetTSize overrides core.SetTSize to also forward the hint to the writer
// immediately. The bootstrap layer is responsible for calling this at the
// right moment (first DATA arrival for a remote/local write-role session),
// not any earlier.
func (s *WriteSession) SetTSize(n *uint64) {
	s.core.SetTSize(n)
	if n != nil {
		s.writer.SetSize(*n)
	}
}

func (s *WriteSession) acceptBlock(ctx context.Context, dq *wire.DATA) (bool, error) {
	if err := s.writer.WriteBlock(ctx, uint32(dq.Block), dq.Payload); err != nil {
		s.core.send(wire.NewError(errorCodeFor(err), err.Error()))
		s.terminate(err)
		return true, err
	}
	s.started = true
	s.resetAttempts()
	s.lastBlock = dq.Block

	if err := s.core.send(&wire.ACK{Block: dq.Block}); err != nil {
		s.terminate(err)
		return true, err
	}

	if len(dq.Payload) < int(s.blockSize) {
		if err := s.writer.Finish(ctx); err != nil {
			s.terminate(err)
			return true, err
		}
		s.terminate(nil)
		return true, nil
	}
	s.expected++ // wraps modulo 2^16 for uint16
	return false, nil
}

// HandleError terminates the session silently on receipt of any ERROR
// packet from the peer, per RFC 1350.
func (s *WriteSession) HandleError(e *wire.ERROR) (bool, error) {
	s.terminate(nil)
	return true, nil
}

// Cancel tears down the session: discards partial writer state. Idempotent.
func (s *WriteSession) Cancel() error {
	if s.completed {
		return nil
	}
	s.terminate(nil)
	return s.writer.Cancel()
}
