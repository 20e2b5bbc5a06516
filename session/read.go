package session

import (
	"context"
	"net"
	"time"

	"github.com/eahydra/gotftp/store"
	"github.com/eahydra/gotftp/wire"
)

// ReadSession drives a file download: the local end sends DATA blocks and
// waits for the peer to ACK each one before sending the next.
type ReadSession struct {
	core
	reader store.Reader

	block   uint16 // block currently outstanding
	payload []byte // last DATA payload sent, kept for retransmission
}

// NewReadSession constructs a ReadSession bound to remoteAddr, sending over
// transport and reading blocks from reader.
func NewReadSession(transport Transport, remoteAddr net.Addr, reader store.Reader) *ReadSession {
	return &ReadSession{
		core:   newCore(transport, remoteAddr),
		reader: reader,
	}
}

// Start fetches and sends block 1. The caller arms its retransmit timer
// from NextTimeout.
func (s *ReadSession) Start(ctx context.Context) error {
	s.block = 1
	return s.sendBlock(ctx, s.block)
}

func (s *ReadSession) sendBlock(ctx context.Context, n uint16) error {
	payload, err := s.reader.ReadBlock(ctx, uint32(n), int(s.blockSize))
	if err != nil {
		s.core.send(wire.NewError(errorCodeFor(err), err.Error()))
		s.terminate(err)
		return err
	}
	s.payload = payload
	if err := s.core.send(&wire.DATA{Block: n, Payload: payload}); err != nil {
		s.terminate(err)
		return err
	}
	return nil
}

// ReaderSize reports the backing reader's size, when known, for the
// bootstrap layer's RFC 2349 tsize negotiation (a read request's tsize=0
// asks the server to report the real size in its OACK).
func (s *ReadSession) ReaderSize(ctx context.Context) (uint64, bool, error) {
	return s.reader.Size(ctx)
}

// NextTimeout returns the retransmission delay for the current attempt.
func (s *ReadSession) NextTimeout() time.Duration { return s.currentTimeout() }

// HandleACK processes an incoming ACK. The returned bool reports whether
// the session reached a terminal state.
func (s *ReadSession) HandleACK(ctx context.Context, ack *wire.ACK) (bool, error) {
	if s.completed {
		return true, s.err
	}
	if ack.Block != s.block {
		// Duplicate ACK for the previous block, or a stray ACK for
		// neither the outstanding nor the previous block: ignored, the
		// retransmit timer is not reset (sorcerer's-apprentice avoidance).
		return false, nil
	}

	s.resetAttempts()
	s.started = true
	if len(s.payload) < int(s.blockSize) {
		s.terminate(nil)
		return true, nil
	}
	s.lastBlock = s.block
	s.block++ // wraps modulo 2^16 for uint16
	if err := s.sendBlock(ctx, s.block); err != nil {
		return true, err
	}
	return false, nil
}

// HandleError terminates the session silently on receipt of any ERROR
// packet from the peer, per RFC 1350.
func (s *ReadSession) HandleError(e *wire.ERROR) (bool, error) {
	s.terminate(nil)
	return true, nil
}

// HandleTimeout retransmits the outstanding block, or terminates with
// ErrTimeout once the retransmission schedule is exhausted.
func (s *ReadSession) HandleTimeout(ctx context.Context) (bool, error) {
	if s.completed {
		return true, s.err
	}
	s.advanceAttempt()
	if s.attemptsExhausted() {
		s.terminate(ErrTimeout)
		return true, ErrTimeout
	}
	if err := s.core.send(&wire.DATA{Block: s.block, Payload: s.payload}); err != nil {
		s.terminate(err)
		return true, err
	}
	return false, nil
}

// Cancel tears down the session: releases the backing reader. Idempotent.
func (s *ReadSession) Cancel() error {
	if s.completed {
		return nil
	}
	s.terminate(nil)
	return s.reader.Close()
}
