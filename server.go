// Package gotftp is the factory/dispatch layer (C5): it accepts RRQ/WRQ
// datagrams on a well-known port, opens the requested file through a
// FileHandler, binds a fresh ephemeral socket per transfer (mirroring the
// one-peer-one-goroutine shape of the original src/gotftp/peer.go), and
// drives the resulting bootstrap.Session to completion. Client, in
// client.go, is the mirror image for the initiating side.
package gotftp

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/eahydra/gotftp/bootstrap"
	"github.com/eahydra/gotftp/store"
	"github.com/eahydra/gotftp/wire"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// FileHandler resolves an incoming RRQ/WRQ's filename to a backing store,
// given the requesting peer's address (so an implementation can scope
// access per-client if it wants to). OpenReader serves a download; OpenWriter
// accepts an upload.
type FileHandler interface {
	OpenReader(remoteAddr net.Addr, filename string) (store.Reader, error)
	OpenWriter(remoteAddr net.Addr, filename string) (store.Writer, error)
}

// Server listens on a single well-known UDP port, dispatching every
// distinct RRQ/WRQ to its own ephemeral socket and goroutine. It holds no
// per-transfer state itself once a transfer starts: each bootstrap.Session
// is a self-contained reactor driven by runSession.
type Server struct {
	conn        net.PacketConn
	handler     FileHandler
	readTimeout time.Duration
	clock       clockwork.Clock
	log         *logrus.Entry

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewServer binds addr and returns a Server ready to Run. readTimeout
// governs the accept loop's own read deadline (0 disables it, blocking
// forever between requests); clock and log may be nil to use the package
// defaults.
func NewServer(addr string, handler FileHandler, readTimeout time.Duration, clock clockwork.Clock, log *logrus.Entry) (*Server, error) {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Server{
		conn:        conn,
		handler:     handler,
		readTimeout: readTimeout,
		clock:       clock,
		log:         loggerOrDefault(log),
	}, nil
}

// Addr returns the server's bound local address, useful when NewServer was
// given port 0 and the caller needs to know what was actually bound.
func (s *Server) Addr() net.Addr { return s.conn.LocalAddr() }

// Close closes the well-known socket, which stops the accept loop; Run then
// waits for in-flight transfers to reach their own termination condition
// before returning. Neither forcibly cancels them.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.conn.Close()
}

// Run accepts RRQ/WRQ datagrams on the well-known port until Close is
// called or the socket errors. Each accepted request is dispatched to its
// own goroutine, so accepting never waits on a transfer; after Close, Run
// waits for the in-flight transfers before it returns.
func (s *Server) Run() error {
	buf := make([]byte, 65536)
	for {
		if s.readTimeout != 0 {
			s.conn.SetReadDeadline(s.clock.Now().Add(s.readTimeout))
		}
		n, addr, err := s.conn.ReadFrom(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				s.wg.Wait()
				return nil
			}
			return err
		}

		pkt, err := wire.Decode(buf[:n])
		if err != nil {
			s.log.WithError(err).WithField("remote_addr", addr).Debug("dropped malformed datagram")
			continue
		}

		switch req := pkt.(type) {
		case *wire.RRQ:
			s.dispatch(addr, func() (bootstrap.Session, bootstrap.Transport, error) {
				return s.acceptRRQ(addr, req)
			})
		case *wire.WRQ:
			s.dispatch(addr, func() (bootstrap.Session, bootstrap.Transport, error) {
				return s.acceptWRQ(addr, req)
			})
		default:
			s.log.WithField("remote_addr", addr).Debug("ignored non-request packet on well-known port")
		}
	}
}

func (s *Server) dispatch(addr net.Addr, accept func() (bootstrap.Session, bootstrap.Transport, error)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		sess, transport, err := accept()
		if err != nil {
			s.log.WithError(err).WithField("remote_addr", addr).Warn("request rejected")
			return
		}
		s.runSession(transport, addr, sess)
	}()
}

func (s *Server) acceptRRQ(addr net.Addr, req *wire.RRQ) (bootstrap.Session, bootstrap.Transport, error) {
	reader, err := s.handler.OpenReader(addr, req.Filename)
	if err != nil {
		s.sendError(addr, err)
		return nil, nil, err
	}
	transport, err := net.ListenPacket("udp", ":0")
	if err != nil {
		reader.Close()
		return nil, nil, err
	}
	s.log.WithFields(logrus.Fields{"remote_addr": addr, "filename": req.Filename, "op": "RRQ"}).Info("accepted request")
	return bootstrap.NewRemoteOriginReadSession(transport, addr, reader, req.Options), transport, nil
}

func (s *Server) acceptWRQ(addr net.Addr, req *wire.WRQ) (bootstrap.Session, bootstrap.Transport, error) {
	writer, err := s.handler.OpenWriter(addr, req.Filename)
	if err != nil {
		s.sendError(addr, err)
		return nil, nil, err
	}
	transport, err := net.ListenPacket("udp", ":0")
	if err != nil {
		writer.Cancel()
		return nil, nil, err
	}
	s.log.WithFields(logrus.Fields{"remote_addr": addr, "filename": req.Filename, "op": "WRQ"}).Info("accepted request")
	return bootstrap.NewRemoteOriginWriteSession(transport, addr, writer, req.Options), transport, nil
}

func (s *Server) sendError(addr net.Addr, err error) {
	e := wire.NewError(errorCodeFor(err), "")
	s.conn.WriteTo(wire.Encode(e), addr)
}

// runSession owns the single-threaded reactor loop for one transfer: it is
// the "driver" SPEC_FULL.md §5 describes, the sole owner of the clock and
// the read deadline for this session's ephemeral socket.
func (s *Server) runSession(transport bootstrap.Transport, remote net.Addr, sess bootstrap.Session) {
	defer transport.Close()
	ctx := context.Background()
	log := s.log.WithField("remote_addr", remote)

	if err := sess.StartProtocol(ctx); err != nil {
		log.WithError(err).Warn("failed to start protocol")
		return
	}

	conn, ok := transport.(net.PacketConn)
	if !ok {
		log.Error("transport does not support reading")
		return
	}

	buf := make([]byte, 65536)
	for {
		conn.SetReadDeadline(s.clock.Now().Add(sess.NextTimeout()))
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				terminal, herr := sess.HandleTimeout(ctx)
				if terminal {
					if herr != nil && !errors.Is(herr, bootstrap.ErrHandshakeTimeout) {
						log.WithError(herr).Warn("session ended on timeout")
					}
					return
				}
				continue
			}
			log.WithError(err).Warn("read failed")
			return
		}

		pkt, err := wire.Decode(buf[:n])
		if err != nil {
			log.WithError(err).Debug("dropped malformed datagram")
			continue
		}

		terminal, err := sess.DatagramReceived(ctx, addr, pkt)
		if terminal {
			if err != nil {
				log.WithError(err).Info("session ended with error")
			} else {
				log.Info("transfer complete")
			}
			return
		}
	}
}

func errorCodeFor(err error) wire.ErrorCode {
	switch {
	case errors.Is(err, store.ErrFileNotFound):
		return wire.ErrCodeFileNotFound
	case errors.Is(err, store.ErrAccessViolation):
		return wire.ErrCodeAccessViolation
	case errors.Is(err, store.ErrDiskFull):
		return wire.ErrCodeDiskFull
	case errors.Is(err, store.ErrFileExists):
		return wire.ErrCodeFileAlreadyExists
	default:
		return wire.ErrCodeNotDefined
	}
}
