// Package session implements the TFTP lock-step transfer state machine:
// one block outstanding at a time, acknowledged before the next is sent,
// with per-block retransmission. The session holds no clock: the caller
// times each wait from NextTimeout and calls HandleTimeout on expiry.
package session

import (
	"net"
	"time"

	"github.com/eahydra/gotftp/wire"
)

const (
	// DefaultBlockSize is used when the peer did not negotiate blksize.
	DefaultBlockSize uint16 = 512
	// MinBlockSize and MaxBlockSize bound the blksize option (RFC 2348).
	MinBlockSize uint16 = 8
	MaxBlockSize uint16 = 65464
)

// DefaultTimeout is the default per-block retransmission schedule: three
// attempts at 1s, 3s, then 5s.
func DefaultTimeout() []time.Duration {
	return []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}
}

// Transport is the minimal datagram-sending surface a session needs. A real
// implementation wraps a net.PacketConn; tests substitute an in-memory fake.
type Transport interface {
	WriteTo(b []byte, addr net.Addr) (int, error)
}

// core holds the state shared by ReadSession and WriteSession: negotiated
// parameters, the retransmission schedule/attempt counter, and the
// started/completed latches the bootstrap layer and block-rollover logic
// depend on.
type core struct {
	transport  Transport
	remoteAddr net.Addr

	blockSize uint16
	timeout   []time.Duration
	tsize     *uint64

	lastBlock uint16
	started   bool
	completed bool
	attempt   int

	err error
}

func newCore(transport Transport, remoteAddr net.Addr) core {
	return core{
		transport:  transport,
		remoteAddr: remoteAddr,
		blockSize:  DefaultBlockSize,
		timeout:    DefaultTimeout(),
	}
}

// SetBlockSize applies a negotiated block size. Called by the bootstrap
// layer after option processing, before the first productive exchange.
func (c *core) SetBlockSize(n uint16) { c.blockSize = n }

// BlockSize returns the effective block size (default 512 if unnegotiated).
func (c *core) BlockSize() uint16 { return c.blockSize }

// SetTimeout applies a negotiated retransmission schedule.
func (c *core) SetTimeout(schedule []time.Duration) { c.timeout = schedule }

// Timeout returns the active retransmission schedule. The bootstrap layer
// reads it once, at construction, to size its handshake watchdog and OACK
// retransmit timers; a timeout negotiated later does not change those.
func (c *core) Timeout() []time.Duration { return c.timeout }

// SetTSize records a negotiated tsize (nil clears it).
func (c *core) SetTSize(n *uint64) { c.tsize = n }

// TSize returns the negotiated tsize, or nil if none.
func (c *core) TSize() *uint64 { return c.tsize }

// Started reports whether the session has seen a productive exchange (an
// ACK of the outstanding block, or an accepted DATA block).
func (c *core) Started() bool { return c.started }

// Completed reports whether the transfer has reached a terminal state.
func (c *core) Completed() bool { return c.completed }

// Err returns the error that terminated the session, if any.
func (c *core) Err() error { return c.err }

// RemoteAddr returns the peer's bound TID.
func (c *core) RemoteAddr() net.Addr { return c.remoteAddr }

// SetRemoteAddr rebinds the peer's TID. Used by a local-origin bootstrap
// session to latch the server's actual ephemeral reply address: per RFC
// 1350, the server answers an RRQ/WRQ sent to its well-known port from a
// fresh port of its own choosing, which becomes the TID for the rest of
// the transfer.
func (c *core) SetRemoteAddr(addr net.Addr) { c.remoteAddr = addr }

// currentTimeout returns the retransmission delay for the current attempt,
// clamped to the last entry once the schedule is exhausted (callers check
// attemptsExhausted first; this just avoids an index panic).
func (c *core) currentTimeout() time.Duration {
	if c.attempt >= len(c.timeout) {
		return c.timeout[len(c.timeout)-1]
	}
	return c.timeout[c.attempt]
}

func (c *core) attemptsExhausted() bool {
	return c.attempt >= len(c.timeout)
}

func (c *core) resetAttempts() { c.attempt = 0 }

func (c *core) advanceAttempt() { c.attempt++ }

func (c *core) send(p wire.Packet) error {
	_, err := c.transport.WriteTo(wire.Encode(p), c.remoteAddr)
	return err
}

func (c *core) terminate(err error) {
	c.completed = true
	c.err = err
}
