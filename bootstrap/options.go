package bootstrap

import (
	"strconv"
	"time"

	"github.com/eahydra/gotftp/session"
	"github.com/eahydra/gotftp/wire"
)

// SessionConfigurer is the subset of session.ReadSession/session.WriteSession
// that accepts negotiated options. Both satisfy it via core's promoted
// methods (WriteSession additionally overrides SetTSize).
type SessionConfigurer interface {
	SetBlockSize(uint16)
	SetTimeout([]time.Duration)
	SetTSize(*uint64)
}

// ProcessOptions validates a peer's requested option set against RFC
// 2348/2349 and returns the subset we're willing to honor, in the order the
// peer sent them. An option with no recognized name, or a value outside its
// valid range, is silently dropped rather than causing the whole request to
// fail - RFC 2347 treats option negotiation as best-effort.
func ProcessOptions(requested *wire.Options) *wire.Options {
	accepted := wire.NewOptions()
	if requested == nil {
		return accepted
	}
	for _, name := range requested.Names() {
		value, _ := requested.Get(name)
		switch name {
		case "blksize":
			n, err := strconv.Atoi(value)
			if err != nil || n < int(session.MinBlockSize) || n > int(session.MaxBlockSize) {
				continue
			}
			accepted.Set(name, value)
		case "timeout":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 || n > 255 {
				continue
			}
			accepted.Set(name, value)
		case "tsize":
			if _, err := strconv.ParseUint(value, 10, 64); err != nil {
				continue
			}
			accepted.Set(name, value)
		default:
			// Unrecognized option: dropped, never echoed in an OACK.
		}
	}
	return accepted
}

// ApplyOptions pushes an already-accepted option set onto a session. It is
// the caller's responsibility to call this at the right moment: immediately
// for a read-role session (which must know its block size before it can
// send the first DATA), or on the first DATA datagram for a write-role one
// (see SPEC_FULL.md §4.4).
func ApplyOptions(s SessionConfigurer, accepted *wire.Options) {
	if accepted == nil {
		return
	}
	if v, ok := accepted.Get("blksize"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			s.SetBlockSize(uint16(n))
		}
	}
	if v, ok := accepted.Get("timeout"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			d := time.Duration(n) * time.Second
			s.SetTimeout([]time.Duration{d, d, d})
		}
	}
	if v, ok := accepted.Get("tsize"); ok {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			s.SetTSize(&n)
		}
	}
}

// watchdogDuration picks the handshake-watchdog span off a retransmission
// schedule: the sum of every attempt but the last (the single entry itself
// for a one-entry schedule). A local-origin session does not retransmit its
// RRQ/WRQ; it gives up as soon as this span passes with no reply.
func watchdogDuration(schedule []time.Duration) time.Duration {
	if len(schedule) == 0 {
		return 0
	}
	if len(schedule) == 1 {
		return schedule[0]
	}
	var total time.Duration
	for _, d := range schedule[:len(schedule)-1] {
		total += d
	}
	return total
}
