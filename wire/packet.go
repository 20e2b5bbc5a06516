// Package wire implements the TFTP (RFC 1350) datagram codec: encoding and
// decoding of the six packet types and their RFC 2347 option lists.
package wire

import (
	"bytes"
	"encoding/binary"
	"strings"
)

// Opcode identifies one of the six TFTP packet types.
type Opcode uint16

const (
	OpRRQ   Opcode = 1
	OpWRQ   Opcode = 2
	OpDATA  Opcode = 3
	OpACK   Opcode = 4
	OpERROR Opcode = 5
	OpOACK  Opcode = 6
)

const (
	ModeNetASCII = "netascii"
	ModeOctet    = "octet"
)

// Packet is the common interface implemented by all six wire types.
type Packet interface {
	Opcode() Opcode
}

// RRQ is a read request: the peer wants to download filename.
type RRQ struct {
	Filename string
	Mode     string
	Options  *Options
}

// Opcode implements Packet.
func (*RRQ) Opcode() Opcode { return OpRRQ }

// WRQ is a write request: the peer wants to upload filename.
type WRQ struct {
	Filename string
	Mode     string
	Options  *Options
}

// Opcode implements Packet.
func (*WRQ) Opcode() Opcode { return OpWRQ }

// DATA carries one block of payload, at most the negotiated block size.
// A payload shorter than the block size marks the final block of a transfer.
type DATA struct {
	Block   uint16
	Payload []byte
}

// Opcode implements Packet.
func (*DATA) Opcode() Opcode { return OpDATA }

// ACK acknowledges receipt of Block (0 acknowledges the RRQ/WRQ/OACK handshake).
type ACK struct {
	Block uint16
}

// Opcode implements Packet.
func (*ACK) Opcode() Opcode { return OpACK }

// ERROR reports a fatal condition and terminates the transfer on receipt.
type ERROR struct {
	Code    ErrorCode
	Message string
}

// Opcode implements Packet.
func (*ERROR) Opcode() Opcode { return OpERROR }

// NewError builds an ERROR packet for code, substituting the canonical
// message when msg is empty.
func NewError(code ErrorCode, msg string) *ERROR {
	if msg == "" {
		msg = DefaultMessage(code)
	}
	return &ERROR{Code: code, Message: msg}
}

// OACK lists the options the server agreed to honor (RFC 2347).
type OACK struct {
	Options *Options
}

// Opcode implements Packet.
func (*OACK) Opcode() Opcode { return OpOACK }

// splitFields splits a NUL-delimited byte run into its fields, dropping
// the single trailing empty fragment left when the buffer ends in a NUL
// (which it always does for well-formed TFTP fields).
func splitFields(b []byte) []string {
	parts := strings.Split(string(b), "\x00")
	// A well formed field run ends in NUL, so Split leaves one trailing "".
	if len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

// parseOptions consumes alternating name/value fields, stripping the
// trailing empty fragments a Cisco 7941 is known to append, and returns
// them as an insertion-ordered Options. Duplicate names or a missing final
// value are reported as ErrOptionsDecode.
func parseOptions(fields []string) (*Options, error) {
	// Cisco 7941 quirk: strip trailing empty fragments before pairing.
	for len(fields) > 0 && fields[len(fields)-1] == "" {
		fields = fields[:len(fields)-1]
	}
	if len(fields)%2 != 0 {
		return nil, ErrOptionsDecode
	}
	opts := NewOptions()
	for i := 0; i < len(fields); i += 2 {
		name := fields[i]
		if opts.Has(name) {
			return nil, ErrOptionsDecode
		}
		opts.Set(name, fields[i+1])
	}
	return opts, nil
}

func writeFieldsWithOptions(buf *bytes.Buffer, opcode Opcode, filename, mode string, opts *Options) {
	binary.Write(buf, binary.BigEndian, uint16(opcode))
	buf.WriteString(filename)
	buf.WriteByte(0)
	buf.WriteString(mode)
	buf.WriteByte(0)
	writeOptions(buf, opts)
}

func writeOptions(buf *bytes.Buffer, opts *Options) {
	opts.Each(func(name, value string) {
		buf.WriteString(name)
		buf.WriteByte(0)
		buf.WriteString(value)
		buf.WriteByte(0)
	})
}
