package wire

import (
	"bytes"
	"encoding/binary"
)

// Decode parses a raw UDP datagram into one of the six Packet types.
//
// Decode errors are deliberately unwrapped sentinels (ErrWireProtocol,
// ErrInvalidOpcode, ErrPayloadDecode, ErrOptionsDecode, ErrInvalidErrorCode)
// so callers can classify a failure with errors.Is without caring about the
// specific packet type that produced it.
func Decode(b []byte) (Packet, error) {
	if len(b) < 2 {
		return nil, ErrWireProtocol
	}
	opcode := Opcode(binary.BigEndian.Uint16(b[:2]))
	payload := b[2:]

	switch opcode {
	case OpRRQ, OpWRQ:
		return decodeRequest(opcode, payload)
	case OpDATA:
		return decodeData(payload)
	case OpACK:
		return decodeACK(payload)
	case OpERROR:
		return decodeError(payload)
	case OpOACK:
		return decodeOACK(payload)
	default:
		return nil, ErrInvalidOpcode
	}
}

func decodeRequest(opcode Opcode, payload []byte) (Packet, error) {
	fields := splitFields(payload)
	if len(fields) < 2 {
		return nil, ErrPayloadDecode
	}
	filename, mode := fields[0], fields[1]
	opts, err := parseOptions(fields[2:])
	if err != nil {
		return nil, err
	}
	mode = toLower(mode)
	if opcode == OpRRQ {
		return &RRQ{Filename: filename, Mode: mode, Options: opts}, nil
	}
	return &WRQ{Filename: filename, Mode: mode, Options: opts}, nil
}

func decodeData(payload []byte) (Packet, error) {
	if len(payload) < 2 {
		return nil, ErrPayloadDecode
	}
	block := binary.BigEndian.Uint16(payload[:2])
	data := make([]byte, len(payload)-2)
	copy(data, payload[2:])
	return &DATA{Block: block, Payload: data}, nil
}

func decodeACK(payload []byte) (Packet, error) {
	if len(payload) != 2 {
		return nil, ErrPayloadDecode
	}
	return &ACK{Block: binary.BigEndian.Uint16(payload)}, nil
}

func decodeError(payload []byte) (Packet, error) {
	if len(payload) < 2 {
		return nil, ErrPayloadDecode
	}
	code := ErrorCode(binary.BigEndian.Uint16(payload[:2]))
	if !validErrorCode(code) {
		return nil, ErrInvalidErrorCode
	}
	msg := ""
	if rest := payload[2:]; len(rest) > 0 {
		fields := splitFields(rest)
		if len(fields) > 0 {
			msg = fields[0]
		}
	}
	if msg == "" {
		msg = DefaultMessage(code)
	}
	return &ERROR{Code: code, Message: msg}, nil
}

func decodeOACK(payload []byte) (Packet, error) {
	opts, err := parseOptions(splitFields(payload))
	if err != nil {
		return nil, err
	}
	return &OACK{Options: opts}, nil
}

// Encode serializes p into its wire representation. Encode never fails for
// a well-formed Packet constructed through this package's types; an unknown
// concrete type yields nil.
func Encode(p Packet) []byte {
	buf := new(bytes.Buffer)
	switch v := p.(type) {
	case *RRQ:
		writeFieldsWithOptions(buf, OpRRQ, v.Filename, v.Mode, v.Options)
	case *WRQ:
		writeFieldsWithOptions(buf, OpWRQ, v.Filename, v.Mode, v.Options)
	case *DATA:
		binary.Write(buf, binary.BigEndian, uint16(OpDATA))
		binary.Write(buf, binary.BigEndian, v.Block)
		buf.Write(v.Payload)
	case *ACK:
		binary.Write(buf, binary.BigEndian, uint16(OpACK))
		binary.Write(buf, binary.BigEndian, v.Block)
	case *ERROR:
		binary.Write(buf, binary.BigEndian, uint16(OpERROR))
		binary.Write(buf, binary.BigEndian, uint16(v.Code))
		buf.WriteString(v.Message)
		buf.WriteByte(0)
	case *OACK:
		binary.Write(buf, binary.BigEndian, uint16(OpOACK))
		writeOptions(buf, v.Options)
	default:
		return nil
	}
	return buf.Bytes()
}

func toLower(s string) string {
	out := []byte(s)
	for i, c := range out {
		if c >= 'A' && c <= 'Z' {
			out[i] = c + ('a' - 'A')
		}
	}
	return string(out)
}
