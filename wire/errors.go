package wire

import "errors"

// Sentinel errors for the packet codec. Callers use errors.Is to test for
// a particular failure class; decode-level errors are otherwise dropped
// silently by the layers above (TFTP is a best-effort protocol).
var (
	// ErrWireProtocol means the two-byte opcode could not be extracted at all.
	ErrWireProtocol = errors.New("wire: failed to extract opcode")

	// ErrPayloadDecode means a known opcode's payload was structurally malformed.
	ErrPayloadDecode = errors.New("wire: malformed payload")

	// ErrOptionsDecode means the option list trailing a RRQ/WRQ/OACK was
	// malformed: a missing value or a repeated option name.
	ErrOptionsDecode = errors.New("wire: malformed options")

	// ErrInvalidOpcode means the opcode did not match any of the six known types.
	ErrInvalidOpcode = errors.New("wire: invalid opcode")

	// ErrInvalidErrorCode means an ERROR packet's code is outside 0..8.
	ErrInvalidErrorCode = errors.New("wire: invalid error code")
)

// ErrorCode is one of the nine standard TFTP error codes (RFC 1350 §5).
type ErrorCode uint16

const (
	ErrCodeNotDefined        ErrorCode = 0
	ErrCodeFileNotFound      ErrorCode = 1
	ErrCodeAccessViolation   ErrorCode = 2
	ErrCodeDiskFull          ErrorCode = 3
	ErrCodeIllegalOperation  ErrorCode = 4
	ErrCodeUnknownTransferID ErrorCode = 5
	ErrCodeFileAlreadyExists ErrorCode = 6
	ErrCodeNoSuchUser        ErrorCode = 7
	ErrCodeTerminateOption   ErrorCode = 8
)

// defaultErrorMessages is the canonical code -> message table from RFC 1350
// and RFC 2347 (code 8). Substituted whenever an ERROR packet arrives with
// no message, or is constructed from a code alone.
var defaultErrorMessages = map[ErrorCode]string{
	ErrCodeNotDefined:        "",
	ErrCodeFileNotFound:      "File not found",
	ErrCodeAccessViolation:   "Access violation",
	ErrCodeDiskFull:          "Disk full or allocation exceeded",
	ErrCodeIllegalOperation:  "Illegal TFTP operation",
	ErrCodeUnknownTransferID: "Unknown transfer ID",
	ErrCodeFileAlreadyExists: "File already exists",
	ErrCodeNoSuchUser:        "No such user",
	ErrCodeTerminateOption:   "Terminate transfer due to option negotiation",
}

// validErrorCode reports whether code is one of the nine defined codes.
func validErrorCode(code ErrorCode) bool {
	_, ok := defaultErrorMessages[code]
	return ok
}

// DefaultMessage returns the canonical message for code, or "" if code is
// not one of the nine defined codes.
func DefaultMessage(code ErrorCode) string {
	return defaultErrorMessages[code]
}
