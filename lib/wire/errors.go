package wire

import (
	"errors"

	"github.com/samber/oops"
)

var (
	// ErrMalformedMessage is returned for every decode failure: short input,
	// a bad length field, an unknown type tag or a truncated field.
	ErrMalformedMessage = errors.New("malformed message")
	// ErrMessageTooLarge is returned when an envelope length would not fit in
	// 16 bits.
	ErrMessageTooLarge = errors.New("message too large for envelope")
	// ErrInvalidAddress is returned when encoding a message without a valid
	// IPv4 or IPv6 address.
	ErrInvalidAddress = errors.New("invalid ip address")
)

func malformed(format string, args ...interface{}) error {
	return oops.
		In("wire").
		Code("malformed_message").
		Wrapf(ErrMalformedMessage, format, args...)
}

// malformedCause keeps the underlying decoder error in the chain.
func malformedCause(cause error, format string, args ...interface{}) error {
	return oops.
		In("wire").
		Code("malformed_message").
		Wrapf(errors.Join(ErrMalformedMessage, cause), format, args...)
}
