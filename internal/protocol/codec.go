package protocol

import (
	"errors"
	"io"
)

// ErrMissingType is returned by the textual codec when a frame decodes
// to a well-formed object lacking the "type" discriminator field.
var ErrMissingType = errors.New("protocol: message is missing a \"type\" field")

// ErrUnknownKind is returned when a discriminator (textual "type"
// string, or binary Type frame) does not name a known message Kind.
var ErrUnknownKind = errors.New("protocol: unknown message type")

// Codec turns a byte stream into decoded Message values and Message
// values back into the frame(s) that carry them on the wire. Decode
// blocks on r until one complete logical message has arrived — one
// frame for the textual codec, two for the binary codec — so callers
// never need to track partial-frame state themselves.
type Codec interface {
	// Decode reads exactly one logical message from r.
	Decode(r io.Reader) (Message, error)
	// Encode returns the frame payloads that together carry msg. The
	// textual codec always returns one; the binary codec always
	// returns two (Type frame, then variant frame).
	Encode(msg Message) ([][]byte, error)
}
