// Package wire implements the length-prefixed framing used on every
// connection: a 2-byte big-endian length header followed by that many
// payload bytes. It has no notion of what the payload means — that is
// the protocol package's job.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxPayloadSize is the largest payload a single frame can carry,
// fixed by the 2-byte length header.
const MaxPayloadSize = 1<<16 - 1

// ErrPayloadTooLarge is returned by WriteFrame when asked to send more
// than MaxPayloadSize bytes in one frame.
var ErrPayloadTooLarge = fmt.Errorf("wire: payload exceeds %d bytes", MaxPayloadSize)

// ReadFrame reads exactly one frame from r: a 2-byte big-endian length
// followed by that many bytes. It blocks until the full frame has
// arrived, which is how TCP packet fragmentation and coalescing are
// handled — callers never see a partial frame. A zero-length frame is
// valid and returns a non-nil empty slice.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [2]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	n := binary.BigEndian.Uint16(header[:])
	payload := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, err
		}
	}
	return payload, nil
}

// WriteFrame prefixes payload with its big-endian length and writes
// the combined blob to w, retrying until every byte has been written.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxPayloadSize {
		return ErrPayloadTooLarge
	}

	buf := make([]byte, 2+len(payload))
	binary.BigEndian.PutUint16(buf[:2], uint16(len(payload)))
	copy(buf[2:], payload)

	for written := 0; written < len(buf); {
		n, err := w.Write(buf[written:])
		if err != nil {
			return err
		}
		written += n
	}
	return nil
}
