package wire

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingReader tracks how many bytes have been pulled from the
// underlying reader, used to check the "2 + payload_length" invariant.
type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

func TestReadFrame_ConsumesExactlyHeaderPlusPayload(t *testing.T) {
	payload := []byte("hello room")
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, payload))

	cr := &countingReader{r: &buf}
	got, err := ReadFrame(cr)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assert.Equal(t, 2+len(payload), cr.n)
}

func TestReadFrame_ZeroLength(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, nil))

	got, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadFrame_SplitAcrossReads(t *testing.T) {
	payload := []byte("split across arbitrary chunk boundaries")
	var whole bytes.Buffer
	require.NoError(t, WriteFrame(&whole, payload))

	// Feed the frame back one byte at a time to simulate a peer that
	// splits a single send into arbitrary chunks.
	pr, pw := io.Pipe()
	go func() {
		data := whole.Bytes()
		for _, b := range data {
			_, _ = pw.Write([]byte{b})
		}
		pw.Close()
	}()

	got, err := ReadFrame(pr)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestReadFrame_CoalescedFramesDecodeInOrder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte("first")))
	require.NoError(t, WriteFrame(&buf, []byte("second")))

	first, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), first)

	second, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), second)
}

func TestReadFrame_EOF(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader(nil))
	assert.True(t, errors.Is(err, io.EOF))
}

func TestWriteFrame_RejectsOversizedPayload(t *testing.T) {
	var buf bytes.Buffer
	err := WriteFrame(&buf, make([]byte, MaxPayloadSize+1))
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

// partialWriter only accepts a few bytes per Write call, exercising
// WriteFrame's retry loop.
type partialWriter struct {
	buf   bytes.Buffer
	chunk int
}

func (p *partialWriter) Write(b []byte) (int, error) {
	n := len(b)
	if n > p.chunk {
		n = p.chunk
	}
	return p.buf.Write(b[:n])
}

func TestWriteFrame_RetriesPartialWrites(t *testing.T) {
	pw := &partialWriter{chunk: 3}
	payload := []byte("a longer payload than the chunk size")
	require.NoError(t, WriteFrame(pw, payload))

	got, err := ReadFrame(&pw.buf)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}
