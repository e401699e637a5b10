package transport

import (
	"bytes"
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/semaphore"

	"github.com/gochat-core/wirechat-server/internal/chatroom"
	"github.com/gochat-core/wirechat-server/internal/log"
	"github.com/gochat-core/wirechat-server/internal/protocol"
	"github.com/gochat-core/wirechat-server/internal/wire"
)

// dialedPair returns a connected client net.Conn and the server-side
// *net.TCPConn accepted from it, using a real loopback socket so the
// transport layer is exercised the same way it runs in production.
func dialedPair(t *testing.T) (net.Conn, *net.TCPConn) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	accepted := make(chan *net.TCPConn, 1)
	go func() {
		serverConn, err := ln.Accept()
		if err == nil {
			accepted <- serverConn.(*net.TCPConn)
		}
	}()

	client, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	select {
	case serverConn := <-accepted:
		return client, serverConn
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for accept")
		return nil, nil
	}
}

func TestConn_ChatRoundTrip(t *testing.T) {
	client, serverConn := dialedPair(t)

	registry := chatroom.NewRegistry()
	logger := log.New(&bytes.Buffer{})
	hub := chatroom.NewHub(registry, logger, func() {})
	limiter := semaphore.NewWeighted(4)
	codec := protocol.NewTextual()

	conn := NewConn(serverConn, codec, hub, limiter, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- conn.Run(ctx) }()

	require.NoError(t, wire.WriteFrame(client, []byte(`{"type":"CSCreateRoom","title":"general"}`)))
	reply := readOneFrame(t, client)
	require.Contains(t, string(reply), "general")

	require.NoError(t, wire.WriteFrame(client, []byte(`{"type":"CSChat","text":"hello"}`)))
	reply = readOneFrame(t, client)
	require.Contains(t, string(reply), "hello")

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("conn.Run did not exit after context cancellation")
	}
}

func TestConn_UnknownTypeGetsDisconnected(t *testing.T) {
	client, serverConn := dialedPair(t)

	registry := chatroom.NewRegistry()
	logger := log.New(&bytes.Buffer{})
	hub := chatroom.NewHub(registry, logger, func() {})
	limiter := semaphore.NewWeighted(4)
	codec := protocol.NewTextual()

	conn := NewConn(serverConn, codec, hub, limiter, logger)

	ctx := context.Background()
	done := make(chan error, 1)
	go func() { done <- conn.Run(ctx) }()

	require.NoError(t, wire.WriteFrame(client, []byte(`{"type":"NotAKind"}`)))

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("conn.Run did not exit on decode error")
	}
}

func TestConn_SendBlocksRatherThanDroppingUnderBackpressure(t *testing.T) {
	client, serverConn := dialedPair(t)

	registry := chatroom.NewRegistry()
	logger := log.New(&bytes.Buffer{})
	hub := chatroom.NewHub(registry, logger, func() {})
	limiter := semaphore.NewWeighted(4)
	codec := protocol.NewTextual()

	conn := NewConn(serverConn, codec, hub, limiter, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- conn.Run(ctx) }()

	// Flood more broadcasts than the send buffer holds without ever
	// reading them back. Every Send must eventually return once the
	// peer starts draining — none may be silently dropped.
	const total = sendBufferSize * 4
	sent := make(chan struct{})
	go func() {
		for i := 0; i < total; i++ {
			conn.client.Send(protocol.SystemMessage("backpressure"))
		}
		close(sent)
	}()

	received := 0
	for received < total {
		_ = readOneFrame(t, client)
		received++
	}

	select {
	case <-sent:
	case <-time.After(time.Second):
		t.Fatal("Send calls never returned once the peer started draining")
	}
}

func readOneFrame(t *testing.T, r io.Reader) []byte {
	t.Helper()
	if deadliner, ok := r.(interface{ SetReadDeadline(time.Time) error }); ok {
		_ = deadliner.SetReadDeadline(time.Now().Add(time.Second))
	}
	payload, err := wire.ReadFrame(r)
	require.NoError(t, err)
	return payload
}
