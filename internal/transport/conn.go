// Package transport owns every net.TCPConn touched by the server: the
// per-connection read/write loops, framing via internal/wire, decoding
// via internal/protocol, and dispatch into internal/chatroom. None of
// the domain logic lives here — Conn is the adapter between a socket
// and a chatroom.Hub.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/gochat-core/wirechat-server/internal/chatroom"
	"github.com/gochat-core/wirechat-server/internal/log"
	"github.com/gochat-core/wirechat-server/internal/protocol"
	"github.com/gochat-core/wirechat-server/internal/wire"
)

const (
	sendBufferSize     = 16
	defaultIdleTimeout = 30 * time.Second
)

// Conn adapts one accepted TCP connection to the chat protocol: it
// decodes frames into protocol.Message values, dispatches them
// through a chatroom.Hub, and serializes replies and broadcasts back
// onto the wire via a dedicated write loop, matching the one
// in-flight-dispatch-per-client ordering invariant.
type Conn struct {
	rawConn     *net.TCPConn
	codec       protocol.Codec
	hub         *chatroom.Hub
	limiter     *semaphore.Weighted
	logger      log.Logger
	idleTimeout time.Duration

	client *chatroom.Client

	sendCh chan protocol.Message
	done   chan struct{}
	closed atomic.Bool
	cancel context.CancelFunc
}

// NewConn builds a Conn over an accepted connection. limiter bounds
// the number of dispatches in flight across the whole server (the
// semaphore substitutes for the original fixed-size worker pool);
// acquiring it is per-message, not per-connection, so one slow client
// cannot starve the others of worker slots beyond its own messages.
func NewConn(raw *net.TCPConn, codec protocol.Codec, hub *chatroom.Hub, limiter *semaphore.Weighted, logger log.Logger) *Conn {
	c := &Conn{
		rawConn:     raw,
		codec:       codec,
		hub:         hub,
		limiter:     limiter,
		logger:      logger,
		idleTimeout: defaultIdleTimeout,
		sendCh:      make(chan protocol.Message, sendBufferSize),
		done:        make(chan struct{}),
	}
	c.client = chatroom.NewClient(peerName(raw), c)
	return c
}

// peerName derives the client's initial display name from its peer
// address, formatted as "(ip, port)" per the original server's
// std::string name construction.
func peerName(conn *net.TCPConn) string {
	addr, ok := conn.RemoteAddr().(*net.TCPAddr)
	if !ok {
		return fmt.Sprintf("(%s)", conn.RemoteAddr().String())
	}
	return fmt.Sprintf("(%s, %d)", addr.IP.String(), addr.Port)
}

// Send queues msg for delivery to this connection's peer, blocking
// until there is room in the send buffer or the connection closes.
// Encoding and writing happen on the dedicated write loop, so this
// never blocks on network I/O itself — only on a slow peer draining
// its own buffer. Safe to call from any goroutine, including
// chatroom's broadcast fan-out while the registry mutex is held.
func (c *Conn) Send(msg protocol.Message) {
	select {
	case c.sendCh <- msg:
	case <-c.done:
	}
}

// Run drives the connection until it closes: a read loop decoding and
// dispatching inbound frames, and a write loop serializing replies and
// broadcasts. Run blocks until both loops exit, then tears the
// connection's room membership down via the hub. It returns the error
// that ended the connection; when ctx is canceled that is
// context.Canceled or the error from the socket the cancellation closed.
func (c *Conn) Run(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)
	group, child := errgroup.WithContext(ctx)

	// Decode blocks on the raw socket, so ctx cancellation alone would
	// not be observed until the read deadline below next trips. Forcing
	// the socket closed as soon as ctx is done unblocks that Read
	// immediately, so shutdown never waits out an idle client.
	go func() {
		<-ctx.Done()
		c.close()
	}()

	group.Go(func() error { return c.readLoop(child) })
	group.Go(func() error { return c.writeLoop(child) })

	err := group.Wait()
	c.close()
	c.hub.Disconnect(c.client)

	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Debug("connection closed", "addr", c.client.Name(), "error", err)
	} else {
		c.logger.Debug("connection closed", "addr", c.client.Name())
	}
	return err
}

// readLoop decodes one logical message at a time from the connection
// and dispatches it. Because decode blocks until a full frame (or two,
// for the binary codec) has arrived, at most one dispatch is ever in
// flight for this connection, without an explicit pending-length state
// machine. A read deadline is set before every Decode so that context
// cancellation — and a peer that simply goes idle — are both bounded
// to at most idleTimeout rather than blocking the read forever; a
// deadline expiring on its own is not a connection error, just a cue
// to recheck ctx and try again.
func (c *Conn) readLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_ = c.rawConn.SetReadDeadline(time.Now().Add(c.idleTimeout))

		req, err := c.codec.Decode(c.rawConn)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			return err
		}

		if err := c.limiter.Acquire(ctx, 1); err != nil {
			return err
		}
		reply, ok := c.hub.Dispatch(c.client, req)
		c.limiter.Release(1)

		if ok {
			c.Send(reply)
		}
	}
}

// writeLoop drains sendCh, encoding and writing each queued message in
// turn. It is the sole writer of the underlying socket, so concurrent
// Send calls from dispatch replies and broadcast fan-out never
// interleave their frames.
func (c *Conn) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-c.sendCh:
			frames, err := c.codec.Encode(msg)
			if err != nil {
				c.logger.Warn("encode error", "addr", c.client.Name(), "error", err)
				continue
			}
			for _, frame := range frames {
				if err := wire.WriteFrame(c.rawConn, frame); err != nil {
					return err
				}
			}
		}
	}
}

// close marks the connection closed, unblocks any goroutine parked in
// Send, and releases the socket. Safe to call multiple times.
func (c *Conn) close() {
	if c.closed.Swap(true) {
		return
	}
	close(c.done)
	if c.cancel != nil {
		c.cancel()
	}
	_ = c.rawConn.SetDeadline(time.Now())
	_ = c.rawConn.Close()
}
