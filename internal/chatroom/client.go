// Package chatroom holds the connection-independent domain state: the
// client record, the room registry, and the dispatch handlers that
// implement the chat protocol's semantics. It is deliberately free of
// any net.Conn or socket I/O — see internal/transport for that layer.
package chatroom

import (
	"sync"

	"github.com/google/uuid"

	"github.com/gochat-core/wirechat-server/internal/protocol"
)

// Sender delivers a reply (or a fan-out broadcast message) to a single
// client. The transport layer supplies the concrete implementation
// (queue onto that connection's write loop); chatroom never touches a
// socket directly.
type Sender interface {
	Send(msg protocol.Message)
}

// Client is a connected chat participant as seen by the core layer.
// Name and RoomID are read from other goroutines during broadcast, so
// both are guarded by mu rather than relying on the single-owner
// discipline the original C++ server assumes but does not actually
// enforce for these two fields.
type Client struct {
	// SessionID is a random per-session id. It is never part of the
	// wire protocol, no log line includes it, and it has no bearing on
	// identity — the Client pointer itself is the stable identity for a
	// session.
	SessionID string

	sender Sender

	mu     sync.RWMutex
	name   string
	roomID int
}

// NewClient constructs a client bound to sender, with the given
// initial display name (derived by the caller from the peer address).
func NewClient(initialName string, sender Sender) *Client {
	return &Client{
		SessionID: uuid.NewString(),
		sender:    sender,
		name:      initialName,
	}
}

// Name returns the client's current display name.
func (c *Client) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

// SetName renames the client and returns the previous name.
func (c *Client) SetName(name string) (previous string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	previous = c.name
	c.name = name
	return previous
}

// RoomID returns the id of the room the client currently occupies, or
// 0 if the client is in the lobby.
func (c *Client) RoomID() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomID
}

func (c *Client) setRoomID(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomID = id
}

// Send forwards msg to the client's connection for framing and
// delivery.
func (c *Client) Send(msg protocol.Message) {
	c.sender.Send(msg)
}
