package chatroom

import (
	"sort"
	"sync"
)

// Registry is the single mutex-guarded source of truth for rooms and
// their membership. Every join, leave, room creation, room deletion,
// and broadcast fan-out happens while holding mu, so a room can never
// be observed half-updated by a concurrent operation.
type Registry struct {
	mu     sync.Mutex
	rooms  map[int]*Room
	nextID int
}

// NewRegistry returns an empty registry. Room ids start at 1 and are
// never reused, even across the registry's lifetime.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[int]*Room), nextID: 1}
}

// CreateRoom allocates a new room with creator as its sole initial
// member. Returns an error if creator is already in a room.
func (reg *Registry) CreateRoom(title string, creator *Client) (*Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if creator.RoomID() != 0 {
		return nil, ErrAlreadyInRoom
	}

	room := newRoom(reg.nextID, title)
	reg.nextID++
	reg.rooms[room.ID] = room
	room.add(creator)
	return room, nil
}

// Join adds client to the room named by roomID and returns that room.
// Returns ErrAlreadyInRoom if client is already in a room, or
// ErrRoomNotFound if no room has that id.
func (reg *Registry) Join(roomID int, client *Client) (*Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if client.RoomID() != 0 {
		return nil, ErrAlreadyInRoom
	}

	room, ok := reg.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}

	room.add(client)
	return room, nil
}

// Leave removes client from its current room. If the room becomes
// empty it is deleted from the registry. Returns the room the client
// was in (for reading its title before any deletion) and whether the
// room was deleted as a result.
func (reg *Registry) Leave(client *Client) (room *Room, deleted bool, err error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	roomID := client.RoomID()
	if roomID == 0 {
		return nil, false, ErrNotInRoom
	}

	room = reg.rooms[roomID]
	room.remove(client)
	if room.empty() {
		delete(reg.rooms, roomID)
		deleted = true
	}
	return room, deleted, nil
}

// LeaveAny is Leave without the not-in-room error, used on connection
// teardown where "client wasn't in a room" is not an error condition.
func (reg *Registry) LeaveAny(client *Client) (room *Room, deleted bool) {
	room, deleted, err := reg.Leave(client)
	if err != nil {
		return nil, false
	}
	return room, deleted
}

// Rooms returns every room currently registered, ordered by ascending
// id, so repeated listings are stable as rooms come and go.
func (reg *Registry) Rooms() []*Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	out := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		out = append(out, room)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Broadcast snapshots the membership of sender's current room and
// calls send for every member other than sender, all under mu so the
// room cannot be deleted or have members added/removed mid-fan-out. A
// sender in the lobby (RoomID 0) is a no-op.
func (reg *Registry) Broadcast(sender *Client, send func(*Client)) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	roomID := sender.RoomID()
	if roomID == 0 {
		return
	}

	room, ok := reg.rooms[roomID]
	if !ok {
		return
	}

	for member := range room.members {
		if member == sender {
			continue
		}
		send(member)
	}
}
