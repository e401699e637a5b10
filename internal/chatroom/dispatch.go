package chatroom

import (
	"fmt"

	"github.com/gochat-core/wirechat-server/internal/protocol"
)

// Hub wires the registry to the per-discriminator handlers. It holds
// no connection state of its own — callers invoke Dispatch once per
// decoded Message and the returned reply (if any) is the handler's
// response to the author; broadcasts, when the handler calls for one,
// are sent directly to co-members as a side effect.
type Hub struct {
	registry *Registry
	onQuit   func()
	logger   Logger
}

// Logger is the minimal structured-logging surface chatroom depends
// on; internal/log provides the zerolog-backed implementation used in
// production.
type Logger interface {
	Info(msg string, kv ...any)
	Debug(msg string, kv ...any)
	Warn(msg string, kv ...any)
}

// NewHub builds a Hub over registry. onQuit is invoked synchronously
// each time a CSShutdown request is dispatched.
func NewHub(registry *Registry, logger Logger, onQuit func()) *Hub {
	return &Hub{registry: registry, onQuit: onQuit, logger: logger}
}

// Dispatch routes req to its handler and returns the reply to send the
// author, if any. Only the client->server discriminators have
// handlers; any other kind (the codecs decode server->client kinds
// too, and the transport layer passes them through) is ignored and
// produces no reply.
func (h *Hub) Dispatch(client *Client, req protocol.Message) (reply protocol.Message, hasReply bool) {
	switch req.Kind {
	case protocol.KindCSName:
		return h.onName(client, req), true
	case protocol.KindCSRooms:
		return h.onRooms(client), true
	case protocol.KindCSCreateRoom:
		return h.onCreateRoom(client, req), true
	case protocol.KindCSJoinRoom:
		return h.onJoinRoom(client, req), true
	case protocol.KindCSLeaveRoom:
		return h.onLeaveRoom(client), true
	case protocol.KindCSChat:
		return h.onChat(client, req), true
	case protocol.KindCSShutdown:
		h.onShutdown()
		return protocol.Message{}, false
	default:
		return protocol.Message{}, false
	}
}

func (h *Hub) onName(client *Client, req protocol.Message) protocol.Message {
	previous := client.SetName(req.Name)
	announcement := protocol.SystemMessage(fmt.Sprintf("%s 의 이름이 %s 으로 변경되었습니다", previous, req.Name))

	if client.RoomID() != 0 {
		h.registry.Broadcast(client, func(peer *Client) { peer.Send(announcement) })
	}
	return announcement
}

func (h *Hub) onRooms(client *Client) protocol.Message {
	rooms := h.registry.Rooms()
	if len(rooms) == 0 {
		return protocol.SystemMessage("개설된 방이 없습니다.")
	}

	infos := make([]protocol.RoomInfo, len(rooms))
	for i, room := range rooms {
		infos[i] = protocol.RoomInfo{RoomID: room.ID, Title: room.Title, Members: room.MemberNames()}
	}
	return protocol.RoomsResult(infos)
}

func (h *Hub) onCreateRoom(client *Client, req protocol.Message) protocol.Message {
	room, err := h.registry.CreateRoom(req.Title, client)
	if err != nil {
		return protocol.SystemMessage("대화 방에 있을 때는 방을 개설 할 수 없습니다.")
	}

	h.logger.Info("room created", "room_id", room.ID, "title", room.Title)
	return protocol.SystemMessage(fmt.Sprintf("방제[%s] 방에 입장했습니다.", room.Title))
}

func (h *Hub) onJoinRoom(client *Client, req protocol.Message) protocol.Message {
	room, err := h.registry.Join(req.RoomID, client)
	if err != nil {
		switch err {
		case ErrAlreadyInRoom:
			return protocol.SystemMessage("대화 방에 있을 때는 다른 방에 들어갈 수 없습니다.")
		default:
			return protocol.SystemMessage("대화방이 존재하지 않습니다.")
		}
	}

	// Co-members must see the join announcement before the joining
	// client sees its own confirmation.
	announcement := protocol.SystemMessage(fmt.Sprintf("[%s] 님이 입장했습니다.", client.Name()))
	h.registry.Broadcast(client, func(peer *Client) { peer.Send(announcement) })

	return protocol.SystemMessage(fmt.Sprintf("방제[%s] 방에 입장했습니다.", room.Title))
}

func (h *Hub) onLeaveRoom(client *Client) protocol.Message {
	if client.RoomID() == 0 {
		return protocol.SystemMessage("현재 대화방에 들어가 있지 않습니다.")
	}

	announcement := protocol.SystemMessage(fmt.Sprintf("[%s] 님이 퇴장했습니다.", client.Name()))
	h.registry.Broadcast(client, func(peer *Client) { peer.Send(announcement) })

	room, deleted, err := h.registry.Leave(client)
	if err != nil {
		// Another goroutine cleared the room between the RoomID() check
		// above and Leave(); treat it the same as never having joined.
		return protocol.SystemMessage("현재 대화방에 들어가 있지 않습니다.")
	}
	if deleted {
		h.logger.Info("room deleted", "room_id", room.ID, "reason", "leave")
	}

	return protocol.SystemMessage(fmt.Sprintf("방제[%s] 대화 방에서 퇴장했습니다.", room.Title))
}

func (h *Hub) onChat(client *Client, req protocol.Message) protocol.Message {
	if client.RoomID() == 0 {
		return protocol.SystemMessage("현재 대화방에 들어가 있지 않습니다.")
	}

	chat := protocol.Chat(client.Name(), req.Text)
	h.registry.Broadcast(client, func(peer *Client) { peer.Send(chat) })
	return chat
}

func (h *Hub) onShutdown() {
	h.logger.Info("shutdown requested")
	h.onQuit()
}

// Disconnect removes client from its room, if any, as part of
// connection teardown (EOF, recv error, decode error). It never
// produces a reply — the socket is already on its way down.
func (h *Hub) Disconnect(client *Client) {
	if client.RoomID() == 0 {
		return
	}

	// Broadcast resolves the room from client.RoomID(), so co-members
	// must be told before LeaveAny resets it to 0.
	announcement := protocol.SystemMessage(fmt.Sprintf("[%s] 님이 퇴장했습니다.", client.Name()))
	h.registry.Broadcast(client, func(peer *Client) { peer.Send(announcement) })

	room, deleted := h.registry.LeaveAny(client)
	if room != nil && deleted {
		h.logger.Info("room deleted", "room_id", room.ID, "reason", "disconnect")
	}
}
