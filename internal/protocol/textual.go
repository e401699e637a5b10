package protocol

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/gochat-core/wirechat-server/internal/wire"
)

// textualCodec implements the self-describing object encoding: one
// frame carries one JSON object with a "type" discriminator and the
// payload fields for that variant alongside it. encoding/json is the
// standard library's JSON codec; nothing in the retrieved corpus pulls
// in an alternative JSON library for this role, so there is no
// third-party codec to wire here instead.
type textualCodec struct{}

// NewTextual returns the Codec for the textual wire encoding.
func NewTextual() Codec {
	return textualCodec{}
}

// wireObject is the on-the-wire shape of every textual message. Only
// the fields relevant to Type are populated; encoding/json omits the
// rest via omitempty, matching the original's practice of building a
// fresh, minimal JSON object per message.
type wireObject struct {
	Type   *string    `json:"type,omitempty"`
	Name   string     `json:"name,omitempty"`
	Title  string     `json:"title,omitempty"`
	RoomID *int       `json:"roomId,omitempty"`
	Text   string     `json:"text,omitempty"`
	Member string     `json:"member,omitempty"`
	Rooms  []RoomInfo `json:"rooms,omitempty"`
}

func (c textualCodec) Decode(r io.Reader) (Message, error) {
	payload, err := wire.ReadFrame(r)
	if err != nil {
		return Message{}, err
	}
	return c.decodeFrame(payload)
}

func (c textualCodec) Encode(msg Message) ([][]byte, error) {
	frame, err := c.encodeFrame(msg)
	if err != nil {
		return nil, err
	}
	return [][]byte{frame}, nil
}

func (c textualCodec) decodeFrame(payload []byte) (Message, error) {
	// A frame of length 0 decodes as an empty object: no "type" field,
	// which callers that expect an argument-less request (CSRooms,
	// CSLeaveRoom, CSShutdown) never hit because those requests are
	// still identified by an explicit "type" field even with no other
	// payload. An actually empty frame is therefore a missing-type
	// protocol error, same as any other object without "type".
	if len(payload) == 0 {
		return Message{}, ErrMissingType
	}

	var obj wireObject
	if err := json.Unmarshal(payload, &obj); err != nil {
		return Message{}, fmt.Errorf("protocol: decode textual frame: %w", err)
	}
	if obj.Type == nil {
		return Message{}, ErrMissingType
	}

	kind, ok := kindByName[*obj.Type]
	if !ok {
		return Message{}, ErrUnknownKind
	}

	msg := Message{Kind: kind, Name: obj.Name, Title: obj.Title, Text: obj.Text, Member: obj.Member, Rooms: obj.Rooms}
	if obj.RoomID != nil {
		msg.RoomID = *obj.RoomID
	}
	return msg, nil
}

func (c textualCodec) encodeFrame(msg Message) ([]byte, error) {
	name := msg.Kind.String()
	obj := wireObject{Type: &name}

	switch msg.Kind {
	case KindCSName:
		obj.Name = msg.Name
	case KindCSCreateRoom:
		obj.Title = msg.Title
	case KindCSJoinRoom:
		roomID := msg.RoomID
		obj.RoomID = &roomID
	case KindCSChat:
		obj.Text = msg.Text
	case KindSCSystemMessage:
		obj.Text = msg.Text
	case KindSCRoomsResult:
		obj.Rooms = msg.Rooms
		if obj.Rooms == nil {
			obj.Rooms = []RoomInfo{}
		}
	case KindSCChat:
		obj.Member = msg.Member
		obj.Text = msg.Text
	case KindCSRooms, KindCSLeaveRoom, KindCSShutdown:
		// No payload fields beyond the discriminator.
	}

	return json.Marshal(obj)
}
