package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/gochat-core/wirechat-server/internal/wire"
)

// binaryCodec implements the two-frame binary encoding: a Type frame
// carrying only the discriminator, then a frame whose bytes parse
// under the variant that discriminator names. Field layout is a
// hand-rolled length-prefixed-string convention rather than a
// generated schema — there is no protobuf/flatbuffers compiler step
// to invoke here.
type binaryCodec struct{}

// NewBinary returns the Codec for the binary wire encoding.
func NewBinary() Codec {
	return binaryCodec{}
}

func (c binaryCodec) Decode(r io.Reader) (Message, error) {
	typeFrame, err := wire.ReadFrame(r)
	if err != nil {
		return Message{}, err
	}
	if len(typeFrame) != 1 {
		return Message{}, ErrUnknownKind
	}
	kind := Kind(typeFrame[0])
	if kind > KindSCChat {
		return Message{}, ErrUnknownKind
	}

	payload, err := wire.ReadFrame(r)
	if err != nil {
		return Message{}, err
	}
	return c.decodeVariant(kind, payload)
}

func (c binaryCodec) Encode(msg Message) ([][]byte, error) {
	variant, err := c.encodeVariant(msg)
	if err != nil {
		return nil, err
	}
	return [][]byte{{byte(msg.Kind)}, variant}, nil
}

func (c binaryCodec) decodeVariant(kind Kind, b []byte) (Message, error) {
	switch kind {
	case KindCSName:
		name, err := readString(bytes.NewReader(b), 1)
		if err != nil {
			return Message{}, err
		}
		return Message{Kind: kind, Name: name}, nil

	case KindCSRooms, KindCSLeaveRoom, KindCSShutdown:
		return Message{Kind: kind}, nil

	case KindCSCreateRoom:
		title, err := readString(bytes.NewReader(b), 1)
		if err != nil {
			return Message{}, err
		}
		return Message{Kind: kind, Title: title}, nil

	case KindCSJoinRoom:
		if len(b) < 4 {
			return Message{}, fmt.Errorf("protocol: CSJoinRoom payload too short: %w", ErrUnknownKind)
		}
		return Message{Kind: kind, RoomID: int(binary.BigEndian.Uint32(b))}, nil

	case KindCSChat:
		text, err := readString(bytes.NewReader(b), 2)
		if err != nil {
			return Message{}, err
		}
		return Message{Kind: kind, Text: text}, nil

	case KindSCSystemMessage:
		text, err := readString(bytes.NewReader(b), 2)
		if err != nil {
			return Message{}, err
		}
		return Message{Kind: kind, Text: text}, nil

	case KindSCChat:
		r := bytes.NewReader(b)
		member, err := readString(r, 1)
		if err != nil {
			return Message{}, err
		}
		text, err := readString(r, 2)
		if err != nil {
			return Message{}, err
		}
		return Message{Kind: kind, Member: member, Text: text}, nil

	case KindSCRoomsResult:
		return decodeRoomsResult(b)

	default:
		return Message{}, ErrUnknownKind
	}
}

func (c binaryCodec) encodeVariant(msg Message) ([]byte, error) {
	var buf bytes.Buffer

	switch msg.Kind {
	case KindCSName:
		writeString(&buf, msg.Name, 1)
	case KindCSRooms, KindCSLeaveRoom, KindCSShutdown:
		// No payload.
	case KindCSCreateRoom:
		writeString(&buf, msg.Title, 1)
	case KindCSJoinRoom:
		var roomID [4]byte
		binary.BigEndian.PutUint32(roomID[:], uint32(msg.RoomID))
		buf.Write(roomID[:])
	case KindCSChat:
		writeString(&buf, msg.Text, 2)
	case KindSCSystemMessage:
		writeString(&buf, msg.Text, 2)
	case KindSCChat:
		writeString(&buf, msg.Member, 1)
		writeString(&buf, msg.Text, 2)
	case KindSCRoomsResult:
		encodeRoomsResult(&buf, msg.Rooms)
	default:
		return nil, ErrUnknownKind
	}

	return buf.Bytes(), nil
}

// readString reads a length-prefixed string, the prefix being 1 or 2
// bytes wide depending on the field's expected maximum length.
func readString(r *bytes.Reader, prefixBytes int) (string, error) {
	n, err := readUint(r, prefixBytes)
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("protocol: truncated string field: %w", err)
	}
	return string(b), nil
}

func writeString(buf *bytes.Buffer, s string, prefixBytes int) {
	writeUint(buf, uint64(len(s)), prefixBytes)
	buf.WriteString(s)
}

func readUint(r *bytes.Reader, width int) (uint64, error) {
	b := make([]byte, width)
	if _, err := io.ReadFull(r, b); err != nil {
		return 0, fmt.Errorf("protocol: truncated length prefix: %w", err)
	}
	switch width {
	case 1:
		return uint64(b[0]), nil
	case 2:
		return uint64(binary.BigEndian.Uint16(b)), nil
	default:
		return 0, fmt.Errorf("protocol: unsupported prefix width %d", width)
	}
}

func writeUint(buf *bytes.Buffer, v uint64, width int) {
	switch width {
	case 1:
		buf.WriteByte(byte(v))
	case 2:
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], uint16(v))
		buf.Write(b[:])
	}
}

func decodeRoomsResult(b []byte) (Message, error) {
	r := bytes.NewReader(b)
	count, err := readUint(r, 2)
	if err != nil {
		return Message{}, err
	}

	rooms := make([]RoomInfo, 0, count)
	for i := uint64(0); i < count; i++ {
		var roomID [4]byte
		if _, err := io.ReadFull(r, roomID[:]); err != nil {
			return Message{}, fmt.Errorf("protocol: truncated room entry: %w", err)
		}
		title, err := readString(r, 1)
		if err != nil {
			return Message{}, err
		}
		memberCount, err := readUint(r, 1)
		if err != nil {
			return Message{}, err
		}
		members := make([]string, 0, memberCount)
		for j := uint64(0); j < memberCount; j++ {
			member, err := readString(r, 1)
			if err != nil {
				return Message{}, err
			}
			members = append(members, member)
		}
		rooms = append(rooms, RoomInfo{
			RoomID:  int(binary.BigEndian.Uint32(roomID[:])),
			Title:   title,
			Members: members,
		})
	}

	return RoomsResult(rooms), nil
}

func encodeRoomsResult(buf *bytes.Buffer, rooms []RoomInfo) {
	writeUint(buf, uint64(len(rooms)), 2)
	for _, room := range rooms {
		var roomID [4]byte
		binary.BigEndian.PutUint32(roomID[:], uint32(room.RoomID))
		buf.Write(roomID[:])
		writeString(buf, room.Title, 1)
		writeUint(buf, uint64(len(room.Members)), 1)
		for _, member := range room.Members {
			writeString(buf, member, 1)
		}
	}
}
