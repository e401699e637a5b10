package chatroom

import "errors"

// Semantic errors a handler turns into a system-message reply rather
// than a connection teardown — the offending client is told what went
// wrong and the session stays open.
var (
	ErrAlreadyInRoom = errors.New("chatroom: client is already in a room")
	ErrNotInRoom     = errors.New("chatroom: client is not in a room")
	ErrRoomNotFound  = errors.New("chatroom: room does not exist")
)
