// Package protocol defines the closed set of wire events. Every
// inbound and outbound kind is enumerated here so the dispatcher's
// routing table stays exhaustive.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

type EventKind string

// Inbound kinds.
const (
	KindJoinLobby     EventKind = "join_lobby"
	KindLeaveLobby    EventKind = "leave_lobby"
	KindCreateRoom    EventKind = "create_room"
	KindJoinRoom      EventKind = "join_room"
	KindLeaveRoom     EventKind = "leave_room"
	KindSendMessage   EventKind = "send_message"
	KindPerformAction EventKind = "perform_action"
	KindRename        EventKind = "rename"
	KindPing          EventKind = "ping"
)

// Outbound kinds.
const (
	KindPlayerJoined      EventKind = "player_joined"
	KindPlayerLeft        EventKind = "player_left"
	KindPlayerDisconnect  EventKind = "player_disconnected"
	KindPlayerReconnected EventKind = "player_reconnected"
	KindStateSync         EventKind = "state_sync"
	KindMessage           EventKind = "message"
	KindError             EventKind = "error"
	KindRateLimited       EventKind = "rate_limited"
	KindRoomCreated       EventKind = "room_created"
	KindRoomState         EventKind = "room_state"
	KindRenamed           EventKind = "renamed"
	KindLeft              EventKind = "left"
	KindPong              EventKind = "pong"
	KindLobbyState        EventKind = "lobby_state"
	KindActionAck         EventKind = "action_ack"
)

var (
	ErrUnknownKind = errors.New("unknown event kind")
	ErrBadPayload  = errors.New("bad payload")
)

// Inbound is the tagged union of client events.
type Inbound interface {
	Kind() EventKind
}

type JoinLobby struct{}

type LeaveLobby struct{}

type CreateRoom struct {
	Name string `json:"name" validate:"required,max=36"`
}

type JoinRoom struct {
	Room string `json:"room" validate:"required,max=36"`
}

type LeaveRoom struct{}

type SendMessage struct {
	Channel string `json:"channel" validate:"required"`
	Content string `json:"content" validate:"required,max=500"`
}

type PerformAction struct {
	Action string `json:"action" validate:"required,max=36"`
	Target string `json:"target" validate:"max=36"`
}

type Rename struct {
	Name string `json:"name" validate:"required,max=36"`
}

type Ping struct{}

func (JoinLobby) Kind() EventKind     { return KindJoinLobby }
func (LeaveLobby) Kind() EventKind    { return KindLeaveLobby }
func (CreateRoom) Kind() EventKind    { return KindCreateRoom }
func (JoinRoom) Kind() EventKind      { return KindJoinRoom }
func (LeaveRoom) Kind() EventKind     { return KindLeaveRoom }
func (SendMessage) Kind() EventKind   { return KindSendMessage }
func (PerformAction) Kind() EventKind { return KindPerformAction }
func (Rename) Kind() EventKind       { return KindRename }
func (Ping) Kind() EventKind         { return KindPing }

var validate = validator.New()

// Decode parses one wire frame into its typed event. Payload
// constraints are enforced here so handlers never see an invalid
// event.
func Decode(data []byte) (Inbound, error) {
	var env struct {
		Type EventKind `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	var ev Inbound
	switch env.Type {
	case KindJoinLobby:
		ev = JoinLobby{}
	case KindLeaveLobby:
		ev = LeaveLobby{}
	case KindCreateRoom:
		ev = decodeInto[CreateRoom](data)
	case KindJoinRoom:
		ev = decodeInto[JoinRoom](data)
	case KindLeaveRoom:
		ev = LeaveRoom{}
	case KindSendMessage:
		ev = decodeInto[SendMessage](data)
	case KindPerformAction:
		ev = decodeInto[PerformAction](data)
	case KindRename:
		ev = decodeInto[Rename](data)
	case KindPing:
		ev = Ping{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, env.Type)
	}
	if ev == nil {
		return nil, ErrBadPayload
	}
	if err := validate.Struct(ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return ev, nil
}

func decodeInto[T Inbound](data []byte) Inbound {
	var p T
	if err := json.Unmarshal(data, &p); err != nil {
		return nil
	}
	return p
}
