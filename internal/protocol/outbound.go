package protocol

import (
	"encoding/json"

	"github.com/dkeye/Nocturne/internal/core"
	"github.com/dkeye/Nocturne/internal/domain"
)

// MemberView is a read-only member snapshot for clients
// (no transport fields).
type MemberView struct {
	ID          domain.UserID `json:"id"`
	DisplayName string        `json:"display_name"`
}

type RoomStatePayload struct {
	Type    EventKind       `json:"type"`
	Room    domain.RoomID   `json:"room"`
	Name    domain.RoomName `json:"name"`
	Members []MemberView    `json:"members"`
	Count   int             `json:"count"`
}

type PresencePayload struct {
	Type EventKind     `json:"type"`
	Room domain.RoomID `json:"room"`
	User domain.User   `json:"user"`
}

type MessagePayload struct {
	Type    EventKind      `json:"type"`
	Channel domain.Channel `json:"channel"`
	From    domain.User    `json:"from"`
	Content string         `json:"content"`
}

type ErrorPayload struct {
	Type   EventKind `json:"type"`
	Code   core.Code `json:"code"`
	Reason string    `json:"reason,omitempty"`
}

type RateLimitedPayload struct {
	Type  EventKind `json:"type"`
	Event EventKind `json:"event"`
}

type RoomCreatedPayload struct {
	Type EventKind       `json:"type"`
	Room domain.RoomID   `json:"room"`
	Name domain.RoomName `json:"name"`
}

type StateSyncPayload struct {
	Type    EventKind          `json:"type"`
	Room    domain.RoomID      `json:"room"`
	Name    domain.RoomName    `json:"name"`
	Members []MemberView       `json:"members"`
	Game    domain.GameSummary `json:"game"`
}

type RoomSummary struct {
	ID      domain.RoomID   `json:"id"`
	Name    domain.RoomName `json:"name"`
	Members int             `json:"members"`
}

type LobbyStatePayload struct {
	Type  EventKind     `json:"type"`
	Rooms []RoomSummary `json:"rooms"`
}

type RenamedPayload struct {
	Type EventKind   `json:"type"`
	User domain.User `json:"user"`
}

type AckPayload struct {
	Type EventKind `json:"type"`
}

// Encode marshals an outbound payload into a wire frame. Payload
// types are our own, so a marshal failure is a programming error;
// callers treat an empty frame as unsendable.
func Encode(v any) core.Frame {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

func ErrorFrame(e *core.Error) core.Frame {
	return Encode(ErrorPayload{Type: KindError, Code: e.Code, Reason: e.Reason})
}

func RateLimitedFrame(kind EventKind) core.Frame {
	return Encode(RateLimitedPayload{Type: KindRateLimited, Event: kind})
}

func AckFrame(kind EventKind) core.Frame {
	return Encode(AckPayload{Type: kind})
}
