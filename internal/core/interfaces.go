package core

import (
	"context"

	"github.com/dkeye/Nocturne/internal/domain"
)

// Frame is a raw encoded payload ready for the wire.
type Frame []byte

type SessionID string

// Conn abstracts the system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type Conn interface {
	TrySend(Frame) error
	Close()
}

// Identity is what the handshake service vouches for.
type Identity struct {
	UserID      domain.UserID
	DisplayName string
}

func (i Identity) User() *domain.User {
	return &domain.User{ID: i.UserID, DisplayName: i.DisplayName}
}

// Authenticator verifies a connection credential before any
// registry state is touched.
type Authenticator interface {
	Verify(ctx context.Context, credential string) (Identity, error)
}

// GameService is the rules/persistence collaborator. It owns all
// game semantics (roles, phases, host transfer); the registry never
// calls it directly, only the dispatcher does.
type GameService interface {
	PlayerStatus(ctx context.Context, roomID domain.RoomID, userID domain.UserID) (domain.PlayerStatus, error)
	Summary(ctx context.Context, roomID domain.RoomID) (domain.GameSummary, error)

	PlayerJoined(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error
	PlayerLeft(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error
	PerformAction(ctx context.Context, roomID domain.RoomID, userID domain.UserID, kind string, target domain.UserID) error
	HostTransfer(ctx context.Context, roomID domain.RoomID, leaving domain.UserID) error
}
