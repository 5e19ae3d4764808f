package app

import (
	"github.com/dkeye/Nocturne/internal/core"
	"github.com/dkeye/Nocturne/internal/domain"
)

// Session is the registry's record of one live connection, distinct
// from the underlying transport object. Created once at handshake;
// the registry owns it from Register to transport close and is the
// only component that mutates it.
type Session struct {
	ID   core.SessionID
	User *domain.User
	Conn core.Conn

	// room is the session's current room, "" when not in one.
	// Guarded by the registry mutex.
	room domain.RoomID
}

func NewSession(id core.SessionID, user *domain.User, conn core.Conn) *Session {
	return &Session{ID: id, User: user, Conn: conn}
}
