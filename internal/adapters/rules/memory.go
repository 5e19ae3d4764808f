// Package rules holds the built-in game-rules adapter. The real
// rules engine lives in another service; InMemory implements just
// enough of core.GameService to run the server standalone.
package rules

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Nocturne/internal/domain"
)

var ErrGameNotFound = errors.New("game not found")

const defaultMaxPlayers = 12

type game struct {
	creator domain.UserID
	players map[domain.UserID]domain.PlayerStatus
	phase   domain.Phase
}

// InMemory keeps one game per room. Every player is an alive
// villager in the waiting phase; role assignment and night
// resolution are the external engine's job.
type InMemory struct {
	mu    sync.Mutex
	games map[domain.RoomID]*game
}

func NewInMemory() *InMemory {
	return &InMemory{games: make(map[domain.RoomID]*game)}
}

func (m *InMemory) PlayerStatus(_ context.Context, roomID domain.RoomID, userID domain.UserID) (domain.PlayerStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[roomID]
	if !ok {
		return domain.PlayerStatus{}, ErrGameNotFound
	}
	st, ok := g.players[userID]
	if !ok {
		return domain.PlayerStatus{}, ErrGameNotFound
	}
	st.Phase = g.phase
	return st, nil
}

func (m *InMemory) Summary(_ context.Context, roomID domain.RoomID) (domain.GameSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[roomID]
	if !ok {
		return domain.GameSummary{}, ErrGameNotFound
	}
	status := "waiting"
	if g.phase != domain.PhaseWaiting {
		status = "started"
	}
	return domain.GameSummary{
		CreatorID:   g.creator,
		PlayerCount: len(g.players),
		MaxPlayers:  defaultMaxPlayers,
		Status:      status,
	}, nil
}

func (m *InMemory) PlayerJoined(_ context.Context, roomID domain.RoomID, userID domain.UserID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[roomID]
	if !ok {
		g = &game{
			creator: userID,
			players: make(map[domain.UserID]domain.PlayerStatus),
			phase:   domain.PhaseWaiting,
		}
		m.games[roomID] = g
	}
	g.players[userID] = domain.PlayerStatus{Alive: true, Role: domain.RoleVillager, Phase: g.phase}
	return nil
}

func (m *InMemory) PlayerLeft(_ context.Context, roomID domain.RoomID, userID domain.UserID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[roomID]
	if !ok {
		return nil
	}
	delete(g.players, userID)
	if len(g.players) == 0 {
		delete(m.games, roomID)
	}
	return nil
}

func (m *InMemory) PerformAction(_ context.Context, roomID domain.RoomID, userID domain.UserID, kind string, target domain.UserID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[roomID]
	if !ok {
		return ErrGameNotFound
	}
	if _, ok := g.players[userID]; !ok {
		return ErrGameNotFound
	}
	// Night resolution is out of scope here; just log the intent.
	log.Info().Str("module", "rules.memory").Str("room", string(roomID)).Str("uid", string(userID)).Str("action", kind).Str("target", string(target)).Msg("action recorded")
	return nil
}

func (m *InMemory) HostTransfer(_ context.Context, roomID domain.RoomID, leaving domain.UserID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[roomID]
	if !ok {
		return ErrGameNotFound
	}
	if g.creator != leaving {
		return nil
	}
	for uid := range g.players {
		if uid != leaving {
			g.creator = uid
			log.Info().Str("module", "rules.memory").Str("room", string(roomID)).Str("new_host", string(uid)).Msg("host transferred")
			break
		}
	}
	return nil
}
