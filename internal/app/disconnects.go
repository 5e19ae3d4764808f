package app

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Nocturne/internal/domain"
)

// Disconnect handling. A transport drop does not evict: the user's
// seat survives for the grace period behind a disconnectRecord, with
// a per-record timer for the common case and a periodic sweep as a
// backstop. Both paths converge on takeDisconnectLocked, which
// compares record identity so that reconnection and expiry stay
// mutually exclusive: exactly one of {restore, evict} wins.

// HandleDisconnect retires a closed session. If the user is in a room
// and this was their last live session, a grace-period record is
// created and a single-shot eviction scheduled; the room id is
// returned so the caller can announce the temporary disconnect. When
// another live session keeps the seat warm nothing is announced: the
// user never left the room.
func (r *Registry) HandleDisconnect(sess *Session) (domain.RoomID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, sess.ID)
	delete(r.lobby, sess.ID)

	uid := sess.User.ID
	roomID := sess.room
	if roomID == "" {
		log.Info().Str("module", "app.registry").Str("sid", string(sess.ID)).Msg("disconnected outside room")
		return "", false
	}
	rs, ok := r.rooms[roomID]
	if !ok {
		sess.room = ""
		return "", false
	}

	delete(rs.sessions, sess.ID)
	rs.users[uid]--
	sess.room = ""
	if rs.users[uid] > 0 {
		// Another live session keeps the seat warm; no grace needed
		// and nothing for the room to be told.
		return "", false
	}

	rec := &disconnectRecord{userID: uid, roomID: roomID, since: r.now()}
	rec.timer = r.afterFunc(r.grace, func() { r.evictExpired(rec) })
	r.disconnects[uid] = rec
	log.Info().Str("module", "app.registry").Str("uid", string(uid)).Str("room", string(roomID)).Dur("grace", r.grace).Msg("grace period started")
	return roomID, true
}

// HandleReconnect restores the user's seat for a fresh session if a
// grace record is still pending. A record already taken by eviction
// means the caller must treat the user as a fresh join.
func (r *Registry) HandleReconnect(sess *Session) (domain.RoomID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.disconnects[sess.User.ID]
	if !ok {
		return "", false
	}
	if !r.takeDisconnectLocked(rec) {
		return "", false
	}
	name := domain.RoomName("")
	if rs, ok := r.rooms[rec.roomID]; ok {
		name = rs.room.Name
	}
	r.joinLocked(sess, rec.roomID, name)
	log.Info().Str("module", "app.registry").Str("uid", string(rec.userID)).Str("room", string(rec.roomID)).Msg("reconnected within grace")
	return rec.roomID, true
}

// takeDisconnectLocked is the single cancel-then-act primitive. It
// claims rec if and only if it is still the user's current record;
// the caller then owns the terminal transition.
func (r *Registry) takeDisconnectLocked(rec *disconnectRecord) bool {
	cur, ok := r.disconnects[rec.userID]
	if !ok || cur != rec {
		return false
	}
	delete(r.disconnects, rec.userID)
	if rec.timer != nil {
		rec.timer.Stop()
	}
	return true
}

func (r *Registry) cancelDisconnectLocked(uid domain.UserID) {
	if rec, ok := r.disconnects[uid]; ok {
		r.takeDisconnectLocked(rec)
	}
}

// evictExpired is the timer path. It no-ops if a reconnection already
// claimed the record.
func (r *Registry) evictExpired(rec *disconnectRecord) {
	r.mu.Lock()
	if !r.takeDisconnectLocked(rec) {
		r.mu.Unlock()
		return
	}
	r.evictSeatLocked(rec)
	r.mu.Unlock()

	if r.onEvict != nil {
		r.onEvict(rec.userID, rec.roomID)
	}
}

func (r *Registry) evictSeatLocked(rec *disconnectRecord) {
	if roomID, ok := r.userRoom[rec.userID]; ok && roomID == rec.roomID {
		r.removeUserLocked(rec.userID, roomID)
	}
	log.Info().Str("module", "app.registry").Str("uid", string(rec.userID)).Str("room", string(rec.roomID)).Msg("grace expired, seat evicted")
}

// SweepExpired is the defensive backstop against lost timers. Safe to
// run concurrently with reconnections: it claims each record through
// the same primitive the timer uses.
func (r *Registry) SweepExpired() {
	now := r.now()

	r.mu.Lock()
	var expired []*disconnectRecord
	for _, rec := range r.disconnects {
		if now.Sub(rec.since) >= r.grace {
			expired = append(expired, rec)
		}
	}
	var evicted []*disconnectRecord
	for _, rec := range expired {
		if r.takeDisconnectLocked(rec) {
			r.evictSeatLocked(rec)
			evicted = append(evicted, rec)
		}
	}
	r.mu.Unlock()

	for _, rec := range evicted {
		if r.onEvict != nil {
			r.onEvict(rec.userID, rec.roomID)
		}
	}
}

func (r *Registry) sweepLoop(interval time.Duration) {
	defer r.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.SweepExpired()
		case <-r.stopCh:
			return
		}
	}
}

// PendingDisconnects reports users currently mid-grace, for stats.
func (r *Registry) PendingDisconnects() []domain.UserID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.UserID, 0, len(r.disconnects))
	for uid := range r.disconnects {
		out = append(out, uid)
	}
	return out
}
