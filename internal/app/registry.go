package app

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Nocturne/internal/core"
	"github.com/dkeye/Nocturne/internal/domain"
)

// Timer is the cancellable handle behind a scheduled eviction.
type Timer interface {
	Stop() bool
}

type goTimer struct{ t *time.Timer }

func (g goTimer) Stop() bool { return g.t.Stop() }

type roomState struct {
	room domain.Room
	// Live connections, keyed by session. A user may hold more than
	// one concurrent session.
	sessions map[core.SessionID]*Session
	// Seats, keyed by user. The count is live sessions; it drops to
	// zero mid-grace while the seat itself survives.
	users map[domain.UserID]int
}

type disconnectRecord struct {
	userID domain.UserID
	roomID domain.RoomID
	since  time.Time
	timer  Timer
}

type RegistryOptions struct {
	GracePeriod   time.Duration
	SweepInterval time.Duration

	// OnEvict fires after a grace period expires without reconnection.
	// Runs outside the registry lock; host transfer and game cleanup
	// belong to the caller, never to the registry.
	OnEvict func(userID domain.UserID, roomID domain.RoomID)

	// Test hooks; default to time.Now and time.AfterFunc.
	Now       func() time.Time
	AfterFunc func(d time.Duration, f func()) Timer
}

// Registry owns all membership state: which sessions belong to which
// room, lobby membership, and the disconnect grace-period records.
// One mutex owns every map; all mutations run to completion under it.
type Registry struct {
	mu          sync.Mutex
	sessions    map[core.SessionID]*Session
	rooms       map[domain.RoomID]*roomState
	userRoom    map[domain.UserID]domain.RoomID
	lobby       map[core.SessionID]*Session
	disconnects map[domain.UserID]*disconnectRecord

	grace     time.Duration
	onEvict   func(domain.UserID, domain.RoomID)
	now       func() time.Time
	afterFunc func(time.Duration, func()) Timer

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewRegistry(opts RegistryOptions) *Registry {
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = func(d time.Duration, f func()) Timer {
			return goTimer{time.AfterFunc(d, f)}
		}
	}
	r := &Registry{
		sessions:    make(map[core.SessionID]*Session),
		rooms:       make(map[domain.RoomID]*roomState),
		userRoom:    make(map[domain.UserID]domain.RoomID),
		lobby:       make(map[core.SessionID]*Session),
		disconnects: make(map[domain.UserID]*disconnectRecord),
		grace:       opts.GracePeriod,
		onEvict:     opts.OnEvict,
		now:         opts.Now,
		afterFunc:   opts.AfterFunc,
		stopCh:      make(chan struct{}),
	}
	if opts.SweepInterval > 0 {
		r.wg.Add(1)
		go r.sweepLoop(opts.SweepInterval)
	}
	return r
}

// Register hands a freshly handshaken session to the registry.
func (r *Registry) Register(sess *Session) {
	r.mu.Lock()
	r.sessions[sess.ID] = sess
	r.mu.Unlock()
	log.Info().Str("module", "app.registry").Str("sid", string(sess.ID)).Str("uid", string(sess.User.ID)).Msg("session registered")
}

// JoinRoom moves the session into roomID, creating the room on first
// join. Any membership in another room is dropped first and any
// pending disconnect record for the user is cancelled. Repeated calls
// with the same room are idempotent.
func (r *Registry) JoinRoom(sess *Session, roomID domain.RoomID, name domain.RoomName) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelDisconnectLocked(sess.User.ID)
	r.joinLocked(sess, roomID, name)
}

func (r *Registry) joinLocked(sess *Session, roomID domain.RoomID, name domain.RoomName) {
	uid := sess.User.ID
	if prev, ok := r.userRoom[uid]; ok && prev != roomID {
		r.removeUserLocked(uid, prev)
	}
	rs, ok := r.rooms[roomID]
	if !ok {
		rs = &roomState{
			room:     domain.Room{ID: roomID, Name: name},
			sessions: make(map[core.SessionID]*Session),
			users:    make(map[domain.UserID]int),
		}
		r.rooms[roomID] = rs
		log.Info().Str("module", "app.registry").Str("room", string(roomID)).Msg("room created")
	}
	if _, dup := rs.sessions[sess.ID]; !dup {
		rs.sessions[sess.ID] = sess
		rs.users[uid]++
	}
	r.userRoom[uid] = roomID
	sess.room = roomID
	log.Info().Str("module", "app.registry").Str("sid", string(sess.ID)).Str("room", string(roomID)).Msg("joined room")
}

// LeaveRoom removes the session from its current room. The last
// member's departure deletes the room synchronously.
func (r *Registry) LeaveRoom(sess *Session) (domain.RoomID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(sess)
}

func (r *Registry) leaveLocked(sess *Session) (domain.RoomID, bool) {
	roomID := sess.room
	if roomID == "" {
		return "", false
	}
	rs, ok := r.rooms[roomID]
	if !ok {
		sess.room = ""
		return "", false
	}
	uid := sess.User.ID
	if _, live := rs.sessions[sess.ID]; live {
		delete(rs.sessions, sess.ID)
		rs.users[uid]--
	}
	if rs.users[uid] <= 0 {
		delete(rs.users, uid)
		delete(r.userRoom, uid)
	}
	sess.room = ""
	r.deleteRoomIfEmptyLocked(roomID, rs)
	log.Info().Str("module", "app.registry").Str("sid", string(sess.ID)).Str("room", string(roomID)).Msg("left room")
	return roomID, true
}

// removeUserLocked drops every session and the seat of uid from roomID.
func (r *Registry) removeUserLocked(uid domain.UserID, roomID domain.RoomID) {
	rs, ok := r.rooms[roomID]
	if !ok {
		delete(r.userRoom, uid)
		return
	}
	for sid, s := range rs.sessions {
		if s.User.ID == uid {
			delete(rs.sessions, sid)
			s.room = ""
		}
	}
	delete(rs.users, uid)
	delete(r.userRoom, uid)
	r.deleteRoomIfEmptyLocked(roomID, rs)
}

func (r *Registry) deleteRoomIfEmptyLocked(roomID domain.RoomID, rs *roomState) {
	if len(rs.users) == 0 {
		delete(r.rooms, roomID)
		log.Info().Str("module", "app.registry").Str("room", string(roomID)).Msg("room deleted")
	}
}

func (r *Registry) JoinLobby(sess *Session) {
	r.mu.Lock()
	r.lobby[sess.ID] = sess
	r.mu.Unlock()
}

func (r *Registry) LeaveLobby(sess *Session) {
	r.mu.Lock()
	delete(r.lobby, sess.ID)
	r.mu.Unlock()
}

// Rename swaps the session's display name. The user record is read
// by snapshots and broadcasts from other connections' goroutines, so
// the write happens under the registry lock like every other session
// mutation; the updated copy is returned for the caller's payloads.
func (r *Registry) Rename(sess *Session, name string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := sess.User.SetDisplayName(name); err != nil {
		return domain.User{}, err
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sess.ID)).Str("name", name).Msg("renamed")
	return *sess.User, nil
}

// RoomOf reports the session's current room.
func (r *Registry) RoomOf(sess *Session) (domain.RoomID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sess.room == "" {
		return "", false
	}
	return sess.room, true
}

// RoomOfUser reports the user's room, including a seat held mid-grace.
func (r *Registry) RoomOfUser(uid domain.UserID) (domain.RoomID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	roomID, ok := r.userRoom[uid]
	return roomID, ok
}

type RoomInfo struct {
	ID      domain.RoomID   `json:"id"`
	Name    domain.RoomName `json:"name"`
	Members int             `json:"members"`
}

func (r *Registry) Rooms() []RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RoomInfo, 0, len(r.rooms))
	for id, rs := range r.rooms {
		out = append(out, RoomInfo{ID: id, Name: rs.room.Name, Members: len(rs.users)})
	}
	return out
}

func (r *Registry) RoomName(roomID domain.RoomID) (domain.RoomName, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rs, ok := r.rooms[roomID]
	if !ok {
		return "", false
	}
	return rs.room.Name, true
}

// Snapshot lists the seated members of a room.
func (r *Registry) Snapshot(roomID domain.RoomID) []domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	rs, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	seen := make(map[domain.UserID]bool, len(rs.users))
	out := make([]domain.User, 0, len(rs.users))
	for _, s := range rs.sessions {
		if !seen[s.User.ID] {
			seen[s.User.ID] = true
			out = append(out, *s.User)
		}
	}
	return out
}

// members returns the live recipient snapshot for a room. Fan-out
// happens outside the lock against this snapshot.
func (r *Registry) members(roomID domain.RoomID) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	rs, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]*Session, 0, len(rs.sessions))
	for _, s := range rs.sessions {
		out = append(out, s)
	}
	return out
}

// BroadcastRoom fans a frame out to every live session in the room.
// Best effort: a session that cannot receive is skipped, not retried.
func (r *Registry) BroadcastRoom(roomID domain.RoomID, frame core.Frame) {
	for _, s := range r.members(roomID) {
		if err := s.Conn.TrySend(frame); err != nil {
			log.Warn().Str("module", "app.registry").Str("sid", string(s.ID)).Err(err).Msg("room send dropped")
		}
	}
}

// BroadcastRoomExcept is BroadcastRoom minus one session, for
// presence events the actor already knows about.
func (r *Registry) BroadcastRoomExcept(roomID domain.RoomID, except core.SessionID, frame core.Frame) {
	for _, s := range r.members(roomID) {
		if s.ID == except {
			continue
		}
		if err := s.Conn.TrySend(frame); err != nil {
			log.Warn().Str("module", "app.registry").Str("sid", string(s.ID)).Err(err).Msg("room send dropped")
		}
	}
}

func (r *Registry) BroadcastLobby(frame core.Frame) {
	r.mu.Lock()
	out := make([]*Session, 0, len(r.lobby))
	for _, s := range r.lobby {
		out = append(out, s)
	}
	r.mu.Unlock()
	for _, s := range out {
		if err := s.Conn.TrySend(frame); err != nil {
			log.Warn().Str("module", "app.registry").Str("sid", string(s.ID)).Err(err).Msg("lobby send dropped")
		}
	}
}

// Stop halts the sweep loop and waits for it.
func (r *Registry) Stop() {
	close(r.stopCh)
	r.wg.Wait()
}
