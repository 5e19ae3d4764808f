package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Nocturne/internal/core"
	"github.com/dkeye/Nocturne/internal/domain"
	"github.com/dkeye/Nocturne/internal/protocol"
)

// Dispatcher routes each inbound event through rate limiting, the
// channel policy, the rules collaborator and the registry, then fans
// the result out. Failures stop the pipeline and go back to the
// originating session only; a rejected step leaves no side effect
// behind.
type Dispatcher struct {
	Registry *Registry
	Policy   ChannelPolicy
	Limiter  *Limiter
	Games    core.GameService
}

// Attach registers a freshly handshaken session. A pending grace
// record turns this into a reconnect: the seat is restored, the
// session gets a full state-sync (it missed every interim event) and
// the room is told. Returns whether a seat was restored.
func (d *Dispatcher) Attach(ctx context.Context, sess *Session) bool {
	d.Registry.Register(sess)

	roomID, restored := d.Registry.HandleReconnect(sess)
	if !restored {
		return false
	}

	d.sendStateSync(ctx, sess, roomID)
	d.Registry.BroadcastRoomExcept(roomID, sess.ID, protocol.Encode(protocol.PresencePayload{
		Type: protocol.KindPlayerReconnected,
		Room: roomID,
		User: *sess.User,
	}))
	return true
}

// Detach retires a session whose transport closed. Eviction, if any,
// comes later from the grace-period machinery.
func (d *Dispatcher) Detach(sess *Session) {
	roomID, inRoom := d.Registry.HandleDisconnect(sess)
	if !inRoom {
		return
	}
	d.Registry.BroadcastRoom(roomID, protocol.Encode(protocol.PresencePayload{
		Type: protocol.KindPlayerDisconnect,
		Room: roomID,
		User: *sess.User,
	}))
}

// HandleEviction is wired as the registry's OnEvict callback. Host
// transfer and game-side cleanup are rules-service business.
func (d *Dispatcher) HandleEviction(uid domain.UserID, roomID domain.RoomID) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	summary, err := d.Games.Summary(ctx, roomID)
	if err == nil && summary.CreatorID == uid {
		if err := d.Games.HostTransfer(ctx, roomID, uid); err != nil {
			log.Error().Str("module", "app.dispatcher").Err(err).Str("room", string(roomID)).Msg("host transfer failed")
		}
	}
	if err := d.Games.PlayerLeft(ctx, roomID, uid); err != nil {
		log.Error().Str("module", "app.dispatcher").Err(err).Str("room", string(roomID)).Msg("player-left cleanup failed")
	}

	d.Registry.BroadcastRoom(roomID, protocol.Encode(protocol.PresencePayload{
		Type: protocol.KindPlayerLeft,
		Room: roomID,
		User: domain.User{ID: uid},
	}))
	log.Info().Str("module", "app.dispatcher").Str("uid", string(uid)).Str("room", string(roomID)).Msg("evicted after grace period")
}

// HandleFrame runs one inbound frame through the pipeline.
func (d *Dispatcher) HandleFrame(ctx context.Context, sess *Session, data []byte) {
	ev, err := protocol.Decode(data)
	if err != nil {
		log.Warn().Str("module", "app.dispatcher").Str("sid", string(sess.ID)).Err(err).Msg("bad frame")
		d.send(sess, protocol.ErrorFrame(core.ValidationError(err.Error())))
		return
	}

	if !d.Limiter.Allow(sess.User.ID, ev.Kind()) {
		d.send(sess, protocol.RateLimitedFrame(ev.Kind()))
		return
	}

	if err := d.route(ctx, sess, ev); err != nil {
		e := core.AsError(err)
		if e.Code == core.CodeInternal || e.Code == core.CodeUpstream {
			log.Error().Str("module", "app.dispatcher").Str("sid", string(sess.ID)).Err(err).Str("kind", string(ev.Kind())).Msg("handler failed")
		}
		d.send(sess, protocol.ErrorFrame(e))
	}
}

func (d *Dispatcher) route(ctx context.Context, sess *Session, ev protocol.Inbound) error {
	switch ev := ev.(type) {
	case protocol.JoinLobby:
		return d.handleJoinLobby(sess)
	case protocol.LeaveLobby:
		d.Registry.LeaveLobby(sess)
		return nil
	case protocol.CreateRoom:
		return d.handleCreateRoom(ctx, sess, ev)
	case protocol.JoinRoom:
		return d.handleJoinRoom(ctx, sess, ev)
	case protocol.LeaveRoom:
		return d.handleLeaveRoom(ctx, sess)
	case protocol.SendMessage:
		return d.handleSendMessage(ctx, sess, ev)
	case protocol.PerformAction:
		return d.handlePerformAction(ctx, sess, ev)
	case protocol.Rename:
		return d.handleRename(sess, ev)
	case protocol.Ping:
		d.send(sess, protocol.AckFrame(protocol.KindPong))
		return nil
	}
	return core.ValidationError("unroutable event")
}

func (d *Dispatcher) handleJoinLobby(sess *Session) error {
	d.Registry.JoinLobby(sess)

	rooms := d.Registry.Rooms()
	out := make([]protocol.RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, protocol.RoomSummary{ID: r.ID, Name: r.Name, Members: r.Members})
	}
	d.send(sess, protocol.Encode(protocol.LobbyStatePayload{Type: protocol.KindLobbyState, Rooms: out}))
	return nil
}

func (d *Dispatcher) handleCreateRoom(ctx context.Context, sess *Session, ev protocol.CreateRoom) error {
	name, err := domain.NewRoomName(ev.Name)
	if err != nil {
		return core.ValidationError(err.Error())
	}
	roomID := domain.RoomID(uuid.NewString())

	prev, err := d.leavePreviousGame(ctx, sess, roomID)
	if err != nil {
		return err
	}
	if err := d.Games.PlayerJoined(ctx, roomID, sess.User.ID); err != nil {
		return core.UpstreamError(err)
	}
	d.Registry.JoinRoom(sess, roomID, name)
	d.announceRelocation(prev, sess)

	d.send(sess, protocol.Encode(protocol.RoomCreatedPayload{Type: protocol.KindRoomCreated, Room: roomID, Name: name}))
	d.sendRoomState(sess, roomID)
	d.Registry.BroadcastLobby(protocol.Encode(protocol.RoomCreatedPayload{Type: protocol.KindRoomCreated, Room: roomID, Name: name}))
	return nil
}

func (d *Dispatcher) handleJoinRoom(ctx context.Context, sess *Session, ev protocol.JoinRoom) error {
	roomID := domain.RoomID(ev.Room)

	summary, err := d.Games.Summary(ctx, roomID)
	if err != nil {
		return core.UpstreamError(err)
	}
	if summary.MaxPlayers > 0 && summary.PlayerCount >= summary.MaxPlayers {
		return core.ValidationError("room is full")
	}

	prev, err := d.leavePreviousGame(ctx, sess, roomID)
	if err != nil {
		return err
	}
	if err := d.Games.PlayerJoined(ctx, roomID, sess.User.ID); err != nil {
		return core.UpstreamError(err)
	}

	name, _ := d.Registry.RoomName(roomID)
	d.Registry.JoinRoom(sess, roomID, name)
	d.announceRelocation(prev, sess)

	d.sendRoomState(sess, roomID)
	d.Registry.BroadcastRoomExcept(roomID, sess.ID, protocol.Encode(protocol.PresencePayload{
		Type: protocol.KindPlayerJoined,
		Room: roomID,
		User: *sess.User,
	}))
	return nil
}

func (d *Dispatcher) handleLeaveRoom(ctx context.Context, sess *Session) error {
	roomID, ok := d.Registry.RoomOf(sess)
	if !ok {
		return core.NewError(core.CodeNotInRoom, "not in a room")
	}

	if err := d.Games.PlayerLeft(ctx, roomID, sess.User.ID); err != nil {
		return core.UpstreamError(err)
	}
	d.Registry.LeaveRoom(sess)

	d.send(sess, protocol.AckFrame(protocol.KindLeft))
	d.Registry.BroadcastRoom(roomID, protocol.Encode(protocol.PresencePayload{
		Type: protocol.KindPlayerLeft,
		Room: roomID,
		User: *sess.User,
	}))
	return nil
}

// leavePreviousGame releases the user's seat at the rules service
// before a relocation, so the game never counts one user twice. The
// registry-side move happens later inside JoinRoom; this mirrors the
// explicit leave-room path for the game side.
func (d *Dispatcher) leavePreviousGame(ctx context.Context, sess *Session, next domain.RoomID) (domain.RoomID, error) {
	prev, ok := d.Registry.RoomOfUser(sess.User.ID)
	if !ok || prev == next {
		return "", nil
	}
	if err := d.Games.PlayerLeft(ctx, prev, sess.User.ID); err != nil {
		return "", core.UpstreamError(err)
	}
	return prev, nil
}

// announceRelocation tells the room a relocated user left behind, if
// any, that the seat is gone. Called after JoinRoom removed the user,
// so the departing user never receives their own departure.
func (d *Dispatcher) announceRelocation(prev domain.RoomID, sess *Session) {
	if prev == "" {
		return
	}
	d.Registry.BroadcastRoom(prev, protocol.Encode(protocol.PresencePayload{
		Type: protocol.KindPlayerLeft,
		Room: prev,
		User: *sess.User,
	}))
}

func (d *Dispatcher) handleSendMessage(ctx context.Context, sess *Session, ev protocol.SendMessage) error {
	ch, err := domain.ParseChannel(ev.Channel)
	if err != nil {
		return core.ValidationError(err.Error())
	}
	roomID, ok := d.Registry.RoomOf(sess)
	if !ok {
		return core.NewError(core.CodeNotInRoom, "not in a room")
	}

	st, err := d.Games.PlayerStatus(ctx, roomID, sess.User.ID)
	if err != nil {
		return core.UpstreamError(err)
	}
	acc := d.Policy.Check(ch, st)
	if !acc.CanWrite {
		return core.NewError(core.CodeChannelDenied, acc.Reason)
	}

	frame := protocol.Encode(protocol.MessagePayload{
		Type:    protocol.KindMessage,
		Channel: ch,
		From:    *sess.User,
		Content: ev.Content,
	})

	// Read side of the filter: each member's own fresh status decides
	// whether the message reaches them. One lookup per user per event.
	statuses := make(map[domain.UserID]domain.PlayerStatus)
	statuses[sess.User.ID] = st
	for _, member := range d.Registry.members(roomID) {
		mst, ok := statuses[member.User.ID]
		if !ok {
			var err error
			mst, err = d.Games.PlayerStatus(ctx, roomID, member.User.ID)
			if err != nil {
				log.Warn().Str("module", "app.dispatcher").Str("uid", string(member.User.ID)).Err(err).Msg("recipient status lookup failed, skipping")
				continue
			}
			statuses[member.User.ID] = mst
		}
		if !d.Policy.Check(ch, mst).CanRead {
			continue
		}
		if err := member.Conn.TrySend(frame); err != nil {
			log.Warn().Str("module", "app.dispatcher").Str("sid", string(member.ID)).Err(err).Msg("message send dropped")
		}
	}
	return nil
}

func (d *Dispatcher) handlePerformAction(ctx context.Context, sess *Session, ev protocol.PerformAction) error {
	roomID, ok := d.Registry.RoomOf(sess)
	if !ok {
		return core.NewError(core.CodeNotInRoom, "not in a room")
	}
	if err := d.Games.PerformAction(ctx, roomID, sess.User.ID, ev.Action, domain.UserID(ev.Target)); err != nil {
		return core.UpstreamError(err)
	}
	d.send(sess, protocol.AckFrame(protocol.KindActionAck))
	return nil
}

func (d *Dispatcher) handleRename(sess *Session, ev protocol.Rename) error {
	user, err := d.Registry.Rename(sess, ev.Name)
	if err != nil {
		return core.ValidationError(err.Error())
	}
	d.send(sess, protocol.Encode(protocol.RenamedPayload{Type: protocol.KindRenamed, User: user}))
	if roomID, ok := d.Registry.RoomOf(sess); ok {
		d.Registry.BroadcastRoomExcept(roomID, sess.ID, protocol.Encode(protocol.RenamedPayload{
			Type: protocol.KindRenamed,
			User: user,
		}))
	}
	return nil
}

func (d *Dispatcher) sendRoomState(sess *Session, roomID domain.RoomID) {
	name, _ := d.Registry.RoomName(roomID)
	members := d.memberViews(roomID)
	d.send(sess, protocol.Encode(protocol.RoomStatePayload{
		Type:    protocol.KindRoomState,
		Room:    roomID,
		Name:    name,
		Members: members,
		Count:   len(members),
	}))
}

func (d *Dispatcher) sendStateSync(ctx context.Context, sess *Session, roomID domain.RoomID) {
	name, _ := d.Registry.RoomName(roomID)
	payload := protocol.StateSyncPayload{
		Type:    protocol.KindStateSync,
		Room:    roomID,
		Name:    name,
		Members: d.memberViews(roomID),
	}
	if summary, err := d.Games.Summary(ctx, roomID); err == nil {
		payload.Game = summary
	} else {
		log.Error().Str("module", "app.dispatcher").Err(err).Str("room", string(roomID)).Msg("state sync summary failed")
	}
	d.send(sess, protocol.Encode(payload))
}

func (d *Dispatcher) memberViews(roomID domain.RoomID) []protocol.MemberView {
	users := d.Registry.Snapshot(roomID)
	out := make([]protocol.MemberView, 0, len(users))
	for _, u := range users {
		out = append(out, protocol.MemberView{ID: u.ID, DisplayName: u.DisplayName})
	}
	return out
}

func (d *Dispatcher) send(sess *Session, frame core.Frame) {
	if err := sess.Conn.TrySend(frame); err != nil {
		log.Warn().Str("module", "app.dispatcher").Str("sid", string(sess.ID)).Err(err).Msg("reply dropped")
	}
}
