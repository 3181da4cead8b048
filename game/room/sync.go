package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/letterquest/client-go/game/state"
	"github.com/letterquest/client-go/transport/socket"
	"github.com/letterquest/client-go/validate"
)

var (
	// ErrNoLister is returned by FetchRooms when no HTTP room lister was
	// configured.
	ErrNoLister = errors.New("room listing requires an API client")
)

// ValidationError is a client-side precondition failure detected before
// any network call is made.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Connection is the slice of the shared channel the synchronizer needs.
// *socket.Conn satisfies it.
type Connection interface {
	Request(ctx context.Context, event string, payload any) (json.RawMessage, error)
	Subscribe(event string, fn socket.Handler) *socket.Subscription
}

// Lister fetches the joinable-room list over the HTTP collaborator. It is
// optional; without one, FetchRooms fails with ErrNoLister.
type Lister interface {
	ListRooms(ctx context.Context, status state.RoomStatus, page, pageSize int) ([]state.Room, error)
}

// Config carries the synchronizer's collaborators
type Config struct {
	// Lister serves FetchRooms. Optional.
	Lister Lister

	// Logger receives reconciliation logs. Defaults to a no-op.
	Logger *zerolog.Logger
}

// CreateRoomSpec is the payload of a room:create request
type CreateRoomSpec struct {
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
}

// JoinRoomSpec is the payload of a room:join request
type JoinRoomSpec struct {
	RoomID    string `json:"room_id"`
	Username  string `json:"username"`
	Character string `json:"character,omitempty"`
	Password  string `json:"password,omitempty"`
}

type leaveRequest struct {
	RoomID string `json:"room_id"`
}

type selectCharacterRequest struct {
	RoomID    string `json:"room_id"`
	Character string `json:"character"`
}

type toggleReadyRequest struct {
	RoomID string `json:"room_id"`
	Ready  bool   `json:"ready"`
}

type startGameRequest struct {
	RoomID string `json:"room_id"`
}

type ackReply struct {
	Message string `json:"message,omitempty"`
}

// Sync reconciles the local room view with the server. One Sync serves the
// whole process; it shares the connection with the game synchronizer.
type Sync struct {
	conn   Connection
	lister Lister
	log    zerolog.Logger

	mu       sync.RWMutex
	playerID string
	rooms    []state.Room
	current  state.Room
	lastErr  error
	subs     []*socket.Subscription
}

// NewSync creates a room synchronizer on the shared connection.
func NewSync(conn Connection, cfg Config) *Sync {
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	return &Sync{
		conn:   conn,
		lister: cfg.Lister,
		log:    log,
	}
}

// SetLocalPlayer records the local player's identity, used for the
// character-conflict precheck and join bookkeeping.
func (s *Sync) SetLocalPlayer(playerID string) {
	s.mu.Lock()
	s.playerID = playerID
	s.mu.Unlock()
}

// Start registers the roster broadcast handlers. Calling Start twice is a
// no-op; Stop releases everything Start acquired.
func (s *Sync) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.subs) > 0 {
		return
	}
	s.subs = []*socket.Subscription{
		s.conn.Subscribe(state.EventPlayerJoined, s.onPlayerJoined),
		s.conn.Subscribe(state.EventPlayerLeft, s.onPlayerLeft),
		s.conn.Subscribe(state.EventPlayerDisconnected, s.onPlayerDisconnected),
		s.conn.Subscribe(state.EventPlayerReconnected, s.onPlayerReconnected),
		s.conn.Subscribe(state.EventCharacterSelected, s.onCharacterSelected),
		s.conn.Subscribe(state.EventReadyChanged, s.onReadyChanged),
	}
}

// Stop releases the broadcast subscriptions registered by Start. It is
// safe to call on every teardown path, including after a failed Start.
func (s *Sync) Stop() {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
}

// Rooms returns the cached joinable-room list.
func (s *Sync) Rooms() []state.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]state.Room, len(s.rooms))
	for i, r := range s.rooms {
		out[i] = r.Clone()
	}
	return out
}

// CurrentRoom returns a copy of the room the local player occupies, or the
// zero Room when not in one.
func (s *Sync) CurrentRoom() state.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// LastError returns the most recent operation error. It is never cleared
// automatically; call ClearError before the next operation.
func (s *Sync) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// ClearError resets the shared error field.
func (s *Sync) ClearError() {
	s.mu.Lock()
	s.lastErr = nil
	s.mu.Unlock()
}

func (s *Sync) setErr(err error) error {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	return err
}

// FetchRooms replaces the cached room list wholesale. On failure the cache
// is cleared rather than preserved, so consumers never render a list the
// server may no longer agree with.
func (s *Sync) FetchRooms(ctx context.Context, status state.RoomStatus, page, pageSize int) ([]state.Room, error) {
	if err := validate.Pagination(page, pageSize); err != nil {
		return nil, s.setErr(&ValidationError{Message: err.Error()})
	}
	if s.lister == nil {
		return nil, s.setErr(ErrNoLister)
	}

	rooms, err := s.lister.ListRooms(ctx, status, page, pageSize)
	if err != nil {
		s.mu.Lock()
		s.rooms = nil
		s.mu.Unlock()
		return nil, s.setErr(fmt.Errorf("fetch rooms: %w", err))
	}

	s.mu.Lock()
	s.rooms = rooms
	s.mu.Unlock()
	return rooms, nil
}

// CreateRoom asks the server to create a room. On success the reply's room
// snapshot becomes the current room wholesale; on failure nothing changes
// locally.
func (s *Sync) CreateRoom(ctx context.Context, spec CreateRoomSpec) (state.Room, error) {
	if err := validate.RoomName(spec.Name); err != nil {
		return state.Room{}, s.setErr(&ValidationError{Message: err.Error()})
	}
	if err := validate.Username(spec.Username); err != nil {
		return state.Room{}, s.setErr(&ValidationError{Message: err.Error()})
	}

	return s.requestRoom(ctx, state.EventRoomCreate, spec)
}

// JoinRoom asks the server to admit the local player to a room. On success
// the reply's room snapshot becomes the current room wholesale; on failure
// nothing changes locally and the server's message lands in LastError.
func (s *Sync) JoinRoom(ctx context.Context, spec JoinRoomSpec) (state.Room, error) {
	if err := validate.Username(spec.Username); err != nil {
		return state.Room{}, s.setErr(&ValidationError{Message: err.Error()})
	}
	if spec.Character != "" {
		if err := validate.Character(spec.Character); err != nil {
			return state.Room{}, s.setErr(&ValidationError{Message: err.Error()})
		}
	}

	return s.requestRoom(ctx, state.EventRoomJoin, spec)
}

func (s *Sync) requestRoom(ctx context.Context, event string, payload any) (state.Room, error) {
	data, err := s.conn.Request(ctx, event, payload)
	if err != nil {
		return state.Room{}, s.setErr(err)
	}

	var room state.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return state.Room{}, s.setErr(fmt.Errorf("decode %s reply: %w", event, err))
	}

	s.mu.Lock()
	s.current = room.Clone()
	s.mu.Unlock()

	s.log.Info().Str("room", room.ID).Str("event", event).Msg("current room replaced")
	return room, nil
}

// LeaveRoom issues a leave request. On success the current room is cleared
// to empty regardless of its prior content.
func (s *Sync) LeaveRoom(ctx context.Context, roomID string) error {
	if _, err := s.conn.Request(ctx, state.EventRoomLeave, leaveRequest{RoomID: roomID}); err != nil {
		return s.setErr(err)
	}

	s.mu.Lock()
	s.current = state.Room{}
	s.mu.Unlock()

	s.log.Info().Str("room", roomID).Msg("left room")
	return nil
}

// SelectCharacter claims a character for the local player. A claim already
// held by a different player in the local roster short-circuits with a
// ValidationError before any network round trip; simultaneous claims the
// client cannot see are resolved by the server's accept or reject.
func (s *Sync) SelectCharacter(ctx context.Context, roomID, character string) error {
	if err := validate.Character(character); err != nil {
		return s.setErr(&ValidationError{Message: err.Error()})
	}

	s.mu.RLock()
	holder := s.current.CharacterTakenBy(character, s.playerID)
	playerID := s.playerID
	s.mu.RUnlock()
	if holder != "" {
		return s.setErr(&ValidationError{
			Message: fmt.Sprintf("character %q is already taken", character),
		})
	}

	data, err := s.conn.Request(ctx, state.EventRoomSelectCharacter, selectCharacterRequest{
		RoomID:    roomID,
		Character: character,
	})
	if err != nil {
		return s.setErr(err)
	}

	// The reply may carry an authoritative room snapshot; otherwise patch
	// the local player's claim.
	var room state.Room
	if err := json.Unmarshal(data, &room); err == nil && !room.IsEmpty() {
		s.mu.Lock()
		s.current = room.Clone()
		s.mu.Unlock()
		return nil
	}

	s.mu.Lock()
	s.patchPlayerLocked(playerID, func(p *state.Player) {
		p.Character = character
	})
	s.mu.Unlock()
	return nil
}

// ToggleReady sets the local player's ready flag. The server acks with a
// message; the local roster is patched optimistically and reconciled by
// the ready_changed broadcast.
func (s *Sync) ToggleReady(ctx context.Context, roomID string, ready bool) (string, error) {
	data, err := s.conn.Request(ctx, state.EventRoomToggleReady, toggleReadyRequest{
		RoomID: roomID,
		Ready:  ready,
	})
	if err != nil {
		return "", s.setErr(err)
	}

	var reply ackReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return "", s.setErr(fmt.Errorf("decode ready reply: %w", err))
	}

	s.mu.Lock()
	s.patchPlayerLocked(s.playerID, func(p *state.Player) {
		p.Ready = ready
	})
	s.mu.Unlock()
	return reply.Message, nil
}

// StartGame asks the server to start the game in the given room. Only the
// server decides whether the room is ready to start.
func (s *Sync) StartGame(ctx context.Context, roomID string) error {
	if _, err := s.conn.Request(ctx, state.EventRoomStartGame, startGameRequest{RoomID: roomID}); err != nil {
		return s.setErr(err)
	}
	return nil
}

// Reset drops the current room without contacting the server, used after a
// disconnect the client does not intend to rejoin from.
func (s *Sync) Reset() {
	s.mu.Lock()
	s.current = state.Room{}
	s.mu.Unlock()
}

// patchPlayerLocked mutates one roster entry in place. Callers hold s.mu.
func (s *Sync) patchPlayerLocked(playerID string, patch func(*state.Player)) {
	for i := range s.current.Players {
		if s.current.Players[i].ID == playerID {
			patch(&s.current.Players[i])
			return
		}
	}
}

// Broadcast reconciliation. Handlers run on the connection's read
// goroutine, so they apply in delivery order.

func (s *Sync) onPlayerJoined(data json.RawMessage) {
	var ev state.PlayerJoinedEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		s.log.Warn().Err(err).Msg("bad player_joined payload")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current.IsEmpty() {
		return
	}
	if s.current.HasPlayer(ev.PlayerID) {
		// Duplicate delivery; the roster already reflects this join.
		return
	}
	s.current.Players = append(s.current.Players, state.Player{
		ID:        ev.PlayerID,
		Username:  ev.Username,
		Connected: true,
		JoinedAt:  time.Now(),
	})
	s.current.Occupancy = len(s.current.Players)
	s.log.Debug().Str("player", ev.PlayerID).Int("occupancy", s.current.Occupancy).Msg("player joined")
}

func (s *Sync) onPlayerLeft(data json.RawMessage) {
	var ev state.PlayerLeftEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		s.log.Warn().Err(err).Msg("bad player_left payload")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current.IsEmpty() {
		return
	}

	players := s.current.Players[:0]
	for _, p := range s.current.Players {
		if p.ID != ev.PlayerID {
			players = append(players, p)
		}
	}
	s.current.Players = players
	s.current.Occupancy = len(players)

	// Creator succession: promote the earliest-joined remaining player.
	// The roster is join-ordered, so that is the head of the list.
	if ev.PlayerID == s.current.CreatorID && len(players) > 0 {
		s.current.CreatorID = players[0].ID
		s.log.Debug().Str("creator", players[0].ID).Msg("creator left, promoted successor")
	}
}

func (s *Sync) onPlayerDisconnected(data json.RawMessage) {
	var ev state.PlayerDisconnectedEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		s.log.Warn().Err(err).Msg("bad player_disconnected payload")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.patchPlayerLocked(ev.PlayerID, func(p *state.Player) {
		p.Connected = false
	})
}

func (s *Sync) onPlayerReconnected(data json.RawMessage) {
	var ev state.PlayerReconnectedEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		s.log.Warn().Err(err).Msg("bad player_reconnected payload")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.patchPlayerLocked(ev.PlayerID, func(p *state.Player) {
		p.Connected = true
	})
}

func (s *Sync) onCharacterSelected(data json.RawMessage) {
	var ev state.CharacterSelectedEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		s.log.Warn().Err(err).Msg("bad character_selected payload")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.applySnapshotLocked(ev.Room) {
		return
	}
	s.patchPlayerLocked(ev.PlayerID, func(p *state.Player) {
		p.Character = ev.Character
	})
}

func (s *Sync) onReadyChanged(data json.RawMessage) {
	var ev state.ReadyChangedEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		s.log.Warn().Err(err).Msg("bad ready_changed payload")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.applySnapshotLocked(ev.Room) {
		return
	}
	s.patchPlayerLocked(ev.PlayerID, func(p *state.Player) {
		p.Ready = ev.Ready
	})
}

// applySnapshotLocked replaces the current room with an authoritative
// snapshot when one is attached to a broadcast and matches the room the
// local player is in. Callers hold s.mu.
func (s *Sync) applySnapshotLocked(snapshot *state.Room) bool {
	if snapshot == nil {
		return false
	}
	if s.current.IsEmpty() || s.current.ID != snapshot.ID {
		return false
	}
	s.current = snapshot.Clone()
	return true
}
