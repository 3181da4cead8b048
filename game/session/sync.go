package session

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
	// ErrActionInFlight is returned when PerformAction is called while a
	// previous action's reply is still pending. Calls are rejected, not
	// queued; the caller retries after the pending call settles.
	ErrActionInFlight = errors.New("an action is already in flight")
)

// Phase represents the game lifecycle as seen by the client
type Phase int

const (
	// PhaseNotStarted means no game is running in the current room.
	PhaseNotStarted Phase = iota

	// PhaseAwaitingInitialState means a state request is pending.
	PhaseAwaitingInitialState

	// PhaseSynced means an authoritative snapshot has been received.
	PhaseSynced
)

// String returns the string representation of a Phase.
func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not_started"
	case PhaseAwaitingInitialState:
		return "awaiting_initial_state"
	case PhaseSynced:
		return "synced"
	default:
		return "unknown"
	}
}

// ActionHistoryEntry records one performed action, local or remote
type ActionHistoryEntry struct {
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`
	ActionType string    `json:"action_type"`
	Input      string    `json:"input,omitempty"`
	Success    bool      `json:"success"`
	Message    string    `json:"message,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// EventLogEntry records one observed game event
type EventLogEntry struct {
	Event     string    `json:"event"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Connection is the slice of the shared channel the synchronizer needs.
// *socket.Conn satisfies it.
type Connection interface {
	Request(ctx context.Context, event string, payload any) (json.RawMessage, error)
	Subscribe(event string, fn socket.Handler) *socket.Subscription
}

// Config carries the synchronizer's collaborators
type Config struct {
	// Logger receives pipeline logs. Defaults to a no-op.
	Logger *zerolog.Logger

	// Clock supplies merge timestamps. Defaults to time.Now.
	Clock func() time.Time
}

// ActionRequest is the payload of a game:action request
type ActionRequest struct {
	RoomID     string `json:"room_id"`
	ActionType string `json:"action_type"`
	Item1      string `json:"item1,omitempty"`
	Item2      string `json:"item2,omitempty"`
	RawInput   string `json:"raw_input,omitempty"`
}

type stateRequest struct {
	RoomID string `json:"room_id"`
}

// Sync is the game synchronizer: it owns the snapshot, the story text, and
// the bounded buffers, and correlates action requests with their results.
type Sync struct {
	conn Connection
	log  zerolog.Logger
	now  func() time.Time

	mu             sync.RWMutex
	playerID       string
	playerName     string
	phase          Phase
	resyncActive   bool
	actionInFlight bool
	snapshot       state.GameState
	story          string
	history        []ActionHistoryEntry
	events         []EventLogEntry
	lastErr        error
	subs           []*socket.Subscription
}

// NewSync creates a game synchronizer on the shared connection.
func NewSync(conn Connection, cfg Config) *Sync {
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &Sync{
		conn:  conn,
		log:   log,
		now:   now,
		phase: PhaseNotStarted,
	}
}

// SetLocalPlayer records the local player's identity, attached to the
// history entries of locally issued actions.
func (s *Sync) SetLocalPlayer(playerID, playerName string) {
	s.mu.Lock()
	s.playerID = playerID
	s.playerName = playerName
	s.mu.Unlock()
}

// Start registers the game broadcast handlers. Calling Start twice is a
// no-op; Stop releases everything Start acquired.
func (s *Sync) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.subs) > 0 {
		return
	}
	s.subs = []*socket.Subscription{
		s.conn.Subscribe(state.EventGameStarted, s.onGameStarted),
		s.conn.Subscribe(state.EventActionResult, s.onActionResult),
		s.conn.Subscribe(state.EventStateUpdated, s.onStateSync),
		s.conn.Subscribe(state.EventStateSync, s.onStateSync),
	}
}

// Stop releases the broadcast subscriptions registered by Start.
func (s *Sync) Stop() {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
}

// Phase returns the current lifecycle phase.
func (s *Sync) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// ResyncActive reports whether the periodic resync broadcast is enabled.
func (s *Sync) ResyncActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resyncActive
}

// Snapshot returns a copy of the current game-state snapshot.
func (s *Sync) Snapshot() state.GameState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.Clone()
}

// Story returns the accumulated narration text.
func (s *Sync) Story() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.story
}

// ActionHistory returns a copy of the bounded action history, oldest
// first.
func (s *Sync) ActionHistory() []ActionHistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ActionHistoryEntry, len(s.history))
	copy(out, s.history)
	return out
}

// EventLog returns a copy of the bounded event log, oldest first.
func (s *Sync) EventLog() []EventLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]EventLogEntry, len(s.events))
	copy(out, s.events)
	return out
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

// Reset discards all session state: snapshot, story, buffers, phase, and
// the resync flag. Used when the player leaves the game.
func (s *Sync) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = state.GameState{}
	s.story = ""
	s.history = nil
	s.events = nil
	s.phase = PhaseNotStarted
	s.resyncActive = false
	s.actionInFlight = false
	s.lastErr = nil
}

// PerformAction issues one game action as a correlated request and applies
// the server's result. RawInput defaults to "item1+item2" when both items
// are present and none was supplied. A call made while another action is
// pending fails with ErrActionInFlight.
func (s *Sync) PerformAction(ctx context.Context, roomID, actionType, item1, item2, rawInput string) (state.ActionResult, error) {
	if err := validate.ActionType(actionType); err != nil {
		return state.ActionResult{}, s.setErr(err)
	}

	s.mu.Lock()
	if s.actionInFlight {
		s.mu.Unlock()
		return state.ActionResult{}, ErrActionInFlight
	}
	s.actionInFlight = true
	playerID, playerName := s.playerID, s.playerName
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.actionInFlight = false
		s.mu.Unlock()
	}()

	if rawInput == "" && item1 != "" && item2 != "" {
		rawInput = item1 + "+" + item2
	}

	data, err := s.conn.Request(ctx, state.EventGameAction, ActionRequest{
		RoomID:     roomID,
		ActionType: actionType,
		Item1:      item1,
		Item2:      item2,
		RawInput:   rawInput,
	})
	if err != nil {
		return state.ActionResult{}, s.setErr(err)
	}

	var result state.ActionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return state.ActionResult{}, s.setErr(fmt.Errorf("decode action reply: %w", err))
	}

	s.ApplyActionResult(playerID, playerName, actionType, rawInput, result)
	return result, nil
}

// ApplyActionResult folds one action result into local state. It serves
// both the local reply path and the remote broadcast path: an entry lands
// in the bounded history, a non-empty message is appended to the story,
// and on success any partial state changes are merged onto the snapshot
// with the merge time stamped. A failed result never touches the snapshot.
func (s *Sync) ApplyActionResult(playerID, playerName, actionType, input string, result state.ActionResult) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, ActionHistoryEntry{
		PlayerID:   playerID,
		PlayerName: playerName,
		ActionType: actionType,
		Input:      input,
		Success:    result.Success,
		Message:    result.Message,
		Timestamp:  now,
	})
	if over := len(s.history) - state.MaxActionHistory; over > 0 {
		s.history = append([]ActionHistoryEntry(nil), s.history[over:]...)
	}

	if result.Message != "" {
		if s.story == "" {
			s.story = result.Message
		} else {
			s.story += "\n\n" + result.Message
		}
	}

	if result.Success && result.StateChanges != nil && !result.StateChanges.IsZero() {
		s.snapshot = state.Merge(s.snapshot, *result.StateChanges, now)
	}

	s.appendEventLocked(state.EventActionResult, fmt.Sprintf("%s performed %s", playerName, actionType), now)
}

// SyncState replaces the snapshot wholesale. Both the explicit state
// request reply and the periodic resync broadcast land here, so the two
// codepaths cannot drift apart. The snapshot's LastUpdatedAt never
// regresses.
func (s *Sync) SyncState(st state.GameState) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.snapshot.LastUpdatedAt
	next := st.Clone()
	if !next.LastUpdatedAt.After(prev) {
		if now.After(prev) {
			next.LastUpdatedAt = now
		} else {
			next.LastUpdatedAt = prev
		}
	}
	s.snapshot = next
	s.phase = PhaseSynced
	s.appendEventLocked(state.EventStateSync, "full state replaced", now)
}

// RequestState fetches a full snapshot as a one-shot correlated request.
func (s *Sync) RequestState(ctx context.Context, roomID string) (state.GameState, error) {
	s.mu.Lock()
	if s.phase == PhaseNotStarted {
		s.phase = PhaseAwaitingInitialState
	}
	s.mu.Unlock()

	data, err := s.conn.Request(ctx, state.EventGameRequestState, stateRequest{RoomID: roomID})
	if err != nil {
		return state.GameState{}, s.setErr(err)
	}

	var reply state.StateSyncEvent
	if err := json.Unmarshal(data, &reply); err != nil {
		return state.GameState{}, s.setErr(fmt.Errorf("decode state reply: %w", err))
	}

	s.SyncState(reply.State)
	return s.Snapshot(), nil
}

// StartStateSync asks the server to begin delivering the periodic snapshot
// broadcast for the given room.
func (s *Sync) StartStateSync(ctx context.Context, roomID string) error {
	if _, err := s.conn.Request(ctx, state.EventGameStartSync, stateRequest{RoomID: roomID}); err != nil {
		return s.setErr(err)
	}

	s.mu.Lock()
	s.resyncActive = true
	s.mu.Unlock()
	return nil
}

// StopStateSync asks the server to stop the periodic snapshot broadcast.
// The local flag clears even when the request fails, so teardown paths can
// treat the returned error as advisory.
func (s *Sync) StopStateSync(ctx context.Context, roomID string) error {
	_, err := s.conn.Request(ctx, state.EventGameStopSync, stateRequest{RoomID: roomID})

	s.mu.Lock()
	s.resyncActive = false
	s.mu.Unlock()

	if err != nil {
		s.log.Warn().Err(err).Str("room", roomID).Msg("stop state sync failed")
		return s.setErr(err)
	}
	return nil
}

// appendEventLocked adds one event-log entry with FIFO eviction. Callers
// hold s.mu.
func (s *Sync) appendEventLocked(event, message string, now time.Time) {
	s.events = append(s.events, EventLogEntry{
		Event:     event,
		Message:   message,
		Timestamp: now,
	})
	if over := len(s.events) - state.MaxEventLog; over > 0 {
		s.events = append([]EventLogEntry(nil), s.events[over:]...)
	}
}

// Broadcast handlers. These run on the connection's read goroutine.

func (s *Sync) onGameStarted(data json.RawMessage) {
	var ev state.GameStartedEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		s.log.Warn().Err(err).Msg("bad game_started payload")
		return
	}

	s.SyncState(ev.State)

	s.mu.Lock()
	s.appendEventLocked(state.EventGameStarted, "game started", s.now())
	s.mu.Unlock()
	s.log.Info().Str("room", ev.RoomID).Msg("game started")
}

func (s *Sync) onActionResult(data json.RawMessage) {
	var ev state.ActionResultEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		s.log.Warn().Err(err).Msg("bad action_result payload")
		return
	}

	s.ApplyActionResult(ev.PlayerID, ev.PlayerName, ev.ActionType, ev.Input, ev.Result)
}

func (s *Sync) onStateSync(data json.RawMessage) {
	var ev state.StateSyncEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		s.log.Warn().Err(err).Msg("bad state_sync payload")
		return
	}

	s.SyncState(ev.State)
}
