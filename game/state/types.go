package state

import "time"

// RoomStatus represents the lifecycle phase of a room
type RoomStatus string

const (
	RoomWaiting  RoomStatus = "waiting"
	RoomPlaying  RoomStatus = "playing"
	RoomPaused   RoomStatus = "paused"
	RoomFinished RoomStatus = "finished"

	// RoomCodeLength is the fixed length of a joinable room code
	RoomCodeLength = 6

	// MaxActionHistory bounds the per-session action history
	MaxActionHistory = 100

	// MaxEventLog bounds the per-session event log
	MaxEventLog = 200
)

// Player is a single member of a room roster
type Player struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Character string    `json:"character,omitempty"`
	Ready     bool      `json:"ready"`
	Connected bool      `json:"connected"`
	JoinedAt  time.Time `json:"joined_at"`
}

// Room is the client's cached view of a game room. Players are ordered by
// join time, oldest first, and Occupancy always equals len(Players).
type Room struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Code      string     `json:"code"`
	CreatorID string     `json:"creator_id"`
	Capacity  int        `json:"capacity"`
	Occupancy int        `json:"occupancy"`
	Status    RoomStatus `json:"status"`
	Players   []Player   `json:"players"`
}

// IsEmpty reports whether the room is the zero value (no current room).
func (r Room) IsEmpty() bool {
	return r.ID == ""
}

// HasPlayer reports whether a player with the given identity is in the roster.
func (r Room) HasPlayer(playerID string) bool {
	for _, p := range r.Players {
		if p.ID == playerID {
			return true
		}
	}
	return false
}

// CharacterTakenBy returns the ID of the player holding the given character,
// or "" if the character is unclaimed. The comparison is case-sensitive and
// skips the excluded player so a player may re-select their own character.
func (r Room) CharacterTakenBy(character, excludePlayerID string) string {
	if character == "" {
		return ""
	}
	for _, p := range r.Players {
		if p.ID == excludePlayerID {
			continue
		}
		if p.Character == character {
			return p.ID
		}
	}
	return ""
}

// Clone returns a deep copy of the room.
func (r Room) Clone() Room {
	out := r
	if r.Players != nil {
		out.Players = make([]Player, len(r.Players))
		copy(out.Players, r.Players)
	}
	return out
}

// PlayerState is one player's in-game status inside a GameState snapshot
type PlayerState struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	HP     int    `json:"hp"`
	Status string `json:"status,omitempty"`
}

// GameState is the authoritative game snapshot. The server owns it; the
// client only replaces it wholesale or patches it through Merge.
type GameState struct {
	Chapter          int             `json:"chapter"`
	Level            int             `json:"level"`
	Players          []PlayerState   `json:"players,omitempty"`
	Inventory        []string        `json:"inventory,omitempty"`
	CollectedLetters []string        `json:"collected_letters,omitempty"`
	Flags            map[string]bool `json:"flags,omitempty"`
	TriggeredEvents  []string        `json:"triggered_events,omitempty"`
	LastUpdatedAt    time.Time       `json:"last_updated_at"`
}

// Clone returns a deep copy of the snapshot.
func (s GameState) Clone() GameState {
	out := s
	if s.Players != nil {
		out.Players = make([]PlayerState, len(s.Players))
		copy(out.Players, s.Players)
	}
	if s.Inventory != nil {
		out.Inventory = append([]string(nil), s.Inventory...)
	}
	if s.CollectedLetters != nil {
		out.CollectedLetters = append([]string(nil), s.CollectedLetters...)
	}
	if s.Flags != nil {
		out.Flags = make(map[string]bool, len(s.Flags))
		for k, v := range s.Flags {
			out.Flags[k] = v
		}
	}
	if s.TriggeredEvents != nil {
		out.TriggeredEvents = append([]string(nil), s.TriggeredEvents...)
	}
	return out
}

// StateDelta is a partial game-state update. Nil fields leave the previous
// snapshot value untouched; Flags are merged per key and TriggeredEvents
// are unioned into the existing set.
type StateDelta struct {
	Chapter          *int            `json:"chapter,omitempty"`
	Level            *int            `json:"level,omitempty"`
	Players          []PlayerState   `json:"players,omitempty"`
	Inventory        []string        `json:"inventory,omitempty"`
	CollectedLetters []string        `json:"collected_letters,omitempty"`
	Flags            map[string]bool `json:"flags,omitempty"`
	TriggeredEvents  []string        `json:"triggered_events,omitempty"`
}

// IsZero reports whether the delta changes nothing.
func (d StateDelta) IsZero() bool {
	return d.Chapter == nil && d.Level == nil && d.Players == nil &&
		d.Inventory == nil && d.CollectedLetters == nil &&
		d.Flags == nil && d.TriggeredEvents == nil
}

// ActionResult is the server's verdict on a single game action
type ActionResult struct {
	Success      bool        `json:"success"`
	Message      string      `json:"message,omitempty"`
	StateChanges *StateDelta `json:"state_changes,omitempty"`
}
