package state

// Outbound request events. Each is a correlated request expecting exactly
// one reply from the server.
const (
	EventRoomCreate          = "room:create"
	EventRoomJoin            = "room:join"
	EventRoomLeave           = "room:leave"
	EventRoomSelectCharacter = "room:select_character"
	EventRoomToggleReady     = "room:toggle_ready"
	EventRoomStartGame       = "room:start_game"
	EventGameAction          = "game:action"
	EventGameRequestState    = "game:request_state"
	EventGameStartSync       = "game:start_sync"
	EventGameStopSync        = "game:stop_sync"
)

// Inbound broadcast events. These are server-pushed and not tied to any
// pending request.
const (
	EventPlayerJoined       = "room:player_joined"
	EventPlayerLeft         = "room:player_left"
	EventPlayerDisconnected = "room:player_disconnected"
	EventPlayerReconnected  = "room:player_reconnected"
	EventCharacterSelected  = "room:character_selected"
	EventReadyChanged       = "room:player_ready_changed"
	EventGameStarted        = "game:started"
	EventActionResult       = "game:action_result"
	EventStateUpdated       = "game:state_updated"
	EventStateSync          = "game:state_sync"
)

// PlayerJoinedEvent announces a player entering the current room
type PlayerJoinedEvent struct {
	PlayerID string `json:"player_id"`
	Username string `json:"username"`
}

// PlayerLeftEvent announces a player leaving the current room
type PlayerLeftEvent struct {
	PlayerID string `json:"player_id"`
	Username string `json:"username"`
}

// PlayerDisconnectedEvent announces a player losing their connection
// without leaving the room
type PlayerDisconnectedEvent struct {
	PlayerID string `json:"player_id"`
	Username string `json:"username"`
}

// PlayerReconnectedEvent announces a disconnected player returning
type PlayerReconnectedEvent struct {
	PlayerID string `json:"player_id"`
	Username string `json:"username"`
}

// CharacterSelectedEvent announces a character claim. Room, when present,
// carries a full authoritative snapshot that replaces the local room.
type CharacterSelectedEvent struct {
	PlayerID  string `json:"player_id"`
	Character string `json:"character"`
	Room      *Room  `json:"room,omitempty"`
}

// ReadyChangedEvent announces a ready-flag change. Room, when present,
// carries a full authoritative snapshot that replaces the local room.
type ReadyChangedEvent struct {
	PlayerID string `json:"player_id"`
	Ready    bool   `json:"ready"`
	Room     *Room  `json:"room,omitempty"`
}

// GameStartedEvent carries the initial game state when a room starts
type GameStartedEvent struct {
	RoomID string    `json:"room_id"`
	State  GameState `json:"state"`
}

// ActionResultEvent carries another player's action and its result
type ActionResultEvent struct {
	PlayerID   string       `json:"player_id"`
	PlayerName string       `json:"player_name"`
	ActionType string       `json:"action_type"`
	Input      string       `json:"input,omitempty"`
	Result     ActionResult `json:"result"`
}

// StateSyncEvent carries a full game-state snapshot, either from the
// periodic resync broadcast or from an explicit state request
type StateSyncEvent struct {
	State   GameState `json:"state"`
	Session string    `json:"session,omitempty"`
}
