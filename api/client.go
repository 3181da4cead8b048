package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/letterquest/client-go/game/state"
)

// Envelope is the common wrapper around every HTTP response body
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Decode unmarshals the envelope's payload into v, or surfaces the
// server's error message when the call failed.
func (e Envelope) Decode(v any) error {
	if !e.Success {
		if e.Error != "" {
			return fmt.Errorf("api: %s", e.Error)
		}
		return fmt.Errorf("api: request failed")
	}
	if v == nil || len(e.Data) == 0 {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}

// LoginRequest authenticates an existing account
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest creates a new account
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries the bearer token and the authenticated player
type AuthResponse struct {
	Token    string `json:"token"`
	PlayerID string `json:"player_id"`
	Username string `json:"username"`
}

// VerifyResponse reports whether the presented token is still accepted
type VerifyResponse struct {
	Valid    bool   `json:"valid"`
	PlayerID string `json:"player_id,omitempty"`
	Username string `json:"username,omitempty"`
}

// ListRoomsRequest pages through the room directory. Status filters by
// lifecycle phase when non-empty.
type ListRoomsRequest struct {
	Status   state.RoomStatus `json:"status,omitempty"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

// ListRoomsResponse is one page of the room directory
type ListRoomsResponse struct {
	Rooms    []state.Room `json:"rooms"`
	Total    int          `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
}

// Authenticator covers the credential lifecycle. A 401 from any call
// means the stored token must be discarded before retrying.
type Authenticator interface {
	Login(ctx context.Context, req LoginRequest) (AuthResponse, error)
	Register(ctx context.Context, req RegisterRequest) (AuthResponse, error)
	Verify(ctx context.Context, token string) (VerifyResponse, error)
	Logout(ctx context.Context, token string) error
}

// RoomDirectory covers read-only room discovery. The realtime room
// synchronizer consumes it for listings; membership changes go over the
// realtime channel instead.
type RoomDirectory interface {
	ListRooms(ctx context.Context, req ListRoomsRequest) (ListRoomsResponse, error)
	RoomDetails(ctx context.Context, roomID string) (state.Room, error)
	CurrentRoom(ctx context.Context) (state.Room, error)
}

// Client is the full HTTP surface the realtime layer can collaborate with
type Client interface {
	Authenticator
	RoomDirectory
}
