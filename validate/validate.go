// Package validate provides client-side input checks the synchronizers run
// before any network round trip. Rejecting obviously bad input locally
// keeps the server's error surface for genuine business-rule violations.
package validate

import (
	"fmt"
	"strings"
)

const (
	// RoomCodeLength is the fixed length of a joinable room code.
	RoomCodeLength = 6

	MinRoomNameLength = 3
	MaxRoomNameLength = 40

	MinUsernameLength = 2
	MaxUsernameLength = 24

	MaxCharacterLength = 32

	MaxPageSize = 100
)

// RoomName checks a human-readable room name.
func RoomName(name string) error {
	trimmed := strings.TrimSpace(name)
	if len(trimmed) < MinRoomNameLength {
		return fmt.Errorf("room name must be at least %d characters", MinRoomNameLength)
	}
	if len(trimmed) > MaxRoomNameLength {
		return fmt.Errorf("room name must be at most %d characters", MaxRoomNameLength)
	}
	return nil
}

// RoomCode checks a 6-character join code: upper-case letters and digits
// only.
func RoomCode(code string) error {
	if len(code) != RoomCodeLength {
		return fmt.Errorf("room code must be exactly %d characters", RoomCodeLength)
	}
	for _, c := range code {
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return fmt.Errorf("room code may only contain A-Z and 0-9, got %q", c)
		}
	}
	return nil
}

// Username checks a player display name.
func Username(name string) error {
	trimmed := strings.TrimSpace(name)
	if len(trimmed) < MinUsernameLength {
		return fmt.Errorf("username must be at least %d characters", MinUsernameLength)
	}
	if len(trimmed) > MaxUsernameLength {
		return fmt.Errorf("username must be at most %d characters", MaxUsernameLength)
	}
	return nil
}

// Character checks a character identifier.
func Character(character string) error {
	if character == "" {
		return fmt.Errorf("character must not be empty")
	}
	if len(character) > MaxCharacterLength {
		return fmt.Errorf("character must be at most %d characters", MaxCharacterLength)
	}
	if strings.TrimSpace(character) != character {
		return fmt.Errorf("character must not have leading or trailing spaces")
	}
	return nil
}

// ActionType checks a game action identifier, e.g. "use" or "combination".
func ActionType(actionType string) error {
	if actionType == "" {
		return fmt.Errorf("action type must not be empty")
	}
	for _, c := range actionType {
		if (c < 'a' || c > 'z') && c != '_' {
			return fmt.Errorf("action type may only contain a-z and underscores, got %q", c)
		}
	}
	return nil
}

// Pagination checks list query parameters.
func Pagination(page, pageSize int) error {
	if page < 1 {
		return fmt.Errorf("page must be at least 1, got %d", page)
	}
	if pageSize < 1 {
		return fmt.Errorf("page size must be at least 1, got %d", pageSize)
	}
	if pageSize > MaxPageSize {
		return fmt.Errorf("page size must be at most %d, got %d", MaxPageSize, pageSize)
	}
	return nil
}
