package validate

import (
	"strings"
	"testing"
)

func TestRoomName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "Midnight Library", false},
		{"minimum length", "abc", false},
		{"too short", "ab", true},
		{"whitespace only", "    ", true},
		{"too long", strings.Repeat("x", MaxRoomNameLength+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RoomName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected wantErr=%v for %q, got %v", tt.wantErr, tt.input, err)
			}
		})
	}
}

func TestRoomCode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid letters", "ABCDEF", false},
		{"valid mixed", "A1B2C3", false},
		{"too short", "ABC", true},
		{"too long", "ABCDEFG", true},
		{"lower case", "abcdef", true},
		{"punctuation", "AB-CDE", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RoomCode(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected wantErr=%v for %q, got %v", tt.wantErr, tt.input, err)
			}
		})
	}
}

func TestUsername(t *testing.T) {
	if err := Username("Alice"); err != nil {
		t.Errorf("Expected Alice to be valid, got %v", err)
	}
	if err := Username("a"); err == nil {
		t.Error("Expected single-character username to be rejected")
	}
	if err := Username(strings.Repeat("x", MaxUsernameLength+1)); err == nil {
		t.Error("Expected over-long username to be rejected")
	}
}

func TestCharacter(t *testing.T) {
	if err := Character("cat"); err != nil {
		t.Errorf("Expected cat to be valid, got %v", err)
	}
	if err := Character(""); err == nil {
		t.Error("Expected empty character to be rejected")
	}
	if err := Character(" cat"); err == nil {
		t.Error("Expected padded character to be rejected")
	}
}

func TestActionType(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"combination", false},
		{"use_item", false},
		{"", true},
		{"Use", true},
		{"drop!", true},
	}

	for _, tt := range tests {
		err := ActionType(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("Expected wantErr=%v for %q, got %v", tt.wantErr, tt.input, err)
		}
	}
}

func TestPagination(t *testing.T) {
	if err := Pagination(1, 20); err != nil {
		t.Errorf("Expected page 1/20 to be valid, got %v", err)
	}
	if err := Pagination(0, 20); err == nil {
		t.Error("Expected page 0 to be rejected")
	}
	if err := Pagination(1, 0); err == nil {
		t.Error("Expected page size 0 to be rejected")
	}
	if err := Pagination(1, MaxPageSize+1); err == nil {
		t.Error("Expected oversized page to be rejected")
	}
}
