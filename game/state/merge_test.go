package state

import (
	"testing"
	"time"
)

func baseSnapshot() GameState {
	return GameState{
		Chapter:          2,
		Level:            3,
		Players:          []PlayerState{{ID: "p1", Name: "Alice", HP: 10}},
		Inventory:        []string{"lantern"},
		CollectedLetters: []string{"a", "b"},
		Flags:            map[string]bool{"door_open": false},
		TriggeredEvents:  []string{"intro_seen"},
		LastUpdatedAt:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestMerge_EmptyDeltaKeepsFields(t *testing.T) {
	prev := baseSnapshot()
	now := prev.LastUpdatedAt.Add(time.Minute)

	next := Merge(prev, StateDelta{}, now)

	if next.Chapter != prev.Chapter || next.Level != prev.Level {
		t.Errorf("Expected chapter/level unchanged, got %d/%d", next.Chapter, next.Level)
	}
	if len(next.Inventory) != 1 || next.Inventory[0] != "lantern" {
		t.Errorf("Expected inventory unchanged, got %v", next.Inventory)
	}
	if !next.LastUpdatedAt.Equal(now) {
		t.Errorf("Expected LastUpdatedAt %v, got %v", now, next.LastUpdatedAt)
	}
}

func TestMerge_FieldReplacement(t *testing.T) {
	prev := baseSnapshot()
	chapter := 3
	delta := StateDelta{
		Chapter:   &chapter,
		Inventory: []string{"lantern", "key"},
	}

	next := Merge(prev, delta, time.Now())

	if next.Chapter != 3 {
		t.Errorf("Expected chapter 3, got %d", next.Chapter)
	}
	if len(next.Inventory) != 2 {
		t.Errorf("Expected 2 inventory items, got %d", len(next.Inventory))
	}
	// Untouched fields survive
	if next.Level != prev.Level {
		t.Errorf("Expected level %d, got %d", prev.Level, next.Level)
	}
}

func TestMerge_FlagsMergedPerKey(t *testing.T) {
	prev := baseSnapshot()
	delta := StateDelta{Flags: map[string]bool{"gate_open": true}}

	next := Merge(prev, delta, time.Now())

	if len(next.Flags) != 2 {
		t.Fatalf("Expected 2 flags, got %d", len(next.Flags))
	}
	if next.Flags["door_open"] {
		t.Error("Expected existing flag door_open to survive as false")
	}
	if !next.Flags["gate_open"] {
		t.Error("Expected new flag gate_open to be set")
	}
}

func TestMerge_TriggeredEventsUnioned(t *testing.T) {
	prev := baseSnapshot()
	delta := StateDelta{TriggeredEvents: []string{"intro_seen", "trap_sprung"}}

	next := Merge(prev, delta, time.Now())

	if len(next.TriggeredEvents) != 2 {
		t.Fatalf("Expected 2 triggered events, got %v", next.TriggeredEvents)
	}
	if next.TriggeredEvents[0] != "intro_seen" || next.TriggeredEvents[1] != "trap_sprung" {
		t.Errorf("Expected union in first-appearance order, got %v", next.TriggeredEvents)
	}
}

func TestMerge_LastUpdatedAtNeverRegresses(t *testing.T) {
	prev := baseSnapshot()
	earlier := prev.LastUpdatedAt.Add(-time.Hour)

	next := Merge(prev, StateDelta{}, earlier)

	if !next.LastUpdatedAt.Equal(prev.LastUpdatedAt) {
		t.Errorf("Expected LastUpdatedAt to stay %v, got %v", prev.LastUpdatedAt, next.LastUpdatedAt)
	}

	later := prev.LastUpdatedAt.Add(time.Hour)
	next = Merge(prev, StateDelta{}, later)
	if !next.LastUpdatedAt.Equal(later) {
		t.Errorf("Expected LastUpdatedAt to advance to %v, got %v", later, next.LastUpdatedAt)
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	prev := baseSnapshot()
	delta := StateDelta{
		Flags:           map[string]bool{"door_open": true},
		TriggeredEvents: []string{"trap_sprung"},
		Inventory:       []string{"rope"},
	}

	_ = Merge(prev, delta, time.Now())

	if prev.Flags["door_open"] {
		t.Error("Expected previous snapshot flags to be untouched")
	}
	if len(prev.TriggeredEvents) != 1 {
		t.Errorf("Expected previous triggered events untouched, got %v", prev.TriggeredEvents)
	}
	if prev.Inventory[0] != "lantern" {
		t.Errorf("Expected previous inventory untouched, got %v", prev.Inventory)
	}
}

func TestRoom_CharacterTakenBy(t *testing.T) {
	room := Room{
		ID: "R1",
		Players: []Player{
			{ID: "p1", Character: "cat"},
			{ID: "p2", Character: "owl"},
		},
	}

	if got := room.CharacterTakenBy("cat", "p2"); got != "p1" {
		t.Errorf("Expected cat taken by p1, got %q", got)
	}
	// A player's own claim does not conflict with themselves
	if got := room.CharacterTakenBy("cat", "p1"); got != "" {
		t.Errorf("Expected no conflict for own character, got %q", got)
	}
	if got := room.CharacterTakenBy("fox", "p1"); got != "" {
		t.Errorf("Expected fox unclaimed, got %q", got)
	}
	if got := room.CharacterTakenBy("", "p1"); got != "" {
		t.Errorf("Expected empty character to be unclaimed, got %q", got)
	}
}

func TestRoom_Clone(t *testing.T) {
	room := Room{ID: "R1", Players: []Player{{ID: "p1"}}}
	clone := room.Clone()
	clone.Players[0].ID = "p2"

	if room.Players[0].ID != "p1" {
		t.Errorf("Expected original roster untouched, got %q", room.Players[0].ID)
	}
}
