package room

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/letterquest/client-go/game/state"
	"github.com/letterquest/client-go/transport/socket"
)

// fakeConn satisfies Connection: requests are answered from canned replies
// and broadcasts are injected through the embedded registry.
type fakeConn struct {
	*socket.Registry

	mu       sync.Mutex
	requests []capturedRequest
	replies  map[string]json.RawMessage
	errs     map[string]error
}

type capturedRequest struct {
	event   string
	payload any
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		Registry: socket.NewRegistry(),
		replies:  make(map[string]json.RawMessage),
		errs:     make(map[string]error),
	}
}

func (f *fakeConn) Request(ctx context.Context, event string, payload any) (json.RawMessage, error) {
	f.mu.Lock()
	f.requests = append(f.requests, capturedRequest{event: event, payload: payload})
	f.mu.Unlock()

	if err := f.errs[event]; err != nil {
		return nil, err
	}
	return f.replies[event], nil
}

func (f *fakeConn) reply(event string, v any) {
	b, _ := json.Marshal(v)
	f.replies[event] = b
}

func (f *fakeConn) requestCount(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r.event == event {
			n++
		}
	}
	return n
}

func testRoom() state.Room {
	return state.Room{
		ID:        "R1",
		Name:      "Midnight Library",
		Code:      "ABC123",
		CreatorID: "p1",
		Capacity:  4,
		Occupancy: 2,
		Status:    state.RoomWaiting,
		Players: []state.Player{
			{ID: "p1", Username: "Alice", Character: "cat"},
			{ID: "p2", Username: "Bob"},
		},
	}
}

// joinTestRoom drives the synchronizer into a known current room.
func joinTestRoom(t *testing.T, s *Sync, conn *fakeConn, room state.Room) {
	t.Helper()
	conn.reply(state.EventRoomJoin, room)
	if _, err := s.JoinRoom(context.Background(), JoinRoomSpec{RoomID: room.ID, Username: "Alice"}); err != nil {
		t.Fatalf("Failed to join test room: %v", err)
	}
}

func dispatch(conn *fakeConn, event string, v any) {
	b, _ := json.Marshal(v)
	conn.Dispatch(event, b)
}

func TestJoinRoom_ReplacesCurrentRoom(t *testing.T) {
	conn := newFakeConn()
	s := NewSync(conn, Config{})

	joinTestRoom(t, s, conn, testRoom())

	got := s.CurrentRoom()
	if got.ID != "R1" {
		t.Errorf("Expected current room R1, got %q", got.ID)
	}
	if got.Occupancy != 2 || len(got.Players) != 2 {
		t.Errorf("Expected occupancy 2 with 2 players, got %d/%d", got.Occupancy, len(got.Players))
	}
}

func TestJoinRoom_ServerRejectionLeavesStateUnchanged(t *testing.T) {
	conn := newFakeConn()
	s := NewSync(conn, Config{})
	joinTestRoom(t, s, conn, testRoom())

	conn.errs[state.EventRoomJoin] = &socket.RequestError{Code: "character_taken", Message: "character cat is taken"}
	_, err := s.JoinRoom(context.Background(), JoinRoomSpec{RoomID: "R2", Username: "Alice", Character: "cat"})

	var reqErr *socket.RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("Expected RequestError, got %v", err)
	}
	if got := s.CurrentRoom(); got.ID != "R1" {
		t.Errorf("Expected current room unchanged, got %q", got.ID)
	}
	if s.LastError() == nil || s.LastError().Error() != "character_taken: character cat is taken" {
		t.Errorf("Expected server message in last error, got %v", s.LastError())
	}
}

func TestLeaveRoom_ClearsCurrentRoom(t *testing.T) {
	conn := newFakeConn()
	s := NewSync(conn, Config{})
	s.Start()
	defer s.Stop()
	joinTestRoom(t, s, conn, testRoom())

	if err := s.LeaveRoom(context.Background(), "R1"); err != nil {
		t.Fatalf("Expected leave to succeed, got %v", err)
	}
	if got := s.CurrentRoom(); !got.IsEmpty() {
		t.Errorf("Expected empty current room, got %q", got.ID)
	}

	// A late player_left broadcast for the already-cleared room is a no-op.
	dispatch(conn, state.EventPlayerLeft, state.PlayerLeftEvent{PlayerID: "p1"})
	if got := s.CurrentRoom(); !got.IsEmpty() {
		t.Errorf("Expected room to stay empty, got %q", got.ID)
	}
}

func TestPlayerJoined_DistinctIdentities(t *testing.T) {
	conn := newFakeConn()
	s := NewSync(conn, Config{})
	s.Start()
	defer s.Stop()
	joinTestRoom(t, s, conn, testRoom())

	dispatch(conn, state.EventPlayerJoined, state.PlayerJoinedEvent{PlayerID: "p3", Username: "Cara"})
	dispatch(conn, state.EventPlayerJoined, state.PlayerJoinedEvent{PlayerID: "p4", Username: "Dan"})

	got := s.CurrentRoom()
	if len(got.Players) != 4 {
		t.Fatalf("Expected 4 players, got %d", len(got.Players))
	}
	if got.Occupancy != len(got.Players) {
		t.Errorf("Expected occupancy %d to equal roster length, got %d", len(got.Players), got.Occupancy)
	}
}

func TestPlayerJoined_DuplicateDeliveryIsIdempotent(t *testing.T) {
	conn := newFakeConn()
	s := NewSync(conn, Config{})
	s.Start()
	defer s.Stop()
	joinTestRoom(t, s, conn, testRoom())

	dispatch(conn, state.EventPlayerJoined, state.PlayerJoinedEvent{PlayerID: "p3", Username: "Cara"})
	dispatch(conn, state.EventPlayerJoined, state.PlayerJoinedEvent{PlayerID: "p3", Username: "Cara"})

	got := s.CurrentRoom()
	if len(got.Players) != 3 {
		t.Errorf("Expected 3 players after duplicate join, got %d", len(got.Players))
	}
	if got.Occupancy != 3 {
		t.Errorf("Expected occupancy 3, got %d", got.Occupancy)
	}
}

func TestPlayerLeft_RemovesAndPromotesCreator(t *testing.T) {
	conn := newFakeConn()
	s := NewSync(conn, Config{})
	s.Start()
	defer s.Stop()
	joinTestRoom(t, s, conn, testRoom())

	// The creator p1 leaves; p2 joined earliest among the rest.
	dispatch(conn, state.EventPlayerLeft, state.PlayerLeftEvent{PlayerID: "p1"})

	got := s.CurrentRoom()
	if len(got.Players) != 1 || got.Players[0].ID != "p2" {
		t.Fatalf("Expected only p2 to remain, got %v", got.Players)
	}
	if got.Occupancy != 1 {
		t.Errorf("Expected occupancy 1, got %d", got.Occupancy)
	}
	if got.CreatorID != "p2" {
		t.Errorf("Expected p2 promoted to creator, got %q", got.CreatorID)
	}
}

func TestPlayerLeft_UnknownIdentityKeepsOccupancyNonNegative(t *testing.T) {
	conn := newFakeConn()
	s := NewSync(conn, Config{})
	s.Start()
	defer s.Stop()

	room := testRoom()
	room.Players = nil
	room.Occupancy = 0
	joinTestRoom(t, s, conn, room)

	dispatch(conn, state.EventPlayerLeft, state.PlayerLeftEvent{PlayerID: "ghost"})

	if got := s.CurrentRoom(); got.Occupancy != 0 {
		t.Errorf("Expected occupancy floored at 0, got %d", got.Occupancy)
	}
}

func TestSelectCharacter_LocalConflictShortCircuits(t *testing.T) {
	conn := newFakeConn()
	s := NewSync(conn, Config{})
	s.SetLocalPlayer("p2")
	joinTestRoom(t, s, conn, testRoom())

	err := s.SelectCharacter(context.Background(), "R1", "cat")

	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if got := conn.requestCount(state.EventRoomSelectCharacter); got != 0 {
		t.Errorf("Expected no network round trip, got %d requests", got)
	}
}

func TestSelectCharacter_OwnCharacterIsNotAConflict(t *testing.T) {
	conn := newFakeConn()
	s := NewSync(conn, Config{})
	s.SetLocalPlayer("p1")
	joinTestRoom(t, s, conn, testRoom())

	conn.reply(state.EventRoomSelectCharacter, ackReply{Message: "ok"})
	if err := s.SelectCharacter(context.Background(), "R1", "cat"); err != nil {
		t.Errorf("Expected own re-selection to pass the local check, got %v", err)
	}
}

func TestSelectCharacter_PatchesLocalPlayer(t *testing.T) {
	conn := newFakeConn()
	s := NewSync(conn, Config{})
	s.SetLocalPlayer("p2")
	joinTestRoom(t, s, conn, testRoom())

	conn.reply(state.EventRoomSelectCharacter, ackReply{Message: "ok"})
	if err := s.SelectCharacter(context.Background(), "R1", "owl"); err != nil {
		t.Fatalf("Expected selection to succeed, got %v", err)
	}

	got := s.CurrentRoom()
	for _, p := range got.Players {
		if p.ID == "p2" && p.Character != "owl" {
			t.Errorf("Expected p2 to hold owl, got %q", p.Character)
		}
	}
}

func TestCharacterSelected_SnapshotReplacesRoom(t *testing.T) {
	conn := newFakeConn()
	s := NewSync(conn, Config{})
	s.Start()
	defer s.Stop()
	joinTestRoom(t, s, conn, testRoom())

	snapshot := testRoom()
	snapshot.Players[1].Character = "owl"
	dispatch(conn, state.EventCharacterSelected, state.CharacterSelectedEvent{
		PlayerID:  "p2",
		Character: "owl",
		Room:      &snapshot,
	})

	got := s.CurrentRoom()
	if got.Players[1].Character != "owl" {
		t.Errorf("Expected snapshot applied, p2 character %q", got.Players[1].Character)
	}
}

func TestReadyChanged_PatchesSinglePlayer(t *testing.T) {
	conn := newFakeConn()
	s := NewSync(conn, Config{})
	s.Start()
	defer s.Stop()
	joinTestRoom(t, s, conn, testRoom())

	dispatch(conn, state.EventReadyChanged, state.ReadyChangedEvent{PlayerID: "p2", Ready: true})

	got := s.CurrentRoom()
	if !got.Players[1].Ready {
		t.Error("Expected p2 ready after broadcast")
	}
	if got.Players[0].Ready {
		t.Error("Expected p1 untouched by p2's ready change")
	}
}

// fakeLister serves FetchRooms without HTTP.
type fakeLister struct {
	rooms []state.Room
	err   error
}

func (f *fakeLister) ListRooms(ctx context.Context, status state.RoomStatus, page, pageSize int) ([]state.Room, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rooms, nil
}

func TestFetchRooms_ReplacesListWholesale(t *testing.T) {
	lister := &fakeLister{rooms: []state.Room{testRoom()}}
	s := NewSync(newFakeConn(), Config{Lister: lister})

	rooms, err := s.FetchRooms(context.Background(), state.RoomWaiting, 1, 20)
	if err != nil {
		t.Fatalf("Expected fetch to succeed, got %v", err)
	}
	if len(rooms) != 1 || len(s.Rooms()) != 1 {
		t.Errorf("Expected 1 cached room, got %d", len(s.Rooms()))
	}
}

func TestFetchRooms_ClearsListOnFailure(t *testing.T) {
	lister := &fakeLister{rooms: []state.Room{testRoom()}}
	s := NewSync(newFakeConn(), Config{Lister: lister})

	if _, err := s.FetchRooms(context.Background(), state.RoomWaiting, 1, 20); err != nil {
		t.Fatalf("Expected initial fetch to succeed, got %v", err)
	}

	lister.err = errors.New("listing unavailable")
	if _, err := s.FetchRooms(context.Background(), state.RoomWaiting, 1, 20); err == nil {
		t.Fatal("Expected fetch failure")
	}

	if got := len(s.Rooms()); got != 0 {
		t.Errorf("Expected cache cleared on failure, got %d rooms", got)
	}
	if s.LastError() == nil {
		t.Error("Expected last error to be set")
	}
}

func TestFetchRooms_WithoutLister(t *testing.T) {
	s := NewSync(newFakeConn(), Config{})
	if _, err := s.FetchRooms(context.Background(), "", 1, 20); !errors.Is(err, ErrNoLister) {
		t.Errorf("Expected ErrNoLister, got %v", err)
	}
}

func TestClearError(t *testing.T) {
	conn := newFakeConn()
	conn.errs[state.EventRoomLeave] = errors.New("boom")
	s := NewSync(conn, Config{})

	if err := s.LeaveRoom(context.Background(), "R1"); err == nil {
		t.Fatal("Expected leave failure")
	}
	if s.LastError() == nil {
		t.Fatal("Expected last error set")
	}

	s.ClearError()
	if s.LastError() != nil {
		t.Errorf("Expected last error cleared, got %v", s.LastError())
	}
}
