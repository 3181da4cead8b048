package socket

import (
	"encoding/json"
	"testing"
)

func TestRegistry_MultipleSubscribers(t *testing.T) {
	r := NewRegistry()

	var first, second int
	subA := r.Subscribe("room:player_joined", func(json.RawMessage) { first++ })
	subB := r.Subscribe("room:player_joined", func(json.RawMessage) { second++ })
	defer subA.Close()
	defer subB.Close()

	r.Dispatch("room:player_joined", nil)

	if first != 1 || second != 1 {
		t.Errorf("Expected both handlers to fire once, got %d and %d", first, second)
	}
}

func TestRegistry_CloseRemovesOnlyOwnHandler(t *testing.T) {
	r := NewRegistry()

	var first, second int
	subA := r.Subscribe("evt", func(json.RawMessage) { first++ })
	subB := r.Subscribe("evt", func(json.RawMessage) { second++ })

	subA.Close()
	r.Dispatch("evt", nil)

	if first != 0 {
		t.Errorf("Expected closed handler not to fire, got %d", first)
	}
	if second != 1 {
		t.Errorf("Expected surviving handler to fire once, got %d", second)
	}
	subB.Close()
}

func TestRegistry_CloseIsIdempotent(t *testing.T) {
	r := NewRegistry()
	sub := r.Subscribe("evt", func(json.RawMessage) {})

	sub.Close()
	sub.Close() // must not panic or remove anything else

	if got := r.HandlerCount("evt"); got != 0 {
		t.Errorf("Expected 0 handlers, got %d", got)
	}
}

func TestRegistry_CloseUnregisteredIsNoop(t *testing.T) {
	r := NewRegistry()
	other := r.Subscribe("evt", func(json.RawMessage) {})

	stale := &Subscription{registry: r, event: "evt", id: 999}
	stale.Close()

	if got := r.HandlerCount("evt"); got != 1 {
		t.Errorf("Expected 1 handler to survive, got %d", got)
	}
	other.Close()
}

func TestRegistry_Off(t *testing.T) {
	r := NewRegistry()
	r.Subscribe("evt", func(json.RawMessage) {})
	r.Subscribe("evt", func(json.RawMessage) {})

	r.Off("evt")

	if got := r.HandlerCount("evt"); got != 0 {
		t.Errorf("Expected 0 handlers after Off, got %d", got)
	}
	// Off on an unknown event is a no-op
	r.Off("never_registered")
}

func TestRegistry_SubscribeOnce(t *testing.T) {
	r := NewRegistry()

	var calls int
	r.SubscribeOnce("evt", func(json.RawMessage) { calls++ })

	r.Dispatch("evt", nil)
	r.Dispatch("evt", nil)

	if calls != 1 {
		t.Errorf("Expected one-shot handler to fire once, got %d", calls)
	}
	if got := r.HandlerCount("evt"); got != 0 {
		t.Errorf("Expected one-shot handler removed, got %d remaining", got)
	}
}

func TestRegistry_DispatchPayload(t *testing.T) {
	r := NewRegistry()

	var got string
	sub := r.Subscribe("evt", func(data json.RawMessage) {
		var payload struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			t.Fatalf("Failed to decode payload: %v", err)
		}
		got = payload.Name
	})
	defer sub.Close()

	r.Dispatch("evt", json.RawMessage(`{"name":"Alice"}`))

	if got != "Alice" {
		t.Errorf("Expected payload name Alice, got %q", got)
	}
}

func TestRegistry_RegistrationBeforeConnection(t *testing.T) {
	// Handlers registered while nothing is connected must still receive
	// events dispatched later.
	r := NewRegistry()

	var calls int
	sub := r.Subscribe("evt", func(json.RawMessage) { calls++ })
	defer sub.Close()

	r.Dispatch("evt", nil)

	if calls != 1 {
		t.Errorf("Expected handler registered up front to fire, got %d", calls)
	}
}
