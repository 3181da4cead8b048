package socket

import (
	"encoding/json"
	"sync"
)

// Handler receives the raw payload of a dispatched event
type Handler func(data json.RawMessage)

// Registry is a named-event publish/subscribe table. It is independent of
// any particular connection: handlers registered before a connection exists
// receive events delivered after one forms, and subscriptions survive
// reconnects.
type Registry struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[string][]*Subscription
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		subs: make(map[string][]*Subscription),
	}
}

// Subscription is the handle returned by Subscribe. Closing it removes
// exactly this handler without touching other subscribers of the same
// event. Close is idempotent and safe to call on every exit path.
type Subscription struct {
	registry *Registry
	event    string
	id       uint64
	fn       Handler
	once     bool
}

// Event returns the event name this subscription listens to.
func (s *Subscription) Event() string {
	return s.event
}

// Close removes the subscription. Closing an already-closed subscription is
// a no-op.
func (s *Subscription) Close() {
	s.registry.remove(s.event, s.id)
}

// Subscribe registers a handler for the named event and returns its handle.
// Multiple independent subscriptions per event are supported; each is
// released individually.
func (r *Registry) Subscribe(event string, fn Handler) *Subscription {
	return r.add(event, fn, false)
}

// SubscribeOnce registers a handler that is removed after its first
// delivery.
func (r *Registry) SubscribeOnce(event string, fn Handler) *Subscription {
	return r.add(event, fn, true)
}

func (r *Registry) add(event string, fn Handler, once bool) *Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	sub := &Subscription{
		registry: r,
		event:    event,
		id:       r.nextID,
		fn:       fn,
		once:     once,
	}
	r.subs[event] = append(r.subs[event], sub)
	return sub
}

// Off removes every handler registered for the named event. Removing an
// event nobody listens to is a no-op.
func (r *Registry) Off(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, event)
}

// HandlerCount returns the number of live subscriptions for an event.
func (r *Registry) HandlerCount(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs[event])
}

// Dispatch delivers an event payload to every current subscriber, in
// registration order, on the caller's goroutine. One-shot subscriptions are
// removed before their handler runs.
func (r *Registry) Dispatch(event string, data json.RawMessage) {
	r.mu.Lock()
	current := r.subs[event]
	targets := make([]*Subscription, len(current))
	copy(targets, current)

	// Drop one-shot subscriptions before invoking anything so a handler
	// that re-dispatches cannot double-deliver them.
	remaining := current[:0]
	for _, sub := range current {
		if !sub.once {
			remaining = append(remaining, sub)
		}
	}
	if len(remaining) == 0 {
		delete(r.subs, event)
	} else {
		r.subs[event] = remaining
	}
	r.mu.Unlock()

	for _, sub := range targets {
		sub.fn(data)
	}
}

func (r *Registry) remove(event string, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.subs[event]
	for i, sub := range current {
		if sub.id == id {
			r.subs[event] = append(current[:i], current[i+1:]...)
			break
		}
	}
	if len(r.subs[event]) == 0 {
		delete(r.subs, event)
	}
}
