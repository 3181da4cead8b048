package socket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"
	"github.com/rs/zerolog"
)

const (
	// Time allowed to write a frame to the server.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the server.
	pongWait = 60 * time.Second

	// Send pings to the server with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Defaults applied by Config.withDefaults.
	defaultMaxReconnectAttempts = 5
	defaultReconnectDelay       = 3 * time.Second
	defaultMaxReconnectDelay    = 10 * time.Second
	defaultConnectTimeout       = 20 * time.Second
	defaultRequestTimeout       = 15 * time.Second
)

// ConnState represents the lifecycle state of the connection
type ConnState int

const (
	// StateIdle means no connection exists and none is wanted.
	StateIdle ConnState = iota

	// StateConnecting means a connect or reconnect attempt is in flight.
	StateConnecting

	// StateConnected means the channel is live and a session is assigned.
	StateConnected

	// StateDisconnected means the channel dropped and a reconnect is due.
	StateDisconnected

	// StateFailed means the last connect cycle ended in a terminal error.
	StateFailed
)

// String returns the string representation of a ConnState.
func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Config controls connection behavior. The zero value is not usable; URL is
// required and everything else falls back to documented defaults.
type Config struct {
	// URL is the websocket endpoint, e.g. ws://localhost:8080/ws.
	URL string

	// MaxReconnectAttempts caps consecutive dial failures per connect
	// cycle before the cycle fails with a NetworkError. Default 5.
	MaxReconnectAttempts int

	// ReconnectDelay separates consecutive dial attempts. Default 3s.
	ReconnectDelay time.Duration

	// MaxReconnectDelay is the ceiling for the delay schedule. Default 10s.
	MaxReconnectDelay time.Duration

	// ConnectTimeout bounds the transport dial plus the application
	// handshake of a single attempt. Default 20s.
	ConnectTimeout time.Duration

	// RequestTimeout bounds each correlated request. Default 15s.
	RequestTimeout time.Duration

	// Logger receives connection lifecycle logs. Defaults to a no-op.
	Logger *zerolog.Logger
}

func (c Config) withDefaults() Config {
	if c.MaxReconnectAttempts <= 0 {
		c.MaxReconnectAttempts = defaultMaxReconnectAttempts
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = defaultReconnectDelay
	}
	if c.MaxReconnectDelay <= 0 {
		c.MaxReconnectDelay = defaultMaxReconnectDelay
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.Logger == nil {
		nop := zerolog.Nop()
		c.Logger = &nop
	}
	return c
}

// connectAttempt lets concurrent Connect callers attach to one in-flight
// dial cycle instead of racing a second one.
type connectAttempt struct {
	done chan struct{}
	err  error
}

// ack carries a resolved reply back to a waiting Request call
type ack struct {
	data json.RawMessage
	err  error
}

// Conn manages the single bidirectional channel to the game server. All
// synchronizers share one Conn; only the owner calls Connect and
// Disconnect, everything else emits, requests, and subscribes.
type Conn struct {
	cfg      Config
	log      zerolog.Logger
	registry *Registry

	writeMu sync.Mutex // serializes frame writes; gorilla allows one writer

	mu          sync.Mutex
	state       ConnState
	ws          *websocket.Conn
	sessionID   string
	token       string
	generation  int
	manualClose bool
	inflight    *connectAttempt
	pending     map[string]chan ack
}

// NewConn creates a connection manager for the given endpoint. No network
// activity happens until Connect is called.
func NewConn(cfg Config) (*Conn, error) {
	if cfg.URL == "" {
		return nil, errors.New("socket: URL is required")
	}
	cfg = cfg.withDefaults()

	return &Conn{
		cfg:      cfg,
		log:      *cfg.Logger,
		registry: NewRegistry(),
		state:    StateIdle,
		pending:  make(map[string]chan ack),
	}, nil
}

// State returns the current lifecycle state.
func (c *Conn) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID returns the server-assigned session identifier, or "" when not
// connected.
func (c *Conn) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Registry exposes the event registry backing this connection.
func (c *Conn) Registry() *Registry {
	return c.registry
}

// Subscribe registers a broadcast handler. See Registry.Subscribe.
func (c *Conn) Subscribe(event string, fn Handler) *Subscription {
	return c.registry.Subscribe(event, fn)
}

// SubscribeOnce registers a one-shot broadcast handler.
func (c *Conn) SubscribeOnce(event string, fn Handler) *Subscription {
	return c.registry.SubscribeOnce(event, fn)
}

// Off removes every handler for the named event.
func (c *Conn) Off(event string) {
	c.registry.Off(event)
}

// Connect establishes the channel using the given bearer token. If an
// attempt is already in flight the call attaches to its outcome instead of
// dialing again. An AuthError is terminal for the cycle; transient dial
// failures are retried up to MaxReconnectAttempts with the configured
// delay in between.
func (c *Conn) Connect(ctx context.Context, token string) error {
	c.mu.Lock()
	if c.state == StateConnected {
		c.mu.Unlock()
		return nil
	}
	if att := c.inflight; att != nil {
		c.mu.Unlock()
		select {
		case <-att.done:
			return att.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	att := &connectAttempt{done: make(chan struct{})}
	c.inflight = att
	c.token = token
	c.manualClose = false
	c.state = StateConnecting
	c.mu.Unlock()

	err := c.dialCycle(ctx, token)
	c.finishAttempt(att, err)
	return err
}

// finishAttempt publishes the outcome of a connect cycle to attached
// callers and settles the lifecycle state.
func (c *Conn) finishAttempt(att *connectAttempt, err error) {
	c.mu.Lock()
	c.inflight = nil
	if err != nil && !c.manualClose {
		c.state = StateFailed
	}
	c.mu.Unlock()

	att.err = err
	close(att.done)

	if err != nil {
		c.log.Error().Err(err).Msg("connect failed")
		c.registry.Dispatch(EventConnectError, marshalEvent(ConnectErrorPayload{Message: err.Error()}))
	}
}

// dialCycle runs up to MaxReconnectAttempts dial attempts separated by the
// backoff schedule. Auth rejections abort the cycle immediately.
func (c *Conn) dialCycle(ctx context.Context, token string) error {
	delay := &backoff.Backoff{
		Min:    c.cfg.ReconnectDelay,
		Max:    c.cfg.MaxReconnectDelay,
		Factor: 1,
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxReconnectAttempts; attempt++ {
		err := c.dialOnce(ctx, token)
		if err == nil {
			return nil
		}

		var authErr *AuthError
		if errors.As(err, &authErr) {
			return err
		}
		if errors.Is(err, ErrConnClosed) || ctx.Err() != nil {
			return err
		}

		lastErr = err
		c.log.Warn().Err(err).Int("attempt", attempt).Msg("connect attempt failed")

		if attempt == c.cfg.MaxReconnectAttempts {
			break
		}
		select {
		case <-time.After(delay.Duration()):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return &NetworkError{Attempts: c.cfg.MaxReconnectAttempts, Err: lastErr}
}

// dialOnce performs one transport dial plus application handshake.
func (c *Conn) dialOnce(ctx context.Context, token string) error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.ConnectTimeout}
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	ws, resp, err := dialer.DialContext(dialCtx, c.cfg.URL, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return &AuthError{Reason: "credential rejected during handshake"}
		}
		return fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}

	// The server's first frame settles the handshake: hello or error.
	ws.SetReadDeadline(time.Now().Add(c.cfg.ConnectTimeout))
	var f frame
	if err := ws.ReadJSON(&f); err != nil {
		ws.Close()
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return ErrHandshakeTimeout
		}
		return fmt.Errorf("handshake read: %w", err)
	}
	ws.SetReadDeadline(time.Time{})

	switch f.Type {
	case frameHello:
	case frameError:
		ws.Close()
		if f.Code == "auth_failed" || f.Code == "unauthorized" {
			return &AuthError{Reason: f.Message}
		}
		return fmt.Errorf("handshake rejected: %s (%s)", f.Message, f.Code)
	default:
		ws.Close()
		return fmt.Errorf("unexpected handshake frame %q", f.Type)
	}

	c.mu.Lock()
	if c.manualClose {
		c.mu.Unlock()
		ws.Close()
		return ErrConnClosed
	}
	c.ws = ws
	c.sessionID = f.Session
	c.state = StateConnected
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	go c.readLoop(ws, gen)
	go c.pingLoop(ws, gen)

	c.log.Info().Str("session", f.Session).Msg("connected")
	c.registry.Dispatch(EventConnect, marshalEvent(ConnectPayload{Session: f.Session}))
	return nil
}

// Disconnect tears the channel down and returns to Idle. It always
// succeeds, is idempotent, clears the session identifier, and suppresses
// automatic reconnection until the next Connect call.
func (c *Conn) Disconnect() {
	c.mu.Lock()
	wasConnected := c.state == StateConnected
	ws := c.ws
	c.ws = nil
	c.sessionID = ""
	c.token = ""
	c.state = StateIdle
	c.manualClose = true
	c.generation++ // orphans any running read loop
	c.failPendingLocked(ErrConnClosed)
	c.mu.Unlock()

	if ws != nil {
		deadline := time.Now().Add(writeWait)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client disconnect")
		ws.WriteControl(websocket.CloseMessage, msg, deadline)
		ws.Close()
	}

	if wasConnected {
		c.log.Info().Msg("disconnected")
		c.registry.Dispatch(EventDisconnect, marshalEvent(DisconnectPayload{Reason: "client disconnect"}))
	}
}

// Emit sends a fire-and-forget event. When no live channel exists the
// intent is dropped, logged, and reported as ErrNotConnected; it is never
// queued for later delivery.
func (c *Conn) Emit(event string, payload any) error {
	c.mu.Lock()
	ws := c.ws
	connected := c.state == StateConnected
	c.mu.Unlock()

	if !connected || ws == nil {
		c.log.Warn().Str("event", event).Msg("emit dropped: not connected")
		return ErrNotConnected
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event, err)
	}
	if err := c.writeFrame(ws, frame{Type: frameEvent, Event: event, Data: data}); err != nil {
		return fmt.Errorf("send %s: %w", event, err)
	}
	return nil
}

// Request sends a correlated request and waits for exactly one reply. The
// wait is bounded by RequestTimeout and by ctx. A server rejection comes
// back as a *RequestError; a dropped channel as ErrConnClosed.
func (c *Conn) Request(ctx context.Context, event string, payload any) (json.RawMessage, error) {
	c.mu.Lock()
	ws := c.ws
	if c.state != StateConnected || ws == nil {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	id := uuid.NewString()
	ch := make(chan ack, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		c.removePending(id)
		return nil, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	if err := c.writeFrame(ws, frame{Type: frameRequest, ID: id, Event: event, Data: data}); err != nil {
		c.removePending(id)
		return nil, fmt.Errorf("send %s: %w", event, err)
	}

	timer := time.NewTimer(c.cfg.RequestTimeout)
	defer timer.Stop()

	select {
	case a := <-ch:
		if a.err != nil {
			return nil, a.err
		}
		return a.data, nil
	case <-timer.C:
		c.removePending(id)
		return nil, fmt.Errorf("%s: %w", event, ErrRequestTimeout)
	case <-ctx.Done():
		c.removePending(id)
		return nil, ctx.Err()
	}
}

func (c *Conn) writeFrame(ws *websocket.Conn, f frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	ws.SetWriteDeadline(time.Now().Add(writeWait))
	return ws.WriteJSON(f)
}

func (c *Conn) removePending(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// failPendingLocked rejects every pending request. Callers hold c.mu.
func (c *Conn) failPendingLocked(err error) {
	for id, ch := range c.pending {
		ch <- ack{err: err}
		delete(c.pending, id)
	}
}

// readLoop pumps frames from the server until the connection drops. Acks
// resolve pending requests; events go through the registry; a disconnect
// frame marks the following drop as server-forced.
func (c *Conn) readLoop(ws *websocket.Conn, gen int) {
	serverForced := false
	serverReason := ""

	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var f frame
		if err := ws.ReadJSON(&f); err != nil {
			c.mu.Lock()
			stale := gen != c.generation || c.manualClose
			c.mu.Unlock()
			if stale {
				return
			}
			c.handleDrop(serverForced, serverReason, err)
			return
		}

		ws.SetReadDeadline(time.Now().Add(pongWait))

		switch f.Type {
		case frameAck:
			c.resolveAck(f)
		case frameEvent:
			c.registry.Dispatch(f.Event, f.Data)
		case frameDisconnect:
			serverForced = true
			serverReason = f.Reason
			c.log.Info().Str("reason", f.Reason).Msg("server requested disconnect")
		default:
			c.log.Debug().Str("type", string(f.Type)).Msg("ignoring unexpected frame")
		}
	}
}

// pingLoop keeps the channel alive. A failed ping write surfaces as a read
// error in readLoop, which owns the drop handling.
func (c *Conn) pingLoop(ws *websocket.Conn, gen int) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		stale := gen != c.generation || c.ws != ws
		c.mu.Unlock()
		if stale {
			return
		}

		c.writeMu.Lock()
		ws.SetWriteDeadline(time.Now().Add(writeWait))
		err := ws.WriteMessage(websocket.PingMessage, nil)
		c.writeMu.Unlock()
		if err != nil {
			return
		}
	}
}

func (c *Conn) resolveAck(f frame) {
	c.mu.Lock()
	ch, ok := c.pending[f.ID]
	if ok {
		delete(c.pending, f.ID)
	}
	c.mu.Unlock()

	if !ok {
		c.log.Debug().Str("id", f.ID).Msg("ack with no pending request")
		return
	}
	if f.Error != nil {
		ch <- ack{err: &RequestError{Code: f.Error.Code, Message: f.Error.Message}}
		return
	}
	ch <- ack{data: f.Data}
}

// handleDrop transitions a live connection to Disconnected, rejects pending
// requests, and schedules the redial. A server-forced disconnect redials
// immediately; a transport-level drop waits one reconnect delay first.
func (c *Conn) handleDrop(serverForced bool, serverReason string, cause error) {
	c.mu.Lock()
	if c.manualClose || c.state != StateConnected {
		c.mu.Unlock()
		return
	}
	c.state = StateDisconnected
	token := c.token
	if c.ws != nil {
		c.ws.Close()
		c.ws = nil
	}
	c.sessionID = ""
	c.failPendingLocked(ErrConnClosed)
	c.mu.Unlock()

	reason := "transport error"
	if serverForced {
		reason = serverReason
		if reason == "" {
			reason = "server disconnect"
		}
	}
	c.log.Warn().Err(cause).Str("reason", reason).Msg("connection dropped")
	c.registry.Dispatch(EventDisconnect, marshalEvent(DisconnectPayload{Reason: reason}))

	go c.reconnect(token, serverForced)
}

// reconnect runs a fresh dial cycle after a drop. Lost in-flight intents
// are not resubmitted; callers re-check connection state before emitting.
func (c *Conn) reconnect(token string, immediate bool) {
	if !immediate {
		time.Sleep(c.cfg.ReconnectDelay)
	}

	c.mu.Lock()
	if c.manualClose || c.inflight != nil || c.state == StateConnected {
		c.mu.Unlock()
		return
	}
	att := &connectAttempt{done: make(chan struct{})}
	c.inflight = att
	c.state = StateConnecting
	c.mu.Unlock()

	err := c.dialCycle(context.Background(), token)
	c.finishAttempt(att, err)
}
