package socket

import "encoding/json"

// frameType discriminates the wire frames exchanged over the channel
type frameType string

const (
	frameHello      frameType = "hello"
	frameError      frameType = "error"
	frameRequest    frameType = "request"
	frameAck        frameType = "ack"
	frameEvent      frameType = "event"
	frameDisconnect frameType = "disconnect"
)

// frame is the single envelope for every message on the channel. Which
// fields are populated depends on Type.
type frame struct {
	Type    frameType       `json:"type"`
	ID      string          `json:"id,omitempty"`
	Event   string          `json:"event,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Session string          `json:"session,omitempty"`
	Code    string          `json:"code,omitempty"`
	Message string          `json:"message,omitempty"`
	Reason  string          `json:"reason,omitempty"`
	Error   *errorPayload   `json:"error,omitempty"`
}

// errorPayload is the server's rejection attached to an ack frame
type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Synthetic connection events dispatched through the registry so consumers
// can observe the channel lifecycle alongside domain broadcasts.
const (
	EventConnect      = "connect"
	EventDisconnect   = "disconnect"
	EventConnectError = "connect_error"
)

// ConnectPayload accompanies the synthetic connect event
type ConnectPayload struct {
	Session string `json:"session"`
}

// DisconnectPayload accompanies the synthetic disconnect event
type DisconnectPayload struct {
	Reason string `json:"reason"`
}

// ConnectErrorPayload accompanies the synthetic connect_error event
type ConnectErrorPayload struct {
	Message string `json:"message"`
}

// marshalEvent encodes a synthetic event payload. Payload types here are
// known to marshal cleanly, so encoding errors are not propagated.
func marshalEvent(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
