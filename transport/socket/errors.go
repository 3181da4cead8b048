package socket

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned by Emit and Request when no live channel
	// exists. Intents are never queued for later delivery.
	ErrNotConnected = errors.New("not connected")

	// ErrHandshakeTimeout is returned when the server accepts the transport
	// but never completes the application handshake.
	ErrHandshakeTimeout = errors.New("handshake timed out")

	// ErrRequestTimeout is returned when a correlated request receives no
	// reply within the configured request timeout.
	ErrRequestTimeout = errors.New("request timed out")

	// ErrConnClosed is delivered to pending requests when the channel drops
	// out from under them.
	ErrConnClosed = errors.New("connection closed")
)

// AuthError is a terminal handshake rejection. No automatic retries follow
// an AuthError; the caller must obtain a fresh credential first.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	if e.Reason == "" {
		return "authentication rejected"
	}
	return fmt.Sprintf("authentication rejected: %s", e.Reason)
}

// NetworkError reports that every dial attempt in a connect cycle failed.
type NetworkError struct {
	Attempts int
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("connect failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// RequestError is the server's explicit rejection of an intent: a business
// rule violation such as a full room, a wrong password, or a character
// already taken. It is never retried automatically.
type RequestError struct {
	Code    string
	Message string
}

func (e *RequestError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
