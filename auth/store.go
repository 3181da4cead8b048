package auth

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrNoCredentials is returned when no token has been stored.
	ErrNoCredentials = errors.New("no stored credentials")
)

// Credentials is one authenticated identity
type Credentials struct {
	Token    string
	PlayerID string
	Username string
}

// TokenStore keeps the active credentials for a client process.
type TokenStore interface {
	// Save replaces the stored credentials.
	Save(creds Credentials) error

	// Load returns the stored credentials, or ErrNoCredentials.
	Load() (Credentials, error)

	// Clear discards the stored credentials. Clearing an empty store is
	// a no-op.
	Clear() error
}

// MemoryStore is a process-local TokenStore.
type MemoryStore struct {
	mu    sync.RWMutex
	creds Credentials
	set   bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(creds Credentials) error {
	s.mu.Lock()
	s.creds = creds
	s.set = true
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Load() (Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.set {
		return Credentials{}, ErrNoCredentials
	}
	return s.creds, nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	s.creds = Credentials{}
	s.set = false
	s.mu.Unlock()
	return nil
}

// ExpiresAt reads the token's expiry claim without verifying the
// signature. Tokens without an expiry claim report a zero time and no
// error.
func ExpiresAt(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, err
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, err
	}
	if exp == nil {
		return time.Time{}, nil
	}
	return exp.Time, nil
}

// Expired reports whether the token carries an expiry claim in the past.
// Malformed tokens count as expired; tokens without the claim do not.
func Expired(token string, now time.Time) bool {
	exp, err := ExpiresAt(token)
	if err != nil {
		return true
	}
	if exp.IsZero() {
		return false
	}
	return exp.Before(now)
}
