package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("Failed to sign test token: %v", err)
	}
	return token
}

func TestMemoryStore_SaveLoadClear(t *testing.T) {
	store := NewMemoryStore()

	if _, err := store.Load(); !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("Expected ErrNoCredentials from empty store, got %v", err)
	}

	creds := Credentials{Token: "abc", PlayerID: "p1", Username: "Alice"}
	if err := store.Save(creds); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got != creds {
		t.Errorf("Expected %+v, got %+v", creds, got)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, err := store.Load(); !errors.Is(err, ErrNoCredentials) {
		t.Errorf("Expected ErrNoCredentials after Clear, got %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Errorf("Expected clearing an empty store to succeed, got %v", err)
	}
}

func TestExpiresAt(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signedToken(t, jwt.MapClaims{"sub": "p1", "exp": exp.Unix()})

	got, err := ExpiresAt(token)
	if err != nil {
		t.Fatalf("ExpiresAt failed: %v", err)
	}
	if !got.Equal(exp) {
		t.Errorf("Expected expiry %v, got %v", exp, got)
	}
}

func TestExpiresAt_NoClaim(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"sub": "p1"})

	got, err := ExpiresAt(token)
	if err != nil {
		t.Fatalf("ExpiresAt failed: %v", err)
	}
	if !got.IsZero() {
		t.Errorf("Expected zero time for token without expiry, got %v", got)
	}
}

func TestExpiresAt_Malformed(t *testing.T) {
	if _, err := ExpiresAt("not-a-jwt"); err == nil {
		t.Error("Expected error for malformed token")
	}
}

func TestExpired(t *testing.T) {
	now := time.Now()
	past := signedToken(t, jwt.MapClaims{"exp": now.Add(-time.Minute).Unix()})
	future := signedToken(t, jwt.MapClaims{"exp": now.Add(time.Hour).Unix()})
	noClaim := signedToken(t, jwt.MapClaims{"sub": "p1"})

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"past expiry", past, true},
		{"future expiry", future, false},
		{"no expiry claim", noClaim, false},
		{"malformed token", "garbage", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Expired(tt.token, now); got != tt.want {
				t.Errorf("Expected Expired=%v, got %v", tt.want, got)
			}
		})
	}
}
