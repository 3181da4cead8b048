package api

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestEnvelopeDecode_Success(t *testing.T) {
	env := Envelope{
		Success: true,
		Data:    json.RawMessage(`{"token":"abc","player_id":"p1","username":"Alice"}`),
	}

	var auth AuthResponse
	if err := env.Decode(&auth); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if auth.Token != "abc" || auth.PlayerID != "p1" {
		t.Errorf("Unexpected decoded payload: %+v", auth)
	}
}

func TestEnvelopeDecode_Failure(t *testing.T) {
	env := Envelope{Success: false, Error: "invalid credentials"}

	var auth AuthResponse
	err := env.Decode(&auth)
	if err == nil {
		t.Fatal("Expected error from failed envelope")
	}
	if !strings.Contains(err.Error(), "invalid credentials") {
		t.Errorf("Expected server message in error, got %v", err)
	}
}

func TestEnvelopeDecode_FailureWithoutMessage(t *testing.T) {
	env := Envelope{Success: false}
	if err := env.Decode(nil); err == nil {
		t.Error("Expected generic error when the server sends no message")
	}
}

func TestEnvelopeDecode_EmptyData(t *testing.T) {
	env := Envelope{Success: true}
	var auth AuthResponse
	if err := env.Decode(&auth); err != nil {
		t.Errorf("Expected nil error for empty payload, got %v", err)
	}
}
