package auth

import (
	"errors"
	"testing"
	"time"
)

var secret = []byte("test-secret")

func TestTokenRoundTrip(t *testing.T) {
	token, err := NewToken(secret, "client-1", "session-1", time.Hour)
	if err != nil {
		t.Fatalf("NewToken failed: %v", err)
	}

	claims, err := Verify(secret, token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.ClientID != "client-1" {
		t.Errorf("ClientID = %q", claims.ClientID)
	}
	if claims.SessionID != "session-1" {
		t.Errorf("SessionID = %q", claims.SessionID)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewToken(secret, "client-1", "session-1", time.Hour)
	if err != nil {
		t.Fatalf("NewToken failed: %v", err)
	}
	if _, err := Verify([]byte("other-secret"), token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	token, err := NewToken(secret, "client-1", "session-1", -time.Minute)
	if err != nil {
		t.Fatalf("NewToken failed: %v", err)
	}
	if _, err := Verify(secret, token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	if _, err := Verify(secret, "not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestEmptySecretRefused(t *testing.T) {
	if _, err := NewToken(nil, "c", "s", time.Hour); !errors.Is(err, ErrEmptySecret) {
		t.Errorf("NewToken err = %v, want ErrEmptySecret", err)
	}
	if _, err := Verify(nil, "x"); !errors.Is(err, ErrEmptySecret) {
		t.Errorf("Verify err = %v, want ErrEmptySecret", err)
	}
}
