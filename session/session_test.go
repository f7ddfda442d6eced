package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": exp.Unix(),
	})
	signed, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	return signed
}

func TestSession_Lifecycle(t *testing.T) {
	s := New()

	if !s.Expired() {
		t.Error("fresh session should report expired")
	}
	if s.Token() != "" || s.AccountID() != "" || s.UserID() != "" {
		t.Error("unauthenticated session leaked identity fields")
	}

	s.SetAuthentication(Authentication{
		User:            User{ID: "u1", Name: "alice", Active: true},
		Account:         Account{ID: "2", Name: "acme", DefaultLocation: "defender-us-denver"},
		Token:           "opaque-token",
		TokenExpiration: time.Now().Add(time.Hour).Unix(),
	})

	if s.Expired() {
		t.Error("live session reports expired")
	}
	if got := s.AccountID(); got != "2" {
		t.Errorf("AccountID = %q, want 2", got)
	}
	if got := s.UserID(); got != "u1" {
		t.Errorf("UserID = %q, want u1", got)
	}
	if got := s.Token(); got != "opaque-token" {
		t.Errorf("Token = %q", got)
	}

	s.Clear()
	if !s.Expired() {
		t.Error("cleared session should report expired")
	}
	if _, ok := s.Authentication(); ok {
		t.Error("Authentication reported set after Clear")
	}
}

func TestAuthentication_ExpiresAt(t *testing.T) {
	explicit := Authentication{TokenExpiration: 1_800_000_000}
	if got := explicit.ExpiresAt(); got.Unix() != 1_800_000_000 {
		t.Errorf("ExpiresAt = %v, want explicit token_expiration", got)
	}

	// Absent token_expiration falls back to the JWT exp claim.
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	fromJWT := Authentication{Token: signedToken(t, exp)}
	if got := fromJWT.ExpiresAt(); !got.Equal(exp) {
		t.Errorf("ExpiresAt = %v, want %v from exp claim", got, exp)
	}

	// Opaque non-JWT token yields unknown expiry.
	opaque := Authentication{Token: "not-a-jwt"}
	if got := opaque.ExpiresAt(); !got.IsZero() {
		t.Errorf("ExpiresAt = %v, want zero for opaque token", got)
	}
}

func TestSession_ExpiredViaJWT(t *testing.T) {
	s := New()
	s.SetAuthentication(Authentication{Token: signedToken(t, time.Now().Add(-time.Minute))})
	if !s.Expired() {
		t.Error("session with expired JWT should report expired")
	}

	s.SetAuthentication(Authentication{Token: "opaque"})
	if s.Expired() {
		t.Error("session with unknown expiry should not report expired")
	}
}
