package session

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User is the AIMS user payload.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Active bool   `json:"active"`
	Locked bool   `json:"locked"`
}

// Account is the AIMS account payload.
type Account struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Active              bool     `json:"active"`
	DefaultLocation     string   `json:"default_location"`
	AccessibleLocations []string `json:"accessible_locations"`
}

// Authentication is the AIMS authenticate response body.
type Authentication struct {
	User            User    `json:"user"`
	Account         Account `json:"account"`
	Token           string  `json:"token"`
	TokenExpiration int64   `json:"token_expiration"` // epoch seconds, 0 if absent
}

// ExpiresAt returns the token's expiry. When the payload omits
// token_expiration, the bearer token's own exp claim is consulted
// (decoded without signature verification; the token is opaque to us and
// verified server-side). Zero time means the expiry is unknown.
func (a Authentication) ExpiresAt() time.Time {
	if a.TokenExpiration > 0 {
		return time.Unix(a.TokenExpiration, 0)
	}
	if a.Token == "" {
		return time.Time{}
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(a.Token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// Session stores the current authentication.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - The zero value is a usable, unauthenticated session.
type Session struct {
	mu     sync.RWMutex
	auth   Authentication
	active bool
}

// New creates an unauthenticated Session.
func New() *Session {
	return &Session{}
}

// SetAuthentication replaces the current identity.
func (s *Session) SetAuthentication(auth Authentication) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth = auth
	s.active = true
}

// Authentication returns the current identity and whether one is set.
func (s *Session) Authentication() (Authentication, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.auth, s.active
}

// Token returns the current bearer token, or "" when unauthenticated.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.auth.Token
}

// AccountID returns the acting account id, or "" when unauthenticated.
func (s *Session) AccountID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.auth.Account.ID
}

// UserID returns the acting user id, or "" when unauthenticated.
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.auth.User.ID
}

// Expired reports whether the session holds no identity or one whose
// token is past its expiry. Sessions with unknown expiry never report
// expired.
func (s *Session) Expired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.active {
		return true
	}
	exp := s.auth.ExpiresAt()
	if exp.IsZero() {
		return false
	}
	return time.Now().After(exp)
}

// Clear drops the current identity.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth = Authentication{}
	s.active = false
}
