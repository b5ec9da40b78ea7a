package session

import (
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// Store holds the current access token in memory. It is never written to
// durable storage, so a new process always starts unauthenticated.
type Store struct {
	mu    sync.RWMutex
	token *oauth2.Token
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Get returns a copy of the held token, or nil.
func (s *Store) Get() *oauth2.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == nil {
		return nil
	}
	t := *s.token
	return &t
}

// Token returns the raw access token and whether one is held.
func (s *Store) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == nil {
		return "", false
	}
	return s.token.AccessToken, true
}

// Set replaces the held token. An empty access token clears the store.
func (s *Store) Set(t *oauth2.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t == nil || t.AccessToken == "" {
		s.token = nil
		return
	}
	cp := *t
	s.token = &cp
}

// Clear drops the held token.
func (s *Store) Clear() {
	s.Set(nil)
}

// IsAuthenticated reports whether a token is held. This is a local belief:
// the backend may already consider the token expired.
func (s *Store) IsAuthenticated() bool {
	_, ok := s.Token()
	return ok
}

// ExpiresIn returns the time left on the held token, or 0 when the expiry
// is unknown or nothing is held.
func (s *Store) ExpiresIn() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == nil || s.token.Expiry.IsZero() {
		return 0
	}
	return max(time.Until(s.token.Expiry), 0)
}
