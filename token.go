package groupwire

import (
	"context"
	"sync"
)

// TokenHeader is the fixed header carrying the anti-forgery token on
// requests that require one.
const TokenHeader = "X-CSRF-TOKEN"

// TokenSource fetches a fresh anti-forgery token from the gateway.
// The client's default source posts to the configured token endpoint
// and returns the trimmed response body.
type TokenSource func(ctx context.Context) (string, error)

// TokenStore is a single-slot cache for the gateway's anti-forgery
// token. Each client owns one store by default; inject a shared store
// through Config.Tokens to make clients cooperate, or isolated stores
// to keep tests independent.
//
// The store is safe for concurrent use, but Acquire does not coalesce
// callers: two requests discovering an empty slot at the same time may
// both hit the token endpoint. That duplication is harmless because
// acquisition is idempotent.
type TokenStore struct {
	mu    sync.RWMutex
	token string
}

// NewTokenStore creates an empty token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

// Get returns the cached token, or the empty string when none is held.
func (s *TokenStore) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Set stores a token, replacing any previous one.
func (s *TokenStore) Set(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Clear empties the slot. The next token-requiring request will
// acquire a fresh token.
func (s *TokenStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}

// Acquire fetches a token from src and stores it. On failure the slot
// is left unchanged so a later call can attempt acquisition again.
func (s *TokenStore) Acquire(ctx context.Context, src TokenSource) error {
	token, err := src(ctx)
	if err != nil {
		return &TokenError{Err: err}
	}
	s.Set(token)
	return nil
}
