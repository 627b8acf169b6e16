package oauth

import (
	"sync"
	"time"
)

const (
	refreshTokenLength = 64
	refreshTokenTTL    = 30 * 24 * time.Hour
)

// RefreshToken binds a long-lived opaque token to a subject and the client
// it was issued to. Unlike authorization codes it is reusable until it
// expires or is explicitly revoked.
type RefreshToken struct {
	Token     string
	Subject   string
	ClientID  string
	ExpiresAt time.Time
}

// IsExpired reports whether the token is past its expiry at the given time.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// RefreshTokenStore holds issued refresh tokens in memory, one lock
// serializing issue, redeem, revoke and sweep.
type RefreshTokenStore struct {
	mu     sync.Mutex
	tokens map[string]*RefreshToken
	now    func() time.Time
}

func NewRefreshTokenStore() *RefreshTokenStore {
	return &RefreshTokenStore{
		tokens: make(map[string]*RefreshToken),
		now:    time.Now,
	}
}

// Issue creates a random refresh token for subject/clientID, valid for
// thirty days.
func (s *RefreshTokenStore) Issue(subject, clientID string) string {
	token := randomString(refreshTokenLength)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = &RefreshToken{
		Token:     token,
		Subject:   subject,
		ClientID:  clientID,
		ExpiresAt: s.now().Add(refreshTokenTTL),
	}
	return token
}

// Redeem validates the token for the given client and returns the bound
// subject. The token is NOT consumed; it stays valid until expiry or
// revocation. An expired token is deleted when observed.
func (s *RefreshTokenStore) Redeem(token, clientID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rt, ok := s.tokens[token]
	if !ok {
		return "", ErrRefreshTokenNotFound
	}
	if rt.IsExpired(s.now()) {
		delete(s.tokens, token)
		return "", ErrRefreshTokenExpired
	}
	if rt.ClientID != clientID {
		return "", ErrClientMismatch
	}
	return rt.Subject, nil
}

// Revoke deletes the token if present and reports whether it existed.
func (s *RefreshTokenStore) Revoke(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tokens[token]; !ok {
		return false
	}
	delete(s.tokens, token)
	return true
}

// Has reports whether the token is currently stored, expired or not.
func (s *RefreshTokenStore) Has(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tokens[token]
	return ok
}

// Cleanup removes every expired token.
func (s *RefreshTokenStore) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for token, rt := range s.tokens {
		if rt.IsExpired(now) {
			delete(s.tokens, token)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored refresh tokens.
func (s *RefreshTokenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}
