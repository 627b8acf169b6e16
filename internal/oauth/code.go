package oauth

import (
	"crypto/sha256"
	"encoding/base64"
	"sync"
	"time"
)

const (
	authorizationCodeLength = 32
	authorizationCodeTTL    = 10 * time.Minute
)

// AuthorizationCode binds a single-use code to the client, subject, redirect
// URL and PKCE challenge it was issued for.
type AuthorizationCode struct {
	Code                string
	ClientID            string
	Subject             string
	ExpiresAt           time.Time
	CodeChallenge       string
	CodeChallengeMethod string
	RedirectURL         string
}

// IsExpired reports whether the code is past its expiry at the given time.
func (c *AuthorizationCode) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// VerifyChallenge checks a PKCE code verifier against the stored challenge.
// For S256 the challenge must equal base64url(sha256(verifier)) without
// padding; for plain it must equal the verifier exactly.
func (c *AuthorizationCode) VerifyChallenge(verifier string) bool {
	switch c.CodeChallengeMethod {
	case "plain":
		return c.CodeChallenge == verifier
	case "S256":
		digest := sha256.Sum256([]byte(verifier))
		expected := base64.RawURLEncoding.EncodeToString(digest[:])
		return c.CodeChallenge == expected
	}
	return false
}

// CodeStore holds pending authorization codes in memory. All mutations are
// serialized under one lock so a code can never be redeemed twice and a
// sweep cannot race a redemption.
type CodeStore struct {
	mu    sync.Mutex
	codes map[string]*AuthorizationCode
	now   func() time.Time
}

func NewCodeStore() *CodeStore {
	return &CodeStore{
		codes: make(map[string]*AuthorizationCode),
		now:   time.Now,
	}
}

// Issue generates a random single-use code bound to the given client,
// subject, redirect URL and optional PKCE challenge, valid for ten minutes.
func (s *CodeStore) Issue(clientID, subject, redirectURL, codeChallenge, codeChallengeMethod string) string {
	code := randomString(authorizationCodeLength)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code] = &AuthorizationCode{
		Code:                code,
		ClientID:            clientID,
		Subject:             subject,
		ExpiresAt:           s.now().Add(authorizationCodeTTL),
		CodeChallenge:       codeChallenge,
		CodeChallengeMethod: codeChallengeMethod,
		RedirectURL:         redirectURL,
	}
	return code
}

// Redeem exchanges a code for the subject it was issued to. The code is
// deleted on success (single use) and also when observed expired. PKCE is
// enforced when the code carries a challenge and a verifier was supplied.
func (s *CodeStore) Redeem(code, clientID, codeVerifier string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	authCode, ok := s.codes[code]
	if !ok {
		return "", ErrCodeNotFound
	}
	if authCode.IsExpired(s.now()) {
		delete(s.codes, code)
		return "", ErrCodeExpired
	}
	if authCode.ClientID != clientID {
		return "", ErrClientMismatch
	}
	if authCode.CodeChallenge != "" && codeVerifier != "" {
		if !authCode.VerifyChallenge(codeVerifier) {
			return "", ErrPKCEMismatch
		}
	}

	delete(s.codes, code)
	return authCode.Subject, nil
}

// Cleanup removes every expired code. Safe to call concurrently with Issue
// and Redeem.
func (s *CodeStore) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for code, authCode := range s.codes {
		if authCode.IsExpired(now) {
			delete(s.codes, code)
			removed++
		}
	}
	return removed
}

// Len returns the number of pending codes.
func (s *CodeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.codes)
}
