package oauth

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeStoreIssueAndRedeem(t *testing.T) {
	store := NewCodeStore()

	code := store.Issue("c1", "u1", "https://cb/x", "", "S256")
	assert.GreaterOrEqual(t, len(code), 32)
	assert.Equal(t, 1, store.Len())

	subject, err := store.Redeem(code, "c1", "")
	require.NoError(t, err)
	assert.Equal(t, "u1", subject)
	assert.Equal(t, 0, store.Len())
}

func TestCodeStoreSingleUse(t *testing.T) {
	store := NewCodeStore()
	code := store.Issue("c1", "u1", "https://cb/x", "", "S256")

	_, err := store.Redeem(code, "c1", "")
	require.NoError(t, err)

	// Second redemption with the same code must always fail.
	_, err = store.Redeem(code, "c1", "")
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestCodeStoreUnknownCode(t *testing.T) {
	store := NewCodeStore()
	_, err := store.Redeem("never-issued", "c1", "")
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestCodeStoreExpiredCodeDeleted(t *testing.T) {
	store := NewCodeStore()
	code := store.Issue("c1", "u1", "https://cb/x", "", "S256")

	store.now = func() time.Time { return time.Now().Add(11 * time.Minute) }

	_, err := store.Redeem(code, "c1", "")
	assert.ErrorIs(t, err, ErrCodeExpired)

	// Expiry deletes the code as a side effect, so the next attempt is a
	// plain not-found even before the expiry cutoff.
	store.now = time.Now
	_, err = store.Redeem(code, "c1", "")
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestCodeStoreClientMismatch(t *testing.T) {
	store := NewCodeStore()
	code := store.Issue("c1", "u1", "https://cb/x", "", "S256")

	_, err := store.Redeem(code, "other-client", "")
	assert.ErrorIs(t, err, ErrClientMismatch)

	// The mismatch must not consume the code.
	subject, err := store.Redeem(code, "c1", "")
	require.NoError(t, err)
	assert.Equal(t, "u1", subject)
}

func TestCodeStorePKCES256(t *testing.T) {
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	digest := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(digest[:])

	store := NewCodeStore()

	code := store.Issue("c1", "u1", "https://cb/x", challenge, "S256")
	_, err := store.Redeem(code, "c1", "wrong-verifier")
	assert.ErrorIs(t, err, ErrPKCEMismatch)

	code = store.Issue("c1", "u1", "https://cb/x", challenge, "S256")
	subject, err := store.Redeem(code, "c1", verifier)
	require.NoError(t, err)
	assert.Equal(t, "u1", subject)
}

func TestCodeStorePKCEPlain(t *testing.T) {
	store := NewCodeStore()

	code := store.Issue("c1", "u1", "https://cb/x", "plain-secret", "plain")
	_, err := store.Redeem(code, "c1", "not-the-secret")
	assert.ErrorIs(t, err, ErrPKCEMismatch)

	code = store.Issue("c1", "u1", "https://cb/x", "plain-secret", "plain")
	subject, err := store.Redeem(code, "c1", "plain-secret")
	require.NoError(t, err)
	assert.Equal(t, "u1", subject)
}

func TestCodeStorePKCESkippedWithoutVerifier(t *testing.T) {
	// PKCE is enforced only when both a challenge was stored and a
	// verifier is supplied with the exchange.
	store := NewCodeStore()
	code := store.Issue("c1", "u1", "https://cb/x", "some-challenge", "S256")

	subject, err := store.Redeem(code, "c1", "")
	require.NoError(t, err)
	assert.Equal(t, "u1", subject)
}

func TestCodeStoreCleanup(t *testing.T) {
	store := NewCodeStore()

	expired := store.Issue("c1", "u1", "https://cb/x", "", "S256")
	store.now = func() time.Time { return time.Now().Add(20 * time.Minute) }
	fresh := store.Issue("c1", "u2", "https://cb/x", "", "S256")

	removed := store.Cleanup()
	assert.Equal(t, 1, removed)

	_, err := store.Redeem(expired, "c1", "")
	assert.ErrorIs(t, err, ErrCodeNotFound)

	subject, err := store.Redeem(fresh, "c1", "")
	require.NoError(t, err)
	assert.Equal(t, "u2", subject)
}
