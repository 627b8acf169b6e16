package oauth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-jwt-secret-key-32-characters"

func TestAccessTokenMintAndVerify(t *testing.T) {
	issuer := NewAccessTokenIssuer(testSecret)

	token, err := issuer.Mint("1000001")
	require.NoError(t, err)
	assert.Contains(t, token, ".") // JWT format

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "1000001", claims.Subject)
	assert.Equal(t, "access_token", claims.TokenType)
	assert.Equal(t, claims.IssuedAt+int64(issuer.TTL().Seconds()), claims.ExpiresAt)
}

func TestAccessTokenExpired(t *testing.T) {
	issuer := NewAccessTokenIssuer(testSecret)
	token, err := issuer.Mint("1000001")
	require.NoError(t, err)

	issuer.now = func() time.Time { return time.Now().Add(31 * time.Minute) }
	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestAccessTokenTamperedSignature(t *testing.T) {
	issuer := NewAccessTokenIssuer(testSecret)
	token, err := issuer.Mint("1000001")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + "AAAA" + parts[2][4:]

	_, err = issuer.Verify(tampered)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestAccessTokenWrongKey(t *testing.T) {
	issuer := NewAccessTokenIssuer(testSecret)
	other := NewAccessTokenIssuer("a-completely-different-secret-key")

	token, err := other.Mint("1000001")
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestAccessTokenGarbage(t *testing.T) {
	issuer := NewAccessTokenIssuer(testSecret)

	_, err := issuer.Verify("not-a-jwt")
	assert.ErrorIs(t, err, ErrTokenMalformed)

	_, err = issuer.Verify("")
	assert.ErrorIs(t, err, ErrTokenMalformed)
}
