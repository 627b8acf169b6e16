package oauth

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDirectory is an in-memory stand-in for the user store.
type fakeDirectory struct {
	users map[string]*DirectoryUser
}

func (d *fakeDirectory) FindByDocumento(documento string) (*DirectoryUser, error) {
	return d.users[documento], nil
}

func fakeVerify(plaintext, hash string) bool {
	return "hash:"+plaintext == hash
}

func newTestService(t *testing.T) (*Service, *fakeDirectory) {
	t.Helper()
	directory := &fakeDirectory{users: map[string]*DirectoryUser{
		"u1": {
			ID:           7,
			Documento:    "u1",
			Nombre:       "Laura Ortiz",
			Email:        "laura@example.com",
			Rol:          "instructor",
			PasswordHash: "hash:pw1",
			Activo:       true,
			CreatedAt:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		},
	}}
	svc := NewService(directory, fakeVerify, testSecret)
	return svc, directory
}

func registerTestClient(svc *Service) {
	svc.RegisterClient(&Client{
		ID:             1,
		ClientID:       "c1",
		ClientSecret:   "secret1",
		RedirectURL:    "https://cb",
		IsConfidential: true,
	})
}

func codeFromRedirect(t *testing.T, redirect string) string {
	t.Helper()
	parsed, err := url.Parse(redirect)
	require.NoError(t, err)
	return parsed.Query().Get("code")
}

func TestAuthorizeUnknownClient(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Authorize(AuthorizeRequest{
		ClientID:     "c1",
		RedirectURI:  "https://cb/x",
		ResponseType: "code",
	})
	assert.ErrorIs(t, err, ErrUnknownClient)
}

func TestAuthorizeValidations(t *testing.T) {
	svc, _ := newTestService(t)
	registerTestClient(svc)

	_, err := svc.Authorize(AuthorizeRequest{
		ClientID:     "c1",
		RedirectURI:  "https://elsewhere/cb",
		ResponseType: "code",
	})
	assert.ErrorIs(t, err, ErrInvalidRedirect)

	_, err = svc.Authorize(AuthorizeRequest{
		ClientID:     "c1",
		RedirectURI:  "https://cb/x",
		ResponseType: "token",
	})
	assert.ErrorIs(t, err, ErrUnsupportedResponseType)

	pending, err := svc.Authorize(AuthorizeRequest{
		ClientID:     "c1",
		RedirectURI:  "https://cb/x",
		ResponseType: "code",
		State:        "xyz",
	})
	require.NoError(t, err)
	assert.Equal(t, "read write", pending.Scope)
	assert.Equal(t, "xyz", pending.State)
	assert.False(t, pending.CodeChallengeRequired)
	assert.Contains(t, pending.AuthorizationURL, "/oauth/login?")

	// Authorize has no side effects; no code exists yet.
	assert.Equal(t, 0, svc.codes.Len())
}

func TestAuthenticateAndIssueCode(t *testing.T) {
	svc, _ := newTestService(t)
	registerTestClient(svc)

	_, err := svc.AuthenticateAndIssueCode(CredentialsRequest{
		Documento: "u1", Password: "wrong", ClientID: "c1", RedirectURI: "https://cb/x",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.AuthenticateAndIssueCode(CredentialsRequest{
		Documento: "nobody", Password: "pw1", ClientID: "c1", RedirectURI: "https://cb/x",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	redirect, err := svc.AuthenticateAndIssueCode(CredentialsRequest{
		Documento: "u1", Password: "pw1", ClientID: "c1",
		RedirectURI: "https://cb/x", State: "xyz",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(redirect, "https://cb/x?code="))
	assert.Contains(t, redirect, "&state=xyz")
	assert.GreaterOrEqual(t, len(codeFromRedirect(t, redirect)), 32)
}

func TestAuthenticateInactiveUser(t *testing.T) {
	svc, directory := newTestService(t)
	registerTestClient(svc)
	directory.users["u1"].Activo = false

	_, err := svc.AuthenticateAndIssueCode(CredentialsRequest{
		Documento: "u1", Password: "pw1", ClientID: "c1", RedirectURI: "https://cb/x",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestTokenAuthorizationCodeGrant(t *testing.T) {
	svc, _ := newTestService(t)
	registerTestClient(svc)

	redirect, err := svc.AuthenticateAndIssueCode(CredentialsRequest{
		Documento: "u1", Password: "pw1", ClientID: "c1", RedirectURI: "https://cb/x",
	})
	require.NoError(t, err)
	code := codeFromRedirect(t, redirect)

	resp, err := svc.Token(TokenRequest{
		GrantType: "authorization_code", ClientID: "c1", ClientSecret: "secret1", Code: code,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, 1800, resp.ExpiresIn)
	assert.Equal(t, "read write", resp.Scope)

	// Replaying the exchange with the same code must fail.
	_, err = svc.Token(TokenRequest{
		GrantType: "authorization_code", ClientID: "c1", ClientSecret: "secret1", Code: code,
	})
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestTokenClientChecks(t *testing.T) {
	svc, _ := newTestService(t)
	registerTestClient(svc)

	_, err := svc.Token(TokenRequest{GrantType: "authorization_code", ClientID: "ghost"})
	assert.ErrorIs(t, err, ErrInvalidClient)

	_, err = svc.Token(TokenRequest{
		GrantType: "authorization_code", ClientID: "c1", ClientSecret: "wrong",
	})
	assert.ErrorIs(t, err, ErrInvalidClientSecret)

	_, err = svc.Token(TokenRequest{
		GrantType: "password", ClientID: "c1", ClientSecret: "secret1",
	})
	assert.ErrorIs(t, err, ErrUnsupportedGrantType)
}

func TestTokenPublicClientSkipsSecret(t *testing.T) {
	svc, _ := newTestService(t)
	svc.RegisterClient(&Client{
		ID: 2, ClientID: "mobile", RedirectURL: "app://cb", IsConfidential: false,
	})

	redirect, err := svc.AuthenticateAndIssueCode(CredentialsRequest{
		Documento: "u1", Password: "pw1", ClientID: "mobile", RedirectURI: "app://cb",
	})
	require.NoError(t, err)

	resp, err := svc.Token(TokenRequest{
		GrantType: "authorization_code", ClientID: "mobile",
		Code: codeFromRedirect(t, redirect),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
}

func TestTokenRefreshGrant(t *testing.T) {
	svc, _ := newTestService(t)
	registerTestClient(svc)

	redirect, err := svc.AuthenticateAndIssueCode(CredentialsRequest{
		Documento: "u1", Password: "pw1", ClientID: "c1", RedirectURI: "https://cb/x",
	})
	require.NoError(t, err)
	first, err := svc.Token(TokenRequest{
		GrantType: "authorization_code", ClientID: "c1", ClientSecret: "secret1",
		Code: codeFromRedirect(t, redirect),
	})
	require.NoError(t, err)

	// The refresh token is reusable; every redemption mints a fresh access
	// token and never a new refresh token.
	for i := 0; i < 2; i++ {
		resp, err := svc.Token(TokenRequest{
			GrantType: "refresh_token", ClientID: "c1", ClientSecret: "secret1",
			RefreshToken: first.RefreshToken,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.AccessToken)
		assert.Empty(t, resp.RefreshToken)
	}

	_, err = svc.Token(TokenRequest{
		GrantType: "refresh_token", ClientID: "c1", ClientSecret: "secret1",
		RefreshToken: "unknown",
	})
	assert.ErrorIs(t, err, ErrRefreshTokenNotFound)
}

func TestIntrospect(t *testing.T) {
	svc, directory := newTestService(t)
	registerTestClient(svc)

	token, err := svc.issuer.Mint("u1")
	require.NoError(t, err)

	result := svc.Introspect(token)
	assert.True(t, result.Active)
	assert.Equal(t, "u1", result.Subject)
	assert.Equal(t, "access_token", result.TokenType)
	require.NotNil(t, result.User)
	assert.Equal(t, "instructor", result.User.Rol)
	assert.Equal(t, "Laura Ortiz", result.User.Nombre)

	// Tampered token.
	assert.False(t, svc.Introspect(token+"x").Active)

	// Subject no longer active in the directory.
	directory.users["u1"].Activo = false
	assert.False(t, svc.Introspect(token).Active)

	// Subject gone entirely.
	delete(directory.users, "u1")
	assert.False(t, svc.Introspect(token).Active)
}

func TestIntrospectExpiredToken(t *testing.T) {
	svc, _ := newTestService(t)
	token, err := svc.issuer.Mint("u1")
	require.NoError(t, err)

	svc.issuer.now = func() time.Time { return time.Now().Add(time.Hour) }
	assert.False(t, svc.Introspect(token).Active)
}

func TestRevoke(t *testing.T) {
	svc, _ := newTestService(t)
	registerTestClient(svc)

	refreshToken := svc.refresh.Issue("u1", "c1")

	result := svc.Revoke(refreshToken, "refresh_token")
	assert.True(t, result.Revoked)
	assert.Equal(t, "refresh_token", result.TokenType)

	_, err := svc.refresh.Redeem(refreshToken, "c1")
	assert.ErrorIs(t, err, ErrRefreshTokenNotFound)

	// Hinted refresh token that does not exist.
	result = svc.Revoke(refreshToken, "refresh_token")
	assert.False(t, result.Revoked)
	assert.Equal(t, "refresh_token", result.TokenType)

	// Detection by existence, without a hint.
	other := svc.refresh.Issue("u1", "c1")
	result = svc.Revoke(other, "")
	assert.True(t, result.Revoked)
	assert.Equal(t, "refresh_token", result.TokenType)

	// Access tokens are stateless; revocation is reported as success but has
	// no effect before natural expiry.
	access, err := svc.issuer.Mint("u1")
	require.NoError(t, err)
	result = svc.Revoke(access, "access_token")
	assert.True(t, result.Revoked)
	assert.Equal(t, "access_token", result.TokenType)
	assert.True(t, svc.Introspect(access).Active)
}

func TestUserinfo(t *testing.T) {
	svc, directory := newTestService(t)

	token, err := svc.issuer.Mint("u1")
	require.NoError(t, err)

	claims, err := svc.Userinfo(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "Laura Ortiz", claims.Name)
	assert.Equal(t, "laura@example.com", claims.Email)
	assert.Equal(t, "instructor", claims.Role)
	assert.True(t, claims.Active)
	assert.Equal(t, "2024-03-01T12:00:00Z", claims.CreatedAt)
	assert.Equal(t, uint(7), claims.UserID)

	_, err = svc.Userinfo("garbage")
	assert.ErrorIs(t, err, ErrUnauthorized)

	directory.users["u1"].Activo = false
	_, err = svc.Userinfo(token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestCleanupExpired(t *testing.T) {
	svc, _ := newTestService(t)
	registerTestClient(svc)

	svc.codes.Issue("c1", "u1", "https://cb/x", "", "S256")
	svc.refresh.Issue("u1", "c1")

	ahead := func() time.Time { return time.Now().Add(60 * 24 * time.Hour) }
	svc.codes.now = ahead
	svc.refresh.now = ahead

	keepCode := svc.codes.Issue("c1", "u2", "https://cb/x", "", "S256")
	keepToken := svc.refresh.Issue("u2", "c1")

	svc.CleanupExpired()

	status := svc.Status()
	assert.Equal(t, 1, status.PendingAuthCodes)
	assert.Equal(t, 1, status.ActiveRefreshTokens)

	// The surviving entries are intact.
	subject, err := svc.codes.Redeem(keepCode, "c1", "")
	require.NoError(t, err)
	assert.Equal(t, "u2", subject)
	subject, err = svc.refresh.Redeem(keepToken, "c1")
	require.NoError(t, err)
	assert.Equal(t, "u2", subject)
}

func TestEndToEndScenario(t *testing.T) {
	svc, _ := newTestService(t)

	// Unregistered client is rejected up front.
	_, err := svc.Authorize(AuthorizeRequest{
		ClientID: "c1", RedirectURI: "https://cb/x", ResponseType: "code",
	})
	assert.ErrorIs(t, err, ErrUnknownClient)

	// Register c1 with redirect prefix https://cb; a longer URI passes.
	registerTestClient(svc)
	_, err = svc.Authorize(AuthorizeRequest{
		ClientID: "c1", RedirectURI: "https://cb/x", ResponseType: "code",
	})
	require.NoError(t, err)

	redirect, err := svc.AuthenticateAndIssueCode(CredentialsRequest{
		Documento: "u1", Password: "pw1", ClientID: "c1", RedirectURI: "https://cb/x",
	})
	require.NoError(t, err)
	code := codeFromRedirect(t, redirect)
	assert.GreaterOrEqual(t, len(code), 32)

	resp, err := svc.Token(TokenRequest{
		GrantType: "authorization_code", ClientID: "c1", ClientSecret: "secret1", Code: code,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, 1800, resp.ExpiresIn)

	_, err = svc.Token(TokenRequest{
		GrantType: "authorization_code", ClientID: "c1", ClientSecret: "secret1", Code: code,
	})
	assert.ErrorIs(t, err, ErrCodeNotFound)
}
