package oauth

import "errors"

// Protocol failures are sentinel values so callers can branch on the exact
// kind. The HTTP layer maps them onto RFC 6749 wire errors; internally they
// are never coalesced (introspection is the one deliberate exception, it
// reports plain active=false whatever the reason).
var (
	ErrUnknownClient           = errors.New("unknown client")
	ErrInvalidRedirect         = errors.New("invalid redirect uri")
	ErrUnsupportedResponseType = errors.New("unsupported response type")
	ErrInvalidCredentials      = errors.New("invalid credentials")
	ErrInvalidClient           = errors.New("invalid client")
	ErrInvalidClientSecret     = errors.New("invalid client secret")
	ErrUnsupportedGrantType    = errors.New("unsupported grant type")
	ErrCodeNotFound            = errors.New("authorization code not found")
	ErrCodeExpired             = errors.New("authorization code expired")
	ErrClientMismatch          = errors.New("client mismatch")
	ErrPKCEMismatch            = errors.New("code verifier does not match challenge")
	ErrRefreshTokenNotFound    = errors.New("refresh token not found")
	ErrRefreshTokenExpired     = errors.New("refresh token expired")
	ErrTokenMalformed          = errors.New("token malformed")
	ErrTokenExpired            = errors.New("token expired")
	ErrUnauthorized            = errors.New("unauthorized")
)
