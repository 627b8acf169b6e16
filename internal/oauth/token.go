package oauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const accessTokenTTL = 30 * time.Minute

// AccessTokenClaims are the claims embedded in a minted access token.
// Access tokens are not stored server-side; validity is determined purely by
// signature and expiry at verification time.
type AccessTokenClaims struct {
	Subject   string
	IssuedAt  int64
	ExpiresAt int64
	TokenType string
}

// AccessTokenIssuer mints and verifies self-contained signed access tokens.
// Tokens are HS256 JWTs carrying sub, iat, exp and a type tag, signed with a
// process-wide secret.
type AccessTokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAccessTokenIssuer(secret string) *AccessTokenIssuer {
	return &AccessTokenIssuer{
		secret: []byte(secret),
		ttl:    accessTokenTTL,
		now:    time.Now,
	}
}

// TTL returns the access token lifetime.
func (i *AccessTokenIssuer) TTL() time.Duration {
	return i.ttl
}

// Mint signs a fresh access token for subject.
func (i *AccessTokenIssuer) Mint(subject string) (string, error) {
	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  subject,
		"iat":  now.Unix(),
		"exp":  now.Add(i.ttl).Unix(),
		"type": "access_token",
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the embedded claims.
// Expired tokens fail ErrTokenExpired; anything else that does not parse or
// validate fails ErrTokenMalformed.
func (i *AccessTokenIssuer) Verify(tokenString string) (*AccessTokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(i.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrTokenMalformed
	}

	out := &AccessTokenClaims{Subject: sub, TokenType: "access_token"}
	if typ, ok := claims["type"].(string); ok && typ != "" {
		out.TokenType = typ
	}
	if iat, ok := claims["iat"].(float64); ok {
		out.IssuedAt = int64(iat)
	}
	if exp, ok := claims["exp"].(float64); ok {
		out.ExpiresAt = int64(exp)
	}
	return out, nil
}
