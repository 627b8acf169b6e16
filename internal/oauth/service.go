package oauth

import (
	"fmt"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"
)

const defaultScope = "read write"

// DirectoryUser is the directory record the core consumes. It is a copy of
// the backing row; the core never touches the relational store directly.
type DirectoryUser struct {
	ID           uint
	Documento    string
	Nombre       string
	Email        string
	Rol          string
	PasswordHash string
	Activo       bool
	CreatedAt    time.Time
}

// UserDirectory is the lookup collaborator backed by the user store.
// A missing user is reported as (nil, nil); errors are reserved for
// infrastructure faults.
type UserDirectory interface {
	FindByDocumento(documento string) (*DirectoryUser, error)
}

// CredentialVerifier checks a plaintext password against a stored hash.
type CredentialVerifier func(plaintext, hash string) bool

// Service orchestrates the five protocol operations over the client
// registry, the two mutable stores and the access token issuer. It
// exclusively owns and mutates all of them.
type Service struct {
	clients   *ClientRegistry
	codes     *CodeStore
	refresh   *RefreshTokenStore
	issuer    *AccessTokenIssuer
	directory UserDirectory
	verify    CredentialVerifier
}

func NewService(directory UserDirectory, verify CredentialVerifier, jwtSecret string) *Service {
	return &Service{
		clients:   NewClientRegistry(),
		codes:     NewCodeStore(),
		refresh:   NewRefreshTokenStore(),
		issuer:    NewAccessTokenIssuer(jwtSecret),
		directory: directory,
		verify:    verify,
	}
}

// RegisterClient adds a client to the registry. Called during startup
// wiring only.
func (s *Service) RegisterClient(client *Client) {
	s.clients.Register(client)
	log.WithFields(log.Fields{
		"client_id":    client.ClientID,
		"redirect_url": client.RedirectURL,
		"confidential": client.IsConfidential,
	}).Info("OAuth client registered")
}

// Clients returns a snapshot of the registered clients.
func (s *Service) Clients() []*Client {
	return s.clients.All()
}

// Issuer exposes the access token issuer for collaborators that mint tokens
// outside the authorization-code flow (password login).
func (s *Service) Issuer() *AccessTokenIssuer {
	return s.issuer
}

// AuthorizeRequest carries the query parameters of the authorize operation.
type AuthorizeRequest struct {
	ClientID            string
	RedirectURI         string
	Scope               string
	ResponseType        string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
}

// PendingAuthorization describes a validated but not yet authenticated
// authorization transaction. No code has been issued at this point.
type PendingAuthorization struct {
	AuthorizationURL      string `json:"authorization_url"`
	ClientID              string `json:"client_id"`
	RedirectURI           string `json:"redirect_uri"`
	Scope                 string `json:"scope"`
	State                 string `json:"state"`
	CodeChallengeRequired bool   `json:"code_challenge_required"`
}

// Authorize validates the start of an authorization-code transaction.
// It has no side effects; code issuance is deferred until the resource
// owner's credentials are confirmed.
func (s *Service) Authorize(req AuthorizeRequest) (*PendingAuthorization, error) {
	client := s.clients.Lookup(req.ClientID)
	if client == nil {
		return nil, ErrUnknownClient
	}
	if !client.IsRedirectURLValid(req.RedirectURI) {
		return nil, ErrInvalidRedirect
	}
	if req.ResponseType != "code" {
		return nil, ErrUnsupportedResponseType
	}

	scope := req.Scope
	if scope == "" {
		scope = defaultScope
	}

	return &PendingAuthorization{
		AuthorizationURL: fmt.Sprintf("/oauth/login?client_id=%s&redirect_uri=%s&scope=%s&state=%s",
			url.QueryEscape(req.ClientID), url.QueryEscape(req.RedirectURI),
			url.QueryEscape(scope), url.QueryEscape(req.State)),
		ClientID:              req.ClientID,
		RedirectURI:           req.RedirectURI,
		Scope:                 scope,
		State:                 req.State,
		CodeChallengeRequired: req.CodeChallenge != "",
	}, nil
}

// CredentialsRequest carries the resource owner's credentials together with
// the transaction parameters echoed from the login page.
type CredentialsRequest struct {
	Documento           string
	Password            string
	ClientID            string
	RedirectURI         string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
}

// AuthenticateAndIssueCode verifies the resource owner's credentials and, on
// success, mints an authorization code and returns the redirect target of
// the form redirect_uri?code=<code>&state=<state>.
func (s *Service) AuthenticateAndIssueCode(req CredentialsRequest) (string, error) {
	user, err := s.directory.FindByDocumento(req.Documento)
	if err != nil {
		return "", fmt.Errorf("directory lookup: %w", err)
	}
	if user == nil || !user.Activo {
		return "", ErrInvalidCredentials
	}
	if !s.verify(req.Password, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	method := req.CodeChallengeMethod
	if method == "" {
		method = "S256"
	}
	code := s.codes.Issue(req.ClientID, user.Documento, req.RedirectURI, req.CodeChallenge, method)

	log.WithFields(log.Fields{
		"client_id": req.ClientID,
		"documento": user.Documento,
	}).Debug("Authorization code issued")

	redirect := req.RedirectURI + "?code=" + url.QueryEscape(code)
	if req.State != "" {
		redirect += "&state=" + url.QueryEscape(req.State)
	}
	return redirect, nil
}

// TokenRequest carries the form parameters of the token operation.
type TokenRequest struct {
	GrantType    string
	ClientID     string
	ClientSecret string
	Code         string
	RefreshToken string
	CodeVerifier string
}

// TokenResponse is the token bundle returned on a successful grant.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope"`
}

// Token exchanges an authorization code or a refresh token for access
// credentials.
func (s *Service) Token(req TokenRequest) (*TokenResponse, error) {
	client := s.clients.Lookup(req.ClientID)
	if client == nil {
		return nil, ErrInvalidClient
	}
	if client.IsConfidential && !client.VerifySecret(req.ClientSecret) {
		return nil, ErrInvalidClientSecret
	}

	switch req.GrantType {
	case "authorization_code":
		return s.exchangeAuthorizationCode(req)
	case "refresh_token":
		return s.exchangeRefreshToken(req)
	default:
		return nil, ErrUnsupportedGrantType
	}
}

func (s *Service) exchangeAuthorizationCode(req TokenRequest) (*TokenResponse, error) {
	subject, err := s.codes.Redeem(req.Code, req.ClientID, req.CodeVerifier)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.issuer.Mint(subject)
	if err != nil {
		return nil, err
	}
	refreshToken := s.refresh.Issue(subject, req.ClientID)

	log.WithFields(log.Fields{
		"client_id": req.ClientID,
		"documento": subject,
	}).Info("Authorization code exchanged for tokens")

	return &TokenResponse{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.issuer.TTL().Seconds()),
		RefreshToken: refreshToken,
		Scope:        defaultScope,
	}, nil
}

func (s *Service) exchangeRefreshToken(req TokenRequest) (*TokenResponse, error) {
	subject, err := s.refresh.Redeem(req.RefreshToken, req.ClientID)
	if err != nil {
		return nil, err
	}

	// The refresh token stays valid; only a fresh access token is minted.
	accessToken, err := s.issuer.Mint(subject)
	if err != nil {
		return nil, err
	}

	return &TokenResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.issuer.TTL().Seconds()),
		Scope:       defaultScope,
	}, nil
}

// UserSummary is the directory excerpt attached to an active introspection.
type UserSummary struct {
	ID        uint   `json:"id"`
	Documento string `json:"documento"`
	Nombre    string `json:"nombre"`
	Rol       string `json:"rol"`
}

// Introspection is the result of the introspect operation. Every invalidity
// reason collapses into Active=false per protocol convention.
type Introspection struct {
	Active    bool         `json:"active"`
	Subject   string       `json:"sub,omitempty"`
	ExpiresAt int64        `json:"exp,omitempty"`
	IssuedAt  int64        `json:"iat,omitempty"`
	TokenType string       `json:"token_type,omitempty"`
	User      *UserSummary `json:"user_info,omitempty"`
}

// Introspect reports whether an access token is currently valid and for
// whom. It is a query, not a command: it never fails, it only ever reports
// active=false.
func (s *Service) Introspect(token string) *Introspection {
	claims, err := s.issuer.Verify(token)
	if err != nil {
		return &Introspection{Active: false}
	}

	user, err := s.directory.FindByDocumento(claims.Subject)
	if err != nil {
		log.WithError(err).Warn("Introspection directory lookup failed")
		return &Introspection{Active: false}
	}
	if user == nil || !user.Activo {
		return &Introspection{Active: false}
	}

	return &Introspection{
		Active:    true,
		Subject:   claims.Subject,
		ExpiresAt: claims.ExpiresAt,
		IssuedAt:  claims.IssuedAt,
		TokenType: claims.TokenType,
		User: &UserSummary{
			ID:        user.ID,
			Documento: user.Documento,
			Nombre:    user.Nombre,
			Rol:       user.Rol,
		},
	}
}

// RevocationResult reports the outcome of the revoke operation.
type RevocationResult struct {
	Revoked   bool   `json:"revoked"`
	TokenType string `json:"token_type"`
}

// Revoke invalidates a refresh token. Access tokens are self-contained and
// cannot be revoked before natural expiry (no blacklist is maintained), so
// revoking one is reported as success without effect.
func (s *Service) Revoke(token, tokenTypeHint string) *RevocationResult {
	if tokenTypeHint == "refresh_token" || s.refresh.Has(token) {
		revoked := s.refresh.Revoke(token)
		return &RevocationResult{Revoked: revoked, TokenType: "refresh_token"}
	}
	return &RevocationResult{Revoked: true, TokenType: "access_token"}
}

// UserClaims are the public claims returned by the userinfo operation.
type UserClaims struct {
	Subject   string `json:"sub"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
	UserID    uint   `json:"user_id"`
}

// Userinfo returns the authenticated user's claims for a bearer token, or
// ErrUnauthorized if the token is not active.
func (s *Service) Userinfo(token string) (*UserClaims, error) {
	introspection := s.Introspect(token)
	if !introspection.Active {
		return nil, ErrUnauthorized
	}

	user, err := s.directory.FindByDocumento(introspection.Subject)
	if err != nil {
		return nil, fmt.Errorf("directory lookup: %w", err)
	}
	if user == nil {
		return nil, ErrUnauthorized
	}

	return &UserClaims{
		Subject:   user.Documento,
		Name:      user.Nombre,
		Email:     user.Email,
		Role:      user.Rol,
		Active:    user.Activo,
		CreatedAt: user.CreatedAt.UTC().Format(time.RFC3339),
		UserID:    user.ID,
	}, nil
}

// CleanupExpired sweeps expired authorization codes and refresh tokens.
// Idempotent; safe to call concurrently or on a timer.
func (s *Service) CleanupExpired() {
	codes := s.codes.Cleanup()
	tokens := s.refresh.Cleanup()
	if codes > 0 || tokens > 0 {
		log.WithFields(log.Fields{
			"codes":          codes,
			"refresh_tokens": tokens,
		}).Info("Swept expired OAuth entries")
	}
}

// Status summarizes the service state for the status endpoint.
type Status struct {
	ServiceActive       bool     `json:"service_active"`
	TotalClients        int      `json:"total_clients"`
	ActiveRefreshTokens int      `json:"active_refresh_tokens"`
	PendingAuthCodes    int      `json:"pending_auth_codes"`
	Endpoints           []string `json:"endpoints"`
}

// Status reports counters over the stores.
func (s *Service) Status() *Status {
	return &Status{
		ServiceActive:       true,
		TotalClients:        s.clients.Len(),
		ActiveRefreshTokens: s.refresh.Len(),
		PendingAuthCodes:    s.codes.Len(),
		Endpoints: []string{
			"/oauth/authorize",
			"/oauth/token",
			"/oauth/introspect",
			"/oauth/revoke",
			"/oauth/userinfo",
		},
	}
}
