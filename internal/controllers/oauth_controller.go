package controllers

import (
	"errors"
	"html/template"
	"net/http"
	"strings"

	oautherrors "github.com/go-oauth2/oauth2/v4/errors"

	"github.com/gin-gonic/gin"
	"github.com/sena-adso/inventario-api/internal/models"
	"github.com/sena-adso/inventario-api/internal/oauth"
	log "github.com/sirupsen/logrus"
)

// OAuthController exposes the authorization server over HTTP. All protocol
// decisions live in the oauth.Service; this layer only binds parameters and
// maps typed failures onto RFC 6749 wire errors.
type OAuthController struct {
	svc *oauth.Service
}

func NewOAuthController(svc *oauth.Service) *OAuthController {
	return &OAuthController{svc: svc}
}

// wireError maps an internal protocol failure to its RFC 6749 wire error.
// The mapping intentionally collapses several internal kinds into
// invalid_grant; the original kind is still surfaced in error_description.
func wireError(err error) error {
	switch {
	case errors.Is(err, oauth.ErrUnknownClient),
		errors.Is(err, oauth.ErrInvalidClient),
		errors.Is(err, oauth.ErrInvalidClientSecret):
		return oautherrors.ErrInvalidClient
	case errors.Is(err, oauth.ErrInvalidRedirect):
		return oautherrors.ErrInvalidRequest
	case errors.Is(err, oauth.ErrUnsupportedResponseType):
		return oautherrors.ErrUnsupportedResponseType
	case errors.Is(err, oauth.ErrUnsupportedGrantType):
		return oautherrors.ErrUnsupportedGrantType
	case errors.Is(err, oauth.ErrCodeNotFound),
		errors.Is(err, oauth.ErrCodeExpired),
		errors.Is(err, oauth.ErrClientMismatch),
		errors.Is(err, oauth.ErrPKCEMismatch),
		errors.Is(err, oauth.ErrRefreshTokenNotFound),
		errors.Is(err, oauth.ErrRefreshTokenExpired):
		return oautherrors.ErrInvalidGrant
	case errors.Is(err, oauth.ErrInvalidCredentials):
		return oautherrors.ErrAccessDenied
	default:
		return oautherrors.ErrServerError
	}
}

func (oc *OAuthController) respondProtocolError(c *gin.Context, err error) {
	wire := wireError(err)
	status, ok := oautherrors.StatusCodes[wire]
	if !ok {
		status = http.StatusBadRequest
	}
	c.JSON(status, models.NewOAuth2Error(wire.Error(), err.Error()))
}

// HandleAuthorize godoc
// @Summary OAuth2 authorization endpoint
// @Description Validates the authorization request and redirects the resource owner to the login page. No code is issued until credentials are confirmed.
// @Tags OAuth2
// @Param client_id query string true "Client ID"
// @Param redirect_uri query string true "Redirect URI"
// @Param response_type query string true "Must be 'code'"
// @Param scope query string false "Requested scope"
// @Param state query string false "Opaque client state"
// @Param code_challenge query string false "PKCE challenge"
// @Param code_challenge_method query string false "plain or S256"
// @Success 302 "Redirect to login page"
// @Failure 400 {object} models.OAuth2Error
// @Router /oauth/authorize [get]
func (oc *OAuthController) HandleAuthorize(c *gin.Context) {
	pending, err := oc.svc.Authorize(oauth.AuthorizeRequest{
		ClientID:            c.Query("client_id"),
		RedirectURI:         c.Query("redirect_uri"),
		Scope:               c.DefaultQuery("scope", "read write"),
		ResponseType:        c.DefaultQuery("response_type", "code"),
		State:               c.Query("state"),
		CodeChallenge:       c.Query("code_challenge"),
		CodeChallengeMethod: c.DefaultQuery("code_challenge_method", "S256"),
	})
	if err != nil {
		oc.respondProtocolError(c, err)
		return
	}

	c.Redirect(http.StatusFound, pending.AuthorizationURL)
}

var loginPage = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html lang="es">
<head>
  <meta charset="UTF-8">
  <title>Sistema de Inventario - Autorización OAuth2</title>
</head>
<body>
  <h1>Autorización OAuth2</h1>
  <p>Cliente: <strong>{{.ClientID}}</strong></p>
  <p>Permisos: {{.Scope}}</p>
  <form method="post" action="/oauth/authenticate">
    <input type="hidden" name="client_id" value="{{.ClientID}}">
    <input type="hidden" name="redirect_uri" value="{{.RedirectURI}}">
    <input type="hidden" name="scope" value="{{.Scope}}">
    <input type="hidden" name="state" value="{{.State}}">
    <label>Documento: <input type="text" name="documento" required></label><br>
    <label>Contraseña: <input type="password" name="password" required></label><br>
    <button type="submit">Autorizar acceso</button>
  </form>
</body>
</html>
`))

// HandleLoginPage renders the credential form for the authorization flow.
func (oc *OAuthController) HandleLoginPage(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	err := loginPage.Execute(c.Writer, gin.H{
		"ClientID":    c.Query("client_id"),
		"RedirectURI": c.Query("redirect_uri"),
		"Scope":       c.DefaultQuery("scope", "read write"),
		"State":       c.Query("state"),
	})
	if err != nil {
		log.WithError(err).Error("Failed to render login page")
	}
}

// HandleAuthenticate godoc
// @Summary Authenticate the resource owner and issue an authorization code
// @Description Verifies documento/password and, on success, returns the redirect target carrying code and state.
// @Tags OAuth2
// @Accept application/x-www-form-urlencoded
// @Produce json
// @Param documento formData string true "Documento"
// @Param password formData string true "Password"
// @Param client_id formData string true "Client ID"
// @Param redirect_uri formData string true "Redirect URI"
// @Param state formData string false "Opaque client state"
// @Success 200 {object} map[string]string
// @Failure 401 {object} models.OAuth2Error
// @Router /oauth/authenticate [post]
func (oc *OAuthController) HandleAuthenticate(c *gin.Context) {
	redirect, err := oc.svc.AuthenticateAndIssueCode(oauth.CredentialsRequest{
		Documento:           c.PostForm("documento"),
		Password:            c.PostForm("password"),
		ClientID:            c.PostForm("client_id"),
		RedirectURI:         c.PostForm("redirect_uri"),
		State:               c.PostForm("state"),
		CodeChallenge:       c.PostForm("code_challenge"),
		CodeChallengeMethod: c.PostForm("code_challenge_method"),
	})
	if err != nil {
		if errors.Is(err, oauth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, models.NewOAuth2Error("invalid_credentials", "Credenciales inválidas"))
			return
		}
		oc.respondProtocolError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"redirect_url": redirect,
		"message":      "Autenticación exitosa",
	})
}

// HandleToken godoc
// @Summary OAuth2 token endpoint
// @Description Exchanges an authorization code or a refresh token for access credentials.
// @Tags OAuth2
// @Accept application/x-www-form-urlencoded
// @Produce json
// @Param grant_type formData string true "authorization_code or refresh_token"
// @Param client_id formData string true "Client ID"
// @Param client_secret formData string false "Client secret (confidential clients)"
// @Param code formData string false "Authorization code"
// @Param refresh_token formData string false "Refresh token"
// @Param code_verifier formData string false "PKCE verifier"
// @Success 200 {object} oauth.TokenResponse
// @Failure 400 {object} models.OAuth2Error
// @Failure 401 {object} models.OAuth2Error
// @Router /oauth/token [post]
func (oc *OAuthController) HandleToken(c *gin.Context) {
	resp, err := oc.svc.Token(oauth.TokenRequest{
		GrantType:    c.PostForm("grant_type"),
		ClientID:     c.PostForm("client_id"),
		ClientSecret: c.PostForm("client_secret"),
		Code:         c.PostForm("code"),
		RefreshToken: c.PostForm("refresh_token"),
		CodeVerifier: c.PostForm("code_verifier"),
	})
	if err != nil {
		oc.respondProtocolError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// HandleIntrospect godoc
// @Summary OAuth2 token introspection
// @Description Reports whether a token is currently valid and for whom. Always answers 200; invalid tokens yield active=false.
// @Tags OAuth2
// @Accept application/x-www-form-urlencoded
// @Produce json
// @Param token formData string true "Access token"
// @Success 200 {object} oauth.Introspection
// @Router /oauth/introspect [post]
func (oc *OAuthController) HandleIntrospect(c *gin.Context) {
	c.JSON(http.StatusOK, oc.svc.Introspect(c.PostForm("token")))
}

// HandleRevoke godoc
// @Summary OAuth2 token revocation
// @Description Deletes a refresh token. Access tokens are stateless and cannot be invalidated early; revoking one reports success without effect.
// @Tags OAuth2
// @Accept application/x-www-form-urlencoded
// @Produce json
// @Param token formData string true "Token"
// @Param token_type_hint formData string false "refresh_token or access_token"
// @Success 200 {object} oauth.RevocationResult
// @Router /oauth/revoke [post]
func (oc *OAuthController) HandleRevoke(c *gin.Context) {
	hint := c.DefaultPostForm("token_type_hint", "access_token")
	c.JSON(http.StatusOK, oc.svc.Revoke(c.PostForm("token"), hint))
}

// HandleUserinfo godoc
// @Summary OAuth2 userinfo endpoint
// @Description Returns the authenticated user's public claims for a Bearer token.
// @Tags OAuth2
// @Produce json
// @Success 200 {object} oauth.UserClaims
// @Failure 401 {object} models.OAuth2Error
// @Security BearerAuth
// @Router /oauth/userinfo [get]
func (oc *OAuthController) HandleUserinfo(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		c.JSON(http.StatusUnauthorized, models.NewOAuth2Error("invalid_request", "Token Bearer requerido"))
		return
	}

	claims, err := oc.svc.Userinfo(strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		if errors.Is(err, oauth.ErrUnauthorized) {
			c.JSON(http.StatusUnauthorized, models.NewOAuth2Error("invalid_token", "Token inválido o expirado"))
			return
		}
		c.JSON(http.StatusInternalServerError, models.NewOAuth2Error("server_error", err.Error()))
		return
	}

	c.JSON(http.StatusOK, claims)
}

// HandleCleanup sweeps expired authorization codes and refresh tokens.
func (oc *OAuthController) HandleCleanup(c *gin.Context) {
	oc.svc.CleanupExpired()
	c.JSON(http.StatusOK, models.MessageResponse{
		Message: "Tokens expirados limpiados exitosamente",
		Success: true,
	})
}

// HandleClients lists the registered clients (public fields only).
func (oc *OAuthController) HandleClients(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"clients": oc.svc.Clients()})
}

// HandleStatus reports service counters.
func (oc *OAuthController) HandleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, oc.svc.Status())
}
