package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sena-adso/inventario-api/internal/oauth"
)

// OAuth2Auth validates the Bearer access token through the authorization
// server's introspection and puts the subject's identity in the request
// context. Requests without an active token never reach the handler.
func OAuth2Auth(svc *oauth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		// RFC 6750: Extract Bearer token from Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			respondWithOAuth2Error(c, http.StatusUnauthorized, "authorization_required",
				"Missing Authorization header. A valid Bearer token is required.")
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			respondWithOAuth2Error(c, http.StatusUnauthorized, "invalid_request",
				"Authorization header must use Bearer scheme. Format: 'Bearer <token>'")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == "" {
			respondWithOAuth2Error(c, http.StatusUnauthorized, "invalid_token",
				"Bearer token is empty")
			return
		}

		introspection := svc.Introspect(tokenString)
		if !introspection.Active {
			respondWithOAuth2Error(c, http.StatusUnauthorized, "invalid_token",
				"Token is expired, malformed, or its subject is no longer active")
			return
		}

		c.Set("documento", introspection.Subject)
		c.Set("userID", introspection.User.ID)
		c.Set("userRole", introspection.User.Rol)
		c.Set("userName", introspection.User.Nombre)

		c.Next()
	}
}

// respondWithOAuth2Error responds with RFC 6750 compliant error format
func respondWithOAuth2Error(c *gin.Context, status int, errorCode, description string) {
	c.JSON(status, gin.H{
		"error":             errorCode,
		"error_description": description,
	})
	c.Abort()
}

// RequestID tags every request with an X-Request-ID header, generating one
// when the caller did not send its own.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("requestID", requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)
		c.Next()
	}
}
