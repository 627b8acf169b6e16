package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sena-adso/inventario-api/internal/models"
	"github.com/sena-adso/inventario-api/internal/oauth"
	"github.com/sena-adso/inventario-api/internal/services"
	"gorm.io/gorm"
)

// AuthController handles password login and registration against the user
// directory. Login mints the same self-contained access tokens the OAuth
// flows do, so /api/auth/me and every protected route validate through one
// introspection path.
type AuthController struct {
	users  services.UserService
	issuer *oauth.AccessTokenIssuer
}

func NewAuthController(users services.UserService, issuer *oauth.AccessTokenIssuer) *AuthController {
	return &AuthController{users: users, issuer: issuer}
}

// Register godoc
// @Summary Register a directory user
// @Tags Auth
// @Accept json
// @Produce json
// @Param user body object{documento=string,nombre=string,email=string,password=string,rol=string} true "User details"
// @Success 201 {object} models.MessageResponse
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/auth/register [post]
func (ac *AuthController) Register(c *gin.Context) {
	var req struct {
		Documento string `json:"documento" binding:"required"`
		Nombre    string `json:"nombre"`
		Email     string `json:"email"`
		Password  string `json:"password" binding:"required,min=6"`
		Rol       string `json:"rol"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rol := req.Rol
	if rol == "" {
		rol = models.RolAprendiz
	}

	user := &models.User{
		Documento: req.Documento,
		Nombre:    req.Nombre,
		Email:     req.Email,
		Rol:       rol,
		Activo:    true,
	}
	if err := user.SetPassword(req.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "password_hashing_failed"})
		return
	}

	if err := ac.users.Register(user); err != nil {
		if errors.Is(err, services.ErrUserExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "user_already_exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user_creation_failed"})
		return
	}

	c.JSON(http.StatusCreated, models.MessageResponse{
		Message: "Usuario registrado exitosamente",
		Success: true,
	})
}

// Login godoc
// @Summary Password login
// @Description Verifies documento/password and returns a signed access token.
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body object{documento=string,password=string} true "Credentials"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]string
// @Router /api/auth/login [post]
func (ac *AuthController) Login(c *gin.Context) {
	var req struct {
		Documento string `json:"documento" binding:"required"`
		Password  string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := ac.users.FindByDocumento(req.Documento)
	if err != nil || !user.Activo || !user.CheckPassword(req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
		return
	}

	token, err := ac.issuer.Mint(user.Documento)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_generation_failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   int(ac.issuer.TTL().Seconds()),
		"user": gin.H{
			"id":        user.ID,
			"documento": user.Documento,
			"nombre":    user.Nombre,
			"email":     user.Email,
			"rol":       user.Rol,
		},
	})
}

// Me godoc
// @Summary Current user
// @Tags Auth
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} map[string]string
// @Security BearerAuth
// @Router /api/auth/me [get]
func (ac *AuthController) Me(c *gin.Context) {
	documento := c.GetString("documento")

	user, err := ac.users.FindByDocumento(documento)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup_failed"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// Logout is a stateless no-op kept for client symmetry; real invalidation
// happens through /oauth/revoke for refresh tokens.
func (ac *AuthController) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, models.MessageResponse{
		Message: "Sesión cerrada exitosamente",
		Success: true,
	})
}
