package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/sena-adso/inventario-api/docs" // Import generated docs
	"github.com/sena-adso/inventario-api/internal/config"
	"github.com/sena-adso/inventario-api/internal/controllers"
	"github.com/sena-adso/inventario-api/internal/database"
	"github.com/sena-adso/inventario-api/internal/middleware"
	"github.com/sena-adso/inventario-api/internal/oauth"
	"github.com/sena-adso/inventario-api/internal/services"
	log "github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

var (
	db              *gorm.DB
	userService     services.UserService
	oauthService    *oauth.Service
	oauthController *controllers.OAuthController
	authController  *controllers.AuthController
	configuration   *config.Config
)

// @title Sistema de Inventario SENA API
// @version 1.0
// @description Backend de inventario con servidor de autorización OAuth2
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.
func main() {
	// Load environment variables
	loadDotenvFile()

	// Initialize logger
	setUpLogger()

	// Load configuration
	configuration = loadConfig()

	// Initialize database connection
	setupDatabase(configuration)

	// Initialize services and controllers
	userService = services.NewUserService(db)
	oauthService = oauth.NewService(
		services.NewUserDirectory(userService),
		services.VerifyPassword,
		configuration.JWTSecret,
	)
	registerDefaultClient(oauthService, configuration)

	oauthController = controllers.NewOAuthController(oauthService)
	authController = controllers.NewAuthController(userService, oauthService.Issuer())

	// Sweep expired codes and refresh tokens in the background
	startCleanupTimer(oauthService)

	// Initialize Gin router
	var router *gin.Engine = setupRouter()

	// Start the server
	log.Infof("Starting server on %s:%d", configuration.Host, configuration.Port)
	router.Run(fmt.Sprintf("%v:%d", configuration.Host, configuration.Port))
}

// checkPanicErr checks if an error occurred and panics if it did
func checkPanicErr(err error) {
	if err != nil {
		panic(err)
	}
}

// loadDotenvFile loads environment variables from a .env file
// If the file is not found, it will log a warning and use system environment variables
func loadDotenvFile() {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found, using system environment variables")
	}
}

// setUpLogger initializes the logger with a JSON formatter and sets the log level based on the environment
func setUpLogger() {
	log.SetFormatter(&log.JSONFormatter{})
	environment := config.GetEnvWithDefault("APP_ENV", "development")
	switch environment {
	case "development":
		log.SetLevel(log.DebugLevel)
	case "production":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
}

// loadConfig loads the application configuration from environment variables
// It returns a Config struct or panics if there is an error
func loadConfig() *config.Config {
	conf, err := config.LoadConfig()
	checkPanicErr(err)
	return conf
}

// setupDatabase initializes the database connection and applies migrations
func setupDatabase(conf *config.Config) *gorm.DB {
	var err error
	db, err = database.InitDatabase(database.FromAppConfig(conf))
	checkPanicErr(err)
	checkPanicErr(database.Migrate(db))
	return db
}

// registerDefaultClient registers the bootstrap OAuth client from configuration
func registerDefaultClient(svc *oauth.Service, conf *config.Config) {
	svc.RegisterClient(&oauth.Client{
		ID:             1,
		ClientID:       conf.OAuthClientID,
		ClientSecret:   conf.OAuthClientSecret,
		RedirectURL:    conf.OAuthRedirectURL,
		IsConfidential: true,
	})
}

// startCleanupTimer sweeps the in-memory stores every ten minutes
func startCleanupTimer(svc *oauth.Service) {
	ticker := time.NewTicker(10 * time.Minute)
	go func() {
		for range ticker.C {
			svc.CleanupExpired()
		}
	}()
}

// setupRouter initializes the Gin router and sets up the routes
// It returns the configured router
func setupRouter() *gin.Engine {
	router := gin.Default()

	// Any origin is accepted for now; tighten in production
	router.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"X-Request-ID"},
		MaxAge:           12 * time.Hour,
	}))
	router.Use(middleware.RequestID())

	setupRoutes(router)

	return router
}

// setupRoutes defines the routes for the Gin router
func setupRoutes(router *gin.Engine) {
	// Health check endpoint
	router.GET("/health", healthCheckHandler)

	// OAuth2 authorization server
	oauthGroup := router.Group("/oauth")
	{
		oauthGroup.GET("/authorize", oauthController.HandleAuthorize)
		oauthGroup.GET("/login", oauthController.HandleLoginPage)
		oauthGroup.POST("/authenticate", oauthController.HandleAuthenticate)
		oauthGroup.POST("/token", oauthController.HandleToken)
		oauthGroup.POST("/introspect", oauthController.HandleIntrospect)
		oauthGroup.POST("/revoke", oauthController.HandleRevoke)
		oauthGroup.GET("/userinfo", oauthController.HandleUserinfo)
		oauthGroup.GET("/clients", oauthController.HandleClients)
		oauthGroup.GET("/status", oauthController.HandleStatus)

		// Sweep is also reachable on demand, restricted to instructors
		oauthGroup.POST("/cleanup",
			middleware.OAuth2Auth(oauthService),
			middleware.RequireRole("instructor"),
			oauthController.HandleCleanup)
	}

	// Password login against the user directory
	authGroup := router.Group("/api/auth")
	{
		authGroup.POST("/login", authController.Login)
		authGroup.POST("/register", authController.Register)
		authGroup.POST("/logout", authController.Logout)
		authGroup.GET("/me", middleware.OAuth2Auth(oauthService), authController.Me)
	}

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// healthCheckHandler handles the health check endpoint
// @Summary Health check
// @Description Check if the service and its database are running
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheckHandler(c *gin.Context) {
	status := "healthy"
	dbStatus := "connected"
	if sqlDB, err := db.DB(); err != nil || sqlDB.Ping() != nil {
		status = "unhealthy"
		dbStatus = "disconnected"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"database":  dbStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "inventario-api",
	})
}
