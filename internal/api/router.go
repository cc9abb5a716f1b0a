package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/cardsmith/internal/api/handler"
	"github.com/timmy/cardsmith/internal/api/middleware"
	"github.com/timmy/cardsmith/internal/config"
	"github.com/timmy/cardsmith/internal/logger"
	"github.com/timmy/cardsmith/internal/service"
)

// maxBodyBytes bounds request bodies; generation requests are small JSON.
const maxBodyBytes = 10 << 20

// Services bundles what the HTTP layer needs.
type Services struct {
	Cards  *service.CardGenerationService
	Images *service.ImageGenerationService
	Store  *service.ImageStore
	Auth   *service.AuthService
	DB     handler.Pinger
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(svc Services, server config.ServerConfig, log *logger.Logger) *gin.Engine {
	// Set Gin mode
	switch server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(server.CORS))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	})
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	// Create handlers
	healthHandler := handler.NewHealthHandler(svc.DB)
	cardHandler := handler.NewCardHandler(svc.Cards)
	imageHandler := handler.NewImageHandler(svc.Images, svc.Store)
	authHandler := handler.NewAuthHandler(svc.Auth)
	userHandler := handler.NewUserHandler(svc.Auth)

	// Health check
	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")
	{
		api.POST("/auth/signup", authHandler.Signup)
		api.POST("/auth/login", authHandler.Login)

		// Image bytes are addressable without a session so cards can embed them.
		api.GET("/images/:id", imageHandler.GetImage)

		authed := api.Group("")
		authed.Use(middleware.RequireAuth(svc.Auth))
		{
			authed.POST("/generate-card", cardHandler.GenerateCard)
			authed.POST("/generate-image", imageHandler.GenerateImage)
			authed.GET("/images", imageHandler.ListImages)
			authed.GET("/users/me", userHandler.Me)
		}
	}

	return r
}
