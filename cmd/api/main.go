package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/cardsmith/internal/api"
	"github.com/timmy/cardsmith/internal/config"
	"github.com/timmy/cardsmith/internal/logger"
	"github.com/timmy/cardsmith/internal/prompts"
	"github.com/timmy/cardsmith/internal/repository"
	"github.com/timmy/cardsmith/internal/service"
	"github.com/timmy/cardsmith/internal/storage"
)

func main() {
	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Initialize logger
	appLog := logger.NewDefault()
	logger.SetDefaultLogger(appLog)
	defer logger.Sync()

	ctx := context.Background()

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLog.Fatalf("Failed to initialize database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		appLog.Fatalf("Failed to access database handle: %v", err)
	}
	defer sqlDB.Close()

	// Initialize storage (R2, S3 or any S3-compatible endpoint); nil keeps
	// image bytes in the database.
	blobs, err := storage.NewStorage(&cfg.Storage)
	if err != nil {
		appLog.Fatalf("Failed to initialize storage: %v", err)
	}
	if ensurer, ok := blobs.(interface{ EnsureBucket(context.Context) error }); ok {
		if err := ensurer.EnsureBucket(ctx); err != nil {
			appLog.Fatalf("Failed to ensure storage bucket: %v", err)
		}
	}

	// Initialize repositories
	users := repository.NewUserRepository(db)
	images := repository.NewImageRepository(db)

	// Initialize upstream clients
	text, err := service.NewTextGenerator(&cfg.TextGen)
	if err != nil {
		appLog.Fatalf("Failed to initialize text generator: %v", err)
	}
	artwork, err := service.NewArtworkGenerator(&cfg.Artwork)
	if err != nil {
		appLog.Fatalf("Failed to initialize artwork generator: %v", err)
	}

	// Initialize services
	pricing := service.Pricing{
		CardGenerationCost:  cfg.Pricing.CardGenerationCost,
		CreditsPerMegapixel: cfg.Pricing.CreditsPerMegapixel,
		DefaultImageSize:    cfg.Pricing.DefaultImageSize,
		MaxImageDimension:   cfg.Pricing.MaxImageDimension,
	}
	ledger := service.NewCreditLedger(users)
	store := service.NewImageStore(db, images, service.ImageStoreConfig{
		Blobs:           blobs,
		KeyPrefix:       cfg.Storage.Prefix,
		CacheTTL:        cfg.Cache.ImageTTL,
		CleanupInterval: cfg.Cache.CleanupInterval,
	})
	cards := service.NewCardGenerationService(service.CardGenerationConfig{
		Prompts:    prompts.NewBuilder(),
		Text:       text,
		Artwork:    artwork,
		Images:     store,
		Ledger:     ledger,
		Pricing:    pricing,
		CardWidth:  cfg.Artwork.CardWidth,
		CardHeight: cfg.Artwork.CardHeight,
	})
	auth := service.NewAuthService(users, service.AuthConfig{
		Secret:   cfg.Auth.JWTSecret,
		Issuer:   cfg.Auth.Issuer,
		TokenTTL: cfg.Auth.TokenTTL,
	})

	// Setup router
	router := api.SetupRouter(api.Services{
		Cards:  cards,
		Images: service.NewImageGenerationService(artwork, store, ledger, pricing),
		Store:  store,
		Auth:   auth,
		DB:     sqlDB,
	}, cfg.Server, appLog)

	// Create HTTP server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.With(logger.Fields{
			"port":          cfg.Server.Port,
			"mode":          cfg.Server.Mode,
			"db_driver":     cfg.Database.Driver,
			"text_provider": cfg.TextGen.Provider,
			"art_provider":  cfg.Artwork.Provider,
			"blob_storage":  blobs != nil,
		}).Info(ctx, "Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Errorf("Server forced to shutdown: %v", err)
	}

	appLog.Info("Server exited")
}
