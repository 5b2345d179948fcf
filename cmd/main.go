package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fieldref/league-system/config"
	"github.com/fieldref/league-system/db"
	"github.com/fieldref/league-system/handlers"
	"github.com/fieldref/league-system/realtime"
	"github.com/fieldref/league-system/repositories"
	api "github.com/fieldref/league-system/routes"
	"github.com/fieldref/league-system/services"
	"github.com/fieldref/league-system/storage"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
)

// cleanupInterval controls how often expired invitations are purged.
const cleanupInterval = 1 * time.Hour

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	uploader, err := storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	})
	if err != nil {
		logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Cloudflare R2 uploader initialized")

	hub := realtime.NewHub(logger)
	go hub.Run()
	logger.Info("websocket hub started")

	userRepo := repositories.NewPostgresUserRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	playerRepo := repositories.NewPostgresPlayerRepository(dbConn)
	refereeRepo := repositories.NewPostgresRefereeRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	eventRepo := repositories.NewPostgresEventRepository(dbConn)
	invitationRepo := repositories.NewPostgresInvitationRepository(dbConn)
	registrationRepo := repositories.NewPostgresRegistrationRepository(
		dbConn, userRepo, teamRepo, playerRepo, refereeRepo, invitationRepo)
	logger.Info("repositories initialized")

	authService := services.NewAuthService(userRepo)
	invitationService := services.NewInvitationService(invitationRepo, teamRepo, userRepo)
	registrationService := services.NewRegistrationService(registrationRepo, invitationService)
	matchService := services.NewMatchService(matchRepo, refereeRepo, userRepo, teamRepo, hub)
	eventService := services.NewEventService(eventRepo, matchRepo, playerRepo, refereeRepo, hub)
	statsService := services.NewStatsService(matchRepo, eventRepo, playerRepo, refereeRepo, teamRepo)
	teamService := services.NewTeamService(teamRepo, playerRepo, uploader, logger)
	logger.Info("services initialized")

	// Purge expired invitations on startup and then on a timer, so
	// stale tokens do not pile up.
	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		logger.Info("invitation cleanup scheduler started", slog.Duration("interval", cleanupInterval))

		for {
			removed, err := invitationService.CleanupExpired(context.Background())
			if err != nil {
				logger.Error("invitation cleanup failed", slog.Any("error", err))
			} else if removed > 0 {
				logger.Info("expired invitations removed", slog.Int64("count", removed))
			}
			<-ticker.C
		}
	}()

	authHandler := handlers.NewAuthHandler(authService, cfg.JWTSecretKey)
	registrationHandler := handlers.NewRegistrationHandler(registrationService, invitationService, cfg.JWTSecretKey)
	invitationHandler := handlers.NewInvitationHandler(invitationService)
	teamHandler := handlers.NewTeamHandler(teamService)
	matchHandler := handlers.NewMatchHandler(matchService, statsService)
	eventHandler := handlers.NewEventHandler(eventService)
	statsHandler := handlers.NewStatsHandler(statsService)
	adminHandler := handlers.NewAdminHandler(matchService, invitationService)
	webSocketHandler := handlers.NewWebSocketHandler(hub, matchService, logger)
	logger.Info("HTTP handlers initialized")

	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		cfg.JWTSecretKey,
		cfg.CORSAllowedOrigins,
		authHandler,
		registrationHandler,
		invitationHandler,
		teamHandler,
		matchHandler,
		eventHandler,
		statsHandler,
		adminHandler,
		webSocketHandler,
	)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
