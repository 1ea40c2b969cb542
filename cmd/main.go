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

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"

	"github.com/athleon/academy-engine/config"
	"github.com/athleon/academy-engine/db"
	"github.com/athleon/academy-engine/handlers"
	"github.com/athleon/academy-engine/live"
	"github.com/athleon/academy-engine/repositories"
	api "github.com/athleon/academy-engine/routes"
	"github.com/athleon/academy-engine/services"
	"github.com/athleon/academy-engine/storage"
)

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
		}
	}()
	logger.Info("database connection established")

	var archiver storage.SnapshotArchiver = storage.NoopArchiver{}
	if cfg.ArchiveEnabled() {
		archiver, err = storage.NewS3Archiver(storage.S3ArchiverConfig{
			Endpoint:        cfg.ArchiveEndpoint,
			Region:          cfg.ArchiveRegion,
			AccessKeyID:     cfg.ArchiveAccessKeyID,
			SecretAccessKey: cfg.ArchiveSecretAccessKey,
			BucketName:      cfg.ArchiveBucketName,
		})
		if err != nil {
			logger.Error("failed to initialize snapshot archiver", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("snapshot archiver initialized", slog.String("bucket", cfg.ArchiveBucketName))
	}

	hub := live.NewHub()
	go hub.Run()
	logger.Info("live event hub started")

	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	snapshotRepo := repositories.NewPostgresSnapshotRepository(dbConn)
	participationRepo := repositories.NewPostgresParticipationRepository(dbConn)
	badgeRepo := repositories.NewPostgresBadgeRepository(dbConn)
	skillRepo := repositories.NewPostgresSkillProfileRepository(dbConn)

	txRunner := db.NewTxRunner(dbConn)

	var skillWriter services.SkillWriter = services.NewPersistingSkillWriter(skillRepo)
	if !cfg.PersistSkills {
		skillWriter = services.NoopSkillWriter{}
		logger.Warn("skill profile writes disabled")
	}

	lifecycleService := services.NewLifecycleService(txRunner, tournamentRepo, matchRepo, hub, logger)
	bracketService := services.NewBracketService(txRunner, tournamentRepo, matchRepo, lifecycleService, hub, logger)
	progressionService := services.NewProgressionService(txRunner, tournamentRepo, matchRepo, lifecycleService, hub, logger)
	finalizerService := services.NewFinalizerService(txRunner, tournamentRepo, matchRepo, snapshotRepo, archiver, hub, logger)
	badgeService := services.NewBadgeService(badgeRepo, logger)
	rewardService := services.NewRewardService(
		txRunner, tournamentRepo, matchRepo, snapshotRepo, participationRepo,
		skillWriter, badgeService, lifecycleService, hub, logger,
	)
	tournamentService := services.NewTournamentService(tournamentRepo, matchRepo, snapshotRepo, logger)
	logger.Info("services initialized")

	sweeper, err := services.NewRewardSweeper(tournamentRepo, rewardService, logger)
	if err != nil {
		logger.Error("failed to create reward sweeper", slog.Any("error", err))
		os.Exit(1)
	}
	if err := sweeper.Start(cfg.DistributionRetryInterval); err != nil {
		logger.Error("failed to start reward sweeper", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := sweeper.Stop(); err != nil {
			logger.Error("failed to stop reward sweeper", slog.Any("error", err))
		}
	}()

	tournamentHandler := handlers.NewTournamentHandler(tournamentService, bracketService, lifecycleService, finalizerService, logger)
	matchHandler := handlers.NewMatchHandler(progressionService, logger)
	rewardHandler := handlers.NewRewardHandler(rewardService, badgeService, participationRepo, skillRepo, logger)
	webSocketHandler := handlers.NewWebSocketHandler(hub, tournamentService, logger)

	router := chi.NewRouter()
	api.SetupRoutes(router, tournamentHandler, matchHandler, rewardHandler, webSocketHandler)
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
