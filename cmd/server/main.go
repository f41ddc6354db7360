package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cipher-arena/internal/auth"
	"github.com/cipher-arena/internal/config"
	"github.com/cipher-arena/internal/handler"
	"github.com/cipher-arena/internal/kafka"
	"github.com/cipher-arena/internal/postgres"
	"github.com/cipher-arena/internal/redis"
	"github.com/cipher-arena/internal/service"
	"github.com/cipher-arena/internal/websocket"
	"github.com/cipher-arena/internal/worker"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Warn("failed to load config file, using defaults", "error", err)
		cfg = config.DefaultConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Redis
	logger.Info("connecting to Redis", "addr", cfg.Redis.Addr)
	cache, err := redis.NewLeaderboardCache(&cfg.Redis, logger)
	if err != nil {
		logger.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer cache.Close()
	logger.Info("connected to Redis")

	// Initialize PostgreSQL
	logger.Info("connecting to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	repo, err := postgres.NewRepository(&cfg.Postgres, logger)
	if err != nil {
		logger.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to PostgreSQL")

	// Run database migrations
	if err := repo.RunMigrations(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Token verification against the external identity provider
	verifier, err := auth.NewVerifier(&cfg.Auth)
	if err != nil {
		logger.Error("failed to initialize token verifier", "error", err)
		os.Exit(1)
	}

	// Initialize WebSocket hub. Subscribe requests are checked
	// against known sessions before a client is parked on one.
	wsHub := websocket.NewHub(logger)
	wsHub.SetSessionValidator(func(sessionID string) error {
		_, err := repo.GetSession(ctx, sessionID)
		return err
	})
	go wsHub.Run()
	logger.Info("WebSocket hub initialized")

	// Assemble the scoring engine
	engine := service.NewEngine(repo, cache, &cfg.Game, logger)
	engine.SetNotifier(wsHub)

	// Ledger event publisher
	var publisher *kafka.Publisher
	if cfg.Kafka.Enabled {
		logger.Info("initializing ledger feed publisher",
			"brokers", cfg.Kafka.Brokers,
			"topic", cfg.Kafka.Topic,
		)
		publisher, err = kafka.NewPublisher(&cfg.Kafka, logger)
		if err != nil {
			logger.Warn("failed to create ledger publisher, continuing without Kafka", "error", err)
			publisher = nil
		} else {
			engine.SetPublisher(publisher)
			logger.Info("ledger feed publisher started")
		}
	}

	// Cache reconciliation worker: runs a full DB to Redis rebuild on
	// startup, then on an interval
	syncWorker := worker.NewSyncWorker(cache, repo, &cfg.Sync, logger)
	syncWorker.SetBroadcaster(wsHub)
	if cfg.Sync.Enabled {
		if err := syncWorker.Start(ctx); err != nil {
			logger.Error("failed to start sync worker", "error", err)
			os.Exit(1)
		}
	}

	// Presence sweep worker
	presenceWorker := worker.NewPresenceWorker(repo, &cfg.Presence, logger)
	if cfg.Presence.Enabled {
		if err := presenceWorker.Start(ctx); err != nil {
			logger.Error("failed to start presence worker", "error", err)
			os.Exit(1)
		}
	}

	// Initialize HTTP handler
	httpHandler := handler.NewHandler(engine, verifier, wsHub, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpHandler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("starting HTTP server", "port", cfg.Server.Port)
		logger.Info("WebSocket endpoint available at /ws")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	wsHub.Stop()

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("failed to stop ledger publisher", "error", err)
		}
	}

	if err := syncWorker.Stop(); err != nil {
		logger.Error("failed to stop sync worker", "error", err)
	}
	if err := presenceWorker.Stop(); err != nil {
		logger.Error("failed to stop presence worker", "error", err)
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}

	logger.Info("server stopped")
}
