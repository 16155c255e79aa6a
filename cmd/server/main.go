package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/gorilla/mux"
	_ "github.com/joho/godotenv/autoload"
	"github.com/presence/internal/config"
	"github.com/presence/internal/events"
	"github.com/presence/internal/handlers"
	"github.com/presence/internal/metrics"
	"github.com/presence/internal/repository"
	"github.com/presence/internal/scheduler"
	"github.com/presence/internal/service"
	"github.com/presence/internal/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	cfg := config.LoadConfig()
	logger := config.SetupLogger(cfg)
	ctx := context.Background()

	userRepo, eventRepo, closeStore, err := setupStore(ctx, cfg, &logger.Logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("Failed to set up user store")
	}
	defer closeStore()

	if cfg.SeedUsers {
		if err := repository.SeedDefaultUsers(ctx, userRepo, &logger.Logger); err != nil {
			logger.Fatal().Err(err).Msg("Failed to seed users")
		}
	}

	registry := scheduler.NewRegistry(scheduler.SystemClock, &logger.Logger)
	registry.Start()

	m := metrics.New(func() float64 { return float64(registry.Len()) })

	hub := websocket.NewHub(&logger.Logger)
	historyService := service.NewHistoryService(eventRepo, userRepo, &logger.Logger)
	notifiers := []service.StatusNotifier{hub, historyService}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = events.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()
		notifiers = append(notifiers, events.NewRedisPublisher(redisClient, &logger.Logger))
		logger.Info().Str("channel", events.StatusChannel).Msg("Publishing status events to Redis")
	}

	presenceService := service.NewPresenceService(userRepo, registry, cfg.AwayDelay, m, &logger.Logger, notifiers...)
	userService := service.NewUserService(userRepo, presenceService, &logger.Logger)

	hub.PresenceService = presenceService
	go hub.Run()

	router := mux.NewRouter()
	router.Use(handlers.LoggingMiddleware(&logger.Logger))

	handlers.SetupRoutes(router, hub, userService, presenceService, historyService, m.Handler(), &logger.Logger)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Dur("away_delay", cfg.AwayDelay).
			Str("store", cfg.StoreDriver).
			Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	gracefulShutdown(server, hub, registry, presenceService, cfg.ShutdownTimeout, &logger.Logger)
}

func setupStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (
	repository.UserRepository, repository.StatusEventRepository, func(), error,
) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		return repository.NewMemoryUserRepository(), repository.NewMemoryStatusEventRepository(), func() {}, nil
	case config.StoreMySQL:
		db, err := setupDatabase(cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := repository.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("failed to create schema: %w", err)
		}
		return repository.NewUserRepository(db, logger),
			repository.NewStatusEventRepository(db, logger),
			func() { db.Close() },
			nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func setupDatabase(cfg *config.Config) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:3306)/%s?parseTime=true&clientFoundRows=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return db, nil
}

func gracefulShutdown(
	server *http.Server,
	hub *websocket.Hub,
	registry *scheduler.Registry,
	presenceService service.PresenceService,
	timeout time.Duration,
	logger *zerolog.Logger,
) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown error")
	}

	hub.Shutdown()

	if err := presenceService.SetAllOffline(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to update all users to offline")
	}

	if err := registry.Stop(ctx); err != nil {
		logger.Error().Err(err).Msg("Expiry scheduler did not stop cleanly")
	}

	logger.Info().Msg("Server stopped")
}
