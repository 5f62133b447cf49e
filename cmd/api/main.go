/**
 * @description
 * This is the main entry point for the mass-payout API server. It is
 * responsible for initializing all components of the service, including
 * configuration, database connection, external API clients, message brokers,
 * repositories, the core application service, and the HTTP server. It wires
 * everything together and starts the service.
 *
 * @dependencies
 * - log/slog, net/http: Standard Go libraries for logging and HTTP.
 * - github.com/go-chi/chi/v5: For HTTP routing.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages.
 * - pkg/hederaclient, pkg/rabbitmq: Clients for the custody gateway and RabbitMQ.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/tokenstudio/mass-payout-service/internal/api"
	"github.com/tokenstudio/mass-payout-service/internal/app"
	"github.com/tokenstudio/mass-payout-service/internal/config"
	"github.com/tokenstudio/mass-payout-service/internal/store"
	"github.com/tokenstudio/mass-payout-service/pkg/hederaclient"
	mprabbit "github.com/tokenstudio/mass-payout-service/pkg/rabbitmq"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Load .env file for local development. In production, env vars are set directly.
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using environment variables")
	}

	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if strings.TrimSpace(cfg.ServiceJWTSecret) == "" {
		logger.Error("service JWT secret must be configured", "env", "SERVICE_JWT_SECRET")
		os.Exit(1)
	}

	ctx := context.Background()

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Error("unable to parse database URL", "error", err)
		os.Exit(1)
	}

	// Configure connection pool for high-traffic scenarios
	poolConfig.MaxConns = 100
	poolConfig.MinConns = 20
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()
	logger.Info("database connection established")

	// Initialize the RabbitMQ producer to publish distribution outcome events.
	// This binary only needs to publish, so we use a producer.
	var producer mprabbit.Publisher
	eventProducer, err := mprabbit.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		logger.Warn("rabbitmq producer unavailable; outcome events disabled", "error", err)
		producer = mprabbit.NewFallbackProducer(logger)
	} else {
		defer eventProducer.Close()
		producer = eventProducer
		logger.Info("rabbitmq producer connected")
	}

	// Initialize the custody gateway client.
	gateway := hederaclient.NewClient(cfg.HederaGatewayURL, cfg.HederaAPIKey, cfg.HederaOperatorID)

	// Optional Redis client for payout-creation rate limiting.
	var limiter api.RateLimiter
	if cfg.PayoutRateLimit > 0 {
		if strings.TrimSpace(cfg.RedisURL) == "" {
			logger.Warn("redis url missing; payout rate limiting disabled", "env", "REDIS_URL")
		} else if redisOptions, parseErr := redis.ParseURL(cfg.RedisURL); parseErr != nil {
			logger.Warn("redis url parse failed; payout rate limiting disabled", "error", parseErr)
		} else {
			redisClient := redis.NewClient(redisOptions)
			pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
			if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
				logger.Warn("redis ping failed; payout rate limiting disabled", "error", pingErr)
				redisClient.Close()
			} else {
				defer redisClient.Close()
				limiter = app.NewPayoutAdmission(redisClient, cfg.PayoutRateLimit, cfg.PayoutRateWindow)
				logger.Info("redis connected")
			}
			cancelPing()
		}
	}

	// Initialize the application layers.
	repository := store.NewPostgresRepository(dbpool)
	retry := app.RetryPolicy{
		BaseDelay:   cfg.HolderRetryBaseDelay,
		MaxAttempts: cfg.HolderRetryMaxAttempts,
	}
	syncer := app.NewChainSyncService(repository, gateway, logger)
	payoutExecutor := app.NewPayoutExecutor(repository, gateway, producer, logger, cfg.USDCAddress, retry)
	service := app.NewService(repository, gateway, payoutExecutor, syncer, logger)

	handlers := api.NewPayoutHandlers(service, limiter, logger)

	router := chi.NewRouter()
	router.Mount("/", api.PayoutRoutes(handlers, cfg.ServiceJWTSecret))

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}

	go func() {
		logger.Info("starting server", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for an OS signal.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown signal received, gracefully shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	logger.Info("server stopped")
}
