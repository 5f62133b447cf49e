/**
 * @description
 * This is the main entry point for the mass-payout scheduler. This binary is
 * a non-HTTP, long-running process that executes the scheduled tasks: the
 * daily payout sweep, the blockchain event polling cycle, and the holder
 * retry sweep.
 */

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/tokenstudio/mass-payout-service/internal/app"
	"github.com/tokenstudio/mass-payout-service/internal/config"
	"github.com/tokenstudio/mass-payout-service/internal/domain"
	"github.com/tokenstudio/mass-payout-service/internal/store"
	"github.com/tokenstudio/mass-payout-service/pkg/hederaclient"
	"github.com/tokenstudio/mass-payout-service/pkg/mirrornode"
	mprabbit "github.com/tokenstudio/mass-payout-service/pkg/rabbitmq"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Load .env file for local development. In production, env vars are set directly.
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using environment variables")
	}

	// Load application configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	startTimestamp, err := cfg.DefaultStartTimestamp()
	if err != nil {
		logger.Error("invalid listener start timestamp", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Establish database connection with connection pool configuration
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

	// Outcome events are best-effort in the scheduler too.
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

	// Initialize dependencies
	repository := store.NewPostgresRepository(dbpool)
	gateway := hederaclient.NewClient(cfg.HederaGatewayURL, cfg.HederaAPIKey, cfg.HederaOperatorID)
	mirror := mirrornode.NewClient(cfg.MirrorNodeURL)

	retry := app.RetryPolicy{
		BaseDelay:   cfg.HolderRetryBaseDelay,
		MaxAttempts: cfg.HolderRetryMaxAttempts,
	}
	syncer := app.NewChainSyncService(repository, gateway, logger)
	payoutExecutor := app.NewPayoutExecutor(repository, gateway, producer, logger, cfg.USDCAddress, retry)
	corporateActionExecutor := app.NewCorporateActionExecutor(repository, gateway, producer, logger)

	sweep := app.NewScheduledPayoutProcessor(repository, syncer, payoutExecutor, corporateActionExecutor, logger)
	eventProcessor := app.NewEventProcessor(repository, mirror, payoutExecutor, domain.ListenerConfig{
		MirrorNodeURL:  cfg.MirrorNodeURL,
		ContractID:     cfg.ContractID,
		TokenDecimals:  cfg.TokenDecimals,
		StartTimestamp: startTimestamp,
	}, logger)
	retrySweep := app.NewHolderRetrySweep(repository, gateway, logger, retry, cfg.HolderRetryBatchSize)

	jobs := app.NewJobs(sweep, eventProcessor, retrySweep, logger)
	scheduler := app.NewScheduler(jobs, logger, *cfg)

	// Start the cron scheduler in the background
	scheduler.Start()
	logger.Info("scheduler started")

	// Wait for termination signal to gracefully shut down
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	// Stop the scheduler
	logger.Info("shutdown signal received, stopping scheduler")
	stopCtx := scheduler.Stop()
	<-stopCtx.Done() // Wait for scheduler to fully stop
	logger.Info("scheduler stopped gracefully")
}
