/**
 * @description
 * Scheduled job implementations for the mass-payout service. Each method is
 * a niladic cron entry point wrapping one of the processors with a bounded
 * context and start/finish logging.
 */

package app

import (
	"context"
	"log/slog"
	"time"
)

// Processor is the common shape of the sweep/poll services driven by cron.
type Processor interface {
	Execute(ctx context.Context) error
}

// Jobs contains the logic for all scheduled tasks.
type Jobs struct {
	scheduledPayouts Processor
	blockchainEvents Processor
	holderRetries    Processor
	logger           *slog.Logger
}

// NewJobs creates a new Jobs runner.
func NewJobs(scheduledPayouts, blockchainEvents, holderRetries Processor, logger *slog.Logger) *Jobs {
	return &Jobs{
		scheduledPayouts: scheduledPayouts,
		blockchainEvents: blockchainEvents,
		holderRetries:    holderRetries,
		logger:           logger,
	}
}

// ProcessScheduledPayouts runs the daily sweep of due distributions.
func (j *Jobs) ProcessScheduledPayouts() {
	j.logger.Info("starting scheduled payout sweep")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if err := j.scheduledPayouts.Execute(ctx); err != nil {
		j.logger.Error("scheduled payout sweep failed", "error", err)
		return
	}
	j.logger.Info("scheduled payout sweep finished")
}

// ProcessBlockchainEvents runs one chain event polling cycle.
func (j *Jobs) ProcessBlockchainEvents() {
	j.logger.Info("starting blockchain event processing cycle")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := j.blockchainEvents.Execute(ctx); err != nil {
		j.logger.Error("blockchain event processing failed", "error", err)
		return
	}
	j.logger.Info("blockchain event processing cycle finished")
}

// ProcessHolderRetries re-attempts due failed holder payments.
func (j *Jobs) ProcessHolderRetries() {
	j.logger.Info("starting holder retry sweep")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := j.holderRetries.Execute(ctx); err != nil {
		j.logger.Error("holder retry sweep failed", "error", err)
		return
	}
	j.logger.Info("holder retry sweep finished")
}
