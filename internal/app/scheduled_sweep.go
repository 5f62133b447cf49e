/**
 * @description
 * The scheduled payout processor: the daily sweep that finds distributions
 * due in the current local calendar day and executes each one by its type.
 *
 * @notes
 * - On-chain reconciliation is a precondition; its failure aborts the sweep.
 * - Individual distribution failures are caught and logged; they never fail
 *   the sweep itself or block the remaining distributions.
 */

package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tokenstudio/mass-payout-service/internal/domain"
)

// SweepRepository defines the database operations the sweep needs.
type SweepRepository interface {
	FindScheduledDistributionsInWindow(ctx context.Context, start, end time.Time) ([]domain.Distribution, error)
}

// ChainSyncer refreshes the local asset mirror from chain truth.
type ChainSyncer interface {
	SyncFromOnChain(ctx context.Context) error
}

// ScheduledPayoutProcessor sweeps and executes distributions due today.
type ScheduledPayoutProcessor struct {
	repo             SweepRepository
	syncer           ChainSyncer
	payouts          DistributionExecutor
	corporateActions DistributionExecutor
	logger           *slog.Logger
	now              func() time.Time
}

// NewScheduledPayoutProcessor creates a new scheduled payout processor.
func NewScheduledPayoutProcessor(repo SweepRepository, syncer ChainSyncer, payouts, corporateActions DistributionExecutor, logger *slog.Logger) *ScheduledPayoutProcessor {
	return &ScheduledPayoutProcessor{
		repo:             repo,
		syncer:           syncer,
		payouts:          payouts,
		corporateActions: corporateActions,
		logger:           logger,
		now:              time.Now,
	}
}

// Execute runs one sweep over the current local calendar day.
func (p *ScheduledPayoutProcessor) Execute(ctx context.Context) error {
	if err := p.syncer.SyncFromOnChain(ctx); err != nil {
		return fmt.Errorf("on-chain reconciliation: %w", err)
	}

	start, end := dayWindow(p.now())
	distributions, err := p.repo.FindScheduledDistributionsInWindow(ctx, start, end)
	if err != nil {
		return fmt.Errorf("query due distributions: %w", err)
	}
	if len(distributions) == 0 {
		return nil
	}

	p.logger.Info("found distributions due today", "count", len(distributions))

	for i := range distributions {
		dist := distributions[i]
		var execErr error
		switch dist.Type {
		case domain.DistributionTypeCorporateAction:
			execErr = p.corporateActions.Execute(ctx, &dist)
		default:
			execErr = p.payouts.Execute(ctx, &dist)
		}
		if execErr != nil {
			// Attributed per distribution; the sweep itself keeps going.
			p.logger.Error("distribution execution failed",
				"distribution_id", dist.ID, "type", dist.Type, "error", execErr)
		}
	}
	return nil
}

// dayWindow returns the inclusive [00:00:00.000000000, 23:59:59.999999999]
// bounds of the local calendar day containing t.
func dayWindow(t time.Time) (time.Time, time.Time) {
	year, month, day := t.Date()
	start := time.Date(year, month, day, 0, 0, 0, 0, t.Location())
	end := start.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return start, end
}
