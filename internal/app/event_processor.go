/**
 * @description
 * The blockchain event processor. Each run fetches every chain event newer
 * than the stored cursor, routes qualifying Transfer events to automated
 * distributions for the receiving asset, and then advances the cursor past
 * the whole fetched window.
 *
 * @notes
 * - The cursor advances even when individual events or distributions failed:
 *   an on-chain transfer is a one-time fact, and failed payouts are retried
 *   at the holder level, not by re-fetching the same event. Crash-before-
 *   advance means re-delivery, so downstream matching must tolerate
 *   duplicates (a re-executed distribution is no longer SCHEDULED and will
 *   not match again).
 * - Runs are single-flighted in process; the cursor read-modify-write is
 *   additionally row-locked in the store for cross-process safety.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tokenstudio/mass-payout-service/internal/domain"
	"github.com/tokenstudio/mass-payout-service/internal/store"
)

// EventSource fetches chain events newer than a consensus timestamp from the
// given mirror node.
type EventSource interface {
	FetchTransferEvents(ctx context.Context, mirrorNodeURL, contractID, since string) ([]domain.ChainEvent, error)
}

// EventProcessorRepository defines the database operations the processor needs.
type EventProcessorRepository interface {
	GetListenerConfig(ctx context.Context) (*domain.ListenerConfig, error)
	AdvanceListenerCursor(ctx context.Context, timestamp string) error
	FindScheduledAutomatedDistributionsByEvmAddress(ctx context.Context, evmAddress string) ([]domain.Distribution, error)
}

// DistributionExecutor executes a single distribution.
type DistributionExecutor interface {
	Execute(ctx context.Context, dist *domain.Distribution) error
}

// EventProcessor polls the chain event listener and dispatches transfers to
// automated distributions.
type EventProcessor struct {
	repo     EventProcessorRepository
	source   EventSource
	executor DistributionExecutor
	defaults domain.ListenerConfig
	logger   *slog.Logger

	mu sync.Mutex
}

// NewEventProcessor creates a new blockchain event processor.
func NewEventProcessor(repo EventProcessorRepository, source EventSource, executor DistributionExecutor, defaults domain.ListenerConfig, logger *slog.Logger) *EventProcessor {
	return &EventProcessor{
		repo:     repo,
		source:   source,
		executor: executor,
		defaults: defaults,
		logger:   logger,
	}
}

// Execute runs one event-processing cycle. Overlapping invocations are
// skipped rather than queued.
func (p *EventProcessor) Execute(ctx context.Context) error {
	if !p.mu.TryLock() {
		p.logger.Warn("event processing cycle already running; skipping")
		return nil
	}
	defer p.mu.Unlock()

	persisted, err := p.repo.GetListenerConfig(ctx)
	if err != nil && !errors.Is(err, store.ErrListenerConfigNotFound) {
		return fmt.Errorf("load listener config: %w", err)
	}
	cfg := domain.MergeListenerConfig(p.defaults, persisted)

	events, err := p.source.FetchTransferEvents(ctx, cfg.MirrorNodeURL, cfg.ContractID, cfg.StartTimestamp)
	if err != nil {
		return fmt.Errorf("fetch chain events: %w", err)
	}
	if len(events) == 0 {
		return nil
	}

	// The high-water mark covers every fetched event, processed or not.
	lastTimestamp := ""
	for _, ev := range events {
		if lastTimestamp == "" || domain.CompareTimestamps(ev.Timestamp, lastTimestamp) > 0 {
			lastTimestamp = ev.Timestamp
		}
		p.processEvent(ctx, ev)
	}

	if err := p.repo.AdvanceListenerCursor(ctx, lastTimestamp); err != nil {
		return fmt.Errorf("advance event cursor to %s: %w", lastTimestamp, err)
	}
	p.logger.Info("event processing cycle finished", "events", len(events), "cursor", lastTimestamp)
	return nil
}

func (p *EventProcessor) processEvent(ctx context.Context, ev domain.ChainEvent) {
	if !ev.IsRelevantTransfer() {
		return
	}

	dists, err := p.repo.FindScheduledAutomatedDistributionsByEvmAddress(ctx, ev.To)
	if err != nil {
		p.logger.Error("failed to resolve automated distributions for transfer",
			"to", ev.To, "timestamp", ev.Timestamp, "error", err)
		return
	}
	if len(dists) == 0 {
		return
	}

	for i := range dists {
		dist := dists[i]
		if err := p.executor.Execute(ctx, &dist); err != nil {
			// One distribution's failure must not block the rest of the batch.
			p.logger.Error("automated distribution execution failed",
				"distribution_id", dist.ID, "to", ev.To, "error", err)
		}
	}
}
