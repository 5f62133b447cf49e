/**
 * @description
 * The payout execution domain service. Given a distribution, it resolves the
 * holder set entitled to payment, submits one on-chain batch transaction
 * through the custodial gateway, and records the batch payout together with
 * an independent outcome per holder. A failing holder never fails the batch;
 * a failing batch submission never leaves a half-written record.
 *
 * @dependencies
 * - internal/domain, internal/store: Domain models and persistence errors.
 * - pkg/hederaclient, pkg/rabbitmq: Gateway request/response shapes and the
 *   outcome event publisher.
 */

package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/tokenstudio/mass-payout-service/internal/domain"
	"github.com/tokenstudio/mass-payout-service/pkg/hederaclient"
	"github.com/tokenstudio/mass-payout-service/pkg/rabbitmq"
)

// ExecutorRepository defines the database operations the executor needs.
type ExecutorRepository interface {
	FindAssetByID(ctx context.Context, assetID uuid.UUID) (*domain.Asset, error)
	CreateBatchPayoutWithHolders(ctx context.Context, batch *domain.BatchPayout, holders []domain.Holder) error
	UpdateBatchPayoutStatus(ctx context.Context, batchPayoutID uuid.UUID, status domain.BatchPayoutStatus) error
	UpdateDistributionStatus(ctx context.Context, distributionID uuid.UUID, status domain.DistributionStatus) error
	CreateDistribution(ctx context.Context, dist *domain.Distribution) error
}

// BatchGateway defines the on-chain operations the executor needs.
type BatchGateway interface {
	GetTokenHolders(ctx context.Context, tokenEvmAddress string) ([]hederaclient.TokenHolder, error)
	SubmitBatchPayout(ctx context.Context, req hederaclient.BatchPayoutRequest) (*hederaclient.BatchPayoutResult, error)
}

// RetryPolicy bounds holder-level retry scheduling.
type RetryPolicy struct {
	BaseDelay   time.Duration
	MaxAttempts int
}

// PayoutExecutor orchestrates the execution of PAYOUT distributions.
type PayoutExecutor struct {
	repo        ExecutorRepository
	gateway     BatchGateway
	publisher   rabbitmq.Publisher
	logger      *slog.Logger
	usdcAddress string
	retry       RetryPolicy
	now         func() time.Time
}

// NewPayoutExecutor creates a new payout execution service.
func NewPayoutExecutor(repo ExecutorRepository, gateway BatchGateway, publisher rabbitmq.Publisher, logger *slog.Logger, usdcAddress string, retry RetryPolicy) *PayoutExecutor {
	return &PayoutExecutor{
		repo:        repo,
		gateway:     gateway,
		publisher:   publisher,
		logger:      logger,
		usdcAddress: usdcAddress,
		retry:       retry,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Execute runs one payout distribution end to end. Holder-level failures are
// absorbed into the batch record; only asset-level preconditions and the
// batch submission itself can fail the distribution.
func (e *PayoutExecutor) Execute(ctx context.Context, dist *domain.Distribution) error {
	asset, err := e.repo.FindAssetByID(ctx, dist.AssetID)
	if err != nil {
		return fmt.Errorf("load asset for distribution %s: %w", dist.ID, err)
	}
	if asset.Paused {
		// Leave the distribution SCHEDULED; a later sweep retries once the
		// asset is unpaused.
		return fmt.Errorf("distribution %s: %w", dist.ID, domain.ErrAssetPaused)
	}

	tokenHolders, err := e.gateway.GetTokenHolders(ctx, asset.EvmAddress)
	if err != nil {
		return fmt.Errorf("resolve holders for asset %s: %w", asset.ID, err)
	}

	payments, err := buildHolderPayments(dist, asset, tokenHolders)
	if err != nil {
		if err := e.repo.UpdateDistributionStatus(ctx, dist.ID, domain.DistributionStatusFailed); err != nil {
			e.logger.Error("failed to mark distribution failed", "distribution_id", dist.ID, "error", err)
		}
		e.publishOutcome(ctx, dist, rabbitmq.RoutingKeyDistributionFailed, nil)
		return err
	}

	batchName := fmt.Sprintf("%s %s", asset.Symbol, dist.Concept)
	result, submitErr := e.gateway.SubmitBatchPayout(ctx, hederaclient.BatchPayoutRequest{
		TokenEvmAddress:    asset.EvmAddress,
		PayoutTokenAddress: e.usdcAddress,
		Memo:               dist.Concept,
		Payments:           payments,
	})
	if submitErr != nil {
		return e.recordSubmissionFailure(ctx, dist, batchName, len(payments), submitErr)
	}

	batch, err := domain.NewBatchPayout(dist.ID, batchName, result.TransactionID, result.TransactionHash, len(payments))
	if err != nil {
		// Malformed gateway response; nothing is persisted for this attempt.
		return fmt.Errorf("batch payout for distribution %s: %w", dist.ID, err)
	}

	holders, succeeded := e.buildHolderRecords(batch.ID, payments, result.Outcomes)
	if err := e.repo.CreateBatchPayoutWithHolders(ctx, batch, holders); err != nil {
		return fmt.Errorf("persist batch payout %s: %w", batch.ID, err)
	}

	status := domain.AggregateBatchStatus(succeeded, len(holders))
	if status != batch.Status {
		if err := e.repo.UpdateBatchPayoutStatus(ctx, batch.ID, status); err != nil {
			e.logger.Error("failed to update batch payout status", "batch_payout_id", batch.ID, "error", err)
		}
	}

	if err := e.repo.UpdateDistributionStatus(ctx, dist.ID, domain.DistributionStatusCompleted); err != nil {
		return fmt.Errorf("mark distribution %s completed: %w", dist.ID, err)
	}

	e.logger.Info("payout distribution executed",
		"distribution_id", dist.ID, "batch_payout_id", batch.ID,
		"holders", len(holders), "succeeded", succeeded, "batch_status", status)

	e.publishOutcome(ctx, dist, rabbitmq.RoutingKeyDistributionCompleted, &batch.ID)
	e.scheduleRecurringSuccessor(ctx, dist)
	return nil
}

func (e *PayoutExecutor) recordSubmissionFailure(ctx context.Context, dist *domain.Distribution, batchName string, holderCount int, submitErr error) error {
	batch, err := domain.NewFailedBatchPayout(dist.ID, batchName, holderCount)
	if err != nil {
		return fmt.Errorf("record failed batch for distribution %s: %w", dist.ID, err)
	}
	if err := e.repo.CreateBatchPayoutWithHolders(ctx, batch, nil); err != nil {
		e.logger.Error("failed to persist failed batch payout", "distribution_id", dist.ID, "error", err)
	}
	if err := e.repo.UpdateDistributionStatus(ctx, dist.ID, domain.DistributionStatusFailed); err != nil {
		e.logger.Error("failed to mark distribution failed", "distribution_id", dist.ID, "error", err)
	}
	e.publishOutcome(ctx, dist, rabbitmq.RoutingKeyDistributionFailed, &batch.ID)
	return fmt.Errorf("submit batch payout for distribution %s: %w", dist.ID, submitErr)
}

// buildHolderRecords turns gateway outcomes into holder rows. A holder the
// gateway did not report on is treated as failed so it enters the retry
// schedule rather than silently vanishing.
func (e *PayoutExecutor) buildHolderRecords(batchID uuid.UUID, payments []hederaclient.HolderPayment, outcomes []hederaclient.HolderOutcome) ([]domain.Holder, int) {
	byAddress := make(map[string]hederaclient.HolderOutcome, len(outcomes))
	for _, o := range outcomes {
		byAddress[o.HolderEvmAddress] = o
	}

	now := e.now()
	holders := make([]domain.Holder, 0, len(payments))
	succeeded := 0
	for _, p := range payments {
		h := domain.NewHolder(batchID, p.HolderHederaAddress, p.HolderEvmAddress, p.Amount)
		outcome, reported := byAddress[p.HolderEvmAddress]
		switch {
		case reported && outcome.Succeeded:
			h.MarkSucceeded(now)
			succeeded++
		case reported:
			h.MarkFailed(outcome.Error, now, e.retry.BaseDelay, e.retry.MaxAttempts)
		default:
			h.MarkFailed("no outcome reported for holder", now, e.retry.BaseDelay, e.retry.MaxAttempts)
		}
		holders = append(holders, *h)
	}
	return holders, succeeded
}

func (e *PayoutExecutor) scheduleRecurringSuccessor(ctx context.Context, dist *domain.Distribution) {
	if dist.PayoutSubtype == nil || *dist.PayoutSubtype != domain.PayoutSubtypeRecurring {
		return
	}
	next, ok := dist.NextOccurrence()
	if !ok {
		return
	}

	successor, err := domain.NewPayoutDistribution(dist.AssetID, domain.PayoutSubtypeRecurring,
		&next, dist.Recurrency, dist.Amount, dist.AmountType, dist.Concept)
	if err != nil {
		e.logger.Error("failed to build recurring successor", "distribution_id", dist.ID, "error", err)
		return
	}
	if err := e.repo.CreateDistribution(ctx, successor); err != nil {
		e.logger.Error("failed to schedule recurring successor", "distribution_id", dist.ID, "error", err)
		return
	}
	e.logger.Info("recurring payout rescheduled",
		"distribution_id", dist.ID, "successor_id", successor.ID, "execute_at", next)
}

func (e *PayoutExecutor) publishOutcome(ctx context.Context, dist *domain.Distribution, routingKey string, batchID *uuid.UUID) {
	event := rabbitmq.DistributionEvent{
		DistributionID: dist.ID,
		AssetID:        dist.AssetID,
		Status:         routingKey,
		Concept:        dist.Concept,
		BatchPayoutID:  batchID,
		Timestamp:      e.now(),
	}
	if err := e.publisher.PublishDistributionEvent(ctx, routingKey, event); err != nil {
		e.logger.Warn("failed to publish distribution event", "distribution_id", dist.ID, "error", err)
	}
}

// buildHolderPayments computes the per-holder payment amounts. FIXED amounts
// are split across holders pro rata by balance; PER_UNIT amounts are paid per
// whole token unit held. Zero-balance holders are excluded; a distribution
// with no positive-balance holder is a validation failure.
func buildHolderPayments(dist *domain.Distribution, asset *domain.Asset, tokenHolders []hederaclient.TokenHolder) ([]hederaclient.HolderPayment, error) {
	amount, ok := new(big.Rat).SetString(dist.Amount)
	if !ok || amount.Sign() <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	type weighted struct {
		holder  hederaclient.TokenHolder
		balance *big.Rat
	}
	eligible := make([]weighted, 0, len(tokenHolders))
	total := new(big.Rat)
	for _, th := range tokenHolders {
		balance, ok := new(big.Rat).SetString(th.Balance)
		if !ok || balance.Sign() <= 0 {
			continue
		}
		eligible = append(eligible, weighted{holder: th, balance: balance})
		total.Add(total, balance)
	}
	if len(eligible) == 0 {
		return nil, domain.ErrNoEligibleHolders
	}

	unitScale := new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(asset.Decimals)), nil))

	payments := make([]hederaclient.HolderPayment, 0, len(eligible))
	for _, w := range eligible {
		share := new(big.Rat)
		switch dist.AmountType {
		case domain.AmountTypePerUnit:
			// amount per whole token unit; balances are in base units.
			share.Mul(amount, w.balance)
			share.Quo(share, unitScale)
		default: // AmountTypeFixed
			share.Mul(amount, w.balance)
			share.Quo(share, total)
		}
		payments = append(payments, hederaclient.HolderPayment{
			HolderHederaAddress: w.holder.HederaAddress,
			HolderEvmAddress:    w.holder.EvmAddress,
			Amount:              share.FloatString(6),
		})
	}
	return payments, nil
}
