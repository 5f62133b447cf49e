/**
 * @description
 * The holder retry sweep. Holders whose payment failed inside a batch are
 * left RETRYING with an exponential backoff schedule; this sweep claims the
 * ones that are due, re-attempts each payment individually through the
 * gateway, and re-derives the owning batch payout's aggregate status.
 */

package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tokenstudio/mass-payout-service/internal/domain"
	"github.com/tokenstudio/mass-payout-service/pkg/hederaclient"
)

// RetryRepository defines the database operations the retry sweep needs.
type RetryRepository interface {
	ClaimDueRetryHolders(ctx context.Context, now time.Time, limit int) ([]domain.Holder, error)
	UpdateHolder(ctx context.Context, holder *domain.Holder) error
	RecalculateBatchPayoutStatus(ctx context.Context, batchPayoutID uuid.UUID) (domain.BatchPayoutStatus, error)
	FindBatchPayoutByID(ctx context.Context, batchPayoutID uuid.UUID) (*domain.BatchPayout, error)
	FindDistributionByID(ctx context.Context, distributionID uuid.UUID) (*domain.Distribution, error)
	FindAssetByID(ctx context.Context, assetID uuid.UUID) (*domain.Asset, error)
}

// HolderPayer re-attempts a single holder payment on chain.
type HolderPayer interface {
	PayHolder(ctx context.Context, tokenEvmAddress string, payment hederaclient.HolderPayment) error
}

// HolderRetrySweep re-attempts due RETRYING holders.
type HolderRetrySweep struct {
	repo      RetryRepository
	payer     HolderPayer
	logger    *slog.Logger
	retry     RetryPolicy
	batchSize int
	now       func() time.Time
}

// NewHolderRetrySweep creates a new holder retry sweep.
func NewHolderRetrySweep(repo RetryRepository, payer HolderPayer, logger *slog.Logger, retry RetryPolicy, batchSize int) *HolderRetrySweep {
	return &HolderRetrySweep{
		repo:      repo,
		payer:     payer,
		logger:    logger,
		retry:     retry,
		batchSize: batchSize,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Execute claims and re-attempts one batch of due holders. Failures are
// isolated per holder.
func (s *HolderRetrySweep) Execute(ctx context.Context) error {
	holders, err := s.repo.ClaimDueRetryHolders(ctx, s.now(), s.batchSize)
	if err != nil {
		return fmt.Errorf("claim due retry holders: %w", err)
	}
	if len(holders) == 0 {
		return nil
	}

	s.logger.Info("retrying failed holder payments", "count", len(holders))

	for i := range holders {
		holder := holders[i]
		if err := s.retryHolder(ctx, &holder); err != nil {
			s.logger.Error("holder retry bookkeeping failed", "holder_id", holder.ID, "error", err)
		}
	}
	return nil
}

func (s *HolderRetrySweep) retryHolder(ctx context.Context, holder *domain.Holder) error {
	tokenEvmAddress, err := s.resolveTokenAddress(ctx, holder.BatchPayoutID)
	if err != nil {
		return err
	}

	now := s.now()
	payErr := s.payer.PayHolder(ctx, tokenEvmAddress, hederaclient.HolderPayment{
		HolderHederaAddress: holder.HederaAddress,
		HolderEvmAddress:    holder.EvmAddress,
		Amount:              holder.Amount,
	})
	if payErr != nil {
		holder.MarkFailed(payErr.Error(), now, s.retry.BaseDelay, s.retry.MaxAttempts)
		s.logger.Warn("holder payment retry failed",
			"holder_id", holder.ID, "attempts", holder.RetryCounter, "status", holder.Status, "error", payErr)
	} else {
		holder.MarkSucceeded(now)
		s.logger.Info("holder payment retry succeeded", "holder_id", holder.ID)
	}

	if err := s.repo.UpdateHolder(ctx, holder); err != nil {
		return fmt.Errorf("persist holder outcome: %w", err)
	}
	if _, err := s.repo.RecalculateBatchPayoutStatus(ctx, holder.BatchPayoutID); err != nil {
		return fmt.Errorf("recalculate batch status: %w", err)
	}
	return nil
}

func (s *HolderRetrySweep) resolveTokenAddress(ctx context.Context, batchPayoutID uuid.UUID) (string, error) {
	batch, err := s.repo.FindBatchPayoutByID(ctx, batchPayoutID)
	if err != nil {
		return "", fmt.Errorf("load batch payout: %w", err)
	}
	dist, err := s.repo.FindDistributionByID(ctx, batch.DistributionID)
	if err != nil {
		return "", fmt.Errorf("load distribution: %w", err)
	}
	asset, err := s.repo.FindAssetByID(ctx, dist.AssetID)
	if err != nil {
		return "", fmt.Errorf("load asset: %w", err)
	}
	return asset.EvmAddress, nil
}
