/**
 * @description
 * This file defines the `Repository` interface: the contract for all data
 * access the mass-payout service needs. Defining an interface decouples the
 * application services from PostgreSQL and keeps them testable with stubs.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: For entity identifiers.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tokenstudio/mass-payout-service/internal/domain"
)

var (
	ErrAssetNotFound          = errors.New("asset not found")
	ErrAssetAlreadyExists     = errors.New("asset hedera token address already exists")
	ErrDistributionNotFound   = errors.New("distribution not found")
	ErrBatchPayoutNotFound    = errors.New("batch payout not found")
	ErrListenerConfigNotFound = errors.New("blockchain event listener config not found")
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Assets
	CreateAsset(ctx context.Context, asset *domain.Asset) error
	FindAssetByID(ctx context.Context, assetID uuid.UUID) (*domain.Asset, error)
	FindAssetByHederaTokenAddress(ctx context.Context, address string) (*domain.Asset, error)
	FindAssetByEvmAddress(ctx context.Context, evmAddress string) (*domain.Asset, error)
	ListAssets(ctx context.Context) ([]domain.Asset, error)
	UpdateAssetChainState(ctx context.Context, assetID uuid.UUID, name, symbol string, decimals int, paused bool) error

	// Distributions
	CreateDistribution(ctx context.Context, dist *domain.Distribution) error
	FindDistributionByID(ctx context.Context, distributionID uuid.UUID) (*domain.Distribution, error)
	ListDistributions(ctx context.Context, limit, offset int) ([]domain.Distribution, error)
	UpdateDistributionStatus(ctx context.Context, distributionID uuid.UUID, status domain.DistributionStatus) error
	CancelScheduledDistribution(ctx context.Context, distributionID uuid.UUID) (*domain.Distribution, error)
	FindScheduledDistributionsInWindow(ctx context.Context, start, end time.Time) ([]domain.Distribution, error)
	FindScheduledAutomatedDistributionsByEvmAddress(ctx context.Context, evmAddress string) ([]domain.Distribution, error)

	// Batch payouts and holders
	CreateBatchPayoutWithHolders(ctx context.Context, batch *domain.BatchPayout, holders []domain.Holder) error
	UpdateBatchPayoutStatus(ctx context.Context, batchPayoutID uuid.UUID, status domain.BatchPayoutStatus) error
	ListBatchPayoutsByDistribution(ctx context.Context, distributionID uuid.UUID) ([]domain.BatchPayout, error)
	ListHoldersByBatchPayout(ctx context.Context, batchPayoutID uuid.UUID) ([]domain.Holder, error)
	UpdateHolder(ctx context.Context, holder *domain.Holder) error
	ClaimDueRetryHolders(ctx context.Context, now time.Time, limit int) ([]domain.Holder, error)
	FindBatchPayoutByID(ctx context.Context, batchPayoutID uuid.UUID) (*domain.BatchPayout, error)
	RecalculateBatchPayoutStatus(ctx context.Context, batchPayoutID uuid.UUID) (domain.BatchPayoutStatus, error)

	// Blockchain event listener config (single-row monotonic cursor)
	GetListenerConfig(ctx context.Context) (*domain.ListenerConfig, error)
	AdvanceListenerCursor(ctx context.Context, timestamp string) error
}
