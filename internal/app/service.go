/**
 * @description
 * Core business logic behind the REST API: creating distributions by payout
 * subtype, cancelling scheduled distributions, importing assets, and the
 * read paths the handlers expose.
 *
 * @dependencies
 * - internal/domain, internal/store: Domain models and persistence.
 * - pkg/hederaclient: Gateway shapes for asset import.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tokenstudio/mass-payout-service/internal/domain"
	"github.com/tokenstudio/mass-payout-service/internal/store"
	"github.com/tokenstudio/mass-payout-service/pkg/hederaclient"
)

// AssetGateway defines the on-chain operations asset import needs.
type AssetGateway interface {
	ResolveEvmAddress(ctx context.Context, hederaTokenAddress string) (string, error)
	GetTokenMetadata(ctx context.Context, tokenEvmAddress string) (*hederaclient.TokenMetadata, error)
	IsPaused(ctx context.Context, tokenEvmAddress string) (bool, error)
	DeployLifeCycleCashFlow(ctx context.Context, tokenEvmAddress string) (string, error)
}

// Service provides the business logic for the mass-payout API.
type Service struct {
	repo    store.Repository
	gateway AssetGateway
	payouts DistributionExecutor
	syncer  ChainSyncer
	logger  *slog.Logger
}

// NewService creates a new mass-payout service.
func NewService(repo store.Repository, gateway AssetGateway, payouts DistributionExecutor, syncer ChainSyncer, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		gateway: gateway,
		payouts: payouts,
		syncer:  syncer,
		logger:  logger,
	}
}

// CreatePayoutParams carries the caller's payout request.
type CreatePayoutParams struct {
	Subtype    domain.PayoutSubtype
	ExecuteAt  *time.Time
	Recurrency *domain.Recurrency
	Amount     string
	AmountType domain.AmountType
	Concept    string
}

// CreatePayout creates a PAYOUT distribution for the asset. IMMEDIATE
// payouts execute right away; the other subtypes stay SCHEDULED for the
// sweep or the chain event dispatcher.
func (s *Service) CreatePayout(ctx context.Context, assetID uuid.UUID, params CreatePayoutParams) (*domain.Distribution, error) {
	if _, err := s.repo.FindAssetByID(ctx, assetID); err != nil {
		return nil, err
	}

	dist, err := domain.NewPayoutDistribution(assetID, params.Subtype, params.ExecuteAt,
		params.Recurrency, params.Amount, params.AmountType, params.Concept)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateDistribution(ctx, dist); err != nil {
		return nil, fmt.Errorf("persist distribution: %w", err)
	}

	s.logger.Info("payout distribution created",
		"distribution_id", dist.ID, "asset_id", assetID, "subtype", params.Subtype)

	if params.Subtype == domain.PayoutSubtypeImmediate {
		if err := s.payouts.Execute(ctx, dist); err != nil {
			return nil, err
		}
		return s.repo.FindDistributionByID(ctx, dist.ID)
	}
	return dist, nil
}

// CreateCorporateActionParams carries the caller's corporate action request.
type CreateCorporateActionParams struct {
	ExecuteAt  time.Time
	Amount     string
	AmountType domain.AmountType
	Concept    string
}

// CreateCorporateAction creates a scheduled CORPORATE_ACTION distribution.
func (s *Service) CreateCorporateAction(ctx context.Context, assetID uuid.UUID, params CreateCorporateActionParams) (*domain.Distribution, error) {
	if _, err := s.repo.FindAssetByID(ctx, assetID); err != nil {
		return nil, err
	}

	dist, err := domain.NewCorporateActionDistribution(assetID, params.ExecuteAt,
		params.Amount, params.AmountType, params.Concept)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateDistribution(ctx, dist); err != nil {
		return nil, fmt.Errorf("persist distribution: %w", err)
	}

	s.logger.Info("corporate action distribution created",
		"distribution_id", dist.ID, "asset_id", assetID)
	return dist, nil
}

// CancelDistribution cancels a SCHEDULED distribution. Any other status is
// rejected and left unchanged.
func (s *Service) CancelDistribution(ctx context.Context, distributionID uuid.UUID) (*domain.Distribution, error) {
	dist, err := s.repo.CancelScheduledDistribution(ctx, distributionID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("distribution cancelled", "distribution_id", distributionID)
	return dist, nil
}

// DistributionDetail is a distribution with its batch payouts and holders.
type DistributionDetail struct {
	Distribution domain.Distribution `json:"distribution"`
	BatchPayouts []BatchPayoutDetail `json:"batch_payouts"`
}

// BatchPayoutDetail is a batch payout with its holder records.
type BatchPayoutDetail struct {
	BatchPayout domain.BatchPayout `json:"batch_payout"`
	Holders     []domain.Holder    `json:"holders"`
}

// GetDistribution returns a distribution with its full payout history.
func (s *Service) GetDistribution(ctx context.Context, distributionID uuid.UUID) (*DistributionDetail, error) {
	dist, err := s.repo.FindDistributionByID(ctx, distributionID)
	if err != nil {
		return nil, err
	}

	batches, err := s.repo.ListBatchPayoutsByDistribution(ctx, distributionID)
	if err != nil {
		return nil, fmt.Errorf("list batch payouts: %w", err)
	}

	detail := &DistributionDetail{Distribution: *dist}
	for _, batch := range batches {
		holders, err := s.repo.ListHoldersByBatchPayout(ctx, batch.ID)
		if err != nil {
			return nil, fmt.Errorf("list holders for batch %s: %w", batch.ID, err)
		}
		detail.BatchPayouts = append(detail.BatchPayouts, BatchPayoutDetail{
			BatchPayout: batch,
			Holders:     holders,
		})
	}
	return detail, nil
}

// ListDistributions returns a page of distributions, newest first.
func (s *Service) ListDistributions(ctx context.Context, limit, offset int) ([]domain.Distribution, error) {
	return s.repo.ListDistributions(ctx, limit, offset)
}

// ListAssets returns all mirrored assets.
func (s *Service) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	return s.repo.ListAssets(ctx)
}

// GetAsset returns one mirrored asset.
func (s *Service) GetAsset(ctx context.Context, assetID uuid.UUID) (*domain.Asset, error) {
	return s.repo.FindAssetByID(ctx, assetID)
}

// ImportAsset onboards an on-chain token: resolves its EVM address, rejects
// duplicates, fetches metadata and pause state, deploys the companion
// life-cycle-cash-flow contract, persists the mirror and runs a full resync.
// The on-chain deploy happens before persistence and persistence before the
// resync, so an earlier failure never leaves a partial asset behind.
func (s *Service) ImportAsset(ctx context.Context, hederaTokenAddress string) (*domain.Asset, error) {
	evmAddress, err := s.gateway.ResolveEvmAddress(ctx, hederaTokenAddress)
	if err != nil {
		return nil, fmt.Errorf("resolve evm address for %s: %w", hederaTokenAddress, err)
	}

	if _, err := s.repo.FindAssetByHederaTokenAddress(ctx, hederaTokenAddress); err == nil {
		return nil, store.ErrAssetAlreadyExists
	} else if !isNotFound(err) {
		return nil, fmt.Errorf("check existing asset: %w", err)
	}

	metadata, err := s.gateway.GetTokenMetadata(ctx, evmAddress)
	if err != nil {
		return nil, fmt.Errorf("fetch token metadata for %s: %w", hederaTokenAddress, err)
	}
	paused, err := s.gateway.IsPaused(ctx, evmAddress)
	if err != nil {
		return nil, fmt.Errorf("fetch pause state for %s: %w", hederaTokenAddress, err)
	}
	contractID, err := s.gateway.DeployLifeCycleCashFlow(ctx, evmAddress)
	if err != nil {
		return nil, fmt.Errorf("deploy life-cycle-cash-flow contract for %s: %w", hederaTokenAddress, err)
	}

	now := time.Now().UTC()
	asset := &domain.Asset{
		ID:                 uuid.New(),
		HederaTokenAddress: hederaTokenAddress,
		EvmAddress:         evmAddress,
		Name:               metadata.Name,
		Symbol:             metadata.Symbol,
		Decimals:           metadata.Decimals,
		Paused:             paused,
		CashFlowContractID: contractID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.CreateAsset(ctx, asset); err != nil {
		return nil, fmt.Errorf("persist asset %s: %w", hederaTokenAddress, err)
	}

	if err := s.syncer.SyncFromOnChain(ctx); err != nil {
		return nil, fmt.Errorf("post-import resync: %w", err)
	}

	s.logger.Info("asset imported",
		"asset_id", asset.ID, "hedera_token_address", hederaTokenAddress, "evm_address", evmAddress)
	return asset, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrAssetNotFound)
}
