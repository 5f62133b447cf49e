/**
 * @description
 * On-chain reconciliation: refreshes the locally mirrored asset state
 * (pause flag, token metadata) from chain truth. The scheduled payout sweep
 * runs this as a precondition so execution decisions never rely on a stale
 * mirror.
 */

package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/tokenstudio/mass-payout-service/internal/domain"
	"github.com/tokenstudio/mass-payout-service/pkg/hederaclient"
)

// ChainSyncRepository defines the database operations the sync needs.
type ChainSyncRepository interface {
	ListAssets(ctx context.Context) ([]domain.Asset, error)
	UpdateAssetChainState(ctx context.Context, assetID uuid.UUID, name, symbol string, decimals int, paused bool) error
}

// ChainStateReader reads per-token on-chain state.
type ChainStateReader interface {
	GetTokenMetadata(ctx context.Context, tokenEvmAddress string) (*hederaclient.TokenMetadata, error)
	IsPaused(ctx context.Context, tokenEvmAddress string) (bool, error)
}

// ChainSyncService mirrors on-chain asset state into the local store.
type ChainSyncService struct {
	repo   ChainSyncRepository
	reader ChainStateReader
	logger *slog.Logger
}

// NewChainSyncService creates a new on-chain sync service.
func NewChainSyncService(repo ChainSyncRepository, reader ChainStateReader, logger *slog.Logger) *ChainSyncService {
	return &ChainSyncService{repo: repo, reader: reader, logger: logger}
}

// SyncFromOnChain refreshes every mirrored asset. Any failure propagates:
// callers treat a complete, fresh mirror as a precondition.
func (s *ChainSyncService) SyncFromOnChain(ctx context.Context) error {
	assets, err := s.repo.ListAssets(ctx)
	if err != nil {
		return fmt.Errorf("list assets: %w", err)
	}

	for _, asset := range assets {
		metadata, err := s.reader.GetTokenMetadata(ctx, asset.EvmAddress)
		if err != nil {
			return fmt.Errorf("fetch metadata for asset %s: %w", asset.ID, err)
		}
		paused, err := s.reader.IsPaused(ctx, asset.EvmAddress)
		if err != nil {
			return fmt.Errorf("fetch pause state for asset %s: %w", asset.ID, err)
		}
		if err := s.repo.UpdateAssetChainState(ctx, asset.ID, metadata.Name, metadata.Symbol, metadata.Decimals, paused); err != nil {
			return fmt.Errorf("update asset %s: %w", asset.ID, err)
		}
		if paused != asset.Paused {
			s.logger.Info("asset pause state changed on chain", "asset_id", asset.ID, "paused", paused)
		}
	}
	return nil
}
