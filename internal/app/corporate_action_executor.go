/**
 * @description
 * Execution service for CORPORATE_ACTION distributions. Corporate actions
 * run through the asset's life-cycle-cash-flow contract as a single
 * transaction; there is no per-holder bookkeeping on this path.
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
	"github.com/tokenstudio/mass-payout-service/pkg/rabbitmq"
)

// CorporateActionRepository defines the database operations this executor needs.
type CorporateActionRepository interface {
	FindAssetByID(ctx context.Context, assetID uuid.UUID) (*domain.Asset, error)
	UpdateDistributionStatus(ctx context.Context, distributionID uuid.UUID, status domain.DistributionStatus) error
}

// CorporateActionGateway defines the on-chain call this executor needs.
type CorporateActionGateway interface {
	ExecuteCorporateAction(ctx context.Context, req hederaclient.CorporateActionRequest) (*hederaclient.TransactionResult, error)
}

// CorporateActionExecutor executes CORPORATE_ACTION distributions.
type CorporateActionExecutor struct {
	repo      CorporateActionRepository
	gateway   CorporateActionGateway
	publisher rabbitmq.Publisher
	logger    *slog.Logger
}

// NewCorporateActionExecutor creates a new corporate action execution service.
func NewCorporateActionExecutor(repo CorporateActionRepository, gateway CorporateActionGateway, publisher rabbitmq.Publisher, logger *slog.Logger) *CorporateActionExecutor {
	return &CorporateActionExecutor{repo: repo, gateway: gateway, publisher: publisher, logger: logger}
}

// Execute runs one corporate action distribution.
func (e *CorporateActionExecutor) Execute(ctx context.Context, dist *domain.Distribution) error {
	asset, err := e.repo.FindAssetByID(ctx, dist.AssetID)
	if err != nil {
		return fmt.Errorf("load asset for distribution %s: %w", dist.ID, err)
	}
	if asset.Paused {
		return fmt.Errorf("distribution %s: %w", dist.ID, domain.ErrAssetPaused)
	}

	result, err := e.gateway.ExecuteCorporateAction(ctx, hederaclient.CorporateActionRequest{
		TokenEvmAddress: asset.EvmAddress,
		Amount:          dist.Amount,
		Memo:            dist.Concept,
	})
	if err != nil {
		if updateErr := e.repo.UpdateDistributionStatus(ctx, dist.ID, domain.DistributionStatusFailed); updateErr != nil {
			e.logger.Error("failed to mark corporate action failed", "distribution_id", dist.ID, "error", updateErr)
		}
		e.publish(ctx, dist, rabbitmq.RoutingKeyDistributionFailed)
		return fmt.Errorf("execute corporate action for distribution %s: %w", dist.ID, err)
	}

	if err := e.repo.UpdateDistributionStatus(ctx, dist.ID, domain.DistributionStatusCompleted); err != nil {
		return fmt.Errorf("mark distribution %s completed: %w", dist.ID, err)
	}

	e.logger.Info("corporate action executed",
		"distribution_id", dist.ID, "transaction_id", result.TransactionID)
	e.publish(ctx, dist, rabbitmq.RoutingKeyDistributionCompleted)
	return nil
}

func (e *CorporateActionExecutor) publish(ctx context.Context, dist *domain.Distribution, routingKey string) {
	event := rabbitmq.DistributionEvent{
		DistributionID: dist.ID,
		AssetID:        dist.AssetID,
		Status:         routingKey,
		Concept:        dist.Concept,
		Timestamp:      time.Now().UTC(),
	}
	if err := e.publisher.PublishDistributionEvent(ctx, routingKey, event); err != nil {
		e.logger.Warn("failed to publish distribution event", "distribution_id", dist.ID, "error", err)
	}
}
