package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tokenstudio/mass-payout-service/internal/domain"
	"github.com/tokenstudio/mass-payout-service/internal/store"
	"github.com/tokenstudio/mass-payout-service/pkg/hederaclient"
)

// stubRepository is an in-memory store.Repository for service tests.
type stubRepository struct {
	assets        map[uuid.UUID]*domain.Asset
	byHederaAddr  map[string]*domain.Asset
	distributions map[uuid.UUID]*domain.Distribution
	batches       map[uuid.UUID][]domain.BatchPayout
	holders       map[uuid.UUID][]domain.Holder

	createAssetErr error
	cancelResult   *domain.Distribution
	cancelErr      error
}

func newStubRepository() *stubRepository {
	return &stubRepository{
		assets:        make(map[uuid.UUID]*domain.Asset),
		byHederaAddr:  make(map[string]*domain.Asset),
		distributions: make(map[uuid.UUID]*domain.Distribution),
		batches:       make(map[uuid.UUID][]domain.BatchPayout),
		holders:       make(map[uuid.UUID][]domain.Holder),
	}
}

func (s *stubRepository) addAsset(asset *domain.Asset) {
	s.assets[asset.ID] = asset
	s.byHederaAddr[asset.HederaTokenAddress] = asset
}

func (s *stubRepository) CreateAsset(ctx context.Context, asset *domain.Asset) error {
	if s.createAssetErr != nil {
		return s.createAssetErr
	}
	s.addAsset(asset)
	return nil
}

func (s *stubRepository) FindAssetByID(ctx context.Context, assetID uuid.UUID) (*domain.Asset, error) {
	asset, ok := s.assets[assetID]
	if !ok {
		return nil, store.ErrAssetNotFound
	}
	return asset, nil
}

func (s *stubRepository) FindAssetByHederaTokenAddress(ctx context.Context, address string) (*domain.Asset, error) {
	asset, ok := s.byHederaAddr[address]
	if !ok {
		return nil, store.ErrAssetNotFound
	}
	return asset, nil
}

func (s *stubRepository) FindAssetByEvmAddress(ctx context.Context, evmAddress string) (*domain.Asset, error) {
	for _, asset := range s.assets {
		if asset.EvmAddress == evmAddress {
			return asset, nil
		}
	}
	return nil, store.ErrAssetNotFound
}

func (s *stubRepository) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	out := make([]domain.Asset, 0, len(s.assets))
	for _, asset := range s.assets {
		out = append(out, *asset)
	}
	return out, nil
}

func (s *stubRepository) UpdateAssetChainState(ctx context.Context, assetID uuid.UUID, name, symbol string, decimals int, paused bool) error {
	return nil
}

func (s *stubRepository) CreateDistribution(ctx context.Context, dist *domain.Distribution) error {
	s.distributions[dist.ID] = dist
	return nil
}

func (s *stubRepository) FindDistributionByID(ctx context.Context, distributionID uuid.UUID) (*domain.Distribution, error) {
	dist, ok := s.distributions[distributionID]
	if !ok {
		return nil, store.ErrDistributionNotFound
	}
	return dist, nil
}

func (s *stubRepository) ListDistributions(ctx context.Context, limit, offset int) ([]domain.Distribution, error) {
	out := make([]domain.Distribution, 0, len(s.distributions))
	for _, dist := range s.distributions {
		out = append(out, *dist)
	}
	return out, nil
}

func (s *stubRepository) UpdateDistributionStatus(ctx context.Context, distributionID uuid.UUID, status domain.DistributionStatus) error {
	if dist, ok := s.distributions[distributionID]; ok {
		dist.Status = status
	}
	return nil
}

func (s *stubRepository) CancelScheduledDistribution(ctx context.Context, distributionID uuid.UUID) (*domain.Distribution, error) {
	if s.cancelErr != nil {
		return nil, s.cancelErr
	}
	return s.cancelResult, nil
}

func (s *stubRepository) FindScheduledDistributionsInWindow(ctx context.Context, start, end time.Time) ([]domain.Distribution, error) {
	return nil, nil
}

func (s *stubRepository) FindScheduledAutomatedDistributionsByEvmAddress(ctx context.Context, evmAddress string) ([]domain.Distribution, error) {
	return nil, nil
}

func (s *stubRepository) CreateBatchPayoutWithHolders(ctx context.Context, batch *domain.BatchPayout, holders []domain.Holder) error {
	s.batches[batch.DistributionID] = append(s.batches[batch.DistributionID], *batch)
	s.holders[batch.ID] = holders
	return nil
}

func (s *stubRepository) UpdateBatchPayoutStatus(ctx context.Context, batchPayoutID uuid.UUID, status domain.BatchPayoutStatus) error {
	return nil
}

func (s *stubRepository) ListBatchPayoutsByDistribution(ctx context.Context, distributionID uuid.UUID) ([]domain.BatchPayout, error) {
	return s.batches[distributionID], nil
}

func (s *stubRepository) ListHoldersByBatchPayout(ctx context.Context, batchPayoutID uuid.UUID) ([]domain.Holder, error) {
	return s.holders[batchPayoutID], nil
}

func (s *stubRepository) UpdateHolder(ctx context.Context, holder *domain.Holder) error {
	return nil
}

func (s *stubRepository) ClaimDueRetryHolders(ctx context.Context, now time.Time, limit int) ([]domain.Holder, error) {
	return nil, nil
}

func (s *stubRepository) FindBatchPayoutByID(ctx context.Context, batchPayoutID uuid.UUID) (*domain.BatchPayout, error) {
	return nil, store.ErrBatchPayoutNotFound
}

func (s *stubRepository) RecalculateBatchPayoutStatus(ctx context.Context, batchPayoutID uuid.UUID) (domain.BatchPayoutStatus, error) {
	return domain.BatchPayoutStatusInProgress, nil
}

func (s *stubRepository) GetListenerConfig(ctx context.Context) (*domain.ListenerConfig, error) {
	return nil, store.ErrListenerConfigNotFound
}

func (s *stubRepository) AdvanceListenerCursor(ctx context.Context, timestamp string) error {
	return nil
}

// stubAssetGateway satisfies AssetGateway for import tests.
type stubAssetGateway struct {
	evmAddress string
	resolveErr error
	metadata   *hederaclient.TokenMetadata
	paused     bool
	contractID string
	deployErr  error

	deployed int
}

func (s *stubAssetGateway) ResolveEvmAddress(ctx context.Context, hederaTokenAddress string) (string, error) {
	if s.resolveErr != nil {
		return "", s.resolveErr
	}
	return s.evmAddress, nil
}

func (s *stubAssetGateway) GetTokenMetadata(ctx context.Context, tokenEvmAddress string) (*hederaclient.TokenMetadata, error) {
	return s.metadata, nil
}

func (s *stubAssetGateway) IsPaused(ctx context.Context, tokenEvmAddress string) (bool, error) {
	return s.paused, nil
}

func (s *stubAssetGateway) DeployLifeCycleCashFlow(ctx context.Context, tokenEvmAddress string) (string, error) {
	if s.deployErr != nil {
		return "", s.deployErr
	}
	s.deployed++
	return s.contractID, nil
}

func newTestService(repo *stubRepository, gateway *stubAssetGateway, payouts DistributionExecutor, syncer *stubChainSyncer) *Service {
	return NewService(repo, gateway, payouts, syncer, discardLogger())
}

func TestCreatePayoutImmediateExecutesRightAway(t *testing.T) {
	repo := newStubRepository()
	asset := &domain.Asset{ID: uuid.New(), HederaTokenAddress: "0.0.7001"}
	repo.addAsset(asset)
	payouts := &stubDistributionExecutor{}
	svc := newTestService(repo, &stubAssetGateway{}, payouts, &stubChainSyncer{})

	dist, err := svc.CreatePayout(context.Background(), asset.ID, CreatePayoutParams{
		Subtype:    domain.PayoutSubtypeImmediate,
		Amount:     "100",
		AmountType: domain.AmountTypeFixed,
		Concept:    "dividend",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payouts.executed) != 1 || payouts.executed[0] != dist.ID {
		t.Fatalf("immediate payout must execute right away, got %v", payouts.executed)
	}
	if _, ok := repo.distributions[dist.ID]; !ok {
		t.Fatal("distribution must be persisted")
	}
}

func TestCreatePayoutOneOffDoesNotExecute(t *testing.T) {
	repo := newStubRepository()
	asset := &domain.Asset{ID: uuid.New()}
	repo.addAsset(asset)
	payouts := &stubDistributionExecutor{}
	svc := newTestService(repo, &stubAssetGateway{}, payouts, &stubChainSyncer{})

	at := time.Now().Add(48 * time.Hour)
	dist, err := svc.CreatePayout(context.Background(), asset.ID, CreatePayoutParams{
		Subtype:    domain.PayoutSubtypeOneOff,
		ExecuteAt:  &at,
		Amount:     "100",
		AmountType: domain.AmountTypeFixed,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payouts.executed) != 0 {
		t.Fatal("scheduled payout must not execute at creation time")
	}
	if dist.Status != domain.DistributionStatusScheduled {
		t.Fatalf("expected SCHEDULED, got %s", dist.Status)
	}
}

func TestCreatePayoutUnknownSubtypePersistsNothing(t *testing.T) {
	repo := newStubRepository()
	asset := &domain.Asset{ID: uuid.New()}
	repo.addAsset(asset)
	svc := newTestService(repo, &stubAssetGateway{}, &stubDistributionExecutor{}, &stubChainSyncer{})

	_, err := svc.CreatePayout(context.Background(), asset.ID, CreatePayoutParams{
		Subtype:    domain.PayoutSubtype("BULK"),
		Amount:     "100",
		AmountType: domain.AmountTypeFixed,
	})
	if !errors.Is(err, domain.ErrInvalidPayoutSubtype) {
		t.Fatalf("expected ErrInvalidPayoutSubtype, got %v", err)
	}
	if len(repo.distributions) != 0 {
		t.Fatal("nothing may be persisted for an invalid subtype")
	}
}

func TestCreatePayoutUnknownAsset(t *testing.T) {
	repo := newStubRepository()
	svc := newTestService(repo, &stubAssetGateway{}, &stubDistributionExecutor{}, &stubChainSyncer{})

	_, err := svc.CreatePayout(context.Background(), uuid.New(), CreatePayoutParams{
		Subtype:    domain.PayoutSubtypeImmediate,
		Amount:     "100",
		AmountType: domain.AmountTypeFixed,
	})
	if !errors.Is(err, store.ErrAssetNotFound) {
		t.Fatalf("expected ErrAssetNotFound, got %v", err)
	}
}

func TestCancelDistributionPropagatesGuard(t *testing.T) {
	repo := newStubRepository()
	repo.cancelErr = domain.ErrDistributionNotCancellable
	svc := newTestService(repo, &stubAssetGateway{}, &stubDistributionExecutor{}, &stubChainSyncer{})

	_, err := svc.CancelDistribution(context.Background(), uuid.New())
	if !errors.Is(err, domain.ErrDistributionNotCancellable) {
		t.Fatalf("expected ErrDistributionNotCancellable, got %v", err)
	}
}

func TestImportAssetHappyPath(t *testing.T) {
	repo := newStubRepository()
	gateway := &stubAssetGateway{
		evmAddress: "0xtoken",
		metadata:   &hederaclient.TokenMetadata{Name: "Real Estate Fund", Symbol: "REF", Decimals: 6},
		contractID: "0.0.9001",
	}
	syncer := &stubChainSyncer{}
	svc := newTestService(repo, gateway, &stubDistributionExecutor{}, syncer)

	asset, err := svc.ImportAsset(context.Background(), "0.0.7001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if asset.EvmAddress != "0xtoken" || asset.Symbol != "REF" || asset.CashFlowContractID != "0.0.9001" {
		t.Fatalf("asset mirror not populated: %+v", asset)
	}
	if _, ok := repo.byHederaAddr["0.0.7001"]; !ok {
		t.Fatal("asset must be persisted under its hedera address")
	}
	if !syncer.called {
		t.Fatal("import must trigger a full on-chain resync")
	}
}

func TestImportAssetRejectsDuplicate(t *testing.T) {
	repo := newStubRepository()
	repo.addAsset(&domain.Asset{ID: uuid.New(), HederaTokenAddress: "0.0.7001"})
	gateway := &stubAssetGateway{evmAddress: "0xtoken", metadata: &hederaclient.TokenMetadata{}}
	svc := newTestService(repo, gateway, &stubDistributionExecutor{}, &stubChainSyncer{})

	_, err := svc.ImportAsset(context.Background(), "0.0.7001")
	if !errors.Is(err, store.ErrAssetAlreadyExists) {
		t.Fatalf("expected ErrAssetAlreadyExists, got %v", err)
	}
	if gateway.deployed != 0 {
		t.Fatal("no contract may be deployed for a duplicate import")
	}
}

func TestImportAssetDeployFailureLeavesNothingPersisted(t *testing.T) {
	repo := newStubRepository()
	gateway := &stubAssetGateway{
		evmAddress: "0xtoken",
		metadata:   &hederaclient.TokenMetadata{},
		deployErr:  errors.New("deploy reverted"),
	}
	syncer := &stubChainSyncer{}
	svc := newTestService(repo, gateway, &stubDistributionExecutor{}, syncer)

	if _, err := svc.ImportAsset(context.Background(), "0.0.7001"); err == nil {
		t.Fatal("expected deploy failure to propagate")
	}
	if len(repo.assets) != 0 {
		t.Fatal("a failed import must not persist a partial asset")
	}
	if syncer.called {
		t.Fatal("a failed import must not trigger a resync")
	}
}

func TestGetDistributionAssemblesHistory(t *testing.T) {
	repo := newStubRepository()
	asset := &domain.Asset{ID: uuid.New()}
	repo.addAsset(asset)
	dist := &domain.Distribution{ID: uuid.New(), AssetID: asset.ID, Status: domain.DistributionStatusCompleted}
	repo.distributions[dist.ID] = dist

	batch, err := domain.NewFailedBatchPayout(dist.ID, "first attempt", 2)
	if err != nil {
		t.Fatalf("building batch: %v", err)
	}
	repo.batches[dist.ID] = []domain.BatchPayout{*batch}
	repo.holders[batch.ID] = []domain.Holder{*domain.NewHolder(batch.ID, "0.0.2001", "0xaaa", "5")}

	svc := newTestService(repo, &stubAssetGateway{}, &stubDistributionExecutor{}, &stubChainSyncer{})
	detail, err := svc.GetDistribution(context.Background(), dist.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detail.Distribution.ID != dist.ID {
		t.Fatal("distribution not carried")
	}
	if len(detail.BatchPayouts) != 1 || len(detail.BatchPayouts[0].Holders) != 1 {
		t.Fatalf("history not assembled: %+v", detail.BatchPayouts)
	}
}
