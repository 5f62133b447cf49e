package app

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/tokenstudio/mass-payout-service/internal/domain"
	"github.com/tokenstudio/mass-payout-service/pkg/hederaclient"
)

type stubChainSyncRepo struct {
	assets  []domain.Asset
	listErr error

	updates map[uuid.UUID]bool // asset id -> paused
}

func (s *stubChainSyncRepo) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.assets, nil
}

func (s *stubChainSyncRepo) UpdateAssetChainState(ctx context.Context, assetID uuid.UUID, name, symbol string, decimals int, paused bool) error {
	if s.updates == nil {
		s.updates = make(map[uuid.UUID]bool)
	}
	s.updates[assetID] = paused
	return nil
}

type stubChainStateReader struct {
	pausedByAddress map[string]bool
	metadataErr     error
}

func (s *stubChainStateReader) GetTokenMetadata(ctx context.Context, tokenEvmAddress string) (*hederaclient.TokenMetadata, error) {
	if s.metadataErr != nil {
		return nil, s.metadataErr
	}
	return &hederaclient.TokenMetadata{Name: "Fund", Symbol: "FND", Decimals: 6}, nil
}

func (s *stubChainStateReader) IsPaused(ctx context.Context, tokenEvmAddress string) (bool, error) {
	return s.pausedByAddress[tokenEvmAddress], nil
}

func TestSyncFromOnChainRefreshesEveryAsset(t *testing.T) {
	a := domain.Asset{ID: uuid.New(), EvmAddress: "0xaaa"}
	b := domain.Asset{ID: uuid.New(), EvmAddress: "0xbbb", Paused: false}
	repo := &stubChainSyncRepo{assets: []domain.Asset{a, b}}
	reader := &stubChainStateReader{pausedByAddress: map[string]bool{"0xbbb": true}}

	s := NewChainSyncService(repo, reader, discardLogger())
	if err := s.SyncFromOnChain(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(repo.updates) != 2 {
		t.Fatalf("expected both assets refreshed, got %d", len(repo.updates))
	}
	if repo.updates[b.ID] != true {
		t.Fatal("pause flag from chain must be mirrored")
	}
	if repo.updates[a.ID] != false {
		t.Fatal("unpaused asset must stay unpaused")
	}
}

func TestSyncFromOnChainPropagatesFailures(t *testing.T) {
	repo := &stubChainSyncRepo{assets: []domain.Asset{{ID: uuid.New(), EvmAddress: "0xaaa"}}}
	reader := &stubChainStateReader{metadataErr: errors.New("mirror 503")}

	s := NewChainSyncService(repo, reader, discardLogger())
	if err := s.SyncFromOnChain(context.Background()); err == nil {
		t.Fatal("a failed refresh must propagate; the mirror is a precondition")
	}
	if len(repo.updates) != 0 {
		t.Fatalf("no partial updates expected, got %v", repo.updates)
	}
}
