package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tokenstudio/mass-payout-service/internal/domain"
)

type stubSweepRepo struct {
	distributions []domain.Distribution
	queryErr      error

	windowStart time.Time
	windowEnd   time.Time
	queried     bool
}

func (s *stubSweepRepo) FindScheduledDistributionsInWindow(ctx context.Context, start, end time.Time) ([]domain.Distribution, error) {
	s.queried = true
	s.windowStart = start
	s.windowEnd = end
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return s.distributions, nil
}

type stubChainSyncer struct {
	err    error
	called bool
}

func (s *stubChainSyncer) SyncFromOnChain(ctx context.Context) error {
	s.called = true
	return s.err
}

func TestScheduledSweepQueriesFullLocalDay(t *testing.T) {
	repo := &stubSweepRepo{}
	p := NewScheduledPayoutProcessor(repo, &stubChainSyncer{}, &stubDistributionExecutor{}, &stubDistributionExecutor{}, discardLogger())

	loc := time.FixedZone("UTC+2", 2*3600)
	p.now = func() time.Time { return time.Date(2026, 3, 15, 14, 30, 0, 0, loc) }

	if err := p.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantStart := time.Date(2026, 3, 15, 0, 0, 0, 0, loc)
	wantEnd := time.Date(2026, 3, 15, 23, 59, 59, 999999999, loc)
	if !repo.windowStart.Equal(wantStart) {
		t.Fatalf("expected window start %v, got %v", wantStart, repo.windowStart)
	}
	if !repo.windowEnd.Equal(wantEnd) {
		t.Fatalf("expected window end %v, got %v", wantEnd, repo.windowEnd)
	}
}

func TestScheduledSweepDispatchesByType(t *testing.T) {
	subtype := domain.PayoutSubtypeOneOff
	payout := domain.Distribution{ID: uuid.New(), Type: domain.DistributionTypePayout, PayoutSubtype: &subtype}
	corporate := domain.Distribution{ID: uuid.New(), Type: domain.DistributionTypeCorporateAction}

	repo := &stubSweepRepo{distributions: []domain.Distribution{payout, corporate}}
	payouts := &stubDistributionExecutor{}
	corporateActions := &stubDistributionExecutor{}
	p := NewScheduledPayoutProcessor(repo, &stubChainSyncer{}, payouts, corporateActions, discardLogger())

	if err := p.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payouts.executed) != 1 || payouts.executed[0] != payout.ID {
		t.Fatalf("expected payout executor to get %s, got %v", payout.ID, payouts.executed)
	}
	if len(corporateActions.executed) != 1 || corporateActions.executed[0] != corporate.ID {
		t.Fatalf("expected corporate action executor to get %s, got %v", corporate.ID, corporateActions.executed)
	}
}

func TestScheduledSweepIsolatesDistributionFailures(t *testing.T) {
	first := domain.Distribution{ID: uuid.New(), Type: domain.DistributionTypePayout}
	second := domain.Distribution{ID: uuid.New(), Type: domain.DistributionTypePayout}

	repo := &stubSweepRepo{distributions: []domain.Distribution{first, second}}
	payouts := &stubDistributionExecutor{errByID: map[uuid.UUID]error{first.ID: errors.New("gateway down")}}
	p := NewScheduledPayoutProcessor(repo, &stubChainSyncer{}, payouts, &stubDistributionExecutor{}, discardLogger())

	if err := p.Execute(context.Background()); err != nil {
		t.Fatalf("one failing distribution must not fail the sweep: %v", err)
	}
	if len(payouts.executed) != 2 {
		t.Fatalf("expected both distributions attempted, got %v", payouts.executed)
	}
}

func TestScheduledSweepAbortsWhenReconciliationFails(t *testing.T) {
	repo := &stubSweepRepo{distributions: []domain.Distribution{{ID: uuid.New()}}}
	syncer := &stubChainSyncer{err: errors.New("mirror unreachable")}
	payouts := &stubDistributionExecutor{}
	p := NewScheduledPayoutProcessor(repo, syncer, payouts, &stubDistributionExecutor{}, discardLogger())

	if err := p.Execute(context.Background()); err == nil {
		t.Fatal("expected reconciliation failure to abort the sweep")
	}
	if repo.queried {
		t.Fatal("no distributions may be queried when reconciliation fails")
	}
	if len(payouts.executed) != 0 {
		t.Fatal("no distributions may execute when reconciliation fails")
	}
}
