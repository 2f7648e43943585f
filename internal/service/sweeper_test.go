package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type sweepClaim struct {
	id        string
	expiresAt *time.Time
	votes     int
}

// fakeClaimSweep backs ClaimSweepStore with an in-memory claim set that
// follows the repository contract: only rows with a non-NULL expiry in the
// past are eligible, at most limit per batch.
type fakeClaimSweep struct {
	claims     []sweepClaim
	batchCalls []int
	countCalls int
}

func (f *fakeClaimSweep) CountExpired(_ context.Context, now time.Time) (int, error) {
	f.countCalls++
	n := 0
	for _, c := range f.claims {
		if c.expiresAt != nil && c.expiresAt.Before(now) {
			n++
		}
	}
	return n, nil
}

func (f *fakeClaimSweep) SweepExpiredBatch(_ context.Context, now time.Time, limit int) (int, int, error) {
	f.batchCalls = append(f.batchCalls, limit)
	var kept []sweepClaim
	claimsDeleted, votesDeleted := 0, 0
	for _, c := range f.claims {
		if claimsDeleted < limit && c.expiresAt != nil && c.expiresAt.Before(now) {
			claimsDeleted++
			votesDeleted += c.votes
			continue
		}
		kept = append(kept, c)
	}
	f.claims = kept
	return claimsDeleted, votesDeleted, nil
}

func (f *fakeClaimSweep) has(id string) bool {
	for _, c := range f.claims {
		if c.id == id {
			return true
		}
	}
	return false
}

type fakeAggSweep struct {
	orphaned    int
	deleteCalls int
	countCalls  int
}

func (f *fakeAggSweep) CountOrphanedExpired(_ context.Context, _ time.Time) (int, error) {
	f.countCalls++
	return f.orphaned, nil
}

func (f *fakeAggSweep) DeleteOrphanedExpired(_ context.Context, _ time.Time) (int, error) {
	f.deleteCalls++
	n := f.orphaned
	f.orphaned = 0
	return n, nil
}

func expiredClaims(n int, before time.Time) []sweepClaim {
	past := before.Add(-time.Minute)
	claims := make([]sweepClaim, n)
	for i := range claims {
		claims[i] = sweepClaim{id: string(rune('a' + i)), expiresAt: &past, votes: 2}
	}
	return claims
}

func newTestSweeper(claims *fakeClaimSweep, aggs *fakeAggSweep, batchSize int, now time.Time) *Sweeper {
	s := NewSweeper(claims, aggs, time.Hour, batchSize, zerolog.Nop())
	s.now = func() time.Time { return now }
	return s
}

func TestSweeperBatchBounding(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	claims := &fakeClaimSweep{claims: expiredClaims(11, now)}
	aggs := &fakeAggSweep{orphaned: 3}
	s := newTestSweeper(claims, aggs, 4, now)

	report, err := s.RunOnce(context.Background(), false, 4)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	// 11 expired rows at batch size 4: full, full, short — then stop.
	if got := len(claims.batchCalls); got != 3 {
		t.Errorf("batch calls = %d, want 3", got)
	}
	for i, limit := range claims.batchCalls {
		if limit != 4 {
			t.Errorf("batch %d limit = %d, want 4", i, limit)
		}
	}
	if report.ClaimsDeleted != 11 {
		t.Errorf("ClaimsDeleted = %d, want 11", report.ClaimsDeleted)
	}
	if report.VotesDeleted != 22 {
		t.Errorf("VotesDeleted = %d, want 22", report.VotesDeleted)
	}
	if report.AggregatesDeleted != 3 {
		t.Errorf("AggregatesDeleted = %d, want 3", report.AggregatesDeleted)
	}
	if aggs.deleteCalls != 1 {
		t.Errorf("aggregate delete calls = %d, want 1", aggs.deleteCalls)
	}
}

func TestSweeperDryRunDoesNotMutate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	claims := &fakeClaimSweep{claims: expiredClaims(5, now)}
	aggs := &fakeAggSweep{orphaned: 2}
	s := newTestSweeper(claims, aggs, 500, now)

	report, err := s.RunOnce(context.Background(), true, 500)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if !report.DryRun {
		t.Error("report.DryRun = false, want true")
	}
	if report.ClaimsDeleted != 5 || report.AggregatesDeleted != 2 {
		t.Errorf("report = %+v, want counts 5 claims / 2 aggregates", report)
	}
	if len(claims.batchCalls) != 0 {
		t.Errorf("dry run issued %d sweep batches, want 0", len(claims.batchCalls))
	}
	if aggs.deleteCalls != 0 {
		t.Errorf("dry run issued %d aggregate deletes, want 0", aggs.deleteCalls)
	}
	if len(claims.claims) != 5 {
		t.Errorf("dry run removed claims: %d left, want 5", len(claims.claims))
	}
}

func TestSweeperLeavesUnexpiredAndLegacyRows(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	claims := &fakeClaimSweep{claims: []sweepClaim{
		{id: "expired", expiresAt: &past},
		{id: "future", expiresAt: &future},
		{id: "legacy", expiresAt: nil},
	}}
	s := newTestSweeper(claims, &fakeAggSweep{}, 500, now)

	report, err := s.RunOnce(context.Background(), false, 500)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if report.ClaimsDeleted != 1 {
		t.Errorf("ClaimsDeleted = %d, want 1", report.ClaimsDeleted)
	}
	if claims.has("expired") {
		t.Error("expired claim should be gone")
	}
	if !claims.has("future") {
		t.Error("unexpired claim should survive")
	}
	if !claims.has("legacy") {
		t.Error("claim with no expiry should never be swept")
	}
}

func TestSweeperZeroBatchSizeUsesDefault(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	claims := &fakeClaimSweep{claims: expiredClaims(2, now)}
	s := newTestSweeper(claims, &fakeAggSweep{}, 7, now)

	if _, err := s.RunOnce(context.Background(), false, 0); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(claims.batchCalls) == 0 || claims.batchCalls[0] != 7 {
		t.Errorf("batch limits = %v, want configured default 7", claims.batchCalls)
	}
}
