package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/model"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/repository"
)

// fakePager serves keyset pages from a sorted in-memory slice, recording
// each cursor it is handed.
type fakePager struct {
	aggs    []model.AcceptanceAggregate
	cursors []model.TupleKey
}

func tupleAfter(a, b model.TupleKey) bool {
	if a.ProviderID != b.ProviderID {
		return a.ProviderID > b.ProviderID
	}
	if a.PlanID != b.PlanID {
		return a.PlanID > b.PlanID
	}
	return a.LocationID > b.LocationID
}

func (f *fakePager) ListPage(_ context.Context, after model.TupleKey, limit int) ([]model.AcceptanceAggregate, error) {
	f.cursors = append(f.cursors, after)
	var page []model.AcceptanceAggregate
	for _, a := range f.aggs {
		if !tupleAfter(a.Tuple(), after) {
			continue
		}
		page = append(page, a)
		if len(page) == limit {
			break
		}
	}
	return page, nil
}

type fakeRescorer struct {
	changed      map[model.TupleKey]bool
	computeCalls []model.TupleKey
	rescoreCalls []model.TupleKey
}

func (f *fakeRescorer) Compute(_ context.Context, _ repository.Querier, tuple model.TupleKey, current *model.AcceptanceAggregate, _ time.Time) (*model.AcceptanceAggregate, bool, error) {
	f.computeCalls = append(f.computeCalls, tuple)
	return current, f.changed[tuple], nil
}

func (f *fakeRescorer) RescoreTuple(_ context.Context, _ repository.Querier, tuple model.TupleKey, _ time.Time) (*model.AcceptanceAggregate, bool, error) {
	f.rescoreCalls = append(f.rescoreCalls, tuple)
	return nil, f.changed[tuple], nil
}

func pagerAggs(ids ...string) []model.AcceptanceAggregate {
	aggs := make([]model.AcceptanceAggregate, len(ids))
	for i, id := range ids {
		aggs[i] = model.AcceptanceAggregate{ProviderID: id, PlanID: "plan", LocationID: ""}
	}
	return aggs
}

func newTestRecalcWorker(pager *fakePager, rescorer *fakeRescorer, pageSize int) *RecalcWorker {
	cache := NewCacheService("", zerolog.Nop())
	return NewRecalcWorker(nil, pager, rescorer, cache, time.Hour, pageSize, zerolog.Nop())
}

func TestRecalcWorkerDryRunDoesNotPersist(t *testing.T) {
	pager := &fakePager{aggs: pagerAggs("p1", "p2", "p3")}
	rescorer := &fakeRescorer{changed: map[model.TupleKey]bool{
		{ProviderID: "p2", PlanID: "plan"}: true,
	}}
	w := newTestRecalcWorker(pager, rescorer, 10)

	report, err := w.RunOnce(context.Background(), true, 10)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if !report.DryRun {
		t.Error("report.DryRun = false, want true")
	}
	if report.AggregatesScanned != 3 {
		t.Errorf("AggregatesScanned = %d, want 3", report.AggregatesScanned)
	}
	if report.AggregatesChanged != 1 {
		t.Errorf("AggregatesChanged = %d, want 1", report.AggregatesChanged)
	}
	if len(rescorer.computeCalls) != 3 {
		t.Errorf("compute calls = %d, want 3", len(rescorer.computeCalls))
	}
	if len(rescorer.rescoreCalls) != 0 {
		t.Errorf("dry run persisted %d tuples, want 0", len(rescorer.rescoreCalls))
	}
}

func TestRecalcWorkerPageBounding(t *testing.T) {
	pager := &fakePager{aggs: pagerAggs("p1", "p2", "p3", "p4", "p5")}
	rescorer := &fakeRescorer{}
	w := newTestRecalcWorker(pager, rescorer, 2)

	report, err := w.RunOnce(context.Background(), true, 2)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if report.AggregatesScanned != 5 {
		t.Errorf("AggregatesScanned = %d, want 5", report.AggregatesScanned)
	}
	// Pages of 2, 2, 1; the short final page ends iteration without an
	// extra empty fetch.
	if len(pager.cursors) != 3 {
		t.Fatalf("ListPage calls = %d, want 3", len(pager.cursors))
	}
	wantCursors := []model.TupleKey{
		{},
		{ProviderID: "p2", PlanID: "plan"},
		{ProviderID: "p4", PlanID: "plan"},
	}
	for i, want := range wantCursors {
		if pager.cursors[i] != want {
			t.Errorf("cursor %d = %+v, want %+v", i, pager.cursors[i], want)
		}
	}
}

func TestRecalcWorkerEmptyLedger(t *testing.T) {
	pager := &fakePager{}
	rescorer := &fakeRescorer{}
	w := newTestRecalcWorker(pager, rescorer, 2)

	report, err := w.RunOnce(context.Background(), true, 2)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if report.AggregatesScanned != 0 || report.AggregatesChanged != 0 {
		t.Errorf("report = %+v, want zero counts", report)
	}
	if len(pager.cursors) != 1 {
		t.Errorf("ListPage calls = %d, want 1", len(pager.cursors))
	}
}

func TestRecalcWorkerZeroPageSizeUsesDefault(t *testing.T) {
	pager := &fakePager{aggs: pagerAggs("p1", "p2", "p3")}
	rescorer := &fakeRescorer{}
	w := newTestRecalcWorker(pager, rescorer, 2)

	report, err := w.RunOnce(context.Background(), true, 0)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if report.AggregatesScanned != 3 {
		t.Errorf("AggregatesScanned = %d, want 3", report.AggregatesScanned)
	}
	// Default page size 2 means two full-or-short pages plus none beyond.
	if len(pager.cursors) != 2 {
		t.Errorf("ListPage calls = %d, want 2", len(pager.cursors))
	}
}
