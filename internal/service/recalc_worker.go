package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/metrics"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/model"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/repository"
)

// AggregatePager pages through aggregates by tuple key, satisfied by
// *repository.AggregateRepo.
type AggregatePager interface {
	ListPage(ctx context.Context, after model.TupleKey, limit int) ([]model.AcceptanceAggregate, error)
}

// TupleRescorer recomputes one tuple's aggregate, satisfied by *Rescorer.
// Compute is the read-only preview; RescoreTuple persists.
type TupleRescorer interface {
	Compute(ctx context.Context, db repository.Querier, tuple model.TupleKey, current *model.AcceptanceAggregate, now time.Time) (*model.AcceptanceAggregate, bool, error)
	RescoreTuple(ctx context.Context, db repository.Querier, tuple model.TupleKey, now time.Time) (*model.AcceptanceAggregate, bool, error)
}

// RecalcWorker periodically re-scores every aggregate so recency decay
// advances even for tuples receiving no new traffic. Each tuple is
// recomputed in its own transaction with the same scoring path as live
// writes, so the job is idempotent and safe to run alongside them.
type RecalcWorker struct {
	pool     *pgxpool.Pool
	aggs     AggregatePager
	rescorer TupleRescorer
	cache    *CacheService
	interval time.Duration
	pageSize int
	log      zerolog.Logger
	stopCh   chan struct{}
	now      func() time.Time
}

func NewRecalcWorker(pool *pgxpool.Pool, aggs AggregatePager, rescorer TupleRescorer, cache *CacheService, interval time.Duration, pageSize int, log zerolog.Logger) *RecalcWorker {
	return &RecalcWorker{
		pool:     pool,
		aggs:     aggs,
		rescorer: rescorer,
		cache:    cache,
		interval: interval,
		pageSize: pageSize,
		log:      log.With().Str("component", "recalc-worker").Logger(),
		stopCh:   make(chan struct{}),
		now:      time.Now,
	}
}

// Start begins the periodic recalculation loop. It runs one pass
// immediately, then every interval.
func (w *RecalcWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("starting")

	w.runTick(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.runTick(ctx)
		case <-ctx.Done():
			w.log.Info().Msg("stopping (context cancelled)")
			return
		case <-w.stopCh:
			w.log.Info().Msg("stopping (stop signal)")
			return
		}
	}
}

// Stop signals the worker to stop.
func (w *RecalcWorker) Stop() {
	close(w.stopCh)
}

func (w *RecalcWorker) runTick(ctx context.Context) {
	start := time.Now()
	report, err := w.RunOnce(ctx, false, w.pageSize)
	if err != nil {
		w.log.Error().Err(err).Msg("recalculation pass failed")
		return
	}
	elapsed := time.Since(start)
	metrics.RecalcDuration.Observe(elapsed.Seconds())
	w.log.Info().
		Int("scanned", report.AggregatesScanned).
		Int("changed", report.AggregatesChanged).
		Dur("elapsed", elapsed).
		Msg("recalculation pass complete")
}

// RunOnce recalculates every aggregate once, paginating by tuple key to
// bound memory. With dryRun it reports how many aggregates would change
// without writing. Also invoked by the admin trigger.
func (w *RecalcWorker) RunOnce(ctx context.Context, dryRun bool, pageSize int) (model.JobReport, error) {
	if pageSize <= 0 {
		pageSize = w.pageSize
	}
	report := model.JobReport{DryRun: dryRun}

	var cursor model.TupleKey
	for {
		page, err := w.aggs.ListPage(ctx, cursor, pageSize)
		if err != nil {
			return report, err
		}
		if len(page) == 0 {
			return report, nil
		}

		for i := range page {
			agg := &page[i]
			report.AggregatesScanned++

			changed, err := w.recalcOne(ctx, agg, dryRun)
			if err != nil {
				w.log.Error().Err(err).
					Str("provider_id", agg.ProviderID).
					Str("plan_id", agg.PlanID).
					Msg("recalculation error, skipping tuple")
				continue
			}
			if changed {
				report.AggregatesChanged++
			}
		}

		cursor = page[len(page)-1].Tuple()
		if len(page) < pageSize {
			return report, nil
		}
	}
}

// recalcOne recomputes a single tuple. Live writes to the same tuple are
// serialized by the aggregate row lock inside the transaction.
func (w *RecalcWorker) recalcOne(ctx context.Context, agg *model.AcceptanceAggregate, dryRun bool) (bool, error) {
	now := w.now()
	tuple := agg.Tuple()

	if dryRun {
		_, changed, err := w.rescorer.Compute(ctx, w.pool, tuple, agg, now)
		return changed, err
	}

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, changed, err := w.rescorer.RescoreTuple(ctx, tx, tuple, now)
	if err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}

	if changed {
		if err := w.cache.InvalidateAggregate(ctx, tuple); err != nil {
			w.log.Warn().Err(err).Msg("cache invalidate failed")
		}
	}
	return changed, nil
}
