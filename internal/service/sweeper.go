package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/metrics"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/model"
)

// ClaimSweepStore is the slice of the claim repository the sweeper needs,
// satisfied by *repository.ClaimRepo.
type ClaimSweepStore interface {
	CountExpired(ctx context.Context, now time.Time) (int, error)
	SweepExpiredBatch(ctx context.Context, now time.Time, limit int) (claimsDeleted, votesDeleted int, err error)
}

// AggregateSweepStore is the slice of the aggregate repository the sweeper
// needs, satisfied by *repository.AggregateRepo.
type AggregateSweepStore interface {
	CountOrphanedExpired(ctx context.Context, now time.Time) (int, error)
	DeleteOrphanedExpired(ctx context.Context, now time.Time) (int, error)
}

// Sweeper removes claims past their expiry, cascading their votes, then
// ages out aggregates whose supporting evidence is fully gone. Claims with
// no expiry are legacy pre-TTL rows and are left alone permanently.
// Deletion runs in LIMIT-bounded batches, one transaction each, so a large
// backlog never holds a long-running delete against the live table.
type Sweeper struct {
	claims    ClaimSweepStore
	aggs      AggregateSweepStore
	interval  time.Duration
	batchSize int
	log       zerolog.Logger
	stopCh    chan struct{}
	now       func() time.Time
}

func NewSweeper(claims ClaimSweepStore, aggs AggregateSweepStore, interval time.Duration, batchSize int, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		claims:    claims,
		aggs:      aggs,
		interval:  interval,
		batchSize: batchSize,
		log:       log.With().Str("component", "sweeper").Logger(),
		stopCh:    make(chan struct{}),
		now:       time.Now,
	}
}

// Start begins the periodic sweep loop. One sweep runs immediately, then
// every interval.
func (s *Sweeper) Start(ctx context.Context) {
	s.log.Info().Dur("interval", s.interval).Msg("starting")

	s.runTick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runTick(ctx)
		case <-ctx.Done():
			s.log.Info().Msg("stopping (context cancelled)")
			return
		case <-s.stopCh:
			s.log.Info().Msg("stopping (stop signal)")
			return
		}
	}
}

// Stop signals the sweeper to stop.
func (s *Sweeper) Stop() {
	close(s.stopCh)
}

func (s *Sweeper) runTick(ctx context.Context) {
	report, err := s.RunOnce(ctx, false, s.batchSize)
	if err != nil {
		s.log.Error().Err(err).Msg("sweep failed")
		return
	}
	if report.ClaimsDeleted > 0 || report.AggregatesDeleted > 0 {
		s.log.Info().
			Int("claims", report.ClaimsDeleted).
			Int("votes", report.VotesDeleted).
			Int("aggregates", report.AggregatesDeleted).
			Msg("sweep complete")
	}
}

// RunOnce performs one full sweep. With dryRun it reports what would be
// removed without mutating. Also invoked by the admin trigger.
func (s *Sweeper) RunOnce(ctx context.Context, dryRun bool, batchSize int) (model.JobReport, error) {
	if batchSize <= 0 {
		batchSize = s.batchSize
	}
	now := s.now()
	report := model.JobReport{DryRun: dryRun}

	if dryRun {
		claims, err := s.claims.CountExpired(ctx, now)
		if err != nil {
			return report, err
		}
		aggs, err := s.aggs.CountOrphanedExpired(ctx, now)
		if err != nil {
			return report, err
		}
		report.ClaimsDeleted = claims
		report.AggregatesDeleted = aggs
		return report, nil
	}

	for {
		claims, votes, err := s.claims.SweepExpiredBatch(ctx, now, batchSize)
		if err != nil {
			return report, err
		}
		report.ClaimsDeleted += claims
		report.VotesDeleted += votes
		if claims < batchSize {
			break
		}
	}

	aggsDeleted, err := s.aggs.DeleteOrphanedExpired(ctx, now)
	if err != nil {
		return report, err
	}
	report.AggregatesDeleted = aggsDeleted

	metrics.SweeperDeleted.WithLabelValues("claims").Add(float64(report.ClaimsDeleted))
	metrics.SweeperDeleted.WithLabelValues("votes").Add(float64(report.VotesDeleted))
	metrics.SweeperDeleted.WithLabelValues("aggregates").Add(float64(report.AggregatesDeleted))
	return report, nil
}
