package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/config"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/gate"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/identity"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/metrics"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/model"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/repository"
)

// ClaimService runs claim submissions through the abuse gate and, when
// admitted, applies the ledger write and aggregate rescore as one
// transaction.
type ClaimService struct {
	pool     *pgxpool.Pool
	pipeline *gate.Pipeline
	claims   *repository.ClaimRepo
	aggs     *repository.AggregateRepo
	rescorer *Rescorer
	cache    *CacheService
	th       config.Thresholds
	log      zerolog.Logger
	now      func() time.Time
}

func NewClaimService(pool *pgxpool.Pool, pipeline *gate.Pipeline, claims *repository.ClaimRepo, aggs *repository.AggregateRepo, rescorer *Rescorer, cache *CacheService, th config.Thresholds, log zerolog.Logger) *ClaimService {
	return &ClaimService{
		pool:     pool,
		pipeline: pipeline,
		claims:   claims,
		aggs:     aggs,
		rescorer: rescorer,
		cache:    cache,
		th:       th,
		log:      log.With().Str("component", "claim-service").Logger(),
		now:      time.Now,
	}
}

// Submit processes one claim submission end to end. Policy rejections come
// back as *gate.RejectionError; anything else is an internal failure.
func (s *ClaimService) Submit(ctx context.Context, req model.ClaimRequest, actor identity.ActorIdentity) (*model.ClaimResponse, error) {
	tuple := model.TupleKey{ProviderID: req.ProviderID, PlanID: req.PlanID, LocationID: req.LocationID}

	out, err := s.pipeline.CheckClaim(ctx, gate.ClaimInput{
		Identity:   actor,
		Tuple:      tuple,
		DecoyValue: req.Website,
		BotToken:   req.BotToken,
	})
	if err != nil {
		return nil, err
	}
	if out.Rejected() {
		return nil, out.Err()
	}
	if out.Decision == gate.Discard {
		return s.decoyResponse(ctx, tuple), nil
	}

	source := model.Source(req.Source)
	if source == "" {
		source = model.SourceCrowdsource
	}

	now := s.now()
	claim := &model.VerificationClaim{
		ID:               uuid.NewString(),
		ProviderID:       tuple.ProviderID,
		PlanID:           tuple.PlanID,
		LocationID:       tuple.LocationID,
		Claim:            model.ClaimValue(req.Claim),
		Source:           source,
		ActorFingerprint: actor.Fingerprint,
		ActorContactHash: actor.ContactHash,
		BotScore:         out.BotScore,
		CreatedAt:        now,
	}
	if ttl := s.th.TTL(source); ttl > 0 {
		exp := now.Add(ttl)
		claim.ExpiresAt = &exp
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	claimID, refreshed, err := s.claims.Upsert(ctx, tx, claim)
	if err != nil {
		return nil, err
	}

	agg, _, err := s.rescorer.RescoreTuple(ctx, tx, tuple, now)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	metrics.WritesAdmitted.WithLabelValues(gate.ActionSubmitClaim).Inc()
	if err := s.cache.InvalidateAggregate(ctx, tuple); err != nil {
		s.log.Warn().Err(err).Msg("cache invalidate failed")
	}

	s.log.Info().
		Str("claim_id", claimID).
		Str("provider_id", tuple.ProviderID).
		Str("plan_id", tuple.PlanID).
		Bool("refreshed", refreshed).
		Bool("degraded", out.Degraded).
		Str("status", string(agg.Status)).
		Int("score", agg.ConfidenceScore).
		Msg("claim admitted")

	return &model.ClaimResponse{
		Success:         true,
		ClaimID:         claimID,
		Status:          string(agg.Status),
		ConfidenceScore: agg.ConfidenceScore,
		ConfidenceTier:  string(agg.ConfidenceTier),
		Degraded:        out.Degraded,
	}, nil
}

// decoyResponse fabricates an ordinary success so an automated submitter
// cannot tell its write was discarded. The claim ID is a throwaway UUID and
// the status mirrors whatever the tuple currently shows.
func (s *ClaimService) decoyResponse(ctx context.Context, tuple model.TupleKey) *model.ClaimResponse {
	resp := &model.ClaimResponse{
		Success:        true,
		ClaimID:        uuid.NewString(),
		Status:         string(model.StatusPending),
		ConfidenceTier: string(model.TierVeryLow),
	}
	if agg, err := s.aggs.Get(ctx, tuple); err == nil {
		resp.Status = string(agg.Status)
		resp.ConfidenceScore = agg.ConfidenceScore
		resp.ConfidenceTier = string(agg.ConfidenceTier)
	}
	return resp
}
