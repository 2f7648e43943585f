package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/gate"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/identity"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/metrics"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/model"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/repository"
)

// VoteService applies up/down votes on claims. The vote row, the claim's
// tallies, and the tuple's aggregate commit in one transaction; a reader
// never sees one without the others.
type VoteService struct {
	pool     *pgxpool.Pool
	pipeline *gate.Pipeline
	claims   *repository.ClaimRepo
	votes    *repository.VoteRepo
	aggs     *repository.AggregateRepo
	rescorer *Rescorer
	cache    *CacheService
	log      zerolog.Logger
	now      func() time.Time
}

func NewVoteService(pool *pgxpool.Pool, pipeline *gate.Pipeline, claims *repository.ClaimRepo, votes *repository.VoteRepo, aggs *repository.AggregateRepo, rescorer *Rescorer, cache *CacheService, log zerolog.Logger) *VoteService {
	return &VoteService{
		pool:     pool,
		pipeline: pipeline,
		claims:   claims,
		votes:    votes,
		aggs:     aggs,
		rescorer: rescorer,
		cache:    cache,
		log:      log.With().Str("component", "vote-service").Logger(),
		now:      time.Now,
	}
}

// Submit processes one vote submission end to end.
func (s *VoteService) Submit(ctx context.Context, req model.VoteRequest, actor identity.ActorIdentity) (*model.VoteResponse, error) {
	dir := model.VoteDirection(req.Direction)

	out, err := s.pipeline.CheckVote(ctx, gate.VoteInput{
		Identity:   actor,
		ClaimID:    req.ClaimID,
		Direction:  dir,
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
		return s.decoyResponse(ctx, req.ClaimID, dir), nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	claim, err := s.claims.GetByID(ctx, tx, req.ClaimID)
	if err != nil {
		return nil, err // ErrNotFound surfaces as 404
	}

	flipped, up, down, err := s.votes.Apply(ctx, tx, req.ClaimID, actor.Fingerprint, dir)
	if err != nil {
		return nil, err
	}

	tuple := claim.Tuple()
	agg, _, err := s.rescorer.RescoreTuple(ctx, tx, tuple, s.now())
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	metrics.WritesAdmitted.WithLabelValues(gate.ActionSubmitVote).Inc()
	if err := s.cache.InvalidateAggregate(ctx, tuple); err != nil {
		s.log.Warn().Err(err).Msg("cache invalidate failed")
	}

	s.log.Info().
		Str("claim_id", req.ClaimID).
		Str("direction", string(dir)).
		Bool("flipped", flipped).
		Bool("degraded", out.Degraded).
		Msg("vote admitted")

	return &model.VoteResponse{
		Success:         true,
		Flipped:         flipped,
		UpvoteCount:     up,
		DownvoteCount:   down,
		ConfidenceScore: agg.ConfidenceScore,
		Degraded:        out.Degraded,
	}, nil
}

// decoyResponse fabricates a success that looks like the vote was counted.
func (s *VoteService) decoyResponse(ctx context.Context, claimID string, dir model.VoteDirection) *model.VoteResponse {
	resp := &model.VoteResponse{Success: true}
	claim, err := s.claims.GetByID(ctx, s.pool, claimID)
	if err != nil {
		return resp
	}
	resp.UpvoteCount = claim.UpvoteCount
	resp.DownvoteCount = claim.DownvoteCount
	if dir == model.VoteUp {
		resp.UpvoteCount++
	} else {
		resp.DownvoteCount++
	}
	if agg, err := s.aggs.Get(ctx, claim.Tuple()); err == nil {
		resp.ConfidenceScore = agg.ConfidenceScore
	}
	return resp
}
