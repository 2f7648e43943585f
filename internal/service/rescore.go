package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/config"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/consensus"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/model"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/repository"
	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/scoring"
)

// Rescorer recomputes one tuple's aggregate from its live ledger claims.
// The write path and the decay job both go through it, so a tuple's score
// can never disagree depending on who computed it.
type Rescorer struct {
	claims *repository.ClaimRepo
	aggs   *repository.AggregateRepo
	th     config.Thresholds
	log    zerolog.Logger
}

func NewRescorer(claims *repository.ClaimRepo, aggs *repository.AggregateRepo, th config.Thresholds, log zerolog.Logger) *Rescorer {
	return &Rescorer{
		claims: claims,
		aggs:   aggs,
		th:     th,
		log:    log.With().Str("component", "rescorer").Logger(),
	}
}

// RescoreTuple locks the tuple's aggregate row, recomputes it from the
// ledger, and persists it, all on the caller's transaction. The row lock
// makes concurrent writers on the same tuple serialize; the vote tally and
// the aggregate always commit (or roll back) together.
func (s *Rescorer) RescoreTuple(ctx context.Context, db repository.Querier, tuple model.TupleKey, now time.Time) (*model.AcceptanceAggregate, bool, error) {
	current, err := s.aggs.LockForTuple(ctx, db, tuple)
	if err != nil {
		return nil, false, err
	}

	next, changed, err := s.Compute(ctx, db, tuple, current, now)
	if err != nil {
		return nil, false, err
	}

	if changed {
		if err := s.aggs.Upsert(ctx, db, next); err != nil {
			return nil, false, err
		}
	}
	return next, changed, nil
}

// Compute recomputes the aggregate without persisting. current may be nil
// for a brand-new tuple. Used directly by dry runs.
func (s *Rescorer) Compute(ctx context.Context, db repository.Querier, tuple model.TupleKey, current *model.AcceptanceAggregate, now time.Time) (*model.AcceptanceAggregate, bool, error) {
	claims, err := s.claims.ListForTuple(ctx, db, tuple)
	if err != nil {
		return nil, false, err
	}

	if current == nil {
		// First admitted claim for the tuple: starts PENDING no matter
		// which direction the claim points.
		current = &model.AcceptanceAggregate{
			ProviderID:     tuple.ProviderID,
			PlanID:         tuple.PlanID,
			LocationID:     tuple.LocationID,
			Status:         model.StatusPending,
			ConfidenceTier: model.TierVeryLow,
			LastVerifiedAt: now,
		}
	}

	evidence := make([]scoring.Evidence, 0, len(claims))
	for _, c := range claims {
		evidence = append(evidence, scoring.Evidence{
			Claim:     c.Claim,
			Source:    c.Source,
			CreatedAt: c.CreatedAt,
			Upvotes:   c.UpvoteCount,
			Downvotes: c.DownvoteCount,
		})
	}

	res := scoring.Score(evidence, now, current.SpecialtyClass, s.th)
	status := consensus.Evaluate(current.Status, res.Score, res.AcceptedCount, res.RejectedCount, s.th)
	if err := consensus.Validate(current.Status, status, res.Score, res.AcceptedCount, res.RejectedCount, s.th); err != nil {
		// Programming error. The request keeps its current status; the
		// mutation is refused rather than silently normalized.
		s.log.Error().Err(err).
			Str("provider_id", tuple.ProviderID).
			Str("plan_id", tuple.PlanID).
			Msg("refusing invalid status transition")
		status = current.Status
	}

	next := *current
	next.Status = status
	next.ConfidenceScore = res.Score
	next.ConfidenceTier = res.Tier
	next.VerificationCount = len(claims)
	if newest := newestClaimTime(claims); !newest.IsZero() {
		next.LastVerifiedAt = newest
	}
	next.ExpiresAt = latestExpiry(claims)

	return &next, !aggregatesEqual(current, &next), nil
}

func newestClaimTime(claims []model.VerificationClaim) time.Time {
	var newest time.Time
	for _, c := range claims {
		if c.CreatedAt.After(newest) {
			newest = c.CreatedAt
		}
	}
	return newest
}

// latestExpiry keeps the aggregate's expiry in lockstep with its most
// recent supporting claims. Claims without a TTL contribute no expiry.
func latestExpiry(claims []model.VerificationClaim) *time.Time {
	var latest *time.Time
	for _, c := range claims {
		if c.ExpiresAt != nil && (latest == nil || c.ExpiresAt.After(*latest)) {
			t := *c.ExpiresAt
			latest = &t
		}
	}
	return latest
}

func aggregatesEqual(a, b *model.AcceptanceAggregate) bool {
	if a.Status != b.Status ||
		a.ConfidenceScore != b.ConfidenceScore ||
		a.ConfidenceTier != b.ConfidenceTier ||
		a.VerificationCount != b.VerificationCount ||
		!a.LastVerifiedAt.Equal(b.LastVerifiedAt) {
		return false
	}
	switch {
	case a.ExpiresAt == nil && b.ExpiresAt == nil:
		return true
	case a.ExpiresAt == nil || b.ExpiresAt == nil:
		return false
	default:
		return a.ExpiresAt.Equal(*b.ExpiresAt)
	}
}
