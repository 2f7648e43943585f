package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/model"
)

type VoteRepo struct {
	pool *pgxpool.Pool
}

func NewVoteRepo(pool *pgxpool.Pool) *VoteRepo {
	return &VoteRepo{pool: pool}
}

// FindVote returns the actor's existing vote on a claim, or nil when none
// exists. Implements gate.VoteFinder.
func (r *VoteRepo) FindVote(ctx context.Context, claimID, fingerprint string) (*model.VoteRecord, error) {
	var v model.VoteRecord
	err := r.pool.QueryRow(ctx, `
		SELECT id, claim_id, actor_fingerprint, direction, created_at
		FROM claim_votes
		WHERE claim_id = $1 AND actor_fingerprint = $2`,
		claimID, fingerprint,
	).Scan(&v.ID, &v.ClaimID, &v.ActorFingerprint, &v.Direction, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find vote: %w", err)
	}
	return &v, nil
}

// Apply records a vote inside the caller's transaction. A first vote inserts
// a row and bumps the matching claim counter; an opposite-direction re-vote
// flips the stored direction with a compensating +/-1 so total vote count is
// unchanged; a same-direction re-vote returns ErrDuplicateVote. The row lock
// on the existing vote serializes racing votes from the same actor.
func (r *VoteRepo) Apply(ctx context.Context, db Querier, claimID, fingerprint string, dir model.VoteDirection) (flipped bool, up, down int, err error) {
	var existing model.VoteDirection
	err = db.QueryRow(ctx, `
		SELECT direction FROM claim_votes
		WHERE claim_id = $1 AND actor_fingerprint = $2
		FOR UPDATE`,
		claimID, fingerprint).Scan(&existing)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		_, err = db.Exec(ctx, `
			INSERT INTO claim_votes (claim_id, actor_fingerprint, direction)
			VALUES ($1, $2, $3)`,
			claimID, fingerprint, dir)
		if err != nil {
			return false, 0, 0, fmt.Errorf("insert vote: %w", err)
		}
		up, down, err = r.adjustCounters(ctx, db, claimID, dir, false)
		return false, up, down, err

	case err != nil:
		return false, 0, 0, fmt.Errorf("lock vote: %w", err)

	case existing == dir:
		return false, 0, 0, ErrDuplicateVote

	default:
		_, err = db.Exec(ctx, `
			UPDATE claim_votes SET direction = $3, created_at = NOW()
			WHERE claim_id = $1 AND actor_fingerprint = $2`,
			claimID, fingerprint, dir)
		if err != nil {
			return false, 0, 0, fmt.Errorf("flip vote: %w", err)
		}
		up, down, err = r.adjustCounters(ctx, db, claimID, dir, true)
		return true, up, down, err
	}
}

// adjustCounters applies the counter delta for a new or flipped vote and
// returns the claim's new tallies.
func (r *VoteRepo) adjustCounters(ctx context.Context, db Querier, claimID string, dir model.VoteDirection, flip bool) (up, down int, err error) {
	var upDelta, downDelta int
	if dir == model.VoteUp {
		upDelta = 1
		if flip {
			downDelta = -1
		}
	} else {
		downDelta = 1
		if flip {
			upDelta = -1
		}
	}

	err = db.QueryRow(ctx, `
		UPDATE verification_claims
		SET upvote_count   = GREATEST(upvote_count + $2, 0),
		    downvote_count = GREATEST(downvote_count + $3, 0)
		WHERE id = $1
		RETURNING upvote_count, downvote_count`,
		claimID, upDelta, downDelta).Scan(&up, &down)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, ErrNotFound
	}
	if err != nil {
		return 0, 0, fmt.Errorf("adjust vote counters: %w", err)
	}
	return up, down, nil
}
