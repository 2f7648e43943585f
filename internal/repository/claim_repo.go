package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/model"
)

type ClaimRepo struct {
	pool *pgxpool.Pool
}

func NewClaimRepo(pool *pgxpool.Pool) *ClaimRepo {
	return &ClaimRepo{pool: pool}
}

const claimColumns = `
	id, provider_id, plan_id, location_id, claim, source,
	actor_fingerprint, actor_contact_hash, bot_score,
	upvote_count, downvote_count, created_at, expires_at`

// Upsert inserts an admitted claim. One claim per (tuple, actor) is kept:
// re-verification by the same actor outside the duplicate window updates the
// existing row in place, refreshing created_at and expires_at (the TTL
// refresh). Vote tallies survive a refresh. Returns the stored claim ID and
// whether an existing row was refreshed.
func (r *ClaimRepo) Upsert(ctx context.Context, db Querier, c *model.VerificationClaim) (string, bool, error) {
	var (
		id        string
		refreshed bool
	)
	err := db.QueryRow(ctx, `
		INSERT INTO verification_claims
			(id, provider_id, plan_id, location_id, claim, source,
			 actor_fingerprint, actor_contact_hash, bot_score, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (provider_id, plan_id, location_id, actor_fingerprint) DO UPDATE
		SET claim      = EXCLUDED.claim,
		    source     = EXCLUDED.source,
		    bot_score  = EXCLUDED.bot_score,
		    created_at = EXCLUDED.created_at,
		    expires_at = EXCLUDED.expires_at
		RETURNING id, (xmax <> 0)`,
		c.ID, c.ProviderID, c.PlanID, c.LocationID, c.Claim, c.Source,
		c.ActorFingerprint, c.ActorContactHash, c.BotScore, c.CreatedAt, c.ExpiresAt,
	).Scan(&id, &refreshed)
	if err != nil {
		return "", false, fmt.Errorf("upsert claim: %w", err)
	}
	return id, refreshed, nil
}

// HasRecentClaim reports whether the actor fingerprint, or the self-reported
// contact, already submitted a claim for the tuple since the given time.
// Either match is sufficient. Implements gate.DuplicateChecker.
func (r *ClaimRepo) HasRecentClaim(ctx context.Context, tuple model.TupleKey, fingerprint, contactHash string, since time.Time) (bool, error) {
	var found bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM verification_claims
			WHERE provider_id = $1 AND plan_id = $2 AND location_id = $3
			  AND created_at >= $4
			  AND (actor_fingerprint = $5
			       OR ($6 <> '' AND actor_contact_hash = $6))
		)`,
		tuple.ProviderID, tuple.PlanID, tuple.LocationID, since, fingerprint, contactHash,
	).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("duplicate window lookup: %w", err)
	}
	return found, nil
}

// GetByID returns a single claim.
func (r *ClaimRepo) GetByID(ctx context.Context, db Querier, claimID string) (*model.VerificationClaim, error) {
	row := db.QueryRow(ctx, `SELECT `+claimColumns+` FROM verification_claims WHERE id = $1`, claimID)
	c, err := scanClaim(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get claim: %w", err)
	}
	return c, nil
}

// ListForTuple returns all claims supporting one aggregate.
func (r *ClaimRepo) ListForTuple(ctx context.Context, db Querier, tuple model.TupleKey) ([]model.VerificationClaim, error) {
	rows, err := db.Query(ctx, `
		SELECT `+claimColumns+`
		FROM verification_claims
		WHERE provider_id = $1 AND plan_id = $2 AND location_id = $3
		ORDER BY created_at DESC`,
		tuple.ProviderID, tuple.PlanID, tuple.LocationID)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	defer rows.Close()

	var claims []model.VerificationClaim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("list claims: %w", err)
		}
		claims = append(claims, *c)
	}
	return claims, rows.Err()
}

// ExpiredBatch returns up to limit claim IDs past their expiry. Rows with a
// NULL expires_at are legacy pre-TTL data and are never selected.
func (r *ClaimRepo) ExpiredBatch(ctx context.Context, db Querier, now time.Time, limit int) ([]string, error) {
	rows, err := db.Query(ctx, `
		SELECT id FROM verification_claims
		WHERE expires_at IS NOT NULL AND expires_at < $1
		ORDER BY expires_at
		LIMIT $2
		FOR UPDATE SKIP LOCKED`,
		now, limit)
	if err != nil {
		return nil, fmt.Errorf("expired batch: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("expired batch: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SweepExpiredBatch deletes one bounded batch of expired claims together
// with their votes, in a single transaction. Votes go first so a reader
// never observes an orphaned vote. Returns how many rows of each were
// removed; a short batch (claimsDeleted < limit) means the backlog is done.
func (r *ClaimRepo) SweepExpiredBatch(ctx context.Context, now time.Time, limit int) (claimsDeleted, votesDeleted int, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	ids, err := r.ExpiredBatch(ctx, tx, now, limit)
	if err != nil {
		return 0, 0, err
	}
	if len(ids) == 0 {
		return 0, 0, tx.Commit(ctx)
	}

	claimsDeleted, votesDeleted, err = r.DeleteByIDs(ctx, tx, ids)
	if err != nil {
		return 0, 0, err
	}
	return claimsDeleted, votesDeleted, tx.Commit(ctx)
}

// CountExpired reports how many claims the sweeper would remove. Dry-run
// support for the admin trigger.
func (r *ClaimRepo) CountExpired(ctx context.Context, now time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM verification_claims
		WHERE expires_at IS NOT NULL AND expires_at < $1`, now).Scan(&n)
	return n, err
}

// DeleteByIDs removes the given claims and cascades their votes first, so a
// reader never observes a vote without its parent claim. Runs on the
// caller's transaction.
func (r *ClaimRepo) DeleteByIDs(ctx context.Context, db Querier, ids []string) (claimsDeleted, votesDeleted int, err error) {
	if len(ids) == 0 {
		return 0, 0, nil
	}

	votes, err := db.Exec(ctx, `DELETE FROM claim_votes WHERE claim_id = ANY($1)`, ids)
	if err != nil {
		return 0, 0, fmt.Errorf("cascade votes: %w", err)
	}

	claims, err := db.Exec(ctx, `DELETE FROM verification_claims WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, 0, fmt.Errorf("delete claims: %w", err)
	}

	return int(claims.RowsAffected()), int(votes.RowsAffected()), nil
}

func scanClaim(row pgx.Row) (*model.VerificationClaim, error) {
	var c model.VerificationClaim
	err := row.Scan(
		&c.ID, &c.ProviderID, &c.PlanID, &c.LocationID, &c.Claim, &c.Source,
		&c.ActorFingerprint, &c.ActorContactHash, &c.BotScore,
		&c.UpvoteCount, &c.DownvoteCount, &c.CreatedAt, &c.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
