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

type AggregateRepo struct {
	pool *pgxpool.Pool
}

func NewAggregateRepo(pool *pgxpool.Pool) *AggregateRepo {
	return &AggregateRepo{pool: pool}
}

const aggregateColumns = `
	provider_id, plan_id, location_id, specialty_class, status,
	confidence_score, confidence_tier, verification_count,
	last_verified_at, expires_at`

// Get returns the aggregate for a tuple, or ErrNotFound.
func (r *AggregateRepo) Get(ctx context.Context, tuple model.TupleKey) (*model.AcceptanceAggregate, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+aggregateColumns+`
		FROM acceptance_aggregates
		WHERE provider_id = $1 AND plan_id = $2 AND location_id = $3`,
		tuple.ProviderID, tuple.PlanID, tuple.LocationID)
	return scanAggregate(row)
}

// LockForTuple loads the aggregate row FOR UPDATE inside the caller's
// transaction, serializing concurrent writers on the same tuple. Writers on
// different tuples do not block each other. Returns nil when the tuple has
// no aggregate yet.
func (r *AggregateRepo) LockForTuple(ctx context.Context, db Querier, tuple model.TupleKey) (*model.AcceptanceAggregate, error) {
	row := db.QueryRow(ctx, `
		SELECT `+aggregateColumns+`
		FROM acceptance_aggregates
		WHERE provider_id = $1 AND plan_id = $2 AND location_id = $3
		FOR UPDATE`,
		tuple.ProviderID, tuple.PlanID, tuple.LocationID)
	agg, err := scanAggregate(row)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return agg, err
}

// Upsert writes the aggregate inside the caller's transaction.
func (r *AggregateRepo) Upsert(ctx context.Context, db Querier, a *model.AcceptanceAggregate) error {
	_, err := db.Exec(ctx, `
		INSERT INTO acceptance_aggregates
			(provider_id, plan_id, location_id, specialty_class, status,
			 confidence_score, confidence_tier, verification_count,
			 last_verified_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (provider_id, plan_id, location_id) DO UPDATE
		SET status             = EXCLUDED.status,
		    confidence_score   = EXCLUDED.confidence_score,
		    confidence_tier    = EXCLUDED.confidence_tier,
		    verification_count = EXCLUDED.verification_count,
		    last_verified_at   = EXCLUDED.last_verified_at,
		    expires_at         = EXCLUDED.expires_at`,
		a.ProviderID, a.PlanID, a.LocationID, a.SpecialtyClass, a.Status,
		a.ConfidenceScore, a.ConfidenceTier, a.VerificationCount,
		a.LastVerifiedAt, a.ExpiresAt)
	if err != nil {
		return fmt.Errorf("upsert aggregate: %w", err)
	}
	return nil
}

// ListByProvider returns all aggregates for one provider.
func (r *AggregateRepo) ListByProvider(ctx context.Context, providerID string) ([]model.AcceptanceAggregate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+aggregateColumns+`
		FROM acceptance_aggregates
		WHERE provider_id = $1
		ORDER BY plan_id, location_id`,
		providerID)
	if err != nil {
		return nil, fmt.Errorf("list by provider: %w", err)
	}
	defer rows.Close()
	return collectAggregates(rows)
}

// ListPage returns one keyset-paginated page of aggregates for the decay
// job. Pass a zero TupleKey for the first page; iteration ends when fewer
// than limit rows come back.
func (r *AggregateRepo) ListPage(ctx context.Context, after model.TupleKey, limit int) ([]model.AcceptanceAggregate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+aggregateColumns+`
		FROM acceptance_aggregates
		WHERE (provider_id, plan_id, location_id) > ($1, $2, $3)
		ORDER BY provider_id, plan_id, location_id
		LIMIT $4`,
		after.ProviderID, after.PlanID, after.LocationID, limit)
	if err != nil {
		return nil, fmt.Errorf("list page: %w", err)
	}
	defer rows.Close()
	return collectAggregates(rows)
}

// DeleteOrphanedExpired removes aggregates past their expiry whose
// supporting claims have all been swept away.
func (r *AggregateRepo) DeleteOrphanedExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM acceptance_aggregates a
		WHERE a.expires_at IS NOT NULL AND a.expires_at < $1
		  AND NOT EXISTS (
			SELECT 1 FROM verification_claims c
			WHERE c.provider_id = a.provider_id
			  AND c.plan_id = a.plan_id
			  AND c.location_id = a.location_id
		)`, now)
	if err != nil {
		return 0, fmt.Errorf("delete orphaned aggregates: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// CountOrphanedExpired is the dry-run counterpart of DeleteOrphanedExpired.
func (r *AggregateRepo) CountOrphanedExpired(ctx context.Context, now time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM acceptance_aggregates a
		WHERE a.expires_at IS NOT NULL AND a.expires_at < $1
		  AND NOT EXISTS (
			SELECT 1 FROM verification_claims c
			WHERE c.provider_id = a.provider_id
			  AND c.plan_id = a.plan_id
			  AND c.location_id = a.location_id
		)`, now).Scan(&n)
	return n, err
}

// Stats returns global ledger statistics.
func (r *AggregateRepo) Stats(ctx context.Context) (*model.StatsResponse, error) {
	var stats model.StatsResponse
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM verification_claims) AS total_claims,
			(SELECT COUNT(*) FROM claim_votes) AS total_votes,
			(SELECT COUNT(*) FROM acceptance_aggregates) AS total_aggregates,
			(SELECT COUNT(*) FROM verification_claims WHERE created_at > NOW() - INTERVAL '24 hours') AS claims_24h`,
	).Scan(&stats.TotalClaims, &stats.TotalVotes, &stats.TotalAggregates, &stats.Claims24h)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*) FROM acceptance_aggregates GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	defer rows.Close()

	stats.StatusBreakdown = make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("stats: %w", err)
		}
		stats.StatusBreakdown[status] = count
	}
	return &stats, rows.Err()
}

func scanAggregate(row pgx.Row) (*model.AcceptanceAggregate, error) {
	var a model.AcceptanceAggregate
	err := row.Scan(
		&a.ProviderID, &a.PlanID, &a.LocationID, &a.SpecialtyClass, &a.Status,
		&a.ConfidenceScore, &a.ConfidenceTier, &a.VerificationCount,
		&a.LastVerifiedAt, &a.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan aggregate: %w", err)
	}
	return &a, nil
}

func collectAggregates(rows pgx.Rows) ([]model.AcceptanceAggregate, error) {
	var aggs []model.AcceptanceAggregate
	for rows.Next() {
		a, err := scanAggregate(rows)
		if err != nil {
			return nil, err
		}
		aggs = append(aggs, *a)
	}
	return aggs, rows.Err()
}
