package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateVote is returned when an actor re-votes the same direction on
// the same claim. The unique (claim_id, actor_fingerprint) key backstops the
// gate's vote-identity stage against races.
var ErrDuplicateVote = errors.New("duplicate vote")

// Querier is the subset of pgx satisfied by both *pgxpool.Pool and pgx.Tx.
// Repository methods that must run inside a caller-owned transaction accept
// it instead of binding to the pool.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
