package retry

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mmslot/seamless-wallet/internal/repository"
)

// TxRunner executes a unit of work inside a fresh database transaction,
// retrying the whole transaction on serialization conflicts. Each attempt
// sees either a full commit or a full rollback, never partial state.
type TxRunner interface {
	InTx(ctx context.Context, policy Policy, fn func(ctx context.Context, db repository.DBTX) error) error
}

// PgxRunner is the pgxpool-backed TxRunner.
type PgxRunner struct {
	pool *pgxpool.Pool
}

// NewPgxRunner creates a TxRunner over the given pool.
func NewPgxRunner(pool *pgxpool.Pool) *PgxRunner {
	return &PgxRunner{pool: pool}
}

func (r *PgxRunner) InTx(ctx context.Context, policy Policy, fn func(ctx context.Context, db repository.DBTX) error) error {
	return Do(ctx, policy, func(ctx context.Context) error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer func() { _ = tx.Rollback(ctx) }()

		if err := fn(ctx, tx); err != nil {
			return err
		}
		return tx.Commit(ctx)
	})
}
