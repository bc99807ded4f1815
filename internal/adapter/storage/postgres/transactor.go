package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Transactor implements ports.DBTransactor using pgxpool.Pool.
type Transactor struct {
	pool Pool
}

// NewTransactor creates a new Transactor wrapping the connection pool.
func NewTransactor(pool Pool) *Transactor {
	return &Transactor{pool: pool}
}

// Begin starts a new database transaction. Constraint violations raised at
// commit are translated like any other statement error.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &translatingTx{Tx: tx}, nil
}

type translatingTx struct {
	pgx.Tx
}

func (t *translatingTx) Commit(ctx context.Context) error {
	return translate(t.Tx.Commit(ctx))
}
