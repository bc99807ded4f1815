package memory

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Tx is a pgx.Tx over the memory store. Statements apply immediately;
// Rollback replays the recorded undo steps in reverse order.
type Tx struct {
	store *Store
	once  sync.Once
	undo  []func()
}

func (t *Tx) finish(rollback bool) {
	t.once.Do(func() {
		if rollback {
			t.store.mu.Lock()
			for i := len(t.undo) - 1; i >= 0; i-- {
				t.undo[i]()
			}
			t.store.mu.Unlock()
		}
		t.undo = nil
		t.store.txMu.Unlock()
	})
}

func (t *Tx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }

func (t *Tx) Commit(ctx context.Context) error {
	t.finish(false)
	return nil
}

// Rollback is a no-op after Commit.
func (t *Tx) Rollback(ctx context.Context) error {
	t.finish(true)
	return nil
}

func (t *Tx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *Tx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *Tx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *Tx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *Tx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *Tx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *Tx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *Tx) Conn() *pgx.Conn { return nil }
