package service

import (
	"context"
	"io"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

func newTestLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func ptr[T any](v T) *T {
	return &v
}

// mockTx implements pgx.Tx for testing; repositories are mocked, so only
// commit and rollback are exercised.
type mockTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (m *mockTx) Commit(_ context.Context) error {
	m.committed = true
	return nil
}

func (m *mockTx) Rollback(_ context.Context) error {
	if !m.committed {
		m.rolledBack = true
	}
	return nil
}
