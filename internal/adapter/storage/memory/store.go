// Package memory provides in-process implementations of the storage ports,
// used by the memory database driver and by end-to-end router tests.
package memory

import (
	"context"
	"sync"

	"coop-payments/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Store holds every table. Transactions are serialised by txMu for their
// whole lifetime, while mu guards the maps for individual statements.
type Store struct {
	txMu sync.Mutex

	mu        sync.RWMutex
	providers map[uuid.UUID]*domain.Provider
	bindings  map[uuid.UUID]*domain.Binding
	audit     []domain.AuditLog
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		providers: make(map[uuid.UUID]*domain.Provider),
		bindings:  make(map[uuid.UUID]*domain.Binding),
	}
}

// Transactor implements ports.DBTransactor over a Store.
type Transactor struct {
	store *Store
}

// NewTransactor creates a transactor for s.
func NewTransactor(s *Store) *Transactor {
	return &Transactor{store: s}
}

// Begin blocks until no other transaction is open.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.store.txMu.Lock()
	return &Tx{store: t.store}, nil
}

// onRollback registers an undo step on tx when it is a memory transaction.
func onRollback(tx pgx.Tx, undo func()) {
	if mt, ok := tx.(*Tx); ok {
		mt.undo = append(mt.undo, undo)
	}
}
