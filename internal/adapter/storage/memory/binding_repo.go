package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"coop-payments/internal/core/domain"
	"coop-payments/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BindingRepo implements ports.BindingRepository over a Store.
type BindingRepo struct {
	s *Store
}

// NewBindingRepo creates a memory-backed binding repository.
func NewBindingRepo(s *Store) *BindingRepo {
	return &BindingRepo{s: s}
}

// Create enforces one binding per cooperative and an existing provider.
func (r *BindingRepo) Create(ctx context.Context, tx pgx.Tx, b *domain.Binding) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.byCooperative(b.CooperativeID) != nil {
		return fmt.Errorf("insert binding: %w", ports.ErrDuplicateKey)
	}
	if _, ok := r.s.providers[b.ProviderID]; !ok {
		return fmt.Errorf("insert binding: %w", ports.ErrForeignKeyViolation)
	}
	r.s.bindings[b.ID] = cloneBinding(b)
	onRollback(tx, func() { delete(r.s.bindings, b.ID) })
	return nil
}

func (r *BindingRepo) GetByCooperativeID(ctx context.Context, cooperativeID string) (*domain.Binding, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if b := r.byCooperative(cooperativeID); b != nil {
		return cloneBinding(b), nil
	}
	return nil, nil
}

// GetByCooperativeIDForUpdate relies on the transaction lock for exclusivity.
func (r *BindingRepo) GetByCooperativeIDForUpdate(ctx context.Context, tx pgx.Tx, cooperativeID string) (*domain.Binding, error) {
	return r.GetByCooperativeID(ctx, cooperativeID)
}

func (r *BindingRepo) Update(ctx context.Context, tx pgx.Tx, b *domain.Binding) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	prev, ok := r.s.bindings[b.ID]
	if !ok {
		return nil
	}
	if _, ok := r.s.providers[b.ProviderID]; !ok {
		return fmt.Errorf("update binding: %w", ports.ErrForeignKeyViolation)
	}

	next := cloneBinding(b)
	// Connectivity state and usage counters are owned by dedicated statements.
	next.ConnectivityStatus = prev.ConnectivityStatus
	next.LastConnectionAt = prev.LastConnectionAt
	next.LastConnectionError = prev.LastConnectionError
	next.TransactionCount = prev.TransactionCount
	next.TotalAmountProcessed = prev.TotalAmountProcessed
	next.LastTransactionAt = prev.LastTransactionAt
	next.CooperativeID = prev.CooperativeID
	next.IntegratedAt = prev.IntegratedAt
	next.CreatedAt = prev.CreatedAt

	r.s.bindings[b.ID] = next
	onRollback(tx, func() { r.s.bindings[b.ID] = prev })
	return nil
}

func (r *BindingRepo) ClearPrincipal(ctx context.Context, tx pgx.Tx, cooperativeID string, exceptID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	now := time.Now().UTC()
	for id, b := range r.s.bindings {
		if b.CooperativeID != cooperativeID || id == exceptID || !b.Principal {
			continue
		}
		prev := b
		next := cloneBinding(b)
		next.Principal = false
		next.UpdatedAt = now
		r.s.bindings[id] = next
		onRollback(tx, func() { r.s.bindings[prev.ID] = prev })
		n++
	}
	return n, nil
}

func (r *BindingRepo) Deactivate(ctx context.Context, cooperativeID string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b := r.byCooperative(cooperativeID)
	if b == nil {
		return false, nil
	}
	b.Active = false
	b.UpdatedAt = at
	return true, nil
}

func (r *BindingRepo) UpdateConnectivity(ctx context.Context, id uuid.UUID, status domain.ConnectivityStatus, checkedAt time.Time, lastError *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bindings[id]
	if !ok {
		return nil
	}
	b.ConnectivityStatus = status
	b.LastConnectionAt = &checkedAt
	b.LastConnectionError = clonePtr(lastError)
	b.UpdatedAt = checkedAt
	return nil
}

func (r *BindingRepo) IncrementUsage(ctx context.Context, cooperativeID string, amount int64, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b := r.byCooperative(cooperativeID)
	if b == nil {
		return false, nil
	}
	b.TransactionCount++
	b.TotalAmountProcessed += amount
	b.LastTransactionAt = &at
	b.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *BindingRepo) CountByProvider(ctx context.Context, tx pgx.Tx, providerID uuid.UUID) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int64
	for _, b := range r.s.bindings {
		if b.ProviderID == providerID {
			n++
		}
	}
	return n, nil
}

// ListActive returns active bindings, oldest first.
func (r *BindingRepo) ListActive(ctx context.Context) ([]domain.Binding, error) {
	r.s.mu.RLock()
	out := make([]domain.Binding, 0, len(r.s.bindings))
	for _, b := range r.s.bindings {
		if b.Active {
			out = append(out, *cloneBinding(b))
		}
	}
	r.s.mu.RUnlock()

	slices.SortFunc(out, func(a, b domain.Binding) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

// byCooperative must be called with mu held.
func (r *BindingRepo) byCooperative(cooperativeID string) *domain.Binding {
	for _, b := range r.s.bindings {
		if b.CooperativeID == cooperativeID {
			return b
		}
	}
	return nil
}
