package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"coop-payments/internal/core/domain"
	"coop-payments/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProviderRepo implements ports.ProviderRepository over a Store.
type ProviderRepo struct {
	s *Store
}

// NewProviderRepo creates a memory-backed provider repository.
func NewProviderRepo(s *Store) *ProviderRepo {
	return &ProviderRepo{s: s}
}

func (r *ProviderRepo) Create(ctx context.Context, p *domain.Provider) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.codeTaken(p.Code, p.ID) {
		return fmt.Errorf("insert provider: %w", ports.ErrDuplicateKey)
	}
	if _, ok := r.s.providers[p.ID]; ok {
		return fmt.Errorf("insert provider: %w", ports.ErrDuplicateKey)
	}
	r.s.providers[p.ID] = cloneProvider(p)
	return nil
}

func (r *ProviderRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Provider, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.providers[id]
	if !ok {
		return nil, nil
	}
	return cloneProvider(p), nil
}

func (r *ProviderRepo) GetByCode(ctx context.Context, code string) (*domain.Provider, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.providers {
		if p.Code == code {
			return cloneProvider(p), nil
		}
	}
	return nil, nil
}

func (r *ProviderRepo) List(ctx context.Context, params domain.ProviderListParams) ([]domain.Provider, int64, error) {
	r.s.mu.RLock()
	matched := make([]domain.Provider, 0, len(r.s.providers))
	for _, p := range r.s.providers {
		if matchesFilter(p, params.Filter) {
			matched = append(matched, *cloneProvider(p))
		}
	}
	r.s.mu.RUnlock()

	sortField := params.SortField
	if !domain.ProviderSortFields[sortField] {
		sortField = "created_at"
	}
	desc := params.SortDir != domain.SortAsc
	slices.SortFunc(matched, func(a, b domain.Provider) int {
		c := compareProviders(&a, &b, sortField)
		if desc {
			c = -c
		}
		if c == 0 {
			c = strings.Compare(a.ID.String(), b.ID.String())
		}
		return c
	})

	total := int64(len(matched))
	start := min(params.Offset(), len(matched))
	end := len(matched)
	if params.PageSize > 0 {
		end = min(start+params.PageSize, len(matched))
	}
	return matched[start:end], total, nil
}

func (r *ProviderRepo) Update(ctx context.Context, p *domain.Provider) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.providers[p.ID]; !ok {
		return nil
	}
	if r.codeTaken(p.Code, p.ID) {
		return fmt.Errorf("update provider: %w", ports.ErrDuplicateKey)
	}
	r.s.providers[p.ID] = cloneProvider(p)
	return nil
}

// Delete refuses to remove a provider that a binding still references.
func (r *ProviderRepo) Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.providers[id]
	if !ok {
		return false, nil
	}
	for _, b := range r.s.bindings {
		if b.ProviderID == id {
			return false, fmt.Errorf("delete provider: %w", ports.ErrForeignKeyViolation)
		}
	}
	delete(r.s.providers, id)
	onRollback(tx, func() { r.s.providers[id] = p })
	return true, nil
}

// codeTaken must be called with mu held.
func (r *ProviderRepo) codeTaken(code string, except uuid.UUID) bool {
	for id, p := range r.s.providers {
		if id != except && p.Code == code {
			return true
		}
	}
	return false
}

func matchesFilter(p *domain.Provider, f domain.ProviderFilter) bool {
	if f.Type != nil && p.Type != *f.Type {
		return false
	}
	if f.Status != nil && p.Status != *f.Status {
		return false
	}
	flags := []struct {
		want *bool
		got  bool
	}{
		{f.Active, p.Active},
		{f.SupportsWebhooks, p.SupportsWebhooks},
		{f.SupportsCards, p.SupportsCards},
		{f.SupportsTransfers, p.SupportsTransfers},
		{f.SupportsCash, p.SupportsCash},
		{f.SupportsRecurring, p.SupportsRecurring},
	}
	for _, fl := range flags {
		if fl.want != nil && *fl.want != fl.got {
			return false
		}
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		desc := ""
		if p.Description != nil {
			desc = *p.Description
		}
		if !strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.Code), q) &&
			!strings.Contains(strings.ToLower(desc), q) {
			return false
		}
	}
	return true
}

func compareProviders(a, b *domain.Provider, field string) int {
	switch field {
	case "name":
		return cmp.Compare(a.Name, b.Name)
	case "code":
		return cmp.Compare(a.Code, b.Code)
	case "type":
		return cmp.Compare(a.Type, b.Type)
	case "status":
		return cmp.Compare(a.Status, b.Status)
	case "updated_at":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}
