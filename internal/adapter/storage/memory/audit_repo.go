package memory

import (
	"context"

	"coop-payments/internal/core/domain"
)

// AuditRepo implements ports.AuditRepository over a Store.
type AuditRepo struct {
	s *Store
}

func NewAuditRepo(s *Store) *AuditRepo {
	return &AuditRepo{s: s}
}

func (r *AuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.audit = append(r.s.audit, *entry)
	return nil
}

// Entries returns a snapshot of the recorded audit log.
func (r *AuditRepo) Entries() []domain.AuditLog {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]domain.AuditLog(nil), r.s.audit...)
}
