package service

import (
	"context"
	"time"

	"coop-payments/internal/core/domain"
	"coop-payments/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type auditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService creates a new audit service.
// If repo is nil, audit entries are only written to the logger.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, log: log}
}

// Log records an audit entry asynchronously (fire-and-forget). The entry
// outlives the request, so persistence runs on a context detached from
// cancellation.
func (s *auditService) Log(ctx context.Context, entry *domain.AuditLog) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	detached := context.WithoutCancel(ctx)

	go func() {
		event := s.log.Info().
			Str("action", string(entry.Action)).
			Str("actor_id", entry.ActorID).
			Str("resource_type", entry.ResourceType).
			Str("resource_id", entry.ResourceID).
			Str("ip", entry.IPAddress)
		if entry.CooperativeID != nil {
			event = event.Str("cooperative_id", *entry.CooperativeID)
		}
		event.Msg("audit")

		if s.repo != nil {
			if err := s.repo.Create(detached, entry); err != nil {
				s.log.Warn().Err(err).Str("action", string(entry.Action)).Msg("failed to persist audit log")
			}
		}
	}()
}
