package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"coop-payments/internal/core/domain"
	"coop-payments/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func TestAuditService_Log_PersistsToRepo(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockAuditRepository(ctrl)
	svc := NewAuditService(mockRepo, newTestLogger())

	done := make(chan *domain.AuditLog, 1)
	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, entry *domain.AuditLog) error {
			done <- entry
			return nil
		},
	)

	coop := "coop-1"
	svc.Log(context.Background(), &domain.AuditLog{
		ActorID:       "admin-1",
		CooperativeID: &coop,
		Action:        domain.AuditActionBindingConfigure,
		ResourceType:  "binding",
		IPAddress:     "127.0.0.1",
	})

	select {
	case entry := <-done:
		assert.Equal(t, domain.AuditActionBindingConfigure, entry.Action)
		assert.NotEqual(t, uuid.Nil, entry.ID, "id is assigned")
		assert.False(t, entry.CreatedAt.IsZero(), "timestamp is assigned")
	case <-time.After(2 * time.Second):
		t.Fatal("audit log not persisted in time")
	}
}

func TestAuditService_Log_SurvivesCancelledContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockAuditRepository(ctrl)
	svc := NewAuditService(mockRepo, newTestLogger())

	done := make(chan error, 1)
	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, entry *domain.AuditLog) error {
			done <- ctx.Err()
			return errors.New("db down")
		},
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.Log(ctx, &domain.AuditLog{Action: domain.AuditActionProviderDelete, ResourceType: "provider"})

	select {
	case err := <-done:
		assert.NoError(t, err, "persistence context is detached from the request")
	case <-time.After(2 * time.Second):
		t.Fatal("audit log not persisted in time")
	}
}

func TestAuditService_Log_NilRepo(t *testing.T) {
	svc := NewAuditService(nil, newTestLogger())

	svc.Log(context.Background(), &domain.AuditLog{
		Action:       domain.AuditActionProviderCreate,
		ResourceType: "provider",
		IPAddress:    "127.0.0.1",
	})

	time.Sleep(50 * time.Millisecond) // let goroutine run
}
