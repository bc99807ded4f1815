package ports

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

import (
	"context"
	"errors"
	"time"

	"coop-payments/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Storage adapters translate constraint violations into these sentinels so
// services can map them to domain errors without knowing the driver.
var (
	ErrDuplicateKey        = errors.New("duplicate key")
	ErrForeignKeyViolation = errors.New("foreign key violation")
)

// ProviderRepository defines persistence operations for the provider catalog.
// Lookups return (nil, nil) when the provider does not exist.
type ProviderRepository interface {
	Create(ctx context.Context, provider *domain.Provider) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Provider, error)
	GetByCode(ctx context.Context, code string) (*domain.Provider, error)
	List(ctx context.Context, params domain.ProviderListParams) ([]domain.Provider, int64, error)
	Update(ctx context.Context, provider *domain.Provider) error
	Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error)
}

// BindingRepository defines persistence operations for cooperative bindings.
// Methods accepting pgx.Tx run inside a transaction started by DBTransactor.
type BindingRepository interface {
	Create(ctx context.Context, tx pgx.Tx, binding *domain.Binding) error
	GetByCooperativeID(ctx context.Context, cooperativeID string) (*domain.Binding, error)
	GetByCooperativeIDForUpdate(ctx context.Context, tx pgx.Tx, cooperativeID string) (*domain.Binding, error)
	Update(ctx context.Context, tx pgx.Tx, binding *domain.Binding) error
	// ClearPrincipal unsets principal on every binding of the cooperative except exceptID.
	ClearPrincipal(ctx context.Context, tx pgx.Tx, cooperativeID string, exceptID uuid.UUID) (int64, error)
	// Deactivate sets active=false; it reports whether a binding exists.
	Deactivate(ctx context.Context, cooperativeID string, at time.Time) (bool, error)
	UpdateConnectivity(ctx context.Context, id uuid.UUID, status domain.ConnectivityStatus, checkedAt time.Time, lastError *string) error
	// IncrementUsage atomically bumps the counters; it reports whether a binding exists.
	IncrementUsage(ctx context.Context, cooperativeID string, amount int64, at time.Time) (bool, error)
	CountByProvider(ctx context.Context, tx pgx.Tx, providerID uuid.UUID) (int64, error)
	ListActive(ctx context.Context) ([]domain.Binding, error)
}

// AuditRepository persists audit records.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
