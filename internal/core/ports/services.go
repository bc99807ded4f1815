package ports

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

import (
	"context"
	"time"

	"coop-payments/internal/core/domain"

	"github.com/google/uuid"
)

// CredentialVault encrypts and decrypts binding secrets into envelopes.
type CredentialVault interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(envelope string) (string, error)
}

// SignatureService handles HMAC-SHA256 signing and verification.
type SignatureService interface {
	Sign(secretKey string, payload string) string
	Verify(secretKey string, payload string, signature string) bool
	BuildCanonicalString(method, path string, timestamp int64, nonce string, body string) string
}

// Role is the caller's authorization role.
type Role string

const (
	RoleAdmin              Role = "ADMIN"
	RoleCooperativeManager Role = "COOPERATIVE_MANAGER"
)

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	Subject       string
	Role          Role
	CooperativeID string // empty for administrators
}

// CanAccessCooperative reports whether the caller may act on the cooperative.
func (c *TokenClaims) CanAccessCooperative(cooperativeID string) bool {
	if c.Role == RoleAdmin {
		return true
	}
	return c.Role == RoleCooperativeManager && c.CooperativeID != "" && c.CooperativeID == cooperativeID
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(claims TokenClaims) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// NonceStore manages nonce uniqueness for replay attack prevention.
type NonceStore interface {
	// CheckAndSet atomically checks if nonce exists, sets it if not.
	// Returns true if nonce is new (valid), false if already used.
	CheckAndSet(ctx context.Context, scope string, nonce string, ttl time.Duration) (bool, error)
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix timestamp
}

// RateLimitStore counts requests in fixed windows.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error)
}

// ProviderCache is a best-effort read-through cache in front of the catalog.
// Get returns (nil, nil) on a miss.
type ProviderCache interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Provider, error)
	GetByCode(ctx context.Context, code string) (*domain.Provider, error)
	Set(ctx context.Context, provider *domain.Provider) error
	Invalidate(ctx context.Context, provider *domain.Provider) error
}

// CheckResult is the outcome of a provider-specific connectivity check.
type CheckResult struct {
	Success bool
	Message string
	Details map[string]interface{}
}

// ConnectivityChecker verifies credentials against a provider. Transport and
// authentication failures are returned as a negative result, never as a panic.
type ConnectivityChecker interface {
	Check(ctx context.Context, provider *domain.Provider, binding *domain.DecryptedBinding) CheckResult
}

// CheckerResolver selects the connectivity checker for a provider.
type CheckerResolver interface {
	Resolve(provider *domain.Provider) ConnectivityChecker
}

// --- Service Ports (Business Logic) ---

// ProviderCatalogService manages the provider registry.
type ProviderCatalogService interface {
	Create(ctx context.Context, provider *domain.Provider) (*domain.Provider, error)
	List(ctx context.Context, params domain.ProviderListParams) (*domain.ProviderPage, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Provider, error)
	GetByCode(ctx context.Context, code string) (*domain.Provider, error)
	Update(ctx context.Context, id uuid.UUID, patch domain.ProviderPatch) (*domain.Provider, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// BindingService owns the one-per-cooperative provider configuration.
type BindingService interface {
	Configure(ctx context.Context, cooperativeID string, spec domain.BindingSpec) (*domain.BindingView, error)
	// GetForCooperative returns decrypted secrets for internal callers; nil when none is configured.
	GetForCooperative(ctx context.Context, cooperativeID string) (*domain.DecryptedBinding, error)
	Describe(ctx context.Context, cooperativeID string) (*domain.BindingView, error)
	Update(ctx context.Context, cooperativeID string, patch domain.BindingPatch) (*domain.BindingView, error)
	Disable(ctx context.Context, cooperativeID string) error
	IncrementUsage(ctx context.Context, cooperativeID string, amount int64, at time.Time) error
}

// ConnectivityProbe verifies a binding and records its connectivity state.
type ConnectivityProbe interface {
	Verify(ctx context.Context, cooperativeID string) (*domain.ProbeResult, error)
}

// StatisticsService summarizes usage counters of a binding.
type StatisticsService interface {
	Summarize(ctx context.Context, cooperativeID string, filter domain.StatisticsFilter) (*domain.Statistics, error)
}

// AuditService records audit entries without blocking the caller.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
