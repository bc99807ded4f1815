package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"coop-payments/internal/core/domain"
	"coop-payments/internal/core/ports"
	"coop-payments/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const bindingEntity = "Payment provider configuration"

type bindingService struct {
	bindings   ports.BindingRepository
	providers  ports.ProviderRepository
	transactor ports.DBTransactor
	vault      ports.CredentialVault
	log        zerolog.Logger
}

// NewBindingService creates the cooperative binding service.
func NewBindingService(
	bindings ports.BindingRepository,
	providers ports.ProviderRepository,
	transactor ports.DBTransactor,
	vault ports.CredentialVault,
	log zerolog.Logger,
) ports.BindingService {
	return &bindingService{
		bindings:   bindings,
		providers:  providers,
		transactor: transactor,
		vault:      vault,
		log:        log,
	}
}

// Configure creates the cooperative's one binding. Every present secret is
// sealed by the vault before anything reaches the repository.
func (s *bindingService) Configure(ctx context.Context, cooperativeID string, spec domain.BindingSpec) (*domain.BindingView, error) {
	cooperativeID = strings.TrimSpace(cooperativeID)
	if cooperativeID == "" {
		return nil, apperror.Validation("cooperative id is required")
	}
	if spec.Credentials.AccessToken == "" {
		return nil, apperror.Validation("access_token is required")
	}
	if err := validateOverrides(spec.MinAmount, spec.MaxAmount, spec.FeePercentage, spec.FixedFee); err != nil {
		return nil, err
	}

	provider, err := s.providers.GetByID(ctx, spec.ProviderID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get provider: %w", err))
	}
	if provider == nil {
		return nil, apperror.ErrNotFound("Provider")
	}

	existing, err := s.bindings.GetByCooperativeID(ctx, cooperativeID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check existing binding: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrBindingExists()
	}

	secrets, err := s.sealCredentials(spec.Credentials)
	if err != nil {
		return nil, err
	}

	configuration := domain.NewConfiguration()
	if spec.Configuration.Len() > 0 {
		configuration = spec.Configuration.Clone()
	}

	now := time.Now().UTC()
	binding := &domain.Binding{
		ID:                 uuid.New(),
		CooperativeID:      cooperativeID,
		ProviderID:         provider.ID,
		Active:             true,
		Principal:          spec.Principal,
		TestEnvironment:    spec.TestEnvironment,
		Secrets:            secrets,
		WebhookURL:         spec.WebhookURL,
		Configuration:      configuration,
		MinAmount:          spec.MinAmount,
		MaxAmount:          spec.MaxAmount,
		FeePercentage:      spec.FeePercentage,
		FixedFee:           spec.FixedFee,
		ConnectivityStatus: domain.ConnectivityUnverified,
		IntegratedAt:       now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if binding.Principal {
		if _, err := s.bindings.ClearPrincipal(ctx, dbTx, cooperativeID, binding.ID); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("clear principal: %w", err))
		}
	}

	if err := s.bindings.Create(ctx, dbTx, binding); err != nil {
		if errors.Is(err, ports.ErrDuplicateKey) {
			return nil, apperror.ErrBindingExists()
		}
		return nil, apperror.InternalError(fmt.Errorf("create binding: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		if errors.Is(err, ports.ErrDuplicateKey) {
			return nil, apperror.ErrBindingExists()
		}
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("binding_id", binding.ID.String()).
		Str("cooperative_id", cooperativeID).
		Str("provider_code", provider.Code).
		Msg("payment provider configured")

	return domain.NewBindingView(binding, provider), nil
}

// GetForCooperative returns the binding with decrypted secrets, or nil when
// the cooperative has none.
func (s *bindingService) GetForCooperative(ctx context.Context, cooperativeID string) (*domain.DecryptedBinding, error) {
	binding, err := s.bindings.GetByCooperativeID(ctx, cooperativeID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get binding: %w", err))
	}
	if binding == nil {
		return nil, nil
	}

	creds, err := s.openCredentials(binding.Secrets)
	if err != nil {
		return nil, err
	}
	return &domain.DecryptedBinding{Binding: *binding, Credentials: creds}, nil
}

func (s *bindingService) Describe(ctx context.Context, cooperativeID string) (*domain.BindingView, error) {
	binding, err := s.bindings.GetByCooperativeID(ctx, cooperativeID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get binding: %w", err))
	}
	if binding == nil {
		return nil, apperror.ErrNotFound(bindingEntity)
	}

	provider, err := s.providers.GetByID(ctx, binding.ProviderID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get provider: %w", err))
	}
	return domain.NewBindingView(binding, provider), nil
}

// Update patches the binding under a row lock. Principal exclusivity is
// enforced in the same transaction.
func (s *bindingService) Update(ctx context.Context, cooperativeID string, patch domain.BindingPatch) (*domain.BindingView, error) {
	if patch.AccessToken != nil && *patch.AccessToken == "" {
		return nil, apperror.Validation("access_token cannot be empty")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	binding, err := s.bindings.GetByCooperativeIDForUpdate(ctx, dbTx, cooperativeID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock binding: %w", err))
	}
	if binding == nil {
		return nil, apperror.ErrNotFound(bindingEntity)
	}

	providerID := binding.ProviderID
	if patch.ProviderID != nil {
		providerID = *patch.ProviderID
	}
	provider, err := s.providers.GetByID(ctx, providerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get provider: %w", err))
	}
	if provider == nil && providerID != binding.ProviderID {
		return nil, apperror.ErrNotFound("Provider")
	}
	binding.ProviderID = providerID

	applyBindingFlags(binding, patch)
	if err := validateOverrides(binding.MinAmount, binding.MaxAmount, binding.FeePercentage, binding.FixedFee); err != nil {
		return nil, err
	}
	if err := s.resealSecrets(&binding.Secrets, patch); err != nil {
		return nil, err
	}

	if binding.Principal {
		if _, err := s.bindings.ClearPrincipal(ctx, dbTx, cooperativeID, binding.ID); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("clear principal: %w", err))
		}
	}

	binding.UpdatedAt = time.Now().UTC()
	if err := s.bindings.Update(ctx, dbTx, binding); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update binding: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("binding_id", binding.ID.String()).
		Str("cooperative_id", cooperativeID).
		Msg("payment provider updated")

	return domain.NewBindingView(binding, provider), nil
}

// Disable soft-disables the binding. Repeating it is harmless.
func (s *bindingService) Disable(ctx context.Context, cooperativeID string) error {
	found, err := s.bindings.Deactivate(ctx, cooperativeID, time.Now().UTC())
	if err != nil {
		return apperror.InternalError(fmt.Errorf("deactivate binding: %w", err))
	}
	if !found {
		return apperror.ErrNotFound(bindingEntity)
	}

	s.log.Info().Str("cooperative_id", cooperativeID).Msg("payment provider disabled")
	return nil
}

func (s *bindingService) IncrementUsage(ctx context.Context, cooperativeID string, amount int64, at time.Time) error {
	if amount < 0 {
		return apperror.Validation("amount must not be negative")
	}
	if at.IsZero() {
		at = time.Now()
	}

	found, err := s.bindings.IncrementUsage(ctx, cooperativeID, amount, at.UTC())
	if err != nil {
		return apperror.InternalError(fmt.Errorf("increment usage: %w", err))
	}
	if !found {
		return apperror.ErrNotFound(bindingEntity)
	}
	return nil
}

func (s *bindingService) sealCredentials(creds domain.Credentials) (domain.SecretEnvelopes, error) {
	var out domain.SecretEnvelopes

	access, err := s.vault.Encrypt(creds.AccessToken)
	if err != nil {
		return out, err
	}
	out.AccessToken = access

	optional := []struct {
		plain string
		dst   **string
	}{
		{creds.RefreshToken, &out.RefreshToken},
		{creds.PublicKey, &out.PublicKey},
		{creds.PrivateKey, &out.PrivateKey},
		{creds.WebhookSecret, &out.WebhookSecret},
	}
	for _, o := range optional {
		if o.plain == "" {
			continue
		}
		sealed, err := s.vault.Encrypt(o.plain)
		if err != nil {
			return out, err
		}
		*o.dst = &sealed
	}
	return out, nil
}

func (s *bindingService) openCredentials(env domain.SecretEnvelopes) (domain.Credentials, error) {
	var creds domain.Credentials

	access, err := s.vault.Decrypt(env.AccessToken)
	if err != nil {
		return creds, err
	}
	creds.AccessToken = access

	optional := []struct {
		sealed *string
		dst    *string
	}{
		{env.RefreshToken, &creds.RefreshToken},
		{env.PublicKey, &creds.PublicKey},
		{env.PrivateKey, &creds.PrivateKey},
		{env.WebhookSecret, &creds.WebhookSecret},
	}
	for _, o := range optional {
		if o.sealed == nil {
			continue
		}
		plain, err := s.vault.Decrypt(*o.sealed)
		if err != nil {
			return creds, err
		}
		*o.dst = plain
	}
	return creds, nil
}

// resealSecrets replaces the envelopes of secrets present in the patch. An
// explicitly empty optional secret removes it.
func (s *bindingService) resealSecrets(env *domain.SecretEnvelopes, patch domain.BindingPatch) error {
	if patch.AccessToken != nil {
		sealed, err := s.vault.Encrypt(*patch.AccessToken)
		if err != nil {
			return err
		}
		env.AccessToken = sealed
	}

	optional := []struct {
		plain *string
		dst   **string
	}{
		{patch.RefreshToken, &env.RefreshToken},
		{patch.PublicKey, &env.PublicKey},
		{patch.PrivateKey, &env.PrivateKey},
		{patch.WebhookSecret, &env.WebhookSecret},
	}
	for _, o := range optional {
		switch {
		case o.plain == nil:
		case *o.plain == "":
			*o.dst = nil
		default:
			sealed, err := s.vault.Encrypt(*o.plain)
			if err != nil {
				return err
			}
			*o.dst = &sealed
		}
	}
	return nil
}

func applyBindingFlags(b *domain.Binding, patch domain.BindingPatch) {
	if patch.Active != nil {
		b.Active = *patch.Active
	}
	if patch.Principal != nil {
		b.Principal = *patch.Principal
	}
	if patch.TestEnvironment != nil {
		b.TestEnvironment = *patch.TestEnvironment
	}
	if patch.WebhookURL != nil {
		if *patch.WebhookURL == "" {
			b.WebhookURL = nil
		} else {
			b.WebhookURL = patch.WebhookURL
		}
	}
	if patch.Configuration != nil {
		b.Configuration = patch.Configuration.Clone()
	}
	if patch.MinAmount != nil {
		b.MinAmount = patch.MinAmount
	}
	if patch.MaxAmount != nil {
		b.MaxAmount = patch.MaxAmount
	}
	if patch.FeePercentage != nil {
		b.FeePercentage = patch.FeePercentage
	}
	if patch.FixedFee != nil {
		b.FixedFee = patch.FixedFee
	}
}

func validateOverrides(minAmount, maxAmount *int64, fee *float64, fixed *int64) error {
	switch {
	case minAmount != nil && *minAmount < 0, maxAmount != nil && *maxAmount < 0:
		return apperror.Validation("amount limits must not be negative")
	case !domain.ValidAmountRange(minAmount, maxAmount):
		return apperror.Validation("min_amount must not exceed max_amount")
	case fee != nil && (*fee < 0 || *fee > 100):
		return apperror.Validation("fee_percentage must be between 0 and 100")
	case fixed != nil && *fixed < 0:
		return apperror.Validation("fixed_fee must not be negative")
	}
	return nil
}
