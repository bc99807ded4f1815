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

// CatalogOptions configures catalog defaults.
type CatalogOptions struct {
	BaseCurrency    string
	DefaultPageSize int
	MaxPageSize     int
}

type catalogService struct {
	repo       ports.ProviderRepository
	bindings   ports.BindingRepository
	transactor ports.DBTransactor
	cache      ports.ProviderCache // optional
	opts       CatalogOptions
	log        zerolog.Logger
}

// NewProviderCatalogService creates the provider catalog service. cache may be nil.
func NewProviderCatalogService(
	repo ports.ProviderRepository,
	bindings ports.BindingRepository,
	transactor ports.DBTransactor,
	cache ports.ProviderCache,
	opts CatalogOptions,
	log zerolog.Logger,
) ports.ProviderCatalogService {
	if opts.BaseCurrency == "" {
		opts.BaseCurrency = "ARS"
	}
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 20
	}
	if opts.MaxPageSize < opts.DefaultPageSize {
		opts.MaxPageSize = opts.DefaultPageSize
	}
	return &catalogService{
		repo:       repo,
		bindings:   bindings,
		transactor: transactor,
		cache:      cache,
		opts:       opts,
		log:        log,
	}
}

func (s *catalogService) Create(ctx context.Context, provider *domain.Provider) (*domain.Provider, error) {
	provider.Code = strings.TrimSpace(provider.Code)
	provider.ApplyDefaults(s.opts.BaseCurrency)
	if err := validateProvider(provider); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByCode(ctx, provider.Code)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check provider code: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrDuplicateCode(provider.Code)
	}

	now := time.Now().UTC()
	provider.ID = uuid.New()
	provider.CreatedAt = now
	provider.UpdatedAt = now

	if err := s.repo.Create(ctx, provider); err != nil {
		if errors.Is(err, ports.ErrDuplicateKey) {
			return nil, apperror.ErrDuplicateCode(provider.Code)
		}
		return nil, apperror.InternalError(fmt.Errorf("create provider: %w", err))
	}

	s.log.Info().
		Str("provider_id", provider.ID.String()).
		Str("code", provider.Code).
		Msg("provider created")

	return provider, nil
}

func (s *catalogService) List(ctx context.Context, params domain.ProviderListParams) (*domain.ProviderPage, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize <= 0 {
		params.PageSize = s.opts.DefaultPageSize
	}
	if params.PageSize > s.opts.MaxPageSize {
		params.PageSize = s.opts.MaxPageSize
	}
	if params.SortField == "" {
		params.SortField = "created_at"
	}
	if !domain.ProviderSortFields[params.SortField] {
		return nil, apperror.Validation(fmt.Sprintf("cannot sort by %q", params.SortField))
	}
	switch params.SortDir {
	case "":
		params.SortDir = domain.SortDesc
	case domain.SortAsc, domain.SortDesc:
	default:
		return nil, apperror.Validation("sort direction must be asc or desc")
	}
	params.Filter.Search = strings.TrimSpace(params.Filter.Search)

	items, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list providers: %w", err))
	}
	if items == nil {
		items = []domain.Provider{}
	}

	return &domain.ProviderPage{
		Items:      items,
		Page:       params.Page,
		PageSize:   params.PageSize,
		Total:      total,
		TotalPages: domain.TotalPages(total, params.PageSize),
	}, nil
}

func (s *catalogService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Provider, error) {
	if s.cache != nil {
		cached, err := s.cache.GetByID(ctx, id)
		if err != nil {
			s.log.Warn().Err(err).Str("provider_id", id.String()).Msg("provider cache read failed, falling through to DB")
		}
		if cached != nil {
			return cached, nil
		}
	}

	provider, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get provider: %w", err))
	}
	if provider == nil {
		return nil, apperror.ErrNotFound("Provider")
	}

	s.remember(ctx, provider)
	return provider, nil
}

func (s *catalogService) GetByCode(ctx context.Context, code string) (*domain.Provider, error) {
	if s.cache != nil {
		cached, err := s.cache.GetByCode(ctx, code)
		if err != nil {
			s.log.Warn().Err(err).Str("code", code).Msg("provider cache read failed, falling through to DB")
		}
		if cached != nil {
			return cached, nil
		}
	}

	provider, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get provider by code: %w", err))
	}
	if provider == nil {
		return nil, apperror.ErrNotFound("Provider")
	}

	s.remember(ctx, provider)
	return provider, nil
}

func (s *catalogService) Update(ctx context.Context, id uuid.UUID, patch domain.ProviderPatch) (*domain.Provider, error) {
	provider, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get provider: %w", err))
	}
	if provider == nil {
		return nil, apperror.ErrNotFound("Provider")
	}
	previous := *provider

	if patch.Code != nil {
		trimmed := strings.TrimSpace(*patch.Code)
		patch.Code = &trimmed
	}
	patch.Apply(provider)
	if err := validateProvider(provider); err != nil {
		return nil, err
	}

	if provider.Code != previous.Code {
		other, err := s.repo.GetByCode(ctx, provider.Code)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("check provider code: %w", err))
		}
		if other != nil && other.ID != provider.ID {
			return nil, apperror.ErrDuplicateCode(provider.Code)
		}
	}

	provider.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, provider); err != nil {
		if errors.Is(err, ports.ErrDuplicateKey) {
			return nil, apperror.ErrDuplicateCode(provider.Code)
		}
		return nil, apperror.InternalError(fmt.Errorf("update provider: %w", err))
	}

	s.forget(ctx, &previous)
	s.forget(ctx, provider)

	s.log.Info().Str("provider_id", id.String()).Msg("provider updated")
	return provider, nil
}

func (s *catalogService) Delete(ctx context.Context, id uuid.UUID) error {
	provider, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get provider: %w", err))
	}
	if provider == nil {
		return apperror.ErrNotFound("Provider")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	refs, err := s.bindings.CountByProvider(ctx, dbTx, id)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("count bindings: %w", err))
	}
	if refs > 0 {
		return apperror.ErrProviderInUse()
	}

	deleted, err := s.repo.Delete(ctx, dbTx, id)
	if err != nil {
		if errors.Is(err, ports.ErrForeignKeyViolation) {
			return apperror.ErrProviderInUse()
		}
		return apperror.InternalError(fmt.Errorf("delete provider: %w", err))
	}
	if !deleted {
		return apperror.ErrNotFound("Provider")
	}

	if err := dbTx.Commit(ctx); err != nil {
		if errors.Is(err, ports.ErrForeignKeyViolation) {
			return apperror.ErrProviderInUse()
		}
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.forget(ctx, provider)
	s.log.Info().Str("provider_id", id.String()).Str("code", provider.Code).Msg("provider deleted")
	return nil
}

func (s *catalogService) remember(ctx context.Context, provider *domain.Provider) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, provider); err != nil {
		s.log.Warn().Err(err).Str("provider_id", provider.ID.String()).Msg("provider cache write failed")
	}
}

func (s *catalogService) forget(ctx context.Context, provider *domain.Provider) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, provider); err != nil {
		s.log.Warn().Err(err).Str("provider_id", provider.ID.String()).Msg("provider cache invalidation failed")
	}
}

func validateProvider(p *domain.Provider) error {
	switch {
	case p.Code == "":
		return apperror.Validation("provider code is required")
	case strings.TrimSpace(p.Name) == "":
		return apperror.Validation("provider name is required")
	case !p.Type.Valid():
		return apperror.Validation(fmt.Sprintf("invalid provider type %q", p.Type))
	case !p.Status.Valid():
		return apperror.Validation(fmt.Sprintf("invalid provider status %q", p.Status))
	case !domain.ValidAmountRange(p.MinAmount, p.MaxAmount):
		return apperror.Validation("min_amount must not exceed max_amount")
	case p.FeePercentage != nil && (*p.FeePercentage < 0 || *p.FeePercentage > 100):
		return apperror.Validation("fee_percentage must be between 0 and 100")
	case p.FixedFee != nil && *p.FixedFee < 0:
		return apperror.Validation("fixed_fee must not be negative")
	case p.ExpirationMinutes <= 0 || p.ConfirmationHours <= 0:
		return apperror.Validation("expiration and confirmation windows must be positive")
	}
	return nil
}
