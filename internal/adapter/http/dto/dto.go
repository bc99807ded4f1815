package dto

import (
	"time"

	"coop-payments/internal/core/domain"

	"github.com/google/uuid"
)

// CreateProviderRequest is the request body for adding a catalog entry.
type CreateProviderRequest struct {
	Code              string   `json:"code" binding:"required,provider_code"`
	Name              string   `json:"name" binding:"required,min=1,max=100"`
	Type              string   `json:"type" binding:"required,oneof=GATEWAY BANK_TRANSFER CASH WALLET OTHER"`
	Description       *string  `json:"description,omitempty" binding:"omitempty,max=1000"`
	WebsiteURL        *string  `json:"website_url,omitempty" binding:"omitempty,safe_url" sanitize:"-"`
	DocumentationURL  *string  `json:"documentation_url,omitempty" binding:"omitempty,safe_url" sanitize:"-"`
	LogoURL           *string  `json:"logo_url,omitempty" binding:"omitempty,safe_url" sanitize:"-"`
	SupportsWebhooks  bool     `json:"supports_webhooks"`
	SupportsCards     bool     `json:"supports_cards"`
	SupportsTransfers bool     `json:"supports_transfers"`
	SupportsCash      bool     `json:"supports_cash"`
	SupportsRecurring bool     `json:"supports_recurring"`
	MinAmount         *int64   `json:"min_amount,omitempty" binding:"omitempty,gte=0"`
	MaxAmount         *int64   `json:"max_amount,omitempty" binding:"omitempty,gte=0"`
	FeePercentage     *float64 `json:"fee_percentage,omitempty" binding:"omitempty,gte=0,lte=100"`
	FixedFee          *int64   `json:"fixed_fee,omitempty" binding:"omitempty,gte=0"`
	ExpirationMinutes int      `json:"expiration_minutes" binding:"omitempty,gt=0"`
	ConfirmationHours int      `json:"confirmation_hours" binding:"omitempty,gt=0"`
	Countries         []string `json:"countries,omitempty" binding:"omitempty,dive,iso_country"`
	Currencies        []string `json:"currencies,omitempty" binding:"omitempty,dive,iso_currency"`
	Status            string   `json:"status,omitempty" binding:"omitempty,oneof=ACTIVE INACTIVE MAINTENANCE DEPRECATED"`
	Active            *bool    `json:"active,omitempty"`
}

// ToDomain converts the request into a provider. Active defaults to true.
func (r *CreateProviderRequest) ToDomain() *domain.Provider {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return &domain.Provider{
		Code:              r.Code,
		Name:              r.Name,
		Type:              domain.ProviderType(r.Type),
		Description:       r.Description,
		WebsiteURL:        r.WebsiteURL,
		DocumentationURL:  r.DocumentationURL,
		LogoURL:           r.LogoURL,
		SupportsWebhooks:  r.SupportsWebhooks,
		SupportsCards:     r.SupportsCards,
		SupportsTransfers: r.SupportsTransfers,
		SupportsCash:      r.SupportsCash,
		SupportsRecurring: r.SupportsRecurring,
		MinAmount:         r.MinAmount,
		MaxAmount:         r.MaxAmount,
		FeePercentage:     r.FeePercentage,
		FixedFee:          r.FixedFee,
		ExpirationMinutes: r.ExpirationMinutes,
		ConfirmationHours: r.ConfirmationHours,
		Countries:         r.Countries,
		Currencies:        r.Currencies,
		Status:            domain.ProviderStatus(r.Status),
		Active:            active,
	}
}

// UpdateProviderRequest is the request body for a partial catalog update.
type UpdateProviderRequest struct {
	Code              *string  `json:"code,omitempty" binding:"omitempty,provider_code"`
	Name              *string  `json:"name,omitempty" binding:"omitempty,min=1,max=100"`
	Type              *string  `json:"type,omitempty" binding:"omitempty,oneof=GATEWAY BANK_TRANSFER CASH WALLET OTHER"`
	Description       *string  `json:"description,omitempty" binding:"omitempty,max=1000"`
	WebsiteURL        *string  `json:"website_url,omitempty" binding:"omitempty,safe_url" sanitize:"-"`
	DocumentationURL  *string  `json:"documentation_url,omitempty" binding:"omitempty,safe_url" sanitize:"-"`
	LogoURL           *string  `json:"logo_url,omitempty" binding:"omitempty,safe_url" sanitize:"-"`
	SupportsWebhooks  *bool    `json:"supports_webhooks,omitempty"`
	SupportsCards     *bool    `json:"supports_cards,omitempty"`
	SupportsTransfers *bool    `json:"supports_transfers,omitempty"`
	SupportsCash      *bool    `json:"supports_cash,omitempty"`
	SupportsRecurring *bool    `json:"supports_recurring,omitempty"`
	MinAmount         *int64   `json:"min_amount,omitempty" binding:"omitempty,gte=0"`
	MaxAmount         *int64   `json:"max_amount,omitempty" binding:"omitempty,gte=0"`
	FeePercentage     *float64 `json:"fee_percentage,omitempty" binding:"omitempty,gte=0,lte=100"`
	FixedFee          *int64   `json:"fixed_fee,omitempty" binding:"omitempty,gte=0"`
	ExpirationMinutes *int     `json:"expiration_minutes,omitempty" binding:"omitempty,gt=0"`
	ConfirmationHours *int     `json:"confirmation_hours,omitempty" binding:"omitempty,gt=0"`
	Countries         []string `json:"countries,omitempty" binding:"omitempty,dive,iso_country"`
	Currencies        []string `json:"currencies,omitempty" binding:"omitempty,dive,iso_currency"`
	Status            *string  `json:"status,omitempty" binding:"omitempty,oneof=ACTIVE INACTIVE MAINTENANCE DEPRECATED"`
	Active            *bool    `json:"active,omitempty"`
}

// ToPatch converts the request into a provider patch.
func (r *UpdateProviderRequest) ToPatch() domain.ProviderPatch {
	patch := domain.ProviderPatch{
		Code:              r.Code,
		Name:              r.Name,
		Description:       r.Description,
		WebsiteURL:        r.WebsiteURL,
		DocumentationURL:  r.DocumentationURL,
		LogoURL:           r.LogoURL,
		SupportsWebhooks:  r.SupportsWebhooks,
		SupportsCards:     r.SupportsCards,
		SupportsTransfers: r.SupportsTransfers,
		SupportsCash:      r.SupportsCash,
		SupportsRecurring: r.SupportsRecurring,
		MinAmount:         r.MinAmount,
		MaxAmount:         r.MaxAmount,
		FeePercentage:     r.FeePercentage,
		FixedFee:          r.FixedFee,
		ExpirationMinutes: r.ExpirationMinutes,
		ConfirmationHours: r.ConfirmationHours,
		Countries:         r.Countries,
		Currencies:        r.Currencies,
		Active:            r.Active,
	}
	if r.Type != nil {
		t := domain.ProviderType(*r.Type)
		patch.Type = &t
	}
	if r.Status != nil {
		s := domain.ProviderStatus(*r.Status)
		patch.Status = &s
	}
	return patch
}

// ListProvidersQuery holds the catalog listing query string.
type ListProvidersQuery struct {
	Type              string `form:"type" binding:"omitempty,oneof=GATEWAY BANK_TRANSFER CASH WALLET OTHER"`
	Status            string `form:"status" binding:"omitempty,oneof=ACTIVE INACTIVE MAINTENANCE DEPRECATED"`
	Active            *bool  `form:"active"`
	SupportsWebhooks  *bool  `form:"supports_webhooks"`
	SupportsCards     *bool  `form:"supports_cards"`
	SupportsTransfers *bool  `form:"supports_transfers"`
	SupportsCash      *bool  `form:"supports_cash"`
	SupportsRecurring *bool  `form:"supports_recurring"`
	Search            string `form:"search" binding:"omitempty,max=100"`
	Page              int    `form:"page" binding:"omitempty,gte=1"`
	PageSize          int    `form:"page_size" binding:"omitempty,gte=1"`
	Sort              string `form:"sort"`
	Order             string `form:"order" binding:"omitempty,oneof=asc desc"`
}

// ToParams converts the query into list parameters.
func (q *ListProvidersQuery) ToParams() domain.ProviderListParams {
	params := domain.ProviderListParams{
		Filter: domain.ProviderFilter{
			Active:            q.Active,
			SupportsWebhooks:  q.SupportsWebhooks,
			SupportsCards:     q.SupportsCards,
			SupportsTransfers: q.SupportsTransfers,
			SupportsCash:      q.SupportsCash,
			SupportsRecurring: q.SupportsRecurring,
			Search:            q.Search,
		},
		Page:      q.Page,
		PageSize:  q.PageSize,
		SortField: q.Sort,
		SortDir:   domain.SortDirection(q.Order),
	}
	if q.Type != "" {
		t := domain.ProviderType(q.Type)
		params.Filter.Type = &t
	}
	if q.Status != "" {
		s := domain.ProviderStatus(q.Status)
		params.Filter.Status = &s
	}
	return params
}

// PaginationMeta is the meta block of a paginated response.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// ConfigureBindingRequest is the request body for configuring a cooperative's provider.
// Secret fields are excluded from sanitisation so they reach the vault verbatim.
type ConfigureBindingRequest struct {
	ProviderID      string                `json:"provider_id" binding:"required,uuid"`
	Principal       bool                  `json:"principal"`
	TestEnvironment bool                  `json:"test_environment"`
	AccessToken     string                `json:"access_token" binding:"required" sanitize:"-"`
	RefreshToken    string                `json:"refresh_token,omitempty" sanitize:"-"`
	PublicKey       string                `json:"public_key,omitempty" sanitize:"-"`
	PrivateKey      string                `json:"private_key,omitempty" sanitize:"-"`
	WebhookSecret   string                `json:"webhook_secret,omitempty" sanitize:"-"`
	WebhookURL      *string               `json:"webhook_url,omitempty" binding:"omitempty,safe_url" sanitize:"-"`
	Configuration   *domain.Configuration `json:"configuration,omitempty"`
	MinAmount       *int64                `json:"min_amount,omitempty" binding:"omitempty,gte=0"`
	MaxAmount       *int64                `json:"max_amount,omitempty" binding:"omitempty,gte=0"`
	FeePercentage   *float64              `json:"fee_percentage,omitempty" binding:"omitempty,gte=0,lte=100"`
	FixedFee        *int64                `json:"fixed_fee,omitempty" binding:"omitempty,gte=0"`
}

// ToSpec converts the request into a binding spec. ProviderID has already
// been validated as a UUID by the binding tags.
func (r *ConfigureBindingRequest) ToSpec() domain.BindingSpec {
	cfg := domain.NewConfiguration()
	if r.Configuration != nil {
		cfg = r.Configuration.Clone()
	}
	return domain.BindingSpec{
		ProviderID:      uuid.MustParse(r.ProviderID),
		Principal:       r.Principal,
		TestEnvironment: r.TestEnvironment,
		Credentials: domain.Credentials{
			AccessToken:   r.AccessToken,
			RefreshToken:  r.RefreshToken,
			PublicKey:     r.PublicKey,
			PrivateKey:    r.PrivateKey,
			WebhookSecret: r.WebhookSecret,
		},
		WebhookURL:    r.WebhookURL,
		Configuration: cfg,
		MinAmount:     r.MinAmount,
		MaxAmount:     r.MaxAmount,
		FeePercentage: r.FeePercentage,
		FixedFee:      r.FixedFee,
	}
}

// UpdateBindingRequest is the request body for a partial binding update.
// An empty optional secret clears it; an absent one leaves it untouched.
type UpdateBindingRequest struct {
	ProviderID      *string               `json:"provider_id,omitempty" binding:"omitempty,uuid"`
	Active          *bool                 `json:"active,omitempty"`
	Principal       *bool                 `json:"principal,omitempty"`
	TestEnvironment *bool                 `json:"test_environment,omitempty"`
	AccessToken     *string               `json:"access_token,omitempty" sanitize:"-"`
	RefreshToken    *string               `json:"refresh_token,omitempty" sanitize:"-"`
	PublicKey       *string               `json:"public_key,omitempty" sanitize:"-"`
	PrivateKey      *string               `json:"private_key,omitempty" sanitize:"-"`
	WebhookSecret   *string               `json:"webhook_secret,omitempty" sanitize:"-"`
	WebhookURL      *string               `json:"webhook_url,omitempty" binding:"omitempty,safe_url" sanitize:"-"`
	Configuration   *domain.Configuration `json:"configuration,omitempty"`
	MinAmount       *int64                `json:"min_amount,omitempty" binding:"omitempty,gte=0"`
	MaxAmount       *int64                `json:"max_amount,omitempty" binding:"omitempty,gte=0"`
	FeePercentage   *float64              `json:"fee_percentage,omitempty" binding:"omitempty,gte=0,lte=100"`
	FixedFee        *int64                `json:"fixed_fee,omitempty" binding:"omitempty,gte=0"`
}

// ToPatch converts the request into a binding patch.
func (r *UpdateBindingRequest) ToPatch() domain.BindingPatch {
	patch := domain.BindingPatch{
		Active:          r.Active,
		Principal:       r.Principal,
		TestEnvironment: r.TestEnvironment,
		AccessToken:     r.AccessToken,
		RefreshToken:    r.RefreshToken,
		PublicKey:       r.PublicKey,
		PrivateKey:      r.PrivateKey,
		WebhookSecret:   r.WebhookSecret,
		WebhookURL:      r.WebhookURL,
		Configuration:   r.Configuration,
		MinAmount:       r.MinAmount,
		MaxAmount:       r.MaxAmount,
		FeePercentage:   r.FeePercentage,
		FixedFee:        r.FixedFee,
	}
	if r.ProviderID != nil {
		id := uuid.MustParse(*r.ProviderID)
		patch.ProviderID = &id
	}
	return patch
}

// UsageRequest is the settlement collaborator's usage report.
type UsageRequest struct {
	Amount     *int64     `json:"amount" binding:"required"`
	OccurredAt *time.Time `json:"occurred_at,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]DependencyStatus `json:"dependencies"`
}

// DependencyStatus reports one dependency in HealthResponse.
type DependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}
