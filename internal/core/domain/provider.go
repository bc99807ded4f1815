package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProviderType classifies how a provider settles payments.
type ProviderType string

const (
	ProviderTypeGateway      ProviderType = "GATEWAY"
	ProviderTypeBankTransfer ProviderType = "BANK_TRANSFER"
	ProviderTypeCash         ProviderType = "CASH"
	ProviderTypeWallet       ProviderType = "WALLET"
	ProviderTypeOther        ProviderType = "OTHER"
)

// Valid reports whether t is a known provider type.
func (t ProviderType) Valid() bool {
	switch t {
	case ProviderTypeGateway, ProviderTypeBankTransfer, ProviderTypeCash, ProviderTypeWallet, ProviderTypeOther:
		return true
	}
	return false
}

// ProviderStatus is the lifecycle state of a catalog entry.
type ProviderStatus string

const (
	ProviderStatusActive      ProviderStatus = "ACTIVE"
	ProviderStatusInactive    ProviderStatus = "INACTIVE"
	ProviderStatusMaintenance ProviderStatus = "MAINTENANCE"
	ProviderStatusDeprecated  ProviderStatus = "DEPRECATED"
)

func (s ProviderStatus) Valid() bool {
	switch s {
	case ProviderStatusActive, ProviderStatusInactive, ProviderStatusMaintenance, ProviderStatusDeprecated:
		return true
	}
	return false
}

const (
	DefaultExpirationMinutes = 60
	DefaultConfirmationHours = 24
)

// Provider is a catalog entry describing an external payment processor.
// Amounts are integer minor units.
type Provider struct {
	ID                uuid.UUID      `json:"id"`
	Code              string         `json:"code"`
	Name              string         `json:"name"`
	Type              ProviderType   `json:"type"`
	Description       *string        `json:"description,omitempty"`
	WebsiteURL        *string        `json:"website_url,omitempty"`
	DocumentationURL  *string        `json:"documentation_url,omitempty"`
	LogoURL           *string        `json:"logo_url,omitempty"`
	SupportsWebhooks  bool           `json:"supports_webhooks"`
	SupportsCards     bool           `json:"supports_cards"`
	SupportsTransfers bool           `json:"supports_transfers"`
	SupportsCash      bool           `json:"supports_cash"`
	SupportsRecurring bool           `json:"supports_recurring"`
	MinAmount         *int64         `json:"min_amount,omitempty"`
	MaxAmount         *int64         `json:"max_amount,omitempty"`
	FeePercentage     *float64       `json:"fee_percentage,omitempty"`
	FixedFee          *int64         `json:"fixed_fee,omitempty"`
	ExpirationMinutes int            `json:"expiration_minutes"`
	ConfirmationHours int            `json:"confirmation_hours"`
	Countries         []string       `json:"countries"`
	Currencies        []string       `json:"currencies"`
	Status            ProviderStatus `json:"status"`
	Active            bool           `json:"active"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// IsAvailable returns true if the provider can accept new bindings.
func (p *Provider) IsAvailable() bool {
	return p.Active && p.Status == ProviderStatusActive
}

// ApplyDefaults fills unset windows and currencies.
func (p *Provider) ApplyDefaults(baseCurrency string) {
	if p.ExpirationMinutes <= 0 {
		p.ExpirationMinutes = DefaultExpirationMinutes
	}
	if p.ConfirmationHours <= 0 {
		p.ConfirmationHours = DefaultConfirmationHours
	}
	if len(p.Currencies) == 0 {
		p.Currencies = []string{baseCurrency}
	}
	if p.Countries == nil {
		p.Countries = []string{}
	}
	if p.Status == "" {
		p.Status = ProviderStatusActive
	}
}

// ValidAmountRange reports whether min <= max when both are set.
func ValidAmountRange(min, max *int64) bool {
	return min == nil || max == nil || *min <= *max
}

// ProviderPatch carries the mutable fields of a provider. Nil fields are left untouched.
type ProviderPatch struct {
	Code              *string
	Name              *string
	Type              *ProviderType
	Description       *string
	WebsiteURL        *string
	DocumentationURL  *string
	LogoURL           *string
	SupportsWebhooks  *bool
	SupportsCards     *bool
	SupportsTransfers *bool
	SupportsCash      *bool
	SupportsRecurring *bool
	MinAmount         *int64
	MaxAmount         *int64
	FeePercentage     *float64
	FixedFee          *int64
	ExpirationMinutes *int
	ConfirmationHours *int
	Countries         []string
	Currencies        []string
	Status            *ProviderStatus
	Active            *bool
}

// Apply merges the patch into p.
func (patch ProviderPatch) Apply(p *Provider) {
	if patch.Code != nil {
		p.Code = *patch.Code
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Type != nil {
		p.Type = *patch.Type
	}
	if patch.Description != nil {
		p.Description = patch.Description
	}
	if patch.WebsiteURL != nil {
		p.WebsiteURL = patch.WebsiteURL
	}
	if patch.DocumentationURL != nil {
		p.DocumentationURL = patch.DocumentationURL
	}
	if patch.LogoURL != nil {
		p.LogoURL = patch.LogoURL
	}
	if patch.SupportsWebhooks != nil {
		p.SupportsWebhooks = *patch.SupportsWebhooks
	}
	if patch.SupportsCards != nil {
		p.SupportsCards = *patch.SupportsCards
	}
	if patch.SupportsTransfers != nil {
		p.SupportsTransfers = *patch.SupportsTransfers
	}
	if patch.SupportsCash != nil {
		p.SupportsCash = *patch.SupportsCash
	}
	if patch.SupportsRecurring != nil {
		p.SupportsRecurring = *patch.SupportsRecurring
	}
	if patch.MinAmount != nil {
		p.MinAmount = patch.MinAmount
	}
	if patch.MaxAmount != nil {
		p.MaxAmount = patch.MaxAmount
	}
	if patch.FeePercentage != nil {
		p.FeePercentage = patch.FeePercentage
	}
	if patch.FixedFee != nil {
		p.FixedFee = patch.FixedFee
	}
	if patch.ExpirationMinutes != nil {
		p.ExpirationMinutes = *patch.ExpirationMinutes
	}
	if patch.ConfirmationHours != nil {
		p.ConfirmationHours = *patch.ConfirmationHours
	}
	if patch.Countries != nil {
		p.Countries = patch.Countries
	}
	if patch.Currencies != nil {
		p.Currencies = patch.Currencies
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.Active != nil {
		p.Active = *patch.Active
	}
}

// ProviderFilter narrows a catalog listing. Nil fields do not filter.
type ProviderFilter struct {
	Type              *ProviderType
	Status            *ProviderStatus
	Active            *bool
	SupportsWebhooks  *bool
	SupportsCards     *bool
	SupportsTransfers *bool
	SupportsCash      *bool
	SupportsRecurring *bool
	Search            string // case-insensitive substring of name, code or description
}

// ProviderSortFields whitelists sortable columns.
var ProviderSortFields = map[string]bool{
	"name":       true,
	"code":       true,
	"type":       true,
	"status":     true,
	"created_at": true,
	"updated_at": true,
}

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ProviderListParams holds filter, sort and pagination for listing providers.
type ProviderListParams struct {
	Filter    ProviderFilter
	Page      int
	PageSize  int
	SortField string
	SortDir   SortDirection
}

// Offset returns the zero-based row offset for the page.
func (p ProviderListParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// ProviderPage is one page of a catalog listing.
type ProviderPage struct {
	Items      []Provider
	Page       int
	PageSize   int
	Total      int64
	TotalPages int
}

// TotalPages returns ceil(total/size); zero when size is not positive.
func TotalPages(total int64, size int) int {
	if size <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}
