package domain

import (
	"time"

	"github.com/google/uuid"
)

// ConnectivityStatus is the result of the most recent probe of a binding.
type ConnectivityStatus string

const (
	ConnectivityUnverified ConnectivityStatus = "UNVERIFIED"
	ConnectivityConnected  ConnectivityStatus = "CONNECTED"
	ConnectivityError      ConnectivityStatus = "ERROR"
)

// SecretEnvelopes holds vault envelopes for a binding's secrets. A nil
// optional envelope means the secret is not configured.
type SecretEnvelopes struct {
	AccessToken   string
	RefreshToken  *string
	PublicKey     *string
	PrivateKey    *string
	WebhookSecret *string
}

// Binding is a cooperative's configuration of exactly one provider.
type Binding struct {
	ID                   uuid.UUID          `json:"id"`
	CooperativeID        string             `json:"cooperative_id"`
	ProviderID           uuid.UUID          `json:"provider_id"`
	Active               bool               `json:"active"`
	Principal            bool               `json:"principal"`
	TestEnvironment      bool               `json:"test_environment"`
	Secrets              SecretEnvelopes    `json:"-"` // ciphertext, never exposed
	WebhookURL           *string            `json:"webhook_url,omitempty"`
	Configuration        Configuration      `json:"configuration"`
	MinAmount            *int64             `json:"min_amount,omitempty"`
	MaxAmount            *int64             `json:"max_amount,omitempty"`
	FeePercentage        *float64           `json:"fee_percentage,omitempty"`
	FixedFee             *int64             `json:"fixed_fee,omitempty"`
	ConnectivityStatus   ConnectivityStatus `json:"connectivity_status"`
	LastConnectionAt     *time.Time         `json:"last_connection_at,omitempty"`
	LastConnectionError  *string            `json:"last_connection_error,omitempty"`
	TransactionCount     int64              `json:"transaction_count"`
	TotalAmountProcessed int64              `json:"total_amount_processed"`
	LastTransactionAt    *time.Time         `json:"last_transaction_at,omitempty"`
	IntegratedAt         time.Time          `json:"integrated_at"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// RecordProbe applies a probe outcome. Success clears the last error.
func (b *Binding) RecordProbe(connected bool, message string, at time.Time) {
	b.LastConnectionAt = &at
	if connected {
		b.ConnectivityStatus = ConnectivityConnected
		b.LastConnectionError = nil
		return
	}
	b.ConnectivityStatus = ConnectivityError
	msg := message
	b.LastConnectionError = &msg
}

// DecryptedBinding is a binding with its secrets in plaintext. Internal use only.
type DecryptedBinding struct {
	Binding
	Credentials Credentials `json:"-"`
}

// BindingSpec is the input to configure a new binding.
type BindingSpec struct {
	ProviderID      uuid.UUID
	Principal       bool
	TestEnvironment bool
	Credentials     Credentials
	WebhookURL      *string
	Configuration   Configuration
	MinAmount       *int64
	MaxAmount       *int64
	FeePercentage   *float64
	FixedFee        *int64
}

// BindingPatch carries a partial update. Nil fields are left untouched;
// a non-nil empty optional secret clears it.
type BindingPatch struct {
	ProviderID      *uuid.UUID
	Active          *bool
	Principal       *bool
	TestEnvironment *bool
	AccessToken     *string
	RefreshToken    *string
	PublicKey       *string
	PrivateKey      *string
	WebhookSecret   *string
	WebhookURL      *string
	Configuration   *Configuration
	MinAmount       *int64
	MaxAmount       *int64
	FeePercentage   *float64
	FixedFee        *int64
}

// ProviderSummary is the provider metadata attached to a binding view.
type ProviderSummary struct {
	ID      uuid.UUID      `json:"id"`
	Code    string         `json:"code"`
	Name    string         `json:"name"`
	Type    ProviderType   `json:"type"`
	Status  ProviderStatus `json:"status"`
	LogoURL *string        `json:"logo_url,omitempty"`
}

// BindingView is the externally observable form of a binding: provider
// metadata plus presence flags in place of secrets.
type BindingView struct {
	Binding
	Provider         *ProviderSummary `json:"provider,omitempty"`
	HasAccessToken   bool             `json:"has_access_token"`
	HasRefreshToken  bool             `json:"has_refresh_token"`
	HasPublicKey     bool             `json:"has_public_key"`
	HasPrivateKey    bool             `json:"has_private_key"`
	HasWebhookSecret bool             `json:"has_webhook_secret"`
}

// NewBindingView builds a view; provider may be nil if it no longer resolves.
func NewBindingView(b *Binding, p *Provider) *BindingView {
	view := &BindingView{
		Binding:          *b,
		HasAccessToken:   b.Secrets.AccessToken != "",
		HasRefreshToken:  b.Secrets.RefreshToken != nil,
		HasPublicKey:     b.Secrets.PublicKey != nil,
		HasPrivateKey:    b.Secrets.PrivateKey != nil,
		HasWebhookSecret: b.Secrets.WebhookSecret != nil,
	}
	view.Binding.Secrets = SecretEnvelopes{}
	if p != nil {
		view.Provider = &ProviderSummary{
			ID:      p.ID,
			Code:    p.Code,
			Name:    p.Name,
			Type:    p.Type,
			Status:  p.Status,
			LogoURL: p.LogoURL,
		}
	}
	return view
}
