// Package connectivity implements provider-specific credential checks used
// by the connectivity probe.
package connectivity

import (
	"strings"
	"time"

	"coop-payments/internal/core/domain"
	"coop-payments/internal/core/ports"
)

// Registry resolves a checker by provider code, then by provider type, then
// falls back to a default.
type Registry struct {
	byCode   map[string]ports.ConnectivityChecker
	byType   map[domain.ProviderType]ports.ConnectivityChecker
	fallback ports.ConnectivityChecker
}

// NewRegistry creates a registry with the given default checker.
func NewRegistry(fallback ports.ConnectivityChecker) *Registry {
	return &Registry{
		byCode:   map[string]ports.ConnectivityChecker{},
		byType:   map[domain.ProviderType]ports.ConnectivityChecker{},
		fallback: fallback,
	}
}

// RegisterCode binds a checker to a provider code. Codes match case-insensitively.
func (r *Registry) RegisterCode(code string, checker ports.ConnectivityChecker) *Registry {
	r.byCode[strings.ToLower(code)] = checker
	return r
}

// RegisterType binds a checker to every provider of a type.
func (r *Registry) RegisterType(t domain.ProviderType, checker ports.ConnectivityChecker) *Registry {
	r.byType[t] = checker
	return r
}

func (r *Registry) Resolve(provider *domain.Provider) ports.ConnectivityChecker {
	if c, ok := r.byCode[strings.ToLower(provider.Code)]; ok {
		return c
	}
	if c, ok := r.byType[provider.Type]; ok {
		return c
	}
	return r.fallback
}

// Options configures the default registry.
type Options struct {
	Timeout             time.Duration
	RatePerSecond       float64
	Burst               int
	GatewayBaseURL      string
	GatewayAllowedHosts []string
}

// NewDefaultRegistry wires the built-in checkers: Stripe and MercadoPago by
// code, offline checks for cash and bank transfer, and the health_url check
// for everything else. Remote checkers are throttled per provider.
func NewDefaultRegistry(opts Options) *Registry {
	client := NewHTTPClient(opts.Timeout)
	wrap := func(c ports.ConnectivityChecker) ports.ConnectivityChecker {
		return NewThrottled(c, opts.RatePerSecond, opts.Burst, opts.Timeout)
	}
	gateway := wrap(NewGatewayChecker(client, opts.GatewayBaseURL, opts.GatewayAllowedHosts...))

	return NewRegistry(wrap(NewHealthURLChecker(NewPublicHTTPClient(opts.Timeout)))).
		RegisterCode("stripe", wrap(NewStripeChecker())).
		RegisterCode("mercadopago", gateway).
		RegisterCode("mp", gateway).
		RegisterType(domain.ProviderTypeCash, OfflineChecker{}).
		RegisterType(domain.ProviderTypeBankTransfer, OfflineChecker{})
}
