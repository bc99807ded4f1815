package connectivity

import (
	"context"

	"coop-payments/internal/core/domain"
	"coop-payments/internal/core/ports"
)

// OfflineChecker serves providers with no remote API (cash, manual bank
// transfer). Holding an access token is all that can be verified.
type OfflineChecker struct{}

func (OfflineChecker) Check(_ context.Context, provider *domain.Provider, binding *domain.DecryptedBinding) ports.CheckResult {
	if binding.Credentials.AccessToken == "" {
		return ports.CheckResult{Success: false, Message: "access token is not configured"}
	}
	return ports.CheckResult{
		Success: true,
		Message: "credentials present",
		Details: map[string]interface{}{"mode": "offline", "provider_type": string(provider.Type)},
	}
}
