package connectivity

import (
	"context"
	"errors"
	"fmt"

	"coop-payments/internal/core/domain"
	"coop-payments/internal/core/ports"

	"github.com/stripe/stripe-go/v82"
)

// accountRetriever is the slice of the Stripe client the checker needs.
type accountRetriever interface {
	Retrieve(ctx context.Context, params *stripe.AccountRetrieveParams) (*stripe.Account, error)
}

// StripeChecker verifies a secret key by retrieving the account it belongs to.
type StripeChecker struct {
	accounts func(secretKey string) accountRetriever
}

func NewStripeChecker() *StripeChecker {
	return &StripeChecker{
		accounts: func(secretKey string) accountRetriever {
			return stripe.NewClient(secretKey, nil).V1Accounts
		},
	}
}

func (c *StripeChecker) Check(ctx context.Context, _ *domain.Provider, binding *domain.DecryptedBinding) ports.CheckResult {
	key := binding.Credentials.AccessToken
	if key == "" {
		return ports.CheckResult{Success: false, Message: "secret key is not configured"}
	}

	account, err := c.accounts(key).Retrieve(ctx, &stripe.AccountRetrieveParams{})
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			return ports.CheckResult{
				Success: false,
				Message: fmt.Sprintf("stripe rejected the credentials: %s", stripeErr.Msg),
				Details: map[string]interface{}{"status_code": stripeErr.HTTPStatusCode, "code": string(stripeErr.Code)},
			}
		}
		return ports.CheckResult{Success: false, Message: fmt.Sprintf("failed to connect to Stripe: %v", err)}
	}

	details := map[string]interface{}{}
	if account != nil {
		details["account_id"] = account.ID
		details["charges_enabled"] = account.ChargesEnabled
		details["country"] = account.Country
	}
	return ports.CheckResult{Success: true, Message: "connection successful", Details: details}
}
