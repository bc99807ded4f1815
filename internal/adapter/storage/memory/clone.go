package memory

import "coop-payments/internal/core/domain"

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneProvider(p *domain.Provider) *domain.Provider {
	c := *p
	c.Description = clonePtr(p.Description)
	c.WebsiteURL = clonePtr(p.WebsiteURL)
	c.DocumentationURL = clonePtr(p.DocumentationURL)
	c.LogoURL = clonePtr(p.LogoURL)
	c.MinAmount = clonePtr(p.MinAmount)
	c.MaxAmount = clonePtr(p.MaxAmount)
	c.FeePercentage = clonePtr(p.FeePercentage)
	c.FixedFee = clonePtr(p.FixedFee)
	c.Countries = append([]string(nil), p.Countries...)
	c.Currencies = append([]string(nil), p.Currencies...)
	return &c
}

func cloneBinding(b *domain.Binding) *domain.Binding {
	c := *b
	c.Secrets.RefreshToken = clonePtr(b.Secrets.RefreshToken)
	c.Secrets.PublicKey = clonePtr(b.Secrets.PublicKey)
	c.Secrets.PrivateKey = clonePtr(b.Secrets.PrivateKey)
	c.Secrets.WebhookSecret = clonePtr(b.Secrets.WebhookSecret)
	c.WebhookURL = clonePtr(b.WebhookURL)
	c.Configuration = b.Configuration.Clone()
	c.MinAmount = clonePtr(b.MinAmount)
	c.MaxAmount = clonePtr(b.MaxAmount)
	c.FeePercentage = clonePtr(b.FeePercentage)
	c.FixedFee = clonePtr(b.FixedFee)
	c.LastConnectionAt = clonePtr(b.LastConnectionAt)
	c.LastConnectionError = clonePtr(b.LastConnectionError)
	c.LastTransactionAt = clonePtr(b.LastTransactionAt)
	return &c
}
