package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"coop-payments/internal/core/domain"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// ProviderCache implements ports.ProviderCache. Each provider is stored
// twice, under its ID and under its code, so both lookups hit Redis.
type ProviderCache struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewProviderCache creates a Redis-backed provider cache.
func NewProviderCache(client *goredis.Client, ttl time.Duration) *ProviderCache {
	return &ProviderCache{
		client: client,
		prefix: "provider:",
		ttl:    ttl,
	}
}

func (c *ProviderCache) idKey(id uuid.UUID) string {
	return c.prefix + "id:" + id.String()
}

func (c *ProviderCache) codeKey(code string) string {
	return c.prefix + "code:" + code
}

// GetByID returns nil, nil on a miss.
func (c *ProviderCache) GetByID(ctx context.Context, id uuid.UUID) (*domain.Provider, error) {
	return c.get(ctx, c.idKey(id))
}

// GetByCode returns nil, nil on a miss.
func (c *ProviderCache) GetByCode(ctx context.Context, code string) (*domain.Provider, error) {
	return c.get(ctx, c.codeKey(code))
}

func (c *ProviderCache) get(ctx context.Context, key string) (*domain.Provider, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis provider get: %w", err)
	}

	var p domain.Provider
	if err := json.Unmarshal(val, &p); err != nil {
		return nil, fmt.Errorf("decode cached provider: %w", err)
	}
	return &p, nil
}

// Set stores the provider under both keys.
func (c *ProviderCache) Set(ctx context.Context, provider *domain.Provider) error {
	val, err := json.Marshal(provider)
	if err != nil {
		return fmt.Errorf("encode provider: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, c.idKey(provider.ID), val, c.ttl)
	pipe.Set(ctx, c.codeKey(provider.Code), val, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis provider set: %w", err)
	}
	return nil
}

// Invalidate drops both keys of the provider.
func (c *ProviderCache) Invalidate(ctx context.Context, provider *domain.Provider) error {
	if err := c.client.Del(ctx, c.idKey(provider.ID), c.codeKey(provider.Code)).Err(); err != nil {
		return fmt.Errorf("redis provider invalidate: %w", err)
	}
	return nil
}
