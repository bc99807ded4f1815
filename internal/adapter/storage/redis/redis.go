package redis

import (
	"context"
	"fmt"
	"time"

	"coop-payments/config"

	"github.com/cenkalti/backoff/v4"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// NewClient creates the Redis client backing the provider cache, the
// settlement nonce store and the rate limiter. The first ping is retried with
// exponential backoff up to cfg.ConnectRetries times.
func NewClient(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), cfg.ConnectRetries), ctx)
	err := backoff.RetryNotify(func() error {
		return client.Ping(ctx).Err()
	}, policy, func(err error, wait time.Duration) {
		log.Warn().Err(err).Str("addr", cfg.Addr()).Dur("retry_in", wait).Msg("redis not reachable yet")
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	log.Info().
		Str("addr", cfg.Addr()).
		Int("db", cfg.DB).
		Msg("Redis connection established")

	return client, nil
}
