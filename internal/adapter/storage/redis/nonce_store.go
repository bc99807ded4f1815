package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const noncePrefix = "coop:nonce:"

// NonceStore records settlement request nonces so a signed request cannot be
// replayed within its TTL. Keys look like coop:nonce:<scope>:<nonce>, the
// scope being the caller (settlement) so callers never collide.
type NonceStore struct {
	client *goredis.Client
}

func NewNonceStore(client *goredis.Client) *NonceStore {
	return &NonceStore{client: client}
}

func nonceKey(scope, nonce string) string {
	return noncePrefix + scope + ":" + nonce
}

// CheckAndSet stores the nonce with SETNX and reports whether it was unused.
func (s *NonceStore) CheckAndSet(ctx context.Context, scope string, nonce string, ttl time.Duration) (bool, error) {
	fresh, err := s.client.SetNX(ctx, nonceKey(scope, nonce), time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("record %s nonce: %w", scope, err)
	}
	return fresh, nil
}
