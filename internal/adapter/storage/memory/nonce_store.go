package memory

import (
	"context"
	"sync"
	"time"
)

// NonceStore implements ports.NonceStore in process. Expired nonces are
// purged lazily on each call.
type NonceStore struct {
	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

func NewNonceStore() *NonceStore {
	return &NonceStore{seen: make(map[string]time.Time), now: time.Now}
}

func (s *NonceStore) CheckAndSet(ctx context.Context, scope string, nonce string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, exp := range s.seen {
		if !now.Before(exp) {
			delete(s.seen, k)
		}
	}

	key := scope + ":" + nonce
	if _, ok := s.seen[key]; ok {
		return false, nil
	}
	s.seen[key] = now.Add(ttl)
	return true, nil
}
