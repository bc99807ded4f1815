package memory

import (
	"context"
	"sync"
	"time"

	"coop-payments/internal/core/ports"
)

type window struct {
	id    int64
	secs  int64
	count int64
}

func (w *window) expired(unix int64) bool {
	return unix/w.secs > w.id
}

// RateLimitStore implements ports.RateLimitStore with in-process fixed
// windows. Windows that have rolled over are dropped whenever a new one opens.
type RateLimitStore struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

func NewRateLimitStore() *RateLimitStore {
	return &RateLimitStore{windows: make(map[string]*window), now: time.Now}
}

func (s *RateLimitStore) Allow(ctx context.Context, key string, limit int64, period time.Duration) (*ports.RateLimitResult, error) {
	secs := int64(period.Seconds())
	if secs < 1 {
		secs = 1
	}
	unix := s.now().Unix()
	id := unix / secs

	s.mu.Lock()
	w, ok := s.windows[key]
	if !ok || w.id != id {
		s.purge(unix)
		w = &window{id: id, secs: secs}
		s.windows[key] = w
	}
	w.count++
	count := w.count
	s.mu.Unlock()

	return &ports.RateLimitResult{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: max(limit-count, 0),
		ResetAt:   (id + 1) * secs,
	}, nil
}

func (s *RateLimitStore) purge(unix int64) {
	for k, w := range s.windows {
		if w.expired(unix) {
			delete(s.windows, k)
		}
	}
}
