package connectivity

import (
	"context"
	"strings"
	"sync"
	"time"

	"coop-payments/internal/core/domain"
	"coop-payments/internal/core/ports"

	"golang.org/x/time/rate"
)

// Throttled bounds outbound checks with a per-provider token bucket and a
// timeout. Waiting for a token counts against the timeout.
type Throttled struct {
	next    ports.ConnectivityChecker
	timeout time.Duration
	rps     rate.Limit
	burst   int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewThrottled wraps next. A non-positive rps disables rate limiting; a
// non-positive timeout disables the deadline.
func NewThrottled(next ports.ConnectivityChecker, rps float64, burst int, timeout time.Duration) *Throttled {
	if burst <= 0 {
		burst = 1
	}
	return &Throttled{
		next:     next,
		timeout:  timeout,
		rps:      rate.Limit(rps),
		burst:    burst,
		limiters: map[string]*rate.Limiter{},
	}
}

func (t *Throttled) Check(ctx context.Context, provider *domain.Provider, binding *domain.DecryptedBinding) ports.CheckResult {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	if limiter := t.limiter(provider.Code); limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return ports.CheckResult{Success: false, Message: "connectivity check rate limited: " + err.Error()}
		}
	}

	return t.next.Check(ctx, provider, binding)
}

func (t *Throttled) limiter(code string) *rate.Limiter {
	if t.rps <= 0 {
		return nil
	}
	key := strings.ToLower(code)

	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.limiters[key]
	if !ok {
		l = rate.NewLimiter(t.rps, t.burst)
		t.limiters[key] = l
	}
	return l
}
