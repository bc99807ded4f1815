package middleware

import (
	"fmt"
	"strconv"
	"time"

	"coop-payments/internal/core/ports"
	"coop-payments/pkg/apperror"
	"coop-payments/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RateLimitRule defines a rate limit for an endpoint group.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// DefaultRateLimitRules returns the rate limits per endpoint group.
// verifyPerMinute bounds outbound provider traffic caused by verify calls.
func DefaultRateLimitRules(verifyPerMinute int) map[string]RateLimitRule {
	if verifyPerMinute <= 0 {
		verifyPerMinute = 10
	}
	return map[string]RateLimitRule{
		"verify":  {Limit: int64(verifyPerMinute), Window: time.Minute},
		"catalog": {Limit: 120, Window: time.Minute},
		"binding": {Limit: 60, Window: time.Minute},
		"usage":   {Limit: 600, Window: time.Minute},
	}
}

// RateLimiter creates a rate-limiting middleware for a given endpoint group.
func RateLimiter(store ports.RateLimitStore, group string, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		identifier := extractIdentifier(c)
		key := fmt.Sprintf("%s:%s", identifier, group)

		result, err := store.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("rate limit check failed, allowing request (degraded mode)")
			c.Next()
			return
		}

		// Always set rate limit headers
		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

		if !result.Allowed {
			retryAfter := result.ResetAt - time.Now().Unix()
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			response.Error(c, apperror.ErrRateLimitExceeded())
			c.Abort()
			return
		}

		c.Next()
	}
}

// extractIdentifier keys the limit by authenticated actor, falling back to client IP.
func extractIdentifier(c *gin.Context) string {
	if actor := c.GetString(CtxActorID); actor != "" {
		return actor
	}
	return c.ClientIP()
}
