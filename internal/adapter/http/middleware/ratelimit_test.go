package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"coop-payments/internal/core/ports"
	"coop-payments/internal/core/ports/mocks"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func limitedRouter(store ports.RateLimitStore) *gin.Engine {
	r := gin.New()
	r.POST("/verify", func(c *gin.Context) {
		c.Set(CtxActorID, "mgr-1")
		c.Next()
	}, RateLimiter(store, "verify", RateLimitRule{Limit: 2, Window: time.Minute}, zerolog.Nop()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestRateLimiter_Allowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockRateLimitStore(ctrl)
	store.EXPECT().Allow(gomock.Any(), "mgr-1:verify", int64(2), time.Minute).
		Return(&ports.RateLimitResult{Allowed: true, Limit: 2, Remaining: 1, ResetAt: time.Now().Unix() + 30}, nil)

	w := httptest.NewRecorder()
	limitedRouter(store).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/verify", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimiter_Blocked(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockRateLimitStore(ctrl)
	store.EXPECT().Allow(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&ports.RateLimitResult{Allowed: false, Limit: 2, Remaining: 0, ResetAt: time.Now().Unix() + 30}, nil)

	w := httptest.NewRecorder()
	limitedRouter(store).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/verify", nil))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "RATE_001", errorCode(t, w))
}

func TestRateLimiter_StoreErrorIsDegraded(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockRateLimitStore(ctrl)
	store.EXPECT().Allow(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("redis down"))

	w := httptest.NewRecorder()
	limitedRouter(store).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/verify", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiter_FallsBackToClientIP(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockRateLimitStore(ctrl)
	store.EXPECT().Allow(gomock.Any(), "192.0.2.1:catalog", gomock.Any(), gomock.Any()).
		Return(&ports.RateLimitResult{Allowed: true, Limit: 5, Remaining: 4}, nil)

	r := gin.New()
	r.GET("/providers", RateLimiter(store, "catalog", RateLimitRule{Limit: 5, Window: time.Minute}, zerolog.Nop()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/providers", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDefaultRateLimitRules(t *testing.T) {
	rules := DefaultRateLimitRules(0)
	assert.Equal(t, int64(10), rules["verify"].Limit)
	assert.Equal(t, int64(3), DefaultRateLimitRules(3)["verify"].Limit)
}
