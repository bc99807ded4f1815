package handler

import (
	"slices"
	"time"

	"coop-payments/internal/adapter/http/middleware"
	"coop-payments/internal/core/ports"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	CatalogSvc     ports.ProviderCatalogService
	BindingSvc     ports.BindingService
	Probe          ports.ConnectivityProbe
	StatsSvc       ports.StatisticsService
	TokenSvc       ports.TokenService
	SigSvc         ports.SignatureService
	NonceStore     ports.NonceStore
	RateLimitStore ports.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	AuditSvc       ports.AuditService // nil = audit logging disabled
	Settlement     middleware.SettlementOptions
	CORSOrigins    []string
	MaxBodyBytes   int64
	VerifyPerMin   int
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	if deps.MaxBodyBytes <= 0 {
		deps.MaxBodyBytes = 1 << 20
	}

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(corsMiddleware(deps.CORSOrigins))
	r.Use(middleware.MaxBodySize(deps.MaxBodyBytes))

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Swagger documentation
	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	rules := middleware.DefaultRateLimitRules(deps.VerifyPerMin)

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	adminOnly := middleware.RequireRole(ports.RoleAdmin)

	// --- Provider catalog (JWT; writes are admin-only) ---
	providerHandler := NewProviderHandler(deps.CatalogSvc)
	providers := v1.Group("/providers", jwtAuth, rl("catalog"))
	{
		providers.GET("", providerHandler.List)
		providers.GET("/code/:code", providerHandler.GetByCode)
		providers.GET("/:id", providerHandler.Get)
		providers.POST("", adminOnly, providerHandler.Create)
		providers.PATCH("/:id", adminOnly, providerHandler.Update)
		providers.DELETE("/:id", adminOnly, providerHandler.Delete)
	}

	// --- Cooperative binding (JWT, scoped to the caller's cooperative) ---
	bindingHandler := NewBindingHandler(deps.BindingSvc, deps.Probe, deps.StatsSvc)
	binding := v1.Group("/cooperatives/:"+middleware.CooperativeParam+"/payment-provider",
		jwtAuth, middleware.CooperativeScope())
	{
		binding.GET("", rl("binding"), bindingHandler.Describe)
		binding.POST("", rl("binding"), bindingHandler.Configure)
		binding.PATCH("", rl("binding"), bindingHandler.Update)
		binding.DELETE("", rl("binding"), bindingHandler.Disable)
		binding.POST("/verify", rl("verify"), bindingHandler.Verify)
		binding.GET("/statistics", rl("binding"), bindingHandler.Statistics)
	}

	// --- Settlement collaborator (HMAC-authenticated) ---
	usageHandler := NewUsageHandler(deps.BindingSvc)
	internal := r.Group("/internal/v1",
		middleware.SettlementAuth(deps.Settlement, deps.SigSvc, deps.NonceStore, deps.Logger))
	{
		internal.POST("/cooperatives/:"+middleware.CooperativeParam+"/usage", rl("usage"), usageHandler.Increment)
	}

	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	if len(origins) == 0 || slices.Contains(origins, "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{
		"Origin", "Content-Type", "Accept", "Authorization",
		middleware.HeaderRequestID, middleware.HeaderSignature, middleware.HeaderTimestamp, middleware.HeaderNonce,
	}
	corsConfig.ExposeHeaders = []string{
		"X-RateLimit-Limit",
		"X-RateLimit-Remaining",
		"X-RateLimit-Reset",
		"Retry-After",
		middleware.HeaderRequestID,
	}
	corsConfig.MaxAge = 12 * time.Hour
	return cors.New(corsConfig)
}
