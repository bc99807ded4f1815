package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coop-payments/config"
	"coop-payments/internal/adapter/connectivity"
	httpHandler "coop-payments/internal/adapter/http/handler"
	"coop-payments/internal/adapter/http/middleware"
	"coop-payments/internal/adapter/secrets"
	memStorage "coop-payments/internal/adapter/storage/memory"
	pgStorage "coop-payments/internal/adapter/storage/postgres"
	redisStorage "coop-payments/internal/adapter/storage/redis"
	"coop-payments/internal/core/ports"
	"coop-payments/internal/service"
	"coop-payments/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// storage groups the repositories selected by database.driver.
type storage struct {
	providers  ports.ProviderRepository
	bindings   ports.BindingRepository
	audit      ports.AuditRepository
	transactor ports.DBTransactor
	health     []ports.HealthChecker
	close      func()
}

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("coop-payments", cfg.Log.Level, cfg.Log.Pretty)
	gin.SetMode(cfg.Server.Mode)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("database_driver", cfg.Database.Driver).
		Msg("Starting Cooperative Payments")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer store.close()

	// Redis is optional; in-process stores take over when it is disabled.
	var (
		providerCache  ports.ProviderCache
		nonceStore     ports.NonceStore     = memStorage.NewNonceStore()
		rateLimitStore ports.RateLimitStore = memStorage.NewRateLimitStore()
	)
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()

		providerCache = redisStorage.NewProviderCache(rdb, cfg.Catalog.CacheTTL)
		nonceStore = redisStorage.NewNonceStore(rdb)
		rateLimitStore = redisStorage.NewRateLimitStore(rdb)
		store.health = append(store.health, redisStorage.NewHealthCheck(rdb))
	} else {
		log.Warn().Msg("Redis disabled, using in-process nonce and rate limit stores")
	}

	masterSecret, err := resolveMasterSecret(ctx, cfg.Vault, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to resolve vault master secret")
	}

	// Initialize core services
	vault := service.NewScryptVault(masterSecret)
	sigSvc := service.NewHMACSignatureService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	// Initialize business services
	catalogSvc := service.NewProviderCatalogService(
		store.providers,
		store.bindings,
		store.transactor,
		providerCache,
		service.CatalogOptions{
			BaseCurrency:    cfg.Catalog.BaseCurrency,
			DefaultPageSize: cfg.Catalog.DefaultPageSize,
			MaxPageSize:     cfg.Catalog.MaxPageSize,
		},
		log,
	)
	bindingSvc := service.NewBindingService(store.bindings, store.providers, store.transactor, vault, log)
	checkers := connectivity.NewDefaultRegistry(connectivity.Options{
		Timeout:             cfg.Probe.Timeout,
		RatePerSecond:       cfg.Probe.RatePerSecond,
		Burst:               cfg.Probe.Burst,
		GatewayBaseURL:      cfg.Probe.GatewayBaseURL,
		GatewayAllowedHosts: cfg.Probe.GatewayAllowedHosts,
	})
	probe := service.NewConnectivityProbe(bindingSvc, store.bindings, store.providers, checkers, log)
	statsSvc := service.NewStatisticsService(store.bindings, store.providers, log)
	auditSvc := service.NewAuditService(store.audit, log)

	sweeper := service.NewProbeSweeper(store.bindings, probe, cfg.Probe.SweepInterval, cfg.Probe.SweepConcurrency, log)
	go sweeper.Run(ctx)

	// Load OpenAPI spec for Swagger UI
	if specBytes, err := os.ReadFile("docs/api/openapi.yaml"); err == nil {
		httpHandler.SetSwaggerSpec(specBytes)
		log.Info().Msg("OpenAPI spec loaded for Swagger UI at /swagger")
	} else {
		log.Warn().Err(err).Msg("OpenAPI spec not found, Swagger UI will be unavailable")
	}

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		CatalogSvc:     catalogSvc,
		BindingSvc:     bindingSvc,
		Probe:          probe,
		StatsSvc:       statsSvc,
		TokenSvc:       tokenSvc,
		SigSvc:         sigSvc,
		NonceStore:     nonceStore,
		RateLimitStore: rateLimitStore,
		HealthCheckers: store.health,
		AuditSvc:       auditSvc,
		Settlement: middleware.SettlementOptions{
			SharedSecret: cfg.Settlement.SharedSecret,
			MaxDrift:     cfg.Settlement.MaxDrift,
			NonceTTL:     cfg.Settlement.NonceTTL,
		},
		CORSOrigins:  cfg.Server.CORSOrigins,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		VerifyPerMin: cfg.RateLimit.VerifyPerMinute,
		Logger:       log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

func openStorage(ctx context.Context, cfg config.DatabaseConfig, log zerolog.Logger) (*storage, error) {
	switch cfg.Driver {
	case "memory":
		log.Warn().Msg("Using in-memory storage; data is lost on restart")
		s := memStorage.NewStore()
		return &storage{
			providers:  memStorage.NewProviderRepo(s),
			bindings:   memStorage.NewBindingRepo(s),
			audit:      memStorage.NewAuditRepo(s),
			transactor: memStorage.NewTransactor(s),
			close:      func() {},
		}, nil

	case "postgres", "":
		pool, err := pgStorage.NewPool(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		if cfg.AutoMigrate {
			if err := pgStorage.RunMigrations(cfg.DSN(), log); err != nil {
				pool.Close()
				return nil, fmt.Errorf("running migrations: %w", err)
			}
		}
		return &storage{
			providers:  pgStorage.NewProviderRepo(pool),
			bindings:   pgStorage.NewBindingRepo(pool),
			audit:      pgStorage.NewAuditRepo(pool),
			transactor: pgStorage.NewTransactor(pool),
			health:     []ports.HealthChecker{pgStorage.NewHealthCheck(pool)},
			close:      pool.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
}

// resolveMasterSecret reads the vault master secret from Secrets Manager when
// an ARN is configured, falling back to vault.master_secret.
func resolveMasterSecret(ctx context.Context, cfg config.VaultConfig, log zerolog.Logger) (string, error) {
	if cfg.MasterSecretARN == "" {
		if cfg.MasterSecret == "" {
			return "", errors.New("vault.master_secret or vault.master_secret_arn is required")
		}
		return cfg.MasterSecret, nil
	}

	client, err := secrets.NewClient(ctx, cfg.AWSRegion, log)
	if err != nil {
		if cfg.MasterSecret != "" {
			log.Warn().Err(err).Msg("Secrets Manager unavailable, using configured master secret")
			return cfg.MasterSecret, nil
		}
		return "", err
	}
	return client.Resolve(ctx, cfg.MasterSecretARN, cfg.MasterSecret)
}
