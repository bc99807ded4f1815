package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Vault      VaultConfig      `mapstructure:"vault"`
	Settlement SettlementConfig `mapstructure:"settlement"`
	Probe      ProbeConfig      `mapstructure:"probe"`
	Catalog    CatalogConfig    `mapstructure:"catalog"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"` // debug, release, test
	CORSOrigins  []string      `mapstructure:"cors_origins"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres, memory
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	ConnectRetries  uint64        `mapstructure:"connect_retries"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Password       string `mapstructure:"password"`
	DB             int    `mapstructure:"db"`
	ConnectRetries uint64 `mapstructure:"connect_retries"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

// VaultConfig configures the credential vault. MasterSecretARN takes
// precedence over MasterSecret when set.
type VaultConfig struct {
	MasterSecret    string `mapstructure:"master_secret"`
	MasterSecretARN string `mapstructure:"master_secret_arn"`
	AWSRegion       string `mapstructure:"aws_region"`
}

// SettlementConfig authenticates the settlement collaborator on the
// internal usage endpoint.
type SettlementConfig struct {
	SharedSecret string        `mapstructure:"shared_secret"`
	MaxDrift     time.Duration `mapstructure:"max_drift"`
	NonceTTL     time.Duration `mapstructure:"nonce_ttl"`
}

type ProbeConfig struct {
	Timeout          time.Duration `mapstructure:"timeout"`
	SweepInterval    time.Duration `mapstructure:"sweep_interval"` // 0 disables the sweeper
	SweepConcurrency int           `mapstructure:"sweep_concurrency"`
	RatePerSecond    float64       `mapstructure:"rate_per_second"`
	Burst            int           `mapstructure:"burst"`
	GatewayBaseURL   string        `mapstructure:"gateway_base_url"`

	// Extra hosts a binding may point api_base_url at, besides the
	// gateway_base_url host.
	GatewayAllowedHosts []string `mapstructure:"gateway_allowed_hosts"`
}

type CatalogConfig struct {
	BaseCurrency    string        `mapstructure:"base_currency"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	DefaultPageSize int           `mapstructure:"default_page_size"`
	MaxPageSize     int           `mapstructure:"max_page_size"`
}

type RateLimitConfig struct {
	VerifyPerMinute int `mapstructure:"verify_per_minute"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// A .env file in the working directory is loaded first when present.
// Environment variables override file values. Prefix: COOP_.
// Nested keys use underscore: COOP_DATABASE_HOST, COOP_VAULT_MASTER_SECRET, etc.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "coop_payments")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.connect_retries", 5)
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.connect_retries", 3)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "coop-payments")
	v.SetDefault("vault.master_secret", "")
	v.SetDefault("vault.master_secret_arn", "")
	v.SetDefault("vault.aws_region", "us-east-1")
	v.SetDefault("settlement.shared_secret", "")
	v.SetDefault("settlement.max_drift", "60s")
	v.SetDefault("settlement.nonce_ttl", "5m")
	v.SetDefault("probe.timeout", "10s")
	v.SetDefault("probe.sweep_interval", "0s")
	v.SetDefault("probe.sweep_concurrency", 4)
	v.SetDefault("probe.rate_per_second", 1.0)
	v.SetDefault("probe.burst", 3)
	v.SetDefault("probe.gateway_base_url", "https://api.mercadopago.com")
	v.SetDefault("probe.gateway_allowed_hosts", []string{})
	v.SetDefault("catalog.base_currency", "ARS")
	v.SetDefault("catalog.cache_ttl", "5m")
	v.SetDefault("catalog.default_page_size", 20)
	v.SetDefault("catalog.max_page_size", 100)
	v.SetDefault("ratelimit.verify_per_minute", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: COOP_DATABASE_HOST -> database.host
	v.SetEnvPrefix("COOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required; env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
