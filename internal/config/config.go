// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/meisaku0/backend/internal/security"
)

const defaultAccessTTL = 12 * time.Hour

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the JSON API listens on (e.g. :8000).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the address of the gRPC health server (e.g. :8081).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN. When empty the server runs on in-memory stores.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// DBMaxConns caps the pgx pool size.
	DBMaxConns int32 `mapstructure:"DB_MAX_CONNS"`

	// JWTSecret is the HS256 signing secret, at least 32 bytes.
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// JWTAccessTTL is the access token lifetime (e.g. "12h"). Refresh tokens live twice as long.
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// RefreshRotation issues a new refresh token on every refresh.
	RefreshRotation bool `mapstructure:"REFRESH_ROTATION"`

	// Argon2 work factors for new password hashes.
	Argon2MemoryKiB   uint32 `mapstructure:"ARGON2_MEMORY_KIB"`
	Argon2Iterations  uint32 `mapstructure:"ARGON2_ITERATIONS"`
	Argon2Parallelism uint8  `mapstructure:"ARGON2_PARALLELISM"`

	// BaseAPIURL prefixes links sent by mail (activation, password reset).
	BaseAPIURL string `mapstructure:"BASE_API_URL"`
	// Env is the application environment ("development", "production").
	Env string `mapstructure:"APP_ENV"`
	// LogLevel is a zerolog level name; empty means info (debug in development).
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// OTLPEndpoint is the OTLP gRPC collector (e.g. localhost:4317). Empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure disables TLS to the collector.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// KafkaBrokers is a comma-separated list of broker addresses. Empty disables Kafka:
	// auth events are not published and mail is logged instead of queued.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// AuthEventsTopic receives auth events as JSON.
	AuthEventsTopic string `mapstructure:"AUTH_EVENTS_TOPIC"`
	// MailOutboxTopic receives mail messages for the delivery service.
	MailOutboxTopic string `mapstructure:"MAIL_OUTBOX_TOPIC"`

	// Worker-only: Loki URL the auth event worker pushes to (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group of the auth event worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env.
func Load() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWorker is Load without the API-only checks; the worker never signs tokens.
func LoadWorker() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if len(cfg.KafkaBrokersList()) == 0 {
		return nil, errors.New("config: KAFKA_BROKERS must be set for the worker")
	}
	return cfg, nil
}

// LoadDatabase is Load for the migrate and seed tools: only DATABASE_URL is required.
func LoadDatabase() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, errors.New("config: DATABASE_URL is not set; set it in the environment or in .env")
	}
	return cfg, nil
}

func load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	def := security.DefaultArgon2Params()
	v.SetDefault("HTTP_ADDR", ":8000")
	v.SetDefault("GRPC_ADDR", ":8081")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ACCESS_TTL", "12h")
	v.SetDefault("REFRESH_ROTATION", true)
	v.SetDefault("ARGON2_MEMORY_KIB", def.MemoryKiB)
	v.SetDefault("ARGON2_ITERATIONS", def.Iterations)
	v.SetDefault("ARGON2_PARALLELISM", def.Parallelism)
	v.SetDefault("BASE_API_URL", "http://localhost:8000")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", true)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("AUTH_EVENTS_TOPIC", "meisaku-auth-events")
	v.SetDefault("MAIL_OUTBOX_TOPIC", "meisaku-mail-outbox")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "meisaku-auth-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.BaseAPIURL = strings.TrimRight(cfg.BaseAPIURL, "/")
	return &cfg, nil
}

// Validate checks the fields the API server cannot start without.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if len(c.JWTSecret) < security.MinSecretLength {
		return fmt.Errorf("config: JWT_SECRET must be at least %d bytes", security.MinSecretLength)
	}
	if d, err := time.ParseDuration(c.JWTAccessTTL); err != nil || d < time.Minute {
		return errors.New("config: JWT_ACCESS_TTL must be a duration of at least 1m")
	}
	if c.DBMaxConns < 1 {
		return errors.New("config: DB_MAX_CONNS must be positive")
	}
	return nil
}

// IsDevelopment reports whether APP_ENV selects development behavior (console logs, debug level).
func (c *Config) IsDevelopment() bool {
	return c.Env == "" || c.Env == "development"
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 12h if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return defaultAccessTTL
	}
	return d
}

// RefreshTTL is twice AccessTTL.
func (c *Config) RefreshTTL() time.Duration {
	return 2 * c.AccessTTL()
}

// Argon2Params returns the configured work factors over the defaults.
func (c *Config) Argon2Params() security.Argon2Params {
	p := security.DefaultArgon2Params()
	p.MemoryKiB = c.Argon2MemoryKiB
	p.Iterations = c.Argon2Iterations
	p.Parallelism = c.Argon2Parallelism
	return p
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// An empty list means Kafka is disabled.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
