// Package config reads process configuration from the environment. Unset or
// malformed values fall back to defaults so main stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DevSigningKey is the fallback signing key; production refuses to start with it.
const DevSigningKey = "dev-secret-key-change-in-production"

// Config is the full process configuration.
type Config struct {
	Environment string
	LogLevel    string
	Server      Server
	Auth        Auth
	Database    DatabaseConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Catalog     CatalogConfig
	Gateway     GatewayConfig
	// AuditBuffer > 0 persists audit events asynchronously.
	AuditBuffer int
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Auth configures bearer token validation on the HTTP surface.
type Auth struct {
	JWTSigningKey string
	Issuer        string
	// APIKeys maps a service name to the bcrypt hash of its key.
	APIKeys map[string]string
}

// DatabaseConfig enables the Postgres consent and ledger stores when URL is set.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Migrate         bool
}

// RedisConfig enables the distributed subject lock when URL is set.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	LockTTL      time.Duration
}

// KafkaConfig enables Kafka breach notifications when Brokers is set.
type KafkaConfig struct {
	Brokers         string
	BreachTopic     string
	Acks            string
	Retries         int
	DeliveryTimeout time.Duration
}

// CatalogConfig controls how the activity catalog is populated at startup.
type CatalogConfig struct {
	File        string
	SeedDefault bool
}

// GatewayConfig lists the subsystems holding subject data.
type GatewayConfig struct {
	Subsystems []Subsystem
	Timeout    time.Duration
	APIKey     string
}

// Subsystem is a remote data holder reached over HTTP.
type Subsystem struct {
	Name    string
	BaseURL string
}

// IsProduction reports whether the process runs with production defaults.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// UsesDevSigningKey reports whether no signing key was configured.
func (c Config) UsesDevSigningKey() bool {
	return c.Auth.JWTSigningKey == DevSigningKey
}

// FromEnv builds the configuration from CONSENTD_* variables.
func FromEnv() Config {
	return Config{
		Environment: env("CONSENTD_ENV", "development"),
		LogLevel:    env("CONSENTD_LOG_LEVEL", "info"),
		Server: Server{
			Addr:            env("CONSENTD_ADDR", ":8080"),
			ReadTimeout:     envDuration("CONSENTD_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    envDuration("CONSENTD_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: envDuration("CONSENTD_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Auth: Auth{
			JWTSigningKey: env("CONSENTD_JWT_SIGNING_KEY", DevSigningKey),
			Issuer:        os.Getenv("CONSENTD_JWT_ISSUER"),
			APIKeys:       parseAPIKeys(os.Getenv("CONSENTD_API_KEYS")),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("CONSENTD_DATABASE_URL"),
			MaxOpenConns:    envInt("CONSENTD_DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("CONSENTD_DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("CONSENTD_DB_CONN_MAX_LIFETIME", 5*time.Minute),
			Migrate:         envBool("CONSENTD_DB_MIGRATE", true),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("CONSENTD_REDIS_URL"),
			PoolSize:     envInt("CONSENTD_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("CONSENTD_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("CONSENTD_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("CONSENTD_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("CONSENTD_REDIS_WRITE_TIMEOUT", 3*time.Second),
			LockTTL:      envDuration("CONSENTD_REDIS_LOCK_TTL", 2*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:         os.Getenv("CONSENTD_KAFKA_BROKERS"),
			BreachTopic:     env("CONSENTD_KAFKA_BREACH_TOPIC", "consentd.breach-notifications"),
			Acks:            env("CONSENTD_KAFKA_ACKS", "all"),
			Retries:         envInt("CONSENTD_KAFKA_RETRIES", 3),
			DeliveryTimeout: envDuration("CONSENTD_KAFKA_DELIVERY_TIMEOUT", 30*time.Second),
		},
		Catalog: CatalogConfig{
			File:        os.Getenv("CONSENTD_CATALOG_FILE"),
			SeedDefault: envBool("CONSENTD_CATALOG_SEED", true),
		},
		Gateway: GatewayConfig{
			Subsystems: parseSubsystems(os.Getenv("CONSENTD_SUBSYSTEMS")),
			Timeout:    envDuration("CONSENTD_GATEWAY_TIMEOUT", 10*time.Second),
			APIKey:     os.Getenv("CONSENTD_GATEWAY_API_KEY"),
		},
		AuditBuffer: envInt("CONSENTD_AUDIT_BUFFER", 0),
	}
}

// parseSubsystems reads "name=url,name=url". Malformed entries are skipped.
func parseSubsystems(raw string) []Subsystem {
	var out []Subsystem
	for entry := range strings.SplitSeq(raw, ",") {
		name, url, ok := strings.Cut(strings.TrimSpace(entry), "=")
		name, url = strings.TrimSpace(name), strings.TrimSpace(url)
		if !ok || name == "" || url == "" {
			continue
		}
		out = append(out, Subsystem{Name: name, BaseURL: strings.TrimRight(url, "/")})
	}
	return out
}

// parseAPIKeys reads "name=hash,name=hash". Malformed entries are skipped.
func parseAPIKeys(raw string) map[string]string {
	out := make(map[string]string)
	for entry := range strings.SplitSeq(raw, ",") {
		name, hash, ok := strings.Cut(strings.TrimSpace(entry), "=")
		name, hash = strings.TrimSpace(name), strings.TrimSpace(hash)
		if !ok || name == "" || hash == "" {
			continue
		}
		out[name] = hash
	}
	return out
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}
