// Package config builds the process configuration from environment
// variables so main stays lean. Every knob has a default; Validate catches
// the combinations that cannot work before anything connects.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	platformstrings "sunset/pkg/platform/strings"
)

// Durable backend selection values.
const (
	BackendNone     = "none"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config is the full process configuration, constructed once in main and
// passed down.
type Config struct {
	Server    Server
	Log       Log
	Sources   Sources
	Resolve   Resolve
	Cache     Cache
	Redis     RedisConfig
	Postgres  PostgresConfig
	Kafka     Kafka
	Admin     Admin
	RateLimit RateLimit
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// Log captures logging configuration.
type Log struct {
	Level string
}

// Sources carries the outbound settings for the lifecycle sources. Base
// URLs point at the vendor endpoints by default; deployments behind
// mirrors override them.
type Sources struct {
	EndOfLifeBaseURL string
	MicrosoftBaseURL string
	RedHatBaseURL    string
	CanonicalBaseURL string
	UserAgent        string
	// PerSourceTimeout caps one source call inside an aggregation pass.
	PerSourceTimeout time.Duration
}

// Resolve tunes the resolution service.
type Resolve struct {
	// Timeout bounds one aggregation pass over the sources.
	Timeout          time.Duration
	BatchConcurrency int
	// MaxBatchSize caps one HTTP batch request.
	MaxBatchSize int
}

// Cache selects the durable tier and the TTL per confidence tier.
type Cache struct {
	// DurableBackend is one of none, redis, postgres.
	DurableBackend string
	ShortTTL       time.Duration
	MediumTTL      time.Duration
	LongTTL        time.Duration
}

// RedisConfig captures Redis connection settings.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig captures Postgres connection settings.
type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// ConnectTimeout bounds the startup ping retry loop.
	ConnectTimeout time.Duration
}

// Kafka captures the intake pipeline settings. No brokers means the intake
// consumer stays off.
type Kafka struct {
	Brokers        []string
	InventoryTopic string
	ResultsTopic   string
	GroupID        string
}

// Admin captures the admin credential configuration. Both fields empty
// means admin routes run unauthenticated (dev mode).
type Admin struct {
	JWTSigningKey string
	JWTIssuer     string
	// APIKeyHashes maps a key name to its bcrypt hash, parsed from
	// "name:hash,name:hash". Bcrypt hashes never contain commas or colons.
	APIKeyHashes map[string]string
}

// RateLimit bounds per-client traffic on the resolve routes. Zero requests
// disables enforcement.
type RateLimit struct {
	Requests int
	Window   time.Duration
}

// FromEnv builds a Config from SUNSET_* environment variables. Unset or
// unparseable values fall back to their defaults.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:            envString("SUNSET_ADDR", ":8080"),
			ShutdownTimeout: envDuration("SUNSET_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Log: Log{
			Level: envString("SUNSET_LOG_LEVEL", "info"),
		},
		Sources: Sources{
			EndOfLifeBaseURL: envString("SUNSET_SOURCE_ENDOFLIFE_URL", "https://endoflife.date"),
			MicrosoftBaseURL: envString("SUNSET_SOURCE_MICROSOFT_URL", "https://learn.microsoft.com"),
			RedHatBaseURL:    envString("SUNSET_SOURCE_REDHAT_URL", "https://access.redhat.com/product-life-cycles"),
			CanonicalBaseURL: envString("SUNSET_SOURCE_CANONICAL_URL", "https://ubuntu.com/api"),
			UserAgent:        envString("SUNSET_SOURCE_USER_AGENT", ""),
			PerSourceTimeout: envDuration("SUNSET_SOURCE_TIMEOUT", 4*time.Second),
		},
		Resolve: Resolve{
			Timeout:          envDuration("SUNSET_RESOLVE_TIMEOUT", 5*time.Second),
			BatchConcurrency: envInt("SUNSET_BATCH_CONCURRENCY", 8),
			MaxBatchSize:     envInt("SUNSET_MAX_BATCH_SIZE", 50),
		},
		Cache: Cache{
			DurableBackend: envString("SUNSET_DURABLE_BACKEND", BackendNone),
			ShortTTL:       envDuration("SUNSET_TTL_SHORT", 6*time.Hour),
			MediumTTL:      envDuration("SUNSET_TTL_MEDIUM", 72*time.Hour),
			LongTTL:        envDuration("SUNSET_TTL_LONG", 28*24*time.Hour),
		},
		Redis: RedisConfig{
			URL:          envString("SUNSET_REDIS_URL", ""),
			PoolSize:     envInt("SUNSET_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("SUNSET_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("SUNSET_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("SUNSET_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("SUNSET_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: PostgresConfig{
			DSN:             envString("SUNSET_POSTGRES_DSN", ""),
			MaxOpenConns:    envInt("SUNSET_POSTGRES_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    envInt("SUNSET_POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("SUNSET_POSTGRES_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnectTimeout:  envDuration("SUNSET_POSTGRES_CONNECT_TIMEOUT", 30*time.Second),
		},
		Kafka: Kafka{
			Brokers:        envList("SUNSET_KAFKA_BROKERS"),
			InventoryTopic: envString("SUNSET_KAFKA_INVENTORY_TOPIC", "inventory.software"),
			ResultsTopic:   envString("SUNSET_KAFKA_RESULTS_TOPIC", "eol.resolved"),
			GroupID:        envString("SUNSET_KAFKA_GROUP", "sunset-eol"),
		},
		Admin: Admin{
			JWTSigningKey: envString("SUNSET_ADMIN_JWT_SECRET", ""),
			JWTIssuer:     envString("SUNSET_ADMIN_JWT_ISSUER", "sunset"),
			APIKeyHashes:  envPairs("SUNSET_ADMIN_API_KEY_HASHES"),
		},
		RateLimit: RateLimit{
			Requests: envInt("SUNSET_RATE_LIMIT_REQUESTS", 0),
			Window:   envDuration("SUNSET_RATE_LIMIT_WINDOW", time.Minute),
		},
	}
}

// Validate rejects configurations that cannot start.
func (c Config) Validate() error {
	switch c.Cache.DurableBackend {
	case BackendNone, BackendRedis, BackendPostgres:
	default:
		return fmt.Errorf("unknown durable backend %q", c.Cache.DurableBackend)
	}
	if c.Cache.DurableBackend == BackendRedis && c.Redis.URL == "" {
		return fmt.Errorf("durable backend is redis but SUNSET_REDIS_URL is empty")
	}
	if c.Cache.DurableBackend == BackendPostgres && c.Postgres.DSN == "" {
		return fmt.Errorf("durable backend is postgres but SUNSET_POSTGRES_DSN is empty")
	}
	if c.Resolve.MaxBatchSize < 1 {
		return fmt.Errorf("max batch size must be at least 1")
	}
	if c.Resolve.BatchConcurrency < 1 {
		return fmt.Errorf("batch concurrency must be at least 1")
	}
	if c.RateLimit.Requests > 0 && c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate limit window must be positive")
	}
	return nil
}

// AdminEnabled reports whether any admin credential is configured.
func (c Config) AdminEnabled() bool {
	return c.Admin.JWTSigningKey != "" || len(c.Admin.APIKeyHashes) > 0
}

// IntakeEnabled reports whether the Kafka intake pipeline is configured.
func (c Config) IntakeEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}

// RateLimitEnabled reports whether resolve routes enforce a per-client limit.
func (c Config) RateLimitEnabled() bool {
	return c.RateLimit.Requests > 0
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// envList splits a comma-separated value, dropping empty entries and
// duplicates.
func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	out := platformstrings.DedupeAndTrim(strings.Split(v, ","))
	if len(out) == 0 {
		return nil
	}
	return out
}

// envPairs parses "name:value,name:value" into a map, splitting each entry
// on the first colon.
func envPairs(key string) map[string]string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	out := make(map[string]string)
	for _, part := range strings.Split(v, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok || name == "" || value == "" {
			continue
		}
		out[name] = value
	}
	return out
}
