package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Consent response modes. Browser-facing deployments redirect; SPA sign-in
// pages that navigate themselves can ask for the location as JSON.
const (
	ConsentModeRedirect = "redirect"
	ConsentModeJSON     = "json"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	LogLevel       string
	RequestTimeout time.Duration

	// TrustedProxies are addresses or CIDR ranges of load balancers whose
	// X-Forwarded-For is believed. Empty means the TCP peer is the client.
	TrustedProxies []string

	// SignInFallbackPath receives error redirects when no client could be
	// resolved (unknown client_id, unreadable ticket).
	SignInFallbackPath  string
	ConsentResponseMode string

	TicketTTL   time.Duration
	AuthCodeTTL time.Duration
	SweepEvery  time.Duration

	DatabaseURL string
	Redis       RedisConfig
	Audit       AuditConfig
	RateLimit   RateLimitConfig

	// SeedDemo registers client c1 and user demo (password DemoPassword) at
	// startup.
	SeedDemo     bool
	DemoPassword string
}

// RedisConfig configures the shared ticket store. An empty URL selects the
// in-memory store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	KeyPrefix    string
}

// RateLimitConfig bounds sign-in attempts per client IP. The counters share
// the Redis connection when one is configured.
type RateLimitConfig struct {
	AuthenticateRequests int
	AuthenticateWindow   time.Duration
	Disabled             bool
}

// AuditConfig configures the audit sink. Without brokers events stay in memory.
type AuditConfig struct {
	KafkaBrokers []string
	Topic        string
	BufferSize   int
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:                getEnv("AUTHGATE_ADDR", ":8080"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		RequestTimeout:      getDuration("REQUEST_TIMEOUT", 30*time.Second),
		TrustedProxies:      splitList(os.Getenv("TRUSTED_PROXIES")),
		SignInFallbackPath:  getEnv("SIGNIN_FALLBACK_PATH", "/signin"),
		ConsentResponseMode: getEnv("CONSENT_RESPONSE_MODE", ConsentModeRedirect),
		TicketTTL:           getDuration("TICKET_TTL", 5*time.Minute),
		AuthCodeTTL:         getDuration("AUTH_CODE_TTL", 10*time.Minute),
		SweepEvery:          getDuration("SWEEP_INTERVAL", time.Minute),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			KeyPrefix:    getEnv("REDIS_KEY_PREFIX", "authgate:"),
		},
		Audit: AuditConfig{
			KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:        getEnv("AUDIT_TOPIC", "authgate.audit"),
			BufferSize:   getInt("AUDIT_BUFFER_SIZE", 256),
		},
		RateLimit: RateLimitConfig{
			AuthenticateRequests: getInt("RATE_LIMIT_AUTHENTICATE", 10),
			AuthenticateWindow:   getDuration("RATE_LIMIT_WINDOW", time.Minute),
			Disabled:             os.Getenv("DISABLE_RATE_LIMITING") == "true",
		},
		SeedDemo:     os.Getenv("SEED_DEMO") == "true",
		DemoPassword: getEnv("DEMO_PASSWORD", "demo"),
	}
	if cfg.ConsentResponseMode != ConsentModeJSON {
		cfg.ConsentResponseMode = ConsentModeRedirect
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
