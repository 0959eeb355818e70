package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures everything the server needs at start. Protocol constants
// live here rather than in the orchestrator so operators can tune them
// without a rebuild.
type Config struct {
	Addr            string
	AuthorityDomain string
	JWTSigningKey   string

	PostgresURL string
	Redis       RedisConfig
	SMTP        SMTPConfig
	Callback    CallbackConfig
	Policy      PolicyConfig
}

// RedisConfig holds connection settings for the optional Redis-backed
// transaction store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// SMTPConfig configures the verification mailer. An empty Host disables SMTP
// and the server falls back to a log-only mailer.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// SupportAddress receives domain-support requests from end users.
	SupportAddress string
}

// CallbackConfig tunes the pooled HTTP client used for sponsor callbacks.
type CallbackConfig struct {
	Timeout         time.Duration
	MaxIdleConns    int
	MaxConnsPerHost int
}

// PolicyConfig holds the transaction protocol constants.
type PolicyConfig struct {
	// CredentialsWindow bounds how long a sponsor-initiated transaction may
	// wait for the user's email address.
	CredentialsWindow time.Duration
	// VerificationWindow bounds how long the user has to enter the emailed
	// code once it is issued.
	VerificationWindow time.Duration
	// RetryBudget is the number of wrong code submissions tolerated before
	// the transaction is refused.
	RetryBudget int
	// BadgeValidity is how long a freshly minted badge lives.
	BadgeValidity time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Addr:            envOr("SIGIL_ADDR", ":8080"),
		AuthorityDomain: envOr("SIGIL_AUTHORITY_DOMAIN", "badges.localhost"),
		JWTSigningKey:   envOr("SIGIL_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		PostgresURL:     os.Getenv("SIGIL_POSTGRES_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("SIGIL_REDIS_URL"),
			PoolSize:     envIntOr("SIGIL_REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("SIGIL_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDurationOr("SIGIL_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("SIGIL_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("SIGIL_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		SMTP: SMTPConfig{
			Host:           os.Getenv("SIGIL_SMTP_HOST"),
			Port:           envIntOr("SIGIL_SMTP_PORT", 465),
			Username:       os.Getenv("SIGIL_SMTP_USERNAME"),
			Password:       os.Getenv("SIGIL_SMTP_PASSWORD"),
			From:           envOr("SIGIL_SMTP_FROM", "no-reply@badges.localhost"),
			SupportAddress: envOr("SIGIL_SUPPORT_ADDRESS", "support@badges.localhost"),
		},
		Callback: CallbackConfig{
			Timeout:         envDurationOr("SIGIL_CALLBACK_TIMEOUT", 10*time.Second),
			MaxIdleConns:    envIntOr("SIGIL_CALLBACK_MAX_IDLE_CONNS", 100),
			MaxConnsPerHost: envIntOr("SIGIL_CALLBACK_MAX_CONNS_PER_HOST", 20),
		},
		Policy: PolicyConfig{
			CredentialsWindow:  envDurationOr("SIGIL_CREDENTIALS_WINDOW", 15*time.Minute),
			VerificationWindow: envDurationOr("SIGIL_VERIFICATION_WINDOW", 10*time.Minute),
			RetryBudget:        envIntOr("SIGIL_RETRY_BUDGET", 3),
			BadgeValidity:      envDurationOr("SIGIL_BADGE_VALIDITY", 365*24*time.Hour),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
