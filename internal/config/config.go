package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds service configuration.
type Config struct {
	// DatabaseURL selects the record store backend. Empty means the
	// in-memory store, useful for local runs and tests.
	DatabaseURL string

	ServerAddr          string
	SessionTTL          time.Duration
	SessionCookieName   string
	SessionCookieSecure bool

	// ReconcileInterval drives the background rebuild of the combined
	// inventory view. Zero disables the ticker.
	ReconcileInterval time.Duration

	// SessionPurgeInterval drives the expired-session sweep.
	SessionPurgeInterval time.Duration

	// BootstrapAdminUser/Pass seed an approved admin account on startup
	// when the username is still free. Empty user skips the bootstrap.
	BootstrapAdminUser string
	BootstrapAdminPass string
}

// Load reads configuration from the environment, with an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		ServerAddr:           getenv("SERVER_ADDR", "0.0.0.0:8080"),
		SessionTTL:           parseDuration(getenv("SESSION_TTL", "24h"), 24*time.Hour),
		SessionCookieName:    getenv("SESSION_COOKIE_NAME", "gemdesk_session"),
		SessionCookieSecure:  parseBool(getenv("SESSION_COOKIE_SECURE", "false"), false),
		ReconcileInterval:    parseDuration(getenv("RECONCILE_INTERVAL", "5m"), 5*time.Minute),
		SessionPurgeInterval: parseDuration(getenv("SESSION_PURGE_INTERVAL", "1h"), time.Hour),
		BootstrapAdminUser:   os.Getenv("BOOTSTRAP_ADMIN_USER"),
		BootstrapAdminPass:   os.Getenv("BOOTSTRAP_ADMIN_PASS"),
	}, nil
}

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func parseDuration(val string, def time.Duration) time.Duration {
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return d
}

func parseBool(val string, def bool) bool {
	if val == "" {
		return def
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}
	return b
}
