// Package config reads server settings from ASTRES_* environment variables.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// EnvProduction turns on secure cookies and makes the CSRF key mandatory.
const EnvProduction = "production"

// Config holds everything the server needs at startup.
type Config struct {
	Env         string
	Addr        string
	DBDriver    string
	DatabaseURL string // file path for sqlite, URL for postgres

	CSRFKey          []byte
	CSRFKeyGenerated bool
	TrustedOrigins   []string

	AdminEmail    string
	AdminPassword string

	ResendKey         string
	EmailFrom         string
	SiteEmail         string
	ContactRelayURL   string
	DiscordWebhookURL string

	Location           *time.Location
	LogLevel           slog.Level
	RateLimitPerSecond int
}

// Production reports whether the server runs in production.
func (c *Config) Production() bool { return c.Env == EnvProduction }

// Load reads an optional .env file, then the environment, and validates
// the result.
func Load() (*Config, error) {
	// .env is optional when the environment is provided by the host.
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv.
// PRE: getenv is non-nil
// POST: Returns a validated Config or an error naming the bad key
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := &Config{
		Env:               get("ASTRES_ENV", "development"),
		Addr:              get("ASTRES_ADDR", ":8080"),
		DBDriver:          strings.ToLower(get("ASTRES_DB_DRIVER", DriverSQLite)),
		DatabaseURL:       get("ASTRES_DATABASE_URL", ""),
		AdminEmail:        get("ASTRES_ADMIN_EMAIL", ""),
		AdminPassword:     getenv("ASTRES_ADMIN_PASSWORD"),
		ResendKey:         get("ASTRES_RESEND_KEY", ""),
		EmailFrom:         get("ASTRES_EMAIL_FROM", "Son et Astres <noreply@sonetastres.fr>"),
		SiteEmail:         get("ASTRES_SITE_EMAIL", "sonetastres@gmail.com"),
		ContactRelayURL:   get("ASTRES_CONTACT_RELAY_URL", ""),
		DiscordWebhookURL: get("ASTRES_DISCORD_WEBHOOK_URL", ""),
		LogLevel:          parseLevel(get("ASTRES_LOG_LEVEL", "info")),
	}

	switch cfg.DBDriver {
	case DriverSQLite:
		if cfg.DatabaseURL == "" {
			cfg.DatabaseURL = "astres.db"
		}
	case DriverPostgres:
		u, err := url.Parse(cfg.DatabaseURL)
		if err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") || u.Host == "" {
			return nil, fmt.Errorf("config: ASTRES_DATABASE_URL must be a postgres:// URL when ASTRES_DB_DRIVER=postgres")
		}
	case DriverNone:
	default:
		return nil, fmt.Errorf("config: ASTRES_DB_DRIVER must be sqlite, postgres or none, got %q", cfg.DBDriver)
	}

	key, generated, err := csrfKey(getenv("ASTRES_CSRF_KEY"), cfg.Production())
	if err != nil {
		return nil, err
	}
	cfg.CSRFKey, cfg.CSRFKeyGenerated = key, generated

	loc, err := time.LoadLocation(get("ASTRES_TIMEZONE", "Europe/Paris"))
	if err != nil {
		return nil, fmt.Errorf("config: ASTRES_TIMEZONE: %w", err)
	}
	cfg.Location = loc

	rate, err := strconv.Atoi(get("ASTRES_RATE_LIMIT", "10"))
	if err != nil || rate < 1 {
		return nil, fmt.Errorf("config: ASTRES_RATE_LIMIT must be a positive integer")
	}
	cfg.RateLimitPerSecond = rate

	for _, origin := range strings.Split(getenv("ASTRES_TRUSTED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.TrustedOrigins = append(cfg.TrustedOrigins, origin)
		}
	}

	if (cfg.AdminEmail == "") != (cfg.AdminPassword == "") {
		return nil, fmt.Errorf("config: ASTRES_ADMIN_EMAIL and ASTRES_ADMIN_PASSWORD must be set together")
	}
	if cfg.ContactRelayURL != "" {
		u, err := url.Parse(cfg.ContactRelayURL)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("config: ASTRES_CONTACT_RELAY_URL is not a valid URL")
		}
	}
	return cfg, nil
}

// csrfKey decodes a hex-encoded 32 byte key. Outside production a missing
// key is replaced by a random one, so sessions do not survive a restart.
func csrfKey(keyHex string, production bool) ([]byte, bool, error) {
	if keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != 32 {
			return nil, false, fmt.Errorf("config: ASTRES_CSRF_KEY must be 64 hex characters (32 bytes)")
		}
		return key, false, nil
	}
	if production {
		return nil, false, fmt.Errorf("config: ASTRES_CSRF_KEY is required in production")
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, false, fmt.Errorf("config: generate CSRF key: %w", err)
	}
	return key, true, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
