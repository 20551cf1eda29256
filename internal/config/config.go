package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	SessionStoreDatabase = "database"
	SessionStoreMemory   = "memory"

	IdentityLocal    = "local"
	IdentitySupabase = "supabase"
)

type Config struct {
	// Application
	AppName     string
	AppEnv      string
	AppURL      string
	Port        string
	ContentPath string

	// Reverse proxies whose X-Forwarded-For / X-Real-IP headers are believed.
	// Empty means client addresses come from the TCP peer only.
	TrustedProxies []netip.Prefix

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver     string
	DBConnection string
	DBTimeout    time.Duration // Deadline applied to each request's storage work

	// Sessions
	SessionSecret string
	SessionExpiry time.Duration
	SessionStore  string // "database" or "memory"

	// Identity provider
	IdentityProvider  string // "local" or "supabase"
	SupabaseURL       string
	SupabaseKey       string
	SupabaseJWTSecret string

	// Abuse protection for /api/login and /api/register
	AuthRateLimit  int
	AuthRateWindow time.Duration

	// Email
	EmailFrom    string
	ResendAPIKey string

	// Observability (optional)
	SentryDSN string

	// Storage (S3-compatible, optional: avatar uploads are disabled without a bucket)
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Endpoint  string // Optional: for non-AWS providers
}

// Load reads the configuration from the environment (and .env when present).
// Every missing required key is reported in the returned error.
func Load() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	var missing []string
	required := func(key string) string {
		v := os.Getenv(key)
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg := &Config{
		AppName:     envString("APP_NAME", "Igreja Online"),
		AppEnv:      required("APP_ENV"), // 'development', 'production' or 'test'
		AppURL:      required("APP_URL"),
		Port:        envString("PORT", "8090"),
		ContentPath: envString("CONTENT_PATH", "content"),

		DBDriver:     envString("DB_DRIVER", "sqlite"),
		DBConnection: required("DB_CONNECTION"),
		DBTimeout:    envDuration("DB_TIMEOUT", 5*time.Second),

		SessionSecret: required("SESSION_SECRET"),
		SessionExpiry: envDuration("SESSION_EXPIRY", 168*time.Hour), // 7 days
		SessionStore:  envString("SESSION_STORE", SessionStoreDatabase),

		IdentityProvider:  envString("IDENTITY_PROVIDER", IdentityLocal),
		SupabaseURL:       envString("SUPABASE_URL", ""),
		SupabaseKey:       envString("SUPABASE_KEY", ""),
		SupabaseJWTSecret: envString("SUPABASE_JWT_SECRET", ""),

		AuthRateLimit:  envInt("AUTH_RATE_LIMIT", 20),
		AuthRateWindow: envDuration("AUTH_RATE_WINDOW", 15*time.Minute),

		EmailFrom:    envString("EMAIL_FROM", "noreply@example.com"),
		ResendAPIKey: envString("RESEND_API_KEY", ""),

		SentryDSN: envString("SENTRY_DSN", ""),

		S3Region:    envString("S3_REGION", "us-east-1"),
		S3Bucket:    envString("S3_BUCKET", ""),
		S3AccessKey: envString("S3_ACCESS_KEY", ""),
		S3SecretKey: envString("S3_SECRET_KEY", ""),
		S3Endpoint:  envString("S3_ENDPOINT", ""),
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	cfg.TrustedProxies, err = ParseTrustedProxies(os.Getenv("TRUSTED_PROXIES"))
	if err != nil {
		return nil, err
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the cross-field rules that a plain env lookup can't express.
func (c *Config) Validate() error {
	var errs []error

	if len(c.SessionSecret) < 32 {
		errs = append(errs, errors.New("SESSION_SECRET must be at least 32 bytes"))
	}

	switch c.SessionStore {
	case SessionStoreDatabase, SessionStoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown SESSION_STORE %q (supported: database, memory)", c.SessionStore))
	}

	switch c.IdentityProvider {
	case IdentityLocal:
	case IdentitySupabase:
		if c.SupabaseURL == "" || c.SupabaseKey == "" || c.SupabaseJWTSecret == "" {
			errs = append(errs, errors.New("supabase identity provider requires SUPABASE_URL, SUPABASE_KEY and SUPABASE_JWT_SECRET"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown IDENTITY_PROVIDER %q (supported: local, supabase)", c.IdentityProvider))
	}

	// Development allows email to run in log mode
	if c.IsProduction() && c.ResendAPIKey == "" {
		errs = append(errs, errors.New("production deployment requires RESEND_API_KEY"))
	}

	return errors.Join(errs...)
}

// ParseTrustedProxies reads a comma-separated list of CIDRs or bare addresses.
func ParseTrustedProxies(v string) ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, field := range strings.Split(v, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if strings.Contains(field, "/") {
			prefix, err := netip.ParsePrefix(field)
			if err != nil {
				return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q: %w", field, err)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(field)
		if err != nil {
			return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q: %w", field, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		slog.Warn("config invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return i
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// StorageEnabled reports whether avatar uploads have an S3 bucket to write to.
func (c *Config) StorageEnabled() bool {
	return c.S3Bucket != ""
}
