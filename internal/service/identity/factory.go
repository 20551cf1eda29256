package identity

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/igrejaonline/portal/internal/auth"
	"github.com/igrejaonline/portal/internal/config"
	"github.com/igrejaonline/portal/internal/metrics"
	"github.com/igrejaonline/portal/internal/repository"
	"github.com/igrejaonline/portal/internal/service"
)

// Dependencies are the collaborators a provider may need.
type Dependencies struct {
	Users        repository.UserRepository
	Sessions     repository.SessionRepository
	Hasher       auth.Hasher
	EmailService *service.EmailService
	Metrics      *metrics.Metrics
}

// NewProvider creates an identity provider based on configuration
func NewProvider(cfg *config.Config, deps Dependencies) (Provider, error) {
	provider := cfg.IdentityProvider

	slog.Info("initializing identity provider", "provider", provider)

	switch provider {
	case config.IdentityLocal:
		return service.NewAuthService(
			deps.Users,
			deps.Sessions,
			deps.Hasher,
			deps.EmailService,
			deps.Metrics,
			cfg.SessionSecret,
			cfg.SessionExpiry,
		), nil

	case config.IdentitySupabase:
		if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
			return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_KEY are required when using Supabase provider")
		}
		if cfg.SupabaseJWTSecret == "" {
			return nil, fmt.Errorf("SUPABASE_JWT_SECRET is required when using Supabase provider")
		}
		return NewSupabaseProvider(SupabaseConfig{
			URL:       cfg.SupabaseURL,
			APIKey:    cfg.SupabaseKey,
			JWTSecret: cfg.SupabaseJWTSecret,
			Client:    &http.Client{Timeout: 10 * time.Second},
		}, deps), nil

	default:
		return nil, fmt.Errorf("unknown identity provider: %s (supported: local, supabase)", provider)
	}
}
