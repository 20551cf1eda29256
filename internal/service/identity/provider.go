// Package identity selects how callers register, sign in and are resolved
// from their session token.
package identity

import (
	"context"

	"github.com/igrejaonline/portal/internal/model"
	"github.com/igrejaonline/portal/internal/service"
)

// Provider defines the interface that all identity providers must implement
type Provider interface {
	// Register creates an account and, when the backend allows it, signs it in
	Register(ctx context.Context, reg *model.Registration, client model.ClientInfo) (*model.AuthSession, error)

	// Login exchanges credentials for a session. Every failure is the same
	// "invalid credentials" error
	Login(ctx context.Context, creds *model.Credentials, client model.ClientInfo) (*model.AuthSession, error)

	// Logout revokes the session behind token; unknown tokens succeed
	Logout(ctx context.Context, token string) error

	// CurrentUser resolves a session token. (nil, nil) means anonymous
	CurrentUser(ctx context.Context, token string) (*model.User, error)

	// Name returns the provider name (e.g., "local", "supabase")
	Name() string
}

var _ Provider = (*service.AuthService)(nil)
