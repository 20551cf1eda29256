package ctxkeys

import (
	"context"

	"github.com/igrejaonline/portal/internal/model"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	UserKey  contextKey = "user"
	TokenKey contextKey = "session_token"

	AuthErrorKey contextKey = "auth_error"
)

// User returns the authenticated caller, or nil for anonymous requests.
func User(ctx context.Context) *model.User {
	user, _ := ctx.Value(UserKey).(*model.User)
	return user
}

func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// Token returns the raw session token the request presented, if any.
func Token(ctx context.Context) string {
	token, _ := ctx.Value(TokenKey).(string)
	return token
}

func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, TokenKey, token)
}

// AuthError returns the error that kept the request's session from resolving.
// Anonymous requests and resolved sessions have none.
func AuthError(ctx context.Context) error {
	err, _ := ctx.Value(AuthErrorKey).(error)
	return err
}

func WithAuthError(ctx context.Context, err error) context.Context {
	return context.WithValue(ctx, AuthErrorKey, err)
}
