package middleware

import (
	"log/slog"
	"net/http"

	"github.com/igrejaonline/portal/internal/ctxkeys"
	"github.com/igrejaonline/portal/internal/logger"
	"github.com/igrejaonline/portal/internal/service/identity"
)

// Authenticate resolves the session token into the caller and adds it to
// the context. Tokens that no longer resolve are cleared. When resolution
// itself fails (storage down, deadline) the request continues anonymous with
// the error recorded, so open reads still work and RequireAuth answers 500.
func Authenticate(provider identity.Provider, secureCookies bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := identity.TokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := ctxkeys.WithToken(r.Context(), token)

			user, err := provider.CurrentUser(ctx, token)
			if err != nil {
				logger.LogError(slog.Default(), "session resolution failed", err, "path", r.URL.Path)
				next.ServeHTTP(w, r.WithContext(ctxkeys.WithAuthError(ctx, err)))
				return
			}

			if user == nil {
				if _, cookieErr := r.Cookie(identity.CookieName); cookieErr == nil {
					identity.ClearCookie(w, secureCookies)
				}
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			ctx = ctxkeys.WithUser(ctx, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth answers 401 unless Authenticate put a user in the context. A
// session that could not be resolved is a server failure, not a logout.
func RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ctxkeys.User(r.Context()) == nil {
			if ctxkeys.AuthError(r.Context()) != nil {
				writeError(w, http.StatusInternalServerError, "Error resolving session")
				return
			}
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		next.ServeHTTP(w, r)
	}
}
