package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/samber/oops"

	"github.com/igrejaonline/portal/internal/logger"
)

// Recover turns a handler panic into a logged 500 so one bad request never
// takes the process down. http.ErrAbortHandler is re-raised as net/http
// expects.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			err := oops.Code("HANDLER_PANIC").
				With("method", r.Method).
				With("path", r.URL.Path).
				With("stack", string(debug.Stack())).
				Errorf("panic: %v", fmt.Sprint(rec))
			logger.LogError(slog.Default(), "handler panicked", err)

			writeError(w, http.StatusInternalServerError, "Internal server error")
		}()

		next.ServeHTTP(w, r)
	})
}
