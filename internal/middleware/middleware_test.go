package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/igrejaonline/portal/internal/ctxkeys"
	"github.com/igrejaonline/portal/internal/metrics"
	"github.com/igrejaonline/portal/internal/model"
	"github.com/igrejaonline/portal/internal/service/identity"
)

type stubProvider struct {
	identity.Provider
	users map[string]*model.User
	err   error
}

func (p *stubProvider) CurrentUser(_ context.Context, token string) (*model.User, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.users[token], nil
}

func whoami(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	if user == nil {
		_, _ = w.Write([]byte("anonymous"))
		return
	}
	_, _ = w.Write([]byte(user.Username))
}

func TestAuthenticate(t *testing.T) {
	provider := &stubProvider{users: map[string]*model.User{"good": {ID: "1", Username: "bob"}}}
	h := Authenticate(provider, false)(http.HandlerFunc(whoami))

	t.Run("cookie token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/user", nil)
		r.AddCookie(&http.Cookie{Name: identity.CookieName, Value: "good"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		assert.Equal(t, "bob", rec.Body.String())
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("bearer token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/user", nil)
		r.Header.Set("Authorization", "Bearer good")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		assert.Equal(t, "bob", rec.Body.String())
	})

	t.Run("stale cookie is cleared", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/user", nil)
		r.AddCookie(&http.Cookie{Name: identity.CookieName, Value: "revoked"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		assert.Equal(t, "anonymous", rec.Body.String())
		require.Len(t, rec.Result().Cookies(), 1)
		assert.Empty(t, rec.Result().Cookies()[0].Value)
	})

	t.Run("resolution failure is recorded and keeps the cookie", func(t *testing.T) {
		var seen error
		failing := Authenticate(&stubProvider{err: errors.New("db down")}, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = ctxkeys.AuthError(r.Context())
			whoami(w, r)
		}))
		r := httptest.NewRequest(http.MethodGet, "/api/events", nil)
		r.AddCookie(&http.Cookie{Name: identity.CookieName, Value: "good"})
		rec := httptest.NewRecorder()
		failing.ServeHTTP(rec, r)
		assert.Equal(t, "anonymous", rec.Body.String(), "open reads still run")
		assert.EqualError(t, seen, "db down")
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("resolution failure behind RequireAuth is a 500", func(t *testing.T) {
		called := false
		gated := Authenticate(&stubProvider{err: errors.New("db down")}, false)(RequireAuth(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))
		r := httptest.NewRequest(http.MethodGet, "/api/user", nil)
		r.AddCookie(&http.Cookie{Name: identity.CookieName, Value: "good"})
		rec := httptest.NewRecorder()
		gated.ServeHTTP(rec, r)

		assert.False(t, called)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"message":"Error resolving session"}`, rec.Body.String())
	})
}

func TestRequireAuth(t *testing.T) {
	called := false
	h := RequireAuth(func(w http.ResponseWriter, r *http.Request) { called = true })

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/bible-studies", nil))

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not authenticated", body["message"])

	r := httptest.NewRequest(http.MethodPost, "/api/bible-studies", nil)
	r = r.WithContext(ctxkeys.WithUser(r.Context(), &model.User{ID: "1"}))
	h.ServeHTTP(httptest.NewRecorder(), r)
	assert.True(t, called)
}

func TestRecover(t *testing.T) {
	h := Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message":"Internal server error"}`, rec.Body.String())
}

func TestDeadline(t *testing.T) {
	var deadline time.Time
	var ok bool
	h := Deadline(50 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok = r.Context().Deadline()
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, time.Second)
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}), mark("a"), mark("b"), mark("c"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestRequestLogging_RecordsMetrics(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	m := metrics.New()
	h := RequestLogging(m, MuxRoute(mux))(mux)

	for _, path := range []string{
		"/api/events/6f1d7c8e-1111-4111-8111-111111111111",
		"/api/events/not-a-uuid",
		"/api/events/anything-else",
	} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	for i := range 3 {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, fmt.Sprintf("/random/%d", i), nil))
	}
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/api/events/{id}", "404")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", metrics.UnmatchedRoute, "404")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.RequestsTotal), "one series per route, however many paths")
}

func TestRateLimiter(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"), "limits are per client")

	now = now.Add(61 * time.Second)
	assert.True(t, rl.Allow("1.2.3.4"), "window slid past earlier requests")

	now = now.Add(10 * time.Minute)
	rl.cleanup()
	rl.mu.Lock()
	assert.Empty(t, rl.requests)
	rl.mu.Unlock()
}

func TestRateLimitAuth(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Stop()
	h := RateLimitAuth(rl)(func(w http.ResponseWriter, r *http.Request) {})

	r := httptest.NewRequest(http.MethodPost, "/api/login", nil)
	r.RemoteAddr = "10.0.0.1:5555"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "[::1]:8080"
	assert.Equal(t, "::1", ClientIP(r))

	r.Header.Set("X-Real-IP", "9.9.9.9")
	r.Header.Set("X-Forwarded-For", "1.1.1.1, 2.2.2.2")
	assert.Equal(t, "::1", ClientIP(r), "forwarding headers are ignored on their own")
}

func TestRealIP(t *testing.T) {
	trusted := []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("::1/128"),
	}

	tests := []struct {
		name    string
		trusted []netip.Prefix
		remote  string
		headers map[string][]string
		want    string
	}{
		{
			name:    "no trusted proxies ignores headers",
			remote:  "10.0.0.2:4000",
			headers: map[string][]string{"X-Forwarded-For": {"1.1.1.1"}},
			want:    "10.0.0.2",
		},
		{
			name:    "untrusted peer can't spoof",
			trusted: trusted,
			remote:  "203.0.113.9:4000",
			headers: map[string][]string{"X-Forwarded-For": {"1.1.1.1"}, "X-Real-IP": {"2.2.2.2"}},
			want:    "203.0.113.9",
		},
		{
			name:    "trusted peer forwards the client",
			trusted: trusted,
			remote:  "10.0.0.2:4000",
			headers: map[string][]string{"X-Forwarded-For": {"198.51.100.4"}},
			want:    "198.51.100.4",
		},
		{
			name:    "forged leftmost entry is skipped",
			trusted: trusted,
			remote:  "10.0.0.2:4000",
			headers: map[string][]string{"X-Forwarded-For": {"6.6.6.6, 198.51.100.4, 10.0.0.3"}},
			want:    "198.51.100.4",
		},
		{
			name:    "repeated headers are one list",
			trusted: trusted,
			remote:  "10.0.0.2:4000",
			headers: map[string][]string{"X-Forwarded-For": {"6.6.6.6", "198.51.100.4"}},
			want:    "198.51.100.4",
		},
		{
			name:    "all hops trusted",
			trusted: trusted,
			remote:  "10.0.0.2:4000",
			headers: map[string][]string{"X-Forwarded-For": {"10.1.1.1, 10.0.0.3"}},
			want:    "10.1.1.1",
		},
		{
			name:    "garbage stops the walk",
			trusted: trusted,
			remote:  "10.0.0.2:4000",
			headers: map[string][]string{"X-Forwarded-For": {"198.51.100.4, bogus"}},
			want:    "10.0.0.2",
		},
		{
			name:    "x-real-ip from a trusted peer",
			trusted: trusted,
			remote:  "[::1]:4000",
			headers: map[string][]string{"X-Real-IP": {"198.51.100.7"}},
			want:    "198.51.100.7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := RealIP(tt.trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = ClientIP(r)
			}))

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, vs := range tt.headers {
				for _, v := range vs {
					r.Header.Add(k, v)
				}
			}
			h.ServeHTTP(httptest.NewRecorder(), r)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRateLimitAuth_SpoofedForwardedFor(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Stop()
	h := RealIP(nil)(RateLimitAuth(rl)(func(w http.ResponseWriter, r *http.Request) {}))

	for i := range 2 {
		r := httptest.NewRequest(http.MethodPost, "/api/login", nil)
		r.RemoteAddr = "203.0.113.9:5555"
		r.Header.Set("X-Forwarded-For", fmt.Sprintf("1.1.1.%d", i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		if i == 0 {
			assert.Equal(t, http.StatusOK, rec.Code)
		} else {
			assert.Equal(t, http.StatusTooManyRequests, rec.Code, "rotating the header must not reset the budget")
		}
	}
}

func TestCSRFProtection(t *testing.T) {
	handler := CSRFProtection("https://igreja.example/app")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name    string
		method  string
		headers map[string]string
		want    int
	}{
		{"safe method from another site", http.MethodGet, map[string]string{"Sec-Fetch-Site": "cross-site", "Origin": "https://evil.example"}, http.StatusNoContent},
		{"write without browser headers", http.MethodPost, nil, http.StatusNoContent},
		{"same-origin write", http.MethodPost, map[string]string{"Sec-Fetch-Site": "same-origin"}, http.StatusNoContent},
		{"cross-site write", http.MethodPost, map[string]string{"Sec-Fetch-Site": "cross-site", "Origin": "https://evil.example"}, http.StatusForbidden},
		{"cross-site write from app url", http.MethodPost, map[string]string{"Sec-Fetch-Site": "cross-site", "Origin": "https://igreja.example"}, http.StatusNoContent},
		{"old browser cross-origin write", http.MethodPatch, map[string]string{"Origin": "https://evil.example"}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/forum-topics", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusForbidden {
				assert.JSONEq(t, `{"message":"cross-origin request rejected"}`, rec.Body.String())
			}
		})
	}
}

func TestOriginOf(t *testing.T) {
	origin, ok := originOf("https://igreja.example:8443/path?q=1")
	assert.True(t, ok)
	assert.Equal(t, "https://igreja.example:8443", origin)

	_, ok = originOf("not a url")
	assert.False(t, ok)
}
