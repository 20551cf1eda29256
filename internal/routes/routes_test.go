package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/netip"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igrejaonline/portal/internal/app"
	"github.com/igrejaonline/portal/internal/config"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv, _ := newServerWithApp(t)
	return srv
}

func newServerWithApp(t *testing.T, opts ...func(*config.Config)) (*httptest.Server, *app.App) {
	t.Helper()

	cfg := &config.Config{
		AppName:          "Igreja Online",
		AppEnv:           "test",
		AppURL:           "http://localhost",
		DBDriver:         "sqlite",
		DBConnection:     filepath.Join(t.TempDir(), "portal.db"),
		DBTimeout:        5 * time.Second,
		SessionSecret:    "test-secret-test-secret-test-secret",
		SessionExpiry:    time.Hour,
		SessionStore:     config.SessionStoreDatabase,
		IdentityProvider: config.IdentityLocal,
		AuthRateLimit:    1000,
		AuthRateWindow:   time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	require.NoError(t, cfg.Validate())

	a, err := app.New(context.Background(), cfg)
	require.NoError(t, err)

	srv := httptest.NewServer(SetupRoutes(a))
	t.Cleanup(func() {
		srv.Close()
		_ = a.Close()
	})
	return srv, a
}

func newClient(t *testing.T) *http.Client {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

type response struct {
	status int
	body   []byte
}

func (r response) decode(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.body, v), string(r.body))
}

func (r response) message(t *testing.T) string {
	var m struct {
		Message string `json:"message"`
	}
	r.decode(t, &m)
	return m.Message
}

func call(t *testing.T, client *http.Client, srv *httptest.Server, method, path string, payload any) response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, srv.URL+path, body)
	require.NoError(t, err)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return response{status: resp.StatusCode, body: data}
}

func register(t *testing.T, client *http.Client, srv *httptest.Server, username string) map[string]any {
	t.Helper()
	resp := call(t, client, srv, http.MethodPost, "/api/register", map[string]string{
		"username":    username,
		"password":    "secret123",
		"displayName": "Member " + username,
		"email":       username + "@example.com",
	})
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))

	var user map[string]any
	resp.decode(t, &user)
	return user
}

func TestSessionLifecycle(t *testing.T) {
	srv := newServer(t)
	client := newClient(t)

	user := register(t, client, srv, "bob")
	assert.Equal(t, "bob", user["username"])
	assert.NotContains(t, user, "passwordDigest")
	assert.NotContains(t, user, "password")

	resp := call(t, client, srv, http.MethodGet, "/api/user", nil)
	require.Equal(t, http.StatusOK, resp.status)
	var me map[string]any
	resp.decode(t, &me)
	assert.Equal(t, user["id"], me["id"])

	resp = call(t, client, srv, http.MethodPost, "/api/logout", nil)
	assert.Equal(t, http.StatusOK, resp.status)

	resp = call(t, client, srv, http.MethodGet, "/api/user", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.status)
	assert.Equal(t, "not authenticated", resp.message(t))

	t.Run("logout without a session", func(t *testing.T) {
		resp := call(t, client, srv, http.MethodPost, "/api/logout", nil)
		assert.Equal(t, http.StatusOK, resp.status)
	})

	t.Run("login again", func(t *testing.T) {
		resp := call(t, client, srv, http.MethodPost, "/api/login", map[string]string{"username": "bob", "password": "secret123"})
		require.Equal(t, http.StatusOK, resp.status)

		resp = call(t, client, srv, http.MethodGet, "/api/user", nil)
		assert.Equal(t, http.StatusOK, resp.status)
	})
}

func TestSessionStoreFailure(t *testing.T) {
	srv, a := newServerWithApp(t)
	client := newClient(t)
	register(t, client, srv, "olga")

	require.NoError(t, a.DB.Close())

	resp := call(t, client, srv, http.MethodGet, "/api/user", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.status)
	assert.Equal(t, "Error resolving session", resp.message(t))

	resp = call(t, client, srv, http.MethodPost, "/api/bible-studies", map[string]any{
		"title": "Estudo", "content": "Conteúdo", "summary": "Resumo",
	})
	assert.Equal(t, http.StatusInternalServerError, resp.status, "an outage is not a logout")

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	assert.NotEmpty(t, client.Jar.Cookies(u), "session cookie survives the outage")
}

func TestLoginSecrecy(t *testing.T) {
	srv := newServer(t)
	register(t, newClient(t), srv, "carol")

	wrongPassword := call(t, newClient(t), srv, http.MethodPost, "/api/login", map[string]string{"username": "carol", "password": "wrong-pass"})
	unknownUser := call(t, newClient(t), srv, http.MethodPost, "/api/login", map[string]string{"username": "nobody", "password": "wrong-pass"})

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.status)
	assert.Equal(t, wrongPassword.status, unknownUser.status)
	assert.Equal(t, string(wrongPassword.body), string(unknownUser.body))
	assert.Equal(t, "invalid credentials", wrongPassword.message(t))
}

func TestRegistrationRace(t *testing.T) {
	srv := newServer(t)

	const n = 4
	statuses := make([]int, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := call(t, newClient(t), srv, http.MethodPost, "/api/register", map[string]string{
				"username":    "alice",
				"password":    "secret123",
				"displayName": "Alice",
				"email":       "alice@example.com",
			})
			statuses[i] = resp.status
		}()
	}
	wg.Wait()

	created, rejected := 0, 0
	for _, s := range statuses {
		switch s {
		case http.StatusCreated:
			created++
		case http.StatusBadRequest:
			rejected++
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, n-1, rejected)
}

func TestRegistrationValidation(t *testing.T) {
	srv := newServer(t)
	client := newClient(t)

	resp := call(t, client, srv, http.MethodPost, "/api/register", map[string]string{"username": "dan"})
	assert.Equal(t, http.StatusBadRequest, resp.status)
	assert.NotEmpty(t, resp.message(t))

	register(t, client, srv, "dan")
	resp = call(t, newClient(t), srv, http.MethodPost, "/api/register", map[string]string{
		"username": "dan", "password": "secret123", "displayName": "Dan", "email": "dan2@example.com",
	})
	assert.Equal(t, http.StatusBadRequest, resp.status)
	assert.Equal(t, "username already taken", resp.message(t))
}

func TestAccessGate(t *testing.T) {
	srv := newServer(t)
	anonymous := newClient(t)

	study := map[string]any{
		"title":    "As Parábolas de Jesus",
		"content":  "Estudo sobre as parábolas.",
		"summary":  "Parábolas",
		"authorId": "00000000-0000-0000-0000-000000000000",
	}

	writes := map[string]any{
		"/api/bible-studies": study,
		"/api/blog-posts":    map[string]any{"title": "t", "content": "c", "summary": "s"},
		"/api/forum-topics":  map[string]any{"title": "Título", "content": "Conteúdo com mais de vinte letras"},
		"/api/forum-replies": map[string]any{"topicId": uuid.NewString(), "content": "Amém!"},
		"/api/events":        map[string]any{"title": "t"},
	}
	for path, payload := range writes {
		t.Run("anonymous POST "+path, func(t *testing.T) {
			resp := call(t, anonymous, srv, http.MethodPost, path, payload)
			assert.Equal(t, http.StatusUnauthorized, resp.status)
			assert.Equal(t, "not authenticated", resp.message(t))
		})
	}

	resp := call(t, anonymous, srv, http.MethodGet, "/api/bible-studies", nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.JSONEq(t, "[]", string(resp.body), "rejected writes stored nothing")

	member := newClient(t)
	user := register(t, member, srv, "erin")

	resp = call(t, member, srv, http.MethodPost, "/api/bible-studies", study)
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))
	var created map[string]any
	resp.decode(t, &created)
	assert.Equal(t, user["id"], created["authorId"])

	resp = call(t, anonymous, srv, http.MethodGet, "/api/bible-studies/"+created["id"].(string), nil)
	assert.Equal(t, http.StatusOK, resp.status, "reads stay open")
}

func TestBlogViews(t *testing.T) {
	srv := newServer(t)
	member := newClient(t)
	register(t, member, srv, "frank")

	resp := call(t, member, srv, http.MethodPost, "/api/blog-posts", map[string]any{
		"title":    "Graça e Paz",
		"content":  "Uma palavra de encorajamento.",
		"summary":  "Encorajamento",
		"featured": true,
	})
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))
	var post map[string]any
	resp.decode(t, &post)
	id := post["id"].(string)

	const k = 5
	var wg sync.WaitGroup
	for range k {
		wg.Add(1)
		go func() {
			defer wg.Done()
			call(t, http.DefaultClient, srv, http.MethodGet, "/api/blog-posts/"+id, nil)
		}()
	}
	wg.Wait()

	resp = call(t, http.DefaultClient, srv, http.MethodGet, "/api/blog-posts/"+id, nil)
	resp.decode(t, &post)
	assert.EqualValues(t, k+1, post["views"])
	assert.Contains(t, post["contentHtml"], "<p>")

	resp = call(t, http.DefaultClient, srv, http.MethodGet, "/api/blog-posts/featured", nil)
	require.Equal(t, http.StatusOK, resp.status)
}

func TestForum(t *testing.T) {
	srv := newServer(t)
	member := newClient(t)
	user := register(t, member, srv, "grace")

	resp := call(t, member, srv, http.MethodPost, "/api/forum-topics", map[string]any{
		"title":   "Pedidos de oração",
		"content": "Compartilhe aqui seus pedidos de oração.",
	})
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))
	var topic map[string]any
	resp.decode(t, &topic)
	topicID := topic["id"].(string)
	assert.Equal(t, user["id"], topic["author"].(map[string]any)["id"])

	const n = 6
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := call(t, member, srv, http.MethodPost, "/api/forum-replies", map[string]any{"topicId": topicID, "content": "Orando por você"})
			assert.Equal(t, http.StatusCreated, resp.status)
		}()
	}
	wg.Wait()

	resp = call(t, http.DefaultClient, srv, http.MethodGet, "/api/forum-topics/"+topicID, nil)
	require.Equal(t, http.StatusOK, resp.status)

	var detail struct {
		Topic struct {
			Views       int        `json:"views"`
			ReplyCount  int        `json:"replyCount"`
			LastReplyAt *time.Time `json:"lastReplyAt"`
		} `json:"topic"`
		Replies []struct {
			CreatedAt time.Time      `json:"createdAt"`
			Author    map[string]any `json:"author"`
		} `json:"replies"`
	}
	resp.decode(t, &detail)
	assert.Equal(t, 1, detail.Topic.Views)
	assert.Equal(t, n, detail.Topic.ReplyCount)
	require.Len(t, detail.Replies, n)
	require.NotNil(t, detail.Topic.LastReplyAt)
	assert.True(t, detail.Replies[n-1].CreatedAt.Equal(*detail.Topic.LastReplyAt))
	assert.Equal(t, user["id"], detail.Replies[0].Author["id"])

	t.Run("reply to missing topic", func(t *testing.T) {
		resp := call(t, member, srv, http.MethodPost, "/api/forum-replies", map[string]any{"topicId": uuid.NewString(), "content": "Alguém aí?"})
		assert.Equal(t, http.StatusNotFound, resp.status)
		assert.Equal(t, "Forum topic not found", resp.message(t))
	})

	t.Run("short topic title", func(t *testing.T) {
		resp := call(t, member, srv, http.MethodPost, "/api/forum-topics", map[string]any{"title": "Oi", "content": "Conteúdo com mais de vinte letras"})
		assert.Equal(t, http.StatusBadRequest, resp.status)
	})
}

func TestEvents(t *testing.T) {
	srv := newServer(t)
	member := newClient(t)
	register(t, member, srv, "heidi")

	start := time.Now().Add(24 * time.Hour).UTC()
	resp := call(t, member, srv, http.MethodPost, "/api/events", map[string]any{
		"title":       "Culto Especial de Louvor",
		"description": "Uma noite de louvor e adoração",
		"location":    "Templo principal",
		"startTime":   start,
		"endTime":     start.Add(2 * time.Hour),
	})
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))

	resp = call(t, member, srv, http.MethodPost, "/api/events", map[string]any{
		"title":       "Ao contrário",
		"description": "Termina antes de começar",
		"location":    "Salão",
		"startTime":   start,
		"endTime":     start.Add(-time.Hour),
	})
	assert.Equal(t, http.StatusBadRequest, resp.status)

	var upcoming []map[string]any
	resp = call(t, http.DefaultClient, srv, http.MethodGet, "/api/events/upcoming", nil)
	resp.decode(t, &upcoming)
	assert.Len(t, upcoming, 1)
}

func TestUsersSafeSubset(t *testing.T) {
	srv := newServer(t)
	user := register(t, newClient(t), srv, "ivan")

	resp := call(t, http.DefaultClient, srv, http.MethodGet, "/api/users/"+user["id"].(string), nil)
	require.Equal(t, http.StatusOK, resp.status)

	var public map[string]any
	resp.decode(t, &public)
	assert.Equal(t, "ivan", public["username"])
	assert.NotContains(t, public, "email")
	assert.NotContains(t, public, "passwordDigest")

	resp = call(t, http.DefaultClient, srv, http.MethodGet, "/api/users/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, resp.status)
}

func TestInvalidIDs(t *testing.T) {
	srv := newServer(t)

	for _, path := range []string{
		"/api/bible-studies/42",
		"/api/blog-posts/not-a-uuid",
		"/api/forum-topics/abc",
		"/api/events/1",
		"/api/users/x",
	} {
		t.Run(path, func(t *testing.T) {
			resp := call(t, http.DefaultClient, srv, http.MethodGet, path, nil)
			assert.Equal(t, http.StatusBadRequest, resp.status)
			assert.Equal(t, "Invalid ID format", resp.message(t))
		})
	}

	resp := call(t, http.DefaultClient, srv, http.MethodGet, "/api/events/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, resp.status)
	assert.Equal(t, "Event not found", resp.message(t))
}

func TestOperationalEndpoints(t *testing.T) {
	srv := newServer(t)

	resp := call(t, http.DefaultClient, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.status)

	call(t, http.DefaultClient, srv, http.MethodGet, "/api/events", nil)
	resp = call(t, http.DefaultClient, srv, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Contains(t, string(resp.body), `portal_http_requests_total{method="GET",route="/api/events",status="200"} 1`)

	resp = call(t, http.DefaultClient, srv, http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.status)
}

func TestMetricsRouteLabels(t *testing.T) {
	srv := newServer(t)

	for _, path := range []string{
		"/api/forum-topics/not-a-uuid",
		"/api/forum-topics/also-not-a-uuid",
		"/api/nope/1",
		"/api/nope/2",
		"/wp-login.php",
		"/.env",
	} {
		call(t, http.DefaultClient, srv, http.MethodGet, path, nil)
	}

	resp := call(t, http.DefaultClient, srv, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.status)
	body := string(resp.body)

	assert.Contains(t, body, `portal_http_requests_total{method="GET",route="/api/forum-topics/{id}",status="400"} 2`)
	assert.Contains(t, body, `portal_http_requests_total{method="GET",route="/api/",status="404"} 2`)
	assert.Contains(t, body, `portal_http_requests_total{method="GET",route="unmatched",status="404"} 2`)
	assert.NotContains(t, body, "not-a-uuid")
	assert.NotContains(t, body, "wp-login")
}

func TestLoginRateLimitClientAddress(t *testing.T) {
	login := func(t *testing.T, srv *httptest.Server, forwardedFor string) int {
		t.Helper()
		body := strings.NewReader(`{"username":"nobody","password":"wrong-password"}`)
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/login", body)
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", forwardedFor)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		return resp.StatusCode
	}
	limitOne := func(cfg *config.Config) { cfg.AuthRateLimit = 1 }

	t.Run("forwarded-for ignored without trusted proxies", func(t *testing.T) {
		srv, _ := newServerWithApp(t, limitOne)

		assert.NotEqual(t, http.StatusTooManyRequests, login(t, srv, "198.51.100.1"))
		assert.Equal(t, http.StatusTooManyRequests, login(t, srv, "198.51.100.2"))
	})

	t.Run("forwarded-for honoured behind a trusted proxy", func(t *testing.T) {
		srv, _ := newServerWithApp(t, limitOne, func(cfg *config.Config) {
			cfg.TrustedProxies = []netip.Prefix{
				netip.MustParsePrefix("127.0.0.0/8"),
				netip.MustParsePrefix("::1/128"),
			}
		})

		assert.NotEqual(t, http.StatusTooManyRequests, login(t, srv, "198.51.100.1"))
		assert.Equal(t, http.StatusTooManyRequests, login(t, srv, "198.51.100.1"))
		assert.NotEqual(t, http.StatusTooManyRequests, login(t, srv, "198.51.100.2"))
	})
}
