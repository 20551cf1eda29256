package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/samber/oops"
	auth "github.com/supabase-community/auth-go"
	"github.com/supabase-community/auth-go/types"

	"github.com/igrejaonline/portal/internal/apperr"
	"github.com/igrejaonline/portal/internal/metrics"
	"github.com/igrejaonline/portal/internal/model"
	"github.com/igrejaonline/portal/internal/repository"
	"github.com/igrejaonline/portal/internal/validation"
)

type SupabaseConfig struct {
	URL       string
	APIKey    string
	JWTSecret string
	// Client bounds every Supabase call; the auth client takes no context.
	Client *http.Client
}

// SupabaseProvider delegates credentials to Supabase Auth (GoTrue) and keeps
// a mirror row per account in the user directory so content can reference
// its author. Access tokens are verified locally with the project secret.
//
// Supabase logout only revokes refresh tokens, so access tokens presented to
// Logout are also remembered here until they expire.
type SupabaseProvider struct {
	client    auth.Client
	jwtSecret []byte
	users     repository.UserRepository
	metrics   *metrics.Metrics
	now       func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time // access token -> expiry
}

func NewSupabaseProvider(cfg SupabaseConfig, deps Dependencies) *SupabaseProvider {
	client := auth.New("", cfg.APIKey).WithCustomAuthURL(strings.TrimRight(cfg.URL, "/") + "/auth/v1")
	if cfg.Client != nil {
		client = client.WithClient(*cfg.Client)
	}

	return &SupabaseProvider{
		client:    client,
		jwtSecret: []byte(cfg.JWTSecret),
		users:     deps.Users,
		metrics:   deps.Metrics,
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		revoked:   map[string]time.Time{},
	}
}

func (p *SupabaseProvider) Name() string {
	return "supabase"
}

// gotrueError is the decoded body of a non-2xx Supabase Auth response.
type gotrueError struct {
	status    int
	Code      string `json:"error_code"`
	Msg       string `json:"msg"`
	ErrorName string `json:"error"`
	ErrorDesc string `json:"error_description"`
}

func (e *gotrueError) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.ErrorDesc
	}
	if msg == "" {
		msg = e.ErrorName
	}
	return fmt.Sprintf("supabase auth: status %d: %s %s", e.status, e.Code, msg)
}

func (e *gotrueError) duplicate() bool {
	switch e.Code {
	case "user_already_exists", "email_exists":
		return true
	}
	return strings.Contains(strings.ToLower(e.Msg), "already registered")
}

// The auth client reports rejections as "response status code <n>: <body>".
var statusPattern = regexp.MustCompile(`(?s)response status code (\d+): (.*)`)

// upstream classifies an auth client error. A *gotrueError is wrapped when
// Supabase answered, anything else means it could not be reached.
func upstream(op string, err error) error {
	m := statusPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return oops.Code("SUPABASE_UNAVAILABLE").With("op", op).Wrap(err)
	}
	status, _ := strconv.Atoi(m[1])
	ge := &gotrueError{status: status}
	_ = json.Unmarshal([]byte(m[2]), ge)
	return oops.Code("SUPABASE_REJECTED").With("op", op).Wrap(ge)
}

func rejection(err error) (*gotrueError, bool) {
	var ge *gotrueError
	ok := errors.As(err, &ge)
	return ge, ok
}

func (p *SupabaseProvider) Register(ctx context.Context, reg *model.Registration, _ model.ClientInfo) (*model.AuthSession, error) {
	session, err := p.register(ctx, reg)
	if err != nil {
		p.metrics.RecordAuth("register", resultOf(err))
		return nil, err
	}
	p.metrics.RecordAuth("register", metrics.ResultSuccess)
	return session, nil
}

func (p *SupabaseProvider) register(ctx context.Context, reg *model.Registration) (*model.AuthSession, error) {
	username := strings.TrimSpace(reg.Username)
	email := strings.ToLower(strings.TrimSpace(reg.Email))
	displayName := strings.TrimSpace(reg.DisplayName)

	for _, err := range []error{
		validation.ValidateUsername(username),
		validation.ValidateEmail(email),
		validation.ValidateName(displayName),
		validation.ValidatePassword(reg.Password),
	} {
		if err != nil {
			return nil, apperr.Validation("%s", err.Error())
		}
	}

	// Supabase knows nothing about usernames, so uniqueness is checked here.
	_, err := p.users.ByUsername(ctx, username)
	if err == nil {
		return nil, apperr.Conflict("username already taken")
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := p.client.Signup(types.SignupRequest{
		Email:    email,
		Password: reg.Password,
		Data:     map[string]interface{}{"username": username, "display_name": displayName},
	})
	if err != nil {
		err = upstream("signup", err)
		if ge, ok := rejection(err); ok && ge.duplicate() {
			return nil, apperr.WithCause(apperr.Conflict("email already registered"), err)
		}
		return nil, err
	}

	// Signup answers with a session, or with a bare user when the project
	// requires email confirmation.
	uid := out.Session.User.ID
	if uid == uuid.Nil {
		uid = out.User.ID
	}
	if uid == uuid.Nil {
		return nil, oops.Code("SUPABASE_BAD_RESPONSE").Errorf("signup response has no user id")
	}
	id := uid.String()

	user := &model.User{
		ID:             id,
		Username:       username,
		PasswordDigest: model.ExternalDigest,
		DisplayName:    displayName,
		Email:          email,
		Avatar:         reg.Avatar,
		CreatedAt:      p.now(),
	}

	err = p.users.Create(ctx, user)
	switch {
	case errors.Is(err, repository.ErrDuplicateUsername):
		slog.Warn("supabase account created without mirror row", "supabase_id", id, "username", username)
		return nil, apperr.WithCause(apperr.Conflict("username already taken"), err)
	case errors.Is(err, repository.ErrDuplicateEmail):
		return nil, apperr.WithCause(apperr.Conflict("email already registered"), err)
	case err != nil:
		return nil, err
	}

	slog.Info("user registered", "user_id", user.ID, "username", user.Username, "provider", p.Name())

	if out.Session.AccessToken == "" {
		return &model.AuthSession{User: user}, nil
	}
	return p.session(&out.Session, user), nil
}

func (p *SupabaseProvider) Login(ctx context.Context, creds *model.Credentials, _ model.ClientInfo) (*model.AuthSession, error) {
	session, err := p.login(ctx, creds)
	if err != nil {
		p.metrics.RecordAuth("login", resultOf(err))
		return nil, err
	}
	p.metrics.RecordAuth("login", metrics.ResultSuccess)
	return session, nil
}

func (p *SupabaseProvider) login(ctx context.Context, creds *model.Credentials) (*model.AuthSession, error) {
	email := strings.ToLower(strings.TrimSpace(creds.Email))
	if username := strings.TrimSpace(creds.Username); username != "" {
		user, err := p.users.ByUsername(ctx, username)
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperr.InvalidCredentials()
		}
		if err != nil {
			return nil, err
		}
		email = user.Email
	}
	if email == "" {
		return nil, apperr.InvalidCredentials()
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := p.client.Token(types.TokenRequest{
		GrantType: "password",
		Email:     email,
		Password:  creds.Password,
	})
	if err != nil {
		err = upstream("token", err)
		if ge, ok := rejection(err); ok && ge.status >= 400 && ge.status < 500 {
			return nil, apperr.WithCause(apperr.InvalidCredentials(), err)
		}
		return nil, err
	}
	if out.AccessToken == "" || out.User.ID == uuid.Nil {
		return nil, oops.Code("SUPABASE_BAD_RESPONSE").Errorf("token response has no session")
	}

	user, err := p.users.ByID(ctx, out.User.ID.String())
	if errors.Is(err, repository.ErrUserNotFound) {
		// Account created outside the portal; it has no profile here.
		return nil, apperr.InvalidCredentials()
	}
	if err != nil {
		return nil, err
	}

	return p.session(&out.Session, user), nil
}

// Logout revokes the refresh tokens of the session upstream and blocks the
// access token locally until it expires. Tokens Supabase no longer
// recognizes are already logged out.
func (p *SupabaseProvider) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	if claims, ok := p.verify(token); ok {
		p.revoke(token, claims.ExpiresAt)
	}

	if err := ctx.Err(); err != nil {
		p.metrics.RecordAuth("logout", metrics.ResultError)
		return err
	}
	err := p.client.WithToken(token).Logout()
	if err != nil {
		err = upstream("logout", err)
		if ge, ok := rejection(err); !ok || ge.status >= 500 {
			p.metrics.RecordAuth("logout", metrics.ResultError)
			return err
		}
	}

	p.metrics.RecordAuth("logout", metrics.ResultSuccess)
	return nil
}

func (p *SupabaseProvider) revoke(token string, exp *jwt.NumericDate) {
	now := p.now()
	until := now.Add(time.Hour)
	if exp != nil {
		until = exp.Time
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for t, e := range p.revoked {
		if !e.After(now) {
			delete(p.revoked, t)
		}
	}
	p.revoked[token] = until
}

func (p *SupabaseProvider) isRevoked(token string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.revoked[token]
	return ok
}

func (p *SupabaseProvider) verify(token string) (*jwt.RegisteredClaims, bool) {
	claims, ok := p.verify(token)
	if !ok || p.isRevoked(token) {
		return nil, nil
	}

	user, err := p.users.ByID(ctx, claims.Subject)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (p *SupabaseProvider) session(out *types.Session, user *model.User) *model.AuthSession {
	return &model.AuthSession{
		Token:     out.AccessToken,
		ExpiresAt: p.now().Add(time.Duration(out.ExpiresIn) * time.Second),
		User:      user,
	}
}

func resultOf(err error) string {
	switch apperr.KindOf(err) {
	case apperr.KindConflict:
		return metrics.ResultConflict
	case apperr.KindValidation, apperr.KindUnauthenticated:
		return metrics.ResultFailure
	default:
		return metrics.ResultError
	}
}
