package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/igrejaonline/portal/internal/apperr"
	"github.com/igrejaonline/portal/internal/auth"
	"github.com/igrejaonline/portal/internal/metrics"
	"github.com/igrejaonline/portal/internal/model"
	"github.com/igrejaonline/portal/internal/repository"
	"github.com/igrejaonline/portal/internal/validation"
)

// touchInterval bounds how often resolution writes last_seen_at back.
const touchInterval = time.Minute

// AuthService is the local identity provider: credentials are verified
// against the user directory and sessions live in a SessionRepository.
type AuthService struct {
	userRepository    repository.UserRepository
	sessionRepository repository.SessionRepository
	hasher            auth.Hasher
	emailService      *EmailService
	metrics           *metrics.Metrics
	sessionSecret     []byte
	sessionExpiry     time.Duration
	now               func() time.Time
}

func NewAuthService(
	userRepository repository.UserRepository,
	sessionRepository repository.SessionRepository,
	hasher auth.Hasher,
	emailService *EmailService,
	m *metrics.Metrics,
	sessionSecret string,
	sessionExpiry time.Duration,
) *AuthService {
	return &AuthService{
		userRepository:    userRepository,
		sessionRepository: sessionRepository,
		hasher:            hasher,
		emailService:      emailService,
		metrics:           m,
		sessionSecret:     []byte(sessionSecret),
		sessionExpiry:     sessionExpiry,
		now:               utcNow,
	}
}

func (s *AuthService) Name() string {
	return "local"
}

// Register creates the account and opens its first session. Duplicate
// usernames or emails are conflicts whether the pre-check or the insert
// catches them.
func (s *AuthService) Register(ctx context.Context, reg *model.Registration, client model.ClientInfo) (*model.AuthSession, error) {
	user, err := s.createUser(ctx, reg)
	if err != nil {
		s.metrics.RecordAuth("register", authResult(err))
		return nil, err
	}

	session, err := s.openSession(ctx, user, client)
	if err != nil {
		s.metrics.RecordAuth("register", metrics.ResultError)
		return nil, err
	}

	s.metrics.RecordAuth("register", metrics.ResultSuccess)
	slog.Info("user registered", "user_id", user.ID, "username", user.Username)

	if s.emailService != nil {
		err = s.emailService.SendWelcomeEmail(ctx, user.Email, user.DisplayName)
		if err != nil {
			slog.Warn("failed to send welcome email", "error", err, "user_id", user.ID)
		}
	}

	return session, nil
}

func (s *AuthService) createUser(ctx context.Context, reg *model.Registration) (*model.User, error) {
	username := strings.TrimSpace(reg.Username)
	email := normalizeEmail(reg.Email)
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

	// Fast path only; the unique constraints decide races.
	_, err := s.userRepository.ByUsername(ctx, username)
	if err == nil {
		return nil, apperr.Conflict("username already taken")
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	_, err = s.userRepository.ByEmail(ctx, email)
	if err == nil {
		return nil, apperr.Conflict("email already registered")
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	digest, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return nil, oops.Code("AUTH_HASH_FAILED").Wrap(err)
	}

	user := &model.User{
		ID:             uuid.New().String(),
		Username:       username,
		PasswordDigest: digest,
		DisplayName:    displayName,
		Email:          email,
		Avatar:         reg.Avatar,
		CreatedAt:      s.now(),
	}

	err = s.userRepository.Create(ctx, user)
	if err != nil {
		return nil, translateDuplicate(err)
	}

	return user, nil
}

// translateDuplicate maps late unique violations onto the same conflicts
// the pre-check reports.
func translateDuplicate(err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicateUsername):
		return apperr.WithCause(apperr.Conflict("username already taken"), err)
	case errors.Is(err, repository.ErrDuplicateEmail):
		return apperr.WithCause(apperr.Conflict("email already registered"), err)
	default:
		return err
	}
}

// Login never reveals which half of the credentials was wrong. Unknown
// accounts are verified against a dummy digest so both paths cost one KDF run.
func (s *AuthService) Login(ctx context.Context, creds *model.Credentials, client model.ClientInfo) (*model.AuthSession, error) {
	user, err := s.lookup(ctx, creds)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		s.metrics.RecordAuth("login", metrics.ResultError)
		return nil, err
	}

	digest := auth.DummyDigest
	if user != nil {
		digest = user.PasswordDigest
	}

	if !s.hasher.Verify(creds.Password, digest) || user == nil {
		s.metrics.RecordAuth("login", metrics.ResultFailure)
		return nil, apperr.InvalidCredentials()
	}

	session, err := s.openSession(ctx, user, client)
	if err != nil {
		s.metrics.RecordAuth("login", metrics.ResultError)
		return nil, err
	}

	s.metrics.RecordAuth("login", metrics.ResultSuccess)
	slog.Info("user logged in", "user_id", user.ID)
	return session, nil
}

func (s *AuthService) lookup(ctx context.Context, creds *model.Credentials) (*model.User, error) {
	if username := strings.TrimSpace(creds.Username); username != "" {
		return s.userRepository.ByUsername(ctx, username)
	}
	if email := normalizeEmail(creds.Email); email != "" {
		return s.userRepository.ByEmail(ctx, email)
	}
	return nil, repository.ErrUserNotFound
}

func (s *AuthService) openSession(ctx context.Context, user *model.User, client model.ClientInfo) (*model.AuthSession, error) {
	now := s.now()
	session := &model.Session{
		ID:         uuid.New().String(),
		UserID:     user.ID,
		UserAgent:  client.UserAgent,
		IPAddress:  client.IPAddress,
		ExpiresAt:  now.Add(s.sessionExpiry),
		CreatedAt:  now,
		LastSeenAt: now,
	}

	err := s.sessionRepository.Create(ctx, session)
	if err != nil {
		return nil, err
	}

	token, err := s.signToken(session)
	if err != nil {
		return nil, err
	}

	return &model.AuthSession{Token: token, ExpiresAt: session.ExpiresAt, User: user}, nil
}

// Logout revokes the session behind token. Unknown, expired and malformed
// tokens are already logged out, so they succeed too.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.parseToken(token)
	if err != nil {
		s.metrics.RecordAuth("logout", metrics.ResultSuccess)
		return nil
	}

	err = s.sessionRepository.Delete(ctx, claims.ID)
	if err != nil {
		s.metrics.RecordAuth("logout", metrics.ResultError)
		return err
	}

	s.metrics.RecordAuth("logout", metrics.ResultSuccess)
	return nil
}

// CurrentUser resolves token to its user. A nil user with a nil error means
// the caller is anonymous; an error means storage failed and the caller
// must still be treated as anonymous.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, nil
	}

	claims, err := s.parseToken(token)
	if err != nil {
		return nil, nil
	}

	session, err := s.sessionRepository.ByID(ctx, claims.ID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	if session.Expired(now) || session.UserID != claims.Subject {
		err = s.sessionRepository.Delete(ctx, session.ID)
		if err != nil {
			slog.Warn("failed to delete stale session", "error", err, "session_id", session.ID)
		}
		return nil, nil
	}

	user, err := s.userRepository.ByID(ctx, session.UserID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if now.Sub(session.LastSeenAt) >= touchInterval {
		err = s.sessionRepository.Touch(ctx, session.ID, now, session.ExpiresAt)
		if err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
			slog.Warn("failed to touch session", "error", err, "session_id", session.ID)
		}
	}

	return user, nil
}

func (s *AuthService) signToken(session *model.Session) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        session.ID,
		Subject:   session.UserID,
		IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
		ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.sessionSecret)
	if err != nil {
		return "", oops.Code("AUTH_SIGN_FAILED").Wrap(err)
	}
	return token, nil
}

func (s *AuthService) parseToken(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}

	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.sessionSecret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	if claims.ID == "" || claims.Subject == "" {
		return nil, errors.New("token has no session")
	}
	return claims, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func authResult(err error) string {
	switch apperr.KindOf(err) {
	case apperr.KindConflict:
		return metrics.ResultConflict
	case apperr.KindValidation, apperr.KindUnauthenticated:
		return metrics.ResultFailure
	default:
		return metrics.ResultError
	}
}

func utcNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
