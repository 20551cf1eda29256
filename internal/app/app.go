package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/igrejaonline/portal/internal/auth"
	"github.com/igrejaonline/portal/internal/config"
	"github.com/igrejaonline/portal/internal/db"
	"github.com/igrejaonline/portal/internal/markdown"
	"github.com/igrejaonline/portal/internal/metrics"
	"github.com/igrejaonline/portal/internal/middleware"
	"github.com/igrejaonline/portal/internal/repository"
	"github.com/igrejaonline/portal/internal/service"
	"github.com/igrejaonline/portal/internal/service/identity"
	"github.com/igrejaonline/portal/internal/storage"
)

// memorySessionSweep is how often the in-memory session store drops
// expired sessions.
const memorySessionSweep = 10 * time.Minute

// App owns every long-lived dependency. It is built once by New, in a fixed
// order, and released once by Close.
type App struct {
	Cfg          *config.Config
	DB           *sqlx.DB
	Metrics      *metrics.Metrics
	Identity     identity.Provider
	UserService  *service.UserService
	StudyService *service.StudyService
	BlogService  *service.BlogService
	ForumService *service.ForumService
	EventService *service.EventService
	AuthLimiter  *middleware.RateLimiter

	closers []func() error
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Cfg: cfg}

	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a.DB = database
	a.closers = append(a.closers, database.Close)

	// Run database migrations
	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Repositories
	userRepository := repository.NewUserRepository(database)
	studyRepository := repository.NewStudyRepository(database)
	blogRepository := repository.NewBlogRepository(database)
	forumRepository := repository.NewForumRepository(database)
	eventRepository := repository.NewEventRepository(database)

	var sessionRepository repository.SessionRepository
	switch cfg.SessionStore {
	case config.SessionStoreMemory:
		memory := repository.NewMemorySessionRepository(memorySessionSweep)
		a.closers = append(a.closers, memory.Close)
		sessionRepository = memory
	default:
		sessionRepository = repository.NewSessionRepository(database)
	}

	// Storage (nil when no bucket is configured)
	avatarStorage, err := storage.New(ctx, cfg)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Services
	a.Metrics = metrics.New()
	emailService := service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.AppURL,
		cfg.AppName,
		cfg.IsDevelopment(),
	)

	a.Identity, err = identity.NewProvider(cfg, identity.Dependencies{
		Users:        userRepository,
		Sessions:     sessionRepository,
		Hasher:       auth.NewScryptHasher(),
		EmailService: emailService,
		Metrics:      a.Metrics,
	})
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to initialize identity provider: %w", err)
	}

	parser := markdown.NewParser()
	a.UserService = service.NewUserService(userRepository, avatarStorage)
	a.StudyService = service.NewStudyService(studyRepository, parser)
	a.BlogService = service.NewBlogService(blogRepository, parser)
	a.ForumService = service.NewForumService(forumRepository, userRepository)
	a.EventService = service.NewEventService(eventRepository)

	a.AuthLimiter = middleware.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow)
	a.closers = append(a.closers, func() error {
		a.AuthLimiter.Stop()
		return nil
	})

	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
