package routes

import (
	"net/http"

	"github.com/igrejaonline/portal/internal/app"
	"github.com/igrejaonline/portal/internal/handler"
	"github.com/igrejaonline/portal/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	auth := handler.NewAuthHandler(app.Identity, app.Cfg.IsProduction())
	users := handler.NewUserHandler(app.UserService)
	studies := handler.NewStudyHandler(app.StudyService)
	blog := handler.NewBlogHandler(app.BlogService)
	forum := handler.NewForumHandler(app.ForumService)
	events := handler.NewEventHandler(app.EventService)
	health := handler.NewHealthHandler(app.DB)

	rateLimited := middleware.RateLimitAuth(app.AuthLimiter)
	requireAuth := middleware.RequireAuth

	mux := http.NewServeMux()

	// ============================================================================
	// OPERATIONS
	// ============================================================================

	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.Handle("GET /metrics", app.Metrics.Handler())

	// ============================================================================
	// AUTH
	// ============================================================================

	mux.HandleFunc("POST /api/register", rateLimited(auth.Register))
	mux.HandleFunc("POST /api/login", rateLimited(auth.Login))
	mux.HandleFunc("POST /api/logout", auth.Logout)
	mux.HandleFunc("GET /api/user", requireAuth(auth.CurrentUser))
	mux.HandleFunc("PATCH /api/user", requireAuth(users.Update))
	mux.HandleFunc("POST /api/user/avatar", requireAuth(users.UploadAvatar))
	mux.HandleFunc("GET /api/users/{id}", users.Show)

	// ============================================================================
	// CONTENT (reads are public, writes need a session)
	// ============================================================================

	mux.HandleFunc("GET /api/bible-studies", studies.List)
	mux.HandleFunc("GET /api/bible-studies/{id}", studies.Show)
	mux.HandleFunc("POST /api/bible-studies", requireAuth(studies.Create))

	mux.HandleFunc("GET /api/blog-posts", blog.List)
	mux.HandleFunc("GET /api/blog-posts/featured", blog.Featured)
	mux.HandleFunc("GET /api/blog-posts/{id}", blog.Show)
	mux.HandleFunc("POST /api/blog-posts", requireAuth(blog.Create))

	mux.HandleFunc("GET /api/forum-topics", forum.ListTopics)
	mux.HandleFunc("GET /api/forum-topics/{id}", forum.ShowTopic)
	mux.HandleFunc("POST /api/forum-topics", requireAuth(forum.CreateTopic))
	mux.HandleFunc("POST /api/forum-replies", requireAuth(forum.CreateReply))

	mux.HandleFunc("GET /api/events", events.List)
	mux.HandleFunc("GET /api/events/upcoming", events.Upcoming)
	mux.HandleFunc("GET /api/events/{id}", events.Show)
	mux.HandleFunc("POST /api/events", requireAuth(events.Create))

	mux.HandleFunc("/api/", notFound)

	return middleware.Chain(mux,
		middleware.Recover,
		middleware.RealIP(app.Cfg.TrustedProxies),
		middleware.RequestLogging(app.Metrics, middleware.MuxRoute(mux)),
		middleware.SecurityHeaders,
		middleware.CSRFProtection(app.Cfg.AppURL),
		middleware.Deadline(app.Cfg.DBTimeout),
		middleware.Authenticate(app.Identity, app.Cfg.IsProduction()),
	)
}

func notFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(`{"message":"Not found"}`))
}
