package transport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/rpggio/studyevents/internal/domain/activity"
	"github.com/rpggio/studyevents/internal/domain/app"
	"github.com/rpggio/studyevents/internal/domain/event"
	"github.com/rpggio/studyevents/internal/domain/participant"
	"github.com/rpggio/studyevents/internal/validation"
)

// EventService defines event operations needed by the REST API.
type EventService interface {
	Publish(ctx context.Context, req event.Request) (*event.PublishResult, error)
	DeleteCustomEvent(ctx context.Context, req event.Request) (bool, error)
	GetRecent(ctx context.Context, appID, studyID, userID string) ([]event.StudyActivityEvent, error)
	GetRecentGlobal(ctx context.Context, appID, userID string) ([]event.StudyActivityEvent, error)
	GetHistory(ctx context.Context, q event.HistoryQuery) (*event.HistoryPage, error)
}

// VersionService defines participant version operations needed by the REST API.
type VersionService interface {
	CreateFromAccount(ctx context.Context, account participant.Account) (*participant.CreateResult, error)
	CreateFromParticipant(ctx context.Context, appID string, p participant.Participant, tz *time.Location) (*participant.CreateResult, error)
	GetLatest(ctx context.Context, appID, healthCode string) (*participant.Version, error)
	Get(ctx context.Context, appID, healthCode string, version int) (*participant.Version, error)
	List(ctx context.Context, appID, healthCode string) ([]participant.Version, error)
	DeleteAll(ctx context.Context, appID, healthCode string) (int, error)
}

// AppService defines app configuration operations needed by the REST API.
type AppService interface {
	Create(ctx context.Context, req app.CreateRequest) (*app.App, error)
	Get(ctx context.Context, id string) (*app.App, error)
	Update(ctx context.Context, id string, req app.UpdateRequest) (*app.App, error)
}

// ActivityService defines activity operations needed by the REST API.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, appID string, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// Services contains all domain services served over HTTP.
type Services struct {
	Apps     AppService
	Events   EventService
	Versions VersionService
	Activity ActivityService
}

// Config wires the HTTP server.
type Config struct {
	Services Services
	// Auth scopes /v1 requests to an app. Required.
	Auth func(http.Handler) http.Handler
	// MCP is mounted at /mcp when set.
	MCP http.Handler
	// Metrics is served at /metrics when set.
	Metrics http.Handler
	Logger  *slog.Logger
}

// Server holds the REST handlers.
type Server struct {
	services Services
	validate *validator.Validate
	logger   *slog.Logger
}

// NewServer creates an HTTP router with middleware.
func NewServer(cfg Config) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	srv := &Server{
		services: cfg.Services,
		validate: validation.New(),
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", srv.handleHealth)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}
	if cfg.MCP != nil {
		r.Handle("/mcp", cfg.MCP)
		r.Handle("/mcp/*", cfg.MCP)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(authOrDeny(cfg.Auth))

		r.Get("/app", srv.handleGetApp)
		r.Put("/app", srv.handlePutApp)
		r.Get("/activity", srv.handleListActivity)

		r.Route("/participants/{userId}", func(r chi.Router) {
			r.Get("/events", srv.handleGetGlobalEvents)
			r.Route("/studies/{studyId}/events", func(r chi.Router) {
				r.Post("/", srv.handlePublishEvent)
				r.Get("/", srv.handleGetRecentEvents)
				r.Get("/{eventId}/history", srv.handleGetEventHistory)
				r.Delete("/{eventId}", srv.handleDeleteEvent)
			})
		})

		r.Route("/participant-versions", func(r chi.Router) {
			r.Post("/", srv.handleCreateFromParticipant)
			r.Post("/accounts", srv.handleCreateFromAccount)
			r.Get("/{healthCode}", srv.handleListVersions)
			r.Get("/{healthCode}/latest", srv.handleGetLatestVersion)
			r.Get("/{healthCode}/{version}", srv.handleGetVersion)
			r.Delete("/{healthCode}", srv.handleDeleteVersions)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// appID returns the app the request is scoped to. The auth middleware
// guarantees it on /v1 routes.
func appID(r *http.Request) string {
	id, _ := AppFromContext(r.Context())
	return id
}

func authOrDeny(auth func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if auth != nil {
		return auth
	}
	return func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeProblem(w, r, http.StatusUnauthorized, "authentication not configured")
		})
	}
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
