package mcp

import (
	"context"
	"log/slog"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rpggio/studyevents/internal/domain/app"
	"github.com/rpggio/studyevents/internal/domain/event"
	"github.com/rpggio/studyevents/internal/domain/participant"
)

// EventService defines event operations needed by MCP.
type EventService interface {
	Publish(ctx context.Context, req event.Request) (*event.PublishResult, error)
	DeleteCustomEvent(ctx context.Context, req event.Request) (bool, error)
	GetRecent(ctx context.Context, appID, studyID, userID string) ([]event.StudyActivityEvent, error)
	GetRecentGlobal(ctx context.Context, appID, userID string) ([]event.StudyActivityEvent, error)
	GetHistory(ctx context.Context, q event.HistoryQuery) (*event.HistoryPage, error)
}

// VersionService defines participant version operations needed by MCP.
type VersionService interface {
	CreateFromParticipant(ctx context.Context, appID string, p participant.Participant, tz *time.Location) (*participant.CreateResult, error)
	GetLatest(ctx context.Context, appID, healthCode string) (*participant.Version, error)
	Get(ctx context.Context, appID, healthCode string, version int) (*participant.Version, error)
}

// AppService defines app operations needed by MCP.
type AppService interface {
	Get(ctx context.Context, id string) (*app.App, error)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Events   EventService
	Versions VersionService
	Apps     AppService
}

// Config contains server configuration.
type Config struct {
	Services    Services
	Resolver    AppResolver
	AuthEnabled bool
	// DefaultApp scopes tool calls when auth is disabled.
	DefaultApp    string
	TransportMode string // "stdio" or "http"
	Version       string
	Logger        *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	if cfg.Version == "" {
		cfg.Version = "0.1.0"
	}
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "studyevents",
		Version: cfg.Version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	// Middleware added last runs first, so the app and session are in the
	// context by the time traffic is logged.
	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))
	server.AddReceivingMiddleware(sessionMiddleware())
	// Stdio is local only and never authenticates.
	if cfg.TransportMode != "stdio" && cfg.AuthEnabled {
		server.AddReceivingMiddleware(authMiddleware(cfg.Resolver))
	} else {
		server.AddReceivingMiddleware(staticAppMiddleware(cfg.DefaultApp))
	}

	registerTools(server, cfg.Services, cfg.Logger)

	return server
}
