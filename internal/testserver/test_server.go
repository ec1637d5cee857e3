// Package testserver runs the full HTTP stack over an in-memory SQLite
// database for integration tests.
package testserver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/studyevents/internal/domain/activity"
	"github.com/rpggio/studyevents/internal/domain/app"
	"github.com/rpggio/studyevents/internal/domain/event"
	"github.com/rpggio/studyevents/internal/domain/participant"
	"github.com/rpggio/studyevents/internal/mcp"
	"github.com/rpggio/studyevents/internal/metrics"
	"github.com/rpggio/studyevents/internal/sqlite"
	"github.com/rpggio/studyevents/internal/transport"
)

type TestServer struct {
	Server  *httptest.Server
	DB      *sqlite.DB
	Metrics *metrics.Metrics
	Token   string
	AppID   string
}

// Option adjusts the services a TestServer is built with.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock fixes the time source of the event and version services.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New starts a server whose API key token resolves to appID.
func New(t *testing.T, token, appID string, opts ...Option) *TestServer {
	t.Helper()

	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	appRepo := sqlite.NewAppRepository(db)
	eventRepo := sqlite.NewEventRepository(db)
	versionRepo := sqlite.NewVersionRepository(db)
	activityRepo := sqlite.NewActivityRepository(db)
	apiKeys := sqlite.NewAPIKeyRepository(db)
	recorder := metrics.New()

	activitySvc := activity.NewService(activityRepo, nil)
	appSvc := app.NewService(appRepo, activitySvc, nil)
	eventSvc := event.NewService(eventRepo, appRepo, activitySvc, nil,
		event.WithClock(o.now),
		event.WithRecorder(recorder),
	)
	versionSvc := participant.NewService(versionRepo, activitySvc, nil,
		participant.WithClock(o.now),
		participant.WithRecorder(recorder),
	)

	mcpServer := mcp.NewServer(mcp.Config{
		Services:      mcp.Services{Events: eventSvc, Versions: versionSvc, Apps: appSvc},
		Resolver:      apiKeys,
		AuthEnabled:   true,
		TransportMode: "http",
	})
	router := transport.NewServer(transport.Config{
		Services: transport.Services{
			Apps:     appSvc,
			Events:   eventSvc,
			Versions: versionSvc,
			Activity: activitySvc,
		},
		Auth: transport.AuthMiddleware(apiKeys),
		MCP: sdkmcp.NewStreamableHTTPHandler(
			func(*http.Request) *sdkmcp.Server { return mcpServer },
			nil,
		),
		Metrics: recorder.Handler(),
	})
	server := httptest.NewServer(router)

	ts := &TestServer{
		Server:  server,
		DB:      db,
		Metrics: recorder,
		Token:   token,
		AppID:   appID,
	}

	require.NoError(t, ts.AddAPIKey(token, appID))

	t.Cleanup(func() {
		server.Close()
		_ = db.Close()
	})

	return ts
}

// AddAPIKey registers another token for appID.
func (ts *TestServer) AddAPIKey(token, appID string) error {
	return sqlite.NewAPIKeyRepository(ts.DB).Store(context.Background(), appID, token, "test")
}

// URL joins path onto the server address.
func (ts *TestServer) URL(path string) string {
	return ts.Server.URL + path
}
