package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rpggio/studyevents/internal/config"
	"github.com/rpggio/studyevents/internal/domain/activity"
	"github.com/rpggio/studyevents/internal/domain/app"
	"github.com/rpggio/studyevents/internal/domain/event"
	"github.com/rpggio/studyevents/internal/domain/participant"
	"github.com/rpggio/studyevents/internal/mcp"
	"github.com/rpggio/studyevents/internal/metrics"
	"github.com/rpggio/studyevents/internal/sqlite"
	"github.com/rpggio/studyevents/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Use stderr for logs in stdio mode to keep stdout clean for JSON-RPC.
	console := io.Writer(os.Stdout)
	if cfg.Transport.Mode == "stdio" {
		console = os.Stderr
	}
	logWriter, logFile := logOutput(console, cfg.Log)
	if logFile != nil {
		defer logFile.Close()
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		logger.Error("failed to prepare database path", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	apiKeys := sqlite.NewAPIKeyRepository(db)

	// studyevents create-key <app-id> [description]
	if len(os.Args) > 1 && os.Args[1] == "create-key" {
		if err := createKey(apiKeys, os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "create-key: %v\n", err)
			os.Exit(1)
		}
		return
	}

	appRepo := sqlite.NewAppRepository(db)
	eventRepo := sqlite.NewEventRepository(db)
	versionRepo := sqlite.NewVersionRepository(db)
	activityRepo := sqlite.NewActivityRepository(db)

	recorder := metrics.New()

	activitySvc := activity.NewService(activityRepo, logger)
	appSvc := app.NewService(appRepo, activitySvc, logger)
	eventSvc := event.NewService(eventRepo, appRepo, activitySvc, logger,
		event.WithMaxCascadeDepth(cfg.Events.MaxCascadeDepth),
		event.WithRetryAttempts(cfg.Events.RetryAttempts),
		event.WithRecorder(recorder),
	)
	versionSvc := participant.NewService(versionRepo, activitySvc, logger,
		participant.WithRetryAttempts(cfg.Events.RetryAttempts),
		participant.WithRecorder(recorder),
	)

	mcpServer := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Events:   eventSvc,
			Versions: versionSvc,
			Apps:     appSvc,
		},
		Resolver:      apiKeys,
		AuthEnabled:   cfg.Auth.Enabled,
		DefaultApp:    cfg.Auth.DefaultApp,
		TransportMode: cfg.Transport.Mode,
		Logger:        logger,
	})

	if cfg.Transport.Mode == "stdio" {
		runStdioMode(logger, mcpServer)
		return
	}

	auth := transport.StaticAppMiddleware(cfg.Auth.DefaultApp)
	if cfg.Auth.Enabled {
		auth = transport.AuthMiddleware(apiKeys)
	}
	router := transport.NewServer(transport.Config{
		Services: transport.Services{
			Apps:     appSvc,
			Events:   eventSvc,
			Versions: versionSvc,
			Activity: activitySvc,
		},
		Auth: auth,
		MCP: sdkmcp.NewStreamableHTTPHandler(
			func(*http.Request) *sdkmcp.Server { return mcpServer },
			&sdkmcp.StreamableHTTPOptions{SessionTimeout: 30 * time.Minute},
		),
		Metrics: recorder.Handler(),
		Logger:  logger,
	})
	runHTTPMode(logger, router, cfg.Server.Host, cfg.Server.Port, cfg.Auth.Enabled)
}

func createKey(keys *sqlite.APIKeyRepository, args []string) error {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return errors.New("usage: create-key <app-id> [description]")
	}
	token, err := keys.Create(context.Background(), args[0], strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func runStdioMode(logger *slog.Logger, mcpServer *sdkmcp.Server) {
	logger.Info("starting stdio transport", "auth", "disabled")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	// Run blocks until stdin closes or context is canceled.
	if err := mcpServer.Run(ctx, &sdkmcp.StdioTransport{}); err != nil {
		logger.Error("stdio server error", "error", err)
		os.Exit(1)
	}
}

func runHTTPMode(logger *slog.Logger, handler http.Handler, host string, port int, authEnabled bool) {
	addr := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", addr, "auth", authEnabled)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
		}
	}()

	waitForShutdown(logger, httpServer)
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func waitForShutdown(logger *slog.Logger, server *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
