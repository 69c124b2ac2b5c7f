// Package server assembles the daemon: configuration, logging, the
// panel manager, the HTTP surface, and the websocket channel.
package server

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/storydock/panelhost/internal/api/http"
	"github.com/storydock/panelhost/internal/api/middleware"
	"github.com/storydock/panelhost/internal/api/ws"
	"github.com/storydock/panelhost/internal/client"
	"github.com/storydock/panelhost/internal/domain/panel"
	"github.com/storydock/panelhost/internal/flair"
	"github.com/storydock/panelhost/internal/host"
	"github.com/storydock/panelhost/internal/infrastructure/config"
	"github.com/storydock/panelhost/internal/infrastructure/monitoring"
	"github.com/storydock/panelhost/internal/infrastructure/tracing"
	"github.com/storydock/panelhost/internal/logging"
	"github.com/storydock/panelhost/internal/render"
	"github.com/storydock/panelhost/internal/vault"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	router  *gin.Engine
	panels  *panel.Manager
	tokens  *vault.Store
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
}

// NewServer creates a server instance from configuration.
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	logger.Info("Initializing panelhost",
		zap.String("addr", cfg.Server.SurfaceOrigin()),
		zap.String("api_origin", cfg.API.Origin),
	)

	metrics := monitoring.NewMetrics()
	tracer := tracing.New("panelhost", logger.Logger)

	flairs := flair.Default()
	if cfg.Panel.FlairFile != "" {
		loaded, err := flair.Load(cfg.Panel.FlairFile)
		if err != nil {
			logger.Warn("flair file load failed, using builtins",
				zap.String("path", cfg.Panel.FlairFile),
				zap.Error(err))
		} else {
			flairs = loaded
			logger.Info("flair table loaded", zap.String("path", cfg.Panel.FlairFile))
		}
	}

	tokens, err := vault.New(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open token vault: %w", err)
	}

	snapshots, err := panel.NewSnapshotStore(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot store: %w", err)
	}

	surfaceOrigin := cfg.Server.SurfaceOrigin()
	assets := render.NewAssetRegistry(surfaceOrigin)
	builder := render.NewBuilder(cfg.API.Origin, surfaceOrigin, flairs)
	bridge := host.NewLogBridge(logger)

	panels := panel.NewManager(builder, assets, bridge, tokens, snapshots, logger)

	apiClient := client.New(cfg.API.Origin, logger)
	apiClient.SetRateLimit(cfg.API.RPS)
	stories := client.NewStories(apiClient, tokens)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(middleware.DefaultCORSConfig(surfaceOrigin)))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := http.NewHandlers(panels, assets, stories, metrics, logger, cfg.Panel.ExtensionRoot)
	wsHandler := ws.NewHandler(panels, bridge, tokens, logger).WithMetrics(metrics)

	router.GET("/health", handlers.Health)

	// Panel lifecycle, driven by the editor.
	router.POST("/panel/show", handlers.ShowPanel)
	router.POST("/panel/revive", handlers.RevivePanel)
	router.DELETE("/panel", handlers.DisposePanel)
	router.GET("/panel", handlers.PanelStatus)

	// Surface-facing endpoints: markup, resources, and the channel.
	router.GET("/surface/:id", handlers.Surface)
	router.GET("/assets/*filepath", handlers.Asset)
	router.GET("/stream/:id", wsHandler.HandleConnection)

	router.GET("/metrics", metrics.Handler())

	logger.Info("Server initialized")

	return &Server{
		router:  router,
		panels:  panels,
		tokens:  tokens,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}, nil
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Router exposes the configured engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Close disposes the live panel, if any, and flushes the logger.
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	s.panels.Dispose(context.Background())

	s.logger.Sync()
	return nil
}
