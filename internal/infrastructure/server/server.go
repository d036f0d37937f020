package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/codecraft-ai/backend/internal/api/http"
	"github.com/codecraft-ai/backend/internal/api/middleware"
	"github.com/codecraft-ai/backend/internal/api/ws"
	"github.com/codecraft-ai/backend/internal/domain/renderer"
	"github.com/codecraft-ai/backend/internal/domain/renderer/sandbox"
	"github.com/codecraft-ai/backend/internal/domain/session"
	"github.com/codecraft-ai/backend/internal/infrastructure/config"
	"github.com/codecraft-ai/backend/internal/infrastructure/monitoring"
	"github.com/codecraft-ai/backend/internal/infrastructure/tracing"
	"github.com/codecraft-ai/backend/internal/logging"
	"github.com/codecraft-ai/backend/internal/providers/ai"
	"github.com/codecraft-ai/backend/internal/providers/auth"
	"github.com/codecraft-ai/backend/internal/storage"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	sessions   *session.Manager
	pool       *sandbox.Pool
	mongo      *storage.Mongo
	cache      *storage.Cache
	logger     *logging.Logger
	config     *config.Config
}

// NewServer builds the full dependency graph from configuration. Optional
// backends degrade instead of failing: no Mongo URI means in-memory
// persistence, no Redis means no read cache, and a sandbox that cannot load
// its transpiler means previews skip the server-side preflight.
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stdout"},
	})
	if err != nil {
		logger = logging.NewDefault()
	}

	logger.Info("Initializing CodeCraft AI backend",
		zap.String("port", cfg.Server.Port),
		zap.String("model", cfg.AI.Model),
	)

	metrics := monitoring.NewMetrics()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Persistence. Mongo when configured, in-memory otherwise.
	var (
		persist storage.Persistence
		mongo   *storage.Mongo
	)
	if cfg.Storage.MongoURI != "" {
		m, err := storage.NewMongo(ctx, cfg.Storage.MongoURI, cfg.Storage.Database)
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
		mongo = m
		persist = m
		logger.Info("Connected to MongoDB", zap.String("database", cfg.Storage.Database))
	} else {
		persist = storage.NewMemory()
		logger.Warn("MONGO_URI not set, sessions will not survive restarts")
	}

	var (
		cache        *storage.Cache
		sessionCache storage.SessionCache
	)
	if cfg.Storage.RedisURL != "" {
		c, err := storage.NewCache(ctx, cfg.Storage.RedisURL)
		if err != nil {
			logger.Warn("Redis unavailable, continuing without read cache", zap.Error(err))
		} else {
			cache = c
			sessionCache = c
			logger.Info("Connected to Redis")
		}
	}
	store := storage.NewStore(persist, sessionCache)

	// Preview rendering. The asset cache feeds both the sandbox transpiler
	// and the /assets routes.
	docCfg := renderer.DefaultDocumentConfig()
	assets := renderer.NewAssetCache(docCfg, cfg.Sandbox.AssetCacheDir)

	var pool *sandbox.Pool
	if cfg.Sandbox.Enabled {
		if err := assets.Prefetch(ctx); err != nil {
			logger.Warn("Asset prefetch failed, first render pays the download", zap.Error(err))
		}
		babel, err := assets.Script(ctx, renderer.AssetBabel)
		if err != nil {
			logger.Warn("Transpiler unavailable, preflight disabled", zap.Error(err))
		} else {
			p, err := sandbox.NewPool(cfg.Sandbox.PoolSize, sandbox.Config{
				Timeout:       time.Duration(cfg.Sandbox.TimeoutSeconds) * time.Second,
				EnableConsole: true,
				MaxCallStack:  1024,
			}, string(babel))
			if err != nil {
				logger.Warn("Sandbox pool failed to warm, preflight disabled", zap.Error(err))
			} else {
				pool = p
				logger.Info("Sandbox pool ready", zap.Int("size", cfg.Sandbox.PoolSize))
			}
		}
	}
	renderEngine := renderer.New(pool, docCfg)

	// Providers and the session manager.
	aiClient := ai.New(ai.Config{
		APIKey:  cfg.AI.APIKey,
		BaseURL: cfg.AI.BaseURL,
		Model:   cfg.AI.Model,
	}).WithMetrics(metrics)
	if cfg.AI.APIKey == "" {
		logger.Warn("OPENROUTER_API_KEY not set, generation will fail")
	}

	authProvider := auth.NewProvider(persist)
	bridge := ws.NewBridge(authProvider, logger, metrics)
	sessions := session.NewManager(store, aiClient, renderEngine, bridge, logger).
		WithMetrics(metrics)

	// Router.
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracing.New("backend", logger.Logger)))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(sessions, authProvider, assets, bridge, metrics, logger)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/auth/signup", handlers.Signup)
	router.POST("/auth/login", handlers.Login)

	// The preview document and runtime scripts load inside the sandboxed
	// iframe, which carries no credentials.
	router.GET("/sessions/:id/preview", handlers.Preview)
	router.GET("/assets/:name", handlers.Asset)

	// The bridge authenticates per role inside the handler.
	router.GET("/stream", bridge.HandleConnection)

	protected := router.Group("/", middleware.Auth(authProvider))
	protected.POST("/auth/logout", handlers.Logout)
	protected.GET("/auth/me", handlers.Me)
	protected.POST("/sessions", handlers.CreateSession)
	protected.GET("/sessions", handlers.ListSessions)
	protected.GET("/sessions/:id", handlers.GetSession)
	protected.DELETE("/sessions/:id", handlers.DeleteSession)
	protected.POST("/sessions/:id/chat", handlers.Chat)
	protected.POST("/sessions/:id/property-edit", handlers.PropertyEdit)
	protected.POST("/sessions/:id/manual-edit", handlers.ManualEdit)
	protected.POST("/sessions/:id/save", handlers.SaveSession)
	protected.GET("/sessions/:id/export", handlers.Export)
	protected.GET("/sessions/:id/channel", handlers.Channel)

	logger.Info("Server initialized successfully")

	return &Server{
		router:   router,
		sessions: sessions,
		pool:     pool,
		mongo:    mongo,
		cache:    cache,
		logger:   logger,
		config:   cfg,
	}, nil
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close shuts the server down, flushing every open session first so no
// debounced save is lost.
func (s *Server) Close(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP shutdown failed", zap.Error(err))
		}
	}

	s.sessions.Shutdown(ctx)

	if s.pool != nil {
		s.pool.Close()
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.logger.Error("Failed to close Redis client", zap.Error(err))
		}
	}
	if s.mongo != nil {
		if err := s.mongo.Close(ctx); err != nil {
			s.logger.Error("Failed to close Mongo client", zap.Error(err))
			return fmt.Errorf("close mongo: %w", err)
		}
	}

	s.logger.Sync()
	return nil
}
