// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/agentgate/agentgate/internal/config"
	"github.com/agentgate/agentgate/internal/health"
	"github.com/agentgate/agentgate/internal/history"
	"github.com/agentgate/agentgate/internal/identity"
	"github.com/agentgate/agentgate/internal/lists"
	"github.com/agentgate/agentgate/internal/logging"
	"github.com/agentgate/agentgate/internal/metrics"
	"github.com/agentgate/agentgate/internal/outcomes"
	"github.com/agentgate/agentgate/internal/ratelimit"
	"github.com/agentgate/agentgate/internal/realtime"
	"github.com/agentgate/agentgate/internal/reputation"
	"github.com/agentgate/agentgate/internal/risk"
	"github.com/agentgate/agentgate/internal/security"
	"github.com/agentgate/agentgate/internal/traces"
	"github.com/agentgate/agentgate/internal/validation"
)

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg *config.Config

	assessments   risk.Store
	historyStore  history.Store
	listStore     lists.Store
	counters      reputation.CounterStore
	snapshots     reputation.SnapshotStore
	baseTable     *reputation.BaseTable
	engine        *risk.Engine
	outcomeSvc    *outcomes.Service
	hub           *realtime.Hub
	worker        *reputation.Worker
	rateLimiter   *ratelimit.Limiter
	healthReg     *health.Registry
	db            *sql.DB // nil if using in-memory
	router        *gin.Engine
	httpSrv       *http.Server
	logger        *slog.Logger
	cancelRunCtx  context.CancelFunc // cancels background goroutines started in Run
	traceShutdown func(context.Context) error

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, "json"),
	}

	// Apply options first (may set logger)
	for _, opt := range opts {
		opt(s)
	}

	// Context for initialization
	ctx := context.Background()

	// Initialize storage (Postgres if DATABASE_URL set, otherwise in-memory)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		// Configure connection pool
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		// Test connection
		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		s.db = db
		s.logger.Info("using PostgreSQL storage", "url", maskDSN(cfg.DatabaseURL))

		assessStore := risk.NewPostgresStore(db)
		if err := assessStore.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate assessment store", "error", err)
		}
		s.assessments = assessStore

		histStore := history.NewPostgresStore(db)
		if err := histStore.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate history store", "error", err)
		}
		s.historyStore = histStore

		listStore := lists.NewPostgresStore(db)
		if err := listStore.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate list store", "error", err)
		}
		s.listStore = listStore

		counterStore := reputation.NewPostgresCounterStore(db)
		if err := counterStore.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate reputation counters", "error", err)
		}
		s.counters = counterStore

		snapshotStore := reputation.NewPostgresSnapshotStore(db)
		if err := snapshotStore.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate reputation snapshots", "error", err)
		}
		s.snapshots = snapshotStore
	} else {
		s.logger.Info("using in-memory storage (data will not persist)")
		s.assessments = risk.NewMemoryStore()
		s.historyStore = history.NewMemoryStore()
		s.listStore = lists.NewMemoryStore()
		s.counters = reputation.NewMemoryCounterStore()
		s.snapshots = reputation.NewMemorySnapshotStore()
	}

	s.baseTable = reputation.NewBaseTable(cfg.PlatformReputation)

	// Assessment engine with the five signal collectors
	guard := lists.NewGuard(s.listStore, logging.Component(s.logger, "lists"))
	s.engine = risk.NewEngine(risk.EngineConfig{
		Store:           s.assessments,
		Guard:           guard,
		Customer:        risk.NewCustomerCollector(s.historyStore, s.assessments, identity.NewPrefixClassifier()),
		Pattern:         risk.NewPatternCollector(s.historyStore),
		Reputation:      risk.NewReputationCollector(s.baseTable, s.counters),
		Velocity:        risk.NewVelocityCollector(s.historyStore),
		Temporal:        risk.NewTemporalCollector(),
		VerifyThreshold: cfg.VerifyThreshold,
		BlockThreshold:  cfg.BlockThreshold,
		AssessTimeout:   cfg.AssessTimeout,
		Logger:          logging.Component(s.logger, "engine"),
	})

	// Outcome intake feeds history and reputation counters
	s.outcomeSvc = outcomes.NewService(s.historyStore, reputation.NewUpdater(s.counters),
		logging.Component(s.logger, "outcomes"))

	// Periodic reputation snapshots for dashboards
	s.worker = reputation.NewWorker(s.baseTable, s.counters, s.snapshots, cfg.SnapshotInterval,
		logging.Component(s.logger, "snapshots"))

	// Realtime hub for WebSocket streaming
	s.hub = realtime.NewHub(logging.Component(s.logger, "feed"))
	s.logger.Info("realtime feed enabled")

	// Health checks
	s.healthReg = health.NewRegistry()
	if s.db != nil {
		s.healthReg.Register("database", func(ctx context.Context) error {
			return s.db.PingContext(ctx)
		})
	}
	s.healthReg.Register("feed", func(ctx context.Context) error {
		if s.hub.Stopped() {
			return errors.New("feed hub stopped")
		}
		return nil
	})

	// Configure gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	return s, nil
}

// maskDSN hides password in connection string for logging
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	// Security headers
	s.router.Use(security.HeadersMiddleware())

	// CORS for dashboard origins
	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 && s.cfg.IsDevelopment() {
		origins = []string{"http://localhost:3000"}
	}
	s.router.Use(security.CORSMiddleware(origins))

	// Request size limit
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	// Rate limiting
	rlCfg := ratelimit.DefaultConfig()
	if s.cfg.RateLimitRPM > 0 {
		rlCfg.RequestsPerMinute = s.cfg.RateLimitRPM
	}
	s.rateLimiter = ratelimit.New(rlCfg)
	s.router.Use(s.rateLimiter.Middleware())

	// Prometheus metrics
	s.router.Use(metrics.Middleware())

	// Request ID
	s.router.Use(s.requestIDMiddleware())

	// Logging
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for existing request ID (from load balancer, etc.)
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}

		// Add to context
		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		// Set response header
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger := logging.L(c.Request.Context())

		// Log level based on status code
		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Info("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

// requireAdmin guards administrative endpoints with the shared secret.
// With no secret configured, admin routes are open; that is only acceptable
// in development, so production refuses them instead.
func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cfg.AdminSecret == "" {
			if s.cfg.IsProduction() {
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
					"error":   "admin_disabled",
					"message": "Admin endpoints require ADMIN_SECRET to be configured",
				})
				return
			}
			c.Next()
			return
		}

		got := c.GetHeader("X-Admin-Secret")
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.AdminSecret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Admin secret required",
			})
			return
		}
		c.Next()
	}
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	// Health & metrics endpoints
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	// WebSocket feed for dashboards
	s.router.GET("/ws", func(c *gin.Context) {
		s.hub.HandleWebSocket(c.Writer, c.Request)
	})

	// API info
	s.router.GET("/api", s.infoHandler)

	// V1 API group
	v1 := s.router.Group("/v1")

	// Assessment endpoints
	riskHandler := risk.NewHandler(s.engine, s.assessments, s.listStore, s.hub,
		logging.Component(s.logger, "risk"))
	riskHandler.RegisterRoutes(v1)

	// Platform reputation endpoints
	reputationHandler := reputation.NewHandler(s.baseTable, s.counters, s.snapshots)
	reputationHandler.RegisterRoutes(v1)

	// Outcome intake
	outcomeHandler := outcomes.NewHandler(s.outcomeSvc)
	outcomeHandler.RegisterRoutes(v1)

	// Feed statistics
	v1.GET("/feed/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.hub.Stats())
	})

	// ADMIN ROUTES (shared secret)
	// Block/allow list management and the review workflow can destroy
	// legitimate business if abused, so they sit behind the admin secret.
	admin := v1.Group("/admin")
	admin.Use(s.requireAdmin())
	lists.NewHandler(s.listStore).RegisterRoutes(admin)
	riskHandler.RegisterAdminRoutes(admin)
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

func (s *Server) healthHandler(c *gin.Context) {
	report := s.healthReg.Run(c.Request.Context())

	status := http.StatusOK
	if !report.Healthy {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":     healthWord(report.Healthy),
		"version":    "0.1.0",
		"subsystems": report.Subsystems,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}

func healthWord(healthy bool) string {
	if healthy {
		return "healthy"
	}
	return "degraded"
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "Agentgate",
		"description": "Real-time risk scoring for AI agent commerce",
		"version":     "0.1.0",
		"thresholds": gin.H{
			"verify": s.cfg.VerifyThreshold,
			"block":  s.cfg.BlockThreshold,
		},
	})
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the HTTP server with graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	// Create a cancellable context for background goroutines so Shutdown() can stop them.
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	// Tracing (no-op when no OTLP endpoint is configured)
	shutdown, err := traces.Init(runCtx, s.cfg.OTLPEndpoint, s.logger)
	if err != nil {
		s.logger.Warn("failed to initialize tracing", "error", err)
	} else {
		s.traceShutdown = shutdown
	}

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Channel to catch server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		s.logger.Info("starting server",
			"port", s.cfg.Port,
			"verify_threshold", s.cfg.VerifyThreshold,
			"block_threshold", s.cfg.BlockThreshold,
		)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Start realtime hub
	go s.hub.Run(runCtx)

	// Start reputation snapshot worker
	go s.worker.Start(runCtx)

	// Export connection pool stats
	if s.db != nil {
		go metrics.StartDBStatsCollector(runCtx, s.db, 15*time.Second)
	}

	// Mark as ready after brief delay for startup
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	// Wait for shutdown signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	// Cancel the context for all background goroutines (hub, worker)
	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	// Stop snapshot worker
	if s.worker != nil {
		s.worker.Stop()
		s.logger.Info("snapshot worker stopped")
	}

	// Stop rate limiter cleanup goroutine
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
		s.logger.Info("rate limiter stopped")
	}

	// Flush traces
	if s.traceShutdown != nil {
		if err := s.traceShutdown(ctx); err != nil {
			s.logger.Error("trace shutdown error", "error", err)
		}
	}

	// Close database connection pool
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("database close error", "error", err)
		} else {
			s.logger.Info("database connection closed")
		}
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func generateRequestID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based ID
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
