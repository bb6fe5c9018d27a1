// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"crypto/rand"
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

	"github.com/codeaura/invoicer/internal/auth"
	"github.com/codeaura/invoicer/internal/config"
	"github.com/codeaura/invoicer/internal/health"
	"github.com/codeaura/invoicer/internal/invoice"
	"github.com/codeaura/invoicer/internal/logging"
	"github.com/codeaura/invoicer/internal/mailer"
	"github.com/codeaura/invoicer/internal/metrics"
	"github.com/codeaura/invoicer/internal/payment"
	"github.com/codeaura/invoicer/internal/ratelimit"
	"github.com/codeaura/invoicer/internal/security"
	"github.com/codeaura/invoicer/internal/traces"
	"github.com/codeaura/invoicer/internal/validation"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg            *config.Config
	authMgr        *auth.Manager
	invoiceService *invoice.Service
	paymentService *payment.Service
	paymentTimer   *payment.Timer
	sender         mailer.Sender
	rateLimiter    *ratelimit.Limiter
	loginLimiter   *ratelimit.Limiter
	healthReg      *health.Registry
	db             *sql.DB // nil if using in-memory
	router         *gin.Engine
	httpSrv        *http.Server
	logger         *slog.Logger
	cancelRunCtx   context.CancelFunc          // cancels background goroutines started in Run
	tracesShutdown func(context.Context) error // flushes the tracer provider

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

// WithSender sets a custom mail sender (for testing)
func WithSender(sender mailer.Sender) Option {
	return func(s *Server) {
		s.sender = sender
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:       cfg,
		logger:    logging.New(cfg.LogLevel, "json"),
		healthReg: health.NewRegistry(),
	}

	for _, opt := range opts {
		opt(s)
	}

	ctx := context.Background()

	// Tracing. With no OTLP endpoint configured this installs a no-op
	// provider, so the span calls in the services stay free.
	tracesShutdown, err := traces.Init(ctx, cfg.OTLPEndpoint, s.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	s.tracesShutdown = tracesShutdown

	// Storage: Postgres when DATABASE_URL is set, otherwise in-memory.
	var (
		invoiceStore invoice.Store
		tokenStore   payment.Store
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		s.db = db
		s.logger.Info("using PostgreSQL storage", "url", maskDSN(cfg.DatabaseURL))

		pgInvoices := invoice.NewPostgresStore(db)
		if err := pgInvoices.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate invoice store", "error", err)
		}
		invoiceStore = pgInvoices

		pgTokens := payment.NewPostgresStore(db)
		if err := pgTokens.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate payment token store", "error", err)
		}
		tokenStore = pgTokens

		s.healthReg.Register("database", health.Database(db))
	} else {
		invoiceStore = invoice.NewMemoryStore()
		tokenStore = payment.NewMemoryStore()
		s.logger.Warn("using in-memory storage, data will not persist")
		s.healthReg.Register("store", health.Static("store", true))
	}

	// Seed the live-invoice gauge; the services keep it current from here.
	if invs, err := invoiceStore.List(ctx); err == nil {
		metrics.LiveInvoices.Set(float64(len(invs)))
	}

	// Auth
	s.authMgr = auth.NewManager(cfg.Username, cfg.Password, cfg.SessionSecret, cfg.SessionTTL)

	// Invoices
	s.invoiceService = invoice.NewService(invoiceStore, cfg.InvoiceSecret)

	// Mail (optional)
	if s.sender == nil && cfg.MailEnabled() {
		s.sender = mailer.NewSMTPSender(
			cfg.EmailHost, cfg.EmailPort, cfg.EmailUser, cfg.EmailPassword, cfg.EmailFrom)
		s.logger.Info("email dispatch enabled", "host", cfg.EmailHost)
	}
	if s.sender == nil {
		s.logger.Warn("email dispatch disabled, no SMTP configuration")
	}

	// Payments
	s.paymentService = payment.NewService(invoiceStore, tokenStore, cfg.PaymentSecret, cfg.ReceiptTTL)
	if s.sender != nil {
		notifier := mailer.NewNotifier(s.sender, cfg.EmailUser, s.logger)
		s.paymentService.WithNotifier(notifier)
	}
	s.paymentTimer = payment.NewTimer(s.paymentService, s.logger)

	// Router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	return s, nil
}

// maskDSN hides the password in a connection string for logging.
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

	// CORS
	s.router.Use(security.CORSMiddleware(s.cfg.AllowedOrigins))

	// Request size limit (1MB)
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	// Rate limiting
	limitCfg := ratelimit.DefaultConfig()
	if s.cfg.RateLimitRPM > 0 {
		limitCfg.RequestsPerMinute = s.cfg.RateLimitRPM
	}
	s.rateLimiter = ratelimit.New(limitCfg)
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

		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

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

func (s *Server) setupRoutes() {
	// Health & metrics endpoints
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	authHandler := auth.NewHandler(s.authMgr, s.cfg.IsProduction())
	invoiceHandler := invoice.NewHandler(s.invoiceService, s.cfg.PublicBaseURL)
	paymentHandler := payment.NewHandler(s.paymentService)

	// Public routes: the payer flow needs no session.
	public := s.router.Group("")
	invoiceHandler.RegisterRoutes(public)
	paymentHandler.RegisterRoutes(public)
	public.GET("/payment/config", s.paymentConfigHandler)

	// Login gets its own, much tighter rate limit bucket.
	s.loginLimiter = ratelimit.New(ratelimit.LoginConfig())
	login := s.router.Group("", s.loginLimiter.Middleware())
	authHandler.RegisterRoutes(login)

	// Operator routes behind the session cookie.
	protected := s.router.Group("", auth.RequireSession(s.authMgr))
	authHandler.RegisterProtectedRoutes(protected)
	invoiceHandler.RegisterProtectedRoutes(protected)

	// Internal email dispatch behind the shared secret.
	internal := s.router.Group("", auth.RequireInternal(s.cfg.InternalSecret))
	mailer.NewHandler(s.sender).RegisterRoutes(internal)
}

// paymentConfigHandler hands the pay page its processor configuration.
// GET /payment/config
func (s *Server) paymentConfigHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"clientId": s.cfg.PayPalClientID,
		"currency": "USD",
	})
}

// HealthResponse is returned by the /health endpoint
type HealthResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	Checks    []health.Status `json:"checks,omitempty"`
	Timestamp string          `json:"timestamp"`
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	healthy, checks := s.healthReg.CheckAll(ctx)

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Version:   "0.1.0",
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
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

// Run starts the HTTP server and blocks until shutdown
func (s *Server) Run(ctx context.Context) error {
	// Cancellable context for background goroutines so Shutdown() can stop them.
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("starting server", "port", s.cfg.Port, "env", s.cfg.Env)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Start the expired-receipt sweeper
	go s.paymentTimer.Start(runCtx)

	// Start DB stats collection
	if s.db != nil {
		go metrics.StartDBStatsCollector(runCtx, s.db, 15*time.Second)
	}

	// Mark as ready after brief delay for startup
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

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

	if s.paymentTimer != nil {
		s.paymentTimer.Stop()
		s.logger.Info("receipt sweeper stopped")
	}

	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	if s.loginLimiter != nil {
		s.loginLimiter.Stop()
	}

	if s.tracesShutdown != nil {
		if err := s.tracesShutdown(ctx); err != nil {
			s.logger.Error("tracer shutdown error", "error", err)
		}
	}

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

func generateRequestID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based ID
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
