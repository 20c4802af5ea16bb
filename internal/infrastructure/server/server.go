package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/kui/internal/api/middleware"
	kuihttp "github.com/GriffinCanCode/kui/internal/http"
	"github.com/GriffinCanCode/kui/internal/infrastructure/config"
	"github.com/GriffinCanCode/kui/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/kui/internal/shell"
)

const shutdownTimeout = 5 * time.Second

// Server wraps the debug HTTP server and its dependencies
type Server struct {
	router  *gin.Engine
	http    *http.Server
	shell   *shell.Shell
	logger  *zap.Logger
	config  config.ServerConfig
	metrics *monitoring.Metrics
}

// NewServer creates a debug server over a running shell
func NewServer(cfg config.ServerConfig, sh *shell.Shell, logger *zap.Logger, metrics *monitoring.Metrics) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("server")

	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(monitoring.Middleware(metrics))

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.Origins
	router.Use(middleware.CORS(cors))

	if cfg.RateLimit > 0 {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit),
			zap.Int("burst", cfg.Burst),
		)
		limits := middleware.DefaultRateLimitConfig()
		limits.RequestsPerSecond = cfg.RateLimit
		limits.Burst = cfg.Burst
		router.Use(middleware.RateLimit(limits))
	}

	handlers := kuihttp.NewHandlers(sh, metrics, logger)

	// Register routes
	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	// Page inspection
	router.GET("/page", handlers.Page)
	router.GET("/blob/:id", handlers.Blob)
	router.DELETE("/blob/:id", handlers.ReleaseBlob)

	// Bridge operations
	router.POST("/native/:name", handlers.Native)
	router.POST("/eval", handlers.Eval)
	router.POST("/settle", handlers.Settle)

	// Metrics endpoint
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	return &Server{
		router:  router,
		shell:   sh,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}
}

// Handler exposes the router
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the configured listen address
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Host, s.config.Port)
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	s.http = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
	}

	return s.Close()
}

// Close gracefully shuts down the server
func (s *Server) Close() error {
	if s.http == nil {
		return nil
	}
	s.logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shut down server", zap.Error(err))
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
