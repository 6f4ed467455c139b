// Package api is the HTTP adapter over the extraction and validation
// core. It translates requests into pipeline calls and findings into
// JSON; it holds no domain logic of its own.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/finqa/invoice-qc/internal/extract"
	"github.com/finqa/invoice-qc/internal/pdf"
	"github.com/finqa/invoice-qc/internal/repository"
	"github.com/finqa/invoice-qc/internal/validate"
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server is the HTTP server adapter.
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	logger     *zap.Logger
}

// NewServer creates a new HTTP server wired to the pipeline components.
func NewServer(
	config ServerConfig,
	reader *pdf.Reader,
	assembler *extract.Assembler,
	validator *validate.Validator,
	reports *repository.ReportRepository,
	logger *zap.Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	s := &Server{
		config: config,
		router: router,
		logger: logger,
	}

	router.Use(gin.Recovery())
	router.Use(s.loggingMiddleware())

	handlers := NewHandlers(reader, assembler, validator, reports, logger)
	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/health", handlers.HealthCheck)
		apiGroup.GET("/rules", handlers.ListRules)
		apiGroup.POST("/validate-json", handlers.ValidateJSON)
		apiGroup.POST("/extract-and-validate", handlers.ExtractAndValidate)
		apiGroup.POST("/reports", handlers.SaveReport)
		apiGroup.GET("/reports", handlers.ListReports)
	}

	return s
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}

// Start runs the server until Shutdown is called or it fails.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("HTTP server starting", zap.String("addr", addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("HTTP server shutting down")
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the underlying router for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
