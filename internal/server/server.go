// Package server exposes the HTTP API: upload submission, status polling,
// note retrieval, history and document downloads.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/talktotext/talktotext/internal/auth"
	"github.com/talktotext/talktotext/internal/logger"
	"github.com/talktotext/talktotext/internal/pipeline"
	"github.com/talktotext/talktotext/internal/queue"
	"github.com/talktotext/talktotext/internal/store"
)

// Config holds the server tunables.
type Config struct {
	Port      int
	UploadDir string
	ExportDir string
}

// Server wires the HTTP routes to the store, queue and pipeline.
type Server struct {
	cfg      Config
	echo     *echo.Echo
	store    store.Store
	queue    queue.Queue
	pipeline *pipeline.Pipeline
	auth     *auth.Resolver
	logger   logger.Logger
}

// New creates a Server with all routes registered.
func New(
	cfg Config,
	st store.Store,
	q queue.Queue,
	p *pipeline.Pipeline,
	resolver *auth.Resolver,
	log logger.Logger,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		cfg:      cfg,
		echo:     e,
		store:    st,
		queue:    q,
		pipeline: p,
		auth:     resolver,
		logger:   log,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.echo.Group("/api")
	api.POST("/upload", s.handleUpload)
	api.GET("/status/:id", s.handleStatus)
	api.GET("/notes/:id", s.handleNote)
	api.GET("/history", s.handleHistory)
	api.GET("/download/pdf/:id", s.handleDownloadPDF)
	api.GET("/download/docx/:id", s.handleDownloadDocx)
	api.GET("/health", s.handleHealth)
}

// Handler returns the underlying http.Handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start blocks serving HTTP until Shutdown or a listener error.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.logger.Info(ctx, "HTTP API listening on %s", addr)
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.echo.Shutdown(ctx)
}
