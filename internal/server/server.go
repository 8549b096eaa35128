// Package server exposes the chat engine over HTTP: the chat proxy, the
// backend health proxy, the lead notification endpoint, and a WebSocket
// stream of typewriter frames.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"OptimaChat/internal/chat"
	"OptimaChat/internal/notify"
	"OptimaChat/internal/transport"
)

// Server wires the HTTP surface to the chat orchestrator.
type Server struct {
	echo      *echo.Echo
	surface   *chat.Surface
	remote    *transport.Client
	notifier  *notify.Telegram
	logger    *slog.Logger
	typeSpeed time.Duration
}

// New creates the HTTP server and registers all routes.
func New(surface *chat.Surface, remote *transport.Client, notifier *notify.Telegram, logger *slog.Logger, typeSpeed time.Duration) *Server {
	s := &Server{
		surface:   surface,
		remote:    remote,
		notifier:  notifier,
		logger:    logger,
		typeSpeed: typeSpeed,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(s.requestLogger)
	e.HTTPErrorHandler = s.errorHandler

	e.POST("/api/chat", s.handleChat)
	e.GET("/api/chat/ws", s.handleChatStream)
	e.GET("/api/health", s.handleHealth)
	e.POST("/api/lead", s.handleLead)

	s.echo = e
	return s
}

// Handler returns the underlying handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start blocks serving HTTP on addr.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// errorHandler renders every error as the {"error": "..."} envelope.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	msg := "internal server error"

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		status = httpErr.Code
		if m, ok := httpErr.Message.(string); ok {
			msg = m
		}
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", c.Request().Method, "path", c.Path(), "error", err)
	}

	if writeErr := c.JSON(status, map[string]string{"error": msg}); writeErr != nil {
		s.logger.Error("failed to write error response", "error", writeErr)
	}
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		s.logger.Info("request",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"status", c.Response().Status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return err
	}
}
