package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"OptimaChat/internal/chat"
	"OptimaChat/internal/notify"
	"OptimaChat/internal/transport"
)

// chatRequest accepts both route variants: the simple widget body with a
// single message, and the rich client body carrying the full history.
type chatRequest struct {
	Message  string           `json:"message,omitempty"`
	Messages []transport.Turn `json:"messages,omitempty"`
	Stream   bool             `json:"stream,omitempty"`
	UseCache bool             `json:"use_cache,omitempty"`
}

type chatReply struct {
	Content string `json:"content"`
}

type chatResponse struct {
	Message chatReply `json:"message"`
}

func (s *Server) handleChat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	// Rich variant: the client owns the history, the server is a pure
	// proxy to the backend.
	if len(req.Messages) > 0 {
		reply, err := s.remote.SendTurns(c.Request().Context(), req.Messages, req.UseCache)
		if err != nil {
			return backendError(err)
		}
		return c.JSON(http.StatusOK, chatResponse{Message: chatReply{Content: reply}})
	}

	// Simple variant: the server-side surface owns the history and turns
	// transport failures into fallback replies.
	botMsg, err := s.surface.Submit(c.Request().Context(), req.Message)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyInput) {
			return echo.NewHTTPError(http.StatusBadRequest, "message is required")
		}
		return err
	}

	return c.JSON(http.StatusOK, chatResponse{Message: chatReply{Content: botMsg.Text}})
}

func backendError(err error) error {
	switch {
	case errors.Is(err, transport.ErrUnavailable):
		return echo.NewHTTPError(http.StatusBadGateway, "chat backend unreachable")
	case errors.Is(err, transport.ErrBadStatus), errors.Is(err, transport.ErrBadPayload):
		return echo.NewHTTPError(http.StatusBadGateway, "chat backend error")
	default:
		return err
	}
}

func (s *Server) handleHealth(c echo.Context) error {
	body, status, err := s.remote.Health(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "backend health check failed")
	}
	return c.JSONBlob(status, body)
}

func (s *Server) handleLead(c echo.Context) error {
	var lead notify.Lead
	if err := c.Bind(&lead); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if strings.TrimSpace(lead.Name) == "" || strings.TrimSpace(lead.Contact) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name and contact are required")
	}

	if err := s.notifier.SendLead(c.Request().Context(), lead); err != nil {
		// Configuration problems stay server-side; the caller only sees a
		// generic failure.
		s.logger.Error("lead notification failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}
