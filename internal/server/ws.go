package server

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"OptimaChat/internal/chat"
	"OptimaChat/internal/conversation"
	"OptimaChat/internal/typewriter"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Browser clients embed the widget on the marketing site itself; the
	// proxy is same-origin, so cross-origin upgrades are refused by the
	// default origin check.
}

type wsCommand struct {
	Message string `json:"message"`
}

// wsEvent is one server-to-client frame: typewriter frames during the
// reveal, the full message record once, or an error.
type wsEvent struct {
	Type    string                `json:"type"` // frame | message | error
	Frame   *typewriter.Frame     `json:"frame,omitempty"`
	Message *conversation.Message `json:"message,omitempty"`
	Error   string                `json:"error,omitempty"`
}

// handleChatStream upgrades to WebSocket and serves submit/reveal rounds:
// each client command produces a stream of typewriter frames for the reply
// followed by the final message record.
func (s *Server) handleChatStream(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "websocket upgrade failed")
	}
	defer conn.Close()

	ctx := c.Request().Context()

	for {
		var cmd wsCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("websocket read failed", "error", err)
			}
			return nil
		}

		botMsg, err := s.surface.Submit(ctx, cmd.Message)
		if err != nil {
			if errors.Is(err, chat.ErrEmptyInput) {
				if werr := conn.WriteJSON(wsEvent{Type: "error", Error: "message is required"}); werr != nil {
					return nil
				}
				continue
			}
			s.logger.Error("websocket submit failed", "error", err)
			return nil
		}

		p := typewriter.New(botMsg.Text, s.typeSpeed, nil)
		for frame := range p.Run(ctx) {
			f := frame
			if err := conn.WriteJSON(wsEvent{Type: "frame", Frame: &f}); err != nil {
				p.Stop()
				return nil
			}
		}

		if err := conn.WriteJSON(wsEvent{Type: "message", Message: &botMsg}); err != nil {
			return nil
		}
	}
}
