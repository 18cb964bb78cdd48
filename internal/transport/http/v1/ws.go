package v1

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/silkycoders1/claimcheck/internal/domain"
	"github.com/silkycoders1/claimcheck/internal/service"
)

// Frame types sent after the chunk frames.
const (
	FrameDone  = "done"
	FrameError = "error"
)

const (
	maxRequestFrame = 64 << 20
	writeWait       = 10 * time.Second
)

// Frame is the terminal control frame of a WebSocket chat.
type Frame struct {
	Type  string `json:"type"`
	Error string `json:"error,omitempty"`
}

// ChatWS runs one verification turn over a WebSocket. The first text frame carries the
// ChatRequest; each chunk goes out as its own text frame, followed by one Frame.
// GET /api/chat/ws
func (h *Handler) ChatWS(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already replied.
		h.logger.Warn("failed to upgrade websocket", "error", err)
		return nil
	}
	defer conn.Close()
	conn.SetReadLimit(maxRequestFrame)

	_, data, err := conn.ReadMessage()
	if err != nil {
		h.logger.Debug("websocket closed before request", "error", err)
		return nil
	}
	var req domain.ChatRequest
	if err := json.Unmarshal(data, &req); err != nil {
		h.writeFrame(conn, Frame{Type: FrameError, Error: "invalid request body"})
		return nil
	}
	if err := c.Validate(&req); err != nil {
		h.writeFrame(conn, Frame{Type: FrameError, Error: err.Error()})
		return nil
	}

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	// Any further read error means the peer went away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	err = h.service.Verify(ctx, req, func(encoded []byte) error {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteMessage(websocket.TextMessage, encoded)
	})
	switch {
	case err == nil:
		h.writeFrame(conn, Frame{Type: FrameDone})
	case errors.Is(err, service.ErrStreamCancelled):
		h.logger.Debug("websocket stream cancelled", "order_id", req.OrderID, "error", err)
		return nil
	default:
		h.writeFrame(conn, Frame{Type: FrameError, Error: publicMessage(err)})
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return nil
}

func (h *Handler) writeFrame(conn *websocket.Conn, f Frame) {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(f); err != nil {
		h.logger.Debug("failed to write websocket frame", "type", f.Type, "error", err)
	}
}
