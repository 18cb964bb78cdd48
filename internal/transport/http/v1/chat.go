package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/silkycoders1/claimcheck/internal/chunk"
	"github.com/silkycoders1/claimcheck/internal/domain"
	"github.com/silkycoders1/claimcheck/internal/service"
)

// Chat streams one conversational verification turn.
// POST /api/chat
func (h *Handler) Chat(c echo.Context) error {
	var req domain.ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	w := newChunkWriter(c.Response(), c.QueryParam("framing") == framingSSE)
	err := h.service.Verify(c.Request().Context(), req, w.write)
	return h.finishStream(c, w, err)
}

// finishStream reports the outcome of a streamed request. Before the first chunk an error
// is an ordinary JSON response; afterwards it becomes a terminal error chunk.
func (h *Handler) finishStream(c echo.Context, w *chunkWriter, err error) error {
	if err == nil {
		w.start()
		return nil
	}
	if errors.Is(err, service.ErrStreamCancelled) {
		h.logger.Debug("stream abandoned by client", "path", c.Path(), "error", err)
		return nil
	}
	if !w.started {
		return c.JSON(statusFor(err), ErrorResponse{Error: publicMessage(err)})
	}

	h.logger.Warn("stream failed after first chunk", "path", c.Path(), "error", err)
	encoded, encErr := chunk.EncodeError(publicMessage(err))
	if encErr != nil {
		return nil
	}
	if writeErr := w.write(encoded); writeErr != nil {
		h.logger.Debug("failed to write error chunk", "error", writeErr)
	}
	return nil
}
