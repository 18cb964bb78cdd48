// Package v1 provides the HTTP handlers of the claims API.
package v1

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/silkycoders1/claimcheck/internal/config"
	"github.com/silkycoders1/claimcheck/internal/logger"
	"github.com/silkycoders1/claimcheck/internal/service"
)

const version = "0.1.0"

// Handler handles HTTP requests.
type Handler struct {
	service  *service.Service
	config   *config.Config
	logger   *logger.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a new handler.
func NewHandler(svc *service.Service, cfg *config.Config, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{
		service: svc,
		config:  cfg,
		logger:  log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/chat", h.Chat)
	e.GET("/api/chat/ws", h.ChatWS)
	e.POST("/api/analyze", h.Analyze)

	e.GET("/api/orders/:order_id/session", h.GetOrderSession)
	e.GET("/api/sessions/:session_id/messages", h.GetSessionMessages)
	e.GET("/api/sessions/:session_id/events", h.GetSessionEvents)

	e.GET("/health", h.Health)
	e.GET("/health/ready", h.Ready)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": version,
	})
}

// Ready reports whether the model endpoint answers.
func (h *Handler) Ready(c echo.Context) error {
	status := h.service.CheckModel(c.Request().Context())
	if !status.Reachable {
		return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
			"status": "unavailable",
			"model":  status,
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "ready",
		"model":  status,
	})
}

// Validator adapts go-playground/validator to echo.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator.
func NewValidator() *Validator {
	return &Validator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate validates a bound request struct.
func (v *Validator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// ErrorResponse is the JSON body of every non-streamed error.
type ErrorResponse struct {
	Error string `json:"error"`
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrModelFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage is the client-facing text of a service error.
func publicMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		return err.Error()
	case errors.Is(err, service.ErrSessionNotFound):
		return "session not found"
	case errors.Is(err, service.ErrModelFailed):
		return "model call failed"
	default:
		return "internal error"
	}
}
