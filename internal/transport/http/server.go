// Package http provides the HTTP server for claimcheck.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/silkycoders1/claimcheck/internal/config"
	"github.com/silkycoders1/claimcheck/internal/logger"
	"github.com/silkycoders1/claimcheck/internal/service"
	v1 "github.com/silkycoders1/claimcheck/internal/transport/http/v1"
)

// NewServer creates and configures the public HTTP server.
func NewServer(svc *service.Service, cfg *config.Config, log *logger.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = v1.NewValidator()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	v1.NewHandler(svc, cfg, log).RegisterRoutes(e)

	return e
}
