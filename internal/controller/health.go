package controller

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rryowa/weq_api/internal/models"
)

// (GET /health).
func (c *Controller) Health(ctx echo.Context) error {
	return OK(ctx, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": c.infoService.Info().Name,
		"version": c.infoService.Info().Version,
	})
}

// (GET /health/ping).
func (c *Controller) Ping(ctx echo.Context) error {
	return OK(ctx, http.StatusOK, "pong")
}

// (GET /health/live).
func (c *Controller) Live(ctx echo.Context) error {
	return OK(ctx, http.StatusOK, map[string]string{
		"status":    "alive",
		"timestamp": c.healthService.Live().Format(time.RFC3339),
	})
}

// (GET /health/ready).
func (c *Controller) Ready(ctx echo.Context) error {
	res := c.healthService.Ready(ctx.Request().Context())
	if !res.Ready {
		return ctx.JSON(http.StatusServiceUnavailable, models.Envelope{
			Data:      res,
			Error:     "service not ready",
			RequestID: RequestID(ctx),
		})
	}
	return OK(ctx, http.StatusOK, res)
}

// (GET /service/info).
func (c *Controller) ServiceInfo(ctx echo.Context) error {
	return OK(ctx, http.StatusOK, c.infoService.Info())
}

// (GET /service/time).
func (c *Controller) ServiceTime(ctx echo.Context) error {
	return OK(ctx, http.StatusOK, c.infoService.Time())
}
