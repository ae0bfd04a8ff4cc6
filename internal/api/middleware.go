package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rryowa/weq_api/internal/models"
	"github.com/rryowa/weq_api/internal/service"
	"github.com/rryowa/weq_api/internal/util"
)

const bearerPrefix = "bearer "

// ClientIPExtractor keys clients by the first X-Forwarded-For entry, falling
// back to the socket peer address.
func ClientIPExtractor(r *http.Request) string {
	if xff := r.Header.Get(models.MwForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	return echo.ExtractIPDirect()(r)
}

// RequestIDMiddleware reuses an incoming X-Request-ID or generates one, and
// stores it in the context for the response envelope.
func RequestIDMiddleware() echo.MiddlewareFunc {
	return echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator:    uuid.NewString,
		TargetHeader: models.MwRequestIDHeader,
		RequestIDHandler: func(c echo.Context, id string) {
			c.Set(models.MwRequestIDKey, id)
		},
	})
}

func SecurityHeadersMiddleware() echo.MiddlewareFunc {
	return echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		ReferrerPolicy:     "no-referrer",
	})
}

// BearerAuthMiddleware resolves the bearer token to a subject and stores both
// in the echo context.
func BearerAuthMiddleware(authService *service.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
				return util.NewResponseError(http.StatusUnauthorized, "Not authenticated")
			}
			token := strings.TrimSpace(header[len(bearerPrefix):])

			subject, err := authService.ResolveCurrentUser(c.Request().Context(), token)
			if err != nil {
				return err
			}

			c.Set(models.MwSubjectKey, subject)
			c.Set(models.MwTokenKey, token)
			return next(c)
		}
	}
}

// ThrottleMiddleware is a coarse per-IP request limit for the whole API,
// separate from the login attempt limiter.
func ThrottleMiddleware(cfg *util.ThrottleConfig) echo.MiddlewareFunc {
	store := echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(cfg.Rate),
		Burst:     cfg.Burst,
		ExpiresIn: cfg.ExpiresIn,
	})

	return echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Path(), "/health")
		},
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(_ echo.Context, _ string, err error) error {
			return &echo.HTTPError{
				Code:     http.StatusTooManyRequests,
				Message:  "Too many requests",
				Internal: err,
			}
		},
	})
}

func GetRecoverConfig(log *zap.SugaredLogger) echomiddleware.RecoverConfig {
	return echomiddleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			log.Errorw("panic recovered",
				"error", err,
				"uri", c.Request().RequestURI,
				"request_id", c.Get(models.MwRequestIDKey),
				"stack", string(stack),
			)
			return err
		},
	}
}

func GetLoggerMiddlewareConfig(a *API) echomiddleware.RequestLoggerConfig {
	return echomiddleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogError:    true,
		LogLatency:  true,
		HandleError: true,

		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", c.Request().Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency.Round(time.Microsecond).String(),
				"request_id", c.Get(models.MwRequestIDKey),
				"client", c.RealIP(),
			}
			if v.Error != nil {
				fields = append(fields, "error", v.Error)
			}
			if v.Error != nil && v.Status >= http.StatusInternalServerError {
				a.log.Errorw("Request", fields...)
			} else {
				a.log.Infow("Request", fields...)
			}
			return nil
		},
	}
}
