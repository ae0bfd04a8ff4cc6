package api

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	middleware "github.com/oapi-codegen/echo-middleware"
	"go.uber.org/zap"

	"github.com/rryowa/weq_api/internal/controller"
	"github.com/rryowa/weq_api/internal/service"
	"github.com/rryowa/weq_api/internal/util"
)

const (
	shutdownTimeout = 5 * time.Second
	boomPath        = "/boom"
)

type API struct {
	server          *echo.Echo
	controller      *controller.Controller
	authService     *service.AuthService
	log             *zap.SugaredLogger
	cfg             *util.Config
	gracefulTimeout time.Duration
}

// NewAPI builds the echo server with every middleware and route in place,
// so the returned API can serve requests without Run (see Handler).
func NewAPI(c *controller.Controller, authService *service.AuthService, l *zap.SugaredLogger, cfg *util.Config) (*API, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Server.Addr = cfg.Server.ServerAddr
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.IdleTimeout = cfg.Server.IdleTimeout
	e.IPExtractor = ClientIPExtractor
	e.HTTPErrorHandler = ErrorHandler(l)

	a := &API{
		server:          e,
		controller:      c,
		authService:     authService,
		log:             l,
		cfg:             cfg,
		gracefulTimeout: cfg.Server.GracefulTimeout,
	}

	if err := a.setupRoutes(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *API) setupRoutes() error {
	swagger, err := controller.GetSwagger()
	if err != nil {
		return err
	}
	swagger.Servers = nil

	a.server.Use(RequestIDMiddleware())
	a.server.Use(SecurityHeadersMiddleware())
	a.server.Use(echomiddleware.RequestLoggerWithConfig(GetLoggerMiddlewareConfig(a)))
	a.server.Use(echomiddleware.RecoverWithConfig(GetRecoverConfig(a.log)))
	if a.cfg.Throttle.Enabled {
		a.server.Use(ThrottleMiddleware(a.cfg.Throttle))
	}

	a.server.Use(middleware.OapiRequestValidatorWithOptions(swagger, &middleware.Options{
		ErrorHandler: ValidationErrorHandler,
		Options: openapi3filter.Options{
			AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		},
		Skipper: func(c echo.Context) bool {
			return c.Path() == boomPath
		},
	}))

	/* Маршруты из OpenAPI документа регистрируются через
	ServerInterfaceWrapper, который разбирает параметры и
	вызывает методы контроллера.
	*/
	controller.RegisterHandlersWithBaseURL(a.server, a.controller, "", BearerAuthMiddleware(a.authService))

	if a.cfg.App.Env != util.EnvProd {
		a.server.GET(boomPath, boom)
	}
	return nil
}

// Handler exposes the configured echo instance, mostly for httptest.
func (a *API) Handler() http.Handler { return a.server }

func (a *API) Run(ctxBackground context.Context) {
	ctx, stop := signal.NotifyContext(ctxBackground, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.ListenGracefulShutdown(ctx)
}

func (a *API) ListenGracefulShutdown(ctx context.Context) {
	go func() {
		err := a.server.Start(a.server.Server.Addr)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()
	a.log.Infow("Listening", "addr", a.server.Server.Addr, "env", a.cfg.App.Env)

	<-ctx.Done()
	a.log.Info("Shutting down server...")

	timeout := a.gracefulTimeout
	if timeout <= 0 {
		timeout = shutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.log.Errorf("server shutdown: %v", err)
		return
	}
	a.log.Info("server shutdown completed")
}

func boom(_ echo.Context) error {
	panic("boom: deliberate failure for error handling checks")
}
