package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"

	"github.com/rryowa/weq_api/internal/models"
)

// ListNotesParams defines parameters for ListNotes.
type ListNotesParams struct {
	Skip  *int `form:"skip,omitempty" json:"skip,omitempty"`
	Limit *int `form:"limit,omitempty" json:"limit,omitempty"`
}

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// (POST /auth/register)
	Register(ctx echo.Context) error
	// (POST /auth/token)
	Token(ctx echo.Context) error
	// (POST /auth/logout)
	Logout(ctx echo.Context) error
	// (GET /auth/profile)
	Profile(ctx echo.Context) error
	// (GET /protected)
	Protected(ctx echo.Context) error
	// (POST /notes)
	CreateNote(ctx echo.Context) error
	// (GET /notes)
	ListNotes(ctx echo.Context, params ListNotesParams) error
	// (GET /notes/{id})
	GetNote(ctx echo.Context, id int64) error
	// (GET /health)
	Health(ctx echo.Context) error
	// (GET /health/ping)
	Ping(ctx echo.Context) error
	// (GET /health/live)
	Live(ctx echo.Context) error
	// (GET /health/ready)
	Ready(ctx echo.Context) error
	// (GET /service/info)
	ServiceInfo(ctx echo.Context) error
	// (GET /service/time)
	ServiceTime(ctx echo.Context) error
}

// ServerInterfaceWrapper converts echo contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

func (w *ServerInterfaceWrapper) Register(ctx echo.Context) error { return w.Handler.Register(ctx) }

func (w *ServerInterfaceWrapper) Token(ctx echo.Context) error { return w.Handler.Token(ctx) }

func (w *ServerInterfaceWrapper) Logout(ctx echo.Context) error {
	ctx.Set(models.MwSchemeBearerAuth, []string{})
	return w.Handler.Logout(ctx)
}

func (w *ServerInterfaceWrapper) Profile(ctx echo.Context) error {
	ctx.Set(models.MwSchemeBearerAuth, []string{})
	return w.Handler.Profile(ctx)
}

func (w *ServerInterfaceWrapper) Protected(ctx echo.Context) error {
	ctx.Set(models.MwSchemeBearerAuth, []string{})
	return w.Handler.Protected(ctx)
}

func (w *ServerInterfaceWrapper) CreateNote(ctx echo.Context) error {
	return w.Handler.CreateNote(ctx)
}

// ListNotes converts echo context to params.
func (w *ServerInterfaceWrapper) ListNotes(ctx echo.Context) error {
	var params ListNotesParams

	err := runtime.BindQueryParameter("form", true, false, "skip", ctx.QueryParams(), &params.Skip)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid format for parameter skip: "+err.Error())
	}

	err = runtime.BindQueryParameter("form", true, false, "limit", ctx.QueryParams(), &params.Limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid format for parameter limit: "+err.Error())
	}

	return w.Handler.ListNotes(ctx, params)
}

// GetNote converts echo context to params.
func (w *ServerInterfaceWrapper) GetNote(ctx echo.Context) error {
	var id int64

	err := runtime.BindStyledParameterWithOptions("simple", "id", ctx.Param("id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid format for parameter id: "+err.Error())
	}

	return w.Handler.GetNote(ctx, id)
}

func (w *ServerInterfaceWrapper) Health(ctx echo.Context) error { return w.Handler.Health(ctx) }

func (w *ServerInterfaceWrapper) Ping(ctx echo.Context) error { return w.Handler.Ping(ctx) }

func (w *ServerInterfaceWrapper) Live(ctx echo.Context) error { return w.Handler.Live(ctx) }

func (w *ServerInterfaceWrapper) Ready(ctx echo.Context) error { return w.Handler.Ready(ctx) }

func (w *ServerInterfaceWrapper) ServiceInfo(ctx echo.Context) error {
	return w.Handler.ServiceInfo(ctx)
}

func (w *ServerInterfaceWrapper) ServiceTime(ctx echo.Context) error {
	return w.Handler.ServiceTime(ctx)
}

// EchoRouter is satisfied by both *echo.Echo and *echo.Group.
type EchoRouter interface {
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	POST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

// RegisterHandlersWithBaseURL registers every route of the OpenAPI document.
// bearer is attached to the routes that require BearerAuth.
func RegisterHandlersWithBaseURL(router EchoRouter, si ServerInterface, baseURL string, bearer echo.MiddlewareFunc) {
	w := ServerInterfaceWrapper{Handler: si}

	router.POST(baseURL+"/auth/register", w.Register)
	router.POST(baseURL+"/auth/token", w.Token)
	router.POST(baseURL+"/auth/logout", w.Logout, bearer)
	router.GET(baseURL+"/auth/profile", w.Profile, bearer)
	router.GET(baseURL+"/protected", w.Protected, bearer)
	router.POST(baseURL+"/notes", w.CreateNote)
	router.GET(baseURL+"/notes", w.ListNotes)
	router.GET(baseURL+"/notes/:id", w.GetNote)
	router.GET(baseURL+"/health", w.Health)
	router.GET(baseURL+"/health/ping", w.Ping)
	router.GET(baseURL+"/health/live", w.Live)
	router.GET(baseURL+"/health/ready", w.Ready)
	router.GET(baseURL+"/service/info", w.ServiceInfo)
	router.GET(baseURL+"/service/time", w.ServiceTime)
}

func intOrDefault(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
