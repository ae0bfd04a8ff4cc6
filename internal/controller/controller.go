package controller

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/rryowa/weq_api/internal/models"
	"github.com/rryowa/weq_api/internal/service"
)

const tokenTypeBearer = "bearer"

type Controller struct {
	zapLogger     *zap.SugaredLogger
	authService   *service.AuthService
	noteService   *service.NoteService
	healthService *service.HealthService
	infoService   *service.InfoService
}

var _ ServerInterface = (*Controller)(nil)

func NewController(
	logger *zap.SugaredLogger,
	authService *service.AuthService,
	noteService *service.NoteService,
	healthService *service.HealthService,
	infoService *service.InfoService,
) *Controller {
	return &Controller{
		zapLogger:     logger,
		authService:   authService,
		noteService:   noteService,
		healthService: healthService,
		infoService:   infoService,
	}
}

// (POST /auth/register).
func (c *Controller) Register(ctx echo.Context) error {
	var req models.RegisterRequest
	if err := ctx.Bind(&req); err != nil {
		return fmt.Errorf("%w: malformed request body", service.ErrValidation)
	}

	user, issued, err := c.authService.RegisterAndIssue(ctx.Request().Context(), req)
	if err != nil {
		return err
	}

	return OK(ctx, http.StatusOK, models.RegisterResponse{
		AccessToken: issued.AccessToken,
		TokenType:   tokenTypeBearer,
		User:        models.NewUserProfile(user),
	})
}

// (POST /auth/token).
func (c *Controller) Token(ctx echo.Context) error {
	var req models.TokenRequest
	if err := ctx.Bind(&req); err != nil {
		return fmt.Errorf("%w: malformed request body", service.ErrValidation)
	}

	issued, err := c.authService.Login(ctx.Request().Context(), ctx.RealIP(), req.Username, req.Password)
	if err != nil {
		return err
	}

	return OK(ctx, http.StatusOK, models.TokenResponse{
		AccessToken: issued.AccessToken,
		TokenType:   tokenTypeBearer,
		ExpiresIn:   issued.ExpiresIn,
	})
}

// (POST /auth/logout).
func (c *Controller) Logout(ctx echo.Context) error {
	token, _ := ctx.Get(models.MwTokenKey).(string)
	if err := c.authService.Logout(ctx.Request().Context(), token); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// (GET /auth/profile).
func (c *Controller) Profile(ctx echo.Context) error {
	user, err := c.authService.Profile(ctx.Request().Context(), Subject(ctx))
	if err != nil {
		return err
	}
	return OK(ctx, http.StatusOK, models.NewUserProfile(user))
}

// (GET /protected).
func (c *Controller) Protected(ctx echo.Context) error {
	subject := Subject(ctx)
	return OK(ctx, http.StatusOK, models.ProtectedResponse{
		Message: "Hello, " + subject,
		User:    subject,
	})
}

// Subject returns the token subject stored by the bearer middleware.
func Subject(ctx echo.Context) string {
	s, _ := ctx.Get(models.MwSubjectKey).(string)
	return s
}

func RequestID(ctx echo.Context) string {
	if id, ok := ctx.Get(models.MwRequestIDKey).(string); ok {
		return id
	}
	return ctx.Response().Header().Get(models.MwRequestIDHeader)
}

// OK writes a success envelope.
func OK(ctx echo.Context, status int, data interface{}) error {
	return ctx.JSON(status, models.Envelope{
		Success:   true,
		Data:      data,
		RequestID: RequestID(ctx),
	})
}

// Fail writes an error envelope with a client-safe message.
func Fail(ctx echo.Context, status int, msg string) error {
	return ctx.JSON(status, models.Envelope{
		Success:   false,
		Error:     msg,
		RequestID: RequestID(ctx),
	})
}
