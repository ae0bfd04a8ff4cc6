package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/rryowa/weq_api/internal/controller"
	"github.com/rryowa/weq_api/internal/service"
	"github.com/rryowa/weq_api/internal/util"
)

const internalErrorMessage = "Internal server error"

// domainErrors maps service sentinels to fixed client-facing responses.
var domainErrors = []struct {
	err    error
	status int
	msg    string
}{
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "Incorrect username or password"},
	{service.ErrTokenInvalid, http.StatusUnauthorized, "Could not validate credentials"},
	{service.ErrTokenRevoked, http.StatusUnauthorized, "Could not validate credentials"},
	{service.ErrRateLimited, http.StatusTooManyRequests, "Too many login attempts, try again later"},
	{service.ErrDuplicateEmail, http.StatusConflict, "Email already registered"},
	{service.ErrUserNotFound, http.StatusNotFound, "User not found"},
	{service.ErrNoteNotFound, http.StatusNotFound, "Note not found"},
}

func ErrorHandler(log *zap.SugaredLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, msg := resolveError(err)
		if status >= http.StatusInternalServerError {
			log.Errorw("unhandled error",
				"error", err,
				"uri", c.Request().RequestURI,
				"request_id", controller.RequestID(c),
			)
			msg = internalErrorMessage
		}
		if status == http.StatusUnauthorized {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = controller.Fail(c, status, msg)
		}
		if err != nil {
			log.Errorw("failed to write json response", "error", err)
		}
	}
}

func resolveError(err error) (int, string) {
	if errors.Is(err, service.ErrValidation) {
		return http.StatusUnprocessableEntity, err.Error()
	}
	for _, d := range domainErrors {
		if errors.Is(err, d.err) {
			return d.status, d.msg
		}
	}

	if respErr, ok := util.AsResponseError(err); ok {
		return respErr.Status, respErr.Msg
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprint(he.Message)
	}

	return http.StatusInternalServerError, internalErrorMessage
}

// ValidationErrorHandler turns request validation failures into 422. Routing
// failures from the validator keep their status.
func ValidationErrorHandler(_ echo.Context, err *echo.HTTPError) error {
	if err.Code != http.StatusBadRequest {
		return err
	}

	msg := fmt.Sprint(err.Message)
	if i := strings.IndexByte(msg, '\n'); i > 0 {
		msg = msg[:i]
	}
	return &echo.HTTPError{
		Code:     http.StatusUnprocessableEntity,
		Message:  "Validation error: " + msg,
		Internal: err,
	}
}
