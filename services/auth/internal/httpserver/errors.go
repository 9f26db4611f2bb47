package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Skotchmaster/autojournal/pkg/logging"
	"github.com/Skotchmaster/autojournal/services/auth/internal/domain"
	"github.com/Skotchmaster/autojournal/services/auth/internal/service"
	"github.com/Skotchmaster/autojournal/services/auth/internal/transport"
	"github.com/labstack/echo/v4"
)

// ErrorHandler renders every error as {"code", "detail"}. Internal causes are
// logged, never sent.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := describe(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(c.Request().Context()).Error("request_failed", "status", status, "code", body.Code, "error", err)
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(status)
	} else {
		werr = c.JSON(status, body)
	}
	if werr != nil {
		logging.FromContext(c.Request().Context()).Error("error_response_failed", "error", werr)
	}
}

func describe(err error) (int, transport.ErrorResponse) {
	var (
		de *domain.Error
		he *echo.HTTPError
	)
	switch {
	case errors.As(err, &de):
		return de.Kind.HTTPStatus(), transport.ErrorResponse{Code: de.Kind.Code(), Detail: domain.Message(err)}
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound, transport.ErrorResponse{Code: "user_not_found", Detail: err.Error()}
	case errors.Is(err, service.ErrUserExists):
		return http.StatusConflict, transport.ErrorResponse{Code: "user_exists", Detail: err.Error()}
	case errors.Is(err, service.ErrUserDeleted):
		return http.StatusBadRequest, transport.ErrorResponse{Code: "user_deleted", Detail: err.Error()}
	case errors.Is(err, service.ErrPasswordTooLong):
		return http.StatusBadRequest, transport.ErrorResponse{Code: "password_too_long", Detail: err.Error()}
	case errors.Is(err, service.ErrRoleNotFound):
		return http.StatusBadRequest, transport.ErrorResponse{Code: "role_not_found", Detail: err.Error()}
	case errors.As(err, &he):
		detail := fmt.Sprint(he.Message)
		if he.Code >= http.StatusInternalServerError {
			detail = http.StatusText(he.Code)
		}
		return he.Code, transport.ErrorResponse{Code: statusCode(he.Code), Detail: detail}
	default:
		return http.StatusInternalServerError, transport.ErrorResponse{Code: domain.KindInternal.Code(), Detail: domain.ErrInternal.Msg}
	}
}

func statusCode(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return "error"
	}
	return strings.ReplaceAll(strings.ToLower(text), " ", "_")
}
