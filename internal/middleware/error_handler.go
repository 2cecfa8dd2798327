package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/maix-platform/registration-service/internal/dto"
)

// ErrorHandler renders every error escaping a handler as the service's
// JSON error envelope. Internal error details are not leaked to clients.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := http.StatusText(http.StatusInternalServerError)

	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, dto.ErrorResponse{Message: msg})
}
