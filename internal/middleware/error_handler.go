package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Eursukkul/booking-microservice/ticketing-service/internal/dto"
	"github.com/Eursukkul/booking-microservice/ticketing-service/pkg/apperror"
)

var statusCodes = map[int]apperror.Code{
	http.StatusBadRequest:   apperror.CodeValidation,
	http.StatusUnauthorized: apperror.CodeUnauthenticated,
	http.StatusForbidden:    apperror.CodeUnauthorized,
	http.StatusNotFound:     apperror.CodeNotFound,
}

// ErrorHandler renders errors that reach echo (bad routes, bind failures,
// panics) in the same envelope the commands use.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	msg := "unexpected error"

	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if m, ok := he.Message.(string); ok && status < http.StatusInternalServerError {
			msg = m
		}
	}

	code, ok := statusCodes[status]
	if !ok {
		code = apperror.CodeInternal
		if status < http.StatusInternalServerError {
			code = apperror.CodeValidation
		}
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, dto.Fail(string(code), msg, nil))
}

// Unauthenticated is the failure hook for identity.Middleware.
func Unauthenticated(c echo.Context, err error) error {
	msg := "authentication required"
	if appErr, ok := apperror.As(err); ok {
		msg = appErr.Message
	}
	return c.JSON(http.StatusUnauthorized, dto.Fail(string(apperror.CodeUnauthenticated), msg, nil))
}
