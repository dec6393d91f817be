package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"prompt-storefront/internal/common"
	"prompt-storefront/internal/logging"
)

type errorResponse struct {
	Error string `json:"error"`
}

// ErrorHandler maps service errors to status codes and writes {"error": msg}.
// Server-side failures are logged and answered with a generic message.
func ErrorHandler(log logging.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, msg := statusFor(err)
		if status >= http.StatusInternalServerError {
			log.Error(c.Request().Context(), "request failed",
				"method", c.Request().Method, "path", c.Path(), "status", status, "error", err)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, errorResponse{Error: msg})
		}
		if err != nil {
			log.Error(c.Request().Context(), "write error response", "error", err)
		}
	}
}

func statusFor(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Code >= http.StatusInternalServerError {
			return he.Code, http.StatusText(he.Code)
		}
		return he.Code, fmt.Sprint(he.Message)
	}

	switch {
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrUnauthorized):
		return http.StatusUnauthorized, common.ErrUnauthorized.Error()
	case errors.Is(err, common.ErrOrderOwnership):
		return http.StatusForbidden, common.ErrOrderOwnership.Error()
	case errors.Is(err, common.ErrSessionMismatch):
		return http.StatusForbidden, common.ErrSessionMismatch.Error()
	case errors.Is(err, common.ErrCustomerMismatch):
		return http.StatusForbidden, common.ErrCustomerMismatch.Error()
	case errors.Is(err, common.ErrNotEntitled):
		return http.StatusForbidden, common.ErrNotEntitled.Error()
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden, common.ErrForbidden.Error()
	case errors.Is(err, common.ErrPaymentNotCompleted):
		return http.StatusPaymentRequired, err.Error()
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound, common.ErrNotFound.Error()
	case errors.Is(err, common.ErrRateLimited):
		return http.StatusTooManyRequests, err.Error()
	case errors.Is(err, common.ErrProvider):
		return http.StatusBadGateway, common.ErrProvider.Error()
	case errors.Is(err, common.ErrUnavailable):
		return http.StatusServiceUnavailable, err.Error()
	}

	return http.StatusInternalServerError, "internal server error"
}
