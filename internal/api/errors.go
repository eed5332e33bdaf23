package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"fetalscan/internal/lifecycle"
	"fetalscan/internal/logging"
	"fetalscan/internal/report"
)

// statusFor maps lifecycle and validation errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		validationErr *report.ValidationError
		patchErr      *report.PatchError
		httpErr       *echo.HTTPError
	)
	switch {
	case errors.As(err, &validationErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, lifecycle.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, lifecycle.ErrNotConfirmed):
		return http.StatusConflict
	case errors.As(err, &patchErr), errors.Is(err, lifecycle.ErrUnknownSource):
		return http.StatusBadRequest
	case errors.As(err, &httpErr):
		return httpErr.Code
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(c echo.Context, err error) error {
	status := statusFor(err)
	body := ErrorResponse{Error: err.Error()}
	var validationErr *report.ValidationError
	if errors.As(err, &validationErr) {
		body.Errors = validationErr.Errors
	}
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		if msg, ok := httpErr.Message.(string); ok {
			body.Error = msg
		}
	}
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(logging.WithContext(c.Request().Context(), h.logger), "api request failed", "api_error",
			logging.String("path", c.Path()),
			logging.Error(err),
		)
	}
	return c.JSON(status, body)
}
