package httpserver

import (
	"errors"
	"net/http"

	"github.com/Skotchmaster/shopping/internal/service"
	"github.com/Skotchmaster/shopping/internal/transport"
	"github.com/labstack/echo/v4"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrEmptyCart):
		return http.StatusConflict
	case errors.Is(err, service.ErrStorage):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// httpError hides the cause of server-side failures from the client.
func httpError(err error) (int, *echo.HTTPError) {
	status := statusFor(err)
	body := transport.ErrorResponse{Error: err.Error(), Field: service.FieldOf(err)}
	if status >= http.StatusInternalServerError {
		body = transport.ErrorResponse{Error: http.StatusText(status)}
	}
	return status, echo.NewHTTPError(status, body).SetInternal(err)
}
