package loggingmw

import (
	"log/slog"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shopping/internal/logging"
	"github.com/Skotchmaster/shopping/internal/middleware/auth"
)

// RequestLogger puts a request-scoped logger into the request context and
// writes one http_request line per completed request. The customer is only
// known once the auth middleware of the route group has run, so it is added
// to the completion line rather than to the scoped logger.
func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := requestID(c)

			l := base.With("method", c.Request().Method, "route", c.Path())
			if rid != "" {
				l = l.With("request_id", rid)
				c.Response().Header().Set(echo.HeaderXRequestID, rid)
			}
			c.SetRequest(c.Request().WithContext(logging.IntoContext(c.Request().Context(), l)))

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Echo().HTTPErrorHandler(err, c)
			}
			status := c.Response().Status

			attrs := []any{
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"bytes", c.Response().Size,
			}
			if customerID, ok := auth.CustomerID(c); ok {
				attrs = append(attrs, "customer_id", customerID)
			}
			if err != nil {
				attrs = append(attrs, "error", err.Error())
			}

			l.Log(c.Request().Context(), levelFor(c.Path(), status), "http_request", attrs...)
			return nil
		}
	}
}

// requestID prefers the caller's id over the one generated by echo's
// RequestID middleware.
func requestID(c echo.Context) string {
	if rid := c.Request().Header.Get(echo.HeaderXRequestID); rid != "" {
		return rid
	}
	return c.Response().Header().Get(echo.HeaderXRequestID)
}

// levelFor keeps successful health checks out of info logs.
func levelFor(route string, status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	case strings.HasPrefix(route, "/health/"):
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
