package auth

import (
	"net/http"
	"strings"

	"github.com/Skotchmaster/shopping/internal/tokens"
	"github.com/labstack/echo/v4"
)

const (
	AccessCookie = "accessToken"
	UserIDKey    = "user_id"
	RoleKey      = "role"
)

// RequireCustomer accepts an access token from the accessToken cookie or a
// Bearer Authorization header and exposes its subject as "user_id".
func RequireCustomer(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := accessToken(c)
			if raw == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
			}

			claims, err := tokens.AccessClaimsFromToken(raw, secret)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
			}

			c.Set(UserIDKey, claims.Subject)
			c.Set(RoleKey, claims.Role)
			return next(c)
		}
	}
}

func accessToken(c echo.Context) string {
	if ck, err := c.Cookie(AccessCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// CustomerID returns the identity set by RequireCustomer.
func CustomerID(c echo.Context) (string, bool) {
	s, ok := c.Get(UserIDKey).(string)
	return s, ok && s != ""
}
