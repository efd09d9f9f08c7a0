package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-service/internal/core/ports"
)

// Auth resolves the bearer token through authorizer and stores the live
// identity under "user". A missing or malformed header is handed to the
// authorizer as an empty token so every rejection takes the same path.
func Auth(authorizer ports.Authorizer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := authorizer.Authorize(c.Request().Context(), bearerToken(c))
			if err != nil {
				return err
			}

			c.Set("user", user)
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) string {
	parts := strings.SplitN(c.Request().Header.Get(echo.HeaderAuthorization), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
