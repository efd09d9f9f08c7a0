package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-service/internal/core/domain"
)

// ctxUser returns the identity the Auth middleware stored under "user".
// Reaching a protected handler without one means the route was wired
// without the middleware.
func ctxUser(c echo.Context) (*domain.User, error) {
	user, _ := c.Get("user").(*domain.User)
	if user == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, domain.ErrUnauthorized.Error())
	}
	return user, nil
}
