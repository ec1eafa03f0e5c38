package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// NoAuth rejects requests that carry any Authorization header.  Signed in
// clients have to sign out before using the signup, signin and password
// routes again.
func NoAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if len(c.Request().Header.Values(echo.HeaderAuthorization)) > 0 {
				return c.JSON(http.StatusForbidden, echo.Map{"message": "You are already authenticated"})
			}
			return next(c)
		}
	}
}
