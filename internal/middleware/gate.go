package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/finance-control-api/internal/model"
)

// Gate lets a request through when the caller is an admin, or a plain user
// whose id equals the path parameter param.  It must run after JWTAuth.
func Gate(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !allowed(c, param) {
				return c.JSON(http.StatusForbidden, echo.Map{"message": "Forbidden"})
			}
			return next(c)
		}
	}
}

func allowed(c echo.Context, param string) bool {
	ident, ok := Caller(c)
	if !ok {
		return false
	}
	if ident.Role == model.RoleAdmin {
		return true
	}
	if ident.Role != model.RoleUser {
		return false
	}
	target, err := strconv.ParseUint(c.Param(param), 10, 64)
	return err == nil && target == ident.ID
}
