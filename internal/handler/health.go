package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is the liveness probe used by load balancers.  It always answers
// a plain text "ok".
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Hello answers GET and POST / with the API name and version.
func Hello(version string) echo.HandlerFunc {
	msg := "Hello My Financial Control Api v" + version
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"message": msg})
	}
}
