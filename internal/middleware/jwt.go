package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/finance-control-api/internal/utils"
)

// CodeTokenExpired marks an expired access token so clients know to call
// the refresh endpoint.
const CodeTokenExpired = 190

// TokenVerifier checks access tokens.
type TokenVerifier interface {
	VerifyAccess(raw string) (*utils.Claims, error)
}

// JWTAuth requires a valid "Bearer <access token>" header and stores the
// token's id, role and sessid in the context (see Caller).
func JWTAuth(tokens TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := utils.ParseBearer(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": bearerMessage(err)})
			}

			claims, err := tokens.VerifyAccess(raw)
			if err != nil {
				if errors.Is(err, utils.ErrTokenExpired) {
					return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Token expired", "code": CodeTokenExpired})
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Token validation error"})
			}

			setCaller(c, claims.Identity())
			return next(c)
		}
	}
}

func bearerMessage(err error) string {
	switch {
	case errors.Is(err, utils.ErrNoToken):
		return "No token provided"
	case errors.Is(err, utils.ErrTokenHeader):
		return "Token error"
	case errors.Is(err, utils.ErrTokenScheme):
		return "Token type error"
	default:
		return "Token invalid"
	}
}
