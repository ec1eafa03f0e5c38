// Package router registers the HTTP routes of the API.
package router

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/finance-control-api/internal/handler"
	"github.com/iliyamo/finance-control-api/internal/middleware"
)

// Use installs the middleware every route shares: panic recovery, request
// ids and an access log written to log.
func Use(e *echo.Echo, log *slog.Logger) {
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []any{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				log.Error("request failed", append(attrs, slog.Any("err", v.Error))...)
				return nil
			}
			log.Info("request", attrs...)
			return nil
		},
	}))
}

// RegisterRoutes registers the routes that need no authentication: the
// greeting at / and the health check.
func RegisterRoutes(e *echo.Echo, version string) {
	hello := handler.Hello(version)
	e.GET("/", hello)
	e.POST("/", hello)
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the /auth routes.  Signup, signin and the password
// routes refuse callers that already send credentials; signout needs a valid
// access token.  limiter guards the whole group.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, tokens middleware.TokenVerifier, limiter echo.MiddlewareFunc) {
	g := e.Group("/auth", limiter)

	guest := middleware.NoAuth()
	g.POST("/signup", a.Signup, guest)
	g.POST("/signin", a.Signin, guest)
	g.POST("/password/recover", a.RecoverPassword, guest)
	g.POST("/password/reset/:token", a.ResetPassword, guest)

	g.POST("/signout", a.Signout, middleware.JWTAuth(tokens))

	// Reads the possibly expired access token itself.
	g.POST("/token/refresh", a.RefreshToken)
}
