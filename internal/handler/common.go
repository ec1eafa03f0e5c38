package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// dbTimeout bounds the store calls made by a single request.
const dbTimeout = 5 * time.Second

func requestCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

func message(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"message": msg})
}

// serverError logs the cause and answers 500 with a generic message.
func serverError(c echo.Context, log *slog.Logger, err error, msg string) error {
	log.Error(msg,
		slog.String("method", c.Request().Method),
		slog.String("path", c.Path()),
		slog.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
		slog.Any("err", err))
	return message(c, http.StatusInternalServerError, msg)
}

// pathID parses the named path parameter as a positive id.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
