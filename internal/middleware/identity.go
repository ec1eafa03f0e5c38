package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/finance-control-api/internal/utils"
)

// Context keys set by JWTAuth.
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
	CtxSessid = "sessid"
)

// Caller returns the identity JWTAuth attached to c.  ok is false on routes
// that did not pass through JWTAuth.
func Caller(c echo.Context) (utils.Identity, bool) {
	id, ok := c.Get(CtxUserID).(uint64)
	if !ok {
		return utils.Identity{}, false
	}
	role, _ := c.Get(CtxRole).(string)
	sessid, _ := c.Get(CtxSessid).(string)
	return utils.Identity{ID: id, Role: role, Sessid: sessid}, true
}

func setCaller(c echo.Context, ident utils.Identity) {
	c.Set(CtxUserID, ident.ID)
	c.Set(CtxRole, ident.Role)
	c.Set(CtxSessid, ident.Sessid)
}

// userKey is the caller id used in rate limit keys, or "anon".
func userKey(c echo.Context) string {
	if ident, ok := Caller(c); ok {
		return strconv.FormatUint(ident.ID, 10)
	}
	return "anon"
}
