package service

import (
	"errors"
	"net/http"

	"github.com/iliyamo/finance-control-api/internal/utils"
)

// Refresh flow codes.  The numbers are part of the public API.
const (
	CodeNoToken          = 150
	CodeTokenHeader      = 151
	CodeTokenScheme      = 152
	CodeTokenTooShort    = 153
	CodeTokenVerify      = 154
	CodeRefreshInvalid   = 155
	CodeRefreshExpired   = 156
	CodeRefreshVerify    = 157
	CodeIdentityMismatch = 158
	CodeSessionRevoked   = 159
)

// RefreshError is a refresh flow rejection with its numeric code.
type RefreshError struct {
	Code    int
	Message string
}

func (e *RefreshError) Error() string { return e.Message }

// Status is the HTTP status that goes with Code.
func (e *RefreshError) Status() int {
	switch e.Code {
	case CodeRefreshExpired, CodeSessionRevoked:
		return http.StatusUnauthorized
	case CodeIdentityMismatch:
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

func refreshErr(code int, msg string) *RefreshError {
	return &RefreshError{Code: code, Message: msg}
}

// headerError maps a bearer parse failure onto its refresh code.
func headerError(err error) *RefreshError {
	switch {
	case errors.Is(err, utils.ErrNoToken):
		return refreshErr(CodeNoToken, "No token provided")
	case errors.Is(err, utils.ErrTokenHeader):
		return refreshErr(CodeTokenHeader, "Token error")
	case errors.Is(err, utils.ErrTokenScheme):
		return refreshErr(CodeTokenScheme, "Token type error")
	default:
		return refreshErr(CodeTokenTooShort, "Token invalid")
	}
}
