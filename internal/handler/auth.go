package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/finance-control-api/internal/middleware"
	"github.com/iliyamo/finance-control-api/internal/model"
	"github.com/iliyamo/finance-control-api/internal/service"
	"github.com/iliyamo/finance-control-api/internal/utils"
)

// AuthFlows is what the auth endpoints need from the auth service.
type AuthFlows interface {
	Signup(ctx context.Context, in service.SignupInput) (*model.User, error)
	EmailRegistered(ctx context.Context, email string) (bool, error)
	Signin(ctx context.Context, email, password string) (*service.SigninResult, error)
	Signout(ctx context.Context, ident utils.Identity) error
	RecoverPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, in service.ResetPasswordInput) error
	Refresh(ctx context.Context, authHeader, refreshRaw string) (string, error)
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Auth AuthFlows
	Log  *slog.Logger
}

func NewAuthHandler(auth AuthFlows, log *slog.Logger) *AuthHandler {
	return &AuthHandler{Auth: auth, Log: log}
}

// ----- DTOs -----

type signupReq struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	PasswordConf string `json:"password_conf"`
}

func (r *signupReq) validate(ctx context.Context, auth AuthFlows) error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Email, validation.Required, is.Email, validation.By(func(interface{}) error {
			taken, err := auth.EmailRegistered(ctx, r.Email)
			if err != nil {
				return validation.NewInternalError(err)
			}
			if taken {
				return errors.New("email already in use")
			}
			return nil
		})),
		validation.Field(&r.Name, validation.Required, validation.RuneLength(3, 20)),
		validation.Field(&r.Password, validation.Required, validation.Length(3, 21)),
		validation.Field(&r.PasswordConf, validation.Required, validation.By(equals(r.Password))),
	)
}

type signinReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *signinReq) validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(3, 21)),
	)
}

type recoverReq struct {
	Email string `json:"email"`
}

func (r *recoverReq) validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

type resetReq struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	PasswordConf string `json:"password_conf"`
}

func (r *resetReq) validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(3, 21)),
		validation.Field(&r.PasswordConf, validation.Required, validation.By(equals(r.Password))),
	)
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

// Signup creates an account.  Whatever role the body carries, the account
// gets the default one.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)

	ctx, cancel := requestCtx(c)
	defer cancel()

	if done, err := invalid(c, h.Log, req.validate(ctx, h.Auth)); done {
		return err
	}

	u, err := h.Auth.Signup(ctx, service.SignupInput{Name: req.Name, Email: req.Email, Password: req.Password})
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			return fieldInvalid(c, "email", "email already in use")
		}
		return serverError(c, h.Log, err, "Signup failed")
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "Signup successful", "user": u.Public()})
}

// Signin verifies the credentials and returns the user with a fresh token
// pair.
func (h *AuthHandler) Signin(c echo.Context) error {
	var req signinReq
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if done, err := invalid(c, h.Log, req.validate()); done {
		return err
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	res, err := h.Auth.Signin(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return message(c, http.StatusUnauthorized, "Invalid email and/or password.")
		}
		return serverError(c, h.Log, err, "Signin failed")
	}
	return c.JSON(http.StatusOK, res)
}

// Signout revokes the session of the calling token.
func (h *AuthHandler) Signout(c echo.Context) error {
	ident, ok := middleware.Caller(c)
	if !ok {
		return message(c, http.StatusUnauthorized, "No token provided")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	if err := h.Auth.Signout(ctx, ident); err != nil {
		return serverError(c, h.Log, err, "Signout failed")
	}
	return message(c, http.StatusOK, "Signed out")
}

const recoverMessage = "If this email is registered, a message with instructions to create a new password was sent."

// RecoverPassword mails a reset token.  The answer is the same whether or not
// the email exists.
func (h *AuthHandler) RecoverPassword(c echo.Context) error {
	var req recoverReq
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if done, err := invalid(c, h.Log, req.validate()); done {
		return err
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	if err := h.Auth.RecoverPassword(ctx, req.Email); err != nil {
		if errors.Is(err, service.ErrMailDelivery) {
			return serverError(c, h.Log, err, "Could not send the password recovery email.")
		}
		return serverError(c, h.Log, err, "Password recovery failed. Please try again later.")
	}
	return message(c, http.StatusOK, recoverMessage)
}

// ResetPassword sets a new password using the token from the recovery mail.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetReq
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if done, err := invalid(c, h.Log, req.validate()); done {
		return err
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	err := h.Auth.ResetPassword(ctx, service.ResetPasswordInput{Token: c.Param("token"), Email: req.Email, Password: req.Password})
	switch {
	case err == nil:
		return message(c, http.StatusOK, "New password created.")
	case errors.Is(err, service.ErrUserNotFound):
		return message(c, http.StatusBadRequest, "User not found.")
	case errors.Is(err, service.ErrResetTokenInvalid):
		return message(c, http.StatusBadRequest, "Invalid token.")
	case errors.Is(err, service.ErrResetTokenExpired):
		return message(c, http.StatusBadRequest, "Your token has expired. Please recover your password again.")
	default:
		return serverError(c, h.Log, err, "Password reset failed.")
	}
}

// RefreshToken trades an expired access token plus a refresh token for a
// new access token.  An unreadable body counts as a missing refresh token,
// so the header is still checked first.
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		req = refreshReq{}
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	tok, err := h.Auth.Refresh(ctx, c.Request().Header.Get(echo.HeaderAuthorization), req.RefreshToken)
	if err != nil {
		var re *service.RefreshError
		if errors.As(err, &re) {
			return c.JSON(re.Status(), echo.Map{"message": re.Message, "code": re.Code})
		}
		return serverError(c, h.Log, err, "Token refresh failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"token": tok})
}
