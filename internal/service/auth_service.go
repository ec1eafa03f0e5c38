// Package service holds the authentication flows and the mail outbox.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iliyamo/finance-control-api/internal/mail"
	"github.com/iliyamo/finance-control-api/internal/model"
	"github.com/iliyamo/finance-control-api/internal/repository"
	"github.com/iliyamo/finance-control-api/internal/utils"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrResetTokenInvalid  = errors.New("invalid reset token")
	ErrResetTokenExpired  = errors.New("reset token expired")
	ErrMailDelivery       = errors.New("could not send mail")
)

// ResetTokenTTL is how long a password reset token stays usable.
const ResetTokenTTL = time.Hour

const welcomeMailTimeout = 30 * time.Second

// UserStore is the part of the user repository the flows need.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, u *model.User) error
	EmailExists(ctx context.Context, email string) (bool, error)
}

// SessionStore is the session registry.
type SessionStore interface {
	Create(ctx context.Context, userID uint64, sessid string, expiresAt time.Time) (*model.Session, error)
	Find(ctx context.Context, f repository.SessionFilter) (*model.Session, error)
	Revoke(ctx context.Context, f repository.SessionFilter) (int64, error)
}

// AuthService implements signup, signin, signout, password recovery and
// access token refresh.
type AuthService struct {
	users    UserStore
	sessions SessionStore
	tokens   *utils.TokenService
	sender   mail.Sender
	outbox   Dispatcher
	log      *slog.Logger
	now      func() time.Time
}

// NewAuthService wires the flows.  sender delivers mail that must arrive
// before the request completes; outbox takes mail that may arrive later.
func NewAuthService(users UserStore, sessions SessionStore, tokens *utils.TokenService, sender mail.Sender, outbox Dispatcher, log *slog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		sender:   sender,
		outbox:   outbox,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SignupInput is a validated signup request.
type SignupInput struct {
	Name     string
	Email    string
	Password string
}

// Signup creates a user with the default role and queues a welcome mail.
// A failing welcome mail never fails the signup.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*model.User, error) {
	u := &model.User{Name: in.Name, Email: in.Email, Role: model.RoleUser}
	u.SetPassword(in.Password)
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	msg := mail.Message{
		To:       u.Email,
		Subject:  "Welcome!",
		Template: mail.TemplateWelcome,
		Data:     map[string]any{"email": u.Email, "name": u.Name},
	}
	go func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, welcomeMailTimeout)
		defer cancel()
		if err := s.outbox.Dispatch(ctx, msg); err != nil {
			s.log.Warn("welcome mail not dispatched", slog.String("to", msg.To), slog.Any("err", err))
		}
	}(context.WithoutCancel(ctx))

	return u, nil
}

// EmailRegistered reports whether email already belongs to a user.
func (s *AuthService) EmailRegistered(ctx context.Context, email string) (bool, error) {
	return s.users.EmailExists(ctx, email)
}

// SigninResult is returned to the client on a successful signin.
type SigninResult struct {
	User         model.PublicUser `json:"user"`
	Token        string           `json:"token"`
	RefreshToken string           `json:"refresh_token"`
}

// Signin checks the credentials, opens a new session and returns both
// tokens.  The registry row expires exactly when the refresh token does.
func (s *AuthService) Signin(ctx context.Context, email, password string) (*SigninResult, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !u.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}

	sessid, err := utils.NewSessid()
	if err != nil {
		return nil, fmt.Errorf("generate sessid: %w", err)
	}
	ident := utils.Identity{ID: u.ID, Role: u.Role, Sessid: sessid}
	access, err := s.tokens.IssueAccess(ident)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefresh(ident)
	if err != nil {
		return nil, err
	}
	// Signed above, so the unverified decode is safe.
	claims, err := utils.DecodeToken(refresh)
	if err != nil {
		return nil, err
	}
	if _, err := s.sessions.Create(ctx, u.ID, sessid, claims.ExpiresAt.Time); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	return &SigninResult{User: u.Public(), Token: access, RefreshToken: refresh}, nil
}

// Signout revokes the session named by ident.  Revoking an already revoked
// session succeeds.
func (s *AuthService) Signout(ctx context.Context, ident utils.Identity) error {
	if _, err := s.sessions.Revoke(ctx, repository.SessionFilter{UserID: ident.ID, Sessid: ident.Sessid}); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// RecoverPassword stores a fresh reset token on the user and mails it.  An
// unknown email is not an error so callers cannot probe for accounts.
func (s *AuthService) RecoverPassword(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("find user: %w", err)
	}

	token, err := utils.NewResetToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	u.SetResetToken(token, s.now().Add(ResetTokenTTL))
	if err := s.users.Update(ctx, u); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	err = s.sender.Send(ctx, mail.Message{
		To:       u.Email,
		Subject:  "Recover password",
		Template: mail.TemplatePasswordRecover,
		Data:     map[string]any{"email": u.Email, "name": u.Name, "token": token},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMailDelivery, err)
	}
	return nil
}

// ResetPasswordInput is a validated reset request.
type ResetPasswordInput struct {
	Token    string
	Email    string
	Password string
}

// ResetPassword replaces the password if the token matches and has not
// expired.  Every session of the user is revoked and the token is cleared,
// so it works once.
func (s *AuthService) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	u, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}
	if u.PasswordResetToken == nil || *u.PasswordResetToken != in.Token {
		return ErrResetTokenInvalid
	}
	if u.PasswordResetExpires == nil || !s.now().Before(*u.PasswordResetExpires) {
		return ErrResetTokenExpired
	}

	if _, err := s.sessions.Revoke(ctx, repository.SessionFilter{UserID: u.ID}); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	u.SetPassword(in.Password)
	u.ClearResetToken()
	if err := s.users.Update(ctx, u); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// Refresh returns an access token for authHeader.  A still valid access
// token comes back unchanged.  An expired one is replaced if refreshRaw
// carries the same identity and its session is still registered.  Client
// faults are returned as *RefreshError; anything else is a server fault.
func (s *AuthService) Refresh(ctx context.Context, authHeader, refreshRaw string) (string, error) {
	raw, err := utils.ParseBearer(authHeader)
	if err != nil {
		return "", headerError(err)
	}

	if _, err := s.tokens.VerifyAccess(raw); err == nil {
		return raw, nil
	} else if !errors.Is(err, utils.ErrTokenExpired) {
		return "", refreshErr(CodeTokenVerify, "Token verify error")
	}
	// Only the expiry failed, the signature is good.
	access, err := utils.DecodeToken(raw)
	if err != nil {
		return "", refreshErr(CodeTokenVerify, "Token verify error")
	}

	if len(refreshRaw) < utils.MinTokenLength {
		return "", refreshErr(CodeRefreshInvalid, "Refresh token invalid")
	}
	refresh, err := s.tokens.VerifyRefresh(refreshRaw)
	if err != nil {
		if errors.Is(err, utils.ErrTokenExpired) {
			return "", refreshErr(CodeRefreshExpired, "Refresh token expired. Signin again.")
		}
		return "", refreshErr(CodeRefreshVerify, "Refresh token verification failed")
	}

	if access.ID != refresh.ID || access.Sessid != refresh.Sessid {
		return "", refreshErr(CodeIdentityMismatch, "Token and refresh token do not match")
	}

	sess, err := s.sessions.Find(ctx, repository.SessionFilter{UserID: refresh.ID, Sessid: refresh.Sessid})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", refreshErr(CodeSessionRevoked, "Session is no longer valid. Signin again.")
		}
		return "", fmt.Errorf("find session: %w", err)
	}
	if sess.Sessid != refresh.Sessid {
		return "", refreshErr(CodeSessionRevoked, "Session is no longer valid. Signin again.")
	}

	return s.tokens.IssueAccess(refresh.Identity())
}
