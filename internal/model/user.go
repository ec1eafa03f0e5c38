package model

import (
	"time"

	"github.com/iliyamo/finance-control-api/internal/utils"
)

// Roles stored in users.role.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents an application user record as stored in the `users`
// table.  Password always holds the bcrypt hash; a plaintext password only
// lives in the pending field between SetPassword and HashPending.
type User struct {
	ID                   uint64     `json:"id"`        // users.id
	Name                 string     `json:"name"`      // users.name
	Email                string     `json:"email"`     // users.email (unique)
	Password             string     `json:"-"`         // users.password (bcrypt)
	Role                 string     `json:"role"`      // users.role
	PasswordResetToken   *string    `json:"-"`         // users.password_reset_token
	PasswordResetExpires *time.Time `json:"-"`         // users.password_reset_expires
	CreatedAt            time.Time  `json:"createdAt"` // users.created_at
	UpdatedAt            time.Time  `json:"updatedAt"` // users.updated_at

	pendingPassword *string
}

// SetPassword records a new plaintext password.  It is hashed by HashPending
// before the row is written.
func (u *User) SetPassword(plain string) {
	u.pendingPassword = &plain
}

// PasswordChanged reports whether a plaintext password is waiting to be hashed.
func (u *User) PasswordChanged() bool { return u.pendingPassword != nil }

// HashPending hashes the pending plaintext password into Password.  It is a
// no-op when the password was not changed, so an already hashed value is
// never hashed twice.
func (u *User) HashPending(cost int) error {
	if u.pendingPassword == nil {
		return nil
	}
	hash, err := utils.HashPassword(*u.pendingPassword, cost)
	if err != nil {
		return err
	}
	u.Password = hash
	u.pendingPassword = nil
	return nil
}

// CheckPassword compares plain against the stored hash.
func (u *User) CheckPassword(plain string) bool {
	return utils.VerifyPassword(u.Password, plain)
}

// SetResetToken stores a reset token valid until expires.
func (u *User) SetResetToken(token string, expires time.Time) {
	u.PasswordResetToken = &token
	u.PasswordResetExpires = &expires
}

// ClearResetToken removes both reset fields.
func (u *User) ClearResetToken() {
	u.PasswordResetToken = nil
	u.PasswordResetExpires = nil
}

// PublicUser is the projection returned to clients.
type PublicUser struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Public returns the non sensitive projection of u.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email}
}
