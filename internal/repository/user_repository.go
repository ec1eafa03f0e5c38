package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/finance-control-api/internal/model"
	"github.com/iliyamo/finance-control-api/internal/utils"
)

const userColumns = "id, name, email, password, role, password_reset_token, password_reset_expires, created_at, updated_at"

// UserRepo reads and writes the users table.  Cost is the bcrypt cost used
// when a pending password is hashed on Create or Update.
type UserRepo struct {
	DB   *sql.DB
	Cost int
}

func NewUserRepo(db *sql.DB, cost int) *UserRepo {
	if cost <= 0 {
		cost = utils.DefaultBcryptCost
	}
	return &UserRepo{DB: db, Cost: cost}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts u, hashing its pending password first, and sets u.ID.  An
// empty role is stored as model.RoleUser.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	if err := u.HashPending(r.Cost); err != nil {
		return err
	}
	u.Email = normalizeEmail(u.Email)
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, password, role) VALUES (?,?,?,?)",
		u.Name, u.Email, u.Password, u.Role)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var (
		u       model.User
		token   sql.NullString
		expires sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.Role, &token, &expires, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if token.Valid {
		u.PasswordResetToken = &token.String
	}
	if expires.Valid {
		u.PasswordResetExpires = &expires.Time
	}
	return &u, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", normalizeEmail(email)))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// EmailExists reports whether a user with email is registered.
func (r *UserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE email=?", normalizeEmail(email)).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Update writes name, email, password and the reset fields of u.  The
// password is re-hashed only if SetPassword was called since the last save.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	if err := u.HashPending(r.Cost); err != nil {
		return err
	}
	u.Email = normalizeEmail(u.Email)
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET name=?, email=?, password=?, password_reset_token=?, password_reset_expires=? WHERE id=?",
		u.Name, u.Email, u.Password, u.PasswordResetToken, u.PasswordResetExpires, u.ID)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// MySQL reports 0 when nothing changed; distinguish a missing row.
		if _, err := r.GetByID(ctx, u.ID); err != nil {
			return err
		}
	}
	return nil
}
