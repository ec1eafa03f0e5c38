package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/finance-control-api/internal/model"
)

// SessionFilter selects registry rows.  An empty Sessid matches every
// session of UserID.
type SessionFilter struct {
	UserID uint64
	Sessid string
}

// SessionRepo is the session registry: one row per live refresh token,
// keyed by (user_id, sessid).
type SessionRepo struct {
	DB         *sql.DB
	DefaultTTL time.Duration
	now        func() time.Time
}

// NewSessionRepo returns a registry whose rows default to defaultTTL when
// Create is called with a zero expiry.
func NewSessionRepo(db *sql.DB, defaultTTL time.Duration) *SessionRepo {
	return &SessionRepo{DB: db, DefaultTTL: defaultTTL, now: func() time.Time { return time.Now().UTC() }}
}

// Create registers a session.  A zero expiresAt means now + DefaultTTL.
func (r *SessionRepo) Create(ctx context.Context, userID uint64, sessid string, expiresAt time.Time) (*model.Session, error) {
	if expiresAt.IsZero() {
		expiresAt = r.now().Add(r.DefaultTTL)
	}
	s := &model.Session{UserID: userID, Sessid: sessid, ExpiresAt: expiresAt.UTC()}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO sessions (user_id, sessid, expires_at) VALUES (?,?,?)",
		s.UserID, s.Sessid, s.ExpiresAt)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	s.ID = uint64(id)
	return s, nil
}

// Find returns the live session matching f.  Expired rows are treated as
// absent and yield ErrNotFound.
func (r *SessionRepo) Find(ctx context.Context, f SessionFilter) (*model.Session, error) {
	var s model.Session
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, sessid, expires_at, created_at FROM sessions WHERE user_id=? AND sessid=? AND expires_at > ? LIMIT 1",
		f.UserID, f.Sessid, r.now()).Scan(&s.ID, &s.UserID, &s.Sessid, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Revoke deletes the rows matching f and returns how many went away.
// Revoking nothing is not an error.
func (r *SessionRepo) Revoke(ctx context.Context, f SessionFilter) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if f.Sessid == "" {
		res, err = r.DB.ExecContext(ctx, "DELETE FROM sessions WHERE user_id=?", f.UserID)
	} else {
		res, err = r.DB.ExecContext(ctx, "DELETE FROM sessions WHERE user_id=? AND sessid=?", f.UserID, f.Sessid)
	}
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PurgeExpired deletes every row whose expiry has passed.
func (r *SessionRepo) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", r.now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
