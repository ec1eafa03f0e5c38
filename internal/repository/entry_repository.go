package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/finance-control-api/internal/model"
)

// EntryRepo stores entries and their category links.  Writes that touch both
// tables run in one transaction.
type EntryRepo struct {
	db *sql.DB
}

func NewEntryRepo(db *sql.DB) *EntryRepo { return &EntryRepo{db: db} }

const entryColumns = "id, user_id, label, type, value, registered_at, created_at, updated_at"

func scanEntry(row interface{ Scan(...any) error }) (*model.Entry, error) {
	var e model.Entry
	if err := row.Scan(&e.ID, &e.UserID, &e.Label, &e.Type, &e.Value, &e.RegisteredAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EntryRepo) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()
	return fn(tx)
}

// ListBetween returns the entries of userID registered in [start, end],
// newest first, each with its categories.
func (r *EntryRepo) ListBetween(ctx context.Context, userID uint64, start, end time.Time) ([]model.Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+entryColumns+" FROM entries WHERE user_id=? AND registered_at BETWEEN ? AND ? ORDER BY registered_at DESC, id DESC",
		userID, start, end)
	if err != nil {
		return nil, err
	}
	out := []model.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, *e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}
	ids := make([]uint64, len(out))
	for i := range out {
		ids[i] = out[i].ID
	}
	cats, err := r.categoriesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Categories = cats[out[i].ID]
	}
	return out, nil
}

// GetByID fetches an entry with its categories regardless of owner.
func (r *EntryRepo) GetByID(ctx context.Context, id uint64) (*model.Entry, error) {
	e, err := scanEntry(r.db.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM entries WHERE id=?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	cats, err := r.categoriesFor(ctx, []uint64{e.ID})
	if err != nil {
		return nil, err
	}
	e.Categories = cats[e.ID]
	return e, nil
}

func (r *EntryRepo) categoriesFor(ctx context.Context, entryIDs []uint64) (map[uint64][]model.Category, error) {
	args := make([]any, len(entryIDs))
	for i, id := range entryIDs {
		args[i] = id
	}
	q := "SELECT ec.entry_id, c.id, c.user_id, c.label, c.color, c.created_at, c.updated_at " +
		"FROM entry_categories ec JOIN categories c ON c.id = ec.category_id " +
		"WHERE ec.entry_id IN (" + placeholders(len(entryIDs)) + ") ORDER BY c.label, c.id"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uint64][]model.Category, len(entryIDs))
	for rows.Next() {
		var (
			entryID uint64
			c       model.Category
		)
		if err := rows.Scan(&entryID, &c.ID, &c.UserID, &c.Label, &c.Color, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out[entryID] = append(out[entryID], c)
	}
	return out, rows.Err()
}

func linkCategories(ctx context.Context, tx *sql.Tx, entryID uint64, categoryIDs []uint64) error {
	ids := model.UniqueIDs(categoryIDs)
	if len(ids) == 0 {
		return nil
	}
	query := "INSERT INTO entry_categories (entry_id, category_id) VALUES "
	args := make([]any, 0, len(ids)*2)
	for i, id := range ids {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, entryID, id)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("link categories: %w", err)
	}
	return nil
}

// Create inserts e together with its category links.  Duplicate category ids
// are collapsed before insert.
func (r *EntryRepo) Create(ctx context.Context, e *model.Entry, categoryIDs []uint64) error {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO entries (user_id, label, type, value, registered_at) VALUES (?,?,?,?,?)",
			e.UserID, e.Label, e.Type, e.Value, e.RegisteredAt)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		e.ID = uint64(id)
		return linkCategories(ctx, tx, e.ID, categoryIDs)
	})
	if err != nil {
		return err
	}
	return r.reload(ctx, e)
}

// Update rewrites the scalar fields of e.  A nil categoryIDs keeps the
// current links; any non-nil slice, even empty, replaces them.
func (r *EntryRepo) Update(ctx context.Context, e *model.Entry, categoryIDs []uint64) error {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"UPDATE entries SET label=?, type=?, value=?, registered_at=? WHERE id=? AND user_id=?",
			e.Label, e.Type, e.Value, e.RegisteredAt, e.ID, e.UserID); err != nil {
			return err
		}
		if categoryIDs == nil {
			return nil
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM entry_categories WHERE entry_id=?", e.ID); err != nil {
			return err
		}
		return linkCategories(ctx, tx, e.ID, categoryIDs)
	})
	if err != nil {
		return err
	}
	return r.reload(ctx, e)
}

// Delete removes the entry and its links.  The linked categories stay.
func (r *EntryRepo) Delete(ctx context.Context, userID, id uint64) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM entry_categories WHERE entry_id=?", id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM entries WHERE id=? AND user_id=?", id, userID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *EntryRepo) reload(ctx context.Context, e *model.Entry) error {
	saved, err := r.GetByID(ctx, e.ID)
	if err != nil {
		return err
	}
	*e = *saved
	return nil
}
