package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/finance-control-api/internal/model"
)

// CategoryRepo encapsulates the queries on categories.
type CategoryRepo struct {
	db *sql.DB
}

func NewCategoryRepo(db *sql.DB) *CategoryRepo { return &CategoryRepo{db: db} }

const categoryColumns = "id, user_id, label, color, created_at, updated_at"

func scanCategory(row interface{ Scan(...any) error }) (*model.Category, error) {
	var c model.Category
	if err := row.Scan(&c.ID, &c.UserID, &c.Label, &c.Color, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListByUser returns the categories owned by userID ordered by label.
func (r *CategoryRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE user_id=? ORDER BY label, id", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// GetByID fetches a category regardless of owner.  Ownership is checked by
// the caller so that a foreign row can be told apart from a missing one.
func (r *CategoryRepo) GetByID(ctx context.Context, id uint64) (*model.Category, error) {
	c, err := scanCategory(r.db.QueryRowContext(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE id=?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

// Create inserts c and reloads it to pick up the generated id and timestamps.
func (r *CategoryRepo) Create(ctx context.Context, c *model.Category) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO categories (user_id, label, color) VALUES (?,?,?)", c.UserID, c.Label, c.Color)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	saved, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*c = *saved
	return nil
}

// Update rewrites label and color of c, scoped to c.UserID.
func (r *CategoryRepo) Update(ctx context.Context, c *model.Category) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE categories SET label=?, color=? WHERE id=? AND user_id=?", c.Label, c.Color, c.ID, c.UserID); err != nil {
		return err
	}
	saved, err := r.GetByID(ctx, c.ID)
	if err != nil {
		return err
	}
	*c = *saved
	return nil
}

// CountEntries returns how many entries reference the category.
func (r *CategoryRepo) CountEntries(ctx context.Context, id uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM entry_categories WHERE category_id=?", id).Scan(&n)
	return n, err
}

// Delete removes the category.  It returns ErrConflict while any entry still
// references it and ErrNotFound if no row was deleted.
func (r *CategoryRepo) Delete(ctx context.Context, userID, id uint64) error {
	n, err := r.CountEntries(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrConflict
	}
	res, err := r.db.ExecContext(ctx, "DELETE FROM categories WHERE id=? AND user_id=?", id, userID)
	if err != nil {
		if isReferenced(err) {
			return ErrConflict
		}
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountOwned returns how many of ids belong to userID.
func (r *CategoryRepo) CountOwned(ctx context.Context, userID uint64, ids []uint64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, userID)
	for _, id := range ids {
		args = append(args, id)
	}
	q := "SELECT COUNT(*) FROM categories WHERE user_id=? AND id IN (" + placeholders(len(ids)) + ")"
	var n int
	err := r.db.QueryRowContext(ctx, q, args...).Scan(&n)
	return n, err
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
