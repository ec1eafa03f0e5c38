package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/finance-control-api/internal/model"
)

// FavoriteRepo stores entry templates.
type FavoriteRepo struct {
	db *sql.DB
}

func NewFavoriteRepo(db *sql.DB) *FavoriteRepo { return &FavoriteRepo{db: db} }

const favoriteColumns = "id, user_id, label, type, value, created_at, updated_at"

func scanFavorite(row interface{ Scan(...any) error }) (*model.Favorite, error) {
	var f model.Favorite
	if err := row.Scan(&f.ID, &f.UserID, &f.Label, &f.Type, &f.Value, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *FavoriteRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Favorite, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+favoriteColumns+" FROM favorites WHERE user_id=? ORDER BY label, id", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Favorite{}
	for rows.Next() {
		f, err := scanFavorite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

func (r *FavoriteRepo) GetByID(ctx context.Context, id uint64) (*model.Favorite, error) {
	f, err := scanFavorite(r.db.QueryRowContext(ctx,
		"SELECT "+favoriteColumns+" FROM favorites WHERE id=?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return f, err
}

func (r *FavoriteRepo) Create(ctx context.Context, f *model.Favorite) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO favorites (user_id, label, type, value) VALUES (?,?,?,?)",
		f.UserID, f.Label, f.Type, f.Value)
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
	*f = *saved
	return nil
}

func (r *FavoriteRepo) Update(ctx context.Context, f *model.Favorite) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE favorites SET label=?, type=?, value=? WHERE id=? AND user_id=?",
		f.Label, f.Type, f.Value, f.ID, f.UserID); err != nil {
		return err
	}
	saved, err := r.GetByID(ctx, f.ID)
	if err != nil {
		return err
	}
	*f = *saved
	return nil
}

func (r *FavoriteRepo) Delete(ctx context.Context, userID, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM favorites WHERE id=? AND user_id=?", id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
