package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/finance-control-api/internal/middleware"
	"github.com/iliyamo/finance-control-api/internal/model"
)

// CategoryStore is the category repository as seen by the handlers.
type CategoryStore interface {
	ListByUser(ctx context.Context, userID uint64) ([]model.Category, error)
	GetByID(ctx context.Context, id uint64) (*model.Category, error)
	Create(ctx context.Context, c *model.Category) error
	Update(ctx context.Context, c *model.Category) error
	Delete(ctx context.Context, userID, id uint64) error
	CountOwned(ctx context.Context, userID uint64, ids []uint64) (int, error)
}

// EntryStore is the entry repository as seen by the handlers.
type EntryStore interface {
	ListBetween(ctx context.Context, userID uint64, start, end time.Time) ([]model.Entry, error)
	GetByID(ctx context.Context, id uint64) (*model.Entry, error)
	Create(ctx context.Context, e *model.Entry, categoryIDs []uint64) error
	Update(ctx context.Context, e *model.Entry, categoryIDs []uint64) error
	Delete(ctx context.Context, userID, id uint64) error
}

// FavoriteStore is the favorite repository as seen by the handlers.
type FavoriteStore interface {
	ListByUser(ctx context.Context, userID uint64) ([]model.Favorite, error)
	GetByID(ctx context.Context, id uint64) (*model.Favorite, error)
	Create(ctx context.Context, f *model.Favorite) error
	Update(ctx context.Context, f *model.Favorite) error
	Delete(ctx context.Context, userID, id uint64) error
}

// ResourceHandler serves the per user routes under /users/:user_id.  The
// Gate has already checked the caller against user_id; the handlers check
// that the addressed row belongs to that same user.
type ResourceHandler struct {
	Categories CategoryStore
	Entries    EntryStore
	Favorites  FavoriteStore
	Log        *slog.Logger
}

func NewResourceHandler(categories CategoryStore, entries EntryStore, favorites FavoriteStore, log *slog.Logger) *ResourceHandler {
	if categories == nil || entries == nil || favorites == nil {
		panic("nil store passed to NewResourceHandler")
	}
	return &ResourceHandler{Categories: categories, Entries: entries, Favorites: favorites, Log: log}
}

// pathUser returns the user_id path parameter.  It answers 400 itself and
// reports false when the parameter is not an id.
func pathUser(c echo.Context) (uint64, bool, error) {
	id, ok := pathID(c, "user_id")
	if !ok {
		return 0, false, message(c, http.StatusBadRequest, "Invalid user id")
	}
	return id, true, nil
}

// owns reports whether a row owned by owner may be touched via the path
// user.  Admins may reach rows of any user.
func owns(c echo.Context, pathUserID, owner uint64) bool {
	if owner == pathUserID {
		return true
	}
	ident, ok := middleware.Caller(c)
	return ok && ident.Role == model.RoleAdmin
}

// entryKind decodes an entry type given as 0/1, "0"/"1" or a JSON boolean.
// Anything else decodes to -1 so validation can reject it.
type entryKind int

func (k *entryKind) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case "0", `"0"`, "false":
		*k = model.EntryExpense
	case "1", `"1"`, "true":
		*k = model.EntryIncome
	default:
		*k = -1
	}
	return nil
}
