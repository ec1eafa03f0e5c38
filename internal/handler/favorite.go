package handler

import (
	"errors"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/finance-control-api/internal/model"
	"github.com/iliyamo/finance-control-api/internal/repository"
)

type favoriteReq struct {
	Label *string    `json:"label"`
	Type  *entryKind `json:"type"`
	Value *float64   `json:"value"`
}

func (r *favoriteReq) validate(create bool) error {
	var required []validation.Rule
	if create {
		required = []validation.Rule{validation.NotNil}
	}
	return validation.ValidateStruct(r,
		validation.Field(&r.Label, append(required, validation.NilOrNotEmpty, validation.RuneLength(3, 20))...),
		validation.Field(&r.Type, append(required, validation.In(entryKind(model.EntryExpense), entryKind(model.EntryIncome)).Error("must be 0 or 1"))...),
		validation.Field(&r.Value, required...),
	)
}

func (r *favoriteReq) apply(f *model.Favorite) {
	if r.Label != nil {
		f.Label = strings.TrimSpace(*r.Label)
	}
	if r.Type != nil {
		f.Type = int(*r.Type)
	}
	if r.Value != nil {
		f.Value = *r.Value
	}
}

func (h *ResourceHandler) loadFavorite(c echo.Context, userID uint64) (*model.Favorite, bool, error) {
	id, valid := pathID(c, "favorite_id")
	if !valid {
		return nil, false, message(c, http.StatusBadRequest, "Favorite not found")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	f, err := h.Favorites.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, message(c, http.StatusBadRequest, "Favorite not found")
		}
		return nil, false, serverError(c, h.Log, err, "Could not load favorite")
	}
	if !owns(c, userID, f.UserID) {
		return nil, false, message(c, http.StatusForbidden, "Forbidden")
	}
	return f, true, nil
}

// ListFavorites GET /users/:user_id/favorites
func (h *ResourceHandler) ListFavorites(c echo.Context) error {
	userID, ok, err := pathUser(c)
	if !ok {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	favs, err := h.Favorites.ListByUser(ctx, userID)
	if err != nil {
		return serverError(c, h.Log, err, "Could not list favorites")
	}
	return c.JSON(http.StatusOK, favs)
}

// CreateFavorite POST /users/:user_id/favorites
func (h *ResourceHandler) CreateFavorite(c echo.Context) error {
	userID, ok, err := pathUser(c)
	if !ok {
		return err
	}
	var req favoriteReq
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "invalid body")
	}
	if done, err := invalid(c, h.Log, req.validate(true)); done {
		return err
	}

	f := &model.Favorite{UserID: userID}
	req.apply(f)
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.Favorites.Create(ctx, f); err != nil {
		return serverError(c, h.Log, err, "Could not create favorite")
	}
	return c.JSON(http.StatusCreated, f)
}

// GetFavorite GET /users/:user_id/favorites/:favorite_id
func (h *ResourceHandler) GetFavorite(c echo.Context) error {
	userID, ok, err := pathUser(c)
	if !ok {
		return err
	}
	f, ok, err := h.loadFavorite(c, userID)
	if !ok {
		return err
	}
	return c.JSON(http.StatusOK, f)
}

// UpdateFavorite PUT /users/:user_id/favorites/:favorite_id
func (h *ResourceHandler) UpdateFavorite(c echo.Context) error {
	userID, ok, err := pathUser(c)
	if !ok {
		return err
	}
	f, ok, err := h.loadFavorite(c, userID)
	if !ok {
		return err
	}
	var req favoriteReq
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "invalid body")
	}
	if done, err := invalid(c, h.Log, req.validate(false)); done {
		return err
	}

	req.apply(f)
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.Favorites.Update(ctx, f); err != nil {
		return serverError(c, h.Log, err, "Could not update favorite")
	}
	return c.JSON(http.StatusOK, f)
}

// DeleteFavorite DELETE /users/:user_id/favorites/:favorite_id
func (h *ResourceHandler) DeleteFavorite(c echo.Context) error {
	userID, ok, err := pathUser(c)
	if !ok {
		return err
	}
	f, ok, err := h.loadFavorite(c, userID)
	if !ok {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.Favorites.Delete(ctx, f.UserID, f.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return message(c, http.StatusBadRequest, "Favorite not found")
		}
		return serverError(c, h.Log, err, "Could not delete favorite")
	}
	return message(c, http.StatusOK, "Favorite deleted")
}
