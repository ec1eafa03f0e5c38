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

type categoryReq struct {
	Label *string `json:"label"`
	Color *string `json:"color"`
}

func (r *categoryReq) validate(create bool) error {
	label := []validation.Rule{validation.NilOrNotEmpty, validation.RuneLength(3, 25)}
	color := []validation.Rule{validation.NilOrNotEmpty, validation.Match(hexColor).Error("must be a color like #a1b2c3")}
	if create {
		label = append([]validation.Rule{validation.Required}, label...)
		color = append([]validation.Rule{validation.Required}, color...)
	}
	return validation.ValidateStruct(r,
		validation.Field(&r.Label, label...),
		validation.Field(&r.Color, color...),
	)
}

func (r *categoryReq) apply(c *model.Category) {
	if r.Label != nil {
		c.Label = strings.TrimSpace(*r.Label)
	}
	if r.Color != nil {
		c.Color = *r.Color
	}
}

// loadCategory resolves :category_id for the path user.  On failure the
// response is already written and ok is false.
func (h *ResourceHandler) loadCategory(c echo.Context, userID uint64) (cat *model.Category, ok bool, err error) {
	id, valid := pathID(c, "category_id")
	if !valid {
		return nil, false, message(c, http.StatusBadRequest, "Category not found")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	cat, err = h.Categories.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, message(c, http.StatusBadRequest, "Category not found")
		}
		return nil, false, serverError(c, h.Log, err, "Could not load category")
	}
	if !owns(c, userID, cat.UserID) {
		return nil, false, message(c, http.StatusForbidden, "Forbidden")
	}
	return cat, true, nil
}

// ListCategories GET /users/:user_id/categories
func (h *ResourceHandler) ListCategories(c echo.Context) error {
	userID, ok, err := pathUser(c)
	if !ok {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	cats, err := h.Categories.ListByUser(ctx, userID)
	if err != nil {
		return serverError(c, h.Log, err, "Could not list categories")
	}
	return c.JSON(http.StatusOK, cats)
}

// CreateCategory POST /users/:user_id/categories
func (h *ResourceHandler) CreateCategory(c echo.Context) error {
	userID, ok, err := pathUser(c)
	if !ok {
		return err
	}
	var req categoryReq
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "invalid body")
	}
	if done, err := invalid(c, h.Log, req.validate(true)); done {
		return err
	}

	cat := &model.Category{UserID: userID}
	req.apply(cat)
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.Categories.Create(ctx, cat); err != nil {
		return serverError(c, h.Log, err, "Could not create category")
	}
	return c.JSON(http.StatusCreated, cat)
}

// GetCategory GET /users/:user_id/categories/:category_id
func (h *ResourceHandler) GetCategory(c echo.Context) error {
	userID, ok, err := pathUser(c)
	if !ok {
		return err
	}
	cat, ok, err := h.loadCategory(c, userID)
	if !ok {
		return err
	}
	return c.JSON(http.StatusOK, cat)
}

// UpdateCategory PUT /users/:user_id/categories/:category_id
func (h *ResourceHandler) UpdateCategory(c echo.Context) error {
	userID, ok, err := pathUser(c)
	if !ok {
		return err
	}
	cat, ok, err := h.loadCategory(c, userID)
	if !ok {
		return err
	}
	var req categoryReq
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "invalid body")
	}
	if done, err := invalid(c, h.Log, req.validate(false)); done {
		return err
	}

	req.apply(cat)
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.Categories.Update(ctx, cat); err != nil {
		return serverError(c, h.Log, err, "Could not update category")
	}
	return c.JSON(http.StatusOK, cat)
}

// DeleteCategory DELETE /users/:user_id/categories/:category_id
func (h *ResourceHandler) DeleteCategory(c echo.Context) error {
	userID, ok, err := pathUser(c)
	if !ok {
		return err
	}
	cat, ok, err := h.loadCategory(c, userID)
	if !ok {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	switch err := h.Categories.Delete(ctx, cat.UserID, cat.ID); {
	case err == nil:
		return message(c, http.StatusOK, "Category deleted")
	case errors.Is(err, repository.ErrConflict):
		return message(c, http.StatusConflict, "Category is used by entries and cannot be deleted")
	case errors.Is(err, repository.ErrNotFound):
		return message(c, http.StatusBadRequest, "Category not found")
	default:
		return serverError(c, h.Log, err, "Could not delete category")
	}
}
