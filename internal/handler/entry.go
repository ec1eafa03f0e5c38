package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/finance-control-api/internal/model"
	"github.com/iliyamo/finance-control-api/internal/repository"
)

type entryReq struct {
	Label        *string    `json:"label"`
	Type         *entryKind `json:"type"`
	Value        *float64   `json:"value"`
	RegisteredAt *string    `json:"registeredAt"`
	Categories   *[]uint64  `json:"categories"`
}

func (r *entryReq) validate(ctx context.Context, categories CategoryStore, userID uint64, create bool) error {
	required := func(rules ...validation.Rule) []validation.Rule {
		if create {
			return append([]validation.Rule{validation.NotNil}, rules...)
		}
		return rules
	}
	return validation.ValidateStruct(r,
		validation.Field(&r.Label, required(validation.NilOrNotEmpty, validation.RuneLength(3, 20))...),
		validation.Field(&r.Type, required(validation.In(entryKind(model.EntryExpense), entryKind(model.EntryIncome)).Error("must be 0 or 1"))...),
		validation.Field(&r.Value, required()...),
		validation.Field(&r.RegisteredAt, required(validation.NilOrNotEmpty, validation.By(isDate))...),
		validation.Field(&r.Categories, validation.By(ownedCategories(ctx, categories, userID))),
	)
}

// ownedCategories rejects category ids that do not belong to userID.
func ownedCategories(ctx context.Context, categories CategoryStore, userID uint64) validation.RuleFunc {
	return func(value interface{}) error {
		ids, ok := value.(*[]uint64)
		if !ok || ids == nil {
			return nil
		}
		unique := model.UniqueIDs(*ids)
		if len(unique) == 0 {
			return nil
		}
		n, err := categories.CountOwned(ctx, userID, unique)
		if err != nil {
			return validation.NewInternalError(err)
		}
		if n != len(unique) {
			return errors.New("contains unknown categories")
		}
		return nil
	}
}

func (r *entryReq) apply(e *model.Entry) {
	if r.Label != nil {
		e.Label = strings.TrimSpace(*r.Label)
	}
	if r.Type != nil {
		e.Type = int(*r.Type)
	}
	if r.Value != nil {
		e.Value = *r.Value
	}
	if r.RegisteredAt != nil {
		e.RegisteredAt, _ = parseDate(*r.RegisteredAt)
	}
}

// categoryIDs is nil when the body had no categories key, so an update keeps
// the current links.
func (r *entryReq) categoryIDs() []uint64 {
	if r.Categories == nil {
		return nil
	}
	return model.UniqueIDs(*r.Categories)
}

func (h *ResourceHandler) loadEntry(c echo.Context, userID uint64) (*model.Entry, bool, error) {
	id, valid := pathID(c, "entry_id")
	if !valid {
		return nil, false, message(c, http.StatusBadRequest, "Entry not found")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	e, err := h.Entries.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, message(c, http.StatusBadRequest, "Entry not found")
		}
		return nil, false, serverError(c, h.Log, err, "Could not load entry")
	}
	if !owns(c, userID, e.UserID) {
		return nil, false, message(c, http.StatusForbidden, "Forbidden")
	}
	return e, true, nil
}

// dayRange turns the start and end query params into whole day bounds.  A
// missing bound means today (UTC).
func dayRange(c echo.Context) (start, end time.Time, param string, ok bool) {
	today := time.Now().UTC().Format("2006-01-02")
	startRaw, endRaw := c.QueryParam("start"), c.QueryParam("end")
	if startRaw == "" {
		startRaw = today
	}
	if endRaw == "" {
		endRaw = today
	}
	start, err := time.Parse("2006-01-02", startRaw)
	if err != nil {
		return start, end, "start", false
	}
	end, err = time.Parse("2006-01-02", endRaw)
	if err != nil {
		return start, end, "end", false
	}
	if end.Before(start) {
		return start, end, "end", false
	}
	return start, end.Add(24*time.Hour - time.Nanosecond), "", true
}

// ListEntries GET /users/:user_id/entries?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *ResourceHandler) ListEntries(c echo.Context) error {
	userID, ok, err := pathUser(c)
	if !ok {
		return err
	}
	start, end, param, ok := dayRange(c)
	if !ok {
		return fieldInvalid(c, param, "must be a date formatted YYYY-MM-DD, not before start")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	entries, err := h.Entries.ListBetween(ctx, userID, start, end)
	if err != nil {
		return serverError(c, h.Log, err, "Could not list entries")
	}
	return c.JSON(http.StatusOK, entries)
}

// CreateEntry POST /users/:user_id/entries
func (h *ResourceHandler) CreateEntry(c echo.Context) error {
	userID, ok, err := pathUser(c)
	if !ok {
		return err
	}
	var req entryReq
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "invalid body")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	if done, err := invalid(c, h.Log, req.validate(ctx, h.Categories, userID, true)); done {
		return err
	}

	e := &model.Entry{UserID: userID}
	req.apply(e)
	if err := h.Entries.Create(ctx, e, req.categoryIDs()); err != nil {
		return serverError(c, h.Log, err, "Could not create entry")
	}
	return c.JSON(http.StatusCreated, e)
}

// GetEntry GET /users/:user_id/entries/:entry_id
func (h *ResourceHandler) GetEntry(c echo.Context) error {
	userID, ok, err := pathUser(c)
	if !ok {
		return err
	}
	e, ok, err := h.loadEntry(c, userID)
	if !ok {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

// UpdateEntry PUT /users/:user_id/entries/:entry_id
func (h *ResourceHandler) UpdateEntry(c echo.Context) error {
	userID, ok, err := pathUser(c)
	if !ok {
		return err
	}
	e, ok, err := h.loadEntry(c, userID)
	if !ok {
		return err
	}
	var req entryReq
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "invalid body")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	if done, err := invalid(c, h.Log, req.validate(ctx, h.Categories, e.UserID, false)); done {
		return err
	}

	req.apply(e)
	e.Categories = nil
	if err := h.Entries.Update(ctx, e, req.categoryIDs()); err != nil {
		return serverError(c, h.Log, err, "Could not update entry")
	}
	return c.JSON(http.StatusOK, e)
}

// DeleteEntry DELETE /users/:user_id/entries/:entry_id
func (h *ResourceHandler) DeleteEntry(c echo.Context) error {
	userID, ok, err := pathUser(c)
	if !ok {
		return err
	}
	e, ok, err := h.loadEntry(c, userID)
	if !ok {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.Entries.Delete(ctx, e.UserID, e.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return message(c, http.StatusBadRequest, "Entry not found")
		}
		return serverError(c, h.Log, err, "Could not delete entry")
	}
	return message(c, http.StatusOK, "Entry deleted")
}
