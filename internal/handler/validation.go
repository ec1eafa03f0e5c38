package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/labstack/echo/v4"
)

var hexColor = regexp.MustCompile(`^#[A-Fa-f0-9]{6}$`)

// fieldError is one entry of a 422 response.
type fieldError struct {
	Param   string `json:"param"`
	Message string `json:"message"`
}

// validationErrors flattens ozzo errors into a list sorted by param.
func validationErrors(errs validation.Errors) []fieldError {
	out := make([]fieldError, 0, len(errs))
	for param, err := range errs {
		out = append(out, fieldError{Param: param, Message: err.Error()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Param < out[j].Param })
	return out
}

// invalid answers a failed validation and reports whether it did.  Field
// errors become 422; an internal error raised by a rule (a failing lookup)
// becomes 500.
func invalid(c echo.Context, log *slog.Logger, err error) (bool, error) {
	if err == nil {
		return false, nil
	}
	var internal validation.InternalError
	if errors.As(err, &internal) {
		return true, serverError(c, log, internal.InternalError(), "Validation failed")
	}
	var errs validation.Errors
	if errors.As(err, &errs) {
		return true, c.JSON(http.StatusUnprocessableEntity, echo.Map{"errors": validationErrors(errs)})
	}
	return true, c.JSON(http.StatusUnprocessableEntity, echo.Map{"errors": []fieldError{{Message: err.Error()}}})
}

// fieldInvalid answers 422 for a single parameter.
func fieldInvalid(c echo.Context, param, msg string) error {
	return c.JSON(http.StatusUnprocessableEntity, echo.Map{"errors": []fieldError{{Param: param, Message: msg}}})
}

// equals checks a confirmation field against its original.
func equals(other string) validation.RuleFunc {
	return func(value interface{}) error {
		v, _ := validation.Indirect(value)
		if s, _ := v.(string); s != other {
			return errors.New("values must match")
		}
		return nil
	}
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

// parseDate accepts RFC 3339, a date-time without zone (UTC) or a bare date.
func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func isDate(value interface{}) error {
	v, isNil := validation.Indirect(value)
	if isNil {
		return nil
	}
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	if _, ok := parseDate(s); !ok {
		return errors.New("must be a valid date")
	}
	return nil
}
