// Package handlers exposes the analytics and category services over HTTP.
package handlers

import (
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "kbgraph/pkg/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields under the names clients send.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"query", "json"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})
	return v
}

// validateStruct checks validate tags and turns failures into one
// VALIDATION error naming every offending field.
func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.NewValidationError(err.Error())
	}

	messages := make([]string, 0, len(verrs))
	fields := make(map[string]interface{}, len(verrs))
	for _, e := range verrs {
		msg := formatFieldError(e)
		messages = append(messages, msg)
		fields[e.Field()] = msg
	}
	return apperrors.NewValidationError(strings.Join(messages, "; ")).
		WithDetails(map[string]interface{}{"fields": fields})
}

func formatFieldError(e validator.FieldError) string {
	field := e.Field()
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// intParam reads an integer query parameter, falling back to def when the
// parameter is absent.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewValidationError(fmt.Sprintf("%s must be an integer", name))
	}
	return n, nil
}

type userQuery struct {
	UserID string `query:"userId" validate:"required,max=256"`
}

func parseUser(r *http.Request) (userQuery, error) {
	q := userQuery{UserID: strings.TrimSpace(r.URL.Query().Get("userId"))}
	return q, validateStruct(q)
}

type limitQuery struct {
	UserID string `query:"userId" validate:"required,max=256"`
	Limit  int    `query:"limit" validate:"min=0,max=100"`
}

func parseLimit(r *http.Request, def int) (limitQuery, error) {
	limit, err := intParam(r, "limit", def)
	if err != nil {
		return limitQuery{}, err
	}
	q := limitQuery{UserID: strings.TrimSpace(r.URL.Query().Get("userId")), Limit: limit}
	return q, validateStruct(q)
}

type monthsQuery struct {
	UserID string `query:"userId" validate:"required,max=256"`
	Months int    `query:"months" validate:"min=1,max=120"`
}

func parseMonths(r *http.Request, def int) (monthsQuery, error) {
	months, err := intParam(r, "months", def)
	if err != nil {
		return monthsQuery{}, err
	}
	q := monthsQuery{UserID: strings.TrimSpace(r.URL.Query().Get("userId")), Months: months}
	return q, validateStruct(q)
}

type daysQuery struct {
	UserID string `query:"userId" validate:"required,max=256"`
	Days   int    `query:"days" validate:"min=1,max=366"`
}

func parseDays(r *http.Request, def int) (daysQuery, error) {
	days, err := intParam(r, "days", def)
	if err != nil {
		return daysQuery{}, err
	}
	q := daysQuery{UserID: strings.TrimSpace(r.URL.Query().Get("userId")), Days: days}
	return q, validateStruct(q)
}

type goalQuery struct {
	UserID string `query:"userId" validate:"required,max=256"`
	Goal   string `query:"goal" validate:"max=200"`
}

func parseGoal(r *http.Request) (goalQuery, error) {
	q := goalQuery{
		UserID: strings.TrimSpace(r.URL.Query().Get("userId")),
		Goal:   strings.TrimSpace(r.URL.Query().Get("goal")),
	}
	return q, validateStruct(q)
}
