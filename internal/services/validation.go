package services

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/adanyl0v/tracker/internal/query"
)

var (
	colorRegexp = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	slugRegexp  = regexp.MustCompile(`^[a-z0-9-]+$`)

	validate = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("color", func(fl validator.FieldLevel) bool {
		return colorRegexp.MatchString(fl.Field().String())
	})
	v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		// An id-shaped slug would always be looked up as an id.
		slug := fl.Field().String()
		return slugRegexp.MatchString(slug) && !isID(slug)
	})
	v.RegisterValidation("id", func(fl validator.FieldLevel) bool {
		return isID(fl.Field().String())
	})
	return v
}

// isID reports whether s is a UUID in its canonical 36 character form.
func isID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// validateStruct runs the struct tags of params and converts the first
// failure into a *ValidationError.
func validateStruct(params any) error {
	err := validate.Struct(params)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %w", ErrInternal, err)
	}
	fe := fieldErrs[0]
	return &ValidationError{Field: lowerFirst(fe.Field()), Reason: reason(fe)}
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "color":
		return "must be a hex color like #aabbcc"
	case "slug":
		return "may only contain lowercase letters, digits and hyphens, and must not be an id"
	case "id":
		return "must be a valid id"
	case "url":
		return "must be a valid URL"
	}
	return "is invalid"
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// queryError converts a query parsing error into a *ValidationError.
func queryError(err error) error {
	var qerr *query.Error
	if errors.As(err, &qerr) {
		return invalid(qerr.Field, qerr.Reason)
	}
	return err
}

// normalizeTags trims tags, drops empty ones and keeps the first of any
// duplicates.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag != "" && !slices.Contains(out, tag) {
			out = append(out, tag)
		}
	}
	return out
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
