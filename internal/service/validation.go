package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/spec-kit/job-tracker/pkg/util/errorutil"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs struct tags and reports failures keyed by JSON field name.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	checks := fieldChecks{}
	for _, fe := range verrs {
		checks.add(fe.Field(), describe(fe.Field(), fe.Tag(), fe.Param()))
	}
	return checks.err()
}

// fieldChecks accumulates the first failure per field.
type fieldChecks map[string]string

func (f fieldChecks) check(field string, value any, tag string) {
	if _, done := f[field]; done {
		return
	}
	var verrs validator.ValidationErrors
	if err := validate.Var(value, tag); errors.As(err, &verrs) && len(verrs) > 0 {
		f[field] = describe(field, verrs[0].Tag(), verrs[0].Param())
	}
}

func (f fieldChecks) add(field, message string) {
	if _, done := f[field]; !done {
		f[field] = message
	}
}

func (f fieldChecks) err() error {
	if len(f) == 0 {
		return nil
	}
	return apperrors.NewFieldErrors(f)
}

func describe(field, tag, param string) string {
	switch tag {
	case "required":
		return field + " is required"
	case "email":
		return "valid email is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	}
	return field + " is invalid"
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
