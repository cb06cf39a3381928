// Package validation runs struct-tag validation on domain values and turns
// failures into 400 responses.
package validation

import (
	"github.com/Pack144/packman-sub000/shared/errors"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Struct validates v by its `validate` tags.
func Struct(v any) error {
	if err := validate.Struct(v); err != nil {
		return errors.BadRequest(describe(err))
	}
	return nil
}

// Var validates a single value against a tag expression such as "email".
func Var(v any, tag string) error {
	if err := validate.Var(v, tag); err != nil {
		return errors.BadRequest(describe(err))
	}
	return nil
}
