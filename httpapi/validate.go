package httpapi

import (
	"github.com/go-playground/validator/v10"
)

// structValidator plugs go-playground/validator into fiber's binder, so
// every c.Bind().JSON call also checks `validate` tags.
type structValidator struct {
	v *validator.Validate
}

func newStructValidator() *structValidator {
	return &structValidator{v: validator.New(validator.WithRequiredStructEnabled())}
}

func (s *structValidator) Validate(out any) error {
	return s.v.Struct(out)
}
