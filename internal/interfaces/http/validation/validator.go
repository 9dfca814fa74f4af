// Package validation checks HTTP input with struct tags and archive-specific
// rules before it reaches the engine.
package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/vertixec/THEARCHIVE/internal/domain/catalog"
	apperrors "github.com/vertixec/THEARCHIVE/internal/errors"
)

// Validator wraps a configured validator.Validate.
type Validator struct {
	validate *validator.Validate
}

var (
	instance *Validator
	once     sync.Once
)

// GetValidator returns the shared validator.
func GetValidator() *Validator {
	once.Do(func() {
		instance = NewValidator()
	})
	return instance
}

// NewValidator creates a validator with the archive rules registered.
func NewValidator() *Validator {
	v := &Validator{validate: validator.New()}

	// Report json names, not Go field names.
	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v.validate.RegisterValidation("itemtype", itemTypeValidator)
	v.validate.RegisterValidation("view", viewValidator)
	v.validate.RegisterValidation("itemid", itemIDValidator)
	return v
}

// Validate checks a struct and returns a Validation error listing every
// failed field.
func (v *Validator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.Validation(apperrors.CodeInvalidInput.String(), "invalid request").
			WithCause(err).
			Build()
	}

	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		messages = append(messages, fmt.Sprintf("%s: %s", fe.Field(), message(fe.Tag(), fe.Param())))
	}
	return apperrors.Validation(apperrors.CodeInvalidInput.String(), "invalid request").
		WithDetails(strings.Join(messages, "; ")).
		Build()
}

func message(tag, param string) string {
	switch tag {
	case "required":
		return "This field is required"
	case "min":
		return fmt.Sprintf("Must be at least %s characters", param)
	case "max":
		return fmt.Sprintf("Must be at most %s characters", param)
	case "email":
		return "Must be a valid email address"
	case "itemtype":
		return "Must be one of: visual, system, community, workflow"
	case "view":
		return "Must be one of: main, systems, community, workflows, favorites"
	case "itemid":
		return "Must be a valid item id"
	default:
		return fmt.Sprintf("Failed %s validation", tag)
	}
}

func itemTypeValidator(fl validator.FieldLevel) bool {
	_, err := catalog.ParseItemType(fl.Field().String())
	return err == nil
}

func viewValidator(fl validator.FieldLevel) bool {
	_, err := catalog.ParseViewKind(fl.Field().String())
	return err == nil
}

var itemIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

func itemIDValidator(fl validator.FieldLevel) bool {
	id := fl.Field().String()
	return len(id) <= 100 && itemIDPattern.MatchString(id)
}
