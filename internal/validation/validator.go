// Package validation checks request bodies with validator/v10 and reports
// failures as VALIDATION errors whose details map JSON field names to
// messages.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	domainerrors "github.com/subaccounts/notes-server/internal/errors"
	"github.com/subaccounts/notes-server/internal/wallet"
)

// Validator checks structs against their validate tags.
type Validator struct {
	v *validator.Validate
}

// customTags are the tags this package adds to validator/v10.
var customTags = map[string]validator.Func{
	// Decimal ETH string, positive, at most 18 decimals.
	"eth_amount": func(fl validator.FieldLevel) bool {
		wei, err := wallet.ParseEther(fl.Field().String())
		return err == nil && wei.Sign() > 0
	},
	// Non-empty after trimming whitespace.
	"notblank": func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	},
}

// messages renders a failed tag; param is the tag's parameter.
var messages = map[string]func(param string) string{
	"required":   func(string) string { return "is required" },
	"notblank":   func(string) string { return "is required" },
	"eth_addr":   func(string) string { return "must be a 0x-prefixed 20 byte address" },
	"eth_amount": func(string) string { return "must be a positive ETH amount with at most 18 decimals" },
	"min":        func(p string) string { return "must be at least " + p + " characters" },
	"max":        func(p string) string { return "must not exceed " + p + " characters" },
	"oneof":      func(p string) string { return "must be one of: " + p },
	"gte":        func(p string) string { return "must be greater than or equal to " + p },
	"lte":        func(p string) string { return "must be less than or equal to " + p },
}

// New creates a Validator that names fields by their JSON tag.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)
	for tag, fn := range customTags {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic("validation: register " + tag + ": " + err.Error())
		}
	}
	return &Validator{v: v}
}

// Validate checks s. Tag failures come back as a VALIDATION error; any other
// failure, such as s not being a struct, is returned unchanged.
func (v *Validator) Validate(s any) error {
	err := v.v.Struct(s)
	var fails validator.ValidationErrors
	if !errors.As(err, &fails) {
		return err
	}

	details := make(map[string]string, len(fails))
	for _, f := range fails {
		details[f.Field()] = message(f)
	}
	return domainerrors.ValidationWithDetails("validation failed", details)
}

func message(f validator.FieldError) string {
	if render, ok := messages[f.Tag()]; ok {
		return render(f.Param())
	}
	return "is invalid"
}

func jsonName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return field.Name
	}
	return name
}
