// Package checkout turns a cart snapshot and the customer's details into an order
// submitted to the order API.
package checkout

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Form holds the customer details entered at checkout.
type Form struct {
	CustomerName string `json:"customerName" validate:"required,min=2,max=100"`
	Email        string `json:"email"        validate:"omitempty,email,max=255"`
	Phone        string `json:"phone"        validate:"required,min=10,max=15,phone"`
	Address      string `json:"address"      validate:"required,min=10,max=500"`
}

// Normalize trims surrounding whitespace from every field.
func (f Form) Normalize() Form {
	return Form{
		CustomerName: strings.TrimSpace(f.CustomerName),
		Email:        strings.TrimSpace(f.Email),
		Phone:        strings.TrimSpace(f.Phone),
		Address:      strings.TrimSpace(f.Address),
	}
}

// ValidationError carries one human readable message per invalid field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "invalid checkout form: " + strings.Join(names, ", ")
}

var phonePattern = regexp.MustCompile(`^[0-9+\- ]+$`)

// RegisterValidations adds the rules used by Form to v.
func RegisterValidations(v *validator.Validate) error {
	return v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
}

var messages = map[string]map[string]string{
	"customerName": {
		"required": "Name must be at least 2 characters",
		"min":      "Name must be at least 2 characters",
		"max":      "Name must be at most 100 characters",
	},
	"email": {
		"email": "Invalid email address",
		"max":   "Email must be at most 255 characters",
	},
	"phone": {
		"required": "Phone must be at least 10 digits",
		"min":      "Phone must be at least 10 digits",
		"max":      "Phone must be at most 15 characters",
		"phone":    "Phone may contain only digits, spaces, + and -",
	},
	"address": {
		"required": "Address must be at least 10 characters",
		"min":      "Address must be at least 10 characters",
		"max":      "Address must be at most 500 characters",
	},
}

// Validate checks f with v, which must report JSON field names and have
// RegisterValidations applied. Returns *ValidationError on invalid input.
func (f Form) Validate(v *validator.Validate) error {
	err := v.Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate checkout form: %w", err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		msg, ok := messages[fe.Field()][fe.Tag()]
		if !ok {
			msg = "failed on rule: " + fe.Tag()
		}
		fields[fe.Field()] = msg
	}
	return &ValidationError{Fields: fields}
}
