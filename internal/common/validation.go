package common

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)
	countryRegex  = regexp.MustCompile(`^[A-Z]{2}$`)
)

// FieldError is one failed check on a named field.
type FieldError struct {
	Field   string
	Value   any
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %q %s", e.Field, fmt.Sprint(e.Value), e.Message)
}

// Validator collects field errors so a record reports every problem at once.
type Validator struct {
	errors []FieldError
}

func NewValidator() *Validator {
	return &Validator{}
}

// Field runs rules against value and records the failures.
func (v *Validator) Field(name string, value any, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if err := rule(name, value); err != nil {
			v.errors = append(v.errors, *err)
		}
	}
	return v
}

func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

func (v *Validator) Errors() []FieldError {
	return v.errors
}

// Error joins the failures into an AppError wrapping ErrValidation, or nil.
func (v *Validator) Error() error {
	if !v.HasErrors() {
		return nil
	}
	msgs := make([]string, 0, len(v.errors))
	for _, err := range v.errors {
		msgs = append(msgs, err.Error())
	}
	return NewAppError("VALIDATION_ERROR", strings.Join(msgs, "; "), ErrValidation)
}

// ValidationRule checks one value; nil means it passed.
type ValidationRule func(name string, value any) *FieldError

func Required(name string, value any) *FieldError {
	switch v := value.(type) {
	case nil:
	case string:
		if strings.TrimSpace(v) != "" {
			return nil
		}
	default:
		return nil
	}
	return &FieldError{Field: name, Value: value, Message: "is required"}
}

func MaxLength(max int) ValidationRule {
	return func(name string, value any) *FieldError {
		s, ok := value.(string)
		if !ok || utf8.RuneCountInString(s) <= max {
			return nil
		}
		return &FieldError{Field: name, Value: value, Message: fmt.Sprintf("must be at most %d characters", max)}
	}
}

// CurrencyCode accepts three uppercase letters (ISO 4217). Empty values are
// left to Required.
func CurrencyCode(name string, value any) *FieldError {
	s, ok := value.(string)
	if !ok {
		return &FieldError{Field: name, Value: value, Message: "must be a string"}
	}
	if s != "" && !currencyRegex.MatchString(s) {
		return &FieldError{Field: name, Value: value, Message: "must be 3 uppercase letters (ISO 4217)"}
	}
	return nil
}

// CountryCode accepts two uppercase letters (ISO 3166-1 alpha-2).
func CountryCode(name string, value any) *FieldError {
	s, ok := value.(string)
	if !ok {
		return &FieldError{Field: name, Value: value, Message: "must be a string"}
	}
	if s != "" && !countryRegex.MatchString(s) {
		return &FieldError{Field: name, Value: value, Message: "must be 2 uppercase letters (ISO 3166-1 alpha-2)"}
	}
	return nil
}

func PositiveAmount(name string, value any) *FieldError {
	f, ok := value.(float64)
	if !ok {
		return &FieldError{Field: name, Value: value, Message: "must be a number"}
	}
	if f <= 0 {
		return &FieldError{Field: name, Value: value, Message: "must be greater than zero"}
	}
	return nil
}
