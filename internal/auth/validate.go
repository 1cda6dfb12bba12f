package auth

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// Field-level validation copy. Each field has two tiers: missing entirely,
// or present but malformed.
const (
	msgEmailRequired    = "Email is required"
	msgEmailInvalid     = "Enter a valid email"
	msgPasswordRequired = "Password is required"
	msgPasswordTooShort = "Password must be at least 8 characters"
)

var fieldValidator = validator.New()

// validateEmail returns the user-facing message for an invalid email, or ""
// when it passes.
func validateEmail(value string) string {
	err := fieldValidator.Var(value, "required,email")
	if err == nil {
		return ""
	}
	if failedTag(err) == "required" {
		return msgEmailRequired
	}
	return msgEmailInvalid
}

// validatePassword returns the user-facing message for an invalid password,
// or "" when it passes.
func validatePassword(value string) string {
	err := fieldValidator.Var(value, "required,min=8")
	if err == nil {
		return ""
	}
	if failedTag(err) == "required" {
		return msgPasswordRequired
	}
	return msgPasswordTooShort
}

func failedTag(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Tag()
	}
	return ""
}
