package web

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// ValidationErrorMap converts validator errors into a field to rule map.
// The second result is false when err is not a validator.ValidationErrors.
func ValidationErrorMap(err error) (map[string]string, bool) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil, false
	}
	errorResponse := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		// fieldErr.Tag() returns "required", "max", etc.
		errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
	}
	return errorResponse, true
}
