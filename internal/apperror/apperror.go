// Package apperror turns validation failures into field-keyed messages.
package apperror

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var (
	errRequired        = errors.New("is required")
	errNotNegative     = errors.New("must not be negative")
	errInvalidDate     = errors.New("must be a date in YYYY-MM-DD format")
	errInvalidMealType = errors.New("must be one of breakfast, lunch, dinner, snack")
	errMoodRange       = errors.New("must be between 1 and 5")
	errPercent         = errors.New("must be between 0 and 100")
	errTooShort        = errors.New("is too short")
	errInvalidEmail    = errors.New("must be a valid email address")
)

// byTag maps a validator tag to its message when no field-specific entry
// exists.
var byTag = map[string]error{
	"required": errRequired,
	"gte":      errNotNegative,
	"datetime": errInvalidDate,
	"oneof":    errInvalidMealType,
	"min":      errTooShort,
	"email":    errInvalidEmail,
}

// byField holds messages for a struct field and tag pair.
var byField = map[string]error{
	"MoodRating.min": errMoodRange,
	"MoodRating.max": errMoodRange,
	"Protein.lte":    errPercent,
	"Carbs.lte":      errPercent,
	"Fat.lte":        errPercent,
	"Protein.gte":    errPercent,
	"Carbs.gte":      errPercent,
	"Fat.gte":        errPercent,
	"Password.min":   errors.New("must be at least 8 characters long"),
}

// CustomValidationError converts validator errors into [{"Field": "message"}].
// Other errors yield an empty list.
func CustomValidationError(err error) []map[string]string {
	errList := make([]map[string]string, 0)

	var validationErr validator.ValidationErrors
	if !errors.As(err, &validationErr) {
		return errList
	}
	for _, e := range validationErr {
		errList = append(errList, map[string]string{e.Field(): message(e)})
	}
	return errList
}

func message(e validator.FieldError) string {
	if v, ok := byField[e.StructField()+"."+e.Tag()]; ok {
		return v.Error()
	}
	if v, ok := byTag[e.Tag()]; ok {
		return v.Error()
	}
	return fmt.Sprintf("%s is invalid", e.Field())
}
