package apperror

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

type macros struct {
	Protein int `validate:"gte=0,lte=100"`
}

type form struct {
	Email      string `validate:"required,email"`
	Password   string `validate:"min=8"`
	Date       string `validate:"datetime=2006-01-02"`
	MoodRating *int   `validate:"omitempty,min=1,max=5"`
	Macros     macros
	Code       string `validate:"len=3"`
}

func TestCustomValidationError(t *testing.T) {
	bad := 7
	err := validator.New().Struct(form{
		Email:      "",
		Password:   "short",
		Date:       "tomorrow",
		MoodRating: &bad,
		Macros:     macros{Protein: 120},
		Code:       "ab",
	})

	got := CustomValidationError(err)
	assert.Equal(t, []map[string]string{
		{"Email": "is required"},
		{"Password": "must be at least 8 characters long"},
		{"Date": "must be a date in YYYY-MM-DD format"},
		{"MoodRating": "must be between 1 and 5"},
		{"Protein": "must be between 0 and 100"},
		{"Code": "Code is invalid"},
	}, got)
}

func TestCustomValidationError_OtherErrors(t *testing.T) {
	assert.Empty(t, CustomValidationError(errors.New("boom")))
	assert.NotNil(t, CustomValidationError(nil))
}
