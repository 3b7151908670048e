package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yigit/registrar/internal/pkg/apperrors"
)

func TestValidateCourse(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		title   string
		credits int
		wantErr bool
	}{
		{"valid", "MATH201", "Calculus II", 6, false},
		{"suffix letter", "CS101L", "Programming Lab", 1, false},
		{"lower case code", "math201", "Calculus II", 6, true},
		{"missing number", "MATH", "Calculus", 6, true},
		{"short name", "MATH201", "C", 6, true},
		{"negative credits", "MATH201", "Calculus II", -1, true},
		{"too many credits", "MATH201", "Calculus II", 31, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCourse(tt.code, tt.title, tt.credits)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrBadRequest)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateOfferingAndStudent(t *testing.T) {
	assert.NoError(t, ValidateOffering("A", 30))
	assert.Error(t, ValidateOffering("a b", 30))

	err := ValidateOffering("A", 0)
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
	assert.Equal(t, "capacity", apperrors.DetailsOf(err)["field"])

	assert.NoError(t, ValidateStudent("20250001", "Ada", "Lovelace"))
	assert.Error(t, ValidateStudent("2025", "Ada", "Lovelace"))
	assert.Error(t, ValidateStudent("20250001", "", "Lovelace"))
}

func TestOptionalString(t *testing.T) {
	assert.NoError(t, NewStringValidation("room", "").WithRequired(false).WithLength(2, 5).Validate())
	assert.Error(t, NewStringValidation("room", "x").WithRequired(false).WithLength(2, 5).Validate())
}
