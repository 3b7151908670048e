package validation

import (
	"fmt"
	"regexp"

	"github.com/yigit/registrar/internal/pkg/apperrors"
)

// Catalog rule patterns
var (
	// Course codes are a subject prefix and a three digit number, e.g. MATH201
	CourseCodePattern = `^[A-Z]{2,6}[0-9]{3}[A-Z]?$`

	// Section labels are short alphanumerics, e.g. A or 02
	SectionPattern = `^[A-Z0-9]{1,10}$`

	// Student identifier pattern - 8 digits
	IdentifierPattern = `^\d{8}$`

	// Name validation min/max length
	NameMinLength = 2
	NameMaxLength = 200
)

// CompiledPatterns caches compiled regex patterns
var CompiledPatterns = struct {
	CourseCode *regexp.Regexp
	Section    *regexp.Regexp
	Identifier *regexp.Regexp
}{
	CourseCode: regexp.MustCompile(CourseCodePattern),
	Section:    regexp.MustCompile(SectionPattern),
	Identifier: regexp.MustCompile(IdentifierPattern),
}

// StringValidation checks one string field
type StringValidation struct {
	Field    string
	Value    string
	MinLen   int
	MaxLen   int
	Required bool
	Pattern  *regexp.Regexp
}

// NewStringValidation creates a new string validation
func NewStringValidation(field, value string) *StringValidation {
	return &StringValidation{
		Field:    field,
		Value:    value,
		Required: true,
	}
}

// WithLength sets minimum and maximum length
func (v *StringValidation) WithLength(min, max int) *StringValidation {
	v.MinLen, v.MaxLen = min, max
	return v
}

// WithPattern sets regex pattern
func (v *StringValidation) WithPattern(pattern *regexp.Regexp) *StringValidation {
	v.Pattern = pattern
	return v
}

// WithRequired sets if field is required
func (v *StringValidation) WithRequired(required bool) *StringValidation {
	v.Required = required
	return v
}

// Validate returns an InvalidArgument error describing the first failed rule
func (v *StringValidation) Validate() error {
	if v.Value == "" {
		if v.Required {
			return invalid(v.Field, "is required")
		}
		return nil
	}
	if v.MinLen > 0 && len(v.Value) < v.MinLen {
		return invalid(v.Field, fmt.Sprintf("must be at least %d characters", v.MinLen))
	}
	if v.MaxLen > 0 && len(v.Value) > v.MaxLen {
		return invalid(v.Field, fmt.Sprintf("must be at most %d characters", v.MaxLen))
	}
	if v.Pattern != nil && !v.Pattern.MatchString(v.Value) {
		return invalid(v.Field, fmt.Sprintf("%q has an invalid format", v.Value))
	}
	return nil
}

// NumericValidation checks one integer field against inclusive bounds
type NumericValidation struct {
	Field    string
	Value    int
	Min, Max int
	HasMax   bool
}

// NewNumericValidation creates a new numeric validation
func NewNumericValidation(field string, value int) *NumericValidation {
	return &NumericValidation{Field: field, Value: value}
}

// WithMin sets minimum value
func (v *NumericValidation) WithMin(min int) *NumericValidation {
	v.Min = min
	return v
}

// WithMax sets maximum value
func (v *NumericValidation) WithMax(max int) *NumericValidation {
	v.Max, v.HasMax = max, true
	return v
}

// Validate returns an InvalidArgument error when the value is out of bounds
func (v *NumericValidation) Validate() error {
	if v.Value < v.Min {
		return invalid(v.Field, fmt.Sprintf("must be at least %d", v.Min))
	}
	if v.HasMax && v.Value > v.Max {
		return invalid(v.Field, fmt.Sprintf("must be at most %d", v.Max))
	}
	return nil
}

func invalid(field, msg string) error {
	return apperrors.NewBadRequestError(field+" "+msg).WithDetail("field", field)
}

// First runs the checks in order and returns the first failure
func First(checks ...interface{ Validate() error }) error {
	for _, c := range checks {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ValidateCourse checks a catalog course definition
func ValidateCourse(code, name string, credits int) error {
	return First(
		NewStringValidation("code", code).WithPattern(CompiledPatterns.CourseCode),
		NewStringValidation("name", name).WithLength(NameMinLength, NameMaxLength),
		NewNumericValidation("credits", credits).WithMin(0).WithMax(30),
	)
}

// ValidateOffering checks a class offering definition
func ValidateOffering(section string, capacity int) error {
	return First(
		NewStringValidation("section", section).WithPattern(CompiledPatterns.Section),
		NewNumericValidation("capacity", capacity).WithMin(1),
	)
}

// ValidateStudent checks a student record
func ValidateStudent(identifier, firstName, lastName string) error {
	return First(
		NewStringValidation("identifier", identifier).WithPattern(CompiledPatterns.Identifier),
		NewStringValidation("firstName", firstName).WithLength(1, 100),
		NewStringValidation("lastName", lastName).WithLength(1, 100),
	)
}
