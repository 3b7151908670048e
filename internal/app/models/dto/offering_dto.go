package dto

import (
	"fmt"

	"github.com/yigit/registrar/internal/pkg/apperrors"
)

// Offering list paging bounds
const (
	DefaultOfferingPageSize = 20
	MaxOfferingPageSize     = 100
)

// OfferingFilter is the complete set of filters accepted when listing class
// offerings. Zero values mean "no filter" except where noted.
type OfferingFilter struct {
	// TermID restricts to one term. Required.
	TermID int64 `form:"termId"`
	// CourseID restricts to offerings of one course.
	CourseID *int64 `form:"courseId"`
	// DayOfWeek keeps offerings meeting at least once on that day (0 = Sunday).
	DayOfWeek *int `form:"day"`
	// OnlyOpen drops CLOSED offerings. Nil means true.
	OnlyOpen *bool `form:"onlyOpen"`
	// OnlyWithSeats drops offerings whose active enrollments reached capacity.
	OnlyWithSeats bool `form:"onlyWithSeats"`
	// ExcludeStudentID drops offerings the student is actively enrolled in.
	ExcludeStudentID *int64 `form:"-"`

	Page int `form:"page"`
	Size int `form:"size"`
}

// Validate checks the filter and fills in paging defaults
func (f *OfferingFilter) Validate() error {
	if f.TermID <= 0 {
		return apperrors.NewBadRequestError("termId is required")
	}
	if f.CourseID != nil && *f.CourseID <= 0 {
		return apperrors.NewBadRequestError("courseId must be positive")
	}
	if f.DayOfWeek != nil && (*f.DayOfWeek < 0 || *f.DayOfWeek > 6) {
		return apperrors.NewBadRequestError(fmt.Sprintf("day %d is out of range 0-6", *f.DayOfWeek))
	}
	if f.Page < 0 || f.Size < 0 {
		return apperrors.NewBadRequestError("page and size must not be negative")
	}
	if f.Page == 0 {
		f.Page = 1
	}
	if f.Size == 0 {
		f.Size = DefaultOfferingPageSize
	}
	if f.Size > MaxOfferingPageSize {
		f.Size = MaxOfferingPageSize
	}
	return nil
}

// OpenOnly reports whether CLOSED offerings are filtered out
func (f *OfferingFilter) OpenOnly() bool {
	return f.OnlyOpen == nil || *f.OnlyOpen
}

// Offset returns the row offset of the current page
func (f *OfferingFilter) Offset() int {
	return (f.Page - 1) * f.Size
}

// ConflictResponse names an offering colliding with a candidate
type ConflictResponse struct {
	ClassOfferingID int64    `json:"classOfferingId"`
	Label           string   `json:"label"`
	Overlaps        []string `json:"overlaps"`
}

// ScheduleConflictCheckResponse is the preview of a schedule conflict check
type ScheduleConflictCheckResponse struct {
	StudentID       int64              `json:"studentId"`
	ClassOfferingID int64              `json:"classOfferingId"`
	Conflict        bool               `json:"conflict"`
	Conflicts       []ConflictResponse `json:"conflicts"`
}

// AvailableOfferingResponse is an offering with seat and eligibility preview
type AvailableOfferingResponse struct {
	OfferingSummary
	Course           CourseSummary      `json:"course"`
	Enrolled         int                `json:"enrolled"`
	SeatsAvailable   int                `json:"seatsAvailable"`
	PrerequisitesMet bool               `json:"prerequisitesMet"`
	MissingPrereqs   []CourseRef        `json:"missingPrerequisites"`
	ScheduleConflict bool               `json:"scheduleConflict"`
	ConflictsWith    []ConflictResponse `json:"conflictsWith"`
	AlreadyEnrolled  bool               `json:"alreadyEnrolled"`
}

// OfferingListResponse is one page of available offerings
type OfferingListResponse struct {
	Offerings []AvailableOfferingResponse `json:"offerings"`
	PaginationInfo
}
