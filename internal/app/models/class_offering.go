package models

// ClassOffering represents a course taught in a specific term.
type ClassOffering struct {
	ID       int64          `json:"id" db:"id"`
	CourseID int64          `json:"courseId" db:"course_id"`
	TermID   int64          `json:"termId" db:"term_id"`
	Section  string         `json:"section" db:"section"`
	Capacity int            `json:"capacity" db:"capacity"`
	Status   OfferingStatus `json:"status" db:"status"`

	// Relations (populated when needed)
	Slots  []ScheduleSlot `json:"slots,omitempty"`
	Course *Course        `json:"course,omitempty"`
}

// IsOpen reports whether the offering accepts enrollments
func (o *ClassOffering) IsOpen() bool {
	return o.Status == OfferingOpen
}
