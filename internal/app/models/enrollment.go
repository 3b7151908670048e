package models

import "time"

// Enrollment places a student in a class offering. Rows are never deleted;
// dropping moves the row to DROPPED and a later enrollment creates a new row.
type Enrollment struct {
	ID              int64            `json:"id" db:"id"`
	StudentID       int64            `json:"studentId" db:"student_id"`
	ClassOfferingID int64            `json:"classOfferingId" db:"class_offering_id"`
	TermID          int64            `json:"termId" db:"term_id"`
	Status          EnrollmentStatus `json:"status" db:"status"`
	CreatedAt       time.Time        `json:"createdAt" db:"created_at"`
	DroppedAt       *time.Time       `json:"droppedAt,omitempty" db:"dropped_at"`
	DropReason      *string          `json:"dropReason,omitempty" db:"drop_reason"`
}

// IsActive reports whether the enrollment holds a seat
func (e *Enrollment) IsActive() bool {
	return e.Status == EnrollmentRegistered
}
