package models

import "time"

// PrerequisiteOverride waives one prerequisite course for one student.
// (StudentID, CourseID) is the key; a new override replaces the stored one.
type PrerequisiteOverride struct {
	StudentID  int64     `json:"studentId" db:"student_id"`
	CourseID   int64     `json:"courseId" db:"course_id"`
	ApproverID int64     `json:"approverId" db:"approver_id"`
	Reason     string    `json:"reason" db:"reason"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}
