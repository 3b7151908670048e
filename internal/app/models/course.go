package models

import "time"

// Course represents a catalog course. Prerequisite edges are stored separately
// in course_prerequisites.
type Course struct {
	ID          int64      `json:"id" db:"id"`
	Code        string     `json:"code" db:"code"`
	Name        string     `json:"name" db:"name"`
	Description *string    `json:"description,omitempty" db:"description"` // Nullable
	Credits     int        `json:"credits" db:"credits"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty" db:"deleted_at"`
}

// IsDeleted reports whether the course has been soft-deleted
func (c *Course) IsDeleted() bool {
	return c.DeletedAt != nil
}

// PrerequisiteEdge is a directed edge course -> prerequisite
type PrerequisiteEdge struct {
	CourseID       int64     `json:"courseId" db:"course_id"`
	PrerequisiteID int64     `json:"prerequisiteId" db:"prerequisite_id"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}
