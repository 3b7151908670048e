package dto

import (
	"time"
)

// EnrollRequest asks to place a student into a class offering
type EnrollRequest struct {
	StudentID             int64  `json:"studentId" binding:"required,gt=0"`
	ClassOfferingID       int64  `json:"classOfferingId" binding:"required,gt=0"`
	OverridePrerequisites bool   `json:"overridePrerequisites"`
	OverrideReason        string `json:"overrideReason" binding:"max=500"`

	// ActorID is the authenticated caller; it becomes the override approver.
	ActorID int64 `json:"-"`
}

// DropRequest asks to drop a student's active enrollment
type DropRequest struct {
	StudentID       int64  `json:"studentId" binding:"required,gt=0"`
	ClassOfferingID int64  `json:"classOfferingId" binding:"required,gt=0"`
	Reason          string `json:"reason" binding:"max=500"`

	ActorID int64 `json:"-"`
}

// BulkEnrollRequest enrolls many students into one offering
type BulkEnrollRequest struct {
	StudentIDs            []int64 `json:"studentIds" binding:"required,min=1,max=500,dive,gt=0"`
	OverridePrerequisites bool    `json:"overridePrerequisites"`
	OverrideReason        string  `json:"overrideReason" binding:"max=500"`

	ActorID int64 `json:"-"`
}

// StudentSummary is the student part of an enrollment response
type StudentSummary struct {
	ID         int64  `json:"id"`
	Identifier string `json:"identifier"`
	FullName   string `json:"fullName"`
}

// CourseRef identifies a course for display
type CourseRef struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name,omitempty"`
}

// CourseSummary is the course part of an enrollment response
type CourseSummary struct {
	ID      int64  `json:"id"`
	Code    string `json:"code"`
	Name    string `json:"name"`
	Credits int    `json:"credits"`
}

// ScheduleSlotResponse is a display form of a weekly meeting time
type ScheduleSlotResponse struct {
	DayOfWeek   int    `json:"dayOfWeek"`
	StartMinute int    `json:"startMinute"`
	EndMinute   int    `json:"endMinute"`
	Room        string `json:"room,omitempty"`
	Display     string `json:"display"`
}

// OfferingSummary is the class offering part of an enrollment response
type OfferingSummary struct {
	ID       int64                  `json:"id"`
	TermID   int64                  `json:"termId"`
	Section  string                 `json:"section"`
	Capacity int                    `json:"capacity"`
	Status   string                 `json:"status"`
	Schedule []ScheduleSlotResponse `json:"schedule"`
}

// EnrollmentResponse is an enrollment with denormalized detail
type EnrollmentResponse struct {
	ID                      int64           `json:"id"`
	Status                  string          `json:"status"`
	CreatedAt               time.Time       `json:"createdAt"`
	DroppedAt               *time.Time      `json:"droppedAt,omitempty"`
	DropReason              *string         `json:"dropReason,omitempty"`
	Student                 StudentSummary  `json:"student"`
	ClassOffering           OfferingSummary `json:"classOffering"`
	Course                  CourseSummary   `json:"course"`
	OverriddenPrerequisites []CourseRef     `json:"overriddenPrerequisites,omitempty"`
}

// FailureDetail describes why one item of a batch failed
type FailureDetail struct {
	Kind    string                 `json:"kind"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// BulkEnrollItem is the outcome for one student of a bulk enrollment
type BulkEnrollItem struct {
	StudentID  int64               `json:"studentId"`
	Success    bool                `json:"success"`
	Enrollment *EnrollmentResponse `json:"enrollment,omitempty"`
	Failure    *FailureDetail      `json:"failure,omitempty"`
}

// BulkEnrollResponse summarizes a bulk enrollment
type BulkEnrollResponse struct {
	ClassOfferingID int64            `json:"classOfferingId"`
	Total           int              `json:"total"`
	Successful      int              `json:"successful"`
	Failed          int              `json:"failed"`
	Results         []BulkEnrollItem `json:"results"`
}
