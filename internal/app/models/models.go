package models

// RoleType defines the role carried by an authenticated actor
type RoleType string

const (
	RoleStudent    RoleType = "STUDENT"
	RoleInstructor RoleType = "INSTRUCTOR"
	RoleAdmin      RoleType = "ADMIN"
)

// EnrollmentStatus is the lifecycle state of an enrollment row
type EnrollmentStatus string

const (
	EnrollmentRegistered EnrollmentStatus = "REGISTERED"
	EnrollmentCompleted  EnrollmentStatus = "COMPLETED"
	EnrollmentDropped    EnrollmentStatus = "DROPPED"
)

// OfferingStatus tells whether an offering accepts new enrollments
type OfferingStatus string

const (
	OfferingOpen   OfferingStatus = "OPEN"
	OfferingClosed OfferingStatus = "CLOSED"
)
