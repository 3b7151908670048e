package models

import "time"

// Term is an academic semester. The registration window is owned by the
// calendar service and only read here.
type Term struct {
	ID                   int64      `json:"id" db:"id"`
	Name                 string     `json:"name" db:"name"`
	StartDate            time.Time  `json:"startDate" db:"start_date"`
	EndDate              time.Time  `json:"endDate" db:"end_date"`
	IsCurrent            bool       `json:"isCurrent" db:"is_current"`
	RegistrationOpensAt  *time.Time `json:"registrationOpensAt,omitempty" db:"registration_opens_at"`
	RegistrationClosesAt *time.Time `json:"registrationClosesAt,omitempty" db:"registration_closes_at"`
}
