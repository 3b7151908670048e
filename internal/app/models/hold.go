package models

import "time"

// StudentHold is a registration block placed by an external office (bursar,
// registrar, advising). Only unresolved holds that block registration count.
type StudentHold struct {
	ID                 int64      `json:"id" db:"id"`
	StudentID          int64      `json:"studentId" db:"student_id"`
	HoldType           string     `json:"holdType" db:"hold_type"`
	BlocksRegistration bool       `json:"blocksRegistration" db:"blocks_registration"`
	CreatedAt          time.Time  `json:"createdAt" db:"created_at"`
	ResolvedAt         *time.Time `json:"resolvedAt,omitempty" db:"resolved_at"`
}
