package models

import "time"

// AuditLog is one recorded mutation
type AuditLog struct {
	ID         int64     `json:"id" db:"id"`
	Action     string    `json:"action" db:"action"`
	Resource   string    `json:"resource" db:"resource"`
	ResourceID int64     `json:"resourceId" db:"resource_id"`
	ActorID    int64     `json:"actorId" db:"actor_id"`
	Before     []byte    `json:"before,omitempty" db:"before_state"`
	After      []byte    `json:"after,omitempty" db:"after_state"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}
