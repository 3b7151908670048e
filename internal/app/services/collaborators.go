package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/registrar/internal/app/models"
	"github.com/yigit/registrar/internal/app/repositories"
)

// Hold is one active registration hold
type Hold struct {
	Type string `json:"type"`
}

// HoldStatus is the decision of the hold collaborator
type HoldStatus struct {
	HasHold bool   `json:"hasHold"`
	Holds   []Hold `json:"holds"`
}

// Types returns the hold types in order
func (h *HoldStatus) Types() []string {
	types := make([]string, 0, len(h.Holds))
	for _, hold := range h.Holds {
		types = append(types, hold.Type)
	}
	return types
}

// HoldService decides whether a student is blocked from registering
type HoldService interface {
	HasRegistrationHold(ctx context.Context, studentID int64) (*HoldStatus, error)
}

// PeriodStatus is the decision of the registration period collaborator
type PeriodStatus struct {
	IsOpen  bool   `json:"isOpen"`
	Message string `json:"message,omitempty"`
}

// RegistrationPeriodService decides whether registration is open for a term
type RegistrationPeriodService interface {
	IsRegistrationOpen(ctx context.Context, termID int64) (*PeriodStatus, error)
}

// AuditEntry is one mutation to record. Before and After are marshaled to JSON.
type AuditEntry struct {
	Action     string
	Resource   string
	ResourceID int64
	ActorID    int64
	Before     interface{}
	After      interface{}
}

// AuditService records mutations. Callers ignore its failures.
type AuditService interface {
	Log(ctx context.Context, entry AuditEntry) error
}

// StoreHoldService reads holds from student_holds
type StoreHoldService struct {
	holds repositories.HoldStore
}

// NewStoreHoldService creates a hold service over the store
func NewStoreHoldService(holds repositories.HoldStore) *StoreHoldService {
	return &StoreHoldService{holds: holds}
}

// HasRegistrationHold reports the unresolved holds that block registration
func (s *StoreHoldService) HasRegistrationHold(ctx context.Context, studentID int64) (*HoldStatus, error) {
	holds, err := s.holds.ActiveRegistrationHolds(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("error reading holds: %w", err)
	}
	status := &HoldStatus{Holds: make([]Hold, 0, len(holds))}
	for _, h := range holds {
		status.Holds = append(status.Holds, Hold{Type: h.HoldType})
	}
	status.HasHold = len(status.Holds) > 0
	return status, nil
}

// TermWindowPeriodService opens registration between a term's
// registration_opens_at and registration_closes_at. A missing bound is
// unbounded on that side.
type TermWindowPeriodService struct {
	terms repositories.TermStore
	now   func() time.Time
}

// NewTermWindowPeriodService creates a period service. now defaults to time.Now.
func NewTermWindowPeriodService(terms repositories.TermStore, now func() time.Time) *TermWindowPeriodService {
	if now == nil {
		now = time.Now
	}
	return &TermWindowPeriodService{terms: terms, now: now}
}

// IsRegistrationOpen checks the term's registration window against the clock
func (s *TermWindowPeriodService) IsRegistrationOpen(ctx context.Context, termID int64) (*PeriodStatus, error) {
	term, err := s.terms.GetTermByID(ctx, termID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if term.RegistrationOpensAt != nil && now.Before(*term.RegistrationOpensAt) {
		return &PeriodStatus{
			Message: fmt.Sprintf("registration for %s opens at %s", term.Name, term.RegistrationOpensAt.Format(time.RFC3339)),
		}, nil
	}
	if term.RegistrationClosesAt != nil && !now.Before(*term.RegistrationClosesAt) {
		return &PeriodStatus{
			Message: fmt.Sprintf("registration for %s closed at %s", term.Name, term.RegistrationClosesAt.Format(time.RFC3339)),
		}, nil
	}
	return &PeriodStatus{IsOpen: true}, nil
}

// StoreAuditService writes audit entries to audit_logs
type StoreAuditService struct {
	audit  repositories.AuditStore
	logger zerolog.Logger
}

// NewStoreAuditService creates an audit service over the store
func NewStoreAuditService(audit repositories.AuditStore, logger zerolog.Logger) *StoreAuditService {
	return &StoreAuditService{audit: audit, logger: logger}
}

// Log stores one audit entry
func (s *StoreAuditService) Log(ctx context.Context, entry AuditEntry) error {
	row := &models.AuditLog{
		Action:     entry.Action,
		Resource:   entry.Resource,
		ResourceID: entry.ResourceID,
		ActorID:    entry.ActorID,
	}
	var err error
	if row.Before, err = marshalState(entry.Before); err != nil {
		return err
	}
	if row.After, err = marshalState(entry.After); err != nil {
		return err
	}
	if err := s.audit.Insert(ctx, row); err != nil {
		return err
	}
	s.logger.Debug().Str("action", entry.Action).Str("resource", entry.Resource).Int64("resourceId", entry.ResourceID).Msg("Audit entry recorded")
	return nil
}

func marshalState(v interface{}) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal audit state: %w", err)
	}
	return b, nil
}

// Audit actions
const (
	AuditEnroll             = "ENROLL"
	AuditDrop               = "DROP"
	AuditOverride           = "PREREQUISITE_OVERRIDE"
	AuditAddPrerequisite    = "ADD_PREREQUISITE"
	AuditRemovePrerequisite = "REMOVE_PREREQUISITE"
	AuditDeleteCourse       = "DELETE_COURSE"
)

// logAudit records an entry and only logs a failure
func logAudit(ctx context.Context, audit AuditService, logger zerolog.Logger, entry AuditEntry) {
	if audit == nil {
		return
	}
	if err := audit.Log(ctx, entry); err != nil {
		logger.Warn().Err(err).Str("action", entry.Action).Int64("resourceId", entry.ResourceID).Msg("Failed to record audit entry")
	}
}
