package services

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/registrar/internal/app/repositories"
)

// Services defined in this package:
// - EnrollmentService: enroll, drop, bulk enroll and the read-only previews
// - PrerequisiteService: prerequisite graph and course lifecycle

// Services holds all the service instances
type Services struct {
	Enrollment   *EnrollmentService
	Prerequisite *PrerequisiteService
}

// Dependencies are the collaborators and settings the services are built from
type Dependencies struct {
	Store      repositories.Store
	Holds      HoldService
	Period     RegistrationPeriodService
	Audit      AuditService
	Enrollment EnrollmentOptions
	Clock      func() time.Time
	Logger     zerolog.Logger
}

// NewServices wires the services. Collaborators left nil fall back to the
// store-backed implementations.
func NewServices(deps Dependencies) *Services {
	repos := deps.Store.Repos()
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Holds == nil {
		deps.Holds = NewStoreHoldService(repos.Holds)
	}
	if deps.Period == nil {
		deps.Period = NewTermWindowPeriodService(repos.Terms, deps.Clock)
	}
	if deps.Audit == nil {
		deps.Audit = NewStoreAuditService(repos.Audit, deps.Logger.With().Str("component", "audit").Logger())
	}

	enrollment := NewEnrollmentService(deps.Store, deps.Holds, deps.Period, deps.Audit, deps.Enrollment,
		deps.Logger.With().Str("component", "enrollment").Logger())
	enrollment.SetClock(deps.Clock)

	prerequisite := NewPrerequisiteService(deps.Store, deps.Audit, deps.Logger.With().Str("component", "prerequisites").Logger())
	prerequisite.now = deps.Clock

	return &Services{Enrollment: enrollment, Prerequisite: prerequisite}
}
