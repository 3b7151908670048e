package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/yigit/registrar/internal/app/models"
	"github.com/yigit/registrar/internal/app/models/dto"
	"github.com/yigit/registrar/internal/app/repositories/memory"
)

var fixedNow = time.Date(2025, 8, 20, 9, 0, 0, 0, time.UTC)

// fixture is a small catalog:
//
//	MATH201 requires MATH101
//	MATH201-A  Mon 09:00-10:30  capacity 30
//	CS101-A    Mon 10:00-11:00  capacity 30
//	CS101-B    Tue 10:00-11:00  capacity 1
type fixture struct {
	store    *memory.Store
	svc      *Services
	term     models.Term
	math101  models.Course
	math201  models.Course
	cs101    models.Course
	math201A models.ClassOffering
	cs101A   models.ClassOffering
	cs101B   models.ClassOffering
}

func newFixture(t *testing.T, opts ...func(*Dependencies)) *fixture {
	t.Helper()
	s := memory.NewStore()
	s.SetClock(func() time.Time { return fixedNow })

	f := &fixture{store: s}
	f.term = s.AddTerm(models.Term{Name: "Fall 2025", IsCurrent: true})
	f.math101 = s.AddCourse(models.Course{Code: "MATH101", Name: "Calculus I", Credits: 4})
	f.math201 = s.AddCourse(models.Course{Code: "MATH201", Name: "Calculus II", Credits: 4})
	f.cs101 = s.AddCourse(models.Course{Code: "CS101", Name: "Programming", Credits: 3})
	s.LinkPrerequisite(f.math201.ID, f.math101.ID)

	f.math201A = s.AddOffering(models.ClassOffering{CourseID: f.math201.ID, TermID: f.term.ID, Section: "A", Capacity: 30,
		Slots: []models.ScheduleSlot{{DayOfWeek: 1, StartMinute: 9 * 60, EndMinute: 10*60 + 30}}})
	f.cs101A = s.AddOffering(models.ClassOffering{CourseID: f.cs101.ID, TermID: f.term.ID, Section: "A", Capacity: 30,
		Slots: []models.ScheduleSlot{{DayOfWeek: 1, StartMinute: 10 * 60, EndMinute: 11 * 60}}})
	f.cs101B = s.AddOffering(models.ClassOffering{CourseID: f.cs101.ID, TermID: f.term.ID, Section: "B", Capacity: 1,
		Slots: []models.ScheduleSlot{{DayOfWeek: 2, StartMinute: 10 * 60, EndMinute: 11 * 60}}})

	deps := Dependencies{
		Store:      s,
		Enrollment: EnrollmentOptions{BulkConcurrency: 1, RequireOverrideReason: true},
		Clock:      func() time.Time { return fixedNow },
		Logger:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(&deps)
	}
	f.svc = NewServices(deps)
	return f
}

func (f *fixture) student(t *testing.T, identifier string) models.Student {
	t.Helper()
	return f.store.AddStudent(models.Student{Identifier: identifier, FirstName: "Student", LastName: identifier})
}

func (f *fixture) enroll(ctx context.Context, studentID, offeringID int64) (*dto.EnrollmentResponse, error) {
	return f.svc.Enrollment.Enroll(ctx, dto.EnrollRequest{StudentID: studentID, ClassOfferingID: offeringID})
}

func (f *fixture) mustEnroll(t *testing.T, studentID, offeringID int64) *dto.EnrollmentResponse {
	t.Helper()
	resp, err := f.enroll(context.Background(), studentID, offeringID)
	require.NoError(t, err)
	return resp
}

type failingAudit struct{ calls int }

func (a *failingAudit) Log(context.Context, AuditEntry) error {
	a.calls++
	return errors.New("audit sink unavailable")
}

type stubHolds struct{ status *HoldStatus }

func (h stubHolds) HasRegistrationHold(context.Context, int64) (*HoldStatus, error) {
	return h.status, nil
}
