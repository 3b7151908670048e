package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/yigit/registrar/internal/app/models"
	"github.com/yigit/registrar/internal/app/models/dto"
	"github.com/yigit/registrar/internal/pkg/apperrors"
)

func TestEnrollSuccess(t *testing.T) {
	f := newFixture(t)
	st := f.student(t, "S1")

	resp := f.mustEnroll(t, st.ID, f.cs101A.ID)
	assert.Equal(t, "REGISTERED", resp.Status)
	assert.Equal(t, "CS101", resp.Course.Code)
	assert.Equal(t, "A", resp.ClassOffering.Section)
	assert.Equal(t, st.Identifier, resp.Student.Identifier)
	require.Len(t, resp.ClassOffering.Schedule, 1)
	assert.Equal(t, "Mon 10:00-11:00", resp.ClassOffering.Schedule[0].Display)

	logs := f.store.AuditLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, AuditEnroll, logs[0].Action)
}

func TestEnrollNotFound(t *testing.T) {
	f := newFixture(t)
	st := f.student(t, "S1")
	ctx := context.Background()

	_, err := f.enroll(ctx, 999, f.cs101A.ID)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)

	_, err = f.enroll(ctx, st.ID, 999)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)

	_, err = f.enroll(ctx, 0, f.cs101A.ID)
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestEnrollMissingPrerequisite(t *testing.T) {
	f := newFixture(t)
	st := f.student(t, "S1")

	_, err := f.enroll(context.Background(), st.ID, f.math201A.ID)
	require.ErrorIs(t, err, apperrors.ErrFailedPrecondition)
	assert.Equal(t, apperrors.KindFailedPrecondition, apperrors.KindOf(err))
	assert.Equal(t, []string{"MATH101"}, apperrors.DetailsOf(err)["missingPrerequisites"])
	assert.Empty(t, f.store.Enrollments(f.math201A.ID))
}

func TestEnrollWithCompletedPrerequisite(t *testing.T) {
	f := newFixture(t)
	st := f.student(t, "S1")
	f.store.CompleteCourse(st.ID, f.math101.ID)

	resp := f.mustEnroll(t, st.ID, f.math201A.ID)
	assert.Empty(t, resp.OverriddenPrerequisites)
}

// A student without MATH101 enrolls in MATH201 with an approved override.
func TestEnrollWithOverride(t *testing.T) {
	f := newFixture(t)
	st := f.student(t, "S1")
	other := f.student(t, "S2")
	ctx := context.Background()

	resp, err := f.svc.Enrollment.Enroll(ctx, dto.EnrollRequest{
		StudentID:             st.ID,
		ClassOfferingID:       f.math201A.ID,
		OverridePrerequisites: true,
		OverrideReason:        "placement exam",
		ActorID:               42,
	})
	require.NoError(t, err)
	require.Len(t, resp.OverriddenPrerequisites, 1)
	assert.Equal(t, "MATH101", resp.OverriddenPrerequisites[0].Code)

	overrides := f.store.Overrides(st.ID)
	require.Len(t, overrides, 1)
	assert.Equal(t, f.math101.ID, overrides[0].CourseID)
	assert.Equal(t, int64(42), overrides[0].ApproverID)
	assert.Equal(t, "placement exam", overrides[0].Reason)

	check, err := f.svc.Enrollment.CheckPrerequisites(ctx, st.ID, f.math201.ID)
	require.NoError(t, err)
	assert.True(t, check.Met)
	assert.Empty(t, check.Missing)
	require.Len(t, check.Overridden, 1)
	assert.Equal(t, "MATH101", check.Overridden[0].Code)

	// Overrides are scoped to the student they were granted to.
	check, err = f.svc.Enrollment.CheckPrerequisites(ctx, other.ID, f.math201.ID)
	require.NoError(t, err)
	assert.False(t, check.Met)
	assert.Empty(t, check.Overridden)
	_, err = f.enroll(ctx, other.ID, f.math201A.ID)
	assert.ErrorIs(t, err, apperrors.ErrFailedPrecondition)

	actions := []string{}
	for _, l := range f.store.AuditLogs() {
		actions = append(actions, l.Action)
	}
	assert.Equal(t, []string{AuditEnroll, AuditOverride}, actions)
}

func TestOverrideRequiresReason(t *testing.T) {
	f := newFixture(t)
	st := f.student(t, "S1")

	_, err := f.svc.Enrollment.Enroll(context.Background(), dto.EnrollRequest{
		StudentID: st.ID, ClassOfferingID: f.math201A.ID, OverridePrerequisites: true, OverrideReason: "  ",
	})
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
	assert.Empty(t, f.store.Overrides(st.ID))
}

func TestSecondOverrideReplacesFirst(t *testing.T) {
	f := newFixture(t)
	st := f.student(t, "S1")
	ctx := context.Background()

	_, err := f.svc.Enrollment.Enroll(ctx, dto.EnrollRequest{
		StudentID: st.ID, ClassOfferingID: f.math201A.ID, OverridePrerequisites: true, OverrideReason: "first", ActorID: 1,
	})
	require.NoError(t, err)
	_, err = f.svc.Enrollment.Drop(ctx, dto.DropRequest{StudentID: st.ID, ClassOfferingID: f.math201A.ID})
	require.NoError(t, err)
	_, err = f.svc.Enrollment.Enroll(ctx, dto.EnrollRequest{
		StudentID: st.ID, ClassOfferingID: f.math201A.ID, OverridePrerequisites: true, OverrideReason: "second", ActorID: 2,
	})
	require.NoError(t, err)

	overrides := f.store.Overrides(st.ID)
	require.Len(t, overrides, 1)
	assert.Equal(t, "second", overrides[0].Reason)
	assert.Equal(t, int64(2), overrides[0].ApproverID)
}

func TestOverrideRolledBackOnScheduleConflict(t *testing.T) {
	f := newFixture(t)
	st := f.student(t, "S1")
	f.mustEnroll(t, st.ID, f.cs101A.ID)

	_, err := f.svc.Enrollment.Enroll(context.Background(), dto.EnrollRequest{
		StudentID: st.ID, ClassOfferingID: f.math201A.ID, OverridePrerequisites: true, OverrideReason: "dean approval", ActorID: 9,
	})
	require.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Empty(t, f.store.Overrides(st.ID), "override must not survive a failed enrollment")
	assert.Empty(t, f.store.Enrollments(f.math201A.ID))
}

func TestEnrollScheduleConflict(t *testing.T) {
	f := newFixture(t)
	st := f.student(t, "S1")
	f.store.CompleteCourse(st.ID, f.math101.ID)
	f.mustEnroll(t, st.ID, f.math201A.ID)

	_, err := f.enroll(context.Background(), st.ID, f.cs101A.ID)
	require.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Contains(t, err.Error(), "MATH201-A")

	conflicts, ok := apperrors.DetailsOf(err)["conflicts"].([]dto.ConflictResponse)
	require.True(t, ok)
	require.Len(t, conflicts, 1)
	assert.Equal(t, f.math201A.ID, conflicts[0].ClassOfferingID)
	assert.Equal(t, []string{"Mon 10:00-11:00 overlaps Mon 09:00-10:30"}, conflicts[0].Overlaps)

	// A different section on another day is fine.
	f.mustEnroll(t, st.ID, f.cs101B.ID)
}

func TestEnrollConflictIgnoresOtherTerms(t *testing.T) {
	f := newFixture(t)
	st := f.student(t, "S1")
	spring := f.store.AddTerm(models.Term{Name: "Spring 2026"})
	later := f.store.AddOffering(models.ClassOffering{CourseID: f.cs101.ID, TermID: spring.ID, Section: "A", Capacity: 10,
		Slots: []models.ScheduleSlot{{DayOfWeek: 1, StartMinute: 10 * 60, EndMinute: 11 * 60}}})

	f.mustEnroll(t, st.ID, f.cs101A.ID)
	f.mustEnroll(t, st.ID, later.ID)
}

func TestEnrollDuplicate(t *testing.T) {
	f := newFixture(t)
	st := f.student(t, "S1")
	f.mustEnroll(t, st.ID, f.cs101A.ID)

	_, err := f.enroll(context.Background(), st.ID, f.cs101A.ID)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Len(t, f.store.Enrollments(f.cs101A.ID), 1)
}

func TestEnrollHold(t *testing.T) {
	f := newFixture(t)
	st := f.student(t, "S1")
	f.store.AddHold(models.StudentHold{StudentID: st.ID, HoldType: "BURSAR", BlocksRegistration: true})
	f.store.AddHold(models.StudentHold{StudentID: st.ID, HoldType: "ADVISING", BlocksRegistration: false})

	_, err := f.enroll(context.Background(), st.ID, f.cs101A.ID)
	require.ErrorIs(t, err, apperrors.ErrPermissionDenied)
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))
	assert.Equal(t, []string{"BURSAR"}, apperrors.DetailsOf(err)["holdTypes"])
}

func TestEnrollHoldCheckedBeforeClosedOffering(t *testing.T) {
	f := newFixture(t, func(d *Dependencies) {
		d.Holds = stubHolds{status: &HoldStatus{HasHold: true, Holds: []Hold{{Type: "REGISTRAR"}}}}
	})
	st := f.student(t, "S1")
	f.store.SetOfferingStatus(f.cs101A.ID, models.OfferingClosed)

	_, err := f.enroll(context.Background(), st.ID, f.cs101A.ID)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}

func TestEnrollClosedOffering(t *testing.T) {
	f := newFixture(t)
	st := f.student(t, "S1")
	f.store.SetOfferingStatus(f.cs101A.ID, models.OfferingClosed)

	_, err := f.enroll(context.Background(), st.ID, f.cs101A.ID)
	require.ErrorIs(t, err, apperrors.ErrInvalidState)
	assert.Equal(t, "CLOSED", apperrors.DetailsOf(err)["status"])
}

func TestEnrollOutsideRegistrationWindow(t *testing.T) {
	f := newFixture(t)
	st := f.student(t, "S1")
	opens := fixedNow.Add(24 * time.Hour)
	term := f.store.AddTerm(models.Term{Name: "Spring 2026", RegistrationOpensAt: &opens})
	o := f.store.AddOffering(models.ClassOffering{CourseID: f.cs101.ID, TermID: term.ID, Section: "A", Capacity: 10})

	_, err := f.enroll(context.Background(), st.ID, o.ID)
	require.ErrorIs(t, err, apperrors.ErrInvalidState)
	assert.Contains(t, err.Error(), "Spring 2026 opens at")
}

func TestTermWindowPeriodService(t *testing.T) {
	f := newFixture(t)
	opens := fixedNow.Add(-time.Hour)
	closes := fixedNow
	term := f.store.AddTerm(models.Term{Name: "Summer", RegistrationOpensAt: &opens, RegistrationClosesAt: &closes})
	ctx := context.Background()

	svc := NewTermWindowPeriodService(f.store.Repos().Terms, func() time.Time { return fixedNow.Add(-time.Minute) })
	status, err := svc.IsRegistrationOpen(ctx, term.ID)
	require.NoError(t, err)
	assert.True(t, status.IsOpen)

	svc = NewTermWindowPeriodService(f.store.Repos().Terms, func() time.Time { return fixedNow })
	status, err = svc.IsRegistrationOpen(ctx, term.ID)
	require.NoError(t, err)
	assert.False(t, status.IsOpen)
	assert.Contains(t, status.Message, "closed at")

	_, err = svc.IsRegistrationOpen(ctx, 999)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
}

func TestCapacityExhausted(t *testing.T) {
	f := newFixture(t)
	first := f.student(t, "S1")
	second := f.student(t, "S2")
	f.mustEnroll(t, first.ID, f.cs101B.ID)

	_, err := f.enroll(context.Background(), second.ID, f.cs101B.ID)
	require.ErrorIs(t, err, apperrors.ErrResourceExhausted)
	details := apperrors.DetailsOf(err)
	assert.Equal(t, 1, details["capacity"])
	assert.Equal(t, 1, details["enrolled"])
}

func TestConcurrentEnrollNeverExceedsCapacity(t *testing.T) {
	f := newFixture(t)
	const capacity, extra = 5, 15
	o := f.store.AddOffering(models.ClassOffering{CourseID: f.cs101.ID, TermID: f.term.ID, Section: "C", Capacity: capacity,
		Slots: []models.ScheduleSlot{{DayOfWeek: 5, StartMinute: 8 * 60, EndMinute: 9 * 60}}})

	students := make([]int64, capacity+extra)
	for i := range students {
		students[i] = f.student(t, fmt.Sprintf("S%02d", i)).ID
	}

	var ok, full atomic.Int32
	var g errgroup.Group
	for _, id := range students {
		g.Go(func() error {
			_, err := f.enroll(context.Background(), id, o.ID)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, apperrors.ErrResourceExhausted):
				full.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(capacity), ok.Load())
	assert.Equal(t, int32(extra), full.Load())

	active, err := f.store.Repos().Enrollments.CountActive(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, capacity, active)
}

func TestLastSeatRace(t *testing.T) {
	f := newFixture(t)
	a := f.student(t, "S1")
	b := f.student(t, "S2")

	errs := make([]error, 2)
	var g errgroup.Group
	for i, id := range []int64{a.ID, b.ID} {
		g.Go(func() error {
			_, errs[i] = f.enroll(context.Background(), id, f.cs101B.ID)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	failures := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, apperrors.ErrResourceExhausted)
			failures++
		}
	}
	assert.Equal(t, 1, failures)
	assert.Len(t, f.store.Enrollments(f.cs101B.ID), 1)
}

func TestDropFreesSeatAndAllowsReEnroll(t *testing.T) {
	f := newFixture(t)
	st := f.student(t, "S1")
	waiting := f.student(t, "S2")
	ctx := context.Background()
	f.mustEnroll(t, st.ID, f.cs101B.ID)

	dropped, err := f.svc.Enrollment.Drop(ctx, dto.DropRequest{StudentID: st.ID, ClassOfferingID: f.cs101B.ID, Reason: "schedule change"})
	require.NoError(t, err)
	assert.Equal(t, "DROPPED", dropped.Status)
	require.NotNil(t, dropped.DroppedAt)
	assert.Equal(t, fixedNow, *dropped.DroppedAt)
	require.NotNil(t, dropped.DropReason)
	assert.Equal(t, "schedule change", *dropped.DropReason)

	_, err = f.svc.Enrollment.Drop(ctx, dto.DropRequest{StudentID: st.ID, ClassOfferingID: f.cs101B.ID})
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)

	f.mustEnroll(t, waiting.ID, f.cs101B.ID)
	_, err = f.svc.Enrollment.Drop(ctx, dto.DropRequest{StudentID: waiting.ID, ClassOfferingID: f.cs101B.ID})
	require.NoError(t, err)

	again := f.mustEnroll(t, st.ID, f.cs101B.ID)
	assert.NotEqual(t, dropped.ID, again.ID)

	var mine []models.Enrollment
	for _, e := range f.store.Enrollments(f.cs101B.ID) {
		if e.StudentID == st.ID {
			mine = append(mine, e)
		}
	}
	require.Len(t, mine, 2)
	assert.Equal(t, models.EnrollmentDropped, mine[0].Status)
	assert.Equal(t, models.EnrollmentRegistered, mine[1].Status)
}

func TestDropCompletedEnrollment(t *testing.T) {
	f := newFixture(t)
	st := f.student(t, "S1")
	f.store.AddEnrollment(models.Enrollment{StudentID: st.ID, ClassOfferingID: f.cs101A.ID, TermID: f.term.ID, Status: models.EnrollmentCompleted})

	_, err := f.svc.Enrollment.Drop(context.Background(), dto.DropRequest{StudentID: st.ID, ClassOfferingID: f.cs101A.ID})
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestAuditFailureDoesNotFailEnroll(t *testing.T) {
	audit := &failingAudit{}
	f := newFixture(t, func(d *Dependencies) { d.Audit = audit })
	st := f.student(t, "S1")

	f.mustEnroll(t, st.ID, f.cs101A.ID)
	assert.Equal(t, 1, audit.calls)
}

func TestBulkEnrollWithOneConflict(t *testing.T) {
	f := newFixture(t)
	ids := []int64{}
	for i := 0; i < 3; i++ {
		st := f.student(t, fmt.Sprintf("S%d", i))
		f.store.CompleteCourse(st.ID, f.math101.ID)
		ids = append(ids, st.ID)
	}
	f.mustEnroll(t, ids[1], f.cs101A.ID)

	resp, err := f.svc.Enrollment.BulkEnroll(context.Background(), f.math201A.ID, dto.BulkEnrollRequest{StudentIDs: ids})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 2, resp.Successful)
	assert.Equal(t, 1, resp.Failed)

	require.Len(t, resp.Results, 3)
	assert.True(t, resp.Results[0].Success)
	assert.False(t, resp.Results[1].Success)
	assert.Equal(t, ids[1], resp.Results[1].StudentID)
	require.NotNil(t, resp.Results[1].Failure)
	assert.Equal(t, string(apperrors.KindConflict), resp.Results[1].Failure.Kind)
	assert.True(t, resp.Results[2].Success)
}

func TestBulkEnrollConcurrentRespectsCapacity(t *testing.T) {
	f := newFixture(t, func(d *Dependencies) { d.Enrollment.BulkConcurrency = 4 })
	o := f.store.AddOffering(models.ClassOffering{CourseID: f.cs101.ID, TermID: f.term.ID, Section: "D", Capacity: 3})
	var ids []int64
	for i := 0; i < 10; i++ {
		ids = append(ids, f.student(t, fmt.Sprintf("B%d", i)).ID)
	}

	resp, err := f.svc.Enrollment.BulkEnroll(context.Background(), o.ID, dto.BulkEnrollRequest{StudentIDs: ids})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Successful)
	assert.Equal(t, 7, resp.Failed)
	for i, r := range resp.Results {
		assert.Equal(t, ids[i], r.StudentID)
		if !r.Success {
			assert.Equal(t, string(apperrors.KindResourceExhausted), r.Failure.Kind)
		}
	}
}

func TestBulkEnrollValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Enrollment.BulkEnroll(context.Background(), f.cs101A.ID, dto.BulkEnrollRequest{})
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)

	resp, err := f.svc.Enrollment.BulkEnroll(context.Background(), 999, dto.BulkEnrollRequest{StudentIDs: []int64{1}})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Failed)
	assert.Equal(t, string(apperrors.KindNotFound), resp.Results[0].Failure.Kind)
}

func TestCheckScheduleConflicts(t *testing.T) {
	f := newFixture(t)
	st := f.student(t, "S1")
	f.mustEnroll(t, st.ID, f.cs101A.ID)
	ctx := context.Background()

	resp, err := f.svc.Enrollment.CheckScheduleConflicts(ctx, st.ID, f.math201A.ID)
	require.NoError(t, err)
	assert.True(t, resp.Conflict)
	require.Len(t, resp.Conflicts, 1)
	assert.Equal(t, "CS101-A", resp.Conflicts[0].Label)

	// The offering the student already holds does not conflict with itself.
	resp, err = f.svc.Enrollment.CheckScheduleConflicts(ctx, st.ID, f.cs101A.ID)
	require.NoError(t, err)
	assert.False(t, resp.Conflict)
	assert.NotNil(t, resp.Conflicts)
}

func TestGetAvailableOfferings(t *testing.T) {
	f := newFixture(t)
	st := f.student(t, "S1")
	other := f.student(t, "S2")
	f.mustEnroll(t, st.ID, f.cs101A.ID)
	f.mustEnroll(t, other.ID, f.cs101B.ID)

	resp, err := f.svc.Enrollment.GetAvailableOfferings(context.Background(), st.ID, dto.OfferingFilter{TermID: f.term.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(3), resp.TotalItems)
	require.Len(t, resp.Offerings, 3)

	byLabel := map[string]dto.AvailableOfferingResponse{}
	for _, o := range resp.Offerings {
		byLabel[o.Course.Code+"-"+o.Section] = o
	}

	cs101A := byLabel["CS101-A"]
	assert.True(t, cs101A.AlreadyEnrolled)
	assert.False(t, cs101A.ScheduleConflict)
	assert.Equal(t, 29, cs101A.SeatsAvailable)

	cs101B := byLabel["CS101-B"]
	assert.Equal(t, 0, cs101B.SeatsAvailable)
	assert.True(t, cs101B.PrerequisitesMet)

	math := byLabel["MATH201-A"]
	assert.False(t, math.PrerequisitesMet)
	require.Len(t, math.MissingPrereqs, 1)
	assert.Equal(t, "MATH101", math.MissingPrereqs[0].Code)
	assert.True(t, math.ScheduleConflict)

	withSeats, err := f.svc.Enrollment.GetAvailableOfferings(context.Background(), st.ID, dto.OfferingFilter{TermID: f.term.ID, OnlyWithSeats: true})
	require.NoError(t, err)
	assert.Len(t, withSeats.Offerings, 2)

	_, err = f.svc.Enrollment.GetAvailableOfferings(context.Background(), st.ID, dto.OfferingFilter{})
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}
