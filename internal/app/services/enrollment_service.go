package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/yigit/registrar/internal/app/models"
	"github.com/yigit/registrar/internal/app/models/dto"
	"github.com/yigit/registrar/internal/app/repositories"
	"github.com/yigit/registrar/internal/db"
	"github.com/yigit/registrar/internal/pkg/apperrors"
	"github.com/yigit/registrar/internal/pkg/helpers"
)

// EnrollmentOptions tunes the enrollment engine
type EnrollmentOptions struct {
	// BulkConcurrency bounds parallel enrolls in BulkEnroll. 1 is sequential.
	BulkConcurrency int
	// RequireOverrideReason rejects overrides without a reason.
	RequireOverrideReason bool
}

// EnrollmentService places students into class offerings
type EnrollmentService struct {
	store  repositories.Store
	holds  HoldService
	period RegistrationPeriodService
	audit  AuditService
	opts   EnrollmentOptions
	now    func() time.Time
	logger zerolog.Logger
}

// NewEnrollmentService creates a new enrollment service instance
func NewEnrollmentService(
	store repositories.Store,
	holds HoldService,
	period RegistrationPeriodService,
	audit AuditService,
	opts EnrollmentOptions,
	logger zerolog.Logger,
) *EnrollmentService {
	if opts.BulkConcurrency < 1 {
		opts.BulkConcurrency = 1
	}
	return &EnrollmentService{
		store:  store,
		holds:  holds,
		period: period,
		audit:  audit,
		opts:   opts,
		now:    time.Now,
		logger: logger,
	}
}

// SetClock replaces the time source used for drop timestamps
func (s *EnrollmentService) SetClock(now func() time.Time) {
	s.now = now
}

// notFound turns a repository miss into a NotFound error naming the resource
func notFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apperrors.NewResourceNotFoundError(fmt.Sprintf(format, args...))
	}
	return err
}

// contention maps an exhausted retry budget to ResourceExhausted
func contention(err error) error {
	if errors.Is(err, db.ErrRetriesExhausted) {
		return apperrors.NewResourceExhaustedError("enrollment could not be completed under contention, try again").
			WithDetail("reason", "transaction retries exhausted")
	}
	return err
}

// Enroll runs the full enrollment pipeline for one student and one offering:
// hold, open status and registration period gates first, then duplicate,
// capacity, prerequisite and schedule checks together with the insert in a
// single transaction.
func (s *EnrollmentService) Enroll(ctx context.Context, req dto.EnrollRequest) (resp *dto.EnrollmentResponse, err error) {
	ctx, span := tracer.Start(ctx, "EnrollmentService.Enroll", trace.WithAttributes(
		attribute.Int64("student.id", req.StudentID),
		attribute.Int64("class_offering.id", req.ClassOfferingID),
		attribute.Bool("enrollment.override", req.OverridePrerequisites),
	))
	start := time.Now()
	defer func() {
		observe("enroll", start, err)
		endSpan(span, err)
	}()

	resp, err = s.enroll(ctx, req)
	if err != nil {
		s.logger.Debug().Err(err).
			Int64("studentId", req.StudentID).
			Int64("classOfferingId", req.ClassOfferingID).
			Str("kind", string(apperrors.KindOf(err))).
			Msg("Enrollment rejected")
		return nil, err
	}

	s.logger.Info().
		Int64("studentId", req.StudentID).
		Int64("classOfferingId", req.ClassOfferingID).
		Int64("enrollmentId", resp.ID).
		Int("overridden", len(resp.OverriddenPrerequisites)).
		Msg("Student enrolled")
	return resp, nil
}

func (s *EnrollmentService) enroll(ctx context.Context, req dto.EnrollRequest) (*dto.EnrollmentResponse, error) {
	if req.StudentID <= 0 || req.ClassOfferingID <= 0 {
		return nil, apperrors.NewBadRequestError("studentId and classOfferingId must be positive")
	}
	reason := strings.TrimSpace(req.OverrideReason)
	if req.OverridePrerequisites && s.opts.RequireOverrideReason && reason == "" {
		return nil, apperrors.NewBadRequestError("overrideReason is required when overriding prerequisites")
	}

	repos := s.store.Repos()
	student, err := repos.Students.GetStudentByID(ctx, req.StudentID)
	if err != nil {
		return nil, notFound(err, "student %d not found", req.StudentID)
	}
	offering, err := repos.Offerings.GetOfferingByID(ctx, req.ClassOfferingID)
	if err != nil {
		return nil, notFound(err, "class offering %d not found", req.ClassOfferingID)
	}

	holdStatus, err := s.holds.HasRegistrationHold(ctx, student.ID)
	if err != nil {
		return nil, fmt.Errorf("hold check failed: %w", err)
	}
	if holdStatus.HasHold {
		return nil, apperrors.NewForbiddenError("student has an active registration hold").
			WithDetail("holdTypes", holdStatus.Types())
	}

	if !offering.IsOpen() {
		return nil, apperrors.NewInvalidStateError(fmt.Sprintf("class offering %s is closed", offeringLabel(offering))).
			WithDetail("status", string(offering.Status))
	}

	period, err := s.period.IsRegistrationOpen(ctx, offering.TermID)
	if err != nil {
		return nil, notFound(err, "term %d not found", offering.TermID)
	}
	if !period.IsOpen {
		msg := period.Message
		if msg == "" {
			msg = "registration is not open for this term"
		}
		return nil, apperrors.NewInvalidStateError(msg).WithDetail("termId", offering.TermID)
	}

	var (
		enrollment     *models.Enrollment
		locked         *models.ClassOffering
		overriddenRefs []dto.CourseRef
	)
	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx *repositories.Repositories) error {
		// The callback can be replayed; start from a clean slate.
		enrollment, overriddenRefs = nil, nil

		var err error
		locked, err = tx.Offerings.LockOffering(ctx, offering.ID)
		if err != nil {
			return notFound(err, "class offering %d not found", offering.ID)
		}
		if !locked.IsOpen() {
			return apperrors.NewInvalidStateError(fmt.Sprintf("class offering %s is closed", offeringLabel(locked))).
				WithDetail("status", string(locked.Status))
		}

		if existing, err := tx.Enrollments.FindActive(ctx, student.ID, locked.ID); err == nil {
			return apperrors.NewConflictError("student is already enrolled in this class offering").
				WithDetail("enrollmentId", existing.ID).
				WithDetail("status", string(existing.Status))
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return err
		}

		enrolled, err := tx.Enrollments.CountActive(ctx, locked.ID)
		if err != nil {
			return err
		}
		if enrolled >= locked.Capacity {
			return apperrors.NewResourceExhaustedError(fmt.Sprintf("class offering %s is full", offeringLabel(locked))).
				WithDetail("capacity", locked.Capacity).
				WithDetail("enrolled", enrolled)
		}

		check, err := checkPrerequisites(ctx, tx, student.ID, locked.CourseID)
		if err != nil {
			return err
		}
		if req.OverridePrerequisites {
			waived := check.Unsatisfied()
			for _, courseID := range waived {
				if err := tx.Overrides.Upsert(ctx, &models.PrerequisiteOverride{
					StudentID:  student.ID,
					CourseID:   courseID,
					ApproverID: req.ActorID,
					Reason:     reason,
				}); err != nil {
					return err
				}
			}
			courses, err := tx.Courses.GetCoursesByIDs(ctx, waived)
			if err != nil {
				return err
			}
			overriddenRefs = courseRefs(waived, courses)
		} else if !check.Met {
			courses, err := tx.Courses.GetCoursesByIDs(ctx, check.Missing)
			if err != nil {
				return err
			}
			missing := courseRefs(check.Missing, courses)
			return apperrors.NewFailedPreconditionError("missing prerequisites: "+strings.Join(courseCodes(missing), ", ")).
				WithDetail("missingPrerequisites", courseCodes(missing))
		}

		conflicts, err := detectConflicts(ctx, tx, student.ID, locked)
		if err != nil {
			return err
		}
		if conflicts.Conflict {
			return apperrors.NewConflictError("schedule conflicts with "+strings.Join(conflicts.Labels(), ", ")).
				WithDetail("conflicts", toConflictResponses(conflicts))
		}

		enrollment = &models.Enrollment{
			StudentID:       student.ID,
			ClassOfferingID: locked.ID,
			TermID:          locked.TermID,
			Status:          models.EnrollmentRegistered,
		}
		return tx.Enrollments.Create(ctx, enrollment)
	})
	if err != nil {
		return nil, contention(err)
	}

	resp := toEnrollmentResponse(enrollment, student, locked)
	resp.OverriddenPrerequisites = overriddenRefs

	logAudit(ctx, s.audit, s.logger, AuditEntry{
		Action: AuditEnroll, Resource: "enrollment", ResourceID: enrollment.ID, ActorID: req.ActorID, After: enrollment,
	})
	if len(overriddenRefs) > 0 {
		logAudit(ctx, s.audit, s.logger, AuditEntry{
			Action: AuditOverride, Resource: "student", ResourceID: student.ID, ActorID: req.ActorID,
			After: map[string]interface{}{"courses": courseCodes(overriddenRefs), "reason": reason},
		})
	}
	return resp, nil
}

// Drop moves the student's active enrollment in the offering to DROPPED.
// The seat is free as soon as the transaction commits.
func (s *EnrollmentService) Drop(ctx context.Context, req dto.DropRequest) (resp *dto.EnrollmentResponse, err error) {
	ctx, span := tracer.Start(ctx, "EnrollmentService.Drop", trace.WithAttributes(
		attribute.Int64("student.id", req.StudentID),
		attribute.Int64("class_offering.id", req.ClassOfferingID),
	))
	start := time.Now()
	defer func() {
		observe("drop", start, err)
		endSpan(span, err)
	}()

	if req.StudentID <= 0 || req.ClassOfferingID <= 0 {
		return nil, apperrors.NewBadRequestError("studentId and classOfferingId must be positive")
	}

	repos := s.store.Repos()
	student, err := repos.Students.GetStudentByID(ctx, req.StudentID)
	if err != nil {
		return nil, notFound(err, "student %d not found", req.StudentID)
	}

	var reason *string
	if r := strings.TrimSpace(req.Reason); r != "" {
		reason = &r
	}

	var (
		before, after *models.Enrollment
		offering      *models.ClassOffering
	)
	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx *repositories.Repositories) error {
		var err error
		offering, err = tx.Offerings.LockOffering(ctx, req.ClassOfferingID)
		if err != nil {
			return notFound(err, "class offering %d not found", req.ClassOfferingID)
		}
		before, err = tx.Enrollments.FindActive(ctx, student.ID, offering.ID)
		if err != nil {
			return notFound(err, "student %d has no active enrollment in class offering %d", student.ID, offering.ID)
		}
		if !before.IsActive() {
			return apperrors.NewInvalidStateError(fmt.Sprintf("enrollment %d is %s and cannot be dropped", before.ID, before.Status)).
				WithDetail("status", string(before.Status))
		}

		at := s.now()
		if err := tx.Enrollments.MarkDropped(ctx, before.ID, at, reason); err != nil {
			return notFound(err, "student %d has no active enrollment in class offering %d", student.ID, offering.ID)
		}
		dropped := *before
		dropped.Status = models.EnrollmentDropped
		dropped.DroppedAt = &at
		dropped.DropReason = reason
		after = &dropped
		return nil
	})
	if err != nil {
		return nil, contention(err)
	}

	logAudit(ctx, s.audit, s.logger, AuditEntry{
		Action: AuditDrop, Resource: "enrollment", ResourceID: after.ID, ActorID: req.ActorID, Before: before, After: after,
	})
	s.logger.Info().Int64("studentId", student.ID).Int64("classOfferingId", offering.ID).Int64("enrollmentId", after.ID).Msg("Enrollment dropped")
	return toEnrollmentResponse(after, student, offering), nil
}

// BulkEnroll enrolls each listed student independently. Individual failures
// are reported in the results and never fail the batch.
func (s *EnrollmentService) BulkEnroll(ctx context.Context, offeringID int64, req dto.BulkEnrollRequest) (resp *dto.BulkEnrollResponse, err error) {
	ctx, span := tracer.Start(ctx, "EnrollmentService.BulkEnroll", trace.WithAttributes(
		attribute.Int64("class_offering.id", offeringID),
		attribute.Int("bulk.size", len(req.StudentIDs)),
	))
	start := time.Now()
	defer func() {
		observe("bulk_enroll", start, err)
		endSpan(span, err)
	}()

	if offeringID <= 0 {
		return nil, apperrors.NewBadRequestError("classOfferingId must be positive")
	}
	if len(req.StudentIDs) == 0 {
		return nil, apperrors.NewBadRequestError("studentIds must not be empty")
	}

	results := make([]dto.BulkEnrollItem, len(req.StudentIDs))
	enrollOne := func(i int) {
		studentID := req.StudentIDs[i]
		item := dto.BulkEnrollItem{StudentID: studentID}
		enrollment, err := s.Enroll(ctx, dto.EnrollRequest{
			StudentID:             studentID,
			ClassOfferingID:       offeringID,
			OverridePrerequisites: req.OverridePrerequisites,
			OverrideReason:        req.OverrideReason,
			ActorID:               req.ActorID,
		})
		if err != nil {
			item.Failure = &dto.FailureDetail{
				Kind:    string(apperrors.KindOf(err)),
				Message: err.Error(),
				Details: apperrors.DetailsOf(err),
			}
		} else {
			item.Success = true
			item.Enrollment = enrollment
		}
		bulkItems.WithLabelValues(resultLabel(err)).Inc()
		results[i] = item
	}

	if s.opts.BulkConcurrency <= 1 {
		for i := range req.StudentIDs {
			enrollOne(i)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(s.opts.BulkConcurrency)
		for i := range req.StudentIDs {
			g.Go(func() error {
				enrollOne(i)
				return nil
			})
		}
		_ = g.Wait()
	}

	resp = &dto.BulkEnrollResponse{ClassOfferingID: offeringID, Total: len(results), Results: results}
	for _, r := range results {
		if r.Success {
			resp.Successful++
		} else {
			resp.Failed++
		}
	}
	s.logger.Info().Int64("classOfferingId", offeringID).Int("total", resp.Total).Int("successful", resp.Successful).Int("failed", resp.Failed).Msg("Bulk enrollment finished")
	return resp, nil
}

// CheckPrerequisites previews the prerequisite decision for a student and a course
func (s *EnrollmentService) CheckPrerequisites(ctx context.Context, studentID, courseID int64) (*dto.PrerequisiteCheckResponse, error) {
	repos := s.store.Repos()
	if _, err := repos.Students.GetStudentByID(ctx, studentID); err != nil {
		return nil, notFound(err, "student %d not found", studentID)
	}
	course, err := repos.Courses.GetCourseByID(ctx, courseID)
	if err != nil {
		return nil, notFound(err, "course %d not found", courseID)
	}
	if course.IsDeleted() {
		return nil, apperrors.NewResourceNotFoundError(fmt.Sprintf("course %d not found", courseID))
	}

	check, err := checkPrerequisites(ctx, repos, studentID, courseID)
	if err != nil {
		return nil, err
	}
	courses, err := repos.Courses.GetCoursesByIDs(ctx, check.Prerequisites)
	if err != nil {
		return nil, err
	}
	return &dto.PrerequisiteCheckResponse{
		StudentID:  studentID,
		Course:     toCourseRef(course),
		Met:        check.Met,
		Missing:    courseRefs(check.Missing, courses),
		Overridden: courseRefs(check.Overridden, courses),
	}, nil
}

// CheckScheduleConflicts previews the schedule decision for a student and an offering
func (s *EnrollmentService) CheckScheduleConflicts(ctx context.Context, studentID, offeringID int64) (*dto.ScheduleConflictCheckResponse, error) {
	repos := s.store.Repos()
	if _, err := repos.Students.GetStudentByID(ctx, studentID); err != nil {
		return nil, notFound(err, "student %d not found", studentID)
	}
	offering, err := repos.Offerings.GetOfferingByID(ctx, offeringID)
	if err != nil {
		return nil, notFound(err, "class offering %d not found", offeringID)
	}

	result, err := detectConflicts(ctx, repos, studentID, offering)
	if err != nil {
		return nil, err
	}
	return &dto.ScheduleConflictCheckResponse{
		StudentID:       studentID,
		ClassOfferingID: offeringID,
		Conflict:        result.Conflict,
		Conflicts:       toConflictResponses(result),
	}, nil
}

// GetAvailableOfferings lists offerings of a term with seat counts and the
// student's prerequisite and schedule standing for each
func (s *EnrollmentService) GetAvailableOfferings(ctx context.Context, studentID int64, filter dto.OfferingFilter) (*dto.OfferingListResponse, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	repos := s.store.Repos()
	if _, err := repos.Students.GetStudentByID(ctx, studentID); err != nil {
		return nil, notFound(err, "student %d not found", studentID)
	}
	if _, err := repos.Terms.GetTermByID(ctx, filter.TermID); err != nil {
		return nil, notFound(err, "term %d not found", filter.TermID)
	}

	items, total, err := repos.Offerings.ListOfferings(ctx, filter)
	if err != nil {
		return nil, err
	}

	existing, err := activeSchedule(ctx, repos, studentID, filter.TermID)
	if err != nil {
		return nil, err
	}
	enrolledIn := make(map[int64]bool, len(existing))
	for _, e := range existing {
		enrolledIn[e.ClassOfferingID] = true
	}

	checks := map[int64]*prerequisiteCheck{}
	var missingIDs []int64
	for _, it := range items {
		courseID := it.Offering.CourseID
		if _, ok := checks[courseID]; ok {
			continue
		}
		check, err := checkPrerequisites(ctx, repos, studentID, courseID)
		if err != nil {
			return nil, err
		}
		checks[courseID] = check
		missingIDs = append(missingIDs, check.Missing...)
	}
	courses, err := repos.Courses.GetCoursesByIDs(ctx, missingIDs)
	if err != nil {
		return nil, err
	}

	resp := &dto.OfferingListResponse{
		Offerings:      make([]dto.AvailableOfferingResponse, 0, len(items)),
		PaginationInfo: helpers.NewPaginationInfo(total, filter.Page, filter.Size),
	}
	for _, it := range items {
		o := it.Offering
		check := checks[o.CourseID]
		conflicts := conflictsFor(o, existing)
		seats := o.Capacity - it.Enrolled
		if seats < 0 {
			seats = 0
		}
		resp.Offerings = append(resp.Offerings, dto.AvailableOfferingResponse{
			OfferingSummary:  toOfferingSummary(o),
			Course:           toCourseSummary(o.Course),
			Enrolled:         it.Enrolled,
			SeatsAvailable:   seats,
			PrerequisitesMet: check.Met,
			MissingPrereqs:   courseRefs(check.Missing, courses),
			ScheduleConflict: conflicts.Conflict,
			ConflictsWith:    toConflictResponses(conflicts),
			AlreadyEnrolled:  enrolledIn[o.ID],
		})
	}
	return resp, nil
}
