package seed

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/registrar/internal/app/models"
	"github.com/yigit/registrar/internal/app/schedule"
	"github.com/yigit/registrar/internal/pkg/helpers"
	"github.com/yigit/registrar/internal/pkg/validation"
)

// Loader writes reference records and returns their ids
type Loader interface {
	// Seeded reports whether the store already holds a catalog.
	Seeded(ctx context.Context) (bool, error)
	AddTerm(ctx context.Context, t models.Term) (int64, error)
	AddCourse(ctx context.Context, c models.Course) (int64, error)
	LinkPrerequisite(ctx context.Context, courseID, prerequisiteID int64) error
	AddCurriculumCourse(ctx context.Context, curriculum string, courseID int64) error
	AddOffering(ctx context.Context, o models.ClassOffering) (int64, error)
	AddStudent(ctx context.Context, s models.Student) (int64, error)
	AddEnrollment(ctx context.Context, e models.Enrollment) (int64, error)
	AddHold(ctx context.Context, h models.StudentHold) (int64, error)
}

// Load writes the catalog through the loader unless it is already seeded.
// Registration windows are placed relative to now.
func Load(ctx context.Context, l Loader, cat Catalog, now time.Time, lgr zerolog.Logger) error {
	seeded, err := l.Seeded(ctx)
	if err != nil {
		return fmt.Errorf("failed to check existing catalog: %w", err)
	}
	if seeded {
		lgr.Info().Msg("Catalog already present, skipping seed")
		return nil
	}

	terms := make(map[string]int64, len(cat.Terms))
	for _, ts := range cat.Terms {
		term := models.Term{Name: ts.Name, StartDate: ts.Start, EndDate: ts.End, IsCurrent: ts.Current}
		if ts.OpensAfter != 0 || ts.ClosesAfter != 0 {
			opens, closes := now.Add(ts.OpensAfter), now.Add(ts.ClosesAfter)
			term.RegistrationOpensAt, term.RegistrationClosesAt = &opens, &closes
		}
		if terms[ts.Name], err = l.AddTerm(ctx, term); err != nil {
			return fmt.Errorf("term %s: %w", ts.Name, err)
		}
	}

	courses := make(map[string]int64, len(cat.Courses))
	for _, cs := range cat.Courses {
		if err := validation.ValidateCourse(cs.Code, cs.Name, cs.Credits); err != nil {
			return fmt.Errorf("course %s: %w", cs.Code, err)
		}
		if courses[cs.Code], err = l.AddCourse(ctx, models.Course{Code: cs.Code, Name: cs.Name, Credits: cs.Credits}); err != nil {
			return fmt.Errorf("course %s: %w", cs.Code, err)
		}
	}
	for _, cs := range cat.Courses {
		for _, code := range cs.Prerequisites {
			prereqID, ok := courses[code]
			if !ok {
				return fmt.Errorf("course %s: unknown prerequisite %s", cs.Code, code)
			}
			if err := l.LinkPrerequisite(ctx, courses[cs.Code], prereqID); err != nil {
				return fmt.Errorf("prerequisite %s -> %s: %w", cs.Code, code, err)
			}
		}
	}

	curricula := make([]string, 0, len(cat.Curriculum))
	for name := range cat.Curriculum {
		curricula = append(curricula, name)
	}
	slices.Sort(curricula)
	for _, name := range curricula {
		for _, code := range cat.Curriculum[name] {
			id, ok := courses[code]
			if !ok {
				return fmt.Errorf("curriculum %s: unknown course %s", name, code)
			}
			if err := l.AddCurriculumCourse(ctx, name, id); err != nil {
				return fmt.Errorf("curriculum %s: %w", name, err)
			}
		}
	}

	type offeringKey struct {
		course string
		term   string
	}
	offerings := make(map[offeringKey]int64, len(cat.Offerings))
	for _, of := range cat.Offerings {
		offering, err := buildOffering(of, courses, terms)
		if err != nil {
			return err
		}
		id, err := l.AddOffering(ctx, offering)
		if err != nil {
			return fmt.Errorf("offering %s-%s: %w", of.Course, of.Section, err)
		}
		if _, seen := offerings[offeringKey{of.Course, of.Term}]; !seen {
			offerings[offeringKey{of.Course, of.Term}] = id
		}
	}

	for _, ss := range cat.Students {
		if err := validation.ValidateStudent(ss.Identifier, ss.FirstName, ss.LastName); err != nil {
			return fmt.Errorf("student %s: %w", ss.Identifier, err)
		}
		studentID, err := l.AddStudent(ctx, models.Student{Identifier: ss.Identifier, FirstName: ss.FirstName, LastName: ss.LastName})
		if err != nil {
			return fmt.Errorf("student %s: %w", ss.Identifier, err)
		}
		for _, code := range ss.Completed {
			offeringID, ok := offerings[offeringKey{code, ss.CompletedTerm}]
			if !ok {
				return fmt.Errorf("student %s: no %s offering in %s", ss.Identifier, code, ss.CompletedTerm)
			}
			if _, err := l.AddEnrollment(ctx, models.Enrollment{
				StudentID:       studentID,
				ClassOfferingID: offeringID,
				TermID:          terms[ss.CompletedTerm],
				Status:          models.EnrollmentCompleted,
				CreatedAt:       now,
			}); err != nil {
				return fmt.Errorf("student %s completion of %s: %w", ss.Identifier, code, err)
			}
		}
		for _, holdType := range ss.Holds {
			if _, err := l.AddHold(ctx, models.StudentHold{StudentID: studentID, HoldType: holdType, BlocksRegistration: true, CreatedAt: now}); err != nil {
				return fmt.Errorf("student %s hold: %w", ss.Identifier, err)
			}
		}
	}

	lgr.Info().
		Int("terms", len(cat.Terms)).
		Int("courses", len(cat.Courses)).
		Int("offerings", len(cat.Offerings)).
		Int("students", len(cat.Students)).
		Msg("Demo catalog seeded")
	return nil
}

func buildOffering(of OfferingSpec, courses, terms map[string]int64) (models.ClassOffering, error) {
	label := of.Course + "-" + of.Section
	if err := validation.ValidateOffering(of.Section, of.Capacity); err != nil {
		return models.ClassOffering{}, fmt.Errorf("offering %s: %w", label, err)
	}
	courseID, ok := courses[of.Course]
	if !ok {
		return models.ClassOffering{}, fmt.Errorf("offering %s: unknown course", label)
	}
	termID, ok := terms[of.Term]
	if !ok {
		return models.ClassOffering{}, fmt.Errorf("offering %s: unknown term %s", label, of.Term)
	}

	offering := models.ClassOffering{
		CourseID: courseID,
		TermID:   termID,
		Section:  of.Section,
		Capacity: of.Capacity,
		Status:   models.OfferingOpen,
	}
	if of.Closed {
		offering.Status = models.OfferingClosed
	}

	for _, sl := range of.Slots {
		start, err := helpers.ParseClock(sl.Start)
		if err != nil {
			return models.ClassOffering{}, fmt.Errorf("offering %s: %w", label, err)
		}
		end, err := helpers.ParseClock(sl.End)
		if err != nil {
			return models.ClassOffering{}, fmt.Errorf("offering %s: %w", label, err)
		}
		slot := models.ScheduleSlot{DayOfWeek: int(sl.Day), StartMinute: start, EndMinute: end, Room: sl.Room}
		if err := schedule.ValidateSlot(slot); err != nil {
			return models.ClassOffering{}, fmt.Errorf("offering %s: %w", label, err)
		}
		offering.Slots = append(offering.Slots, slot)
	}
	return offering, nil
}
