package services

import (
	"context"
	"fmt"

	"github.com/yigit/registrar/internal/app/models"
	"github.com/yigit/registrar/internal/app/repositories"
	"github.com/yigit/registrar/internal/app/schedule"
)

// prerequisiteCheck is the outcome of checking one student against the
// immediate prerequisites of one course
type prerequisiteCheck struct {
	CourseID      int64
	Prerequisites []int64
	Met           bool
	Missing       []int64
	Overridden    []int64
}

// Unsatisfied returns every prerequisite the student has not completed,
// overridden or not
func (c *prerequisiteCheck) Unsatisfied() []int64 {
	out := make([]int64, 0, len(c.Missing)+len(c.Overridden))
	out = append(out, c.Overridden...)
	out = append(out, c.Missing...)
	return out
}

// checkPrerequisites classifies each immediate prerequisite of courseID as
// completed, overridden or missing. A course both overridden and missing
// counts as overridden.
func checkPrerequisites(ctx context.Context, repos *repositories.Repositories, studentID, courseID int64) (*prerequisiteCheck, error) {
	prereqs, err := repos.Courses.PrerequisiteIDs(ctx, courseID)
	if err != nil {
		return nil, err
	}
	check := &prerequisiteCheck{CourseID: courseID, Prerequisites: prereqs, Missing: []int64{}, Overridden: []int64{}}
	if len(prereqs) == 0 {
		check.Met = true
		return check, nil
	}

	completed, err := repos.Enrollments.CompletedCourseIDs(ctx, studentID)
	if err != nil {
		return nil, err
	}
	overrides, err := repos.Overrides.ListForStudent(ctx, studentID, prereqs)
	if err != nil {
		return nil, err
	}

	for _, p := range prereqs {
		switch {
		case completed[p]:
			continue
		case overrides[p] != nil:
			check.Overridden = append(check.Overridden, p)
		default:
			check.Missing = append(check.Missing, p)
		}
	}
	check.Met = len(check.Missing) == 0
	return check, nil
}

// offeringLabel names an offering for humans, e.g. "CS101-A"
func offeringLabel(o *models.ClassOffering) string {
	if o.Course != nil {
		return o.Course.Code + "-" + o.Section
	}
	return fmt.Sprintf("offering %d", o.ID)
}

// activeSchedule returns the meeting times of the student's active
// enrollments in a term, in enrollment order
func activeSchedule(ctx context.Context, repos *repositories.Repositories, studentID, termID int64) ([]schedule.OfferingSlots, error) {
	active, err := repos.Enrollments.ListActiveByStudentTerm(ctx, studentID, termID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(active))
	for _, e := range active {
		ids = append(ids, e.ClassOfferingID)
	}
	offerings, err := repos.Offerings.GetOfferingsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]schedule.OfferingSlots, 0, len(ids))
	for _, id := range ids {
		o, ok := offerings[id]
		if !ok {
			continue
		}
		out = append(out, schedule.OfferingSlots{ClassOfferingID: id, Label: offeringLabel(o), Slots: o.Slots})
	}
	return out, nil
}

// conflictsFor compares a candidate offering with an existing schedule,
// ignoring the candidate itself
func conflictsFor(candidate *models.ClassOffering, existing []schedule.OfferingSlots) schedule.Result {
	others := make([]schedule.OfferingSlots, 0, len(existing))
	for _, e := range existing {
		if e.ClassOfferingID != candidate.ID {
			others = append(others, e)
		}
	}
	return schedule.HasConflict(candidate.Slots, others)
}

// detectConflicts checks a candidate offering against the student's active
// enrollments in the candidate's term
func detectConflicts(ctx context.Context, repos *repositories.Repositories, studentID int64, candidate *models.ClassOffering) (schedule.Result, error) {
	existing, err := activeSchedule(ctx, repos, studentID, candidate.TermID)
	if err != nil {
		return schedule.Result{}, err
	}
	return conflictsFor(candidate, existing), nil
}
