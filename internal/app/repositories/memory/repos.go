package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yigit/registrar/internal/app/models"
	"github.com/yigit/registrar/internal/app/models/dto"
	"github.com/yigit/registrar/internal/app/repositories"
	"github.com/yigit/registrar/internal/pkg/apperrors"
	"github.com/yigit/registrar/internal/pkg/helpers"
)

type studentRepo struct{ v *view }

func (r *studentRepo) GetStudentByID(_ context.Context, id int64) (*models.Student, error) {
	var out *models.Student
	r.v.read(func(d *data) {
		if s, ok := d.students[id]; ok {
			out = copyOf(s)
		}
	})
	if out == nil {
		return nil, fmt.Errorf("student %d: %w", id, repositories.ErrNotFound)
	}
	return out, nil
}

type termRepo struct{ v *view }

func (r *termRepo) GetTermByID(_ context.Context, id int64) (*models.Term, error) {
	var out *models.Term
	r.v.read(func(d *data) {
		if t, ok := d.terms[id]; ok {
			out = copyOf(t)
		}
	})
	if out == nil {
		return nil, fmt.Errorf("term %d: %w", id, repositories.ErrNotFound)
	}
	return out, nil
}

type courseRepo struct{ v *view }

func (r *courseRepo) GetCourseByID(_ context.Context, id int64) (*models.Course, error) {
	var out *models.Course
	r.v.read(func(d *data) {
		if c, ok := d.courses[id]; ok {
			out = copyCourse(c)
		}
	})
	if out == nil {
		return nil, fmt.Errorf("course %d: %w", id, repositories.ErrNotFound)
	}
	return out, nil
}

func (r *courseRepo) GetCoursesByIDs(_ context.Context, ids []int64) (map[int64]*models.Course, error) {
	out := make(map[int64]*models.Course, len(ids))
	r.v.read(func(d *data) {
		for _, id := range ids {
			if c, ok := d.courses[id]; ok {
				out[id] = copyCourse(c)
			}
		}
	})
	return out, nil
}

func (r *courseRepo) PrerequisiteIDs(_ context.Context, courseID int64) ([]int64, error) {
	ids := []int64{}
	r.v.read(func(d *data) {
		for p := range d.edges[courseID] {
			if c, ok := d.courses[p]; ok && !c.IsDeleted() {
				ids = append(ids, p)
			}
		}
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *courseRepo) PrerequisiteExists(_ context.Context, courseID, prerequisiteID int64) (bool, error) {
	var ok bool
	r.v.read(func(d *data) {
		_, ok = d.edges[courseID][prerequisiteID]
	})
	return ok, nil
}

func (r *courseRepo) AddPrerequisite(_ context.Context, courseID, prerequisiteID int64) (*models.PrerequisiteEdge, error) {
	edge := &models.PrerequisiteEdge{CourseID: courseID, PrerequisiteID: prerequisiteID, CreatedAt: r.v.now()}
	err := r.v.write(func(d *data) error {
		if d.courses[courseID] == nil || d.courses[prerequisiteID] == nil {
			return apperrors.NewResourceNotFoundError("course not found")
		}
		if _, ok := d.edges[courseID][prerequisiteID]; ok {
			return apperrors.NewConflictError("prerequisite already exists")
		}
		if d.edges[courseID] == nil {
			d.edges[courseID] = map[int64]time.Time{}
		}
		d.edges[courseID][prerequisiteID] = edge.CreatedAt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return edge, nil
}

func (r *courseRepo) RemovePrerequisite(_ context.Context, courseID, prerequisiteID int64) (bool, error) {
	var removed bool
	err := r.v.write(func(d *data) error {
		if _, ok := d.edges[courseID][prerequisiteID]; ok {
			delete(d.edges[courseID], prerequisiteID)
			removed = true
		}
		return nil
	})
	return removed, err
}

// LockPrerequisiteGraph is a no-op; transactions are already serialized.
func (r *courseRepo) LockPrerequisiteGraph(context.Context) error {
	return nil
}

func (r *courseRepo) CountCourseUsages(_ context.Context, courseID int64) (repositories.CourseUsages, error) {
	var u repositories.CourseUsages
	r.v.read(func(d *data) {
		u.Curriculums = d.curriculum[courseID]
		for _, o := range d.offerings {
			if o.CourseID == courseID {
				u.Offerings++
			}
		}
	})
	return u, nil
}

func (r *courseRepo) SoftDeleteCourse(_ context.Context, courseID int64, at time.Time) error {
	return r.v.write(func(d *data) error {
		c, ok := d.courses[courseID]
		if !ok || c.IsDeleted() {
			return fmt.Errorf("course %d: %w", courseID, repositories.ErrNotFound)
		}
		c.DeletedAt = &at
		return nil
	})
}

type offeringRepo struct{ v *view }

func (r *offeringRepo) GetOfferingByID(_ context.Context, id int64) (*models.ClassOffering, error) {
	var out *models.ClassOffering
	r.v.read(func(d *data) {
		out, _ = d.offering(id)
	})
	if out == nil {
		return nil, fmt.Errorf("class offering %d: %w", id, repositories.ErrNotFound)
	}
	return out, nil
}

// LockOffering reads the offering; the transaction already holds the store lock.
func (r *offeringRepo) LockOffering(ctx context.Context, id int64) (*models.ClassOffering, error) {
	return r.GetOfferingByID(ctx, id)
}

func (r *offeringRepo) GetOfferingsByIDs(_ context.Context, ids []int64) (map[int64]*models.ClassOffering, error) {
	out := make(map[int64]*models.ClassOffering, len(ids))
	r.v.read(func(d *data) {
		for _, id := range ids {
			if o, ok := d.offering(id); ok {
				out[id] = o
			}
		}
	})
	return out, nil
}

func matchesFilter(d *data, o *models.ClassOffering, f dto.OfferingFilter) bool {
	if o.TermID != f.TermID {
		return false
	}
	if c := d.courses[o.CourseID]; c == nil || c.IsDeleted() {
		return false
	}
	if f.CourseID != nil && o.CourseID != *f.CourseID {
		return false
	}
	if f.DayOfWeek != nil {
		onDay := false
		for _, s := range o.Slots {
			if s.DayOfWeek == *f.DayOfWeek {
				onDay = true
				break
			}
		}
		if !onDay {
			return false
		}
	}
	if f.OpenOnly() && !o.IsOpen() {
		return false
	}
	if f.OnlyWithSeats && d.activeCount(o.ID) >= o.Capacity {
		return false
	}
	if f.ExcludeStudentID != nil {
		for _, e := range d.enrollments {
			if e.ClassOfferingID == o.ID && e.StudentID == *f.ExcludeStudentID && e.Status != models.EnrollmentDropped {
				return false
			}
		}
	}
	return true
}

func (r *offeringRepo) ListOfferings(_ context.Context, f dto.OfferingFilter) ([]repositories.OfferingListItem, int64, error) {
	var all []repositories.OfferingListItem
	r.v.read(func(d *data) {
		for id, o := range d.offerings {
			if matchesFilter(d, o, f) {
				out, _ := d.offering(id)
				all = append(all, repositories.OfferingListItem{Offering: out, Enrolled: d.activeCount(id)})
			}
		}
	})

	sort.Slice(all, func(i, j int) bool {
		a, b := all[i].Offering, all[j].Offering
		if c := strings.Compare(a.Course.Code, b.Course.Code); c != 0 {
			return c < 0
		}
		if a.Section != b.Section {
			return a.Section < b.Section
		}
		return a.ID < b.ID
	})

	start, end := helpers.CalculateSliceIndices(f.Page, f.Size, len(all))
	page := append([]repositories.OfferingListItem{}, all[start:end]...)
	return page, int64(len(all)), nil
}

type enrollmentRepo struct{ v *view }

func (r *enrollmentRepo) CountActive(_ context.Context, offeringID int64) (int, error) {
	var n int
	r.v.read(func(d *data) { n = d.activeCount(offeringID) })
	return n, nil
}

func (r *enrollmentRepo) FindActive(_ context.Context, studentID, offeringID int64) (*models.Enrollment, error) {
	var out *models.Enrollment
	r.v.read(func(d *data) {
		for _, e := range d.enrollments {
			if e.StudentID == studentID && e.ClassOfferingID == offeringID && e.Status != models.EnrollmentDropped {
				if out == nil || e.ID > out.ID {
					out = copyEnrollment(e)
				}
			}
		}
	})
	if out == nil {
		return nil, fmt.Errorf("enrollment of student %d in offering %d: %w", studentID, offeringID, repositories.ErrNotFound)
	}
	return out, nil
}

func (r *enrollmentRepo) ListActiveByStudentTerm(_ context.Context, studentID, termID int64) ([]*models.Enrollment, error) {
	out := []*models.Enrollment{}
	r.v.read(func(d *data) {
		for _, e := range d.enrollments {
			if e.StudentID == studentID && e.TermID == termID && e.IsActive() {
				out = append(out, copyEnrollment(e))
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *enrollmentRepo) CompletedCourseIDs(_ context.Context, studentID int64) (map[int64]bool, error) {
	done := map[int64]bool{}
	r.v.read(func(d *data) {
		for _, e := range d.enrollments {
			if e.StudentID != studentID || e.Status != models.EnrollmentCompleted {
				continue
			}
			if o, ok := d.offerings[e.ClassOfferingID]; ok {
				done[o.CourseID] = true
			}
		}
	})
	return done, nil
}

func (r *enrollmentRepo) Create(_ context.Context, e *models.Enrollment) error {
	return r.v.write(func(d *data) error {
		if d.students[e.StudentID] == nil || d.offerings[e.ClassOfferingID] == nil {
			return apperrors.NewResourceNotFoundError("student or class offering not found")
		}
		for _, x := range d.enrollments {
			if x.StudentID == e.StudentID && x.ClassOfferingID == e.ClassOfferingID && x.Status != models.EnrollmentDropped {
				return apperrors.NewConflictError("student is already enrolled in this class offering")
			}
		}
		e.ID = d.id()
		e.CreatedAt = r.v.now()
		d.enrollments[e.ID] = copyEnrollment(e)
		return nil
	})
}

func (r *enrollmentRepo) MarkDropped(_ context.Context, id int64, at time.Time, reason *string) error {
	return r.v.write(func(d *data) error {
		e, ok := d.enrollments[id]
		if !ok || !e.IsActive() {
			return fmt.Errorf("active enrollment %d: %w", id, repositories.ErrNotFound)
		}
		e.Status = models.EnrollmentDropped
		e.DroppedAt = &at
		if reason != nil {
			why := *reason
			e.DropReason = &why
		}
		return nil
	})
}

type overrideRepo struct{ v *view }

func (r *overrideRepo) ListForStudent(_ context.Context, studentID int64, courseIDs []int64) (map[int64]*models.PrerequisiteOverride, error) {
	out := make(map[int64]*models.PrerequisiteOverride, len(courseIDs))
	r.v.read(func(d *data) {
		for _, id := range courseIDs {
			if o, ok := d.overrides[overrideKey{studentID, id}]; ok {
				out[id] = copyOf(o)
			}
		}
	})
	return out, nil
}

func (r *overrideRepo) Upsert(_ context.Context, o *models.PrerequisiteOverride) error {
	now := r.v.now()
	return r.v.write(func(d *data) error {
		key := overrideKey{o.StudentID, o.CourseID}
		if prev, ok := d.overrides[key]; ok {
			o.CreatedAt = prev.CreatedAt
		} else {
			o.CreatedAt = now
		}
		o.UpdatedAt = now
		d.overrides[key] = copyOf(o)
		return nil
	})
}

type holdRepo struct{ v *view }

func (r *holdRepo) ActiveRegistrationHolds(_ context.Context, studentID int64) ([]*models.StudentHold, error) {
	out := []*models.StudentHold{}
	r.v.read(func(d *data) {
		for _, h := range d.holds {
			if h.StudentID == studentID && h.BlocksRegistration && h.ResolvedAt == nil {
				out = append(out, copyOf(h))
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type auditRepo struct{ v *view }

func (r *auditRepo) Insert(_ context.Context, entry *models.AuditLog) error {
	return r.v.write(func(d *data) error {
		entry.ID = d.id()
		entry.CreatedAt = r.v.now()
		d.audit = append(d.audit, copyOf(entry))
		return nil
	})
}
