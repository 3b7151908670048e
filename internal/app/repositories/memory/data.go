package memory

import (
	"sort"
	"time"

	"github.com/yigit/registrar/internal/app/models"
)

type overrideKey struct {
	studentID int64
	courseID  int64
}

// data is one committed version of the store. A transaction works on a
// private clone and the clone replaces the committed version on success.
type data struct {
	nextID int64

	students    map[int64]*models.Student
	terms       map[int64]*models.Term
	courses     map[int64]*models.Course
	edges       map[int64]map[int64]time.Time // course -> prerequisite -> created
	curriculum  map[int64]int                 // course -> curriculum entries
	offerings   map[int64]*models.ClassOffering
	enrollments map[int64]*models.Enrollment
	overrides   map[overrideKey]*models.PrerequisiteOverride
	holds       map[int64]*models.StudentHold
	audit       []*models.AuditLog
}

func newData() *data {
	return &data{
		students:    map[int64]*models.Student{},
		terms:       map[int64]*models.Term{},
		courses:     map[int64]*models.Course{},
		edges:       map[int64]map[int64]time.Time{},
		curriculum:  map[int64]int{},
		offerings:   map[int64]*models.ClassOffering{},
		enrollments: map[int64]*models.Enrollment{},
		overrides:   map[overrideKey]*models.PrerequisiteOverride{},
		holds:       map[int64]*models.StudentHold{},
	}
}

func (d *data) id() int64 {
	d.nextID++
	return d.nextID
}

func cloneMap[K comparable, V any](m map[K]*V, cp func(*V) *V) map[K]*V {
	out := make(map[K]*V, len(m))
	for k, v := range m {
		out[k] = cp(v)
	}
	return out
}

func copyOf[V any](v *V) *V {
	c := *v
	return &c
}

func copyCourse(c *models.Course) *models.Course {
	out := *c
	if c.DeletedAt != nil {
		t := *c.DeletedAt
		out.DeletedAt = &t
	}
	return &out
}

func copyOffering(o *models.ClassOffering) *models.ClassOffering {
	out := *o
	out.Slots = append([]models.ScheduleSlot{}, o.Slots...)
	out.Course = nil
	return &out
}

func copyEnrollment(e *models.Enrollment) *models.Enrollment {
	out := *e
	if e.DroppedAt != nil {
		t := *e.DroppedAt
		out.DroppedAt = &t
	}
	if e.DropReason != nil {
		r := *e.DropReason
		out.DropReason = &r
	}
	return &out
}

func (d *data) clone() *data {
	c := &data{
		nextID:      d.nextID,
		students:    cloneMap(d.students, copyOf[models.Student]),
		terms:       cloneMap(d.terms, copyOf[models.Term]),
		courses:     cloneMap(d.courses, copyCourse),
		edges:       make(map[int64]map[int64]time.Time, len(d.edges)),
		curriculum:  make(map[int64]int, len(d.curriculum)),
		offerings:   cloneMap(d.offerings, copyOffering),
		enrollments: cloneMap(d.enrollments, copyEnrollment),
		overrides:   cloneMap(d.overrides, copyOf[models.PrerequisiteOverride]),
		holds:       cloneMap(d.holds, copyOf[models.StudentHold]),
		audit:       append([]*models.AuditLog{}, d.audit...),
	}
	for course, prereqs := range d.edges {
		m := make(map[int64]time.Time, len(prereqs))
		for p, t := range prereqs {
			m[p] = t
		}
		c.edges[course] = m
	}
	for k, v := range d.curriculum {
		c.curriculum[k] = v
	}
	return c
}

// offering returns a detached copy of an offering with its course attached
func (d *data) offering(id int64) (*models.ClassOffering, bool) {
	o, ok := d.offerings[id]
	if !ok {
		return nil, false
	}
	out := copyOffering(o)
	if c, ok := d.courses[o.CourseID]; ok {
		out.Course = copyCourse(c)
	}
	return out, true
}

func (d *data) activeCount(offeringID int64) int {
	n := 0
	for _, e := range d.enrollments {
		if e.ClassOfferingID == offeringID && e.Status == models.EnrollmentRegistered {
			n++
		}
	}
	return n
}

func sortEnrollments(es []models.Enrollment) {
	sort.Slice(es, func(i, j int) bool { return es[i].ID < es[j].ID })
}
