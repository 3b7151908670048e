package memory

import (
	"time"

	"github.com/yigit/registrar/internal/app/models"
)

// The helpers below load reference data that the engine only reads. They
// assign IDs when the given ID is zero and return the stored values.

func (s *Store) mutate(fn func(d *data)) {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.data)
}

func (d *data) assign(id int64) int64 {
	if id == 0 {
		return d.id()
	}
	if id > d.nextID {
		d.nextID = id
	}
	return id
}

// AddStudent stores a student
func (s *Store) AddStudent(st models.Student) models.Student {
	s.mutate(func(d *data) {
		st.ID = d.assign(st.ID)
		d.students[st.ID] = copyOf(&st)
	})
	return st
}

// AddTerm stores a term
func (s *Store) AddTerm(t models.Term) models.Term {
	s.mutate(func(d *data) {
		t.ID = d.assign(t.ID)
		d.terms[t.ID] = copyOf(&t)
	})
	return t
}

// AddCourse stores a course
func (s *Store) AddCourse(c models.Course) models.Course {
	s.mutate(func(d *data) {
		c.ID = d.assign(c.ID)
		d.courses[c.ID] = copyCourse(&c)
	})
	return c
}

// LinkPrerequisite stores an edge without any graph checks
func (s *Store) LinkPrerequisite(courseID, prerequisiteID int64) {
	s.mutate(func(d *data) {
		if d.edges[courseID] == nil {
			d.edges[courseID] = map[int64]time.Time{}
		}
		d.edges[courseID][prerequisiteID] = s.now()
	})
}

// AddCurriculumUsage records that a curriculum lists the course
func (s *Store) AddCurriculumUsage(courseID int64) {
	s.mutate(func(d *data) { d.curriculum[courseID]++ })
}

// AddOffering stores an offering with its slots
func (s *Store) AddOffering(o models.ClassOffering) models.ClassOffering {
	s.mutate(func(d *data) {
		o.ID = d.assign(o.ID)
		if o.Status == "" {
			o.Status = models.OfferingOpen
		}
		slots := make([]models.ScheduleSlot, len(o.Slots))
		for i, sl := range o.Slots {
			sl.ID = d.assign(sl.ID)
			sl.ClassOfferingID = o.ID
			slots[i] = sl
		}
		o.Slots = slots
		o.Course = nil
		d.offerings[o.ID] = copyOffering(&o)
	})
	return o
}

// AddEnrollment stores an enrollment as given, e.g. COMPLETED history
func (s *Store) AddEnrollment(e models.Enrollment) models.Enrollment {
	s.mutate(func(d *data) {
		e.ID = d.assign(e.ID)
		if e.CreatedAt.IsZero() {
			e.CreatedAt = s.now()
		}
		d.enrollments[e.ID] = copyEnrollment(&e)
	})
	return e
}

// CompleteCourse records that the student completed the course in an
// earlier, closed offering outside of any listed term
func (s *Store) CompleteCourse(studentID, courseID int64) {
	s.mutate(func(d *data) {
		var historic *models.ClassOffering
		for _, o := range d.offerings {
			if o.CourseID == courseID && o.TermID == 0 {
				historic = o
				break
			}
		}
		if historic == nil {
			historic = &models.ClassOffering{ID: d.id(), CourseID: courseID, Section: "HIST", Status: models.OfferingClosed, Slots: []models.ScheduleSlot{}}
			d.offerings[historic.ID] = historic
		}
		id := d.id()
		d.enrollments[id] = &models.Enrollment{
			ID: id, StudentID: studentID, ClassOfferingID: historic.ID,
			Status: models.EnrollmentCompleted, CreatedAt: s.now(),
		}
	})
}

// AddHold stores a student hold
func (s *Store) AddHold(h models.StudentHold) models.StudentHold {
	s.mutate(func(d *data) {
		h.ID = d.assign(h.ID)
		if h.CreatedAt.IsZero() {
			h.CreatedAt = s.now()
		}
		d.holds[h.ID] = copyOf(&h)
	})
	return h
}

// SetOfferingStatus opens or closes an offering
func (s *Store) SetOfferingStatus(offeringID int64, status models.OfferingStatus) {
	s.mutate(func(d *data) {
		if o, ok := d.offerings[offeringID]; ok {
			o.Status = status
		}
	})
}

// Enrollments returns every stored enrollment of an offering in ID order
func (s *Store) Enrollments(offeringID int64) []models.Enrollment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Enrollment
	for _, e := range s.data.enrollments {
		if e.ClassOfferingID == offeringID {
			out = append(out, *copyEnrollment(e))
		}
	}
	sortEnrollments(out)
	return out
}

// Overrides returns the stored overrides of a student
func (s *Store) Overrides(studentID int64) []models.PrerequisiteOverride {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.PrerequisiteOverride
	for k, o := range s.data.overrides {
		if k.studentID == studentID {
			out = append(out, *o)
		}
	}
	return out
}

// PrerequisiteEdgeCount returns the number of stored edges
func (s *Store) PrerequisiteEdgeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, m := range s.data.edges {
		n += len(m)
	}
	return n
}

// AuditLogs returns the recorded audit entries in insertion order
func (s *Store) AuditLogs() []models.AuditLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AuditLog, len(s.data.audit))
	for i, a := range s.data.audit {
		out[i] = *a
	}
	return out
}

// CourseCount returns the number of stored courses, deleted ones included
func (s *Store) CourseCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data.courses)
}
