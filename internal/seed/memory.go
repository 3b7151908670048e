package seed

import (
	"context"

	"github.com/yigit/registrar/internal/app/models"
	"github.com/yigit/registrar/internal/app/repositories/memory"
)

// MemoryLoader seeds the in-memory store
type MemoryLoader struct {
	store *memory.Store
}

// NewMemoryLoader creates a loader over store
func NewMemoryLoader(store *memory.Store) *MemoryLoader {
	return &MemoryLoader{store: store}
}

func (l *MemoryLoader) Seeded(ctx context.Context) (bool, error) {
	return l.store.CourseCount() > 0, ctx.Err()
}

func (l *MemoryLoader) AddTerm(_ context.Context, t models.Term) (int64, error) {
	return l.store.AddTerm(t).ID, nil
}

func (l *MemoryLoader) AddCourse(_ context.Context, c models.Course) (int64, error) {
	return l.store.AddCourse(c).ID, nil
}

func (l *MemoryLoader) LinkPrerequisite(_ context.Context, courseID, prerequisiteID int64) error {
	l.store.LinkPrerequisite(courseID, prerequisiteID)
	return nil
}

func (l *MemoryLoader) AddCurriculumCourse(_ context.Context, _ string, courseID int64) error {
	l.store.AddCurriculumUsage(courseID)
	return nil
}

func (l *MemoryLoader) AddOffering(_ context.Context, o models.ClassOffering) (int64, error) {
	return l.store.AddOffering(o).ID, nil
}

func (l *MemoryLoader) AddStudent(_ context.Context, s models.Student) (int64, error) {
	return l.store.AddStudent(s).ID, nil
}

func (l *MemoryLoader) AddEnrollment(_ context.Context, e models.Enrollment) (int64, error) {
	return l.store.AddEnrollment(e).ID, nil
}

func (l *MemoryLoader) AddHold(_ context.Context, h models.StudentHold) (int64, error) {
	return l.store.AddHold(h).ID, nil
}

var _ Loader = (*MemoryLoader)(nil)
