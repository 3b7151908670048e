package repositories

import (
	"context"
	"time"

	"github.com/yigit/registrar/internal/app/models"
	"github.com/yigit/registrar/internal/app/models/dto"
	"github.com/yigit/registrar/internal/pkg/apperrors"
)

// ErrNotFound is returned by point reads that match no row
var ErrNotFound = apperrors.ErrResourceNotFound

// StudentStore reads students
type StudentStore interface {
	GetStudentByID(ctx context.Context, id int64) (*models.Student, error)
}

// TermStore reads terms
type TermStore interface {
	GetTermByID(ctx context.Context, id int64) (*models.Term, error)
}

// CourseUsages counts the rows that keep a course from being deleted
type CourseUsages struct {
	Curriculums int `json:"curriculums"`
	Offerings   int `json:"offerings"`
}

// InUse reports whether anything still references the course
func (u CourseUsages) InUse() bool {
	return u.Curriculums > 0 || u.Offerings > 0
}

// CourseStore reads courses and maintains the prerequisite edges
type CourseStore interface {
	// GetCourseByID returns the course even when soft-deleted.
	GetCourseByID(ctx context.Context, id int64) (*models.Course, error)
	GetCoursesByIDs(ctx context.Context, ids []int64) (map[int64]*models.Course, error)
	// PrerequisiteIDs returns the immediate prerequisites of courseID in id
	// order, skipping soft-deleted courses.
	PrerequisiteIDs(ctx context.Context, courseID int64) ([]int64, error)
	PrerequisiteExists(ctx context.Context, courseID, prerequisiteID int64) (bool, error)
	AddPrerequisite(ctx context.Context, courseID, prerequisiteID int64) (*models.PrerequisiteEdge, error)
	// RemovePrerequisite reports whether an edge was removed.
	RemovePrerequisite(ctx context.Context, courseID, prerequisiteID int64) (bool, error)
	// LockPrerequisiteGraph serializes edge insertions until the surrounding
	// transaction ends.
	LockPrerequisiteGraph(ctx context.Context) error
	CountCourseUsages(ctx context.Context, courseID int64) (CourseUsages, error)
	SoftDeleteCourse(ctx context.Context, courseID int64, at time.Time) error
}

// OfferingListItem is one row of a filtered offering list
type OfferingListItem struct {
	Offering *models.ClassOffering
	Enrolled int
}

// OfferingStore reads class offerings with their slots and course
type OfferingStore interface {
	GetOfferingByID(ctx context.Context, id int64) (*models.ClassOffering, error)
	// LockOffering reads the offering and holds a row lock on it until the
	// surrounding transaction ends.
	LockOffering(ctx context.Context, id int64) (*models.ClassOffering, error)
	GetOfferingsByIDs(ctx context.Context, ids []int64) (map[int64]*models.ClassOffering, error)
	ListOfferings(ctx context.Context, filter dto.OfferingFilter) ([]OfferingListItem, int64, error)
}

// EnrollmentStore reads and writes enrollments
type EnrollmentStore interface {
	// CountActive counts REGISTERED enrollments of an offering.
	CountActive(ctx context.Context, offeringID int64) (int, error)
	// FindActive returns the non-DROPPED enrollment of the student in the offering.
	FindActive(ctx context.Context, studentID, offeringID int64) (*models.Enrollment, error)
	// ListActiveByStudentTerm returns the student's REGISTERED enrollments in a term.
	ListActiveByStudentTerm(ctx context.Context, studentID, termID int64) ([]*models.Enrollment, error)
	CompletedCourseIDs(ctx context.Context, studentID int64) (map[int64]bool, error)
	Create(ctx context.Context, e *models.Enrollment) error
	MarkDropped(ctx context.Context, id int64, at time.Time, reason *string) error
}

// OverrideStore reads and upserts prerequisite overrides
type OverrideStore interface {
	ListForStudent(ctx context.Context, studentID int64, courseIDs []int64) (map[int64]*models.PrerequisiteOverride, error)
	// Upsert replaces any stored override with the same (student, course) key.
	Upsert(ctx context.Context, o *models.PrerequisiteOverride) error
}

// HoldStore reads student holds
type HoldStore interface {
	ActiveRegistrationHolds(ctx context.Context, studentID int64) ([]*models.StudentHold, error)
}

// AuditStore appends audit records
type AuditStore interface {
	Insert(ctx context.Context, entry *models.AuditLog) error
}

// Repositories holds all the repository instances bound to one connection or
// transaction
type Repositories struct {
	Students    StudentStore
	Terms       TermStore
	Courses     CourseStore
	Offerings   OfferingStore
	Enrollments EnrollmentStore
	Overrides   OverrideStore
	Holds       HoldStore
	Audit       AuditStore
}

// TxFn runs against repositories bound to a single transaction
type TxFn func(ctx context.Context, repos *Repositories) error

// Store is the persistence boundary of the engine
type Store interface {
	// Repos returns repositories outside of any transaction.
	Repos() *Repositories
	// WithTransaction runs fn atomically. Nothing fn wrote is visible to
	// others unless it returns nil. fn may be replayed and must not keep
	// side effects outside the store.
	WithTransaction(ctx context.Context, fn TxFn) error
	// Ping reports whether the backing storage is reachable.
	Ping(ctx context.Context) error
}
