package seed

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/yigit/registrar/internal/app/models"
	"github.com/yigit/registrar/internal/db"
)

// PostgresLoader seeds PostgreSQL. Run it inside one transaction so a failed
// seed leaves no partial catalog.
type PostgresLoader struct {
	db db.DBTX
	sb squirrel.StatementBuilderType
}

// NewPostgresLoader creates a loader over a connection or transaction
func NewPostgresLoader(q db.DBTX) *PostgresLoader {
	return &PostgresLoader{db: q, sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)}
}

func (l *PostgresLoader) insertReturningID(ctx context.Context, b squirrel.InsertBuilder) (int64, error) {
	query, args, err := b.Suffix("RETURNING id").ToSql()
	if err != nil {
		return 0, err
	}
	var id int64
	err = l.db.QueryRow(ctx, query, args...).Scan(&id)
	return id, err
}

func (l *PostgresLoader) exec(ctx context.Context, b squirrel.InsertBuilder) error {
	query, args, err := b.ToSql()
	if err != nil {
		return err
	}
	_, err = l.db.Exec(ctx, query, args...)
	return err
}

func (l *PostgresLoader) Seeded(ctx context.Context) (bool, error) {
	var exists bool
	err := l.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM courses)").Scan(&exists)
	return exists, err
}

func (l *PostgresLoader) AddTerm(ctx context.Context, t models.Term) (int64, error) {
	return l.insertReturningID(ctx, l.sb.Insert("terms").
		Columns("name", "start_date", "end_date", "is_current", "registration_opens_at", "registration_closes_at").
		Values(t.Name, t.StartDate, t.EndDate, t.IsCurrent, t.RegistrationOpensAt, t.RegistrationClosesAt))
}

func (l *PostgresLoader) AddCourse(ctx context.Context, c models.Course) (int64, error) {
	return l.insertReturningID(ctx, l.sb.Insert("courses").
		Columns("code", "name", "description", "credits").
		Values(c.Code, c.Name, c.Description, c.Credits))
}

func (l *PostgresLoader) LinkPrerequisite(ctx context.Context, courseID, prerequisiteID int64) error {
	return l.exec(ctx, l.sb.Insert("course_prerequisites").
		Columns("course_id", "prerequisite_id").
		Values(courseID, prerequisiteID))
}

func (l *PostgresLoader) AddCurriculumCourse(ctx context.Context, curriculum string, courseID int64) error {
	return l.exec(ctx, l.sb.Insert("curriculum_courses").
		Columns("curriculum", "course_id").
		Values(curriculum, courseID))
}

func (l *PostgresLoader) AddOffering(ctx context.Context, o models.ClassOffering) (int64, error) {
	id, err := l.insertReturningID(ctx, l.sb.Insert("class_offerings").
		Columns("course_id", "term_id", "section", "capacity", "status").
		Values(o.CourseID, o.TermID, o.Section, o.Capacity, string(o.Status)))
	if err != nil {
		return 0, err
	}
	if len(o.Slots) == 0 {
		return id, nil
	}

	slots := l.sb.Insert("schedule_slots").Columns("class_offering_id", "day_of_week", "start_minute", "end_minute", "room")
	for _, sl := range o.Slots {
		slots = slots.Values(id, sl.DayOfWeek, sl.StartMinute, sl.EndMinute, sl.Room)
	}
	return id, l.exec(ctx, slots)
}

func (l *PostgresLoader) AddStudent(ctx context.Context, s models.Student) (int64, error) {
	return l.insertReturningID(ctx, l.sb.Insert("students").
		Columns("identifier", "first_name", "last_name").
		Values(s.Identifier, s.FirstName, s.LastName))
}

func (l *PostgresLoader) AddEnrollment(ctx context.Context, e models.Enrollment) (int64, error) {
	return l.insertReturningID(ctx, l.sb.Insert("enrollments").
		Columns("student_id", "class_offering_id", "term_id", "status", "created_at").
		Values(e.StudentID, e.ClassOfferingID, e.TermID, string(e.Status), e.CreatedAt))
}

func (l *PostgresLoader) AddHold(ctx context.Context, h models.StudentHold) (int64, error) {
	return l.insertReturningID(ctx, l.sb.Insert("student_holds").
		Columns("student_id", "hold_type", "blocks_registration", "created_at").
		Values(h.StudentID, h.HoldType, h.BlocksRegistration, h.CreatedAt))
}

var _ Loader = (*PostgresLoader)(nil)
