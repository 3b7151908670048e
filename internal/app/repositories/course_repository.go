package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/registrar/internal/app/models"
	"github.com/yigit/registrar/internal/db"
	"github.com/yigit/registrar/internal/pkg/apperrors"
	"github.com/yigit/registrar/internal/pkg/dberrors"
	"github.com/yigit/registrar/internal/pkg/logger"
)

// prerequisiteGraphLockKey is the advisory lock taken by edge insertions
const prerequisiteGraphLockKey int64 = 0x70726571 // "preq"

var courseColumns = []string{"id", "code", "name", "description", "credits", "deleted_at"}

// CourseRepository handles course and prerequisite edge database operations
type CourseRepository struct {
	db db.DBTX
	sb squirrel.StatementBuilderType
}

// NewCourseRepository creates a new CourseRepository
func NewCourseRepository(q db.DBTX) *CourseRepository {
	return &CourseRepository{db: q, sb: psql}
}

func scanCourse(row pgx.Row) (*models.Course, error) {
	c := &models.Course{}
	if err := row.Scan(&c.ID, &c.Code, &c.Name, &c.Description, &c.Credits, &c.DeletedAt); err != nil {
		return nil, err
	}
	return c, nil
}

// GetCourseByID retrieves a course by ID, including soft-deleted ones
func (r *CourseRepository) GetCourseByID(ctx context.Context, id int64) (*models.Course, error) {
	sql, args, err := r.sb.Select(courseColumns...).
		From("courses").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get course query: %w", err)
	}

	c, err := scanCourse(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("course %d: %w", id, ErrNotFound)
		}
		logger.Error().Err(err).Int64("courseID", id).Msg("Error scanning course row")
		return nil, fmt.Errorf("error getting course by ID: %w", err)
	}
	return c, nil
}

// GetCoursesByIDs retrieves the listed courses keyed by ID. Missing IDs are absent from the map.
func (r *CourseRepository) GetCoursesByIDs(ctx context.Context, ids []int64) (map[int64]*models.Course, error) {
	out := make(map[int64]*models.Course, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	sql, args, err := r.sb.Select(courseColumns...).
		From("courses").
		Where(squirrel.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get courses query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying courses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning course row: %w", err)
		}
		out[c.ID] = c
	}
	return out, rows.Err()
}

// PrerequisiteIDs returns the immediate, non-deleted prerequisites of a course
func (r *CourseRepository) PrerequisiteIDs(ctx context.Context, courseID int64) ([]int64, error) {
	sql, args, err := r.sb.Select("cp.prerequisite_id").
		From("course_prerequisites cp").
		Join("courses c ON c.id = cp.prerequisite_id").
		Where(squirrel.Eq{"cp.course_id": courseID, "c.deleted_at": nil}).
		OrderBy("cp.prerequisite_id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build prerequisites query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying prerequisites: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning prerequisite row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PrerequisiteExists reports whether the edge course -> prerequisite is stored
func (r *CourseRepository) PrerequisiteExists(ctx context.Context, courseID, prerequisiteID int64) (bool, error) {
	sql, args, err := r.sb.Select("1").
		Prefix("SELECT EXISTS (").
		From("course_prerequisites").
		Where(squirrel.Eq{"course_id": courseID, "prerequisite_id": prerequisiteID}).
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build prerequisite exists query: %w", err)
	}

	var exists bool
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking prerequisite edge: %w", err)
	}
	return exists, nil
}

// AddPrerequisite stores the edge course -> prerequisite
func (r *CourseRepository) AddPrerequisite(ctx context.Context, courseID, prerequisiteID int64) (*models.PrerequisiteEdge, error) {
	sql, args, err := r.sb.Insert("course_prerequisites").
		Columns("course_id", "prerequisite_id").
		Values(courseID, prerequisiteID).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build add prerequisite query: %w", err)
	}

	edge := &models.PrerequisiteEdge{CourseID: courseID, PrerequisiteID: prerequisiteID}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&edge.CreatedAt); err != nil {
		switch {
		case dberrors.IsDuplicateConstraintError(err, ""):
			return nil, apperrors.NewConflictError("prerequisite already exists")
		case dberrors.IsForeignKeyViolation(err):
			return nil, apperrors.NewResourceNotFoundError("course not found")
		}
		return nil, fmt.Errorf("error adding prerequisite: %w", err)
	}
	return edge, nil
}

// RemovePrerequisite deletes the edge course -> prerequisite
func (r *CourseRepository) RemovePrerequisite(ctx context.Context, courseID, prerequisiteID int64) (bool, error) {
	sql, args, err := r.sb.Delete("course_prerequisites").
		Where(squirrel.Eq{"course_id": courseID, "prerequisite_id": prerequisiteID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build remove prerequisite query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("error removing prerequisite: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// LockPrerequisiteGraph takes a transaction-scoped advisory lock
func (r *CourseRepository) LockPrerequisiteGraph(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", prerequisiteGraphLockKey); err != nil {
		return fmt.Errorf("error locking prerequisite graph: %w", err)
	}
	return nil
}

// CountCourseUsages counts curriculum entries and offerings of a course
func (r *CourseRepository) CountCourseUsages(ctx context.Context, courseID int64) (CourseUsages, error) {
	var u CourseUsages
	err := r.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM curriculum_courses WHERE course_id = $1),
			(SELECT COUNT(*) FROM class_offerings WHERE course_id = $1)`, courseID).
		Scan(&u.Curriculums, &u.Offerings)
	if err != nil {
		return u, fmt.Errorf("error counting course usages: %w", err)
	}
	return u, nil
}

// SoftDeleteCourse marks a course deleted
func (r *CourseRepository) SoftDeleteCourse(ctx context.Context, courseID int64, at time.Time) error {
	sql, args, err := r.sb.Update("courses").
		Set("deleted_at", at).
		Where(squirrel.Eq{"id": courseID, "deleted_at": nil}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build soft delete course query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error deleting course: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("course %d: %w", courseID, ErrNotFound)
	}
	return nil
}
