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

// Enrollment constraint names
const constraintActiveEnrollment = "enrollments_active_uq"

var enrollmentColumns = []string{"id", "student_id", "class_offering_id", "term_id", "status", "created_at", "dropped_at", "drop_reason"}

// EnrollmentRepository handles enrollment database operations
type EnrollmentRepository struct {
	db db.DBTX
	sb squirrel.StatementBuilderType
}

// NewEnrollmentRepository creates a new EnrollmentRepository
func NewEnrollmentRepository(q db.DBTX) *EnrollmentRepository {
	return &EnrollmentRepository{db: q, sb: psql}
}

func scanEnrollment(row pgx.Row) (*models.Enrollment, error) {
	e := &models.Enrollment{}
	if err := row.Scan(&e.ID, &e.StudentID, &e.ClassOfferingID, &e.TermID, &e.Status, &e.CreatedAt, &e.DroppedAt, &e.DropReason); err != nil {
		return nil, err
	}
	return e, nil
}

// CountActive counts REGISTERED enrollments of an offering
func (r *EnrollmentRepository) CountActive(ctx context.Context, offeringID int64) (int, error) {
	sql, args, err := r.sb.Select("COUNT(*)").
		From("enrollments").
		Where(squirrel.Eq{"class_offering_id": offeringID, "status": models.EnrollmentRegistered}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count enrollments query: %w", err)
	}

	var n int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting enrollments: %w", err)
	}
	return n, nil
}

// FindActive returns the non-DROPPED enrollment of a student in an offering
func (r *EnrollmentRepository) FindActive(ctx context.Context, studentID, offeringID int64) (*models.Enrollment, error) {
	sql, args, err := r.sb.Select(enrollmentColumns...).
		From("enrollments").
		Where(squirrel.Eq{"student_id": studentID, "class_offering_id": offeringID}).
		Where(squirrel.NotEq{"status": models.EnrollmentDropped}).
		OrderBy("id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build find enrollment query: %w", err)
	}

	e, err := scanEnrollment(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("enrollment of student %d in offering %d: %w", studentID, offeringID, ErrNotFound)
		}
		return nil, fmt.Errorf("error finding enrollment: %w", err)
	}
	return e, nil
}

// ListActiveByStudentTerm returns the student's REGISTERED enrollments in a term
func (r *EnrollmentRepository) ListActiveByStudentTerm(ctx context.Context, studentID, termID int64) ([]*models.Enrollment, error) {
	sql, args, err := r.sb.Select(enrollmentColumns...).
		From("enrollments").
		Where(squirrel.Eq{"student_id": studentID, "term_id": termID, "status": models.EnrollmentRegistered}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list enrollments query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing enrollments: %w", err)
	}
	defer rows.Close()

	out := []*models.Enrollment{}
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning enrollment row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CompletedCourseIDs returns the set of courses the student completed
func (r *EnrollmentRepository) CompletedCourseIDs(ctx context.Context, studentID int64) (map[int64]bool, error) {
	sql, args, err := r.sb.Select("DISTINCT co.course_id").
		From("enrollments e").
		Join("class_offerings co ON co.id = e.class_offering_id").
		Where(squirrel.Eq{"e.student_id": studentID, "e.status": models.EnrollmentCompleted}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build completed courses query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying completed courses: %w", err)
	}
	defer rows.Close()

	done := map[int64]bool{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning completed course row: %w", err)
		}
		done[id] = true
	}
	return done, rows.Err()
}

// Create inserts an enrollment and fills in its ID and CreatedAt
func (r *EnrollmentRepository) Create(ctx context.Context, e *models.Enrollment) error {
	sql, args, err := r.sb.Insert("enrollments").
		Columns("student_id", "class_offering_id", "term_id", "status").
		Values(e.StudentID, e.ClassOfferingID, e.TermID, e.Status).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create enrollment query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&e.ID, &e.CreatedAt); err != nil {
		if dberrors.IsDuplicateConstraintError(err, constraintActiveEnrollment) {
			return apperrors.NewConflictError("student is already enrolled in this class offering")
		}
		logger.Error().Err(err).Int64("studentID", e.StudentID).Int64("classOfferingID", e.ClassOfferingID).Msg("Error creating enrollment")
		return fmt.Errorf("error creating enrollment: %w", err)
	}
	return nil
}

// MarkDropped moves a REGISTERED enrollment to DROPPED
func (r *EnrollmentRepository) MarkDropped(ctx context.Context, id int64, at time.Time, reason *string) error {
	sql, args, err := r.sb.Update("enrollments").
		Set("status", models.EnrollmentDropped).
		Set("dropped_at", at).
		Set("drop_reason", reason).
		Where(squirrel.Eq{"id": id, "status": models.EnrollmentRegistered}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build drop enrollment query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error dropping enrollment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("active enrollment %d: %w", id, ErrNotFound)
	}
	return nil
}
