package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/yigit/registrar/internal/app/models"
	"github.com/yigit/registrar/internal/db"
)

// OverrideRepository handles prerequisite override database operations
type OverrideRepository struct {
	db db.DBTX
	sb squirrel.StatementBuilderType
}

// NewOverrideRepository creates a new OverrideRepository
func NewOverrideRepository(q db.DBTX) *OverrideRepository {
	return &OverrideRepository{db: q, sb: psql}
}

// ListForStudent returns the student's overrides for the listed courses keyed by course ID
func (r *OverrideRepository) ListForStudent(ctx context.Context, studentID int64, courseIDs []int64) (map[int64]*models.PrerequisiteOverride, error) {
	out := make(map[int64]*models.PrerequisiteOverride, len(courseIDs))
	if len(courseIDs) == 0 {
		return out, nil
	}

	sql, args, err := r.sb.Select("student_id", "course_id", "approver_id", "reason", "created_at", "updated_at").
		From("prerequisite_overrides").
		Where(squirrel.Eq{"student_id": studentID, "course_id": courseIDs}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list overrides query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing overrides: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		o := &models.PrerequisiteOverride{}
		if err := rows.Scan(&o.StudentID, &o.CourseID, &o.ApproverID, &o.Reason, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning override row: %w", err)
		}
		out[o.CourseID] = o
	}
	return out, rows.Err()
}

// Upsert inserts an override or replaces the approver and reason of the stored one
func (r *OverrideRepository) Upsert(ctx context.Context, o *models.PrerequisiteOverride) error {
	sql, args, err := r.sb.Insert("prerequisite_overrides").
		Columns("student_id", "course_id", "approver_id", "reason").
		Values(o.StudentID, o.CourseID, o.ApproverID, o.Reason).
		Suffix(`ON CONFLICT (student_id, course_id) DO UPDATE
			SET approver_id = EXCLUDED.approver_id, reason = EXCLUDED.reason, updated_at = NOW()
			RETURNING created_at, updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build upsert override query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&o.CreatedAt, &o.UpdatedAt); err != nil {
		return fmt.Errorf("error upserting override: %w", err)
	}
	return nil
}
