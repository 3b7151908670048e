package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/yigit/registrar/internal/app/models"
	"github.com/yigit/registrar/internal/db"
)

// HoldRepository reads student holds
type HoldRepository struct {
	db db.DBTX
	sb squirrel.StatementBuilderType
}

// NewHoldRepository creates a new HoldRepository
func NewHoldRepository(q db.DBTX) *HoldRepository {
	return &HoldRepository{db: q, sb: psql}
}

// ActiveRegistrationHolds returns unresolved holds that block registration
func (r *HoldRepository) ActiveRegistrationHolds(ctx context.Context, studentID int64) ([]*models.StudentHold, error) {
	sql, args, err := r.sb.Select("id", "student_id", "hold_type", "blocks_registration", "created_at", "resolved_at").
		From("student_holds").
		Where(squirrel.Eq{"student_id": studentID, "blocks_registration": true, "resolved_at": nil}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build holds query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying holds: %w", err)
	}
	defer rows.Close()

	holds := []*models.StudentHold{}
	for rows.Next() {
		h := &models.StudentHold{}
		if err := rows.Scan(&h.ID, &h.StudentID, &h.HoldType, &h.BlocksRegistration, &h.CreatedAt, &h.ResolvedAt); err != nil {
			return nil, fmt.Errorf("error scanning hold row: %w", err)
		}
		holds = append(holds, h)
	}
	return holds, rows.Err()
}
