package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/registrar/internal/app/models"
	"github.com/yigit/registrar/internal/db"
)

// TermRepository handles term database operations
type TermRepository struct {
	db db.DBTX
	sb squirrel.StatementBuilderType
}

// NewTermRepository creates a new TermRepository
func NewTermRepository(q db.DBTX) *TermRepository {
	return &TermRepository{db: q, sb: psql}
}

// GetTermByID retrieves a term by ID
func (r *TermRepository) GetTermByID(ctx context.Context, id int64) (*models.Term, error) {
	sql, args, err := r.sb.Select("id", "name", "start_date", "end_date", "is_current",
		"registration_opens_at", "registration_closes_at").
		From("terms").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get term query: %w", err)
	}

	t := &models.Term{}
	err = r.db.QueryRow(ctx, sql, args...).Scan(&t.ID, &t.Name, &t.StartDate, &t.EndDate, &t.IsCurrent,
		&t.RegistrationOpensAt, &t.RegistrationClosesAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("term %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("error getting term by ID: %w", err)
	}
	return t, nil
}
