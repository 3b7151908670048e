package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/registrar/internal/app/models"
	"github.com/yigit/registrar/internal/db"
	"github.com/yigit/registrar/internal/pkg/logger"
)

// StudentRepository handles student database operations
type StudentRepository struct {
	db db.DBTX
	sb squirrel.StatementBuilderType
}

// NewStudentRepository creates a new StudentRepository
func NewStudentRepository(q db.DBTX) *StudentRepository {
	return &StudentRepository{db: q, sb: psql}
}

// GetStudentByID retrieves a student by ID
func (r *StudentRepository) GetStudentByID(ctx context.Context, id int64) (*models.Student, error) {
	sql, args, err := r.sb.Select("id", "identifier", "first_name", "last_name").
		From("students").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get student query: %w", err)
	}

	s := &models.Student{}
	err = r.db.QueryRow(ctx, sql, args...).Scan(&s.ID, &s.Identifier, &s.FirstName, &s.LastName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("student %d: %w", id, ErrNotFound)
		}
		logger.Error().Err(err).Int64("studentID", id).Msg("Error scanning student row")
		return nil, fmt.Errorf("error getting student by ID: %w", err)
	}
	return s, nil
}
