package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/yigit/registrar/internal/app/models"
	"github.com/yigit/registrar/internal/db"
)

// AuditRepository appends audit log rows
type AuditRepository struct {
	db db.DBTX
	sb squirrel.StatementBuilderType
}

// NewAuditRepository creates a new AuditRepository
func NewAuditRepository(q db.DBTX) *AuditRepository {
	return &AuditRepository{db: q, sb: psql}
}

// Insert stores an audit entry and fills in its ID and CreatedAt
func (r *AuditRepository) Insert(ctx context.Context, entry *models.AuditLog) error {
	sql, args, err := r.sb.Insert("audit_logs").
		Columns("action", "resource", "resource_id", "actor_id", "before_state", "after_state").
		Values(entry.Action, entry.Resource, entry.ResourceID, entry.ActorID, nullJSON(entry.Before), nullJSON(entry.After)).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build audit insert query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return fmt.Errorf("error inserting audit log: %w", err)
	}
	return nil
}

// nullJSON maps an empty document to SQL NULL
func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
