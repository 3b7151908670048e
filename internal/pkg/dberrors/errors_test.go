package dberrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestClassification(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505", ConstraintName: "uq_enrollments_active"}
	serialization := fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40001"})
	deadlock := &pgconn.PgError{Code: "40P01"}

	assert.True(t, IsDuplicateConstraintError(unique, "uq_enrollments_active"))
	assert.True(t, IsDuplicateConstraintError(unique, ""))
	assert.False(t, IsDuplicateConstraintError(unique, "other"))

	assert.True(t, IsRetryable(serialization))
	assert.True(t, IsRetryable(deadlock))
	assert.False(t, IsRetryable(unique))
	assert.False(t, IsRetryable(errors.New("plain")))

	assert.True(t, IsForeignKeyViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, IsExclusionViolation(&pgconn.PgError{Code: "23P01"}))
}
