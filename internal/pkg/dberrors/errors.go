package dberrors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL SQLSTATE codes the store reacts to.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeExclusionViolation   = "23P01"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

func pgCode(err error) (string, string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	return "", ""
}

// IsDuplicateConstraintError checks if the error is a PostgreSQL unique violation error
// for a specific constraint. An empty constraint name matches any unique violation.
func IsDuplicateConstraintError(err error, constraintName string) bool {
	code, constraint := pgCode(err)
	return code == codeUniqueViolation && (constraintName == "" || constraint == constraintName)
}

// IsForeignKeyViolation reports a reference to a missing row.
func IsForeignKeyViolation(err error) bool {
	code, _ := pgCode(err)
	return code == codeForeignKeyViolation
}

// IsExclusionViolation reports an exclusion constraint failure.
func IsExclusionViolation(err error) bool {
	code, _ := pgCode(err)
	return code == codeExclusionViolation
}

// IsRetryable reports whether the transaction lost a serialization race and
// may succeed if replayed from the start.
func IsRetryable(err error) bool {
	code, _ := pgCode(err)
	return code == codeSerializationFailure || code == codeDeadlockDetected
}
