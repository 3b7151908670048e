package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/yigit/registrar/internal/db"
)

// NewRepositories initializes all repositories over one connection or transaction
func NewRepositories(q db.DBTX) *Repositories {
	return &Repositories{
		Students:    NewStudentRepository(q),
		Terms:       NewTermRepository(q),
		Courses:     NewCourseRepository(q),
		Offerings:   NewOfferingRepository(q),
		Enrollments: NewEnrollmentRepository(q),
		Overrides:   NewOverrideRepository(q),
		Holds:       NewHoldRepository(q),
		Audit:       NewAuditRepository(q),
	}
}

// PostgresStore is the Store backed by PostgreSQL. Transactions run at
// SERIALIZABLE isolation and are replayed on serialization failures.
type PostgresStore struct {
	db         *db.PostgresDB
	maxRetries int
	repos      *Repositories
}

// NewPostgresStore creates a store over the pool
func NewPostgresStore(pg *db.PostgresDB, maxRetries int) *PostgresStore {
	return &PostgresStore{
		db:         pg,
		maxRetries: maxRetries,
		repos:      NewRepositories(pg.Pool),
	}
}

// Repos returns pool-backed repositories
func (s *PostgresStore) Repos() *Repositories {
	return s.repos
}

// WithTransaction runs fn in a serializable transaction
func (s *PostgresStore) WithTransaction(ctx context.Context, fn TxFn) error {
	return s.db.WithSerializableTransaction(ctx, s.maxRetries, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, NewRepositories(tx))
	})
}

// Ping checks the connection pool
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Pool.Ping(ctx)
}

var _ Store = (*PostgresStore)(nil)
