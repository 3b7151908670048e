package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/registrar/internal/config"
	"github.com/yigit/registrar/internal/pkg/dberrors"
	"github.com/yigit/registrar/internal/pkg/helpers"
	"github.com/yigit/registrar/internal/pkg/logger"
)

// ErrRetriesExhausted is returned when a serializable transaction kept losing
// serialization races until the retry budget ran out.
var ErrRetriesExhausted = errors.New("transaction retries exhausted")

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresDB database connection structure
type PostgresDB struct {
	Pool *pgxpool.Pool

	// OnRetry, when set, is called once for every replayed transaction.
	OnRetry func()
}

// NewPostgresDB creates a new PostgreSQL connection pool
func NewPostgresDB(cfg *config.Config) (*PostgresDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.GetPostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse pgxpool config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.Database.MaxIdleConns)

	poolConfig.MaxConnLifetime = helpers.ParseDuration(cfg.Database.ConnMaxLifetime, time.Hour)

	poolConfig.BeforeAcquire = func(ctx context.Context, conn *pgx.Conn) bool {
		if err := conn.Ping(ctx); err != nil {
			logger.Warn().Err(err).Msg("Unhealthy connection detected")
			return false
		}
		return true
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to establish database connection: %w", err)
	}

	return &PostgresDB{Pool: pool}, nil
}

// Close closing method
func (db *PostgresDB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// TransactionFn is a function that executes within a transaction
type TransactionFn func(ctx context.Context, tx pgx.Tx) error

// WithTransaction runs a function within a read-committed transaction
func (db *PostgresDB) WithTransaction(ctx context.Context, fn TransactionFn) error {
	return db.runTx(ctx, pgx.TxOptions{}, fn)
}

// WithSerializableTransaction runs fn in a SERIALIZABLE transaction and
// replays it from the start when Postgres reports a serialization failure or
// deadlock. After maxRetries replays it gives up with ErrRetriesExhausted.
// fn must be safe to run more than once.
func (db *PostgresDB) WithSerializableTransaction(ctx context.Context, maxRetries int, fn TransactionFn) error {
	opts := pgx.TxOptions{IsoLevel: pgx.Serializable}

	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = db.runTx(ctx, opts, fn)
		if err == nil || !dberrors.IsRetryable(err) {
			return err
		}
		logger.Debug().Err(err).Int("attempt", attempt+1).Msg("Serialization failure, retrying transaction")
		if db.OnRetry != nil {
			db.OnRetry()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff(attempt)):
		}
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrRetriesExhausted, maxRetries+1, err)
}

func backoff(attempt int) time.Duration {
	d := time.Duration(attempt+1) * 5 * time.Millisecond
	if d > 50*time.Millisecond {
		d = 50 * time.Millisecond
	}
	return d
}

func (db *PostgresDB) runTx(ctx context.Context, opts pgx.TxOptions, fn TransactionFn) error {
	_, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}

	tx, err := db.Pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			panic(r)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			logger.Error().Err(rbErr).Msg("Failed to rollback transaction")
			return fmt.Errorf("error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
