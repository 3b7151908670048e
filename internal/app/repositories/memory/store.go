// Package memory is an in-process Store. Transactions are serialized and
// run against a snapshot that replaces the committed state only on success,
// so a failed transaction leaves no partial writes.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/yigit/registrar/internal/app/repositories"
)

// Store is a repositories.Store held in memory
type Store struct {
	txMu sync.Mutex   // serializes writers
	mu   sync.RWMutex // guards data
	data *data
	now  func() time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{data: newData(), now: time.Now}
}

// SetClock replaces the time source used for timestamps
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Repos returns repositories reading the committed state. Their writes are
// applied immediately and must not be issued from inside a transaction.
func (s *Store) Repos() *repositories.Repositories {
	return s.repos(&view{store: s})
}

// WithTransaction runs fn against a private snapshot and commits it when fn
// returns nil
func (s *Store) WithTransaction(ctx context.Context, fn repositories.TxFn) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	if err := fn(ctx, s.repos(&view{store: s, tx: snapshot})); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = snapshot
	s.mu.Unlock()
	return nil
}

// Ping always succeeds unless ctx is done
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) repos(v *view) *repositories.Repositories {
	return &repositories.Repositories{
		Students:    &studentRepo{v},
		Terms:       &termRepo{v},
		Courses:     &courseRepo{v},
		Offerings:   &offeringRepo{v},
		Enrollments: &enrollmentRepo{v},
		Overrides:   &overrideRepo{v},
		Holds:       &holdRepo{v},
		Audit:       &auditRepo{v},
	}
}

// view binds repositories either to a transaction snapshot or to the
// committed state
type view struct {
	store *Store
	tx    *data
}

func (v *view) read(fn func(d *data)) {
	if v.tx != nil {
		fn(v.tx)
		return
	}
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()
	fn(v.store.data)
}

func (v *view) write(fn func(d *data) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.store.txMu.Lock()
	defer v.store.txMu.Unlock()
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.data)
}

func (v *view) now() time.Time {
	return v.store.now()
}

var _ repositories.Store = (*Store)(nil)
