// Package pg implements the survey and job stores on PostgreSQL via the pgx
// stdlib driver.
package pg

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"surveyhub.org/internal/job"
	"surveyhub.org/internal/survey"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

// Store wraps a pooled database handle.
type Store struct {
	db     *sql.DB
	events *job.Broadcast
}

var (
	_ survey.Store = (*Store)(nil)
	_ job.Store    = (*Store)(nil)
	_ job.Deleter  = (*Store)(nil)
)

// Option configures Store behavior.
type Option func(*Store)

// WithEvents publishes enqueued-job events to the broadcast.
func WithEvents(b *job.Broadcast) Option {
	return func(s *Store) { s.events = b }
}

// Open connects to PostgreSQL with pool defaults tuned for the API workload.
func Open(dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return NewStore(db, opts...), nil
}

// NewStore wraps an existing handle (tests pass a sqlmock connection).
func NewStore(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// mapWriteError translates driver errors on inserts into domain sentinels.
func mapWriteError(err error) error {
	if pgErr, ok := maybePgError(err); ok {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return survey.ErrConflict
		case pgErrForeignKeyViolation:
			return survey.ErrNotFound
		}
	}
	return err
}
