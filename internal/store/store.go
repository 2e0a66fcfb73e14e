// Package store is the durable record of samples, analysis batches, timeline
// cards, daily summaries and settings.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/strrl/dayflow/internal/db"
)

// ErrStorage marks any database or media file failure surfaced by Store.
var ErrStorage = errors.New("storage error")

// Error records the Store operation that failed.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrStorage }

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// Store serializes every mutation behind one writer lock. Reads go straight
// to the database and only ever see committed transactions.
type Store struct {
	db  *sql.DB
	mu  sync.Mutex
	loc *time.Location
	now func() time.Time

	removeFile func(string) error
}

type Option func(*Store)

// WithLocation sets the zone used to derive day keys. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock overrides the clock used for bookkeeping timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithFileRemover overrides how backing media files are deleted.
func WithFileRemover(remove func(string) error) Option {
	return func(s *Store) {
		if remove != nil {
			s.removeFile = remove
		}
	}
}

// New wraps an already migrated database handle.
func New(conn *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:         conn,
		loc:        time.Local,
		now:        time.Now,
		removeFile: removeMedia,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open opens and migrates the database, then wraps it in a Store.
func Open(driver, path string, opts ...Option) (*Store, error) {
	conn, err := db.Open(driver, path)
	if err != nil {
		return nil, wrap("open", err)
	}
	return New(conn, opts...), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Location() *time.Location {
	return s.loc
}

func (s *Store) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap(op, fmt.Errorf("begin: %w", err))
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return wrap(op, err)
	}
	if err := tx.Commit(); err != nil {
		return wrap(op, fmt.Errorf("commit: %w", err))
	}
	return nil
}

func toNanos(t time.Time) int64 {
	return t.UnixNano()
}

func (s *Store) fromNanos(ns int64) time.Time {
	return time.Unix(0, ns).In(s.loc)
}
