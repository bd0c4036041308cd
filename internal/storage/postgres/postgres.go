// Package postgres stores sections, tasks and articles in PostgreSQL.
// Read-modify-write operations lock the affected rows with SELECT ... FOR
// UPDATE inside a transaction; uniqueness and section references are
// guarded by constraints so races are caught at commit.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/tracker/internal/storage"
)

//go:embed schema.sql
var schema string

type Store struct {
	logger zerolog.Logger
	pgPool *pgxpool.Pool
	now    func() time.Time
}

var _ storage.Repository = (*Store)(nil)

func New(logger zerolog.Logger, pgPool *pgxpool.Pool) *Store {
	return &Store{
		logger: logger,
		pgPool: pgPool,
		now:    time.Now,
	}
}

// Migrate creates the tables and indexes if they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pgPool.Exec(ctx, schema)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to apply schema")
		return err
	}
	s.logger.Info().Msg("applied schema")
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// mapError translates driver errors into storage errors. Errors it does
// not recognise are returned unchanged.
func mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return storage.ErrDuplicate
		case pgerrcode.ForeignKeyViolation:
			return storage.ErrInvalidReference
		}
	}
	return err
}

// isStorageError reports whether err is one of the storage sentinels, which
// are expected outcomes rather than failures worth an error log.
func isStorageError(err error) bool {
	return errors.Is(err, storage.ErrNotFound) ||
		errors.Is(err, storage.ErrDuplicate) ||
		errors.Is(err, storage.ErrHasDependents) ||
		errors.Is(err, storage.ErrInvalidReference)
}

// inTx runs fn inside a read-committed transaction and commits when fn
// succeeds.
func (s *Store) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pgPool.Begin(ctx)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to begin transaction")
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = fn(tx)
	if err != nil {
		return err
	}

	err = tx.Commit(ctx)
	if err != nil {
		err = mapError(err)
		if !isStorageError(err) {
			s.logger.Error().
				Err(err).
				Msg("failed to commit transaction")
		}
		return err
	}
	return nil
}

// inSnapshot runs fn in a read-only repeatable-read transaction so a page
// and its total count see the same data.
func (s *Store) inSnapshot(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pgPool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to begin read-only transaction")
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = fn(tx)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
