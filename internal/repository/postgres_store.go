package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresStore implements Store on PostgreSQL (schema in pkg/db/schema.sql).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store backed by the given PG pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// View runs fn inside a REPEATABLE READ, READ ONLY transaction so that every
// query fn issues sees the same committed state.
func (s *PostgresStore) View(ctx context.Context, fn func(q Querier) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return fmt.Errorf("view: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgQuerier{db: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// InTx runs fn in a READ COMMITTED transaction.
//
// Concurrency strategy: PESSIMISTIC LOCKING
//
// Guard operations read the template with GetTemplate(id, forUpdate=true),
// which issues SELECT ... FOR UPDATE. A concurrent archive and bind on the same
// template therefore serialize on that row:
//
//	T1: BEGIN → lock template → count refs = 0 → status = archived → COMMIT
//	T2: BEGIN → lock template (BLOCKS) → re-read: archived → not bindable → ROLLBACK
//
// Each statement in READ COMMITTED sees rows committed before it started, so
// the reference count read after the lock includes any bind that won the race.
func (s *PostgresStore) InTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("tx: begin: %w", err)
	}
	// Rollback is a no-op once the tx has committed.
	defer tx.Rollback(ctx)

	if err := fn(&pgQuerier{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("tx: commit: %w", err)
	}
	return nil
}

// Ping implements Store.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// ─── Querier plumbing ───────────────────────────────────────

// dbtx is the subset of pgx.Tx the queries use.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgQuerier implements Querier on one transaction. Its methods are spread
// over scheme_repository.go, template_repository.go, zone_repository.go and
// rule_repository.go.
type pgQuerier struct {
	db dbtx
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// mapErr translates driver errors into the package's sentinels.
func mapErr(err error, kind string, id int64) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound(kind, id)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s: %s: %w", kind, pgErr.Detail, ErrConflict)
		case pgForeignKeyViolation:
			return fmt.Errorf("%s: %s: %w", kind, pgErr.Detail, ErrNotFound)
		}
	}
	return fmt.Errorf("%s %d: %w", kind, id, err)
}

// expectOne turns a zero-row UPDATE/DELETE into ErrNotFound.
func expectOne(tag pgconn.CommandTag, err error, kind string, id int64) error {
	if err != nil {
		return mapErr(err, kind, id)
	}
	if tag.RowsAffected() == 0 {
		return notFound(kind, id)
	}
	return nil
}

func nullDec(p *decimal.Decimal) decimal.NullDecimal {
	if p == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *p, Valid: true}
}

func decPtr(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	d := n.Decimal
	return &d
}
