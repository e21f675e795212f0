// Package repository implements all database queries for the workshop
// enrollment system. It uses pgx directly (no ORM) for transparency and
// performance.
//
// Seat bookkeeping is serialised per workshop with SELECT … FOR UPDATE on
// the workshop row. Two transactions enrolling into the same workshop would
// otherwise both read the same current_capacity and both take the last seat;
// with the row lock the second one blocks until the first commits and then
// reads the updated count. Workshops do not block each other.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/model"
)

// Store bundles the PostgreSQL repositories behind the service interfaces.
type Store struct {
	*WorkshopRepository
	*EnrollmentRepository
	*SessionRepository
	*AttendanceRepository
}

// New constructs every repository on the same pool.
func New(db *pgxpool.Pool) *Store {
	return &Store{
		WorkshopRepository:   NewWorkshopRepository(db),
		EnrollmentRepository: NewEnrollmentRepository(db),
		SessionRepository:    NewSessionRepository(db),
		AttendanceRepository: NewAttendanceRepository(db),
	}
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// inTx runs fn in a transaction, committing when it returns nil.
func inTx(ctx context.Context, db *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	// Rollback after a successful commit is a no-op.
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// lockWorkshop takes the workshop row lock for the rest of the transaction.
func lockWorkshop(ctx context.Context, tx pgx.Tx, id, mode string) error {
	var one int
	err := tx.QueryRow(ctx, `SELECT 1 FROM workshops WHERE id = $1 FOR `+mode, id).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrNotFound
		}
		return fmt.Errorf("lock workshop row: %w", err)
	}
	return nil
}

func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ErrNotFound
	}
	return fmt.Errorf("%s: %w", what, err)
}
