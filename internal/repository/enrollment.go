package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/model"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/waitlist"
)

const enrollmentColumns = `id, workshop_id, user_id, assigned_by, assignment_date, state, waitlist_position`

// EnrollmentRepository handles persistence for enrollments and the
// unenrollment audit trail.
type EnrollmentRepository struct {
	db *pgxpool.Pool
}

// NewEnrollmentRepository constructs an EnrollmentRepository.
func NewEnrollmentRepository(db *pgxpool.Pool) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

func scanEnrollment(row pgx.Row) (model.Enrollment, error) {
	var e model.Enrollment
	err := row.Scan(&e.ID, &e.WorkshopID, &e.UserID, &e.AssignedBy, &e.AssignmentDate, &e.State, &e.WaitlistPosition)
	return e, err
}

// WithBook locks the workshop row, loads its enrollments into a book, runs
// fn, verifies the result and writes the journal in the same transaction.
//
// The context bounds only the wait for the row lock. Once the lock is held
// the remaining statements run detached from cancellation so that an
// abandoned request cannot leave the work half done.
func (r *EnrollmentRepository) WithBook(ctx context.Context, workshopID string, fn func(*waitlist.Book) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	// ── Step 1: Acquire an exclusive row-level lock on the workshop. ─────
	w, err := getWorkshop(ctx, tx, workshopID, "UPDATE")
	if err != nil {
		return err
	}
	ctx = context.WithoutCancel(ctx)

	// ── Step 2: Load the seats and the queue. ─────────────────────────────
	current, err := listEnrollments(ctx, tx, `workshop_id = $1`, workshopID)
	if err != nil {
		return err
	}

	// ── Step 3: Apply the change and check every invariant. ───────────────
	b := waitlist.New(w, current)
	if err := fn(b); err != nil {
		return err
	}
	if err := b.Verify(); err != nil {
		return err
	}
	j := b.Journal()
	if j.Empty() {
		return nil
	}

	// ── Step 4: Persist the journal. ──────────────────────────────────────
	for _, rm := range j.Removed {
		if _, err := tx.Exec(ctx, `DELETE FROM enrollments WHERE id = $1`, rm.Enrollment.ID); err != nil {
			return fmt.Errorf("delete enrollment: %w", err)
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO enrollment_history (enrollment_id, workshop_id, user_id, reason, was_waitlisted, unenrolled_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			rm.Enrollment.ID, rm.Enrollment.WorkshopID, rm.Enrollment.UserID, rm.Reason,
			rm.Enrollment.State == model.EnrollmentWaitlisted, rm.At,
		)
		if err != nil {
			return fmt.Errorf("insert enrollment history: %w", err)
		}
	}
	for _, e := range j.Inserted {
		_, err := tx.Exec(ctx,
			`INSERT INTO enrollments (`+enrollmentColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			e.ID, e.WorkshopID, e.UserID, e.AssignedBy, e.AssignmentDate, string(e.State), e.WaitlistPosition,
		)
		if err != nil {
			return fmt.Errorf("insert enrollment: %w", err)
		}
	}
	for _, e := range j.Updated {
		_, err := tx.Exec(ctx,
			`UPDATE enrollments SET state = $2, waitlist_position = $3, assignment_date = $4 WHERE id = $1`,
			e.ID, string(e.State), e.WaitlistPosition, e.AssignmentDate,
		)
		if err != nil {
			return fmt.Errorf("update enrollment: %w", err)
		}
	}
	if j.WorkshopChanged {
		if err := updateWorkshop(ctx, tx, b.Workshop); err != nil {
			return err
		}
	}

	// ── Step 5: Commit. Only now does any other request see the change. ──
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetEnrollment returns a single enrollment or ErrNotFound.
func (r *EnrollmentRepository) GetEnrollment(ctx context.Context, id string) (*model.Enrollment, error) {
	e, err := scanEnrollment(r.db.QueryRow(ctx,
		`SELECT `+enrollmentColumns+` FROM enrollments WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "get enrollment")
	}
	return &e, nil
}

// ListEnrollmentsByWorkshop returns every enrollment of a workshop.
func (r *EnrollmentRepository) ListEnrollmentsByWorkshop(ctx context.Context, workshopID string) ([]model.Enrollment, error) {
	return listEnrollments(ctx, r.db, `workshop_id = $1`, workshopID)
}

// ListEnrollmentsByUser returns every enrollment held by a user.
func (r *EnrollmentRepository) ListEnrollmentsByUser(ctx context.Context, userID string) ([]model.Enrollment, error) {
	return listEnrollments(ctx, r.db, `user_id = $1`, userID)
}

func listEnrollments(ctx context.Context, q querier, where string, arg any) ([]model.Enrollment, error) {
	rows, err := q.Query(ctx,
		`SELECT `+enrollmentColumns+` FROM enrollments WHERE `+where+` ORDER BY assignment_date ASC, id`, arg)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	defer rows.Close()

	enrollments := []model.Enrollment{}
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		enrollments = append(enrollments, e)
	}
	return enrollments, rows.Err()
}

// ListUnenrollments returns the audit trail of a workshop, oldest first.
func (r *EnrollmentRepository) ListUnenrollments(ctx context.Context, workshopID string) ([]model.Unenrollment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT enrollment_id, workshop_id, user_id, reason, was_waitlisted, unenrolled_at
		 FROM enrollment_history
		 WHERE workshop_id = $1
		 ORDER BY unenrolled_at ASC`,
		workshopID,
	)
	if err != nil {
		return nil, fmt.Errorf("list unenrollments: %w", err)
	}
	defer rows.Close()

	out := []model.Unenrollment{}
	for rows.Next() {
		var u model.Unenrollment
		if err := rows.Scan(&u.EnrollmentID, &u.WorkshopID, &u.UserID, &u.Reason, &u.WasWaitlisted, &u.UnenrolledAt); err != nil {
			return nil, fmt.Errorf("scan unenrollment: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
