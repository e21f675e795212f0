package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/model"
)

// AttendanceRepository handles persistence for attendance records.
type AttendanceRepository struct {
	db *pgxpool.Pool
}

// NewAttendanceRepository constructs an AttendanceRepository.
func NewAttendanceRepository(db *pgxpool.Pool) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// RecordAttendance locks the session (and holds the workshop's enrollments
// steady with a share lock on its row), lets check validate the request
// against the active roster and upserts the records in one batch.
func (r *AttendanceRepository) RecordAttendance(ctx context.Context, sessionID string, records []model.Attendance,
	check func(*model.Session, map[string]bool) error) error {
	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		s, err := getSession(ctx, tx, sessionID, "UPDATE")
		if err != nil {
			return err
		}
		if err := lockWorkshop(ctx, tx, s.WorkshopID, "SHARE"); err != nil {
			return err
		}

		rows, err := tx.Query(ctx,
			`SELECT user_id FROM enrollments WHERE workshop_id = $1 AND state = 'active'`, s.WorkshopID)
		if err != nil {
			return fmt.Errorf("list active users: %w", err)
		}
		users, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return fmt.Errorf("scan active users: %w", err)
		}
		active := make(map[string]bool, len(users))
		for _, u := range users {
			active[u] = true
		}
		if err := check(&s, active); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, rec := range records {
			batch.Queue(
				`INSERT INTO attendance (session_id, user_id, present, observations, recorded_by, recorded_at)
				 VALUES ($1, $2, $3, $4, $5, $6)
				 ON CONFLICT (session_id, user_id) DO UPDATE
				 SET present = EXCLUDED.present, observations = EXCLUDED.observations,
				     recorded_by = EXCLUDED.recorded_by, recorded_at = EXCLUDED.recorded_at`,
				sessionID, rec.UserID, rec.Present, rec.Observations, rec.RecordedBy, rec.RecordedAt,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("upsert attendance: %w", err)
		}
		return nil
	})
}

// ListAttendance returns the records of one session ordered by user.
func (r *AttendanceRepository) ListAttendance(ctx context.Context, sessionID string) ([]model.Attendance, error) {
	return r.ListAttendanceForSessions(ctx, []string{sessionID})
}

// ListAttendanceForSessions returns the records of several sessions.
func (r *AttendanceRepository) ListAttendanceForSessions(ctx context.Context, sessionIDs []string) ([]model.Attendance, error) {
	if len(sessionIDs) == 0 {
		return []model.Attendance{}, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT session_id, user_id, present, observations, recorded_by, recorded_at
		 FROM attendance
		 WHERE session_id = ANY($1)
		 ORDER BY session_id, user_id`,
		sessionIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	out := []model.Attendance{}
	for rows.Next() {
		var a model.Attendance
		if err := rows.Scan(&a.SessionID, &a.UserID, &a.Present, &a.Observations, &a.RecordedBy, &a.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
