package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/model"
)

const sessionColumns = `id, workshop_id, to_char(date, 'YYYY-MM-DD'),
	to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'),
	topic, professional_id, observations, status, created_at, updated_at`

// SessionRepository handles persistence for sessions.
type SessionRepository struct {
	db *pgxpool.Pool
}

// NewSessionRepository constructs a SessionRepository.
func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: db}
}

func scanSession(row pgx.Row) (model.Session, error) {
	var s model.Session
	err := row.Scan(&s.ID, &s.WorkshopID, &s.Date, &s.StartTime, &s.EndTime,
		&s.Topic, &s.ProfessionalID, &s.Observations, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// CreateSession inserts s after checking its slot under the workshop lock.
func (r *SessionRepository) CreateSession(ctx context.Context, s *model.Session) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := lockWorkshop(ctx, tx, s.WorkshopID, "UPDATE"); err != nil {
			return err
		}
		if err := checkSlot(ctx, tx, s); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO sessions (id, workshop_id, date, start_time, end_time, topic, professional_id,
			                       observations, status, created_at, updated_at)
			 VALUES ($1, $2, $3::date, $4::time, $5::time, $6, $7, $8, $9, $10, $11)`,
			s.ID, s.WorkshopID, s.Date, s.StartTime, s.EndTime, s.Topic, s.ProfessionalID,
			s.Observations, string(s.Status), s.CreatedAt, s.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		return nil
	})
}

// GetSession returns a single session or ErrNotFound.
func (r *SessionRepository) GetSession(ctx context.Context, id string) (*model.Session, error) {
	s, err := getSession(ctx, r.db, id, "")
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func getSession(ctx context.Context, q querier, id, lock string) (model.Session, error) {
	sql := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	if lock != "" {
		sql += ` FOR ` + lock
	}
	s, err := scanSession(q.QueryRow(ctx, sql, id))
	if err != nil {
		return model.Session{}, notFound(err, "get session")
	}
	return s, nil
}

// MutateSession locks the session row, applies fn and writes the result.
// The workshop row is locked too so that slot checks see a stable set of
// sibling sessions.
func (r *SessionRepository) MutateSession(ctx context.Context, id string, fn func(*model.Session) error) (*model.Session, error) {
	var out model.Session
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		s, err := getSession(ctx, tx, id, "UPDATE")
		if err != nil {
			return err
		}
		if err := lockWorkshop(ctx, tx, s.WorkshopID, "UPDATE"); err != nil {
			return err
		}
		if err := fn(&s); err != nil {
			return err
		}
		if err := checkSlot(ctx, tx, &s); err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`UPDATE sessions
			 SET date = $2::date, start_time = $3::time, end_time = $4::time, topic = $5,
			     professional_id = $6, observations = $7, status = $8, updated_at = $9
			 WHERE id = $1`,
			s.ID, s.Date, s.StartTime, s.EndTime, s.Topic, s.ProfessionalID, s.Observations,
			string(s.Status), s.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteSession removes a session and, by cascade, its attendance.
func (r *SessionRepository) DeleteSession(ctx context.Context, id string, guard func(*model.Session) error) error {
	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		s, err := getSession(ctx, tx, id, "UPDATE")
		if err != nil {
			return err
		}
		if err := guard(&s); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		return nil
	})
}

// ListSessions returns sessions matching f ordered by date and start time.
func (r *SessionRepository) ListSessions(ctx context.Context, f model.SessionFilter) ([]model.Session, error) {
	var (
		where []string
		args  []any
	)
	if f.WorkshopIDs != nil {
		args = append(args, f.WorkshopIDs)
		where = append(where, fmt.Sprintf("workshop_id = ANY($%d)", len(args)))
	}
	if f.ProfessionalID != "" {
		args = append(args, f.ProfessionalID)
		where = append(where, fmt.Sprintf("professional_id = $%d", len(args)))
	}
	if f.From != "" {
		args = append(args, f.From)
		where = append(where, fmt.Sprintf("date >= $%d::date", len(args)))
	}
	if f.To != "" {
		args = append(args, f.To)
		where = append(where, fmt.Sprintf("date <= $%d::date", len(args)))
	}
	sql := `SELECT ` + sessionColumns + ` FROM sessions`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	sql += ` ORDER BY date, start_time, id`

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []model.Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// checkSlot rejects s when another live session of the same workshop
// overlaps it on the same date.
func checkSlot(ctx context.Context, tx pgx.Tx, s *model.Session) error {
	if s.Status == model.SessionCancelled {
		return nil
	}
	other, err := scanSession(tx.QueryRow(ctx,
		`SELECT `+sessionColumns+`
		 FROM sessions
		 WHERE workshop_id = $1 AND date = $2::date AND id <> $3 AND status <> 'cancelled'
		   AND start_time < $5::time AND $4::time < end_time
		 ORDER BY start_time
		 LIMIT 1`,
		s.WorkshopID, s.Date, s.ID, s.StartTime, s.EndTime,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("check session slot: %w", err)
	}
	return model.Invalid("start_time",
		fmt.Sprintf("overlaps session %s (%s-%s) on %s", other.ID, other.StartTime, other.EndTime, other.Date))
}
