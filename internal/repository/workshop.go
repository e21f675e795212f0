package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/model"
)

const workshopColumns = `id, name, description, professional_id, max_capacity, current_capacity, status,
	week_days, to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'),
	to_char(start_date, 'YYYY-MM-DD'), to_char(end_date, 'YYYY-MM-DD'),
	location, created_by, created_at, updated_at`

// WorkshopRepository handles persistence for workshops.
type WorkshopRepository struct {
	db *pgxpool.Pool
}

// NewWorkshopRepository constructs a WorkshopRepository.
func NewWorkshopRepository(db *pgxpool.Pool) *WorkshopRepository {
	return &WorkshopRepository{db: db}
}

func scanWorkshop(row pgx.Row) (model.Workshop, error) {
	var w model.Workshop
	err := row.Scan(&w.ID, &w.Name, &w.Description, &w.ProfessionalID, &w.MaxCapacity, &w.CurrentCapacity,
		&w.Status, &w.WeekDays, &w.StartTime, &w.EndTime, &w.StartDate, &w.EndDate,
		&w.Location, &w.CreatedBy, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}

// CreateWorkshop inserts w, generating a UUID when it has no id.
func (r *WorkshopRepository) CreateWorkshop(ctx context.Context, w *model.Workshop) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	if w.WeekDays == nil {
		w.WeekDays = []string{}
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO workshops (id, name, description, professional_id, max_capacity, current_capacity, status,
		                        week_days, start_time, end_time, start_date, end_date, location, created_by,
		                        created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::time, $10::time, $11::date, $12::date, $13, $14, $15, $16)`,
		w.ID, w.Name, w.Description, w.ProfessionalID, w.MaxCapacity, w.CurrentCapacity, string(w.Status),
		w.WeekDays, w.StartTime, w.EndTime, w.StartDate, w.EndDate, w.Location, w.CreatedBy,
		w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert workshop: %w", err)
	}
	return nil
}

// GetWorkshop returns a single workshop or ErrNotFound.
func (r *WorkshopRepository) GetWorkshop(ctx context.Context, id string) (*model.Workshop, error) {
	w, err := getWorkshop(ctx, r.db, id, "")
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func getWorkshop(ctx context.Context, q querier, id, lock string) (model.Workshop, error) {
	sql := `SELECT ` + workshopColumns + ` FROM workshops WHERE id = $1`
	if lock != "" {
		sql += ` FOR ` + lock
	}
	w, err := scanWorkshop(q.QueryRow(ctx, sql, id))
	if err != nil {
		return model.Workshop{}, notFound(err, "get workshop")
	}
	return w, nil
}

// ListWorkshops returns workshops matching f, newest first.
func (r *WorkshopRepository) ListWorkshops(ctx context.Context, f model.WorkshopFilter) ([]model.Workshop, error) {
	var (
		where []string
		args  []any
	)
	if f.ProfessionalID != "" {
		args = append(args, f.ProfessionalID)
		where = append(where, fmt.Sprintf("professional_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	sql := `SELECT ` + workshopColumns + ` FROM workshops`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	sql += ` ORDER BY created_at DESC, id`

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list workshops: %w", err)
	}
	defer rows.Close()

	workshops := []model.Workshop{}
	for rows.Next() {
		w, err := scanWorkshop(rows)
		if err != nil {
			return nil, fmt.Errorf("scan workshop: %w", err)
		}
		workshops = append(workshops, w)
	}
	return workshops, rows.Err()
}

// DeleteWorkshop removes a workshop without active enrollments. Its queue,
// sessions, attendance and audit trail go with it through ON DELETE CASCADE.
func (r *WorkshopRepository) DeleteWorkshop(ctx context.Context, id string) error {
	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := lockWorkshop(ctx, tx, id, "UPDATE"); err != nil {
			return err
		}
		var active int
		err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM enrollments WHERE workshop_id = $1 AND state = 'active'`, id,
		).Scan(&active)
		if err != nil {
			return fmt.Errorf("count active enrollments: %w", err)
		}
		if active > 0 {
			return fmt.Errorf("%w: workshop has %d active enrollments", model.ErrInvalidTransition, active)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM workshops WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete workshop: %w", err)
		}
		return nil
	})
}

// updateWorkshop writes every mutable column of w.
func updateWorkshop(ctx context.Context, q querier, w model.Workshop) error {
	if w.WeekDays == nil {
		w.WeekDays = []string{}
	}
	_, err := q.Exec(ctx,
		`UPDATE workshops
		 SET name = $2, description = $3, professional_id = $4, max_capacity = $5, current_capacity = $6,
		     status = $7, week_days = $8, start_time = $9::time, end_time = $10::time,
		     start_date = $11::date, end_date = $12::date, location = $13, updated_at = $14
		 WHERE id = $1`,
		w.ID, w.Name, w.Description, w.ProfessionalID, w.MaxCapacity, w.CurrentCapacity,
		string(w.Status), w.WeekDays, w.StartTime, w.EndTime, w.StartDate, w.EndDate, w.Location, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update workshop: %w", err)
	}
	return nil
}
