package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/model"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/notify"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/textclean"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/waitlist"
)

type workshopStore interface {
	WorkshopStore
	EnrollmentStore
}

// WorkshopService manages workshops and their capacity.
type WorkshopService struct {
	base
	store workshopStore
}

// NewWorkshopService constructs a WorkshopService.
func NewWorkshopService(store workshopStore, opts Options) *WorkshopService {
	return &WorkshopService{base: newBase(opts), store: store}
}

// Create validates req and stores a new workshop with no enrollments.
func (s *WorkshopService) Create(ctx context.Context, c model.Caller, req model.CreateWorkshopRequest) (*model.Workshop, error) {
	if !c.IsStaff() {
		return nil, model.ErrForbidden
	}
	now := s.clock()
	w := &model.Workshop{
		Name:        textclean.Clean(req.Name),
		Description: textclean.Clean(req.Description),
		MaxCapacity: req.MaxCapacity,
		Status:      req.Status,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		StartDate:   req.StartDate,
		EndDate:     blankToNil(req.EndDate),
		Location:    textclean.Clean(req.Location),
		CreatedBy:   c.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if w.Status == "" {
		w.Status = model.WorkshopActive
	}
	if err := requireText("name", w.Name); err != nil {
		return nil, err
	}
	if w.MaxCapacity < 1 {
		return nil, model.Invalid("max_capacity", "must be greater than 0")
	}
	days, err := validWeekDays(req.WeekDays)
	if err != nil {
		return nil, err
	}
	w.WeekDays = days
	if err := validateSchedule(w); err != nil {
		return nil, err
	}
	if w.ProfessionalID, err = s.resolveProfessional(ctx, c, req.ProfessionalID); err != nil {
		return nil, err
	}

	if err := s.store.CreateWorkshop(ctx, w); err != nil {
		return nil, fmt.Errorf("create workshop: %w", err)
	}
	s.log.Info("workshop created", zap.String("workshop_id", w.ID), zap.String("by", c.UserID))
	return w, nil
}

// Get returns a single workshop.
func (s *WorkshopService) Get(ctx context.Context, id string) (*model.Workshop, error) {
	return s.store.GetWorkshop(ctx, id)
}

// List returns workshops matching f. Everyone may browse the catalogue.
func (s *WorkshopService) List(ctx context.Context, f model.WorkshopFilter) ([]model.Workshop, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, model.Invalid("status", "unknown workshop status")
	}
	return s.store.ListWorkshops(ctx, f)
}

// Mine returns the workshops that concern c: those a professional runs, or
// those a client holds a seat or queue place in. Staff get everything.
func (s *WorkshopService) Mine(ctx context.Context, c model.Caller) ([]model.Workshop, error) {
	switch c.Role {
	case model.RoleProfessional:
		return s.store.ListWorkshops(ctx, model.WorkshopFilter{ProfessionalID: c.UserID})
	case model.RoleClient:
		enrollments, err := s.store.ListEnrollmentsByUser(ctx, c.UserID)
		if err != nil {
			return nil, err
		}
		out := []model.Workshop{}
		for _, e := range enrollments {
			w, err := s.store.GetWorkshop(ctx, e.WorkshopID)
			if err != nil {
				return nil, err
			}
			out = append(out, *w)
		}
		return out, nil
	}
	return s.store.ListWorkshops(ctx, model.WorkshopFilter{})
}

// Update applies a partial edit. Raising max_capacity promotes waitlisted
// users into the new seats; lowering it below the current enrollment fails.
func (s *WorkshopService) Update(ctx context.Context, c model.Caller, id string, req model.UpdateWorkshopRequest) (*model.UpdateWorkshopResult, error) {
	if !c.IsStaff() {
		return nil, model.ErrForbidden
	}
	var professional string
	if req.ProfessionalID != nil {
		var err error
		if professional, err = s.resolveProfessional(ctx, c, *req.ProfessionalID); err != nil {
			return nil, err
		}
	}

	var res model.UpdateWorkshopResult
	err := s.store.WithBook(ctx, id, func(b *waitlist.Book) error {
		now := s.clock()
		w := &b.Workshop
		if req.Name != nil {
			w.Name = textclean.Clean(*req.Name)
			if err := requireText("name", w.Name); err != nil {
				return err
			}
		}
		if req.Description != nil {
			w.Description = textclean.Clean(*req.Description)
		}
		if req.Location != nil {
			w.Location = textclean.Clean(*req.Location)
		}
		if req.ProfessionalID != nil {
			w.ProfessionalID = professional
		}
		if req.WeekDays != nil {
			days, err := validWeekDays(req.WeekDays)
			if err != nil {
				return err
			}
			w.WeekDays = days
		}
		if req.StartTime != nil {
			w.StartTime = *req.StartTime
		}
		if req.EndTime != nil {
			w.EndTime = *req.EndTime
		}
		if req.StartDate != nil {
			w.StartDate = *req.StartDate
		}
		if req.EndDate != nil {
			w.EndDate = blankToNil(req.EndDate)
		}
		if req.Status != nil {
			w.Status = *req.Status
		}
		if err := validateSchedule(w); err != nil {
			return err
		}
		b.Touch(now)

		if req.MaxCapacity != nil {
			promoted, err := b.Resize(*req.MaxCapacity, now)
			if err != nil {
				return err
			}
			res.Promoted = promoted
		}
		res.Workshop = b.Workshop
		return nil
	})
	if err != nil {
		return nil, s.check(err, zap.String("workshop_id", id), zap.String("op", "update_workshop"))
	}

	for _, p := range res.Promoted {
		s.log.Info("promoted from waitlist", zap.String("workshop_id", id), zap.String("user_id", p.UserID))
		s.publish(ctx, notify.Event{
			Type:         notify.EnrollmentPromoted,
			WorkshopID:   id,
			UserID:       p.UserID,
			EnrollmentID: p.ID,
		})
	}
	s.invalidate(ctx, id)
	return &res, nil
}

// Delete removes a workshop that nobody is actively enrolled in.
func (s *WorkshopService) Delete(ctx context.Context, c model.Caller, id string) error {
	if !c.IsStaff() {
		return model.ErrForbidden
	}
	if err := s.store.DeleteWorkshop(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	s.log.Info("workshop deleted", zap.String("workshop_id", id), zap.String("by", c.UserID))
	return nil
}

func validateSchedule(w *model.Workshop) error {
	if !w.Status.Valid() {
		return model.Invalid("status", "must be one of pending, active, paused, finished")
	}
	if err := validSlot(w.StartTime, w.EndTime); err != nil {
		return err
	}
	if err := validDate("start_date", w.StartDate); err != nil {
		return err
	}
	if w.EndDate != nil {
		if err := validDate("end_date", *w.EndDate); err != nil {
			return err
		}
		if *w.EndDate < w.StartDate {
			return model.Invalid("end_date", "cannot be before start_date")
		}
	}
	return nil
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
