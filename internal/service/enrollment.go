package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/model"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/notify"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/textclean"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/waitlist"
)

type enrollmentStore interface {
	WorkshopStore
	EnrollmentStore
}

// EnrollmentService admits users into workshops and removes them again,
// keeping seats and the waitlist consistent.
type EnrollmentService struct {
	base
	store enrollmentStore
}

// NewEnrollmentService constructs an EnrollmentService.
func NewEnrollmentService(store enrollmentStore, opts Options) *EnrollmentService {
	return &EnrollmentService{base: newBase(opts), store: store}
}

// Enroll gives the user a seat when one is free and a waitlist place
// otherwise.
func (s *EnrollmentService) Enroll(ctx context.Context, c model.Caller, req model.EnrollRequest) (*model.EnrollResult, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	if err := requireText("user_id", req.UserID); err != nil {
		return nil, err
	}
	if err := requireText("workshop_id", req.WorkshopID); err != nil {
		return nil, err
	}
	w, err := s.store.GetWorkshop(ctx, req.WorkshopID)
	if err != nil {
		return nil, err
	}
	if !manages(c, w) {
		return nil, model.ErrForbidden
	}

	var e model.Enrollment
	err = s.store.WithBook(ctx, req.WorkshopID, func(b *waitlist.Book) error {
		var err error
		e, err = b.Admit(uuid.New().String(), req.UserID, c.UserID, s.clock())
		return err
	})
	if err != nil {
		return nil, s.check(err, zap.String("workshop_id", req.WorkshopID), zap.String("op", "enroll"))
	}

	s.log.Info("user enrolled",
		zap.String("workshop_id", e.WorkshopID),
		zap.String("user_id", e.UserID),
		zap.String("state", string(e.State)))
	s.invalidate(ctx, e.WorkshopID)
	return &model.EnrollResult{EnrollmentID: e.ID, State: e.State, WaitlistPosition: e.WaitlistPosition}, nil
}

// Unenroll removes an enrollment. A freed seat goes to the head of the
// waitlist in the same step.
func (s *EnrollmentService) Unenroll(ctx context.Context, c model.Caller, enrollmentID string, req model.UnenrollRequest) (*model.UnenrollResult, error) {
	reason := textclean.Clean(req.Reason)
	if reason == "" {
		return nil, model.Invalid("reason", "is required")
	}
	current, err := s.store.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	w, err := s.store.GetWorkshop(ctx, current.WorkshopID)
	if err != nil {
		return nil, err
	}
	if !manages(c, w) {
		return nil, model.ErrForbidden
	}

	var promoted *model.Enrollment
	err = s.store.WithBook(ctx, current.WorkshopID, func(b *waitlist.Book) error {
		var err error
		_, promoted, err = b.Remove(enrollmentID, reason, s.clock())
		return err
	})
	if err != nil {
		return nil, s.check(err, zap.String("workshop_id", current.WorkshopID), zap.String("op", "unenroll"))
	}

	s.log.Info("user unenrolled",
		zap.String("workshop_id", current.WorkshopID),
		zap.String("user_id", current.UserID),
		zap.String("by", c.UserID))
	s.invalidate(ctx, current.WorkshopID)

	res := &model.UnenrollResult{OK: true}
	if promoted != nil {
		res.Promoted = &model.PromotedRef{UserID: promoted.UserID, EnrollmentID: promoted.ID}
		s.log.Info("promoted from waitlist", zap.String("workshop_id", promoted.WorkshopID), zap.String("user_id", promoted.UserID))
		s.publish(ctx, notify.Event{
			Type:         notify.EnrollmentPromoted,
			WorkshopID:   promoted.WorkshopID,
			UserID:       promoted.UserID,
			EnrollmentID: promoted.ID,
		})
	}
	return res, nil
}

// Students lists a workshop's seat holders and its waitlist separately.
func (s *EnrollmentService) Students(ctx context.Context, c model.Caller, workshopID string) (*model.WorkshopStudents, error) {
	w, err := s.store.GetWorkshop(ctx, workshopID)
	if err != nil {
		return nil, err
	}
	if !manages(c, w) {
		return nil, model.ErrForbidden
	}
	list, err := s.store.ListEnrollmentsByWorkshop(ctx, workshopID)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	b := waitlist.New(*w, list)
	return &model.WorkshopStudents{
		WorkshopID:      w.ID,
		MaxCapacity:     w.MaxCapacity,
		CurrentCapacity: w.CurrentCapacity,
		Enrolled:        nonNil(b.Active),
		Waitlist:        nonNil(b.Waiting),
	}, nil
}

// UserEnrollments lists a user's seats and queue places. Clients may only
// look at their own.
func (s *EnrollmentService) UserEnrollments(ctx context.Context, c model.Caller, userID string) (*model.UserEnrollments, error) {
	if c.Role == model.RoleClient && c.UserID != userID {
		return nil, model.ErrForbidden
	}
	list, err := s.store.ListEnrollmentsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	out := &model.UserEnrollments{UserID: userID, Active: []model.Enrollment{}, Waitlisted: []model.Enrollment{}}
	for _, e := range list {
		if e.State == model.EnrollmentWaitlisted {
			out.Waitlisted = append(out.Waitlisted, e)
		} else {
			out.Active = append(out.Active, e)
		}
	}
	return out, nil
}

// Unenrollments returns the audit trail of removed enrollments.
func (s *EnrollmentService) Unenrollments(ctx context.Context, c model.Caller, workshopID string) ([]model.Unenrollment, error) {
	w, err := s.store.GetWorkshop(ctx, workshopID)
	if err != nil {
		return nil, err
	}
	if !manages(c, w) {
		return nil, model.ErrForbidden
	}
	return s.store.ListUnenrollments(ctx, workshopID)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
