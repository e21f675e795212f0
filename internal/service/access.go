package service

import (
	"context"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/model"
)

// manages reports whether c may change w or anything inside it.
func manages(c model.Caller, w *model.Workshop) bool {
	return c.IsStaff() || (c.Role == model.RoleProfessional && w.ProfessionalID == c.UserID)
}

// managesSession also admits the professional a single session is
// assigned to.
func managesSession(c model.Caller, w *model.Workshop, s *model.Session) bool {
	return manages(c, w) || (c.Role == model.RoleProfessional && s.ProfessionalID == c.UserID)
}

type enrollmentLister interface {
	ListEnrollmentsByUser(ctx context.Context, userID string) ([]model.Enrollment, error)
}

// enrolledWorkshops returns the workshops where userID holds a seat.
func enrolledWorkshops(ctx context.Context, store enrollmentLister, userID string) ([]string, error) {
	list, err := store.ListEnrollmentsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := []string{}
	for _, e := range list {
		if e.State == model.EnrollmentActive {
			ids = append(ids, e.WorkshopID)
		}
	}
	return ids, nil
}

// sees reports whether c may read w and its sessions.
func sees(ctx context.Context, store enrollmentLister, c model.Caller, w *model.Workshop) (bool, error) {
	if manages(c, w) {
		return true, nil
	}
	if c.Role == model.RoleProfessional {
		return false, nil
	}
	ids, err := enrolledWorkshops(ctx, store, c.UserID)
	if err != nil {
		return false, err
	}
	return contains(ids, w.ID), nil
}

// sessionScope limits session listings to what c may see: professionals get
// the sessions assigned to them, clients those of workshops they hold a seat
// in, staff everything.
func sessionScope(ctx context.Context, store enrollmentLister, c model.Caller) (model.SessionFilter, error) {
	switch c.Role {
	case model.RoleProfessional:
		return model.SessionFilter{ProfessionalID: c.UserID}, nil
	case model.RoleClient:
		ids, err := enrolledWorkshops(ctx, store, c.UserID)
		if err != nil {
			return model.SessionFilter{}, err
		}
		return model.SessionFilter{WorkshopIDs: ids}, nil
	}
	return model.SessionFilter{}, nil
}
