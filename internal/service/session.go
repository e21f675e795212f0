package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/model"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/notify"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/textclean"
)

type sessionStore interface {
	WorkshopStore
	SessionStore
	enrollmentLister
}

// SessionService drives the session lifecycle.
type SessionService struct {
	base
	store sessionStore
}

// NewSessionService constructs a SessionService.
func NewSessionService(store sessionStore, opts Options) *SessionService {
	return &SessionService{base: newBase(opts), store: store}
}

// Create schedules a new session of a workshop.
func (s *SessionService) Create(ctx context.Context, c model.Caller, req model.CreateSessionRequest) (*model.Session, error) {
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
	if err := s.checkSlot(w, req.Date, req.StartTime, req.EndTime); err != nil {
		return nil, err
	}
	professional, err := s.resolveProfessional(ctx, c, strings.TrimSpace(req.ProfessionalID))
	if err != nil {
		return nil, err
	}

	now := s.clock()
	sess := &model.Session{
		WorkshopID:     w.ID,
		Date:           req.Date,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		Topic:          textclean.Clean(req.Topic),
		ProfessionalID: professional,
		Observations:   textclean.Clean(req.Observations),
		Status:         model.SessionScheduled,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	s.log.Info("session created",
		zap.String("session_id", sess.ID),
		zap.String("workshop_id", sess.WorkshopID),
		zap.String("date", sess.Date))
	return sess, nil
}

// Update edits an actionable session. Omitted fields are left alone.
func (s *SessionService) Update(ctx context.Context, c model.Caller, id string, req model.UpdateSessionRequest) (*model.Session, error) {
	w, _, err := s.load(ctx, c, id)
	if err != nil {
		return nil, err
	}
	var professional string
	if req.ProfessionalID != nil {
		if professional, err = s.resolveProfessional(ctx, c, strings.TrimSpace(*req.ProfessionalID)); err != nil {
			return nil, err
		}
	}

	return s.store.MutateSession(ctx, id, func(sess *model.Session) error {
		if !sess.Status.Actionable() {
			return fmt.Errorf("%w: session already %s", model.ErrInvalidTransition, sess.Status)
		}
		moved := req.Date != nil || req.StartTime != nil || req.EndTime != nil
		if req.Date != nil {
			sess.Date = *req.Date
		}
		if req.StartTime != nil {
			sess.StartTime = *req.StartTime
		}
		if req.EndTime != nil {
			sess.EndTime = *req.EndTime
		}
		if moved {
			if err := s.checkSlot(w, sess.Date, sess.StartTime, sess.EndTime); err != nil {
				return err
			}
		}
		if req.Topic != nil {
			sess.Topic = textclean.Clean(*req.Topic)
		}
		if req.Observations != nil {
			sess.Observations = textclean.Clean(*req.Observations)
		}
		if req.ProfessionalID != nil {
			sess.ProfessionalID = professional
		}
		sess.UpdatedAt = s.clock()
		return nil
	})
}

// Reschedule moves an actionable session to a new slot and marks it
// rescheduled, keeping the previous slot in its observations.
func (s *SessionService) Reschedule(ctx context.Context, c model.Caller, id string, req model.RescheduleRequest) (*model.Session, error) {
	w, _, err := s.load(ctx, c, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkSlot(w, req.Date, req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	var previous string
	sess, err := s.store.MutateSession(ctx, id, func(sess *model.Session) error {
		next, err := sess.Status.Transition(model.SessionRescheduled)
		if err != nil {
			return err
		}
		previous = fmt.Sprintf("%s %s-%s", sess.Date, sess.StartTime, sess.EndTime)
		sess.Status = next
		sess.Date, sess.StartTime, sess.EndTime = req.Date, req.StartTime, req.EndTime
		sess.Observations = appendNote(sess.Observations, "Rescheduled from "+previous)
		sess.UpdatedAt = s.clock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("session rescheduled", zap.String("session_id", id), zap.String("from", previous), zap.String("to", sess.Date))
	s.invalidate(ctx, sess.WorkshopID)
	s.publish(ctx, notify.Event{
		Type:         notify.SessionRescheduled,
		WorkshopID:   sess.WorkshopID,
		SessionID:    sess.ID,
		Date:         sess.Date,
		StartTime:    sess.StartTime,
		EndTime:      sess.EndTime,
		PreviousSlot: previous,
	})
	return sess, nil
}

// Complete marks an actionable session as held. confirm must be true.
func (s *SessionService) Complete(ctx context.Context, c model.Caller, id string, req model.CompleteRequest) (*model.Session, error) {
	if !req.Confirm {
		return nil, model.Invalid("confirm", "must be true to complete a session")
	}
	if _, _, err := s.load(ctx, c, id); err != nil {
		return nil, err
	}
	sess, err := s.store.MutateSession(ctx, id, func(sess *model.Session) error {
		next, err := sess.Status.Transition(model.SessionCompleted)
		if err != nil {
			return err
		}
		sess.Status = next
		sess.UpdatedAt = s.clock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("session completed", zap.String("session_id", id))
	s.invalidate(ctx, sess.WorkshopID)
	return sess, nil
}

// Cancel calls off an actionable session. The reason is required and is
// prefixed onto the observations.
func (s *SessionService) Cancel(ctx context.Context, c model.Caller, id string, req model.CancelRequest) (*model.Session, error) {
	reason := textclean.Clean(req.Reason)
	if reason == "" {
		return nil, model.Invalid("reason", "is required")
	}
	if _, _, err := s.load(ctx, c, id); err != nil {
		return nil, err
	}
	sess, err := s.store.MutateSession(ctx, id, func(sess *model.Session) error {
		next, err := sess.Status.Transition(model.SessionCancelled)
		if err != nil {
			return err
		}
		sess.Status = next
		sess.Observations = prependNote(sess.Observations, "Cancelled: "+reason)
		sess.UpdatedAt = s.clock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("session cancelled", zap.String("session_id", id), zap.String("by", c.UserID))
	s.invalidate(ctx, sess.WorkshopID)
	s.publish(ctx, notify.Event{
		Type:       notify.SessionCancelled,
		WorkshopID: sess.WorkshopID,
		SessionID:  sess.ID,
		Date:       sess.Date,
		StartTime:  sess.StartTime,
		EndTime:    sess.EndTime,
		Reason:     reason,
	})
	return sess, nil
}

// Delete removes a session that has not been completed.
func (s *SessionService) Delete(ctx context.Context, c model.Caller, id string) error {
	_, sess, err := s.load(ctx, c, id)
	if err != nil {
		return err
	}
	err = s.store.DeleteSession(ctx, id, func(sess *model.Session) error {
		return sess.Status.CheckDeletable()
	})
	if err != nil {
		return err
	}
	s.log.Info("session deleted", zap.String("session_id", id), zap.String("by", c.UserID))
	s.invalidate(ctx, sess.WorkshopID)
	return nil
}

// Get returns a session the caller may see.
func (s *SessionService) Get(ctx context.Context, c model.Caller, id string) (*model.Session, error) {
	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	w, err := s.store.GetWorkshop(ctx, sess.WorkshopID)
	if err != nil {
		return nil, err
	}
	if managesSession(c, w, sess) {
		return sess, nil
	}
	ok, err := sees(ctx, s.store, c, w)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrForbidden
	}
	return sess, nil
}

// ListByWorkshop returns every session of a workshop in date order.
func (s *SessionService) ListByWorkshop(ctx context.Context, c model.Caller, workshopID string) ([]model.Session, error) {
	w, err := s.store.GetWorkshop(ctx, workshopID)
	if err != nil {
		return nil, err
	}
	ok, err := sees(ctx, s.store, c, w)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrForbidden
	}
	return s.store.ListSessions(ctx, model.SessionFilter{WorkshopIDs: []string{workshopID}})
}

// ListForCaller returns the sessions c may see between from and to, both
// optional and inclusive.
func (s *SessionService) ListForCaller(ctx context.Context, c model.Caller, from, to string) ([]model.Session, error) {
	f, err := sessionScope(ctx, s.store, c)
	if err != nil {
		return nil, err
	}
	f.From, f.To = from, to
	return s.store.ListSessions(ctx, f)
}

// load fetches a session with its workshop and checks that c may change it.
func (s *SessionService) load(ctx context.Context, c model.Caller, id string) (*model.Workshop, *model.Session, error) {
	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	w, err := s.store.GetWorkshop(ctx, sess.WorkshopID)
	if err != nil {
		return nil, nil, err
	}
	if !managesSession(c, w, sess) {
		return nil, nil, model.ErrForbidden
	}
	return w, sess, nil
}

// checkSlot validates a date and time range for a session of w.
func (s *SessionService) checkSlot(w *model.Workshop, date, start, end string) error {
	if err := notPast("date", date, s.today()); err != nil {
		return err
	}
	if err := validSlot(start, end); err != nil {
		return err
	}
	return withinWorkshop(w, date)
}

func appendNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}

func prependNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return note + "\n" + existing
}
