package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/model"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/report"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/textclean"
)

type attendanceStore interface {
	WorkshopStore
	SessionStore
	AttendanceStore
}

// AttendanceService records who attended a session.
type AttendanceService struct {
	base
	store attendanceStore
}

// NewAttendanceService constructs an AttendanceService.
func NewAttendanceService(store attendanceStore, opts Options) *AttendanceService {
	return &AttendanceService{base: newBase(opts), store: store}
}

// Take records attendance for a session that has not yet been held or
// called off. It does not complete the session.
func (s *AttendanceService) Take(ctx context.Context, c model.Caller, sessionID string, req model.AttendanceRequest) error {
	return s.record(ctx, c, sessionID, req, func(sess *model.Session) error {
		if !sess.Status.Actionable() {
			return fmt.Errorf("%w: session already %s", model.ErrInvalidTransition, sess.Status)
		}
		return nil
	})
}

// Update overwrites the listed users' records and leaves everyone else
// alone. Completed sessions may be corrected; cancelled ones may not.
func (s *AttendanceService) Update(ctx context.Context, c model.Caller, sessionID string, req model.AttendanceRequest) error {
	return s.record(ctx, c, sessionID, req, func(sess *model.Session) error {
		if sess.Status == model.SessionCancelled {
			return fmt.Errorf("%w: session already cancelled", model.ErrInvalidTransition)
		}
		return nil
	})
}

func (s *AttendanceService) record(ctx context.Context, c model.Caller, sessionID string, req model.AttendanceRequest, allowed func(*model.Session) error) error {
	if len(req.Records) == 0 {
		return model.Invalid("records", "at least one record is required")
	}
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	w, err := s.store.GetWorkshop(ctx, sess.WorkshopID)
	if err != nil {
		return err
	}
	if !managesSession(c, w, sess) {
		return model.ErrForbidden
	}

	now := s.clock()
	seen := make(map[string]bool, len(req.Records))
	records := make([]model.Attendance, 0, len(req.Records))
	for i, r := range req.Records {
		user := strings.TrimSpace(r.UserID)
		field := fmt.Sprintf("records[%d].user_id", i)
		if user == "" {
			return model.Invalid(field, "is required")
		}
		if seen[user] {
			return model.Invalid(field, "duplicate user "+user)
		}
		seen[user] = true
		records = append(records, model.Attendance{
			SessionID:    sessionID,
			UserID:       user,
			Present:      r.Present,
			Observations: textclean.Clean(r.Observations),
			RecordedBy:   c.UserID,
			RecordedAt:   now,
		})
	}

	err = s.store.RecordAttendance(ctx, sessionID, records, func(sess *model.Session, active map[string]bool) error {
		if err := allowed(sess); err != nil {
			return err
		}
		for i, r := range records {
			if !active[r.UserID] {
				return model.Invalid(fmt.Sprintf("records[%d].user_id", i), "user "+r.UserID+" is not actively enrolled in the workshop")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("attendance recorded",
		zap.String("session_id", sessionID),
		zap.Int("records", len(records)),
		zap.String("by", c.UserID))
	s.invalidate(ctx, sess.WorkshopID)
	return nil
}

// SessionAttendance returns a session's records with present and absent
// counts and the attendance rate.
func (s *AttendanceService) SessionAttendance(ctx context.Context, c model.Caller, sessionID string) (*model.SessionAttendance, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	w, err := s.store.GetWorkshop(ctx, sess.WorkshopID)
	if err != nil {
		return nil, err
	}
	if !managesSession(c, w, sess) {
		return nil, model.ErrForbidden
	}
	records, err := s.store.ListAttendance(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}

	out := &model.SessionAttendance{SessionID: sessionID, Records: nonNil(records)}
	for _, r := range records {
		if r.Present {
			out.PresentCount++
		} else {
			out.AbsentCount++
		}
	}
	out.Rate = report.Rate(out.PresentCount, len(records))
	return out, nil
}
