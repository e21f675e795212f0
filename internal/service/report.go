package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/model"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/report"
)

type reportStore interface {
	WorkshopStore
	SessionStore
	AttendanceStore
}

// Overview aggregates the reports of every workshop a caller is
// responsible for.
type Overview struct {
	Workshops         []report.Workshop `json:"workshops"`
	CompletedSessions int               `json:"completed_sessions"`
	AverageRate       float64           `json:"average_attendance_rate"`
}

// ReportService serves attendance projections, caching workshop reports
// when a cache is configured.
type ReportService struct {
	base
	store reportStore
}

// NewReportService constructs a ReportService.
func NewReportService(store reportStore, opts Options) *ReportService {
	return &ReportService{base: newBase(opts), store: store}
}

// WorkshopReport returns the attendance report of a workshop. top limits the
// top-attendance list; zero or less means report.DefaultTop.
func (s *ReportService) WorkshopReport(ctx context.Context, c model.Caller, workshopID string, top int) (*report.Workshop, error) {
	w, err := s.store.GetWorkshop(ctx, workshopID)
	if err != nil {
		return nil, err
	}
	if !manages(c, w) {
		return nil, model.ErrForbidden
	}
	r, err := s.build(ctx, w, top)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Overview returns reports for the workshops c runs, or for all workshops
// when c is staff.
func (s *ReportService) Overview(ctx context.Context, c model.Caller) (*Overview, error) {
	f := model.WorkshopFilter{}
	switch {
	case c.Role == model.RoleProfessional:
		f.ProfessionalID = c.UserID
	case !c.IsStaff():
		return nil, model.ErrForbidden
	}
	workshops, err := s.store.ListWorkshops(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list workshops: %w", err)
	}

	out := &Overview{Workshops: make([]report.Workshop, 0, len(workshops))}
	var all []report.SessionRate
	for i := range workshops {
		r, err := s.build(ctx, &workshops[i], 0)
		if err != nil {
			return nil, err
		}
		out.Workshops = append(out.Workshops, r)
		out.CompletedSessions += r.CompletedSessions
		all = append(all, r.Sessions...)
	}
	out.AverageRate = report.Average(all)
	return out, nil
}

// UserHistory returns one user's attendance trail in a workshop. Clients may
// only read their own.
func (s *ReportService) UserHistory(ctx context.Context, c model.Caller, workshopID, userID string) (*report.History, error) {
	w, err := s.store.GetWorkshop(ctx, workshopID)
	if err != nil {
		return nil, err
	}
	self := c.Role == model.RoleClient && c.UserID == userID
	if !self && !manages(c, w) {
		return nil, model.ErrForbidden
	}
	sessions, records, err := s.load(ctx, workshopID)
	if err != nil {
		return nil, err
	}
	h := report.UserHistory(workshopID, userID, sessions, records)
	return &h, nil
}

// build serves the default-sized report from the cache and stores it there
// after a miss. Other sizes are always computed. The version is read before
// loading so that a mutation landing mid-build keeps the result out of the
// cache.
func (s *ReportService) build(ctx context.Context, w *model.Workshop, top int) (report.Workshop, error) {
	cacheable := top <= 0 || top == report.DefaultTop
	var version int64
	if cacheable {
		if r, ok := s.cache.Workshop(ctx, w.ID); ok {
			return r, nil
		}
		version, cacheable = s.cache.Version(ctx, w.ID)
	}
	sessions, records, err := s.load(ctx, w.ID)
	if err != nil {
		return report.Workshop{}, err
	}
	r := report.ForWorkshop(*w, sessions, records, top)
	if cacheable {
		s.cache.PutWorkshop(ctx, r, version)
		s.log.Debug("report computed for cache", zap.String("workshop_id", w.ID), zap.Int64("version", version))
	}
	return r, nil
}

func (s *ReportService) load(ctx context.Context, workshopID string) ([]model.Session, []model.Attendance, error) {
	sessions, err := s.store.ListSessions(ctx, model.SessionFilter{WorkshopIDs: []string{workshopID}})
	if err != nil {
		return nil, nil, fmt.Errorf("list sessions: %w", err)
	}
	ids := make([]string, len(sessions))
	for i, sess := range sessions {
		ids[i] = sess.ID
	}
	records, err := s.store.ListAttendanceForSessions(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("list attendance: %w", err)
	}
	return sessions, records, nil
}
