package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/calendar"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/model"
)

type scheduleStore interface {
	WorkshopStore
	SessionStore
	enrollmentLister
}

// ScheduleSessions splits a caller's sessions by when they happen.
type ScheduleSessions struct {
	Today    []model.Session `json:"today"`
	Upcoming []model.Session `json:"upcoming"`
	All      []model.Session `json:"all"`
}

// ScheduleStats counts a caller's sessions.
type ScheduleStats struct {
	Today         int `json:"today"`
	Upcoming      int `json:"upcoming"`
	Completed     int `json:"completed"`
	Cancelled     int `json:"cancelled"`
	TotalSessions int `json:"total_sessions"`
}

// Schedule is the dashboard view of a caller's sessions and workshops.
type Schedule struct {
	Date      string           `json:"date"`
	Sessions  ScheduleSessions `json:"sessions"`
	Stats     ScheduleStats    `json:"stats"`
	Workshops []model.Workshop `json:"workshops"`
}

// Calendar is a week or month grid of a caller's sessions.
type Calendar struct {
	View      calendar.View                 `json:"view"`
	Reference string                        `json:"reference"`
	Previous  string                        `json:"previous"`
	Next      string                        `json:"next"`
	Today     string                        `json:"today"`
	Timezone  string                        `json:"timezone"`
	Days      []calendar.Day[model.Session] `json:"days"`
}

// ScheduleService projects sessions onto dashboards and calendars.
type ScheduleService struct {
	base
	store scheduleStore
}

// NewScheduleService constructs a ScheduleService.
func NewScheduleService(store scheduleStore, opts Options) *ScheduleService {
	return &ScheduleService{base: newBase(opts), store: store}
}

// Schedule returns the caller's sessions between from and to, both
// optional and inclusive, grouped into today and upcoming.
func (s *ScheduleService) Schedule(ctx context.Context, c model.Caller, from, to string) (*Schedule, error) {
	if from != "" {
		if err := validDate("from", from); err != nil {
			return nil, err
		}
	}
	if to != "" {
		if err := validDate("to", to); err != nil {
			return nil, err
		}
	}
	if from != "" && to != "" && to < from {
		return nil, model.Invalid("to", "cannot be before from")
	}

	f, err := sessionScope(ctx, s.store, c)
	if err != nil {
		return nil, err
	}
	f.From, f.To = from, to
	sessions, err := s.store.ListSessions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	workshops, err := s.workshops(ctx, c)
	if err != nil {
		return nil, err
	}

	today := s.today()
	out := &Schedule{
		Date: today,
		Sessions: ScheduleSessions{
			Today:    []model.Session{},
			Upcoming: []model.Session{},
			All:      nonNil(sessions),
		},
		Workshops: nonNil(workshops),
	}
	for _, sess := range sessions {
		switch {
		case sess.Date == today:
			out.Sessions.Today = append(out.Sessions.Today, sess)
		case sess.Date > today && sess.Status.Actionable():
			out.Sessions.Upcoming = append(out.Sessions.Upcoming, sess)
		}
		switch sess.Status {
		case model.SessionCompleted:
			out.Stats.Completed++
		case model.SessionCancelled:
			out.Stats.Cancelled++
		}
	}
	out.Stats.Today = len(out.Sessions.Today)
	out.Stats.Upcoming = len(out.Sessions.Upcoming)
	out.Stats.TotalSessions = len(sessions)
	return out, nil
}

// Calendar lays the caller's sessions out on the week or month containing
// date. An empty date means today; tz names an IANA zone and defaults to the
// service timezone.
func (s *ScheduleService) Calendar(ctx context.Context, c model.Caller, view, date, tz string) (*Calendar, error) {
	v, err := calendar.ParseView(view)
	if err != nil {
		return nil, model.Invalid("view", "must be week or month")
	}
	loc := s.loc
	if tz != "" {
		if loc, err = time.LoadLocation(tz); err != nil {
			return nil, model.Invalid("tz", "unknown timezone "+tz)
		}
	}
	today := calendar.Today(s.now(), loc)
	ref := today
	if date != "" {
		if ref, err = calendar.ParseDate(date, loc); err != nil {
			return nil, model.Invalid("date", "must be a YYYY-MM-DD date")
		}
	}

	f, err := sessionScope(ctx, s.store, c)
	if err != nil {
		return nil, err
	}
	first, last := calendar.Span(ref, v)
	f.From, f.To = calendar.DateKey(first), calendar.DateKey(last)
	sessions, err := s.store.ListSessions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	todayKey := calendar.DateKey(today)
	days := slices.Collect(calendar.Grid(ref, v, todayKey, sessions, func(sess model.Session) string { return sess.Date }))
	return &Calendar{
		View:      v,
		Reference: calendar.DateKey(ref),
		Previous:  calendar.DateKey(calendar.Advance(ref, v, -1)),
		Next:      calendar.DateKey(calendar.Advance(ref, v, 1)),
		Today:     todayKey,
		Timezone:  loc.String(),
		Days:      days,
	}, nil
}

func (s *ScheduleService) workshops(ctx context.Context, c model.Caller) ([]model.Workshop, error) {
	switch c.Role {
	case model.RoleProfessional:
		return s.store.ListWorkshops(ctx, model.WorkshopFilter{ProfessionalID: c.UserID})
	case model.RoleClient:
		ids, err := enrolledWorkshops(ctx, s.store, c.UserID)
		if err != nil {
			return nil, err
		}
		out := make([]model.Workshop, 0, len(ids))
		for _, id := range ids {
			w, err := s.store.GetWorkshop(ctx, id)
			if err != nil {
				return nil, err
			}
			out = append(out, *w)
		}
		return out, nil
	}
	return s.store.ListWorkshops(ctx, model.WorkshopFilter{})
}
