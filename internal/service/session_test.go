package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/model"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/notify"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/repository/memstore"
)

func (f *fixture) session(t *testing.T, c model.Caller, workshopID, date, start, end string) *model.Session {
	t.Helper()
	s, err := f.svc.Sessions.Create(context.Background(), c, model.CreateSessionRequest{
		WorkshopID:     workshopID,
		Date:           date,
		StartTime:      start,
		EndTime:        end,
		Topic:          "Respiración",
		ProfessionalID: "p1",
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return s
}

// ─── Sessions ─────────────────────────────────────────────────────────────────

func TestCreateSession(t *testing.T) {
	f := newFixture(t)
	w := f.workshop(t, 2)

	s := f.session(t, profAna, w.ID, "2026-10-19", "10:00", "11:00")
	if s.Status != model.SessionScheduled || s.ProfessionalID != "p1" {
		t.Errorf("session = %+v", s)
	}
	got, err := f.svc.Sessions.Get(context.Background(), staff, s.ID)
	if err != nil || got.ID != s.ID {
		t.Fatalf("get = %+v, %v", got, err)
	}
}

func TestCreateSession_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.workshop(t, 2)
	f.session(t, staff, w.ID, "2026-10-21", "10:00", "11:00")

	tests := []struct {
		name  string
		req   model.CreateSessionRequest
		field string
	}{
		{"past date", model.CreateSessionRequest{Date: "2026-10-18", StartTime: "10:00", EndTime: "11:00"}, "date"},
		{"bad date", model.CreateSessionRequest{Date: "21-10-2026", StartTime: "10:00", EndTime: "11:00"}, "date"},
		{"start after end", model.CreateSessionRequest{Date: "2026-10-22", StartTime: "12:00", EndTime: "11:00"}, "end_time"},
		{"equal times", model.CreateSessionRequest{Date: "2026-10-22", StartTime: "11:00", EndTime: "11:00"}, "end_time"},
		{"bad time", model.CreateSessionRequest{Date: "2026-10-22", StartTime: "25:00", EndTime: "26:00"}, "start_time"},
		{"overlap", model.CreateSessionRequest{Date: "2026-10-21", StartTime: "10:30", EndTime: "11:30"}, "start_time"},
		{"unknown professional", model.CreateSessionRequest{Date: "2026-10-22", StartTime: "10:00", EndTime: "11:00", ProfessionalID: "p9"}, "professional_id"},
		{"missing professional", model.CreateSessionRequest{Date: "2026-10-22", StartTime: "10:00", EndTime: "11:00", ProfessionalID: " "}, "professional_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.WorkshopID = w.ID
			if tt.req.ProfessionalID == "" {
				tt.req.ProfessionalID = "p1"
			}
			_, err := f.svc.Sessions.Create(ctx, staff, tt.req)
			wantValidation(t, err, tt.field)
		})
	}
}

func TestCreateSession_OutsideWorkshopRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.workshop(t, 2)
	end := "2026-10-31"
	if _, err := f.svc.Workshops.Update(ctx, staff, w.ID, model.UpdateWorkshopRequest{EndDate: &end}); err != nil {
		t.Fatalf("set end date: %v", err)
	}
	_, err := f.svc.Sessions.Create(ctx, staff, model.CreateSessionRequest{
		WorkshopID: w.ID, Date: "2026-11-02", StartTime: "10:00", EndTime: "11:00", ProfessionalID: "p1",
	})
	wantValidation(t, err, "date")
}

func TestCreateSession_Authorization(t *testing.T) {
	f := newFixture(t)
	w := f.workshop(t, 2)
	req := model.CreateSessionRequest{WorkshopID: w.ID, Date: "2026-10-20", StartTime: "10:00", EndTime: "11:00", ProfessionalID: "p1"}
	for _, c := range []model.Caller{profBruno, client("A")} {
		if _, err := f.svc.Sessions.Create(context.Background(), c, req); !errors.Is(err, model.ErrForbidden) {
			t.Errorf("%s: err = %v, want ErrForbidden", c.UserID, err)
		}
	}
}

func TestSessionLifecycle_Complete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.workshop(t, 2)
	s := f.session(t, staff, w.ID, "2026-10-19", "10:00", "11:00")

	_, err := f.svc.Sessions.Complete(ctx, profAna, s.ID, model.CompleteRequest{})
	wantValidation(t, err, "confirm")

	done, err := f.svc.Sessions.Complete(ctx, profAna, s.ID, model.CompleteRequest{Confirm: true})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != model.SessionCompleted {
		t.Errorf("status = %s", done.Status)
	}

	if _, err := f.svc.Sessions.Complete(ctx, staff, s.ID, model.CompleteRequest{Confirm: true}); !errors.Is(err, model.ErrInvalidTransition) {
		t.Errorf("complete twice: err = %v", err)
	}
	if _, err := f.svc.Sessions.Cancel(ctx, staff, s.ID, model.CancelRequest{Reason: "lluvia"}); !errors.Is(err, model.ErrInvalidTransition) {
		t.Errorf("cancel completed: err = %v", err)
	}
	topic := "otro"
	if _, err := f.svc.Sessions.Update(ctx, staff, s.ID, model.UpdateSessionRequest{Topic: &topic}); !errors.Is(err, model.ErrInvalidTransition) {
		t.Errorf("update completed: err = %v", err)
	}
	err = f.svc.Sessions.Delete(ctx, staff, s.ID)
	if !errors.Is(err, model.ErrInvalidTransition) || !strings.Contains(err.Error(), "session already completed") {
		t.Errorf("delete completed: err = %v", err)
	}
}

func TestSessionLifecycle_Cancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.workshop(t, 2)
	s := f.session(t, staff, w.ID, "2026-10-20", "10:00", "11:00")

	_, err := f.svc.Sessions.Cancel(ctx, staff, s.ID, model.CancelRequest{Reason: "   "})
	wantValidation(t, err, "reason")

	got, err := f.svc.Sessions.Cancel(ctx, staff, s.ID, model.CancelRequest{Reason: "Feriado"})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != model.SessionCancelled || !strings.HasPrefix(got.Observations, "Cancelled: Feriado") {
		t.Errorf("session = %+v", got)
	}
	evs := f.pub.ofType(notify.SessionCancelled)
	if len(evs) != 1 || evs[0].SessionID != s.ID || evs[0].Reason != "Feriado" {
		t.Errorf("events = %+v", evs)
	}
	if _, err := f.svc.Sessions.Complete(ctx, staff, s.ID, model.CompleteRequest{Confirm: true}); !errors.Is(err, model.ErrInvalidTransition) {
		t.Errorf("complete cancelled: err = %v", err)
	}

	// A cancelled session frees its slot and may still be deleted.
	f.session(t, staff, w.ID, "2026-10-20", "10:00", "11:00")
	if err := f.svc.Sessions.Delete(ctx, staff, s.ID); err != nil {
		t.Fatalf("delete cancelled: %v", err)
	}
	if _, err := f.svc.Sessions.Get(ctx, staff, s.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("get deleted: err = %v, want ErrNotFound", err)
	}
}

func TestSessionLifecycle_Reschedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.workshop(t, 2)
	s := f.session(t, staff, w.ID, "2026-10-20", "10:00", "11:00")

	_, err := f.svc.Sessions.Reschedule(ctx, staff, s.ID, model.RescheduleRequest{Date: "2026-10-01", StartTime: "10:00", EndTime: "11:00"})
	wantValidation(t, err, "date")

	got, err := f.svc.Sessions.Reschedule(ctx, profAna, s.ID, model.RescheduleRequest{Date: "2026-10-22", StartTime: "15:00", EndTime: "16:30"})
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if got.Status != model.SessionRescheduled || got.Date != "2026-10-22" || got.StartTime != "15:00" {
		t.Errorf("session = %+v", got)
	}
	if !strings.Contains(got.Observations, "Rescheduled from 2026-10-20 10:00-11:00") {
		t.Errorf("observations = %q", got.Observations)
	}
	evs := f.pub.ofType(notify.SessionRescheduled)
	if len(evs) != 1 || evs[0].PreviousSlot != "2026-10-20 10:00-11:00" || evs[0].Date != "2026-10-22" {
		t.Errorf("events = %+v", evs)
	}

	// Rescheduled sessions stay actionable.
	if _, err := f.svc.Sessions.Reschedule(ctx, staff, s.ID, model.RescheduleRequest{Date: "2026-10-23", StartTime: "15:00", EndTime: "16:00"}); err != nil {
		t.Fatalf("reschedule again: %v", err)
	}
	if _, err := f.svc.Sessions.Complete(ctx, staff, s.ID, model.CompleteRequest{Confirm: true}); err != nil {
		t.Fatalf("complete rescheduled: %v", err)
	}
}

func TestUpdateSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.workshop(t, 2)
	s := f.session(t, staff, w.ID, "2026-10-20", "10:00", "11:00")
	f.session(t, staff, w.ID, "2026-10-20", "12:00", "13:00")

	topic := "<script>x</script>Estiramientos"
	got, err := f.svc.Sessions.Update(ctx, staff, s.ID, model.UpdateSessionRequest{Topic: &topic})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Topic != "Estiramientos" || got.StartTime != "10:00" {
		t.Errorf("session = %+v", got)
	}

	start := "12:30"
	end := "13:30"
	_, err = f.svc.Sessions.Update(ctx, staff, s.ID, model.UpdateSessionRequest{StartTime: &start, EndTime: &end})
	wantValidation(t, err, "start_time")
	after, _ := f.svc.Sessions.Get(ctx, staff, s.ID)
	if after.StartTime != "10:00" {
		t.Errorf("failed update moved the session to %s", after.StartTime)
	}

	prof := "p2"
	got, err = f.svc.Sessions.Update(ctx, staff, s.ID, model.UpdateSessionRequest{ProfessionalID: &prof})
	if err != nil || got.ProfessionalID != "p2" {
		t.Fatalf("reassign = %+v, %v", got, err)
	}
	// The newly assigned professional may act on the session without
	// owning the workshop.
	if _, err := f.svc.Sessions.Complete(ctx, profBruno, s.ID, model.CompleteRequest{Confirm: true}); err != nil {
		t.Fatalf("assigned professional complete: %v", err)
	}
}

func TestSessionVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.workshop(t, 1)
	f.enroll(t, w.ID, "A")
	f.enroll(t, w.ID, "B")
	s := f.session(t, staff, w.ID, "2026-10-20", "10:00", "11:00")

	if _, err := f.svc.Sessions.Get(ctx, client("A"), s.ID); err != nil {
		t.Errorf("enrolled client: %v", err)
	}
	if _, err := f.svc.Sessions.Get(ctx, client("B"), s.ID); !errors.Is(err, model.ErrForbidden) {
		t.Errorf("waitlisted client: err = %v, want ErrForbidden", err)
	}
	if _, err := f.svc.Sessions.ListByWorkshop(ctx, profBruno, w.ID); !errors.Is(err, model.ErrForbidden) {
		t.Errorf("other professional: err = %v, want ErrForbidden", err)
	}
	list, err := f.svc.Sessions.ListByWorkshop(ctx, client("A"), w.ID)
	if err != nil || len(list) != 1 {
		t.Errorf("list = %v, %v", list, err)
	}
	mine, err := f.svc.Sessions.ListForCaller(ctx, client("B"), "", "")
	if err != nil || len(mine) != 0 {
		t.Errorf("waitlisted client sessions = %v, %v", mine, err)
	}
}

// ─── Attendance ───────────────────────────────────────────────────────────────

func TestAttendance_TakeAndRate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.workshop(t, 2)
	f.enroll(t, w.ID, "A")
	f.enroll(t, w.ID, "B")
	f.enroll(t, w.ID, "C")
	s := f.session(t, staff, w.ID, "2026-10-19", "10:00", "11:00")

	err := f.svc.Attendance.Take(ctx, profAna, s.ID, model.AttendanceRequest{Records: []model.AttendanceRecord{
		{UserID: "A", Present: true},
		{UserID: "B", Present: false, Observations: "avisó"},
	}})
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	got, err := f.svc.Attendance.SessionAttendance(ctx, staff, s.ID)
	if err != nil {
		t.Fatalf("session attendance: %v", err)
	}
	if got.PresentCount != 1 || got.AbsentCount != 1 || got.Rate != 0.5 {
		t.Errorf("counts = %d/%d rate %v, want 1/1 0.5", got.PresentCount, got.AbsentCount, got.Rate)
	}
	for _, r := range got.Records {
		if r.RecordedBy != "p1" {
			t.Errorf("recorded_by = %q", r.RecordedBy)
		}
	}

	// C is only waitlisted.
	err = f.svc.Attendance.Take(ctx, staff, s.ID, model.AttendanceRequest{Records: []model.AttendanceRecord{
		{UserID: "A", Present: false},
		{UserID: "C", Present: true},
	}})
	wantValidation(t, err, "records[1].user_id")
	got, _ = f.svc.Attendance.SessionAttendance(ctx, staff, s.ID)
	if got.PresentCount != 1 || len(got.Records) != 2 {
		t.Errorf("rejected call changed records: %+v", got)
	}

	sess, _ := f.svc.Sessions.Get(ctx, staff, s.ID)
	if sess.Status != model.SessionScheduled {
		t.Errorf("taking attendance changed status to %s", sess.Status)
	}
}

func TestAttendance_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.workshop(t, 2)
	f.enroll(t, w.ID, "A")
	s := f.session(t, staff, w.ID, "2026-10-19", "10:00", "11:00")

	err := f.svc.Attendance.Take(ctx, staff, s.ID, model.AttendanceRequest{})
	wantValidation(t, err, "records")

	err = f.svc.Attendance.Take(ctx, staff, s.ID, model.AttendanceRequest{Records: []model.AttendanceRecord{
		{UserID: "A", Present: true},
		{UserID: " A ", Present: false},
	}})
	wantValidation(t, err, "records[1].user_id")

	err = f.svc.Attendance.Take(ctx, client("A"), s.ID, model.AttendanceRequest{Records: []model.AttendanceRecord{{UserID: "A", Present: true}}})
	if !errors.Is(err, model.ErrForbidden) {
		t.Errorf("client: err = %v, want ErrForbidden", err)
	}
	if _, err := f.svc.Attendance.SessionAttendance(ctx, staff, "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("unknown session: err = %v, want ErrNotFound", err)
	}
}

func TestAttendance_StatusRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.workshop(t, 2)
	f.enroll(t, w.ID, "A")
	f.enroll(t, w.ID, "B")
	held := f.session(t, staff, w.ID, "2026-10-19", "10:00", "11:00")
	off := f.session(t, staff, w.ID, "2026-10-20", "10:00", "11:00")
	rec := model.AttendanceRequest{Records: []model.AttendanceRecord{{UserID: "A", Present: true}, {UserID: "B", Present: true}}}

	if err := f.svc.Attendance.Take(ctx, staff, held.ID, rec); err != nil {
		t.Fatalf("take: %v", err)
	}
	if _, err := f.svc.Sessions.Complete(ctx, staff, held.ID, model.CompleteRequest{Confirm: true}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := f.svc.Attendance.Take(ctx, staff, held.ID, rec); !errors.Is(err, model.ErrInvalidTransition) {
		t.Errorf("take on completed: err = %v, want ErrInvalidTransition", err)
	}

	fix := model.AttendanceRequest{Records: []model.AttendanceRecord{{UserID: "B", Present: false}}}
	if err := f.svc.Attendance.Update(ctx, staff, held.ID, fix); err != nil {
		t.Fatalf("update on completed: %v", err)
	}
	got, _ := f.svc.Attendance.SessionAttendance(ctx, staff, held.ID)
	if got.PresentCount != 1 || got.AbsentCount != 1 {
		t.Errorf("after correction = %d present, %d absent; A must be untouched", got.PresentCount, got.AbsentCount)
	}

	if _, err := f.svc.Sessions.Cancel(ctx, staff, off.ID, model.CancelRequest{Reason: "paro"}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := f.svc.Attendance.Update(ctx, staff, off.ID, fix); !errors.Is(err, model.ErrInvalidTransition) {
		t.Errorf("update on cancelled: err = %v, want ErrInvalidTransition", err)
	}
}

// ─── Schedule ─────────────────────────────────────────────────────────────────

func TestSchedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w1 := f.workshop(t, 2)
	w2 := f.workshop(t, 2)
	f.enroll(t, w1.ID, "A")

	f.session(t, staff, w1.ID, "2026-10-19", "10:00", "11:00")
	f.session(t, staff, w1.ID, "2026-10-21", "10:00", "11:00")
	gone := f.session(t, staff, w1.ID, "2026-10-23", "10:00", "11:00")
	if _, err := f.svc.Sessions.Cancel(ctx, staff, gone.ID, model.CancelRequest{Reason: "x"}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	f.session(t, staff, w2.ID, "2026-10-22", "10:00", "11:00")

	all, err := f.svc.Schedule.Schedule(ctx, staff, "", "")
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if all.Stats.TotalSessions != 4 || all.Stats.Today != 1 || all.Stats.Upcoming != 2 || all.Stats.Cancelled != 1 {
		t.Errorf("staff stats = %+v", all.Stats)
	}
	if len(all.Workshops) != 2 || all.Date != "2026-10-19" {
		t.Errorf("staff workshops = %d, date %s", len(all.Workshops), all.Date)
	}

	mine, err := f.svc.Schedule.Schedule(ctx, client("A"), "", "")
	if err != nil {
		t.Fatalf("client schedule: %v", err)
	}
	if mine.Stats.TotalSessions != 3 || len(mine.Workshops) != 1 || mine.Workshops[0].ID != w1.ID {
		t.Errorf("client schedule = %+v", mine.Stats)
	}

	ranged, err := f.svc.Schedule.Schedule(ctx, staff, "2026-10-20", "2026-10-22")
	if err != nil {
		t.Fatalf("ranged: %v", err)
	}
	if ranged.Stats.TotalSessions != 2 {
		t.Errorf("ranged total = %d, want 2", ranged.Stats.TotalSessions)
	}

	_, err = f.svc.Schedule.Schedule(ctx, staff, "2026-10-22", "2026-10-20")
	wantValidation(t, err, "to")

	nobody, err := f.svc.Schedule.Schedule(ctx, client("Z"), "", "")
	if err != nil || nobody.Stats.TotalSessions != 0 || len(nobody.Workshops) != 0 {
		t.Errorf("unenrolled client = %+v, %v", nobody, err)
	}
}

func TestCalendar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.workshop(t, 2)
	f.session(t, staff, w.ID, "2026-10-21", "10:00", "11:00")
	f.session(t, staff, w.ID, "2026-11-03", "10:00", "11:00")

	week, err := f.svc.Schedule.Calendar(ctx, profAna, "", "", "")
	if err != nil {
		t.Fatalf("week: %v", err)
	}
	if week.View != "week" || len(week.Days) != 7 || week.Days[0].Date != "2026-10-19" {
		t.Fatalf("week = %+v", week)
	}
	if !week.Days[0].IsToday || len(week.Days[2].Items) != 1 {
		t.Errorf("week days = %+v", week.Days)
	}
	if week.Previous != "2026-10-12" || week.Next != "2026-10-26" {
		t.Errorf("navigation = %s / %s", week.Previous, week.Next)
	}

	month, err := f.svc.Schedule.Calendar(ctx, staff, "month", "2026-11-15", "UTC")
	if err != nil {
		t.Fatalf("month: %v", err)
	}
	if len(month.Days)%7 != 0 || month.Days[0].Date != "2026-10-26" {
		t.Fatalf("month starts %s with %d days", month.Days[0].Date, len(month.Days))
	}
	items := 0
	for _, d := range month.Days {
		items += len(d.Items)
		if d.IsToday {
			t.Errorf("%s marked today outside the current week", d.Date)
		}
	}
	if items != 1 {
		t.Errorf("month items = %d, want 1", items)
	}

	_, err = f.svc.Schedule.Calendar(ctx, staff, "year", "", "")
	wantValidation(t, err, "view")
	_, err = f.svc.Schedule.Calendar(ctx, staff, "week", "", "Mars/Base")
	wantValidation(t, err, "tz")
}

// ─── Reports ──────────────────────────────────────────────────────────────────

func TestWorkshopReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.workshop(t, 3)
	for _, u := range []string{"A", "B", "C"} {
		f.enroll(t, w.ID, u)
	}
	s1 := f.session(t, staff, w.ID, "2026-10-19", "10:00", "11:00")
	s2 := f.session(t, staff, w.ID, "2026-10-19", "11:00", "12:00")
	f.session(t, staff, w.ID, "2026-10-20", "10:00", "11:00")

	take := func(id string, present map[string]bool) {
		t.Helper()
		var recs []model.AttendanceRecord
		for _, u := range []string{"A", "B", "C"} {
			recs = append(recs, model.AttendanceRecord{UserID: u, Present: present[u]})
		}
		if err := f.svc.Attendance.Take(ctx, staff, id, model.AttendanceRequest{Records: recs}); err != nil {
			t.Fatalf("take: %v", err)
		}
		if _, err := f.svc.Sessions.Complete(ctx, staff, id, model.CompleteRequest{Confirm: true}); err != nil {
			t.Fatalf("complete: %v", err)
		}
	}
	take(s1.ID, map[string]bool{"A": true, "B": true, "C": true})
	take(s2.ID, map[string]bool{"A": true})

	r, err := f.svc.Reports.WorkshopReport(ctx, profAna, w.ID, 0)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if r.CompletedSessions != 2 || len(r.Sessions) != 2 {
		t.Errorf("completed = %d, sessions = %d", r.CompletedSessions, len(r.Sessions))
	}
	if want := (1.0 + 1.0/3) / 2; r.AverageRate < want-1e-9 || r.AverageRate > want+1e-9 {
		t.Errorf("average = %v, want %v", r.AverageRate, want)
	}
	if len(r.LowAttendance) != 2 || len(r.TopAttendance) != 3 || r.TopAttendance[0].UserID != "A" {
		t.Errorf("low = %+v top = %+v", r.LowAttendance, r.TopAttendance)
	}

	if _, err := f.svc.Reports.WorkshopReport(ctx, staff, w.ID, 0); err != nil {
		t.Fatalf("second report: %v", err)
	}
	if f.cache.hits != 1 {
		t.Errorf("cache hits = %d, want 1", f.cache.hits)
	}

	fix := model.AttendanceRequest{Records: []model.AttendanceRecord{{UserID: "B", Present: true}}}
	if err := f.svc.Attendance.Update(ctx, staff, s2.ID, fix); err != nil {
		t.Fatalf("update: %v", err)
	}
	r, _ = f.svc.Reports.WorkshopReport(ctx, staff, w.ID, 0)
	if f.cache.hits != 1 || len(r.LowAttendance) != 1 {
		t.Errorf("stale report after attendance change: hits %d, low %+v", f.cache.hits, r.LowAttendance)
	}

	if _, err := f.svc.Reports.WorkshopReport(ctx, client("A"), w.ID, 0); !errors.Is(err, model.ErrForbidden) {
		t.Errorf("client report: err = %v, want ErrForbidden", err)
	}
}

func TestOverviewAndHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.workshop(t, 2)
	f.enroll(t, w.ID, "A")
	s := f.session(t, staff, w.ID, "2026-10-19", "10:00", "11:00")
	f.session(t, staff, w.ID, "2026-10-21", "10:00", "11:00")
	if err := f.svc.Attendance.Take(ctx, staff, s.ID, model.AttendanceRequest{Records: []model.AttendanceRecord{{UserID: "A", Present: true}}}); err != nil {
		t.Fatalf("take: %v", err)
	}
	if _, err := f.svc.Sessions.Complete(ctx, staff, s.ID, model.CompleteRequest{Confirm: true}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	ov, err := f.svc.Reports.Overview(ctx, profAna)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if len(ov.Workshops) != 1 || ov.CompletedSessions != 1 || ov.AverageRate != 1 {
		t.Errorf("overview = %+v", ov)
	}
	ov, err = f.svc.Reports.Overview(ctx, profBruno)
	if err != nil || len(ov.Workshops) != 0 {
		t.Errorf("other professional overview = %+v, %v", ov, err)
	}
	if _, err := f.svc.Reports.Overview(ctx, client("A")); !errors.Is(err, model.ErrForbidden) {
		t.Errorf("client overview: err = %v, want ErrForbidden", err)
	}

	h, err := f.svc.Reports.UserHistory(ctx, client("A"), w.ID, "A")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(h.Entries) != 2 || h.Total != 1 || h.Rate != 1 {
		t.Errorf("history = %+v", h)
	}
	if h.Entries[0].Present == nil || !*h.Entries[0].Present || h.Entries[1].Present != nil {
		t.Errorf("entries = %+v", h.Entries)
	}
	if _, err := f.svc.Reports.UserHistory(ctx, client("B"), w.ID, "A"); !errors.Is(err, model.ErrForbidden) {
		t.Errorf("other client history: err = %v, want ErrForbidden", err)
	}
}

// midBuildStore runs hook once, right after the report build has read the
// sessions of a workshop.
type midBuildStore struct {
	*memstore.Store
	hook func()
}

func (m *midBuildStore) ListSessions(ctx context.Context, f model.SessionFilter) ([]model.Session, error) {
	out, err := m.Store.ListSessions(ctx, f)
	if m.hook != nil {
		hook := m.hook
		m.hook = nil
		hook()
	}
	return out, err
}

func TestWorkshopReport_MutationDuringBuildIsNotCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.workshop(t, 3)
	f.enroll(t, w.ID, "A")
	sess := f.session(t, staff, w.ID, "2026-10-19", "10:00", "11:00")
	rec := model.AttendanceRequest{Records: []model.AttendanceRecord{{UserID: "A", Present: true}}}
	if err := f.svc.Attendance.Take(ctx, staff, sess.ID, rec); err != nil {
		t.Fatalf("take: %v", err)
	}

	store := &midBuildStore{Store: f.store}
	store.hook = func() {
		if _, err := f.svc.Sessions.Complete(ctx, staff, sess.ID, model.CompleteRequest{Confirm: true}); err != nil {
			t.Errorf("complete: %v", err)
		}
	}
	racing := NewReportService(store, Options{Cache: f.cache})
	r, err := racing.WorkshopReport(ctx, staff, w.ID, 0)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if r.CompletedSessions != 0 {
		t.Fatalf("completed = %d, the read predates the completion", r.CompletedSessions)
	}
	if f.cache.stale != 1 {
		t.Errorf("stale puts = %d, want 1", f.cache.stale)
	}

	r, err = f.svc.Reports.WorkshopReport(ctx, staff, w.ID, 0)
	if err != nil {
		t.Fatalf("report after completion: %v", err)
	}
	if r.CompletedSessions != 1 || r.AverageRate != 1 {
		t.Errorf("completed = %d, average = %v, want 1 and 1", r.CompletedSessions, r.AverageRate)
	}
}
