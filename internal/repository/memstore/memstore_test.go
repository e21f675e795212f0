package memstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/model"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/waitlist"
)

var t0 = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func seedWorkshop(t *testing.T, s *Store, max int) *model.Workshop {
	t.Helper()
	w := &model.Workshop{
		Name:        "Taller de lectura",
		MaxCapacity: max,
		Status:      model.WorkshopActive,
		WeekDays:    []string{"L", "X"},
		StartTime:   "10:00",
		EndTime:     "12:00",
		StartDate:   "2026-10-01",
		CreatedAt:   t0,
		UpdatedAt:   t0,
	}
	if err := s.CreateWorkshop(context.Background(), w); err != nil {
		t.Fatalf("CreateWorkshop: %v", err)
	}
	return w
}

func enroll(ctx context.Context, s *Store, workshopID, userID string) (model.Enrollment, error) {
	var got model.Enrollment
	err := s.WithBook(ctx, workshopID, func(b *waitlist.Book) error {
		e, err := b.Admit(uuid.New().String(), userID, "admin", time.Now())
		got = e
		return err
	})
	return got, err
}

func TestWithBook_PersistsJournal(t *testing.T) {
	s := New()
	ctx := context.Background()
	w := seedWorkshop(t, s, 1)

	a, err := enroll(ctx, s, w.ID, "a")
	if err != nil {
		t.Fatalf("enroll a: %v", err)
	}
	b, err := enroll(ctx, s, w.ID, "b")
	if err != nil {
		t.Fatalf("enroll b: %v", err)
	}
	if b.State != model.EnrollmentWaitlisted {
		t.Fatalf("b state = %s", b.State)
	}

	err = s.WithBook(ctx, w.ID, func(bk *waitlist.Book) error {
		_, _, err := bk.Remove(a.ID, "moved away", t0)
		return err
	})
	if err != nil {
		t.Fatalf("remove a: %v", err)
	}

	got, _ := s.GetEnrollment(ctx, b.ID)
	if got.State != model.EnrollmentActive || got.WaitlistPosition != nil {
		t.Errorf("b after promotion = %+v", got)
	}
	if _, err := s.GetEnrollment(ctx, a.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("a should be gone, err = %v", err)
	}
	ws, _ := s.GetWorkshop(ctx, w.ID)
	if ws.CurrentCapacity != 1 {
		t.Errorf("current capacity = %d", ws.CurrentCapacity)
	}
	hist, _ := s.ListUnenrollments(ctx, w.ID)
	if len(hist) != 1 || hist[0].Reason != "moved away" || hist[0].WasWaitlisted {
		t.Errorf("history = %+v", hist)
	}
}

func TestWithBook_FailureLeavesStateUntouched(t *testing.T) {
	s := New()
	ctx := context.Background()
	w := seedWorkshop(t, s, 2)

	boom := errors.New("boom")
	err := s.WithBook(ctx, w.ID, func(b *waitlist.Book) error {
		if _, err := b.Admit("e1", "u1", "admin", t0); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}

	err = s.WithBook(ctx, w.ID, func(b *waitlist.Book) error {
		b.Workshop.CurrentCapacity = 2
		b.Touch(t0)
		return nil
	})
	if !errors.Is(err, model.ErrCapacityInvariant) {
		t.Fatalf("corrupting the book should fail verification, got %v", err)
	}

	list, _ := s.ListEnrollmentsByWorkshop(ctx, w.ID)
	ws, _ := s.GetWorkshop(ctx, w.ID)
	if len(list) != 0 || ws.CurrentCapacity != 0 {
		t.Errorf("state changed: %d enrollments, capacity %d", len(list), ws.CurrentCapacity)
	}
}

func TestWithBook_UnknownWorkshop(t *testing.T) {
	err := New().WithBook(context.Background(), "nope", func(*waitlist.Book) error { return nil })
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestWithBook_CallerCanAbandonWait(t *testing.T) {
	s := New()
	w := seedWorkshop(t, s, 5)

	inside := make(chan struct{})
	leave := make(chan struct{})
	go s.WithBook(context.Background(), w.ID, func(*waitlist.Book) error {
		close(inside)
		<-leave
		return nil
	})
	<-inside

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	ran := false
	err := s.WithBook(ctx, w.ID, func(*waitlist.Book) error { ran = true; return nil })
	close(leave)
	if !errors.Is(err, context.DeadlineExceeded) || ran {
		t.Errorf("err = %v, ran = %v", err, ran)
	}

	// Other workshops are not blocked by the held lock.
	other := seedWorkshop(t, s, 5)
	if _, err := enroll(context.Background(), s, other.ID, "x"); err != nil {
		t.Errorf("enroll in other workshop: %v", err)
	}
}

func TestWithBook_ConcurrentEnrollments(t *testing.T) {
	s := New()
	ctx := context.Background()
	w := seedWorkshop(t, s, 10)

	const users = 40
	var wg sync.WaitGroup
	errs := make(chan error, users)
	for i := range users {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := enroll(ctx, s, w.ID, fmt.Sprintf("u%02d", i)); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("enroll: %v", err)
	}

	list, _ := s.ListEnrollmentsByWorkshop(ctx, w.ID)
	ws, _ := s.GetWorkshop(ctx, w.ID)
	if err := waitlist.New(*ws, list).Verify(); err != nil {
		t.Fatalf("invariants broken after concurrent enrollments: %v", err)
	}
	if ws.CurrentCapacity != 10 || len(list) != users {
		t.Errorf("capacity %d, enrollments %d", ws.CurrentCapacity, len(list))
	}
}

func TestDeleteWorkshop(t *testing.T) {
	s := New()
	ctx := context.Background()
	w := seedWorkshop(t, s, 1)
	a, _ := enroll(ctx, s, w.ID, "a")

	if err := s.DeleteWorkshop(ctx, w.ID); !errors.Is(err, model.ErrInvalidTransition) {
		t.Fatalf("delete with active enrollment: %v", err)
	}

	s.WithBook(ctx, w.ID, func(b *waitlist.Book) error {
		_, _, err := b.Remove(a.ID, "done", t0)
		return err
	})
	sess := &model.Session{WorkshopID: w.ID, Date: "2026-10-20", StartTime: "10:00", EndTime: "12:00", Status: model.SessionScheduled}
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteWorkshop(ctx, w.ID); err != nil {
		t.Fatalf("DeleteWorkshop: %v", err)
	}
	if _, err := s.GetWorkshop(ctx, w.ID); !errors.Is(err, model.ErrNotFound) {
		t.Error("workshop should be gone")
	}
	if _, err := s.GetSession(ctx, sess.ID); !errors.Is(err, model.ErrNotFound) {
		t.Error("sessions should be removed with the workshop")
	}
	if err := s.DeleteWorkshop(ctx, w.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("second delete: %v", err)
	}
}

func TestSessions_SlotsAndFilters(t *testing.T) {
	s := New()
	ctx := context.Background()
	w := seedWorkshop(t, s, 5)
	w2 := seedWorkshop(t, s, 5)

	mk := func(workshopID, date, start, end string) *model.Session {
		return &model.Session{WorkshopID: workshopID, Date: date, StartTime: start, EndTime: end,
			ProfessionalID: "p1", Status: model.SessionScheduled}
	}
	first := mk(w.ID, "2026-10-20", "10:00", "12:00")
	if err := s.CreateSession(ctx, first); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		sess    *model.Session
		wantErr bool
	}{
		{"overlap", mk(w.ID, "2026-10-20", "11:00", "13:00"), true},
		{"adjacent", mk(w.ID, "2026-10-20", "12:00", "13:00"), false},
		{"other day", mk(w.ID, "2026-10-21", "10:00", "12:00"), false},
		{"other workshop", mk(w2.ID, "2026-10-20", "10:00", "12:00"), false},
		{"unknown workshop", mk("ghost", "2026-10-20", "10:00", "12:00"), true},
	}
	for _, tt := range tests {
		err := s.CreateSession(ctx, tt.sess)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: err = %v", tt.name, err)
		}
	}

	// Moving the adjacent session onto the first one is rejected and not saved.
	all, _ := s.ListSessions(ctx, model.SessionFilter{WorkshopIDs: []string{w.ID}, From: "2026-10-20", To: "2026-10-20"})
	if len(all) != 2 {
		t.Fatalf("sessions on 2026-10-20 = %d", len(all))
	}
	_, err := s.MutateSession(ctx, all[1].ID, func(x *model.Session) error {
		x.StartTime = "09:00"
		return nil
	})
	if !model.IsValidation(err) {
		t.Errorf("overlapping edit: %v", err)
	}
	got, _ := s.GetSession(ctx, all[1].ID)
	if got.StartTime != "12:00" {
		t.Errorf("rejected edit was saved: %+v", got)
	}

	none, _ := s.ListSessions(ctx, model.SessionFilter{WorkshopIDs: []string{}})
	if len(none) != 0 {
		t.Errorf("empty workshop filter matched %d sessions", len(none))
	}
	every, _ := s.ListSessions(ctx, model.SessionFilter{ProfessionalID: "p1"})
	if len(every) != 4 {
		t.Errorf("all sessions of p1 = %d", len(every))
	}
}

func TestRecordAttendance(t *testing.T) {
	s := New()
	ctx := context.Background()
	w := seedWorkshop(t, s, 1)
	enroll(ctx, s, w.ID, "a")
	enroll(ctx, s, w.ID, "b") // waitlisted

	sess := &model.Session{WorkshopID: w.ID, Date: "2026-10-20", StartTime: "10:00", EndTime: "12:00", Status: model.SessionScheduled}
	s.CreateSession(ctx, sess)

	var seen map[string]bool
	err := s.RecordAttendance(ctx, sess.ID, []model.Attendance{{UserID: "a", Present: true}},
		func(_ *model.Session, active map[string]bool) error {
			seen = active
			return nil
		})
	if err != nil {
		t.Fatalf("RecordAttendance: %v", err)
	}
	if !seen["a"] || seen["b"] {
		t.Errorf("active set = %v, want only a", seen)
	}

	reject := errors.New("reject")
	err = s.RecordAttendance(ctx, sess.ID, []model.Attendance{{UserID: "a", Present: false}},
		func(*model.Session, map[string]bool) error { return reject })
	if !errors.Is(err, reject) {
		t.Fatalf("err = %v", err)
	}
	recs, _ := s.ListAttendance(ctx, sess.ID)
	if len(recs) != 1 || !recs[0].Present || recs[0].SessionID != sess.ID {
		t.Errorf("records = %+v", recs)
	}

	if err := s.DeleteSession(ctx, sess.ID, func(*model.Session) error { return nil }); err != nil {
		t.Fatal(err)
	}
	if recs, _ := s.ListAttendance(ctx, sess.ID); len(recs) != 0 {
		t.Errorf("attendance should go with the session, got %d", len(recs))
	}
}
