// Package memstore is an in-process implementation of the service stores.
// It backs STORE=memory runs and the service tests.
//
// Seat bookkeeping for a workshop is serialised by a per-workshop lock that
// a caller can stop waiting for by cancelling its context. Operations on
// different workshops proceed in parallel; the maps themselves are guarded
// by a single RWMutex held only for short copies.
package memstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/model"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/waitlist"
)

type attKey struct{ session, user string }

// Store keeps everything in maps.
type Store struct {
	mu          sync.RWMutex
	workshops   map[string]model.Workshop
	enrollments map[string]model.Enrollment
	history     []model.Unenrollment
	sessions    map[string]model.Session
	attendance  map[attKey]model.Attendance

	locksMu sync.Mutex
	locks   map[string]chan struct{}
}

// New returns an empty store.
func New() *Store {
	return &Store{
		workshops:   make(map[string]model.Workshop),
		enrollments: make(map[string]model.Enrollment),
		sessions:    make(map[string]model.Session),
		attendance:  make(map[attKey]model.Attendance),
		locks:       make(map[string]chan struct{}),
	}
}

// lock enters the critical section of a workshop, or gives up when ctx ends
// first.
func (s *Store) lock(ctx context.Context, workshopID string) (func(), error) {
	s.locksMu.Lock()
	ch, ok := s.locks[workshopID]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[workshopID] = ch
	}
	s.locksMu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ─── Workshops ────────────────────────────────────────────────────────────────

// CreateWorkshop stores w, assigning an id when it has none.
func (s *Store) CreateWorkshop(_ context.Context, w *model.Workshop) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.workshops[w.ID]; dup {
		return fmt.Errorf("workshop %s already exists", w.ID)
	}
	s.workshops[w.ID] = cloneWorkshop(*w)
	return nil
}

// GetWorkshop returns a workshop or ErrNotFound.
func (s *Store) GetWorkshop(_ context.Context, id string) (*model.Workshop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.workshops[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	w = cloneWorkshop(w)
	return &w, nil
}

// ListWorkshops returns workshops matching f, newest first.
func (s *Store) ListWorkshops(_ context.Context, f model.WorkshopFilter) ([]model.Workshop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Workshop{}
	for _, w := range s.workshops {
		if f.ProfessionalID != "" && w.ProfessionalID != f.ProfessionalID {
			continue
		}
		if f.Status != "" && w.Status != f.Status {
			continue
		}
		out = append(out, cloneWorkshop(w))
	}
	slices.SortFunc(out, func(a, b model.Workshop) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

// DeleteWorkshop removes a workshop that has no active enrollments, along
// with its waitlist, sessions, attendance and audit trail.
func (s *Store) DeleteWorkshop(ctx context.Context, id string) error {
	release, err := s.lock(ctx, id)
	if err != nil {
		return err
	}
	defer release()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.workshops[id]; !ok {
		return model.ErrNotFound
	}
	active := 0
	for _, e := range s.enrollments {
		if e.WorkshopID == id && e.State == model.EnrollmentActive {
			active++
		}
	}
	if active > 0 {
		return fmt.Errorf("%w: workshop has %d active enrollments", model.ErrInvalidTransition, active)
	}

	for eid, e := range s.enrollments {
		if e.WorkshopID == id {
			delete(s.enrollments, eid)
		}
	}
	for sid, sess := range s.sessions {
		if sess.WorkshopID != id {
			continue
		}
		for k := range s.attendance {
			if k.session == sid {
				delete(s.attendance, k)
			}
		}
		delete(s.sessions, sid)
	}
	s.history = slices.DeleteFunc(s.history, func(u model.Unenrollment) bool { return u.WorkshopID == id })
	delete(s.workshops, id)
	return nil
}

// ─── Enrollments ──────────────────────────────────────────────────────────────

// WithBook implements the workshop critical section.
func (s *Store) WithBook(ctx context.Context, workshopID string, fn func(*waitlist.Book) error) error {
	release, err := s.lock(ctx, workshopID)
	if err != nil {
		return err
	}
	defer release()

	s.mu.RLock()
	w, ok := s.workshops[workshopID]
	var current []model.Enrollment
	for _, e := range s.enrollments {
		if e.WorkshopID == workshopID {
			current = append(current, cloneEnrollment(e))
		}
	}
	s.mu.RUnlock()
	if !ok {
		return model.ErrNotFound
	}

	b := waitlist.New(cloneWorkshop(w), current)
	if err := fn(b); err != nil {
		return err
	}
	if err := b.Verify(); err != nil {
		return err
	}
	j := b.Journal()
	if j.Empty() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range j.Removed {
		delete(s.enrollments, r.Enrollment.ID)
		s.history = append(s.history, model.Unenrollment{
			EnrollmentID:  r.Enrollment.ID,
			WorkshopID:    r.Enrollment.WorkshopID,
			UserID:        r.Enrollment.UserID,
			Reason:        r.Reason,
			WasWaitlisted: r.Enrollment.State == model.EnrollmentWaitlisted,
			UnenrolledAt:  r.At,
		})
	}
	for _, e := range j.Inserted {
		s.enrollments[e.ID] = cloneEnrollment(e)
	}
	for _, e := range j.Updated {
		s.enrollments[e.ID] = cloneEnrollment(e)
	}
	if j.WorkshopChanged {
		s.workshops[workshopID] = cloneWorkshop(b.Workshop)
	}
	return nil
}

// GetEnrollment returns an enrollment or ErrNotFound.
func (s *Store) GetEnrollment(_ context.Context, id string) (*model.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.enrollments[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	e = cloneEnrollment(e)
	return &e, nil
}

// ListEnrollmentsByWorkshop returns every enrollment of a workshop.
func (s *Store) ListEnrollmentsByWorkshop(_ context.Context, workshopID string) ([]model.Enrollment, error) {
	return s.enrollmentsWhere(func(e model.Enrollment) bool { return e.WorkshopID == workshopID }), nil
}

// ListEnrollmentsByUser returns every enrollment held by a user.
func (s *Store) ListEnrollmentsByUser(_ context.Context, userID string) ([]model.Enrollment, error) {
	return s.enrollmentsWhere(func(e model.Enrollment) bool { return e.UserID == userID }), nil
}

func (s *Store) enrollmentsWhere(keep func(model.Enrollment) bool) []model.Enrollment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Enrollment{}
	for _, e := range s.enrollments {
		if keep(e) {
			out = append(out, cloneEnrollment(e))
		}
	}
	slices.SortFunc(out, func(a, b model.Enrollment) int {
		return cmp.Or(a.AssignmentDate.Compare(b.AssignmentDate), cmp.Compare(a.ID, b.ID))
	})
	return out
}

// ListUnenrollments returns the audit trail of a workshop, oldest first.
func (s *Store) ListUnenrollments(_ context.Context, workshopID string) ([]model.Unenrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Unenrollment{}
	for _, u := range s.history {
		if u.WorkshopID == workshopID {
			out = append(out, u)
		}
	}
	return out, nil
}

// ─── Sessions ─────────────────────────────────────────────────────────────────

// CreateSession stores sess, assigning an id when it has none.
func (s *Store) CreateSession(_ context.Context, sess *model.Session) error {
	if sess.ID == "" {
		sess.ID = uuid.New().String()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.workshops[sess.WorkshopID]; !ok {
		return model.ErrNotFound
	}
	if err := s.checkSlot(sess); err != nil {
		return err
	}
	s.sessions[sess.ID] = *sess
	return nil
}

// GetSession returns a session or ErrNotFound.
func (s *Store) GetSession(_ context.Context, id string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &sess, nil
}

// MutateSession applies fn to a copy of the session and saves it.
func (s *Store) MutateSession(_ context.Context, id string, fn func(*model.Session) error) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	if err := fn(&sess); err != nil {
		return nil, err
	}
	if err := s.checkSlot(&sess); err != nil {
		return nil, err
	}
	s.sessions[id] = sess
	return &sess, nil
}

// DeleteSession removes a session and its attendance once guard allows it.
func (s *Store) DeleteSession(_ context.Context, id string, guard func(*model.Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return model.ErrNotFound
	}
	if err := guard(&sess); err != nil {
		return err
	}
	for k := range s.attendance {
		if k.session == id {
			delete(s.attendance, k)
		}
	}
	delete(s.sessions, id)
	return nil
}

// ListSessions returns sessions matching f ordered by date and start time.
func (s *Store) ListSessions(_ context.Context, f model.SessionFilter) ([]model.Session, error) {
	var workshops map[string]bool
	if f.WorkshopIDs != nil {
		workshops = make(map[string]bool, len(f.WorkshopIDs))
		for _, id := range f.WorkshopIDs {
			workshops[id] = true
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Session{}
	for _, sess := range s.sessions {
		switch {
		case workshops != nil && !workshops[sess.WorkshopID]:
			continue
		case f.ProfessionalID != "" && sess.ProfessionalID != f.ProfessionalID:
			continue
		case f.From != "" && sess.Date < f.From:
			continue
		case f.To != "" && sess.Date > f.To:
			continue
		}
		out = append(out, sess)
	}
	slices.SortFunc(out, func(a, b model.Session) int {
		return cmp.Or(cmp.Compare(a.Date, b.Date), cmp.Compare(a.StartTime, b.StartTime), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

// checkSlot rejects a slot that collides with another session of the same
// workshop. Callers hold s.mu.
func (s *Store) checkSlot(sess *model.Session) error {
	for _, other := range s.sessions {
		if sess.Overlaps(&other) {
			return model.Invalid("start_time",
				fmt.Sprintf("overlaps session %s (%s-%s) on %s", other.ID, other.StartTime, other.EndTime, other.Date))
		}
	}
	return nil
}

// ─── Attendance ───────────────────────────────────────────────────────────────

// RecordAttendance checks and upserts records in one step.
func (s *Store) RecordAttendance(_ context.Context, sessionID string, records []model.Attendance,
	check func(*model.Session, map[string]bool) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return model.ErrNotFound
	}
	active := make(map[string]bool)
	for _, e := range s.enrollments {
		if e.WorkshopID == sess.WorkshopID && e.State == model.EnrollmentActive {
			active[e.UserID] = true
		}
	}
	if err := check(&sess, active); err != nil {
		return err
	}
	for _, r := range records {
		r.SessionID = sessionID
		s.attendance[attKey{sessionID, r.UserID}] = r
	}
	return nil
}

// ListAttendance returns the records of one session ordered by user.
func (s *Store) ListAttendance(ctx context.Context, sessionID string) ([]model.Attendance, error) {
	return s.ListAttendanceForSessions(ctx, []string{sessionID})
}

// ListAttendanceForSessions returns the records of several sessions.
func (s *Store) ListAttendanceForSessions(_ context.Context, sessionIDs []string) ([]model.Attendance, error) {
	want := make(map[string]bool, len(sessionIDs))
	for _, id := range sessionIDs {
		want[id] = true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Attendance{}
	for k, a := range s.attendance {
		if want[k.session] {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b model.Attendance) int {
		return cmp.Or(cmp.Compare(a.SessionID, b.SessionID), cmp.Compare(a.UserID, b.UserID))
	})
	return out, nil
}

func cloneWorkshop(w model.Workshop) model.Workshop {
	w.WeekDays = slices.Clone(w.WeekDays)
	if w.EndDate != nil {
		d := *w.EndDate
		w.EndDate = &d
	}
	return w
}

func cloneEnrollment(e model.Enrollment) model.Enrollment {
	if e.WaitlistPosition != nil {
		p := *e.WaitlistPosition
		e.WaitlistPosition = &p
	}
	return e
}
