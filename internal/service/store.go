package service

import (
	"context"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/model"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/roster"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/waitlist"
)

// WorkshopStore persists workshops.
type WorkshopStore interface {
	CreateWorkshop(ctx context.Context, w *model.Workshop) error
	GetWorkshop(ctx context.Context, id string) (*model.Workshop, error)
	ListWorkshops(ctx context.Context, f model.WorkshopFilter) ([]model.Workshop, error)
	// DeleteWorkshop removes a workshop with its queue, sessions and
	// attendance. It fails with ErrInvalidTransition while any enrollment
	// is active.
	DeleteWorkshop(ctx context.Context, id string) error
}

// EnrollmentStore persists enrollments. Every change to a workshop's seats
// goes through WithBook.
type EnrollmentStore interface {
	// WithBook runs fn inside the workshop's critical section. The book is
	// verified after fn returns and its journal is persisted atomically; any
	// error leaves stored state untouched. ctx only bounds the wait for the
	// critical section.
	WithBook(ctx context.Context, workshopID string, fn func(*waitlist.Book) error) error
	GetEnrollment(ctx context.Context, id string) (*model.Enrollment, error)
	ListEnrollmentsByWorkshop(ctx context.Context, workshopID string) ([]model.Enrollment, error)
	ListEnrollmentsByUser(ctx context.Context, userID string) ([]model.Enrollment, error)
	ListUnenrollments(ctx context.Context, workshopID string) ([]model.Unenrollment, error)
}

// SessionStore persists sessions. Create and Mutate reject a slot that
// overlaps another session of the same workshop with a ValidationError.
type SessionStore interface {
	CreateSession(ctx context.Context, s *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	// MutateSession loads the session under lock, applies fn and saves the
	// result unless fn fails.
	MutateSession(ctx context.Context, id string, fn func(*model.Session) error) (*model.Session, error)
	// DeleteSession removes the session after guard accepts it.
	DeleteSession(ctx context.Context, id string, guard func(*model.Session) error) error
	ListSessions(ctx context.Context, f model.SessionFilter) ([]model.Session, error)
}

// AttendanceStore persists attendance records.
type AttendanceStore interface {
	// RecordAttendance upserts records for a session after check accepts the
	// session and the set of users actively enrolled in its workshop. The
	// check and the write are atomic.
	RecordAttendance(ctx context.Context, sessionID string, records []model.Attendance,
		check func(s *model.Session, active map[string]bool) error) error
	ListAttendance(ctx context.Context, sessionID string) ([]model.Attendance, error)
	ListAttendanceForSessions(ctx context.Context, sessionIDs []string) ([]model.Attendance, error)
}

// Store is the complete persistence surface.
type Store interface {
	WorkshopStore
	EnrollmentStore
	SessionStore
	AttendanceStore
}

// Directory resolves professional ids.
type Directory interface {
	Lookup(ctx context.Context, id string) (roster.Professional, bool, error)
}
