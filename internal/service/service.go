// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the store layer.
package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/calendar"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/model"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/notify"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/report"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/roster"
)

// ReportCache stores computed workshop reports. Implementations must
// tolerate being unavailable.
//
// Every Invalidate bumps the workshop's version. PutWorkshop stores a report
// only while the version still equals the one read by Version before the
// report was computed, so a build racing a mutation never caches stale data.
type ReportCache interface {
	Workshop(ctx context.Context, id string) (report.Workshop, bool)
	Version(ctx context.Context, id string) (int64, bool)
	PutWorkshop(ctx context.Context, r report.Workshop, version int64)
	Invalidate(ctx context.Context, workshopID string)
}

type noCache struct{}

func (noCache) Workshop(context.Context, string) (report.Workshop, bool) { return report.Workshop{}, false }
func (noCache) Version(context.Context, string) (int64, bool)            { return 0, false }
func (noCache) PutWorkshop(context.Context, report.Workshop, int64)      {}
func (noCache) Invalidate(context.Context, string)                       {}

// Options carries the collaborators shared by every service. Zero fields
// get working defaults.
type Options struct {
	Log       *zap.Logger
	Now       func() time.Time
	Location  *time.Location
	Publisher notify.Publisher
	Cache     ReportCache
	Directory Directory
}

// Services groups every service built on one store.
type Services struct {
	Workshops   *WorkshopService
	Enrollments *EnrollmentService
	Sessions    *SessionService
	Attendance  *AttendanceService
	Schedule    *ScheduleService
	Reports     *ReportService
}

// New wires all services to store.
func New(store Store, opts Options) *Services {
	return &Services{
		Workshops:   NewWorkshopService(store, opts),
		Enrollments: NewEnrollmentService(store, opts),
		Sessions:    NewSessionService(store, opts),
		Attendance:  NewAttendanceService(store, opts),
		Schedule:    NewScheduleService(store, opts),
		Reports:     NewReportService(store, opts),
	}
}

type base struct {
	log   *zap.Logger
	now   func() time.Time
	loc   *time.Location
	pub   notify.Publisher
	cache ReportCache
	dir   Directory
}

func newBase(o Options) base {
	b := base{log: o.Log, now: o.Now, loc: o.Location, pub: o.Publisher, cache: o.Cache, dir: o.Directory}
	if b.log == nil {
		b.log = zap.NewNop()
	}
	if b.now == nil {
		b.now = time.Now
	}
	if b.loc == nil {
		b.loc = time.Local
	}
	if b.pub == nil {
		b.pub = notify.Noop{}
	}
	if b.cache == nil {
		b.cache = noCache{}
	}
	if b.dir == nil {
		b.dir, _ = roster.New(nil)
	}
	return b
}

// clock returns the current instant in the service timezone.
func (b *base) clock() time.Time {
	return b.now().In(b.loc)
}

// today is the canonical date string of the current day.
func (b *base) today() string {
	return calendar.DateKey(calendar.Today(b.now(), b.loc))
}

// check logs capacity invariant violations, which indicate corrupted state,
// and hands every error back unchanged.
func (b *base) check(err error, fields ...zap.Field) error {
	if errors.Is(err, model.ErrCapacityInvariant) {
		b.log.Error("capacity invariant violated", append(fields, zap.Error(err))...)
	}
	return err
}

// publish sends ev after the change it describes has committed. Failures
// are logged and otherwise ignored.
func (b *base) publish(ctx context.Context, ev notify.Event) {
	ev.OccurredAt = b.now().UTC()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := b.pub.Publish(ctx, ev); err != nil {
		b.log.Warn("publish notification failed",
			zap.String("type", ev.Type),
			zap.String("workshop_id", ev.WorkshopID),
			zap.Error(err))
	}
}

// invalidate drops the cached report of a workshop after a change that
// affects it.
func (b *base) invalidate(ctx context.Context, workshopID string) {
	b.cache.Invalidate(context.WithoutCancel(ctx), workshopID)
}

// resolveProfessional returns the professional a new workshop or session is
// assigned to. Professionals always assign themselves; staff pick from the
// roster.
func (b *base) resolveProfessional(ctx context.Context, c model.Caller, requested string) (string, error) {
	if c.Role == model.RoleProfessional {
		return c.UserID, nil
	}
	if requested == "" {
		return "", model.Invalid("professional_id", "is required")
	}
	_, ok, err := b.dir.Lookup(ctx, requested)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", model.Invalid("professional_id", "is not a registered professional")
	}
	return requested, nil
}
