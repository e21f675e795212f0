// Package waitlist implements admission control for a single workshop: a
// bounded pool of active seats and a dense FIFO queue behind it.
//
// A Book is loaded by a store inside the workshop's critical section, mutated
// with Admit, Remove or Resize, checked with Verify and then persisted from
// its Journal. The Book never performs I/O.
package waitlist

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/model"
)

// Removal is an enrollment taken out of the book together with its audit data.
type Removal struct {
	Enrollment model.Enrollment
	Reason     string
	At         time.Time
}

// Journal lists what changed in a book since it was loaded.
type Journal struct {
	Inserted        []model.Enrollment
	Removed         []Removal
	Updated         []model.Enrollment
	WorkshopChanged bool
}

// Empty reports whether nothing needs persisting.
func (j Journal) Empty() bool {
	return len(j.Inserted) == 0 && len(j.Removed) == 0 && len(j.Updated) == 0 && !j.WorkshopChanged
}

// Book is the capacity state of one workshop.
type Book struct {
	Workshop model.Workshop
	Active   []model.Enrollment // assignment date ascending
	Waiting  []model.Enrollment // waitlist position ascending

	inserted        map[string]bool
	touched         map[string]bool
	removed         []Removal
	workshopChanged bool
}

// New builds a book from a workshop and its current enrollments.
func New(w model.Workshop, enrollments []model.Enrollment) *Book {
	b := &Book{
		Workshop: w,
		inserted: make(map[string]bool),
		touched:  make(map[string]bool),
	}
	for _, e := range enrollments {
		if e.State == model.EnrollmentWaitlisted {
			b.Waiting = append(b.Waiting, e)
		} else {
			b.Active = append(b.Active, e)
		}
	}
	slices.SortStableFunc(b.Active, func(a, c model.Enrollment) int {
		return a.AssignmentDate.Compare(c.AssignmentDate)
	})
	slices.SortStableFunc(b.Waiting, func(a, c model.Enrollment) int {
		return position(a) - position(c)
	})
	return b
}

// Find returns the enrollment with the given id, active or waiting.
func (b *Book) Find(id string) (model.Enrollment, bool) {
	for _, e := range b.Active {
		if e.ID == id {
			return e, true
		}
	}
	for _, e := range b.Waiting {
		if e.ID == id {
			return e, true
		}
	}
	return model.Enrollment{}, false
}

func (b *Book) holds(userID string) bool {
	for _, e := range b.Active {
		if e.UserID == userID {
			return true
		}
	}
	for _, e := range b.Waiting {
		if e.UserID == userID {
			return true
		}
	}
	return false
}

// Admit grants userID a seat when one is free and queues it otherwise.
func (b *Book) Admit(id, userID, assignedBy string, now time.Time) (model.Enrollment, error) {
	if b.holds(userID) {
		return model.Enrollment{}, model.ErrAlreadyEnrolled
	}
	if b.Workshop.Status != model.WorkshopActive {
		return model.Enrollment{}, fmt.Errorf("%w: status is %s", model.ErrWorkshopClosed, b.Workshop.Status)
	}

	e := model.Enrollment{
		ID:             id,
		WorkshopID:     b.Workshop.ID,
		UserID:         userID,
		AssignedBy:     assignedBy,
		AssignmentDate: now,
	}
	if b.Workshop.CurrentCapacity < b.Workshop.MaxCapacity {
		e.State = model.EnrollmentActive
		b.Active = append(b.Active, e)
		b.Workshop.CurrentCapacity++
		b.markWorkshop(now)
	} else {
		pos := len(b.Waiting) + 1
		e.State = model.EnrollmentWaitlisted
		e.WaitlistPosition = &pos
		b.Waiting = append(b.Waiting, e)
	}
	b.inserted[id] = true
	return e, nil
}

// Remove takes an enrollment out of the book. Removing a waitlisted entry
// closes the gap behind it; removing an active one frees a seat that the
// head of the waitlist takes immediately. The promoted enrollment, if any,
// is returned.
func (b *Book) Remove(enrollmentID, reason string, now time.Time) (model.Enrollment, *model.Enrollment, error) {
	if strings.TrimSpace(reason) == "" {
		return model.Enrollment{}, nil, model.Invalid("reason", "is required")
	}

	if i := slices.IndexFunc(b.Waiting, func(e model.Enrollment) bool { return e.ID == enrollmentID }); i >= 0 {
		removed := b.Waiting[i]
		b.Waiting = slices.Delete(b.Waiting, i, i+1)
		b.renumber()
		b.recordRemoval(removed, reason, now)
		return removed, nil, nil
	}

	i := slices.IndexFunc(b.Active, func(e model.Enrollment) bool { return e.ID == enrollmentID })
	if i < 0 {
		return model.Enrollment{}, nil, model.ErrNotFound
	}
	removed := b.Active[i]
	b.Active = slices.Delete(b.Active, i, i+1)
	b.Workshop.CurrentCapacity--
	b.markWorkshop(now)
	b.recordRemoval(removed, reason, now)

	promoted := b.fill(now)
	if len(promoted) == 0 {
		return removed, nil, nil
	}
	return removed, &promoted[0], nil
}

// Resize changes the workshop's maximum capacity. Growing promotes waitlist
// heads into the new seats; shrinking below the current enrollment fails.
func (b *Book) Resize(maxCapacity int, now time.Time) ([]model.Enrollment, error) {
	if maxCapacity < 1 {
		return nil, model.Invalid("max_capacity", "must be greater than 0")
	}
	if maxCapacity < b.Workshop.CurrentCapacity {
		return nil, model.Invalid("max_capacity",
			fmt.Sprintf("cannot be lower than the %d users currently enrolled", b.Workshop.CurrentCapacity))
	}
	if maxCapacity == b.Workshop.MaxCapacity {
		return nil, nil
	}
	b.Workshop.MaxCapacity = maxCapacity
	b.markWorkshop(now)
	return b.fill(now), nil
}

// Touch marks the workshop row as edited so the store persists it.
func (b *Book) Touch(now time.Time) {
	b.markWorkshop(now)
}

// Verify checks every capacity and waitlist invariant of the book.
func (b *Book) Verify() error {
	w := b.Workshop
	switch {
	case w.MaxCapacity < 1:
		return fmt.Errorf("%w: workshop %s max_capacity %d", model.ErrCapacityInvariant, w.ID, w.MaxCapacity)
	case w.CurrentCapacity < 0 || w.CurrentCapacity > w.MaxCapacity:
		return fmt.Errorf("%w: workshop %s current_capacity %d outside [0, %d]",
			model.ErrCapacityInvariant, w.ID, w.CurrentCapacity, w.MaxCapacity)
	case w.CurrentCapacity != len(b.Active):
		return fmt.Errorf("%w: workshop %s current_capacity %d but %d active enrollments",
			model.ErrCapacityInvariant, w.ID, w.CurrentCapacity, len(b.Active))
	case len(b.Waiting) > 0 && len(b.Active) < w.MaxCapacity:
		return fmt.Errorf("%w: workshop %s has free seats and a waitlist of %d",
			model.ErrCapacityInvariant, w.ID, len(b.Waiting))
	}

	users := make(map[string]bool, len(b.Active)+len(b.Waiting))
	for _, e := range b.Active {
		if e.State != model.EnrollmentActive || e.WaitlistPosition != nil {
			return fmt.Errorf("%w: enrollment %s is in the active set as %s", model.ErrCapacityInvariant, e.ID, e.State)
		}
		if err := b.checkEntry(e, users); err != nil {
			return err
		}
	}
	for i, e := range b.Waiting {
		if e.State != model.EnrollmentWaitlisted || position(e) != i+1 {
			return fmt.Errorf("%w: enrollment %s has waitlist position %d, want %d",
				model.ErrCapacityInvariant, e.ID, position(e), i+1)
		}
		if err := b.checkEntry(e, users); err != nil {
			return err
		}
	}
	return nil
}

func (b *Book) checkEntry(e model.Enrollment, users map[string]bool) error {
	if e.WorkshopID != b.Workshop.ID {
		return fmt.Errorf("%w: enrollment %s belongs to workshop %s", model.ErrCapacityInvariant, e.ID, e.WorkshopID)
	}
	if users[e.UserID] {
		return fmt.Errorf("%w: user %s enrolled twice in workshop %s", model.ErrCapacityInvariant, e.UserID, b.Workshop.ID)
	}
	users[e.UserID] = true
	return nil
}

// Journal returns the changes made since the book was loaded.
func (b *Book) Journal() Journal {
	j := Journal{
		Removed:         b.removed,
		WorkshopChanged: b.workshopChanged,
	}
	for _, set := range [][]model.Enrollment{b.Active, b.Waiting} {
		for _, e := range set {
			switch {
			case b.inserted[e.ID]:
				j.Inserted = append(j.Inserted, e)
			case b.touched[e.ID]:
				j.Updated = append(j.Updated, e)
			}
		}
	}
	return j
}

// fill promotes waitlist heads while seats are free.
func (b *Book) fill(now time.Time) []model.Enrollment {
	var promoted []model.Enrollment
	for len(b.Waiting) > 0 && b.Workshop.CurrentCapacity < b.Workshop.MaxCapacity {
		head := b.Waiting[0]
		b.Waiting = b.Waiting[1:]
		head.State = model.EnrollmentActive
		head.WaitlistPosition = nil
		head.AssignmentDate = now
		b.Active = append(b.Active, head)
		b.Workshop.CurrentCapacity++
		b.touched[head.ID] = true
		promoted = append(promoted, head)
	}
	if len(promoted) > 0 {
		b.renumber()
		b.markWorkshop(now)
	}
	return promoted
}

func (b *Book) renumber() {
	for i := range b.Waiting {
		if position(b.Waiting[i]) == i+1 {
			continue
		}
		pos := i + 1
		b.Waiting[i].WaitlistPosition = &pos
		b.touched[b.Waiting[i].ID] = true
	}
}

func (b *Book) recordRemoval(e model.Enrollment, reason string, now time.Time) {
	delete(b.touched, e.ID)
	b.removed = append(b.removed, Removal{Enrollment: e, Reason: strings.TrimSpace(reason), At: now})
}

func (b *Book) markWorkshop(now time.Time) {
	b.Workshop.UpdatedAt = now
	b.workshopChanged = true
}

func position(e model.Enrollment) int {
	if e.WaitlistPosition == nil {
		return 0
	}
	return *e.WaitlistPosition
}
