// Package model defines the core domain types for the workshop enrollment system.
package model

import "time"

// Workshop is a recurring activity with a bounded seat count.
type Workshop struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Description     string         `json:"description,omitempty"`
	ProfessionalID  string         `json:"professional_id"`
	MaxCapacity     int            `json:"max_capacity"`
	CurrentCapacity int            `json:"current_capacity"`
	Status          WorkshopStatus `json:"status"`
	WeekDays        []string       `json:"week_days"`
	StartTime       string         `json:"start_time"`
	EndTime         string         `json:"end_time"`
	StartDate       string         `json:"start_date"`
	EndDate         *string        `json:"end_date,omitempty"`
	Location        string         `json:"location,omitempty"`
	CreatedBy       string         `json:"created_by,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// AvailableSpots returns the number of free seats.
func (w *Workshop) AvailableSpots() int {
	return w.MaxCapacity - w.CurrentCapacity
}

// IsFull returns true when no seats remain.
func (w *Workshop) IsFull() bool {
	return w.CurrentCapacity >= w.MaxCapacity
}

// Enrollment is a user's claim on a workshop seat, either granted or queued.
type Enrollment struct {
	ID               string          `json:"id"`
	WorkshopID       string          `json:"workshop_id"`
	UserID           string          `json:"user_id"`
	AssignedBy       string          `json:"assigned_by,omitempty"`
	AssignmentDate   time.Time       `json:"assignment_date"`
	State            EnrollmentState `json:"state"`
	WaitlistPosition *int            `json:"waitlist_position,omitempty"`
}

// Unenrollment is the audit record left behind when an enrollment is removed.
type Unenrollment struct {
	EnrollmentID  string    `json:"enrollment_id"`
	WorkshopID    string    `json:"workshop_id"`
	UserID        string    `json:"user_id"`
	Reason        string    `json:"reason"`
	WasWaitlisted bool      `json:"was_waitlisted"`
	UnenrolledAt  time.Time `json:"unenrolled_at"`
}

// Session is one scheduled occurrence of a workshop.
type Session struct {
	ID             string        `json:"id"`
	WorkshopID     string        `json:"workshop_id"`
	Date           string        `json:"date"`
	StartTime      string        `json:"start_time"`
	EndTime        string        `json:"end_time"`
	Topic          string        `json:"topic,omitempty"`
	ProfessionalID string        `json:"professional_id"`
	Observations   string        `json:"observations,omitempty"`
	Status         SessionStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Attendance is the recorded presence of an enrolled user at a session.
type Attendance struct {
	SessionID    string    `json:"session_id"`
	UserID       string    `json:"user_id"`
	Present      bool      `json:"present"`
	Observations string    `json:"observations,omitempty"`
	RecordedBy   string    `json:"recorded_by"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// Caller identifies the authenticated user behind a request.
type Caller struct {
	UserID string
	Role   Role
}

// IsStaff reports whether the caller holds full mutation rights.
func (c Caller) IsStaff() bool {
	return c.Role == RoleAdministrator || c.Role == RoleCoordinator
}

// WorkshopFilter narrows workshop listings.
type WorkshopFilter struct {
	ProfessionalID string
	Status         WorkshopStatus
}

// SessionFilter narrows session listings. Empty fields match everything,
// except WorkshopIDs: nil matches every workshop, an empty slice none.
// From and To are inclusive YYYY-MM-DD bounds.
type SessionFilter struct {
	WorkshopIDs    []string
	ProfessionalID string
	From           string
	To             string
}

// Overlaps reports whether s and o occupy intersecting slots of the same
// workshop on the same date. Cancelled sessions never overlap.
func (s *Session) Overlaps(o *Session) bool {
	if s.ID == o.ID || s.WorkshopID != o.WorkshopID || s.Date != o.Date {
		return false
	}
	if s.Status == SessionCancelled || o.Status == SessionCancelled {
		return false
	}
	return s.StartTime < o.EndTime && o.StartTime < s.EndTime
}
