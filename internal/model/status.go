package model

import "fmt"

// WorkshopStatus is the administrative state of a workshop.
type WorkshopStatus string

const (
	WorkshopPending  WorkshopStatus = "pending"
	WorkshopActive   WorkshopStatus = "active"
	WorkshopPaused   WorkshopStatus = "paused"
	WorkshopFinished WorkshopStatus = "finished"
)

// Valid reports whether s is a known workshop status.
func (s WorkshopStatus) Valid() bool {
	switch s {
	case WorkshopPending, WorkshopActive, WorkshopPaused, WorkshopFinished:
		return true
	}
	return false
}

// EnrollmentState distinguishes granted seats from queued requests.
type EnrollmentState string

const (
	EnrollmentActive     EnrollmentState = "active"
	EnrollmentWaitlisted EnrollmentState = "waitlisted"
)

// SessionStatus is the lifecycle state of a session.
type SessionStatus string

const (
	SessionScheduled   SessionStatus = "scheduled"
	SessionCompleted   SessionStatus = "completed"
	SessionCancelled   SessionStatus = "cancelled"
	SessionRescheduled SessionStatus = "rescheduled"
)

// sessionTransitions is the complete table of legal status changes.
// A rescheduled session behaves exactly like a scheduled one.
var sessionTransitions = map[SessionStatus][]SessionStatus{
	SessionScheduled:   {SessionCompleted, SessionCancelled, SessionRescheduled},
	SessionRescheduled: {SessionCompleted, SessionCancelled, SessionRescheduled},
}

// Valid reports whether s is a known session status.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionScheduled, SessionCompleted, SessionCancelled, SessionRescheduled:
		return true
	}
	return false
}

// Actionable reports whether the session can still be edited, attended,
// completed or cancelled.
func (s SessionStatus) Actionable() bool {
	return s == SessionScheduled || s == SessionRescheduled
}

// CanTransition reports whether moving from s to next is legal.
func (s SessionStatus) CanTransition(next SessionStatus) bool {
	for _, to := range sessionTransitions[s] {
		if to == next {
			return true
		}
	}
	return false
}

// Transition returns next when the change is legal, or an error wrapping
// ErrInvalidTransition.
func (s SessionStatus) Transition(next SessionStatus) (SessionStatus, error) {
	if !s.CanTransition(next) {
		return s, fmt.Errorf("%w: session already %s", ErrInvalidTransition, s)
	}
	return next, nil
}

// CheckDeletable rejects deletion of completed sessions, which are
// immutable history once attendance may be attached.
func (s SessionStatus) CheckDeletable() error {
	if s == SessionCompleted {
		return fmt.Errorf("%w: session already completed", ErrInvalidTransition)
	}
	return nil
}

// Role is the authorization role carried by the caller's token.
type Role string

const (
	RoleAdministrator Role = "administrator"
	RoleCoordinator   Role = "coordinator"
	RoleProfessional  Role = "professional"
	RoleClient        Role = "client"
)
