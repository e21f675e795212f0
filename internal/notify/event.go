// Package notify carries domain events to back-office consumers over
// RabbitMQ. Delivery is best effort: events are published after the
// originating change has committed and a failed publish never undoes it.
package notify

import (
	"context"
	"time"
)

// Event types.
const (
	EnrollmentPromoted = "enrollment.promoted"
	SessionCancelled   = "session.cancelled"
	SessionRescheduled = "session.rescheduled"
)

// Event is the JSON payload published to the notifications queue.
type Event struct {
	Type         string    `json:"type"`
	WorkshopID   string    `json:"workshop_id"`
	UserID       string    `json:"user_id,omitempty"`
	EnrollmentID string    `json:"enrollment_id,omitempty"`
	SessionID    string    `json:"session_id,omitempty"`
	Date         string    `json:"date,omitempty"`
	StartTime    string    `json:"start_time,omitempty"`
	EndTime      string    `json:"end_time,omitempty"`
	PreviousSlot string    `json:"previous_slot,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Publisher sends events somewhere.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Noop discards every event.
type Noop struct{}

// Publish implements Publisher.
func (Noop) Publish(context.Context, Event) error { return nil }
