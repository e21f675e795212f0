package model

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// CreateWorkshopRequest is the payload for creating a workshop.
type CreateWorkshopRequest struct {
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	ProfessionalID string         `json:"professional_id"`
	MaxCapacity    int            `json:"max_capacity"`
	WeekDays       []string       `json:"week_days"`
	StartTime      string         `json:"start_time"`
	EndTime        string         `json:"end_time"`
	StartDate      string         `json:"start_date"`
	EndDate        *string        `json:"end_date"`
	Location       string         `json:"location"`
	Status         WorkshopStatus `json:"status"`
}

// UpdateWorkshopRequest is a partial workshop edit; nil fields are untouched.
type UpdateWorkshopRequest struct {
	Name           *string         `json:"name"`
	Description    *string         `json:"description"`
	ProfessionalID *string         `json:"professional_id"`
	MaxCapacity    *int            `json:"max_capacity"`
	WeekDays       []string        `json:"week_days"`
	StartTime      *string         `json:"start_time"`
	EndTime        *string         `json:"end_time"`
	StartDate      *string         `json:"start_date"`
	EndDate        *string         `json:"end_date"`
	Location       *string         `json:"location"`
	Status         *WorkshopStatus `json:"status"`
}

// UpdateWorkshopResult carries the edited workshop and any users promoted
// from the waitlist because capacity grew.
type UpdateWorkshopResult struct {
	Workshop Workshop     `json:"workshop"`
	Promoted []Enrollment `json:"promoted_from_waitlist,omitempty"`
}

// EnrollRequest is the payload for enrolling a user in a workshop.
type EnrollRequest struct {
	UserID     string `json:"user_id"`
	WorkshopID string `json:"workshop_id"`
}

// EnrollResult summarises the outcome of an enrollment.
type EnrollResult struct {
	EnrollmentID     string          `json:"enrollment_id"`
	State            EnrollmentState `json:"state"`
	WaitlistPosition *int            `json:"waitlist_position,omitempty"`
}

// UnenrollRequest is the payload for removing an enrollment.
type UnenrollRequest struct {
	Reason string `json:"reason"`
}

// PromotedRef identifies the waitlisted user who took a freed seat.
type PromotedRef struct {
	UserID       string `json:"user_id"`
	EnrollmentID string `json:"enrollment_id"`
}

// UnenrollResult summarises the outcome of an unenrollment.
type UnenrollResult struct {
	OK       bool         `json:"ok"`
	Promoted *PromotedRef `json:"promoted_from_waitlist,omitempty"`
}

// WorkshopStudents lists a workshop's seats and queue separately.
type WorkshopStudents struct {
	WorkshopID      string       `json:"workshop_id"`
	MaxCapacity     int          `json:"max_capacity"`
	CurrentCapacity int          `json:"current_capacity"`
	Enrolled        []Enrollment `json:"enrolled"`
	Waitlist        []Enrollment `json:"waitlist"`
}

// UserEnrollments lists a user's seats and queue entries across workshops.
type UserEnrollments struct {
	UserID     string       `json:"user_id"`
	Active     []Enrollment `json:"active"`
	Waitlisted []Enrollment `json:"waitlisted"`
}

// CreateSessionRequest is the payload for scheduling a session.
type CreateSessionRequest struct {
	WorkshopID     string `json:"workshop_id"`
	Date           string `json:"date"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	Topic          string `json:"topic"`
	ProfessionalID string `json:"professional_id"`
	Observations   string `json:"observations"`
}

// UpdateSessionRequest is a partial session edit; nil fields are untouched.
type UpdateSessionRequest struct {
	Date           *string `json:"date"`
	StartTime      *string `json:"start_time"`
	EndTime        *string `json:"end_time"`
	Topic          *string `json:"topic"`
	ProfessionalID *string `json:"professional_id"`
	Observations   *string `json:"observations"`
}

// RescheduleRequest moves a session to a new slot.
type RescheduleRequest struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// CompleteRequest must carry an explicit confirmation.
type CompleteRequest struct {
	Confirm bool `json:"confirm"`
}

// CancelRequest carries the mandatory cancellation reason.
type CancelRequest struct {
	Reason string `json:"reason"`
}

// AttendanceRecord is one user's presence in a take/update call.
type AttendanceRecord struct {
	UserID       string `json:"user_id"`
	Present      bool   `json:"present"`
	Observations string `json:"observations"`
}

// AttendanceRequest is the payload for taking or updating attendance.
type AttendanceRequest struct {
	Records []AttendanceRecord `json:"records"`
}

// SessionAttendance is a session's records with derived counts.
type SessionAttendance struct {
	SessionID    string       `json:"session_id"`
	Records      []Attendance `json:"records"`
	PresentCount int          `json:"present_count"`
	AbsentCount  int          `json:"absent_count"`
	Rate         float64      `json:"rate"`
}

// OKResponse acknowledges a mutation without a body.
type OKResponse struct {
	OK bool `json:"ok"`
}
