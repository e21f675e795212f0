// Package report derives attendance statistics from sessions and their
// attendance records. Everything here is a pure function of its inputs;
// only completed sessions count toward rates.
package report

import (
	"cmp"
	"slices"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/model"
)

// LowThreshold is the rate below which a user is flagged for low attendance.
const LowThreshold = 0.60

// DefaultTop is the size of the top-attendance list when none is requested.
const DefaultTop = 5

// SessionRate is the attendance summary of one completed session.
type SessionRate struct {
	SessionID string  `json:"session_id"`
	Date      string  `json:"date"`
	Present   int     `json:"present"`
	Total     int     `json:"total"`
	Rate      float64 `json:"rate"`
}

// UserRate is one user's attendance across completed sessions.
type UserRate struct {
	UserID  string  `json:"user_id"`
	Present int     `json:"present"`
	Total   int     `json:"total"`
	Rate    float64 `json:"rate"`
}

// Workshop is the full projection for a single workshop.
type Workshop struct {
	WorkshopID        string        `json:"workshop_id"`
	Name              string        `json:"name"`
	CompletedSessions int           `json:"completed_sessions"`
	AverageRate       float64       `json:"average_attendance_rate"`
	Sessions          []SessionRate `json:"sessions"`
	Users             []UserRate    `json:"users"`
	LowAttendance     []UserRate    `json:"low_attendance"`
	TopAttendance     []UserRate    `json:"top_attendance"`
}

// HistoryEntry is one session as seen by a single user.
type HistoryEntry struct {
	SessionID    string              `json:"session_id"`
	Date         string              `json:"date"`
	StartTime    string              `json:"start_time"`
	Topic        string              `json:"topic,omitempty"`
	Status       model.SessionStatus `json:"status"`
	Present      *bool               `json:"present,omitempty"`
	Observations string              `json:"observations,omitempty"`
}

// History is a user's attendance trail inside one workshop.
type History struct {
	WorkshopID string         `json:"workshop_id"`
	UserID     string         `json:"user_id"`
	Entries    []HistoryEntry `json:"entries"`
	Present    int            `json:"present"`
	Total      int            `json:"total"`
	Rate       float64        `json:"rate"`
}

// Rate returns present/total, or 0 when total is 0.
func Rate(present, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(present) / float64(total)
}

// Sessions summarizes every completed session that has at least one record,
// ordered by date then id.
func Sessions(sessions []model.Session, records []model.Attendance) []SessionRate {
	bySession := groupBySession(records)
	out := []SessionRate{}
	for _, s := range sessions {
		if s.Status != model.SessionCompleted {
			continue
		}
		recs := bySession[s.ID]
		if len(recs) == 0 {
			continue
		}
		sr := SessionRate{SessionID: s.ID, Date: s.Date, Total: len(recs)}
		for _, r := range recs {
			if r.Present {
				sr.Present++
			}
		}
		sr.Rate = Rate(sr.Present, sr.Total)
		out = append(out, sr)
	}
	slices.SortFunc(out, func(a, b SessionRate) int {
		return cmp.Or(cmp.Compare(a.Date, b.Date), cmp.Compare(a.SessionID, b.SessionID))
	})
	return out
}

// Users computes per-user rates over completed sessions, ordered by user id.
func Users(sessions []model.Session, records []model.Attendance) []UserRate {
	completed := completedSet(sessions)
	acc := map[string]*UserRate{}
	for _, r := range records {
		if !completed[r.SessionID] {
			continue
		}
		u, ok := acc[r.UserID]
		if !ok {
			u = &UserRate{UserID: r.UserID}
			acc[r.UserID] = u
		}
		u.Total++
		if r.Present {
			u.Present++
		}
	}
	out := make([]UserRate, 0, len(acc))
	for _, u := range acc {
		u.Rate = Rate(u.Present, u.Total)
		out = append(out, *u)
	}
	slices.SortFunc(out, func(a, b UserRate) int { return cmp.Compare(a.UserID, b.UserID) })
	return out
}

// Average is the mean of per-session rates.
func Average(rates []SessionRate) float64 {
	if len(rates) == 0 {
		return 0
	}
	var sum float64
	for _, r := range rates {
		sum += r.Rate
	}
	return sum / float64(len(rates))
}

// Low returns users whose rate is strictly below threshold, lowest first.
func Low(users []UserRate, threshold float64) []UserRate {
	out := []UserRate{}
	for _, u := range users {
		if u.Rate < threshold {
			out = append(out, u)
		}
	}
	slices.SortFunc(out, func(a, b UserRate) int {
		return cmp.Or(cmp.Compare(a.Rate, b.Rate), cmp.Compare(a.UserID, b.UserID))
	})
	return out
}

// Top returns the n best attendees by rate. Ties go to the user who attended
// more sessions, then to the smaller user id.
func Top(users []UserRate, n int) []UserRate {
	out := slices.Clone(users)
	slices.SortFunc(out, func(a, b UserRate) int {
		return cmp.Or(
			cmp.Compare(b.Rate, a.Rate),
			cmp.Compare(b.Present, a.Present),
			cmp.Compare(a.UserID, b.UserID),
		)
	})
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	if out == nil {
		out = []UserRate{}
	}
	return out
}

// ForWorkshop builds the complete projection for w.
func ForWorkshop(w model.Workshop, sessions []model.Session, records []model.Attendance, topN int) Workshop {
	if topN <= 0 {
		topN = DefaultTop
	}
	srs := Sessions(sessions, records)
	users := Users(sessions, records)
	return Workshop{
		WorkshopID:        w.ID,
		Name:              w.Name,
		CompletedSessions: countCompleted(sessions),
		AverageRate:       Average(srs),
		Sessions:          srs,
		Users:             users,
		LowAttendance:     Low(users, LowThreshold),
		TopAttendance:     Top(users, topN),
	}
}

// UserHistory lists every non-cancelled session of a workshop with the
// user's record, if any. The rate only counts completed sessions.
func UserHistory(workshopID, userID string, sessions []model.Session, records []model.Attendance) History {
	mine := map[string]model.Attendance{}
	for _, r := range records {
		if r.UserID == userID {
			mine[r.SessionID] = r
		}
	}
	h := History{WorkshopID: workshopID, UserID: userID, Entries: []HistoryEntry{}}
	for _, s := range sessions {
		if s.Status == model.SessionCancelled {
			continue
		}
		e := HistoryEntry{
			SessionID: s.ID,
			Date:      s.Date,
			StartTime: s.StartTime,
			Topic:     s.Topic,
			Status:    s.Status,
		}
		if r, ok := mine[s.ID]; ok {
			present := r.Present
			e.Present = &present
			e.Observations = r.Observations
			if s.Status == model.SessionCompleted {
				h.Total++
				if present {
					h.Present++
				}
			}
		}
		h.Entries = append(h.Entries, e)
	}
	slices.SortFunc(h.Entries, func(a, b HistoryEntry) int {
		return cmp.Or(cmp.Compare(a.Date, b.Date), cmp.Compare(a.StartTime, b.StartTime))
	})
	h.Rate = Rate(h.Present, h.Total)
	return h
}

func groupBySession(records []model.Attendance) map[string][]model.Attendance {
	out := make(map[string][]model.Attendance)
	for _, r := range records {
		out[r.SessionID] = append(out[r.SessionID], r)
	}
	return out
}

func completedSet(sessions []model.Session) map[string]bool {
	out := make(map[string]bool, len(sessions))
	for _, s := range sessions {
		if s.Status == model.SessionCompleted {
			out[s.ID] = true
		}
	}
	return out
}

func countCompleted(sessions []model.Session) int {
	n := 0
	for _, s := range sessions {
		if s.Status == model.SessionCompleted {
			n++
		}
	}
	return n
}
