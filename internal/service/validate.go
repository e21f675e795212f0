package service

import (
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/calendar"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/model"
)

// weekDayCodes are the accepted week-day letters, Monday first.
var weekDayCodes = []string{"L", "M", "X", "J", "V", "S", "D"}

func requireText(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return model.Invalid(field, "is required")
	}
	return nil
}

func validDate(field, v string) error {
	if v == "" {
		return model.Invalid(field, "is required")
	}
	if _, err := calendar.ParseDate(v, nil); err != nil {
		return model.Invalid(field, "must be a YYYY-MM-DD date")
	}
	return nil
}

// validSlot checks two HH:MM times and that start comes strictly first.
func validSlot(start, end string) error {
	s, err := calendar.ParseClock(start)
	if err != nil {
		return model.Invalid("start_time", "must be an HH:MM time")
	}
	e, err := calendar.ParseClock(end)
	if err != nil {
		return model.Invalid("end_time", "must be an HH:MM time")
	}
	if s >= e {
		return model.Invalid("end_time", "must be after start_time")
	}
	return nil
}

// notPast rejects dates before today. Dates are YYYY-MM-DD so string order
// is calendar order.
func notPast(field, date, today string) error {
	if err := validDate(field, date); err != nil {
		return err
	}
	if date < today {
		return model.Invalid(field, "cannot be in the past")
	}
	return nil
}

// validWeekDays normalises codes to upper case and rejects unknown or
// repeated ones.
func validWeekDays(days []string) ([]string, error) {
	if len(days) == 0 {
		return nil, model.Invalid("week_days", "at least one day is required")
	}
	seen := make(map[string]bool, len(days))
	out := make([]string, 0, len(days))
	for _, d := range days {
		d = strings.ToUpper(strings.TrimSpace(d))
		if !contains(weekDayCodes, d) {
			return nil, model.Invalid("week_days", fmt.Sprintf("%q is not one of %s", d, strings.Join(weekDayCodes, ",")))
		}
		if seen[d] {
			return nil, model.Invalid("week_days", fmt.Sprintf("%q is repeated", d))
		}
		seen[d] = true
		out = append(out, d)
	}
	return out, nil
}

// withinWorkshop checks that date falls inside the workshop's date range.
func withinWorkshop(w *model.Workshop, date string) error {
	if date < w.StartDate {
		return model.Invalid("date", "is before the workshop starts ("+w.StartDate+")")
	}
	if w.EndDate != nil && date > *w.EndDate {
		return model.Invalid("date", "is after the workshop ends ("+*w.EndDate+")")
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
