// Package calendar derives calendar days from instants and builds the week
// and month grids used by the schedule views.
//
// It is the only place where calendar fields are read off a time.Time. Every
// date string is built from the instant's own location (year, month, day),
// never from its UTC decomposition, so an evening instant west of UTC stays
// on its local day.
package calendar

import (
	"fmt"
	"iter"
	"strings"
	"time"
)

// Wire formats for dates and wall-clock times.
const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// View is the granularity of a calendar grid.
type View string

const (
	Week  View = "week"
	Month View = "month"
)

// ParseView accepts "week" or "month"; an empty string means week.
func ParseView(s string) (View, error) {
	switch View(strings.ToLower(strings.TrimSpace(s))) {
	case "", Week:
		return Week, nil
	case Month:
		return Month, nil
	}
	return "", fmt.Errorf("unknown calendar view %q", s)
}

// DateKey returns the canonical YYYY-MM-DD string of t's local calendar day.
func DateKey(t time.Time) string {
	y, m, d := t.Date()
	return fmt.Sprintf("%04d-%02d-%02d", y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string as local midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q is not YYYY-MM-DD", s)
	}
	return t, nil
}

// ParseClock parses an HH:MM 24-hour string into minutes after midnight.
func ParseClock(s string) (int, error) {
	if len(s) != len(ClockLayout) {
		return 0, fmt.Errorf("time %q is not HH:MM", s)
	}
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return 0, fmt.Errorf("time %q is not HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Today returns local midnight of the day containing now in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return midnight(now.In(loc))
}

// Advance shifts ref by n weeks or n months. Month shifts keep the day of
// month when it exists and clamp to the month's last day otherwise.
func Advance(ref time.Time, view View, n int) time.Time {
	if view == Month {
		y, m, d := ref.Date()
		first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, ref.Location())
		if last := daysIn(first); d > last {
			d = last
		}
		return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, ref.Location())
	}
	return addDays(midnight(ref), 7*n)
}

// Span returns the first and last day covered by the grid of ref.
func Span(ref time.Time, view View) (first, last time.Time) {
	ref = midnight(ref)
	if view == Month {
		y, m, _ := ref.Date()
		firstOfMonth := time.Date(y, m, 1, 0, 0, 0, 0, ref.Location())
		lastOfMonth := time.Date(y, m+1, 0, 0, 0, 0, 0, ref.Location())
		return weekStart(firstOfMonth), addDays(weekStart(lastOfMonth), 6)
	}
	first = weekStart(ref)
	return first, addDays(first, 6)
}

// Day is one cell of a calendar grid.
type Day[T any] struct {
	Date    string       `json:"date"`
	Weekday time.Weekday `json:"weekday"`
	InMonth bool         `json:"in_month"`
	IsToday bool         `json:"is_today"`
	Items   []T          `json:"items"`
}

// Grid yields the days of ref's week or month grid in order. today is the
// canonical date string of the current day; items are attached to the day
// whose date string equals dateOf(item). The sequence may be ranged over
// any number of times.
func Grid[T any](ref time.Time, view View, today string, items []T, dateOf func(T) string) iter.Seq[Day[T]] {
	first, last := Span(ref, view)
	month := midnight(ref).Month()
	return func(yield func(Day[T]) bool) {
		byDate := make(map[string][]T)
		for _, it := range items {
			k := dateOf(it)
			byDate[k] = append(byDate[k], it)
		}
		for d := first; !d.After(last); d = addDays(d, 1) {
			key := DateKey(d)
			items := byDate[key]
			if items == nil {
				items = []T{}
			}
			day := Day[T]{
				Date:    key,
				Weekday: d.Weekday(),
				InMonth: view != Month || d.Month() == month,
				IsToday: key == today,
				Items:   items,
			}
			if !yield(day) {
				return
			}
		}
	}
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// addDays moves by calendar days, so DST changes never skip or repeat a day.
func addDays(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+n, 0, 0, 0, 0, t.Location())
}

func weekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return addDays(t, -offset)
}

func daysIn(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}
