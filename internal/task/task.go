// Package task holds the rules a Task must satisfy before it is written:
// the closed category set, due-date parsing and the order in which request
// fields are checked.
package task

import (
	"strings"
	"time"
)

// Category is one of the fixed task classifications.
type Category string

const (
	Work     Category = "Work"
	Personal Category = "Personal"
	Urgent   Category = "Urgent"
)

// Categories lists every valid category in display order.
var Categories = []Category{Work, Personal, Urgent}

// ParseCategory accepts only the exact enum spelling.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// DateLayout is the wire format of a due date.
const DateLayout = "2006-01-02"

// ParseDueDate accepts YYYY-MM-DD or a full RFC 3339 timestamp and returns
// the calendar date at UTC midnight.
func ParseDueDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// FormatDueDate renders a stored due date in DateLayout.
func FormatDueDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

/* ===================== Validation ====================== */

// ValidationError is a client input problem. Its message is safe to return.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Fixed client-facing messages.
const (
	MsgMissingFields = "missing fields"
	MsgEmptyName     = "task name cannot be empty"
	MsgInvalidDate   = "invalid due date"
	MsgInvalidCat    = "invalid category"
)

// Input is the raw request body of a create or update. Create accepts the
// name under either "task" or "name".
type Input struct {
	Task     string `json:"task"`
	Name     string `json:"name"`
	DueDate  string `json:"dueDate"`
	Category string `json:"category"`
}

// Fields are validated replacement values for a Task.
type Fields struct {
	Name     string
	DueDate  time.Time
	Category Category
}

// Validate checks presence, then name, then date, then category, and stops at
// the first failure.
func (in Input) Validate() (Fields, error) {
	name := in.Task
	if name == "" {
		name = in.Name
	}
	if name == "" || in.DueDate == "" || in.Category == "" {
		return Fields{}, &ValidationError{MsgMissingFields}
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return Fields{}, &ValidationError{MsgEmptyName}
	}

	due, ok := ParseDueDate(in.DueDate)
	if !ok {
		return Fields{}, &ValidationError{MsgInvalidDate}
	}

	cat, ok := ParseCategory(in.Category)
	if !ok {
		return Fields{}, &ValidationError{MsgInvalidCat}
	}

	return Fields{Name: name, DueDate: due, Category: cat}, nil
}

/* ===================== Due-date windows ====================== */

// DueWindow is a list filter relative to the current date.
type DueWindow string

const (
	DueAny   DueWindow = ""
	DueToday DueWindow = "today"
	DueWeek  DueWindow = "week"
	DueMonth DueWindow = "month"
)

// ParseDueWindow maps the filter query value; "" means no filter.
func ParseDueWindow(s string) (DueWindow, bool) {
	switch w := DueWindow(strings.ToLower(strings.TrimSpace(s))); w {
	case DueAny, DueToday, DueWeek, DueMonth:
		return w, true
	}
	return "", false
}

// Range returns the inclusive [from, to] dates of the window as seen on now.
// ok is false for DueAny.
func (w DueWindow) Range(now time.Time) (from, to time.Time, ok bool) {
	now = now.UTC()
	from = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch w {
	case DueToday:
		return from, from, true
	case DueWeek:
		return from, from.AddDate(0, 0, 7), true
	case DueMonth:
		return from, from.AddDate(0, 0, 30), true
	}
	return time.Time{}, time.Time{}, false
}
