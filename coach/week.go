package coach

import (
	"fmt"
	"regexp"
	"time"
)

// DateLayout is the wire format of plan start dates.
const DateLayout = "2006-01-02"

// weekIDPattern validates week identifiers such as 2025-W42.
var weekIDPattern = regexp.MustCompile(`^\d{4}-W(0[1-9]|[1-4][0-9]|5[0-3])$`)

// WeekID returns the ISO week identifier of t, e.g. "2025-W42".
func WeekID(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// ValidateWeekID checks the identifier shape. The path-safe pattern also
// keeps identifiers usable as URL segments.
func ValidateWeekID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: week_id is required", ErrInvalid)
	}
	if !weekIDPattern.MatchString(id) {
		return fmt.Errorf("%w: week_id %q must look like 2025-W42", ErrInvalid, id)
	}
	return nil
}

// NextMonday returns the Monday strictly after now, at midnight in now's
// location. On a Monday it returns the following Monday.
func NextMonday(now time.Time) time.Time {
	offset := (int(now.Weekday()) + 6) % 7 // Mon=0 .. Sun=6
	days := (7 - offset) % 7
	if days == 0 {
		days = 7
	}
	y, m, d := now.Date()
	return time.Date(y, m, d+days, 0, 0, 0, 0, now.Location())
}

// WeekStart returns the Monday of t's ISO week, at midnight.
func WeekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
}

// ParseDate parses a YYYY-MM-DD date in UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalid, s)
	}
	return t, nil
}
