package validation

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// horizonYears is how far ahead a date range may reach.
const horizonYears = 2

var (
	ErrStartInPast    = errors.New("start date cannot be in the past")
	ErrStartTooFar    = errors.New("start date cannot be more than 2 years ahead")
	ErrEndBeforeStart = errors.New("end date cannot be before start date")
	ErrEndInPast      = errors.New("end date cannot be in the past")
	ErrEndTooFar      = errors.New("end date cannot be more than 2 years ahead")
)

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD", raw)
	}
	return t, nil
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ValidateDateRange checks that [start, end] lies within [today, today+2y]
// and that end is not before start. Only the calendar day of each value counts.
func ValidateDateRange(start, end, today time.Time) error {
	start, end, today = Day(start), Day(end), Day(today)
	limit := today.AddDate(horizonYears, 0, 0)

	if start.Before(today) {
		return ErrStartInPast
	}
	if start.After(limit) {
		return ErrStartTooFar
	}
	if end.Before(start) {
		return ErrEndBeforeStart
	}
	if end.Before(today) {
		return ErrEndInPast
	}
	if end.After(limit) {
		return ErrEndTooFar
	}
	return nil
}
