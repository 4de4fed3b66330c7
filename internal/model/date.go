package model

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical wire form of a Date
const DateLayout = "2006-01-02"

// Date is a calendar date in canonical YYYY-MM-DD form.
// Canonical values compare lexicographically in calendar order.
type Date string

var dateLayouts = []string{
	DateLayout,
	"2006/1/2",
	"2006-1-2",
	time.RFC3339,
	time.RFC3339Nano,
}

// ParseDate normalizes s into a Date, dropping any time of day
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return "", fmt.Errorf("invalid date %q", s)
}

// DateOf returns the calendar date of t in its own location
func DateOf(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

// Time returns the date at midnight UTC
func (d Date) Time() time.Time {
	t, _ := time.Parse(DateLayout, string(d))
	return t
}

// IsZero reports whether the date is unset
func (d Date) IsZero() bool {
	return d == ""
}

// Between reports whether d lies within the inclusive bounds.
// An empty bound is unbounded on that side; an empty d never matches a bound.
func (d Date) Between(start, end Date) bool {
	if start.IsZero() && end.IsZero() {
		return true
	}
	if d.IsZero() {
		return false
	}
	if !start.IsZero() && d < start {
		return false
	}
	if !end.IsZero() && d > end {
		return false
	}
	return true
}
