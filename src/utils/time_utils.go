package utils

import (
	"fmt"
	"time"
)

// ResetTime resets the time component based on the granularity specified.
// Pass "minute", "hour" or "day"; the day granularity works on the UTC calendar.
func ResetTime(t time.Time, granularity string) time.Time {
	switch granularity {
	case "minute":
		return t.Truncate(time.Minute)
	case "hour":
		return t.Truncate(time.Hour)
	case "day":
		return UTCDate(t)
	default:
		fmt.Println("Invalid granularity. Please use 'minute', 'hour' or 'day'.")
		return t
	}
}

// UTCDate returns midnight UTC of the calendar day t falls on in UTC.
func UTCDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// SameOrAfterDay reports whether the UTC date of t is not before the UTC date of ref.
func SameOrAfterDay(t, ref time.Time) bool {
	return !UTCDate(t).Before(UTCDate(ref))
}

const upbitLocalLayout = "2006-01-02T15:04:05"

// ParseUTCLocal parses an ISO local date-time (no offset) as UTC. Values carrying
// an offset are accepted too.
func ParseUTCLocal(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(upbitLocalLayout, s, time.UTC); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t.UTC(), nil
}
