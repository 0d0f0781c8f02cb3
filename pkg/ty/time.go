// SPDX-License-Identifier: GPL-3.0-only
package ty

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// DateFormat is the calendar date layout accepted for --since-date.
const DateFormat = "2006-01-02"

// ErrInFuture is returned when a start time lies after now.
var ErrInFuture = errors.New("start time is in the future")

// Time-only formats (HH:MM:SS or HH:MM), taken as today
var timeOnlyFormats = []string{
	"15:04:05",
	"15:04",
}

// Date-time formats without timezone, taken in the local zone
var dateTimeFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	DateFormat,
}

// ParseStart interprets value as a point in time relative to now. It accepts
// a Go duration ("90s", "1h30m") meaning that long ago, an RFC3339 timestamp,
// a local date-time, a local date (start of that day) or a time of day today.
func ParseStart(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty start time")
	}

	if d, err := time.ParseDuration(value); err == nil {
		if d < 0 {
			return time.Time{}, fmt.Errorf("negative duration %q", value)
		}
		return now.Add(-d), nil
	}

	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}

	loc := now.Location()
	for _, format := range timeOnlyFormats {
		if t, err := time.ParseInLocation(format, value, loc); err == nil {
			return time.Date(now.Year(), now.Month(), now.Day(),
				t.Hour(), t.Minute(), t.Second(), 0, loc), nil
		}
	}
	for _, format := range dateTimeFormats {
		if t, err := time.ParseInLocation(format, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q (expected a duration, RFC3339, %s or HH:MM)", value, DateFormat)
}

// SecondsSince returns the whole seconds elapsed from start to now, rounded
// up so that the start instant itself is included. A start after now yields
// ErrInFuture.
func SecondsSince(start, now time.Time) (int64, error) {
	if start.After(now) {
		return 0, fmt.Errorf("%w: %s", ErrInFuture, start.Format(time.RFC3339))
	}
	return int64(math.Ceil(now.Sub(start).Seconds())), nil
}

// StartOfDay returns midnight of t's day in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
