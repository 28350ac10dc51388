// Package timeframe provides the date-range type shared by all analytics
// queries. Ranges are half-open: [From, To).
package timeframe

import (
	"fmt"
	"time"
)

// TimeFrame represents a period between two points in time.
type TimeFrame struct {
	From time.Time
	To   time.Time
}

// New validates and builds a TimeFrame. The end must not precede the start;
// invalid ranges are rejected before any event log work happens.
func New(from, to time.Time) (TimeFrame, error) {
	if to.Before(from) {
		return TimeFrame{}, fmt.Errorf("invalid time frame: to %s is before from %s",
			to.Format(time.RFC3339), from.Format(time.RFC3339))
	}
	return TimeFrame{From: from.UTC(), To: to.UTC()}, nil
}

// Contains reports whether t falls inside the half-open range.
func (tf TimeFrame) Contains(t time.Time) bool {
	return !t.Before(tf.From) && t.Before(tf.To)
}

// ClampToHorizon moves the start of the range forward so it never reaches
// further back than horizonDays before now. A horizon of zero or less leaves
// the range untouched. The reference behavior is silent truncation, not an
// error: plan limits shorten the window rather than rejecting the query.
func (tf TimeFrame) ClampToHorizon(now time.Time, horizonDays int) TimeFrame {
	if horizonDays <= 0 {
		return tf
	}
	horizonStart := now.UTC().AddDate(0, 0, -horizonDays)
	if tf.From.Before(horizonStart) {
		clamped := tf
		clamped.From = horizonStart
		return clamped
	}
	return tf
}

// DayOf truncates a timestamp to its UTC calendar day.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DayKey formats a timestamp as its UTC calendar-day string (2006-01-02).
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
