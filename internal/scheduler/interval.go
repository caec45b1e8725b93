// Package scheduler decides whether the wall clock is inside one of a set of
// named daily intervals and tells subscribers when that answer changes.
package scheduler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MinutesPerDay is the number of distinct time-of-day values
const MinutesPerDay = 24 * 60

// ErrInvalidTime is returned for a time of day that is not HH:MM in 00:00..23:59
var ErrInvalidTime = errors.New("invalid time of day")

// Interval is one named daily window. Start and End are "HH:MM" and both
// inclusive. End before Start wraps past midnight.
type Interval struct {
	Name    string `json:"name"`
	Start   string `json:"start"`
	End     string `json:"end"`
	Enabled bool   `json:"enabled"`
}

// DefaultIntervals returns the five daily prayer windows, all disabled
func DefaultIntervals() []Interval {
	return []Interval{
		{Name: "Fajr", Start: "05:00", End: "05:30"},
		{Name: "Dhuhr", Start: "12:30", End: "13:00"},
		{Name: "Asr", Start: "16:00", End: "16:30"},
		{Name: "Maghrib", Start: "18:45", End: "19:15"},
		{Name: "Isha", Start: "20:30", End: "21:00"},
	}
}

// ParseClock converts "HH:MM" to minutes since midnight
func ParseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(hh) == 0 || len(hh) > 2 || len(mm) != 2 || !allDigits(hh) || !allDigits(mm) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: hour in %q", ErrInvalidTime, s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: minute in %q", ErrInvalidTime, s)
	}
	return h*60 + m, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// FormatClock is the inverse of ParseClock
func FormatClock(minute int) string {
	minute = ((minute % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// MinuteOfDay returns minutes since midnight of t in its own location
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// Validate reports whether both bounds parse
func (iv Interval) Validate() error {
	if _, err := ParseClock(iv.Start); err != nil {
		return fmt.Errorf("%s start: %w", iv.Name, err)
	}
	if _, err := ParseClock(iv.End); err != nil {
		return fmt.Errorf("%s end: %w", iv.Name, err)
	}
	return nil
}

// Contains reports whether minute falls inside the window. The enabled flag
// is not consulted.
func (iv Interval) Contains(minute int) (bool, error) {
	start, err := ParseClock(iv.Start)
	if err != nil {
		return false, fmt.Errorf("%s start: %w", iv.Name, err)
	}
	end, err := ParseClock(iv.End)
	if err != nil {
		return false, fmt.Errorf("%s end: %w", iv.Name, err)
	}
	if start <= end {
		return minute >= start && minute <= end, nil
	}
	// wrap: [start..23:59] U [00:00..end]
	return minute >= start || minute <= end, nil
}

func cloneIntervals(in []Interval) []Interval {
	if in == nil {
		return []Interval{}
	}
	out := make([]Interval, len(in))
	copy(out, in)
	return out
}
