package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Frequency string

const (
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekdays Frequency = "weekdays"
	FrequencyWeekly   Frequency = "weekly"
)

// DefaultTimeZone is used whenever a stored zone name cannot be loaded.
const DefaultTimeZone = "America/Chicago"

// Settings is the normalized delivery schedule of one user.
type Settings struct {
	TimeZone  string    `json:"time_zone"`
	Frequency Frequency `json:"frequency"`
	Time      string    `json:"time"` // "HH:MM", 24h
	Paused    bool      `json:"paused"`
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekdays, FrequencyWeekly:
		return true
	}
	return false
}

func (s Settings) Validate() error {
	if s.TimeZone == "" {
		return &ValidationError{Field: "time_zone", Message: "is required"}
	}
	if _, err := time.LoadLocation(s.TimeZone); err != nil {
		return &ValidationError{Field: "time_zone", Message: fmt.Sprintf("unknown zone %q", s.TimeZone)}
	}
	if !s.Frequency.Valid() {
		return &ValidationError{Field: "frequency", Message: "must be daily, weekdays or weekly"}
	}
	if _, _, err := ParseTimeOfDay(s.Time); err != nil {
		return &ValidationError{Field: "time", Message: err.Error()}
	}
	return nil
}

// Complete reports whether enough is set to compute a delivery time.
func (s Settings) Complete() bool {
	return s.TimeZone != "" && s.Frequency != "" && s.Time != ""
}

// ParseTimeOfDay parses "HH:MM" (a single-digit hour is accepted).
func ParseTimeOfDay(v string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(v), ":")
	if len(parts) != 2 || len(parts[1]) != 2 {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", v)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("hour out of range in %q", v)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("minute out of range in %q", v)
	}
	return hour, minute, nil
}

// Location resolves a zone name, falling back to DefaultTimeZone and then UTC.
func Location(name string) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	if loc, err := time.LoadLocation(DefaultTimeZone); err == nil {
		return loc
	}
	return time.UTC
}

// ComputeNext returns the first delivery instant strictly after now, in UTC.
// It reports false when the schedule is paused or incomplete.
func ComputeNext(s Settings, now time.Time) (time.Time, bool) {
	if s.Paused || !s.Complete() || !s.Frequency.Valid() {
		return time.Time{}, false
	}
	hour, minute, err := ParseTimeOfDay(s.Time)
	if err != nil {
		return time.Time{}, false
	}

	loc := Location(s.TimeZone)
	local := now.In(loc)
	day := 0
	candidate := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !candidate.After(local) {
		if s.Frequency == FrequencyWeekly {
			day = 7
		} else {
			day = 1
		}
		candidate = time.Date(local.Year(), local.Month(), local.Day()+day, hour, minute, 0, 0, loc)
	}

	if s.Frequency == FrequencyWeekdays {
		for isWeekend(candidate.Weekday()) {
			day++
			candidate = time.Date(local.Year(), local.Month(), local.Day()+day, hour, minute, 0, 0, loc)
		}
	}
	return candidate.UTC(), true
}

func isWeekend(d time.Weekday) bool {
	return d == time.Saturday || d == time.Sunday
}

// InWindow reports whether t lies within window of target, inclusive.
func InWindow(t, target time.Time, window time.Duration) bool {
	d := t.Sub(target)
	if d < 0 {
		d = -d
	}
	return d <= window
}
