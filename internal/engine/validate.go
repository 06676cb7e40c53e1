package engine

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidInterval = errors.New("invalid interval")
	ErrCreateToday     = errors.New("intervals cannot be created for today")
)

// clockLayout is the fixed-width HH:MM form; lexical order equals time order
const clockLayout = "15:04"

// ParseClock parses an HH:MM value and returns minutes since midnight
func ParseClock(s string) (int, error) {
	if len(s) != len(clockLayout) {
		return 0, fmt.Errorf("%w: time %q is not HH:MM", ErrInvalidInterval, s)
	}
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return 0, fmt.Errorf("%w: time %q is not HH:MM", ErrInvalidInterval, s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock renders minutes since midnight as HH:MM
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseApplianceType checks s against the closed set of appliance types
func ParseApplianceType(s string) (ApplianceType, error) {
	for _, a := range ApplianceTypes {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: unknown appliance type %q", ErrInvalidInterval, s)
}

// ParseWeekday checks s against the seven weekday names
func ParseWeekday(s string) (Weekday, error) {
	for _, d := range Weekdays {
		if string(d) == s {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: unknown day %q", ErrInvalidInterval, s)
}

// WeekdayOf converts a time.Weekday into the schedule's weekday name
func WeekdayOf(d time.Weekday) Weekday {
	return Weekday(d.String())
}

// Validate checks the data-entry invariants of an interval.
// ID and OwnerID are not checked; the store assigns the former.
func (iv Interval) Validate() error {
	if _, err := ParseApplianceType(string(iv.ApplianceType)); err != nil {
		return err
	}
	if _, err := ParseWeekday(string(iv.DayOfWeek)); err != nil {
		return err
	}
	if iv.HouseholdID == "" {
		return fmt.Errorf("%w: household is required", ErrInvalidInterval)
	}
	start, err := ParseClock(iv.StartTime)
	if err != nil {
		return err
	}
	end, err := ParseClock(iv.EndTime)
	if err != nil {
		return err
	}
	if start >= end {
		return fmt.Errorf("%w: start %s must be before end %s", ErrInvalidInterval, iv.StartTime, iv.EndTime)
	}
	return nil
}

// CheckCreatable enforces the policy that a new interval may not be added
// for the weekday that is today in now's location. Edits are not subject to it.
func CheckCreatable(day Weekday, now time.Time) error {
	if WeekdayOf(now.Weekday()) == day {
		return fmt.Errorf("%w (%s)", ErrCreateToday, day)
	}
	return nil
}

// validateSchedule fails on the first interval whose bounds are inverted or malformed
func validateSchedule(schedule []Interval) error {
	for _, iv := range schedule {
		start, err := ParseClock(iv.StartTime)
		if err != nil {
			return fmt.Errorf("interval %s: %w", iv.ID, err)
		}
		end, err := ParseClock(iv.EndTime)
		if err != nil {
			return fmt.Errorf("interval %s: %w", iv.ID, err)
		}
		if start >= end {
			return fmt.Errorf("interval %s: %w: start %s must be before end %s",
				iv.ID, ErrInvalidInterval, iv.StartTime, iv.EndTime)
		}
	}
	return nil
}
