package engine

import (
	"fmt"
	"sort"
	"strings"
)

// Detect finds every pair of intervals, one from each schedule, that overlap
// on the same weekday. Schedules are assumed to be well formed; use
// DetectStrict when the input has not been validated.
//
// Appliance type plays no part: any two appliances running at once across
// households compete for the same supply.
func Detect(scheduleA, scheduleB []Interval) DetectResult {
	byDayA := groupByDay(scheduleA)
	byDayB := groupByDay(scheduleB)

	pairs := []OverlapPair{}
	for _, day := range Weekdays {
		for _, a := range byDayA[day] {
			for _, b := range byDayB[day] {
				if overlaps(a, b) {
					pairs = append(pairs, OverlapPair{A: a, B: b})
				}
			}
		}
	}

	return DetectResult{OverlappingPairs: pairs}
}

// DetectStrict validates the time bounds of both schedules before detecting,
// so an inverted or malformed interval fails instead of skewing the result
func DetectStrict(scheduleA, scheduleB []Interval) (DetectResult, error) {
	if err := ValidateSchedules(scheduleA, scheduleB); err != nil {
		return DetectResult{}, err
	}
	return Detect(scheduleA, scheduleB), nil
}

// ValidateSchedules checks the time bounds of every interval in both schedules
func ValidateSchedules(scheduleA, scheduleB []Interval) error {
	if err := validateSchedule(scheduleA); err != nil {
		return fmt.Errorf("schedule A: %w", err)
	}
	if err := validateSchedule(scheduleB); err != nil {
		return fmt.Errorf("schedule B: %w", err)
	}
	return nil
}

// overlaps treats intervals as half-open, so touching ends do not collide.
// HH:MM is fixed width, which makes string comparison valid.
func overlaps(a, b Interval) bool {
	return a.StartTime < b.EndTime && b.StartTime < a.EndTime
}

// groupByDay buckets a schedule by weekday, each bucket sorted by start time
func groupByDay(schedule []Interval) map[Weekday][]Interval {
	buckets := make(map[Weekday][]Interval, len(Weekdays))
	for _, iv := range schedule {
		buckets[iv.DayOfWeek] = append(buckets[iv.DayOfWeek], iv)
	}
	for day := range buckets {
		bucket := buckets[day]
		sort.SliceStable(bucket, func(i, j int) bool {
			return bucket[i].StartTime < bucket[j].StartTime
		})
	}
	return buckets
}

// Summarize describes each colliding pair on its own line
func Summarize(result DetectResult) string {
	if !result.HasConflicts() {
		return "No overlapping appliance usage between the two households."
	}

	lines := make([]string, 0, len(result.OverlappingPairs)+1)
	lines = append(lines, fmt.Sprintf("%d overlapping appliance %s found:",
		len(result.OverlappingPairs), plural(len(result.OverlappingPairs), "window", "windows")))
	for _, p := range result.OverlappingPairs {
		lines = append(lines, fmt.Sprintf("%s: %s %s-%s (household %s) overlaps %s %s-%s (household %s)",
			p.A.DayOfWeek,
			p.A.ApplianceType, p.A.StartTime, p.A.EndTime, p.A.HouseholdID,
			p.B.ApplianceType, p.B.StartTime, p.B.EndTime, p.B.HouseholdID))
	}
	return strings.Join(lines, "\n")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
