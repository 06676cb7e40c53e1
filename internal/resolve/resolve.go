// Package resolve asks a generation service how to settle schedule conflicts
// between two households and validates what it says back.
package resolve

import (
	"context"
	"errors"
	"fmt"

	"github.com/awaistahir/powershare/internal/engine"
)

var (
	ErrGeneration        = errors.New("generation service failed")
	ErrMalformedResponse = errors.New("malformed generation response")
)

// Household labels used in generation requests
const (
	LabelA = "A"
	LabelB = "B"
)

// ScheduleEntry is an interval reduced to what the generation service needs
type ScheduleEntry struct {
	ApplianceType engine.ApplianceType `json:"applianceType"`
	StartTime     string               `json:"startTime"`
	EndTime       string               `json:"endTime"`
	DayOfWeek     engine.Weekday       `json:"dayOfWeek"`
	Household     string               `json:"household"`
}

// Request is the payload sent to the generation service
type Request struct {
	HouseholdASchedule []ScheduleEntry `json:"householdASchedule"`
	HouseholdBSchedule []ScheduleEntry `json:"householdBSchedule"`
	UsageHistory       string          `json:"usageHistory,omitempty"`
	UserPreferences    string          `json:"userPreferences,omitempty"`
}

// Generator produces a raw JSON verdict for a request. Implementations may
// call a remote text-generation backend or reason locally.
type Generator interface {
	Generate(ctx context.Context, req Request) ([]byte, error)
}

// Engine shapes requests, calls the generator and validates the answer.
// It keeps no state between calls, so one Engine may serve concurrent callers.
type Engine struct {
	generator Generator
}

// NewEngine creates an engine backed by generator
func NewEngine(generator Generator) *Engine {
	return &Engine{generator: generator}
}

// Resolve returns the generator's verdict on the two schedules. An interval
// with inverted or malformed bounds fails before the generator is called.
// Any transport failure or response that does not match the report shape is
// an error; no partial report is ever returned.
func (e *Engine) Resolve(ctx context.Context, scheduleA, scheduleB []engine.Interval, usageHistory, userPreferences string) (*engine.ConflictReport, error) {
	if err := engine.ValidateSchedules(scheduleA, scheduleB); err != nil {
		return nil, err
	}

	req := BuildRequest(scheduleA, scheduleB, usageHistory, userPreferences)

	raw, err := e.generator.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	report, err := ParseReport(raw)
	if err != nil {
		return nil, err
	}
	return report, nil
}

// BuildRequest reduces both schedules to entries labelled by household
func BuildRequest(scheduleA, scheduleB []engine.Interval, usageHistory, userPreferences string) Request {
	return Request{
		HouseholdASchedule: toEntries(scheduleA, LabelA),
		HouseholdBSchedule: toEntries(scheduleB, LabelB),
		UsageHistory:       usageHistory,
		UserPreferences:    userPreferences,
	}
}

func toEntries(schedule []engine.Interval, label string) []ScheduleEntry {
	entries := make([]ScheduleEntry, 0, len(schedule))
	for _, iv := range schedule {
		entries = append(entries, ScheduleEntry{
			ApplianceType: iv.ApplianceType,
			StartTime:     iv.StartTime,
			EndTime:       iv.EndTime,
			DayOfWeek:     iv.DayOfWeek,
			Household:     label,
		})
	}
	return entries
}

// Crosscheck compares a report's verdict with the mechanical detector
type Crosscheck struct {
	MechanicalConflicts int  `json:"mechanicalConflicts"`
	Agrees              bool `json:"agrees"`
}

// CompareWithDetector reports whether the service verdict matches what
// engine.Detect found. The report itself is left untouched.
func CompareWithDetector(report *engine.ConflictReport, detected engine.DetectResult) Crosscheck {
	return Crosscheck{
		MechanicalConflicts: len(detected.OverlappingPairs),
		Agrees:              report.ConflictsDetected == detected.HasConflicts(),
	}
}

// ScheduleReader is the read side of the schedule store
type ScheduleReader interface {
	ListIntervals(householdID string) ([]engine.Interval, error)
}

// LoadSchedules reads both households' schedules from the store
func LoadSchedules(reader ScheduleReader, householdA, householdB string) ([]engine.Interval, []engine.Interval, error) {
	scheduleA, err := reader.ListIntervals(householdA)
	if err != nil {
		return nil, nil, fmt.Errorf("loading schedule for %s: %w", householdA, err)
	}
	scheduleB, err := reader.ListIntervals(householdB)
	if err != nil {
		return nil, nil, fmt.Errorf("loading schedule for %s: %w", householdB, err)
	}
	return scheduleA, scheduleB, nil
}
