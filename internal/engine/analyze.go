package engine

import (
	"errors"
	"fmt"
)

// Conflict is an overlapping pair with candidate windows for the interval
// that should move
type Conflict struct {
	OverlapPair
	Moving       Interval          `json:"moving"`
	Alternatives []SuggestedChange `json:"alternatives"`
}

// Analysis is the full detector output: what collides, in words, and where
// the colliding items could go instead
type Analysis struct {
	Conflicts []Conflict `json:"conflicts"`
	Summary   string     `json:"summary"`
}

// Analyze detects overlaps between the two schedules and, for each pair,
// searches alternatives for whichever interval starts later (B on a tie).
// Alternatives avoid every interval in both schedules. A pair with no
// feasible window keeps an empty list.
func Analyze(scheduleA, scheduleB []Interval, opts WindowOptions) (Analysis, error) {
	detected, err := DetectStrict(scheduleA, scheduleB)
	if err != nil {
		return Analysis{}, err
	}

	blockers := make([]Interval, 0, len(scheduleA)+len(scheduleB))
	blockers = append(blockers, scheduleA...)
	blockers = append(blockers, scheduleB...)

	conflicts := make([]Conflict, 0, len(detected.OverlappingPairs))
	for _, p := range detected.OverlappingPairs {
		moving := p.B
		if p.A.StartTime > p.B.StartTime {
			moving = p.A
		}

		alternatives, err := AlternativeWindows(moving, blockers, opts)
		if err != nil && !errors.Is(err, ErrNoFeasibleWindow) {
			return Analysis{}, fmt.Errorf("searching alternatives for %s: %w", moving.ID, err)
		}
		if alternatives == nil {
			alternatives = []SuggestedChange{}
		}

		conflicts = append(conflicts, Conflict{
			OverlapPair:  p,
			Moving:       moving,
			Alternatives: alternatives,
		})
	}

	return Analysis{
		Conflicts: conflicts,
		Summary:   Summarize(detected),
	}, nil
}
