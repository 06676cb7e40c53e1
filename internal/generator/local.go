// Package generator provides the backends the resolve engine can ask for a
// conflict verdict: a remote text-generation service over HTTP, and a local
// rule-based planner that needs no network.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/awaistahir/powershare/internal/engine"
	"github.com/awaistahir/powershare/internal/resolve"
)

// LocalGenerator answers generation requests in-process. For each colliding
// pair it moves whichever interval starts later (household B on a tie) to the
// nearest free window of the same length, treating windows it has already
// handed out as taken.
type LocalGenerator struct {
	opts engine.WindowOptions
}

// NewLocalGenerator creates a local planner searching with opts
func NewLocalGenerator(opts engine.WindowOptions) *LocalGenerator {
	return &LocalGenerator{opts: opts}
}

// response mirrors the generation service's JSON contract
type response struct {
	ConflictsDetected    bool                     `json:"conflictsDetected"`
	ConflictSummary      string                   `json:"conflictSummary"`
	SuggestedTimeChanges []engine.SuggestedChange `json:"suggestedTimeChanges"`
}

// Generate detects overlaps in req and plans alternative windows
func (g *LocalGenerator) Generate(ctx context.Context, req resolve.Request) ([]byte, error) {
	scheduleA := fromEntries(req.HouseholdASchedule, resolve.LabelA)
	scheduleB := fromEntries(req.HouseholdBSchedule, resolve.LabelB)

	detected, err := engine.DetectStrict(scheduleA, scheduleB)
	if err != nil {
		return nil, err
	}

	changes, err := g.plan(detected, scheduleA, scheduleB)
	if err != nil {
		return nil, err
	}

	return json.Marshal(response{
		ConflictsDetected:    detected.HasConflicts(),
		ConflictSummary:      engine.Summarize(detected),
		SuggestedTimeChanges: changes,
	})
}

func (g *LocalGenerator) plan(detected engine.DetectResult, scheduleA, scheduleB []engine.Interval) ([]engine.SuggestedChange, error) {
	opts := g.opts
	opts.TopN = 1

	// Every interval as it will stand once earlier suggestions are applied
	current := make(map[string]engine.Interval, len(scheduleA)+len(scheduleB))
	for _, iv := range append(append([]engine.Interval{}, scheduleA...), scheduleB...) {
		current[iv.ID] = iv
	}
	moved := map[string]bool{}

	changes := []engine.SuggestedChange{}
	for _, p := range detected.OverlappingPairs {
		if moved[p.A.ID] || moved[p.B.ID] {
			a, b := current[p.A.ID], current[p.B.ID]
			if a.StartTime >= b.EndTime || b.StartTime >= a.EndTime {
				continue
			}
		}

		mover := p.B
		if p.A.StartTime > p.B.StartTime {
			mover = p.A
		}
		if moved[mover.ID] {
			// The other side keeps its slot; move the partner instead
			if mover.ID == p.A.ID {
				mover = p.B
			} else {
				mover = p.A
			}
		}

		blockers := make([]engine.Interval, 0, len(current))
		for _, iv := range current {
			blockers = append(blockers, iv)
		}

		suggested, err := engine.AlternativeWindows(current[mover.ID], blockers, opts)
		if errors.Is(err, engine.ErrNoFeasibleWindow) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("planning %s on %s: %w", mover.ApplianceType, mover.DayOfWeek, err)
		}

		change := suggested[0]
		current[mover.ID] = change.Apply(current[mover.ID])
		moved[mover.ID] = true
		changes = append(changes, change)
	}

	return changes, nil
}

// fromEntries rebuilds intervals from request entries. Entries carry no id,
// so a positional id scoped to the household is assigned.
func fromEntries(entries []resolve.ScheduleEntry, label string) []engine.Interval {
	out := make([]engine.Interval, 0, len(entries))
	for i, e := range entries {
		out = append(out, engine.Interval{
			ID:            fmt.Sprintf("%s-%d", label, i),
			ApplianceType: e.ApplianceType,
			DayOfWeek:     e.DayOfWeek,
			StartTime:     e.StartTime,
			EndTime:       e.EndTime,
			HouseholdID:   label,
		})
	}
	return out
}
