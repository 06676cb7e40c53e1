package engine

import (
	"errors"
	"fmt"
	"sort"
)

var ErrNoFeasibleWindow = errors.New("no feasible window found matching constraints")

// WindowOptions controls the search for alternative windows
type WindowOptions struct {
	DayStart    string // HH:MM, earliest allowed start
	DayEnd      string // HH:MM, latest allowed end
	StepMinutes int    // granularity of candidate starts
	TopN        int    // maximum number of candidates returned
}

// DefaultWindowOptions searches the whole day in quarter-hour steps
func DefaultWindowOptions() WindowOptions {
	return WindowOptions{
		DayStart:    "00:00",
		DayEnd:      "23:59",
		StepMinutes: 15,
		TopN:        3,
	}
}

type span struct {
	start, end int
}

// AlternativeWindows finds new windows of the same length for moving on its
// weekday that collide with none of the blockers on that day. Blockers are
// typically the other household's intervals plus the mover's own household's
// other intervals. Candidates are ordered by how far they shift the original
// start, earlier first on a tie.
func AlternativeWindows(moving Interval, blockers []Interval, opts WindowOptions) ([]SuggestedChange, error) {
	opts = withDefaults(opts)

	start, err := ParseClock(moving.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := ParseClock(moving.EndTime)
	if err != nil {
		return nil, err
	}
	if start >= end {
		return nil, fmt.Errorf("%w: start %s must be before end %s", ErrInvalidInterval, moving.StartTime, moving.EndTime)
	}
	dayStart, err := ParseClock(opts.DayStart)
	if err != nil {
		return nil, err
	}
	dayEnd, err := ParseClock(opts.DayEnd)
	if err != nil {
		return nil, err
	}

	busy := []span{}
	for _, b := range blockers {
		if b.DayOfWeek != moving.DayOfWeek || sameInterval(b, moving) {
			continue
		}
		bs, err := ParseClock(b.StartTime)
		if err != nil {
			return nil, err
		}
		be, err := ParseClock(b.EndTime)
		if err != nil {
			return nil, err
		}
		busy = append(busy, span{start: bs, end: be})
	}

	duration := end - start
	candidates := []span{}
	// Candidate starts are aligned to the step grid
	first := alignUp(dayStart, opts.StepMinutes)
	for s := first; s+duration <= dayEnd; s += opts.StepMinutes {
		if s == start {
			continue
		}
		c := span{start: s, end: s + duration}
		if isFree(c, busy) {
			candidates = append(candidates, c)
		}
	}

	if len(candidates) == 0 {
		return nil, ErrNoFeasibleWindow
	}

	// Sort by distance from the original start (ascending)
	sort.SliceStable(candidates, func(i, j int) bool {
		di, dj := abs(candidates[i].start-start), abs(candidates[j].start-start)
		if di != dj {
			return di < dj
		}
		return candidates[i].start < candidates[j].start
	})

	if len(candidates) > opts.TopN {
		candidates = candidates[:opts.TopN]
	}

	changes := make([]SuggestedChange, 0, len(candidates))
	for _, c := range candidates {
		changes = append(changes, SuggestedChange{
			ApplianceType:      moving.ApplianceType,
			SuggestedStartTime: FormatClock(c.start),
			SuggestedEndTime:   FormatClock(c.end),
			Reason:             generateReason(moving, c.start, start),
		})
	}
	return changes, nil
}

func withDefaults(opts WindowOptions) WindowOptions {
	def := DefaultWindowOptions()
	if opts.DayStart == "" {
		opts.DayStart = def.DayStart
	}
	if opts.DayEnd == "" {
		opts.DayEnd = def.DayEnd
	}
	if opts.StepMinutes <= 0 {
		opts.StepMinutes = def.StepMinutes
	}
	if opts.TopN <= 0 {
		opts.TopN = def.TopN
	}
	return opts
}

func alignUp(m, step int) int {
	if r := m % step; r != 0 {
		return m + step - r
	}
	return m
}

// isFree checks a candidate against busy spans with half-open overlap
func isFree(c span, busy []span) bool {
	for _, b := range busy {
		if c.start < b.end && b.start < c.end {
			return false
		}
	}
	return true
}

func sameInterval(a, b Interval) bool {
	if a.ID != "" || b.ID != "" {
		return a.ID == b.ID
	}
	return a == b
}

// generateReason explains the shift in plain words
func generateReason(moving Interval, newStart, oldStart int) string {
	shift := newStart - oldStart
	direction := "later"
	if shift < 0 {
		direction = "earlier"
	}
	return fmt.Sprintf("Moves the %s on %s %s %s so it no longer runs alongside the other household's appliances",
		moving.ApplianceType, moving.DayOfWeek, describeShift(abs(shift)), direction)
}

func describeShift(minutes int) string {
	h, m := minutes/60, minutes%60
	switch {
	case h == 0:
		return fmt.Sprintf("%d min", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh%02d", h, m)
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
