package engine

// MatchSuggestion picks the interval a suggestion most likely refers to.
// A suggestion only names an appliance type, so candidates are narrowed in
// order:
//   - intervals of that type that take part in a detected overlap, or every
//     interval of that type in schedule when none do
//   - intervals whose duration equals the suggested window's
//   - the interval whose original start is closest to the suggested start,
//     then the earlier start, then the lower ID
func MatchSuggestion(change SuggestedChange, detected DetectResult, schedule []Interval) (Interval, bool) {
	target, err := ParseClock(change.SuggestedStartTime)
	if err != nil {
		return Interval{}, false
	}
	end, err := ParseClock(change.SuggestedEndTime)
	if err != nil {
		return Interval{}, false
	}
	wantDur := end - target

	candidates := conflicting(change.ApplianceType, detected)
	if len(candidates) == 0 {
		for _, iv := range schedule {
			if iv.ApplianceType == change.ApplianceType {
				candidates = append(candidates, iv)
			}
		}
	}

	var best Interval
	found, bestSameDur := false, false
	bestDist, bestStart := 0, 0
	for _, iv := range candidates {
		start, err := ParseClock(iv.StartTime)
		if err != nil {
			continue
		}
		stop, err := ParseClock(iv.EndTime)
		if err != nil {
			continue
		}
		sameDur := stop-start == wantDur
		dist := abs(start - target)
		switch {
		case !found,
			sameDur && !bestSameDur,
			sameDur == bestSameDur && dist < bestDist,
			sameDur == bestSameDur && dist == bestDist && start < bestStart,
			sameDur == bestSameDur && dist == bestDist && start == bestStart && iv.ID < best.ID:
			best, found, bestSameDur, bestDist, bestStart = iv, true, sameDur, dist, start
		}
	}

	return best, found
}

// conflicting lists the distinct intervals of appliance that appear in a pair
func conflicting(appliance ApplianceType, detected DetectResult) []Interval {
	var out []Interval
	seen := map[string]bool{}
	for _, p := range detected.OverlappingPairs {
		for _, iv := range []Interval{p.A, p.B} {
			key := iv.HouseholdID + "/" + iv.ID
			if iv.ApplianceType != appliance || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, iv)
		}
	}
	return out
}

// Apply returns a copy of iv moved to the suggested window
func (c SuggestedChange) Apply(iv Interval) Interval {
	iv.StartTime = c.SuggestedStartTime
	iv.EndTime = c.SuggestedEndTime
	return iv
}
