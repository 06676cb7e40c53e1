package engine

// ApplianceType is one of the high-power appliances that draw on the shared supply
type ApplianceType string

const (
	ApplianceCarCharger     ApplianceType = "car-charger"
	ApplianceOven           ApplianceType = "oven"
	ApplianceWashingMachine ApplianceType = "washing-machine"
	ApplianceDryer          ApplianceType = "dryer"
	ApplianceDishwasher     ApplianceType = "dishwasher"
)

// ApplianceTypes lists every supported appliance type
var ApplianceTypes = []ApplianceType{
	ApplianceCarCharger,
	ApplianceOven,
	ApplianceWashingMachine,
	ApplianceDryer,
	ApplianceDishwasher,
}

// Weekday names a day of the week in a household's recurring schedule
type Weekday string

const (
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
	Saturday  Weekday = "Saturday"
	Sunday    Weekday = "Sunday"
)

// Weekdays lists the week in schedule order, Monday first
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// Interval is one scheduled use of an appliance by a household
type Interval struct {
	ID            string        `json:"id"`
	ApplianceType ApplianceType `json:"applianceType"`
	DayOfWeek     Weekday       `json:"dayOfWeek"`
	StartTime     string        `json:"startTime"` // HH:MM format
	EndTime       string        `json:"endTime"`   // HH:MM format
	HouseholdID   string        `json:"householdId"`
	OwnerID       string        `json:"ownerId"`
	Description   string        `json:"description,omitempty"`
}

// OverlapPair is a pair of intervals, one from each household, that run at the same time
type OverlapPair struct {
	A Interval `json:"a"`
	B Interval `json:"b"`
}

// DetectResult is the mechanical outcome of comparing two schedules
type DetectResult struct {
	OverlappingPairs []OverlapPair `json:"overlappingPairs"`
}

// HasConflicts reports whether any cross-household pair overlaps
func (r DetectResult) HasConflicts() bool {
	return len(r.OverlappingPairs) > 0
}

// SuggestedChange proposes a new window for an appliance.
// It names an appliance type rather than an interval; see MatchSuggestion.
type SuggestedChange struct {
	ApplianceType      ApplianceType `json:"applianceType"`
	SuggestedStartTime string        `json:"suggestedStartTime"`
	SuggestedEndTime   string        `json:"suggestedEndTime"`
	Reason             string        `json:"reason"`
}

// ConflictReport is the verdict returned to callers after resolution
type ConflictReport struct {
	ConflictsDetected bool              `json:"conflictsDetected"`
	Summary           string            `json:"conflictSummary"`
	SuggestedChanges  []SuggestedChange `json:"suggestedTimeChanges"`
}
