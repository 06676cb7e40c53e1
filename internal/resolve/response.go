package resolve

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/awaistahir/powershare/internal/engine"
)

// rawReport uses pointers so a missing field can be told apart from a zero value
type rawReport struct {
	ConflictsDetected    *bool        `json:"conflictsDetected"`
	ConflictSummary      *string      `json:"conflictSummary"`
	SuggestedTimeChanges *[]rawChange `json:"suggestedTimeChanges"`
}

type rawChange struct {
	ApplianceType      *string `json:"applianceType"`
	SuggestedStartTime *string `json:"suggestedStartTime"`
	SuggestedEndTime   *string `json:"suggestedEndTime"`
	Reason             *string `json:"reason"`
}

// ParseReport decodes a generator response and checks that every required
// field is present and well formed. Content is passed through as is.
func ParseReport(raw []byte) (*engine.ConflictReport, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}

	var r rawReport
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if r.ConflictsDetected == nil {
		return nil, fmt.Errorf("%w: missing conflictsDetected", ErrMalformedResponse)
	}
	if r.ConflictSummary == nil {
		return nil, fmt.Errorf("%w: missing conflictSummary", ErrMalformedResponse)
	}
	if r.SuggestedTimeChanges == nil {
		return nil, fmt.Errorf("%w: missing suggestedTimeChanges", ErrMalformedResponse)
	}

	changes := make([]engine.SuggestedChange, 0, len(*r.SuggestedTimeChanges))
	for i, rc := range *r.SuggestedTimeChanges {
		c, err := rc.validate()
		if err != nil {
			return nil, fmt.Errorf("%w: suggestedTimeChanges[%d]: %v", ErrMalformedResponse, i, err)
		}
		changes = append(changes, c)
	}

	return &engine.ConflictReport{
		ConflictsDetected: *r.ConflictsDetected,
		Summary:           *r.ConflictSummary,
		SuggestedChanges:  changes,
	}, nil
}

func (rc rawChange) validate() (engine.SuggestedChange, error) {
	switch {
	case rc.ApplianceType == nil:
		return engine.SuggestedChange{}, fmt.Errorf("missing applianceType")
	case rc.SuggestedStartTime == nil:
		return engine.SuggestedChange{}, fmt.Errorf("missing suggestedStartTime")
	case rc.SuggestedEndTime == nil:
		return engine.SuggestedChange{}, fmt.Errorf("missing suggestedEndTime")
	case rc.Reason == nil:
		return engine.SuggestedChange{}, fmt.Errorf("missing reason")
	}

	appliance, err := engine.ParseApplianceType(*rc.ApplianceType)
	if err != nil {
		return engine.SuggestedChange{}, err
	}
	start, err := engine.ParseClock(*rc.SuggestedStartTime)
	if err != nil {
		return engine.SuggestedChange{}, err
	}
	end, err := engine.ParseClock(*rc.SuggestedEndTime)
	if err != nil {
		return engine.SuggestedChange{}, err
	}
	if start >= end {
		return engine.SuggestedChange{}, fmt.Errorf("start %s must be before end %s", *rc.SuggestedStartTime, *rc.SuggestedEndTime)
	}

	return engine.SuggestedChange{
		ApplianceType:      appliance,
		SuggestedStartTime: *rc.SuggestedStartTime,
		SuggestedEndTime:   *rc.SuggestedEndTime,
		Reason:             *rc.Reason,
	}, nil
}
