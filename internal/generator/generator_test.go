package generator

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/awaistahir/powershare/internal/config"
	"github.com/awaistahir/powershare/internal/engine"
	"github.com/awaistahir/powershare/internal/resolve"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func entry(appliance engine.ApplianceType, day engine.Weekday, start, end, household string) resolve.ScheduleEntry {
	return resolve.ScheduleEntry{ApplianceType: appliance, DayOfWeek: day, StartTime: start, EndTime: end, Household: household}
}

func TestLocalGeneratorThroughEngine(t *testing.T) {
	a := []engine.Interval{{
		ID: "a1", ApplianceType: engine.ApplianceCarCharger, DayOfWeek: engine.Monday,
		StartTime: "22:00", EndTime: "23:00", HouseholdID: "flat-1",
	}}
	b := []engine.Interval{{
		ID: "b1", ApplianceType: engine.ApplianceOven, DayOfWeek: engine.Monday,
		StartTime: "22:30", EndTime: "23:30", HouseholdID: "flat-2",
	}}

	e := resolve.NewEngine(NewLocalGenerator(engine.DefaultWindowOptions()))
	report, err := e.Resolve(context.Background(), a, b, "", "")
	require.NoError(t, err)

	assert.True(t, report.ConflictsDetected)
	assert.Contains(t, report.Summary, "Monday")
	require.Len(t, report.SuggestedChanges, 1)

	change := report.SuggestedChanges[0]
	assert.Equal(t, engine.ApplianceOven, change.ApplianceType)
	assert.Equal(t, "21:00", change.SuggestedStartTime)
	assert.Equal(t, "22:00", change.SuggestedEndTime)

	matched, ok := engine.MatchSuggestion(change, engine.Detect(a, b), b)
	require.True(t, ok)
	assert.Empty(t, engine.Detect(a, []engine.Interval{change.Apply(matched)}).OverlappingPairs)
}

func TestLocalGeneratorNoConflict(t *testing.T) {
	req := resolve.Request{
		HouseholdASchedule: []resolve.ScheduleEntry{entry(engine.ApplianceWashingMachine, engine.Tuesday, "08:00", "09:00", "A")},
		HouseholdBSchedule: []resolve.ScheduleEntry{entry(engine.ApplianceDryer, engine.Wednesday, "08:00", "09:00", "B")},
	}

	raw, err := NewLocalGenerator(engine.WindowOptions{}).Generate(context.Background(), req)
	require.NoError(t, err)

	report, err := resolve.ParseReport(raw)
	require.NoError(t, err)
	assert.False(t, report.ConflictsDetected)
	assert.Empty(t, report.SuggestedChanges)
}

func TestLocalGeneratorRepacksAllConflicts(t *testing.T) {
	req := resolve.Request{
		HouseholdASchedule: []resolve.ScheduleEntry{
			entry(engine.ApplianceCarCharger, engine.Friday, "18:00", "20:00", "A"),
			entry(engine.ApplianceOven, engine.Friday, "12:00", "13:00", "A"),
		},
		HouseholdBSchedule: []resolve.ScheduleEntry{
			entry(engine.ApplianceOven, engine.Friday, "18:30", "19:30", "B"),
			entry(engine.ApplianceDishwasher, engine.Friday, "19:00", "20:30", "B"),
			entry(engine.ApplianceDryer, engine.Friday, "12:30", "13:30", "B"),
		},
	}

	raw, err := NewLocalGenerator(engine.DefaultWindowOptions()).Generate(context.Background(), req)
	require.NoError(t, err)
	report, err := resolve.ParseReport(raw)
	require.NoError(t, err)
	require.True(t, report.ConflictsDetected)

	// Apply every suggestion and confirm the week is clean
	a := fromEntries(req.HouseholdASchedule, resolve.LabelA)
	b := fromEntries(req.HouseholdBSchedule, resolve.LabelB)
	for _, c := range report.SuggestedChanges {
		for i := range b {
			if b[i].ApplianceType == c.ApplianceType {
				b[i] = c.Apply(b[i])
			}
		}
	}
	assert.Empty(t, engine.Detect(a, b).OverlappingPairs)
}

func TestLocalGeneratorRejectsInvertedInterval(t *testing.T) {
	req := resolve.Request{
		HouseholdASchedule: []resolve.ScheduleEntry{entry(engine.ApplianceOven, engine.Monday, "10:00", "09:00", "A")},
	}
	_, err := NewLocalGenerator(engine.WindowOptions{}).Generate(context.Background(), req)
	assert.ErrorIs(t, err, engine.ErrInvalidInterval)
}

func TestHTTPGenerator(t *testing.T) {
	var got resolve.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"conflictsDetected": false, "conflictSummary": "clear", "suggestedTimeChanges": []}`)
	}))
	defer srv.Close()

	gen := NewHTTPGenerator(HTTPConfig{URL: srv.URL, APIKey: "secret", Timeout: time.Second}, testLogger())
	req := resolve.Request{
		HouseholdASchedule: []resolve.ScheduleEntry{entry(engine.ApplianceOven, engine.Monday, "10:00", "11:00", "A")},
		HouseholdBSchedule: []resolve.ScheduleEntry{},
		UserPreferences:    "no ovens after 9pm",
	}

	raw, err := gen.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"conflictsDetected": false, "conflictSummary": "clear", "suggestedTimeChanges": []}`, string(raw))
	assert.Equal(t, req, got)
}

func TestHTTPGeneratorErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	gen := NewHTTPGenerator(HTTPConfig{URL: srv.URL}, testLogger())
	e := resolve.NewEngine(gen)

	report, err := e.Resolve(context.Background(), nil, nil, "", "")
	assert.Nil(t, report)
	assert.ErrorIs(t, err, resolve.ErrGeneration)
	assert.ErrorContains(t, err, "503")
}

func TestHTTPGeneratorRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	gen := NewHTTPGenerator(HTTPConfig{URL: srv.URL, RateLimit: 0.001, Burst: 1}, testLogger())

	_, err := gen.Generate(context.Background(), resolve.Request{})
	require.NoError(t, err)

	// The second call would wait far past the deadline
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = gen.Generate(ctx, resolve.Request{})
	assert.ErrorContains(t, err, "rate limiter")
}

func TestFromConfig(t *testing.T) {
	cfg := &config.Config{Generator: config.GeneratorConfig{Mode: config.ModeLocal}}
	gen, err := FromConfig(cfg, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &LocalGenerator{}, gen)

	cfg.Generator = config.GeneratorConfig{Mode: config.ModeHTTP, URL: "http://localhost:1"}
	gen, err = FromConfig(cfg, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &HTTPGenerator{}, gen)

	cfg.Generator.Mode = "psychic"
	_, err = FromConfig(cfg, testLogger())
	assert.Error(t, err)
}
