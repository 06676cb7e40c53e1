package uiapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/awaistahir/powershare/internal/engine"
	"github.com/awaistahir/powershare/internal/metrics"
	"github.com/awaistahir/powershare/internal/resolve"
	"github.com/awaistahir/powershare/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// Options carries the schedule settings the handlers need
type Options struct {
	HouseholdA string
	HouseholdB string
	Location   *time.Location
	Windows    engine.WindowOptions
}

type Server struct {
	store    *store.Store
	resolver *resolve.Engine
	metrics  *metrics.Metrics
	logger   *logrus.Logger
	opts     Options
	now      func() time.Time
}

func NewServer(st *store.Store, resolver *resolve.Engine, m *metrics.Metrics, logger *logrus.Logger, opts Options) *Server {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Server{
		store:    st,
		resolver: resolver,
		metrics:  m,
		logger:   logger,
		opts:     opts,
		now:      time.Now,
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.Middleware)
	// Longer than the generation client timeout
	r.Use(middleware.Timeout(60 * time.Second))

	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)

		r.Get("/households", s.handleListHouseholds)
		r.Put("/households/{householdID}", s.handleSaveHousehold)
		r.Get("/households/{householdID}/intervals", s.handleListIntervals)
		r.Post("/households/{householdID}/intervals", s.handleCreateInterval)

		r.Get("/intervals/{id}", s.handleGetInterval)
		r.Put("/intervals/{id}", s.handleUpdateInterval)
		r.Delete("/intervals/{id}", s.handleDeleteInterval)

		r.Post("/conflicts/detect", s.handleDetect)
		r.Post("/conflicts/resolve", s.handleResolve)
		r.Post("/suggestions/apply", s.handleApplySuggestion)
	})

	return r
}

// requestLogger writes one structured line per request
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.WithFields(logrus.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start).String(),
		}).Info("request handled")
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"version":    "1.0.0",
		"householdA": s.opts.HouseholdA,
		"householdB": s.opts.HouseholdB,
		"timezone":   s.opts.Location.String(),
	})
}

func (s *Server) handleListHouseholds(w http.ResponseWriter, r *http.Request) {
	households, err := s.store.ListHouseholds()
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, households)
}

func (s *Server) handleSaveHousehold(w http.ResponseWriter, r *http.Request) {
	var household store.Household
	if err := json.NewDecoder(r.Body).Decode(&household); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	household.ID = chi.URLParam(r, "householdID")
	if err := s.store.SaveHousehold(&household); err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, household)
}

func (s *Server) handleListIntervals(w http.ResponseWriter, r *http.Request) {
	intervals, err := s.store.ListIntervals(chi.URLParam(r, "householdID"))
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, intervals)
}

func (s *Server) handleCreateInterval(w http.ResponseWriter, r *http.Request) {
	var interval engine.Interval
	if err := json.NewDecoder(r.Body).Decode(&interval); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	interval.HouseholdID = chi.URLParam(r, "householdID")

	if err := engine.CheckCreatable(interval.DayOfWeek, s.now().In(s.opts.Location)); err != nil {
		s.respondStoreError(w, err)
		return
	}
	if err := s.store.CreateInterval(&interval); err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, interval)
}

func (s *Server) handleGetInterval(w http.ResponseWriter, r *http.Request) {
	interval, err := s.store.GetInterval(chi.URLParam(r, "id"))
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, interval)
}

func (s *Server) handleUpdateInterval(w http.ResponseWriter, r *http.Request) {
	var interval engine.Interval
	if err := json.NewDecoder(r.Body).Decode(&interval); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	interval.ID = chi.URLParam(r, "id")
	if err := s.store.UpdateInterval(&interval); err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, interval)
}

func (s *Server) handleDeleteInterval(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteInterval(id); err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "deleted", "id": id})
}

// HouseholdPair selects the two schedules to compare; empty fields fall back
// to the configured households
type HouseholdPair struct {
	HouseholdA string `json:"householdA"`
	HouseholdB string `json:"householdB"`
}

type ResolveRequest struct {
	HouseholdPair
	UsageHistory    string `json:"usageHistory"`
	UserPreferences string `json:"userPreferences"`
}

type ResolveResponse struct {
	Report     *engine.ConflictReport `json:"report"`
	Crosscheck resolve.Crosscheck     `json:"crosscheck"`
	// Targets holds, per suggested change, the ID of the interval it most
	// likely refers to, or "" when no interval of that appliance exists
	Targets []string `json:"targets"`
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	var pair HouseholdPair
	if !decodeOptional(w, r, &pair) {
		return
	}
	pair = s.withDefaults(pair)

	scheduleA, scheduleB, err := resolve.LoadSchedules(s.store, pair.HouseholdA, pair.HouseholdB)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	analysis, err := engine.Analyze(scheduleA, scheduleB, s.opts.Windows)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.metrics.ObserveDetection(len(analysis.Conflicts))

	respondJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	req.HouseholdPair = s.withDefaults(req.HouseholdPair)

	scheduleA, scheduleB, err := resolve.LoadSchedules(s.store, req.HouseholdA, req.HouseholdB)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	start := time.Now()
	report, err := s.resolver.Resolve(r.Context(), scheduleA, scheduleB, req.UsageHistory, req.UserPreferences)
	if errors.Is(err, engine.ErrInvalidInterval) {
		s.respondStoreError(w, err)
		return
	}
	if err != nil {
		outcome := metrics.OutcomeError
		if errors.Is(err, resolve.ErrMalformedResponse) {
			outcome = metrics.OutcomeMalformed
		}
		s.metrics.ObserveResolution(outcome, time.Since(start))
		s.logger.WithError(err).Warn("resolution failed")
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	outcome := metrics.OutcomeClear
	if report.ConflictsDetected {
		outcome = metrics.OutcomeConflict
	}
	s.metrics.ObserveResolution(outcome, time.Since(start))

	detected := engine.Detect(scheduleA, scheduleB)
	crosscheck := resolve.CompareWithDetector(report, detected)
	s.metrics.ObserveCrosscheck(crosscheck.Agrees)

	combined := append(append([]engine.Interval{}, scheduleA...), scheduleB...)
	targets := make([]string, 0, len(report.SuggestedChanges))
	for _, c := range report.SuggestedChanges {
		target, _ := engine.MatchSuggestion(c, detected, combined)
		targets = append(targets, target.ID)
	}

	respondJSON(w, http.StatusOK, ResolveResponse{
		Report:     report,
		Crosscheck: crosscheck,
		Targets:    targets,
	})
}

type ApplyRequest struct {
	IntervalID string                 `json:"intervalId"`
	Change     engine.SuggestedChange `json:"change"`
}

// handleApplySuggestion moves an interval to a suggested window once a
// person has accepted it
func (s *Server) handleApplySuggestion(w http.ResponseWriter, r *http.Request) {
	var req ApplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	interval, err := s.store.GetInterval(req.IntervalID)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	if interval.ApplianceType != req.Change.ApplianceType {
		respondError(w, http.StatusBadRequest, "suggestion is for a different appliance")
		return
	}

	moved := req.Change.Apply(*interval)
	if err := s.store.UpdateInterval(&moved); err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, moved)
}

func (s *Server) withDefaults(p HouseholdPair) HouseholdPair {
	if p.HouseholdA == "" {
		p.HouseholdA = s.opts.HouseholdA
	}
	if p.HouseholdB == "" {
		p.HouseholdB = s.opts.HouseholdB
	}
	return p
}

// decodeOptional accepts an empty body as the zero value
func decodeOptional(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrCreateToday):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrInvalidInterval):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.WithError(err).Error("request failed")
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
