package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/db"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/eta"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/planner"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/stats"
)

const (
	defaultDelayHours = 24
	maxDelayHours     = 24 * 7
)

// HealthResponse is the JSON response structure for GET /health
type HealthResponse struct {
	Status string `json:"status" groups:"basic"`
	Stops  int    `json:"stops" groups:"basic"`
	Trips  int    `json:"trips" groups:"basic"`
}

// Health handles GET /health. It answers in degraded mode too.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	if !s.ready() {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "not_ready"}, basicGroups)
		return
	}
	sched := s.deps.Estimator.Schedule()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Stops:  sched.NumStops(),
		Trips:  sched.NumTrips(),
	}, basicGroups)
}

// GetSystemStats handles GET /get-system-stats
func (s *Server) GetSystemStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vehicles := s.deps.Feed.Snapshot(ctx)

	threshold := s.deps.OnTimeThresholdSeconds
	if threshold <= 0 {
		threshold = stats.DefaultOnTimeThresholdSeconds
	}
	writeJSON(w, http.StatusOK, stats.Compute(ctx, s.deps.Estimator, vehicles, threshold), basicGroups)
}

// ActiveRoutesResponse is the JSON response structure for GET /get-active-routes
type ActiveRoutesResponse struct {
	Routes []stats.ActiveRoute `json:"routes" groups:"basic"`
	Count  int                 `json:"count" groups:"basic"`
}

// GetActiveRoutes handles GET /get-active-routes
func (s *Server) GetActiveRoutes(w http.ResponseWriter, r *http.Request) {
	vehicles := s.deps.Feed.Snapshot(r.Context())
	routes := stats.ActiveRoutes(s.deps.Estimator.Schedule(), vehicles)
	writeJSON(w, http.StatusOK, ActiveRoutesResponse{Routes: routes, Count: len(routes)}, basicGroups)
}

type coordinates struct {
	Lat *float64 `json:"lat" validate:"required,latitude"`
	Lon *float64 `json:"lon" validate:"required,longitude"`
}

type tripPlanRequest struct {
	StartCoords *coordinates `json:"start_coords" validate:"required"`
	EndCoords   *coordinates `json:"end_coords" validate:"required"`
}

// GetRealtimeTripPlan handles POST /get-realtime-trip-plan.
// ?detail=true adds stop ids and raw seconds to the output.
func (s *Server) GetRealtimeTripPlan(w http.ResponseWriter, r *http.Request) {
	var req tripPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", map[string]interface{}{"reason": err.Error()})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid coordinates", validationDetails(err))
		return
	}

	groups := basicGroups
	if detail, _ := strconv.ParseBool(r.URL.Query().Get("detail")); detail {
		groups = detailedGroups
	}

	plan := s.deps.Planner.Realtime(r.Context(),
		planner.Coordinate{Lat: *req.StartCoords.Lat, Lon: *req.StartCoords.Lon},
		planner.Coordinate{Lat: *req.EndCoords.Lat, Lon: *req.EndCoords.Lon},
	)
	writeJSON(w, http.StatusOK, planBody(plan), groups)
}

type tripSummary struct {
	PossibleRoutes     []planner.PossibleRoute `json:"possible_routes" groups:"basic"`
	ActiveRoutesInCity []stats.ActiveRoute     `json:"active_routes_in_city" groups:"basic"`
}

// TripPlanResponse is the JSON response structure for POST /get-realtime-trip-plan
type TripPlanResponse struct {
	TripSummary tripSummary          `json:"trip_summary" groups:"basic"`
	FinalPlan   map[string][]eta.ETA `json:"final_plan" groups:"basic"`
	Message     string               `json:"message,omitempty" groups:"basic"`
}

// MessageResponse carries only a message.
type MessageResponse struct {
	Message string `json:"message" groups:"basic"`
}

// planBody shapes a realtime plan as the response document. When no stop is
// near the destination only the message is returned.
func planBody(plan planner.RealtimePlan) interface{} {
	if plan.NoDestination {
		return MessageResponse{Message: plan.Message}
	}

	final := make(map[string][]eta.ETA, len(plan.RouteIDs))
	for _, id := range plan.RouteIDs {
		final[fmt.Sprintf("route_%d", id)] = plan.FinalPlan[id]
	}
	return TripPlanResponse{
		TripSummary: tripSummary{
			PossibleRoutes:     plan.PossibleRoutes,
			ActiveRoutesInCity: plan.ActiveRoutes,
		},
		FinalPlan: final,
		Message:   plan.Message,
	}
}

func validationDetails(err error) map[string]interface{} {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]interface{}{"reason": err.Error()}
	}
	fields := make(map[string]interface{}, len(verrs))
	for _, fe := range verrs {
		fields[fe.Namespace()] = fe.Tag()
	}
	return fields
}

// DelayStatsResponse is the JSON response structure for GET /api/stats/delays
type DelayStatsResponse struct {
	HourlyStats []db.HourlyDelayStat `json:"hourlyStats" groups:"basic"`
	Hours       int                  `json:"hours" groups:"basic"`
	LastChecked string               `json:"lastChecked" groups:"basic"`
}

// GetDelayStats handles GET /api/stats/delays
// Optional query parameters: route_id, hours (default 24, at most a week).
func (s *Server) GetDelayStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeError(w, http.StatusServiceUnavailable, "Delay history not configured", nil)
		return
	}

	var routeID int64
	if v := r.URL.Query().Get("route_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid route_id", map[string]interface{}{"route_id": v})
			return
		}
		routeID = id
	}

	hours := defaultDelayHours
	if v := r.URL.Query().Get("hours"); v != "" {
		h, err := strconv.Atoi(v)
		if err != nil || h < 1 || h > maxDelayHours {
			writeError(w, http.StatusBadRequest, "Invalid hours", map[string]interface{}{"hours": v})
			return
		}
		hours = h
	}

	now := s.deps.Estimator.Now().UTC()
	hourly, err := s.deps.History.GetHourlyDelayStats(r.Context(), routeID, now.Add(-time.Duration(hours)*time.Hour))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get hourly delay stats", nil)
		return
	}

	writeJSON(w, http.StatusOK, DelayStatsResponse{
		HourlyStats: hourly,
		Hours:       hours,
		LastChecked: now.Format(time.RFC3339),
	}, basicGroups)
}
