package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/panics"

	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/db"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/eta"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/metrics"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/planner"
)

// DelayHistory reads recorded hourly delay aggregates.
type DelayHistory interface {
	GetHourlyDelayStats(ctx context.Context, routeID int64, since time.Time) ([]db.HourlyDelayStat, error)
}

// Deps are the collaborators behind the HTTP API. A nil Estimator puts the
// server in degraded mode.
type Deps struct {
	Estimator *eta.Estimator
	Planner   *planner.Planner
	Feed      planner.Feed
	History   DelayHistory
	Metrics   *metrics.Collector

	OnTimeThresholdSeconds float64
	CORSOrigins            []string
}

// Server handles HTTP requests for the ETA service
type Server struct {
	deps     Deps
	validate *validator.Validate
}

// NewRouter builds the chi router for the service.
func NewRouter(deps Deps) http.Handler {
	s := &Server{deps: deps, validate: validator.New()}

	origins := deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}
	r.Use(recoverJSON)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", s.Health)
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(s.requireReady)
		r.Get("/get-system-stats", s.GetSystemStats)
		r.Post("/get-realtime-trip-plan", s.GetRealtimeTripPlan)
		r.Get("/get-active-routes", s.GetActiveRoutes)
		r.Get("/api/stats/delays", s.GetDelayStats)
	})

	return r
}

func (s *Server) ready() bool {
	return s.deps.Estimator != nil && s.deps.Planner != nil && s.deps.Feed != nil
}

func (s *Server) requireReady(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.ready() {
			writeError(w, http.StatusServiceUnavailable, "Server not ready", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// recoverJSON turns a handler panic into a 500 with an error body.
func recoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var pc panics.Catcher
		pc.Try(func() { next.ServeHTTP(w, r) })

		rec := pc.Recovered()
		if rec == nil {
			return
		}
		if rec.Value == http.ErrAbortHandler {
			panic(rec.Value)
		}
		log.Error().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetReqID(r.Context())).
			Interface("panic", rec.Value).
			Str("stack", string(rec.Stack)).
			Msg("Handler panicked")
		writeError(w, http.StatusInternalServerError, "Internal server error", nil)
	})
}
