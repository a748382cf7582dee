package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	FeedFetches     prometheus.Counter
	FeedErrors      prometheus.Counter
	FeedVehicles    prometheus.Gauge
	FeedDuration    prometheus.Histogram
	Predictions     *prometheus.CounterVec // result label: ok|failed
	RequestDuration *prometheus.HistogramVec

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge

	StaticStops prometheus.Gauge
	StaticTrips prometheus.Gauge
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		FeedFetches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eta_feed_fetches_total",
			Help: "Successful live feed fetches.",
		}),
		FeedErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eta_feed_errors_total",
			Help: "Failed live feed fetches.",
		}),
		FeedVehicles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eta_feed_vehicles",
			Help: "Vehicles in the last fetched snapshot.",
		}),
		FeedDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "eta_feed_fetch_duration_seconds",
			Help:    "Duration of a live feed fetch and decode.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eta_predictions_total",
			Help: "Segment travel time predictions by outcome.",
		}, []string{"result"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "eta_http_request_duration_seconds",
			Help:    "HTTP request duration by route pattern and status.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}, []string{"route", "status"}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eta_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eta_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eta_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		StaticStops: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eta_static_stops",
			Help: "Stops loaded from the static tables.",
		}),
		StaticTrips: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eta_static_trips",
			Help: "Trips with at least one joined stop time.",
		}),
	}

	reg.MustRegister(
		c.FeedFetches, c.FeedErrors, c.FeedVehicles, c.FeedDuration,
		c.Predictions, c.RequestDuration,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
		c.StaticStops, c.StaticTrips,
	)
	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

func (c *Collector) FeedFetched(vehicles int, d time.Duration) {
	c.FeedFetches.Inc()
	c.FeedVehicles.Set(float64(vehicles))
	c.FeedDuration.Observe(d.Seconds())
}

func (c *Collector) FeedFailed() { c.FeedErrors.Inc() }

func (c *Collector) PredictionDone(ok bool) {
	if ok {
		c.Predictions.WithLabelValues("ok").Inc()
		return
	}
	c.Predictions.WithLabelValues("failed").Inc()
}

func (c *Collector) NATSPublishedInc()  { c.NATSPublished.Inc() }
func (c *Collector) NATSPublishErrInc() { c.NATSPublishErrs.Inc() }
func (c *Collector) NATSSetConnected(connected bool) {
	if connected {
		c.NATSConnected.Set(1)
		return
	}
	c.NATSConnected.Set(0)
}

// StaticLoaded records the size of the loaded schedule.
func (c *Collector) StaticLoaded(stops, trips int) {
	c.StaticStops.Set(float64(stops))
	c.StaticTrips.Set(float64(trips))
}

// Middleware times every request, labelled by its chi route pattern so
// path parameters do not explode cardinality.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		c.RequestDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}
