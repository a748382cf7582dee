package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounters(t *testing.T) {
	c := NewCollector()

	c.FeedFetched(42, 120*time.Millisecond)
	c.FeedFailed()
	c.FeedFailed()
	c.PredictionDone(true)
	c.PredictionDone(true)
	c.PredictionDone(false)
	c.NATSSetConnected(true)
	c.StaticLoaded(10, 3)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.FeedFetches))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.FeedErrors))
	assert.Equal(t, 42.0, testutil.ToFloat64(c.FeedVehicles))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Predictions.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Predictions.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.NATSConnected))
	assert.Equal(t, 10.0, testutil.ToFloat64(c.StaticStops))

	c.NATSSetConnected(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(c.NATSConnected))
}

func TestMiddlewareAndHandler(t *testing.T) {
	c := NewCollector()

	r := chi.NewRouter()
	r.Use(c.Middleware)
	r.Get("/routes/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Handle("/metrics", c.Handler())

	for _, id := range []string{"1", "2", "3"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/routes/"+id, nil))
		require.Equal(t, http.StatusTeapot, rec.Code)
	}

	assert.Equal(t, 1, testutil.CollectAndCount(c.RequestDuration))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `eta_http_request_duration_seconds_count{route="/routes/{id}",status="418"} 3`))
}
