package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/config"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/metrics"
	"github.com/adarsh-dubey-gthb/Project-Yatra/internal/model"
)

var gtfs = map[string]string{
	"stops.txt": "stop_id,stop_name,stop_lat,stop_lon\n" +
		"1,Kashmere Gate,28.6675,77.2282\n" +
		"2,ISBT,28.6690,77.2290\n",
	"trips.txt":  "route_id,service_id,trip_id\n7,wk,70\n",
	"routes.txt": "route_id,route_short_name\n7,ROUTE-7\n",
	"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence\n" +
		"70,10:00:00,10:00:00,1,1\n" +
		"70,10:04:00,10:04:00,2,2\n",
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	gtfsDir := filepath.Join(dir, "gtfs")
	require.NoError(t, os.MkdirAll(gtfsDir, 0o755))
	for name, content := range gtfs {
		require.NoError(t, os.WriteFile(filepath.Join(gtfsDir, name), []byte(content), 0o644))
	}
	modelPath := filepath.Join(dir, "model.yaml")
	require.NoError(t, os.WriteFile(modelPath, []byte("default_seconds: 120\n"), 0o644))

	return &config.Config{
		StaticDataPath:  gtfsDir,
		ModelPath:       modelPath,
		LiveFeedURL:     "http://127.0.0.1:1/feed.pb",
		LiveFeedTimeout: time.Second,
		Location:        time.UTC,
	}
}

func TestNewEstimator(t *testing.T) {
	cfg := testConfig(t)
	collector := metrics.NewCollector()

	est, err := NewEstimator(cfg, collector)
	require.NoError(t, err)
	assert.Equal(t, 2, est.Schedule().NumStops())
	assert.Equal(t, 1, est.Schedule().NumTrips())
	assert.Equal(t, "ROUTE-7", est.Schedule().RouteName(7))
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.StaticStops))
}

func TestNewEstimatorErrors(t *testing.T) {
	cfg := testConfig(t)
	cfg.StaticDataPath = filepath.Join(t.TempDir(), "missing")
	_, err := NewEstimator(cfg, nil)
	assert.ErrorContains(t, err, "static data")

	cfg = testConfig(t)
	cfg.ModelPath = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = NewEstimator(cfg, nil)
	assert.ErrorContains(t, err, "model")
}

func TestNewPredictor(t *testing.T) {
	cfg := testConfig(t)
	p, err := NewPredictor(cfg)
	require.NoError(t, err)
	assert.IsType(t, &model.TablePredictor{}, p)

	cfg.ModelURL = "http://127.0.0.1:5000/predict"
	p, err = NewPredictor(cfg)
	require.NoError(t, err)
	assert.IsType(t, &model.HTTPPredictor{}, p)
}

func TestNewFeed(t *testing.T) {
	assert.NotNil(t, NewFeed(testConfig(t), nil))
}
