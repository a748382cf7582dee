package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	"PORT", "CORS_ORIGINS", "STATIC_DATA_PATH", "LIVE_FEED_URL", "LIVE_FEED_KEY",
	"LIVE_FEED_TIMEOUT_SECONDS", "MODEL_PATH", "MODEL_URL", "NEARBY_RADIUS_KM",
	"ON_TIME_THRESHOLD_SECONDS", "TZ_NAME", "STATS_DATABASE", "RECORD_INTERVAL_SECONDS",
	"RETENTION_HOURS", "NATS_URL", "LOG_FORMAT", "LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, "./data/gtfs", cfg.StaticDataPath)
	assert.Equal(t, DefaultLiveFeedURL, cfg.LiveFeedURL)
	assert.Equal(t, 15*time.Second, cfg.LiveFeedTimeout)
	assert.Equal(t, "./data/model.yaml", cfg.ModelPath)
	assert.Empty(t, cfg.ModelURL)
	assert.Equal(t, 0.5, cfg.NearbyRadiusKm)
	assert.Equal(t, 300.0, cfg.OnTimeThresholdSeconds)
	assert.Equal(t, "Asia/Kolkata", cfg.Location.String())
	assert.Equal(t, "./data/stats.db", cfg.StatsDatabase)
	assert.Equal(t, 30*time.Second, cfg.RecordInterval)
	assert.Equal(t, 168*time.Hour, cfg.RetentionDuration)
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "70000")

	d := Defaults()
	require.NoError(t, validator.New().Struct(d))
	assert.Equal(t, 5000, d.Port, "environment is ignored")
	assert.Equal(t, "Asia/Kolkata", d.Location.String())

	// Load with a clean environment yields the same values.
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, d.Location.String(), cfg.Location.String())
	d.Location, cfg.Location = nil, nil
	assert.Equal(t, d, cfg)
}

func TestLoadOrDefaults(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		val      string
		wantErr  bool
		wantPort int
	}{
		{"valid environment", "PORT", "8080", false, 8080},
		{"port out of range", "PORT", "70000", true, 5000},
		{"unknown zone", "TZ_NAME", "Mars/Olympus", true, 5000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			cfg, err := LoadOrDefaults()
			require.NotNil(t, cfg)
			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.wantPort, cfg.Port)
			assert.NotNil(t, cfg.Location)
			assert.NoError(t, validator.New().Struct(cfg))
		})
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test ,")
	t.Setenv("LIVE_FEED_KEY", "secret")
	t.Setenv("NEARBY_RADIUS_KM", "1.25")
	t.Setenv("TZ_NAME", "UTC")
	t.Setenv("MODEL_URL", "http://127.0.0.1:5000/predict")
	t.Setenv("MODEL_PATH", "")
	t.Setenv("LIVE_FEED_TIMEOUT_SECONDS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, DefaultLiveFeedURL+"?key=secret", cfg.LiveFeedURL)
	assert.Equal(t, 1.25, cfg.NearbyRadiusKm)
	assert.Equal(t, time.UTC.String(), cfg.Location.String())
	assert.Equal(t, "http://127.0.0.1:5000/predict", cfg.ModelURL)
	assert.Equal(t, 15*time.Second, cfg.LiveFeedTimeout)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"port out of range", "PORT", "70000"},
		{"negative radius", "NEARBY_RADIUS_KM", "-1"},
		{"bad feed url", "LIVE_FEED_URL", "not a url"},
		{"bad model url", "MODEL_URL", "::"},
		{"unknown zone", "TZ_NAME", "Mars/Olympus"},
		{"short retention", "RETENTION_HOURS", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLiveFeedURLKeepsExistingKey(t *testing.T) {
	assert.Equal(t, "https://x.test/feed.pb?key=abc", liveFeedURL("https://x.test/feed.pb?key=abc", "other"))
	assert.Equal(t, "https://x.test/feed.pb", liveFeedURL("https://x.test/feed.pb", ""))
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PORT=6000\nTZ_NAME=UTC\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.local"), []byte("PORT=7000\n"), 0o644))

	// godotenv.Load does not override variables that are already set, even
	// to the empty string, so unset them first.
	os.Unsetenv("PORT")
	os.Unsetenv("TZ_NAME")

	LoadDotEnv(dir)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "UTC", cfg.TZName)
}
