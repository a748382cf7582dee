package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// DefaultLiveFeedURL is the Delhi Open Transit Data vehicle positions feed.
// It needs LIVE_FEED_KEY.
const DefaultLiveFeedURL = "https://otd.delhi.gov.in/api/realtime/VehiclePositions.pb"

// Config holds all configuration for the API and the CLI
type Config struct {
	// HTTP
	Port        int      `validate:"min=1,max=65535"`
	CORSOrigins []string `validate:"min=1,dive,required"`

	// Static schedule
	StaticDataPath string `validate:"required"`

	// Live feed
	LiveFeedURL     string        `validate:"required,url"`
	LiveFeedTimeout time.Duration `validate:"gt=0"`

	// Travel time model; ModelURL wins over ModelPath when set
	ModelPath string `validate:"required_without=ModelURL"`
	ModelURL  string `validate:"omitempty,url"`

	// Tuning
	NearbyRadiusKm         float64 `validate:"gt=0,lte=50"`
	OnTimeThresholdSeconds float64 `validate:"gt=0"`
	TZName                 string  `validate:"required"`
	Location               *time.Location

	// Delay history
	StatsDatabase     string        `validate:"required"`
	RecordInterval    time.Duration `validate:"gte=1s"`
	RetentionDuration time.Duration `validate:"gte=1h"`
	NATSURL           string        `validate:"omitempty,url"`

	// Logging
	LogFormat string
	LogLevel  string
}

// LoadDotEnv seeds the environment from .env, then lets .env.local override
// it. Missing files are ignored.
func LoadDotEnv(dir string) {
	_ = godotenv.Load(dir + "/.env")
	_ = godotenv.Overload(dir + "/.env.local")
}

// Defaults returns the built-in configuration, ignoring the environment.
// The API falls back to it when the environment does not validate.
func Defaults() *Config {
	cfg := &Config{
		Port:        5000,
		CORSOrigins: []string{"*"},

		StaticDataPath: "./data/gtfs",

		LiveFeedURL:     DefaultLiveFeedURL,
		LiveFeedTimeout: 15 * time.Second,

		ModelPath: "./data/model.yaml",

		NearbyRadiusKm:         0.5,
		OnTimeThresholdSeconds: 300,
		TZName:                 "Asia/Kolkata",

		StatsDatabase:     "./data/stats.db",
		RecordInterval:    30 * time.Second,
		RetentionDuration: 168 * time.Hour,

		LogFormat: "console",
		LogLevel:  "info",
	}
	loc, err := time.LoadLocation(cfg.TZName)
	if err != nil {
		loc = time.UTC
	}
	cfg.Location = loc
	return cfg
}

// Load reads configuration from environment variables on top of Defaults
// and validates the result.
func Load() (*Config, error) {
	d := Defaults()
	cfg := &Config{
		Port:        getEnvInt("PORT", d.Port),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", strings.Join(d.CORSOrigins, ","))),

		StaticDataPath: getEnv("STATIC_DATA_PATH", d.StaticDataPath),

		LiveFeedURL:     liveFeedURL(getEnv("LIVE_FEED_URL", d.LiveFeedURL), os.Getenv("LIVE_FEED_KEY")),
		LiveFeedTimeout: time.Duration(getEnvInt("LIVE_FEED_TIMEOUT_SECONDS", int(d.LiveFeedTimeout/time.Second))) * time.Second,

		ModelPath: getEnv("MODEL_PATH", d.ModelPath),
		ModelURL:  getEnv("MODEL_URL", d.ModelURL),

		NearbyRadiusKm:         getEnvFloat("NEARBY_RADIUS_KM", d.NearbyRadiusKm),
		OnTimeThresholdSeconds: getEnvFloat("ON_TIME_THRESHOLD_SECONDS", d.OnTimeThresholdSeconds),
		TZName:                 getEnv("TZ_NAME", d.TZName),

		StatsDatabase:     getEnv("STATS_DATABASE", d.StatsDatabase),
		RecordInterval:    time.Duration(getEnvInt("RECORD_INTERVAL_SECONDS", int(d.RecordInterval/time.Second))) * time.Second,
		RetentionDuration: time.Duration(getEnvInt("RETENTION_HOURS", int(d.RetentionDuration/time.Hour))) * time.Hour,
		NATSURL:           getEnv("NATS_URL", d.NATSURL),

		LogFormat: getEnv("LOG_FORMAT", d.LogFormat),
		LogLevel:  getEnv("LOG_LEVEL", d.LogLevel),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	loc, err := time.LoadLocation(cfg.TZName)
	if err != nil {
		return nil, fmt.Errorf("invalid TZ_NAME %q: %w", cfg.TZName, err)
	}
	cfg.Location = loc

	return cfg, nil
}

// LoadOrDefaults is Load, except that an environment which does not validate
// yields Defaults together with the error, so the caller can keep running
// degraded.
func LoadOrDefaults() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return Defaults(), err
	}
	return cfg, nil
}

// liveFeedURL appends the API key as a query parameter unless the URL
// already carries one.
func liveFeedURL(raw, key string) string {
	if key == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Get("key") == "" {
		q.Set("key", key)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
