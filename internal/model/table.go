package model

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// TableModel is the on-disk form of a segment travel-time table.
//
//	default_seconds: 120
//	routes:
//	  "30":
//	    default_seconds: 150
//	    stops:
//	      "1": 140
//	hour_factors:
//	  "8": 1.25
//	weekday_factors:
//	  saturday: 0.9
//
// Route and stop keys are categorical and match by exact string only.
type TableModel struct {
	DefaultSeconds float64               `yaml:"default_seconds" validate:"gt=0"`
	Routes         map[string]RouteTable `yaml:"routes" validate:"dive"`
	HourFactors    map[string]float64    `yaml:"hour_factors" validate:"dive,keys,numeric,endkeys,gt=0"`
	WeekdayFactors map[string]float64    `yaml:"weekday_factors" validate:"dive,keys,oneof=monday tuesday wednesday thursday friday saturday sunday,endkeys,gt=0"`
}

// RouteTable holds per-stop segment means for one route.
type RouteTable struct {
	DefaultSeconds float64            `yaml:"default_seconds" validate:"gte=0"`
	Stops          map[string]float64 `yaml:"stops" validate:"dive,gt=0"`
}

// TablePredictor looks segment times up in a TableModel. Lookup order is
// (route, stop), then the route default, then the global default; the result
// is scaled by the hour and weekday factors when present.
type TablePredictor struct {
	m TableModel
}

var validate = validator.New()

// NewTablePredictor validates m and wraps it.
func NewTablePredictor(m TableModel) (*TablePredictor, error) {
	if err := validate.Struct(m); err != nil {
		return nil, fmt.Errorf("invalid model table: %w", err)
	}
	return &TablePredictor{m: m}, nil
}

// LoadTablePredictor reads a YAML model table from path.
func LoadTablePredictor(path string) (*TablePredictor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}

	var m TableModel
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse model file: %w", err)
	}
	return NewTablePredictor(m)
}

// Predict implements Predictor.
func (p *TablePredictor) Predict(_ context.Context, f FeatureVector) (float64, error) {
	seconds := p.m.DefaultSeconds

	route, ok := p.m.Routes[strconv.FormatInt(f.RouteID, 10)]
	if ok {
		if s, ok := route.Stops[strconv.FormatInt(f.StopID, 10)]; ok {
			seconds = s
		} else if route.DefaultSeconds > 0 {
			seconds = route.DefaultSeconds
		}
	}

	if factor, ok := p.m.HourFactors[strconv.Itoa(f.HourOfDay)]; ok {
		seconds *= factor
	}
	if f.Weekday >= 0 && f.Weekday < len(Weekdays) {
		if factor, ok := p.m.WeekdayFactors[Weekdays[f.Weekday]]; ok {
			seconds *= factor
		}
	}

	return seconds, nil
}
