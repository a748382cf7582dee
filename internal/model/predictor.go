package model

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/sourcegraph/conc/panics"
)

// ErrPredictionFailed wraps every failure of a segment prediction.
var ErrPredictionFailed = errors.New("prediction failed")

// Predictor maps a segment feature vector to a travel time in seconds.
// Implementations must be safe for concurrent use.
type Predictor interface {
	Predict(ctx context.Context, f FeatureVector) (float64, error)
}

// SafePredict calls p and turns errors, panics and non-finite outputs into
// an error wrapping ErrPredictionFailed.
func SafePredict(ctx context.Context, p Predictor, f FeatureVector) (seconds float64, err error) {
	var pc panics.Catcher
	pc.Try(func() {
		seconds, err = p.Predict(ctx, f)
	})
	if r := pc.Recovered(); r != nil {
		return 0, fmt.Errorf("%w: panic: %v", ErrPredictionFailed, r.Value)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPredictionFailed, err)
	}
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0, fmt.Errorf("%w: non-finite output %v", ErrPredictionFailed, seconds)
	}
	return seconds, nil
}
