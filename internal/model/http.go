package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPPredictor posts features to an inference service that answers
// {"predicted_travel_time_seconds": <float>}.
type HTTPPredictor struct {
	url    string
	client *http.Client
}

type predictResponse struct {
	Seconds *float64 `json:"predicted_travel_time_seconds"`
}

// NewHTTPPredictor creates a predictor backed by the service at url.
func NewHTTPPredictor(url string, timeout time.Duration) *HTTPPredictor {
	return &HTTPPredictor{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Predict implements Predictor.
func (p *HTTPPredictor) Predict(ctx context.Context, f FeatureVector) (float64, error) {
	body, err := json.Marshal(f.Map())
	if err != nil {
		return 0, fmt.Errorf("failed to encode features: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to call model service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("model service returned status %d", resp.StatusCode)
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("failed to decode model response: %w", err)
	}
	if out.Seconds == nil {
		return 0, fmt.Errorf("model response has no predicted_travel_time_seconds")
	}
	return *out.Seconds, nil
}
