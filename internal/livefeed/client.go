package livefeed

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/protobuf/proto"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
)

// DefaultTimeout bounds a single feed fetch.
const DefaultTimeout = 15 * time.Second

// Vehicle is one live vehicle position.
// TripID is nil when the feed carries no trip or a non-integer trip id;
// such vehicles still count as active but cannot be located on a schedule.
// Latitude and Longitude are NaN when the entity has no position.
type Vehicle struct {
	VehicleID string
	TripID    *int64
	Latitude  float64
	Longitude float64
}

// HasTrip reports whether the vehicle can be matched to a schedule trip.
func (v Vehicle) HasTrip() bool { return v.TripID != nil }

// Metrics receives fetch outcomes. A nil Metrics is ignored.
type Metrics interface {
	FeedFetched(vehicles int, d time.Duration)
	FeedFailed()
}

// Client fetches vehicle positions from a GTFS-Realtime endpoint.
type Client struct {
	url     string
	client  *http.Client
	metrics Metrics
}

// NewClient creates a feed client. A zero timeout uses DefaultTimeout.
func NewClient(url string, timeout time.Duration, m Metrics) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
		metrics: m,
	}
}

// Fetch performs one request against the feed and decodes every vehicle.
func (c *Client) Fetch(ctx context.Context) ([]Vehicle, error) {
	start := time.Now()

	feed, err := c.fetchFeed(ctx)
	if err != nil {
		if c.metrics != nil {
			c.metrics.FeedFailed()
		}
		return nil, err
	}

	vehicles := Decode(feed)
	if c.metrics != nil {
		c.metrics.FeedFetched(len(vehicles), time.Since(start))
	}
	return vehicles, nil
}

// Snapshot is Fetch with failures collapsed into an empty vehicle set.
// It never retries; the error is logged and callers proceed with no live data.
func (c *Client) Snapshot(ctx context.Context) []Vehicle {
	vehicles, err := c.Fetch(ctx)
	if err != nil {
		log.Error().Err(err).Str("url", c.url).Msg("Live feed unavailable, continuing with no vehicles")
		return []Vehicle{}
	}
	return vehicles
}

// fetchFeed fetches the GTFS-RT feed
func (c *Client) fetchFeed(ctx context.Context) (*gtfs.FeedMessage, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	feed := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, feed); err != nil {
		return nil, fmt.Errorf("failed to parse protobuf: %w", err)
	}

	return feed, nil
}

// Decode extracts one Vehicle per entity that carries a vehicle message.
func Decode(feed *gtfs.FeedMessage) []Vehicle {
	vehicles := make([]Vehicle, 0, len(feed.GetEntity()))
	for _, entity := range feed.GetEntity() {
		vp := entity.GetVehicle()
		if vp == nil {
			continue
		}

		v := Vehicle{
			VehicleID: vp.GetVehicle().GetId(),
			Latitude:  math.NaN(),
			Longitude: math.NaN(),
		}
		if v.VehicleID == "" {
			v.VehicleID = entity.GetId()
		}

		if vp.GetTrip() != nil && vp.GetTrip().TripId != nil {
			if id, err := strconv.ParseInt(strings.TrimSpace(vp.GetTrip().GetTripId()), 10, 64); err == nil {
				v.TripID = &id
			}
		}

		if pos := vp.GetPosition(); pos != nil {
			if pos.Latitude != nil {
				v.Latitude = float64(pos.GetLatitude())
			}
			if pos.Longitude != nil {
				v.Longitude = float64(pos.GetLongitude())
			}
		}

		vehicles = append(vehicles, v)
	}
	return vehicles
}
