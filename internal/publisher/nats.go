package publisher

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// SubjectPrefix is the root of every delay subject: delays.<route>.<trip>.
const SubjectPrefix = "delays"

// DelayMessage is the payload published for one delay observation.
type DelayMessage struct {
	VehicleID    string    `json:"vehicleId"`
	TripID       int64     `json:"tripId"`
	RouteID      int64     `json:"routeId"`
	DelaySeconds float64   `json:"delaySeconds"`
	ObservedAt   time.Time `json:"observedAt"`
}

// Publisher sends delay observations somewhere.
type Publisher interface {
	PublishDelay(msg DelayMessage) error
	Close()
}

type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	NATSSetConnected(connected bool)
}

type NATSPublisher struct {
	nc      *nats.Conn
	metrics PublisherMetrics
}

func NewNATSPublisher(url string, m PublisherMetrics) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("bus-eta-recorder"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			log.Info().Msg("NATS reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Info().Msg("NATS closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	return &NATSPublisher{nc: nc, metrics: m}, nil
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		p.nc.Close()
	}
}

func (p *NATSPublisher) PublishDelay(msg DelayMessage) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	err = p.nc.Publish(Subject(msg.RouteID, msg.TripID), b)
	if p.metrics != nil {
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	return err
}

// Subject builds the subject for a route and trip.
func Subject(routeID, tripID int64) string {
	return fmt.Sprintf("%s.%d.%d", SubjectPrefix, routeID, tripID)
}

// Nop discards every message. It stands in when NATS_URL is unset.
type Nop struct{}

func (Nop) PublishDelay(DelayMessage) error { return nil }
func (Nop) Close()                          {}
