package publisher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingMetrics struct {
	connected bool
}

func (c *countingMetrics) NATSPublishedInc()        {}
func (c *countingMetrics) NATSPublishErrInc()       {}
func (c *countingMetrics) NATSSetConnected(ok bool) { c.connected = ok }

func TestSubject(t *testing.T) {
	assert.Equal(t, "delays.30.100", Subject(30, 100))
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.PublishDelay(DelayMessage{RouteID: 1, TripID: 2, ObservedAt: time.Now()}))
	p.Close()
}

func TestNewNATSPublisherUnreachable(t *testing.T) {
	m := &countingMetrics{}
	_, err := NewNATSPublisher("nats://127.0.0.1:1", m)
	assert.Error(t, err)
	assert.False(t, m.connected)
}
