package monitoring

import (
	"context"
	"time"

	"roomrelay/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector implements the room observer, dispatch recorder and
// transport recorder ports on top of Prometheus metrics.
type PrometheusCollector struct {
	connectionsOpen  prometheus.Gauge
	connectionsTotal prometheus.Counter
	roomsActive      prometheus.Gauge
	roomJoinsTotal   prometheus.Counter

	roomSizeOnJoin   prometheus.Histogram
	dispatchDuration *prometheus.HistogramVec

	eventsTotal        *prometheus.CounterVec
	framesDroppedTotal *prometheus.CounterVec
}

// NewPrometheusCollector registers the relay metrics with reg. A nil reg
// means the default registerer.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusCollector{
		connectionsOpen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "roomrelay_connections_open",
			Help: "Number of open signaling connections",
		}),

		connectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "roomrelay_connections_total",
			Help: "Total number of signaling connections accepted",
		}),

		roomsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "roomrelay_rooms_active",
			Help: "Number of rooms with at least one member",
		}),

		roomJoinsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "roomrelay_room_joins_total",
			Help: "Total number of room joins",
		}),

		roomSizeOnJoin: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "roomrelay_room_size_on_join",
			Help:    "Room size right after a connection joined",
			Buckets: []float64{1, 2, 3, 4, 6, 8, 12, 16, 32},
		}),

		dispatchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "roomrelay_dispatch_duration_seconds",
			Help:    "Time spent by the dispatcher on one inbound event",
			Buckets: []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05},
		}, []string{"event"}),

		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "roomrelay_events_total",
			Help: "Inbound events processed, by event name and outcome",
		}, []string{"event", "outcome"}),

		framesDroppedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "roomrelay_frames_dropped_total",
			Help: "Outbound frames that could not be queued",
		}, []string{"event", "reason"}),
	}
}

func (c *PrometheusCollector) PeerJoined(ctx context.Context, roomID domain.RoomID, id domain.ConnectionID, roomSize int) {
	c.roomJoinsTotal.Inc()
	c.roomSizeOnJoin.Observe(float64(roomSize))
	if roomSize == 1 {
		c.roomsActive.Inc()
	}
}

func (c *PrometheusCollector) PeerLeft(ctx context.Context, roomID domain.RoomID, id domain.ConnectionID, roomSize int) {
	if roomSize == 0 {
		c.roomsActive.Dec()
	}
}

func (c *PrometheusCollector) RecordEvent(event string, outcome string, duration time.Duration) {
	c.eventsTotal.WithLabelValues(event, outcome).Inc()
	c.dispatchDuration.WithLabelValues(event).Observe(duration.Seconds())
}

func (c *PrometheusCollector) ConnectionOpened() {
	c.connectionsOpen.Inc()
	c.connectionsTotal.Inc()
}

func (c *PrometheusCollector) ConnectionClosed() {
	c.connectionsOpen.Dec()
}

func (c *PrometheusCollector) FrameDropped(event string, reason string) {
	c.framesDroppedTotal.WithLabelValues(event, reason).Inc()
}
