package publisher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wpp_events_published_total",
		Help: "Total number of events delivered to the broker directly",
	})
	eventsBufferedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wpp_events_buffered_total",
		Help: "Total number of events written to the fallback buffer",
	})
	eventsDrainedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wpp_events_drained_total",
		Help: "Total number of fallback entries republished after reconnect",
	})
	eventsLostTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wpp_events_lost_total",
		Help: "Total number of events lost because both the broker and the fallback buffer were unavailable",
	})
	brokerConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wpp_broker_connected",
		Help: "Whether a live broker transport is currently established (0/1)",
	})
	brokerReconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wpp_broker_reconnects_total",
		Help: "Total number of broker reconnect attempts",
	})
)
