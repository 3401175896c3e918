package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks session lifecycle activity.
type Metrics struct {
	SessionsByStatus  *prometheus.GaugeVec
	ReconnectsTotal   prometheus.Counter
	ConnectFailures   prometheus.Counter
	QRCodesIssued     prometheus.Counter
	MessagesForwarded prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		SessionsByStatus: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "wpp_sessions",
			Help: "Number of sessions by lifecycle status",
		}, []string{"status"}),
		ReconnectsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wpp_session_reconnects_total",
			Help: "Total number of session reconnect attempts scheduled",
		}),
		ConnectFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wpp_session_connect_failures_total",
			Help: "Total number of protocol client construction failures",
		}),
		QRCodesIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wpp_session_qr_codes_issued_total",
			Help: "Total number of QR pairing credentials issued",
		}),
		MessagesForwarded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wpp_session_messages_forwarded_total",
			Help: "Total number of inbound messages forwarded to the event pipeline",
		}),
	}
}
