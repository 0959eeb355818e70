package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the badge authority.
type Metrics struct {
	TransactionsStarted prometheus.Counter
	TransactionsAwarded prometheus.Counter
	TransactionsRefused *prometheus.CounterVec
	BadgesMinted        *prometheus.CounterVec
	CallbackAcks        *prometheus.CounterVec
	CallbackDuration    prometheus.Histogram
	MailFailures        prometheus.Counter
	RequestDuration     *prometheus.HistogramVec
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		TransactionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sigil_transactions_started_total",
			Help: "Badge transactions initiated by sponsor apps",
		}),
		TransactionsAwarded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sigil_transactions_awarded_total",
			Help: "Badge transactions that reached the awarded state",
		}),
		TransactionsRefused: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sigil_transactions_refused_total",
			Help: "Badge transactions refused, by reason",
		}, []string{"reason"}),
		BadgesMinted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sigil_badges_minted_total",
			Help: "Badges created, by type",
		}, []string{"type"}),
		CallbackAcks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sigil_sponsor_callback_total",
			Help: "Sponsor callback deliveries, by result (accepted, rejected, error)",
		}, []string{"result"}),
		CallbackDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sigil_sponsor_callback_duration_seconds",
			Help:    "Latency of sponsor callback POSTs",
			Buckets: prometheus.DefBuckets,
		}),
		MailFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sigil_verification_mail_failures_total",
			Help: "Verification emails that could not be sent",
		}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sigil_http_request_duration_seconds",
			Help:    "Latency of inbound HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"path"}),
	}
}

// ObserveCallback records one sponsor callback attempt.
func (m *Metrics) ObserveCallback(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.CallbackAcks.WithLabelValues(result).Inc()
	m.CallbackDuration.Observe(elapsed.Seconds())
}
