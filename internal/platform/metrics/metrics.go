package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for transfers and replay protection.
type Metrics struct {
	// Terminal transfer outcomes by status and failure kind
	TransferOutcome *prometheus.CounterVec

	// Protocol phase latencies
	PhaseLatency *prometheus.HistogramVec

	// Transfers currently executing
	InFlight prometheus.Gauge

	NoncesSwept    prometheus.Counter
	NonceRejected  prometheus.Counter
	TransfersTotal prometheus.Counter
}

// New creates and registers all metrics with the default registerer.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics with reg. Tests pass a fresh registry so
// repeated construction does not panic on duplicate registration.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TransferOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "securetransfer_transfer_outcomes_total",
			Help: "Terminal transfer outcomes by status and failure kind",
		}, []string{"status", "kind"}),

		PhaseLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "securetransfer_phase_duration_seconds",
			Help:    "Duration of each protocol phase",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"phase"}),

		InFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "securetransfer_transfers_in_flight",
			Help: "Transfers dispatched and not yet finished",
		}),

		NoncesSwept: factory.NewCounter(prometheus.CounterOpts{
			Name: "securetransfer_nonces_swept_total",
			Help: "Expired nonces removed from the replay registry",
		}),

		NonceRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "securetransfer_nonce_rejections_total",
			Help: "Handshakes rejected because the nonce was already consumed",
		}),

		TransfersTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "securetransfer_transfers_initiated_total",
			Help: "Transfers accepted for processing",
		}),
	}
}

func (m *Metrics) IncrementOutcome(status, kind string) {
	if m != nil {
		m.TransferOutcome.WithLabelValues(status, kind).Inc()
	}
}

func (m *Metrics) ObservePhase(phase string, d time.Duration) {
	if m != nil {
		m.PhaseLatency.WithLabelValues(phase).Observe(d.Seconds())
	}
}

func (m *Metrics) TransferStarted() {
	if m != nil {
		m.InFlight.Inc()
	}
}

func (m *Metrics) TransferFinished() {
	if m != nil {
		m.InFlight.Dec()
	}
}

// ObserveNoncesSwept satisfies nonce.SweepRecorder.
func (m *Metrics) ObserveNoncesSwept(n int) {
	if m != nil && n > 0 {
		m.NoncesSwept.Add(float64(n))
	}
}

func (m *Metrics) IncrementNonceRejected() {
	if m != nil {
		m.NonceRejected.Inc()
	}
}

func (m *Metrics) IncrementInitiated() {
	if m != nil {
		m.TransfersTotal.Inc()
	}
}
