package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CheckinAttempts counts check-in attempts by outcome. The result label
	// is "marked" for accepted attempts and the lower-cased reject code
	// otherwise.
	CheckinAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollcall_checkin_attempts_total",
			Help: "Total number of attendance check-in attempts",
		},
		[]string{"result"},
	)

	// QRRotations counts QR token rotations, split by who triggered them.
	QRRotations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollcall_qr_rotations_total",
			Help: "Total number of QR token rotations",
		},
		[]string{"trigger"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rollcall_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
