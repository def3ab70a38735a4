package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checkinDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkin_decisions_total",
			Help: "Check-in attempts by outcome",
		},
		[]string{"outcome"},
	)

	undoDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkin_undo_total",
			Help: "Undo check-in attempts by outcome",
		},
		[]string{"outcome"},
	)

	couponRedemptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coupon_redemptions_total",
			Help: "Coupon redemption attempts by outcome",
		},
		[]string{"outcome"},
	)

	checkinDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "checkin_duration_seconds",
			Help:    "Latency of the check-in read-evaluate-commit cycle",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)
)

func ObserveCheckin(outcome string, elapsed time.Duration) {
	checkinDecisions.WithLabelValues(outcome).Inc()
	checkinDuration.Observe(elapsed.Seconds())
}

func ObserveUndo(outcome string) {
	undoDecisions.WithLabelValues(outcome).Inc()
}

func ObserveRedemption(outcome string) {
	couponRedemptions.WithLabelValues(outcome).Inc()
}
