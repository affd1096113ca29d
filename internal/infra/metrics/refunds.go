package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(refundsTotal, subscriptionsExpired)
}

var (
	refundsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refunds_total",
			Help: "Refund transitions by resulting status.",
		},
		[]string{"status"},
	)

	subscriptionsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_expired_total",
			Help: "Subscriptions moved to EXPIRE by the maintenance worker.",
		},
	)
)

func IncRefund(status string) {
	refundsTotal.WithLabelValues(norm(status)).Inc()
}

func IncSubscriptionsExpired(n int) {
	subscriptionsExpired.Add(float64(n))
}
