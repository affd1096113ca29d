package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(webhooksTotal)
}

var webhooksTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "momo_webhooks_total",
		Help: "Webhook ingestion outcomes per operator (applied/duplicate/invalid_signature/lock_contention/error).",
	},
	[]string{"operator", "result"},
)

func IncWebhook(operator, result string) {
	webhooksTotal.WithLabelValues(norm(operator), norm(result)).Inc()
}
