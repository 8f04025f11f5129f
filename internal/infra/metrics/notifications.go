package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		counterOpsTotal,
		degradedSummaryTotal,
	)
}

var (
	counterOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_counter_ops_total",
			Help: "Counter-store operations by op ('incr','decr','viewed','summarize') and status.",
		},
		[]string{"op", "status"},
	)

	degradedSummaryTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_summary_degraded_total",
			Help: "Summaries served as all-zero because the counter store was unreachable.",
		},
	)
)

func IncCounterOp(op, status string) {
	counterOpsTotal.WithLabelValues(op, status).Inc()
}

func IncDegradedSummary() {
	degradedSummaryTotal.Inc()
}
