package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	StoreConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "store_connected",
			Help: "1 when the durable store is reachable, 0 otherwise",
		},
	)

	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "offline_queue_depth",
			Help: "Current number of queued write tasks per tenant",
		},
		[]string{"tenant"},
	)

	MessagesPosted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_posted_total",
			Help: "Accepted post requests by outcome (persisted or queued)",
		},
		[]string{"tenant", "outcome"},
	)

	TasksDrained = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_tasks_drained_total",
			Help: "Queued tasks confirmed durable during drain",
		},
		[]string{"tenant"},
	)

	DrainFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_drain_failures_total",
			Help: "Drain batches aborted by a store failure",
		},
		[]string{"tenant"},
	)
)

// Init registers metrics with Prometheus
func Init() {
	prometheus.MustRegister(StoreConnected)
	prometheus.MustRegister(QueueDepth)
	prometheus.MustRegister(MessagesPosted)
	prometheus.MustRegister(TasksDrained)
	prometheus.MustRegister(DrainFailures)
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
