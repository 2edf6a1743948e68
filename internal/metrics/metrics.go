package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transfer outcomes used as the "result" label.
const (
	ResultCompleted         = "completed"
	ResultInsufficientFunds = "insufficient_funds"
	ResultInvalid           = "invalid"
	ResultNotFound          = "not_found"
	ResultConflict          = "conflict"
	ResultError             = "error"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quickpay_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quickpay_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	LedgerOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quickpay_ledger_operations_total",
			Help: "Ledger operations by type and result",
		},
		[]string{"type", "result"},
	)

	FeesCollectedMinor = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quickpay_fees_collected_minor_total",
			Help: "Transfer fees collected, in minor currency units",
		},
	)

	StorageConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quickpay_storage_conflicts_total",
			Help: "Units of work that hit a lock timeout, deadlock or serialization failure",
		},
	)

	EventPublishFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quickpay_event_publish_failures_total",
			Help: "Post-commit events that could not be published",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordLedgerOperation(txType, result string) {
	LedgerOperationsTotal.WithLabelValues(txType, result).Inc()
}

func RecordFee(minor int64) {
	if minor > 0 {
		FeesCollectedMinor.Add(float64(minor))
	}
}

func RecordStorageConflict() {
	StorageConflictsTotal.Inc()
}

func RecordEventPublishFailure() {
	EventPublishFailuresTotal.Inc()
}

// RegisterConnectionGauge exposes the live websocket connection count.
// It must be called at most once per registry.
func RegisterConnectionGauge(reg prometheus.Registerer, count func() int) error {
	return reg.Register(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "quickpay_websocket_connections",
			Help: "Open websocket connections",
		},
		func() float64 { return float64(count()) },
	))
}
