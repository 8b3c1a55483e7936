package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// QueryMetrics holds all Prometheus metrics for the query service.
type QueryMetrics struct {
	QueriesTotal     *prometheus.CounterVec
	QueryDuration    *prometheus.HistogramVec
	UploadsTotal     *prometheus.CounterVec
	UploadBytesTotal prometheus.Counter
	DatasetRecords   prometheus.Gauge
	ComparisonRows   prometheus.Gauge
	RegisteredIDs    prometheus.Gauge
}

// NewQueryMetrics initializes the metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewQueryMetrics(reg prometheus.Registerer) *QueryMetrics {
	factory := promauto.With(reg)
	return &QueryMetrics{
		QueriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rootscope",
			Subsystem: "query",
			Name:      "requests_total",
			Help:      "Total number of queries by kind and status.",
		}, []string{"kind", "status"}), // kind: aggregate, compare; status: ok, empty, invalid, error
		QueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rootscope",
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "Query latency in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"kind"}),
		UploadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rootscope",
			Subsystem: "upload",
			Name:      "requests_total",
			Help:      "Total number of dataset uploads by status.",
		}, []string{"status"}), // status: accepted, error_parse, error_size, error_store, error_media_type
		UploadBytesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rootscope",
			Subsystem: "upload",
			Name:      "bytes_total",
			Help:      "Total number of uploaded bytes accepted.",
		}),
		DatasetRecords: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "rootscope",
			Subsystem: "dataset",
			Name:      "records",
			Help:      "Number of site records in the loaded snapshot.",
		}),
		ComparisonRows: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "rootscope",
			Subsystem: "dataset",
			Name:      "comparison_rows",
			Help:      "Number of precomputed comparison rows.",
		}),
		RegisteredIDs: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "rootscope",
			Subsystem: "dataset",
			Name:      "registered_identifiers",
			Help:      "Number of identifiers in the first-seen registry.",
		}),
	}
}
