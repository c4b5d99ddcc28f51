package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "http_request_duration_seconds",
	Help:    "Latency of HTTP requests by route.",
	Buckets: []float64{.01, .05, .1, .25, .5, 1, 2, 5, 10, 30},
}, []string{"path"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of external service calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
}, []string{"service"})

var ingestJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ingest_jobs_total",
	Help: "Document ingestion runs by outcome",
}, []string{"status"})

var dbPoolsOpen = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "db_pools_open",
	Help: "Number of open target database pools",
})

func ObserveHTTP(path string, elapsed time.Duration) {
	httpRequestDuration.WithLabelValues(path).Observe(elapsed.Seconds())
}

// ObserveDependency records the latency of a call to an external service.
func ObserveDependency(service string, elapsed time.Duration) {
	dependencyLatency.WithLabelValues(service).Observe(elapsed.Seconds())
}

func IngestFinished(ok bool) {
	if ok {
		ingestJobsTotal.WithLabelValues("success").Inc()
		return
	}
	ingestJobsTotal.WithLabelValues("failed").Inc()
}

func SetPoolsOpen(n int) {
	dbPoolsOpen.Set(float64(n))
}
