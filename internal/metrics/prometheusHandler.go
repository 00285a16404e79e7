package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var countJobsInQueue = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "count_jobs_in_queue",
	Help: "Number of jobs in queue",
})

var dispatcherSignalCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "dispatcher_signal_count",
	Help: "How often the dispatcher has signaled to start worker",
})

var activeWorkerCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "active_worker_count",
	Help: "Number of active workers",
})

type HttpStatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *HttpStatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working through the recorder.
func (r *HttpStatusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *HttpStatusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func IncrementJobsInQueue() {
	countJobsInQueue.Inc()
}

func DecrementJobsInQueue() {
	countJobsInQueue.Dec()
}

func StartDispatcherSignalCount() {
	dispatcherSignalCount.Inc()
}

func IncrementActiveWorkerCount() {
	activeWorkerCount.Inc()
}
func DecrementActiveWorkerCount() {
	activeWorkerCount.Dec()
}

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "process_request_duration_seconds",
	Help:    "Total time spent in ProcessRequest.",
	Buckets: []float64{.1, .5, 1, 2, 5, 10, 30},
}, []string{"status"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of external service calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
}, []string{"service"})

func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	//dependencyLatency.WithLabelValues(label).Observe(time.Since(timeElapsed).Seconds())
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

func CaptureJobMetrics(label string, timeElapsed time.Duration) {
	requestDuration.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

var indexedPassages = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "indexed_passages",
	Help: "Number of passages in the index currently serving queries",
})

var extractionFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "extraction_failures_total",
	Help: "Documents skipped because their text could not be extracted",
})

var zeroBoundingBoxes = promauto.NewCounter(prometheus.CounterOpts{
	Name: "zero_bounding_boxes_total",
	Help: "Passages whose text could not be located on the page",
})

var indexReady = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "index_ready",
	Help: "1 while an index is ready to serve queries",
})

func SetIndexedPassages(n int) {
	indexedPassages.Set(float64(n))
}

func AddExtractionFailures(n int) {
	extractionFailures.Add(float64(n))
}

func AddZeroBoundingBoxes(n int) {
	zeroBoundingBoxes.Add(float64(n))
}

func SetIndexReady(ready bool) {
	if ready {
		indexReady.Set(1)
		return
	}
	indexReady.Set(0)
}
