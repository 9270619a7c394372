package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "choirdesk",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "choirdesk",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "choirdesk",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	storeMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "choirdesk",
			Subsystem: "store",
			Name:      "mutations_total",
			Help:      "Store mutations by table, operation and outcome.",
		},
		[]string{"table", "op", "outcome"},
	)

	storeEchoes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "choirdesk",
			Subsystem: "store",
			Name:      "remote_changes_total",
			Help:      "Change-feed events received, applied or dropped.",
		},
		[]string{"table", "result"},
	)

	assistantRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "choirdesk",
			Subsystem: "assistant",
			Name:      "requests_total",
			Help:      "Assistant prompts by outcome.",
		},
		[]string{"outcome"},
	)

	assistantDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "choirdesk",
			Subsystem: "assistant",
			Name:      "request_duration_seconds",
			Help:      "Duration of assistant backend calls.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 8), // 100ms to ~25s
		},
	)

	feedImports = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "choirdesk",
			Subsystem: "feeds",
			Name:      "imports_total",
			Help:      "ICS feed refreshes by feed and success.",
		},
		[]string{"feed", "success"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		storeMutations,
		storeEchoes,
		assistantRequests,
		assistantDuration,
		feedImports,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	})
}

// RecordMutation counts one finished store mutation.
func RecordMutation(table, op, outcome string) {
	storeMutations.WithLabelValues(table, op, outcome).Inc()
}

// RecordRemoteChange counts one change-feed event.
func RecordRemoteChange(table string, applied bool) {
	result := "dropped"
	if applied {
		result = "applied"
	}
	storeEchoes.WithLabelValues(table, result).Inc()
}

// RecordAssistant records one assistant backend call.
func RecordAssistant(outcome string, duration time.Duration) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	assistantRequests.WithLabelValues(outcome).Inc()
	assistantDuration.Observe(duration.Seconds())
}

// RecordFeedImport records one feed refresh.
func RecordFeedImport(feed string, success bool) {
	if feed == "" {
		feed = "unknown"
	}
	feedImports.WithLabelValues(feed, strconv.FormatBool(success)).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// canonicalPath collapses record ids so label cardinality stays bounded:
// /api/members/<id> becomes /api/members/:id.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] != "api" || len(parts) < 3 {
		return "/" + trimmed
	}
	switch parts[2] {
	case "occurrences", "summary":
		return "/" + strings.Join(parts[:3], "/")
	}
	return "/api/" + parts[1] + "/:id"
}
