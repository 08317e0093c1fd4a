// Package metrics exposes Prometheus collectors for the bot-log pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pipelineLinesTotal         *prometheus.CounterVec
	pipelineFilesSyncedTotal   *prometheus.CounterVec
	pipelineBotHitsTotal       *prometheus.CounterVec
	pipelineRunsTotal          *prometheus.CounterVec
	pipelineRunDurationSeconds *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		pipelineLinesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botlog_lines_total",
				Help: "Total number of access-log lines processed, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		pipelineFilesSyncedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botlog_files_synced_total",
				Help: "Total number of remote log files synced, labeled by status.",
			},
			[]string{"status"},
		)

		pipelineBotHitsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botlog_bot_hits_total",
				Help: "Total number of requests attributed to a bot, labeled by bot name.",
			},
			[]string{"bot"},
		)

		pipelineRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botlog_runs_total",
				Help: "Total number of pipeline runs, labeled by stage and status.",
			},
			[]string{"stage", "status"},
		)

		pipelineRunDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "botlog_run_duration_seconds",
				Help:    "Histogram of pipeline run durations, labeled by stage.",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
			},
			[]string{"stage"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveLines adds to the parsed and malformed line counters.
func ObserveLines(parsed, malformed int64) {
	if parsed > 0 {
		pipelineLinesTotal.WithLabelValues("parsed").Add(float64(parsed))
	}
	if malformed > 0 {
		pipelineLinesTotal.WithLabelValues("malformed").Add(float64(malformed))
	}
}

// ObserveFileSynced increments the synced file counter for the given status.
func ObserveFileSynced(status string) {
	pipelineFilesSyncedTotal.WithLabelValues(status).Inc()
}

// ObserveBotHits adds to the per-bot hit counter.
func ObserveBotHits(bot string, hits int64) {
	if hits > 0 {
		pipelineBotHitsTotal.WithLabelValues(bot).Add(float64(hits))
	}
}

// ObserveRun records a completed pipeline run.
func ObserveRun(stage, status string, duration time.Duration) {
	pipelineRunsTotal.WithLabelValues(stage, status).Inc()
	pipelineRunDurationSeconds.WithLabelValues(stage).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
