package metrics

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

var (
	ErrorsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autopilot_errors_total",
			Help: "Total number of occurred errors.",
		},
		[]string{"type"},
	)
	TaskRunsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autopilot_task_runs_total",
			Help: "Total number of finished task runs by outcome.",
		},
		[]string{"kind", "status"},
	)
	TaskDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "autopilot_task_duration_seconds",
			Help:    "Duration of each task run in seconds.",
			Buckets: []float64{5, 30, 60, 300, 900, 1800, 3600},
		},
		[]string{"kind"},
	)
	SkippedRunsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autopilot_scheduler_skipped_total",
			Help: "Total number of scheduled firings that were not executed.",
		},
		[]string{"kind", "reason"},
	)
	ItemsProcessedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autopilot_items_processed_total",
			Help: "Total number of items handled by tasks.",
		},
		[]string{"kind"},
	)
	AuthAttemptsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autopilot_auth_attempts_total",
			Help: "Total number of authentication attempts by result.",
		},
		[]string{"result"},
	)
	ApplicationsSubmittedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "autopilot_applications_submitted_total",
			Help: "Total number of applications submitted by auto-apply.",
		},
	)
)

func init() {
	prometheus.MustRegister(ErrorsCounter)
	prometheus.MustRegister(TaskRunsCounter)
	prometheus.MustRegister(TaskDuration)
	prometheus.MustRegister(SkippedRunsCounter)
	prometheus.MustRegister(ItemsProcessedCounter)
	prometheus.MustRegister(AuthAttemptsCounter)
	prometheus.MustRegister(ApplicationsSubmittedCounter)
}

// StartMetricsServer serves /metrics on port until the returned server is shut down.
func StartMetricsServer(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server stopped")
		}
	}()
	return server
}
