package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "orflow",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method, path and status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	casesScheduled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "orflow",
			Name:      "cases_scheduled_total",
			Help:      "Count of surgical cases scheduled by priority.",
		},
		[]string{"priority"},
	)

	emergencyInsertions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "orflow",
			Name:      "emergency_insertions_total",
			Help:      "Count of emergency insertions by outcome.",
		},
		[]string{"outcome"},
	)

	casesDisplaced = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "orflow",
			Name:      "cases_displaced_total",
			Help:      "Count of elective cases displaced by emergency insertions.",
		},
	)

	optimizationRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "orflow",
			Name:      "optimization_runs_total",
			Help:      "Count of schedule optimization runs by goal.",
		},
		[]string{"goal"},
	)

	durationPredictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "orflow",
			Name:      "duration_predictions_total",
			Help:      "Count of case duration predictions served.",
		},
	)
)

// Register registers all collectors (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(requestDuration, casesScheduled, emergencyInsertions,
			casesDisplaced, optimizationRuns, durationPredictions)
	})
}

// Handler returns the /metrics scrape handler.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}

// HTTPMetrics records request latency per route.
func HTTPMetrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			requestDuration.WithLabelValues(
				c.Request().Method,
				c.Path(),
				strconv.Itoa(c.Response().Status),
			).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

func IncCaseScheduled(priority string)    { casesScheduled.WithLabelValues(priority).Inc() }
func IncEmergencyInsertion(outcome string) { emergencyInsertions.WithLabelValues(outcome).Inc() }
func IncCaseDisplaced()                    { casesDisplaced.Inc() }
func IncOptimizationRun(goal string)       { optimizationRuns.WithLabelValues(goal).Inc() }
func IncDurationPrediction()               { durationPredictions.Inc() }
