package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketdash_requests_total",
			Help: "Total number of HTTP requests per path",
		},
		[]string{"path"},
	)

	RequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marketdash_request_duration_seconds",
			Help:    "Request duration in seconds per path",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	RequestErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketdash_request_errors_total",
			Help: "Total number of error responses per path and code",
		},
		[]string{"path", "code"},
	)
)

var (
	DBPoolTotalConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "marketdash_db_pool_total_conns",
			Help: "Total number of connections in the DB pool per driver",
		},
		[]string{"driver"},
	)

	DBPoolIdleConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "marketdash_db_pool_idle_conns",
			Help: "Idle connections in the DB pool per driver",
		},
		[]string{"driver"},
	)

	DBPoolAcquiredConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "marketdash_db_pool_acquired_conns",
			Help: "Currently acquired (in-use) connections per driver",
		},
		[]string{"driver"},
	)

	DBPoolAcquires = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "marketdash_db_pool_acquires",
			Help: "Cumulative connection acquires reported by the pool per driver",
		},
		[]string{"driver"},
	)
)

// UpdateDBPoolMetrics publishes a pool stat snapshot. acquires is the
// pool's own cumulative counter.
func UpdateDBPoolMetrics(driver string, total, idle, acquired float64, acquires int64) {
	DBPoolTotalConns.WithLabelValues(driver).Set(total)
	DBPoolIdleConns.WithLabelValues(driver).Set(idle)
	DBPoolAcquiredConns.WithLabelValues(driver).Set(acquired)
	DBPoolAcquires.WithLabelValues(driver).Set(float64(acquires))
}

var (
	RefreshTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketdash_refresh_tasks_total",
			Help: "Refresh task outcomes per resource and status",
		},
		[]string{"resource", "status"},
	)

	RefreshTaskDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marketdash_refresh_task_duration_seconds",
			Help:    "Producer duration in seconds per resource",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"resource"},
	)

	ResourceLastRefresh = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "marketdash_resource_last_refresh_timestamp",
			Help: "Unix timestamp of the last successful refresh per resource",
		},
		[]string{"resource"},
	)

	FXUndefinedCells = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "marketdash_fx_undefined_cells",
			Help: "Number of undefined spot cells in the last built FX matrix",
		},
	)
)

// ObserveTask records one refresh task outcome. status is the outcome's
// string form; duration is zero for skipped tasks.
func ObserveTask(resource, status string, dur time.Duration, refreshedAt time.Time) {
	RefreshTasksTotal.WithLabelValues(resource, status).Inc()
	if status == "skipped" {
		return
	}
	RefreshTaskDurationSeconds.WithLabelValues(resource).Observe(dur.Seconds())
	if !refreshedAt.IsZero() {
		ResourceLastRefresh.WithLabelValues(resource).Set(float64(refreshedAt.Unix()))
	}
}

var (
	ScheduledJobLastRun = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "marketdash_job_last_run_timestamp",
			Help: "Unix timestamp of the last completed run for a job",
		},
		[]string{"job"},
	)

	ScheduledJobLastDurationSeconds = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "marketdash_job_last_duration_seconds",
			Help: "Duration of the last completed run for a job",
		},
		[]string{"job"},
	)

	ScheduledJobFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketdash_job_failures_total",
			Help: "Total number of failed executions per job",
		},
		[]string{"job"},
	)
)

func UpdateJobMetrics(job string, startedAt time.Time, err error) {
	dur := time.Since(startedAt).Seconds()
	ScheduledJobLastDurationSeconds.WithLabelValues(job).Set(dur)
	ScheduledJobLastRun.WithLabelValues(job).Set(float64(time.Now().Unix()))
	if err != nil {
		ScheduledJobFailuresTotal.WithLabelValues(job).Inc()
	}
}
