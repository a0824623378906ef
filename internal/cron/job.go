package cron

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/bher20/marketdash/internal/alerting"
	"github.com/bher20/marketdash/internal/metrics"
	"github.com/bher20/marketdash/internal/refresh"
)

// DefaultJobName is the scheduled_jobs row and metric label of a refresh run.
const DefaultJobName = "refresh_datasets"

// ErrRunInProgress is returned when a run is requested while another one
// in this process has not finished.
var ErrRunInProgress = errors.New("cron: refresh run already in progress")

// Runner executes one refresh run. *refresh.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, tasks []refresh.Task) (refresh.Report, error)
}

// JobRecorder persists the outcome of a scheduled job.
type JobRecorder interface {
	UpdateScheduledJob(ctx context.Context, name string, started time.Time, dur time.Duration, success bool, errMsg string) error
}

// JobConfig wires a refresh Job.
type JobConfig struct {
	Name    string
	Runner  Runner
	Tasks   func() []refresh.Task
	Jobs    JobRecorder
	Alerter *alerting.Alerter
	Logger  *slog.Logger
}

// Job runs the orchestrator once and records metrics, the scheduled_jobs
// row and alerts. Runs within one process are serialized.
type Job struct {
	cfg JobConfig
	mu  sync.Mutex
}

func NewJob(cfg JobConfig) (*Job, error) {
	if cfg.Runner == nil || cfg.Tasks == nil {
		return nil, errors.New("cron: job needs a runner and tasks")
	}
	if cfg.Name == "" {
		cfg.Name = DefaultJobName
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Job{cfg: cfg}, nil
}

func (j *Job) Name() string { return j.cfg.Name }

// Run executes one refresh run. The error is the orchestrator's tracker
// error, or ErrRunInProgress; resource failures are only in the report.
func (j *Job) Run(ctx context.Context) (refresh.Report, error) {
	if !j.mu.TryLock() {
		return refresh.Report{}, ErrRunInProgress
	}
	defer j.mu.Unlock()

	log := j.cfg.Logger
	started := time.Now()
	rep, runErr := j.cfg.Runner.Run(ctx, j.cfg.Tasks())
	for _, o := range rep.Outcomes {
		metrics.ObserveTask(o.ID, o.Status.String(), o.Duration, o.RefreshedAt)
	}

	// A run with failed resources counts as a failed job.
	jobErr := runErr
	if jobErr == nil && rep.Failed() > 0 {
		jobErr = errors.New(failureSummary(rep))
	}
	metrics.UpdateJobMetrics(j.cfg.Name, started, jobErr)

	dur := time.Since(started)
	errMsg := ""
	if jobErr != nil {
		errMsg = jobErr.Error()
	}
	if j.cfg.Jobs != nil {
		if err := j.cfg.Jobs.UpdateScheduledJob(ctx, j.cfg.Name, started, dur, jobErr == nil, errMsg); err != nil {
			log.Error("cron: update scheduled_jobs failed", "err", err)
		}
	}

	if j.cfg.Alerter != nil && rep.Failed() > 0 {
		if err := j.cfg.Alerter.SendRunAlert(ctx, alerting.FromReport(j.cfg.Name, rep)); err != nil {
			log.Error("cron: send alert failed", "err", err)
		}
	}

	if jobErr != nil {
		log.Warn("cron: job completed with errors", "job", j.cfg.Name, "err", jobErr, "duration", dur)
	} else {
		log.Info("cron: job completed successfully", "job", j.cfg.Name, "duration", dur)
	}
	return rep, runErr
}

func failureSummary(rep refresh.Report) string {
	msg := ""
	for i, o := range rep.Failures() {
		if i > 0 {
			msg += "; "
		}
		msg += o.ID
		if o.Err != nil {
			msg += ": " + o.Err.Error()
		}
	}
	return msg
}
