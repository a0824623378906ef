package cron

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultInterval is used when a schedule setting cannot be parsed.
const DefaultInterval = 15 * time.Minute

// ParseSchedule accepts integer seconds, a standard five-field cron
// expression or a descriptor such as "@hourly" or "@every 15m".
func ParseSchedule(setting string) (cron.Schedule, error) {
	setting = strings.TrimSpace(setting)
	if v, err := strconv.Atoi(setting); err == nil {
		if v <= 0 {
			return nil, fmt.Errorf("cron: interval must be positive, got %d", v)
		}
		return cron.Every(time.Duration(v) * time.Second), nil
	}
	sched, err := cron.ParseStandard(setting)
	if err != nil {
		return nil, fmt.Errorf("cron: parse schedule %q: %w", setting, err)
	}
	return sched, nil
}

// NextRun returns the next run after last for setting, falling back to
// DefaultInterval when setting is invalid.
func NextRun(setting string, last time.Time) time.Time {
	if sched, err := ParseSchedule(setting); err == nil {
		return sched.Next(last)
	}
	return last.Add(DefaultInterval)
}

// Worker runs a Job on a schedule until its context is cancelled.
type Worker struct {
	job      *Job
	schedule string
	// poll is how often the control loop checks whether a run is due.
	poll   time.Duration
	now    func() time.Time
	logger *slog.Logger
}

func NewWorker(job *Job, schedule string, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{job: job, schedule: schedule, poll: 10 * time.Second, now: time.Now, logger: logger}
}

// Run starts the control loop. The first run happens immediately.
func (w *Worker) Run(ctx context.Context) error {
	if _, err := ParseSchedule(w.schedule); err != nil {
		w.logger.Warn("cron: invalid schedule, using default interval", "schedule", w.schedule, "default", DefaultInterval, "err", err)
	}

	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	nextRun := w.now()
	w.logger.Info("cron worker starting", "job", w.job.Name(), "schedule", w.schedule)

	for {
		if !w.now().Before(nextRun) {
			if _, err := w.job.Run(ctx); err != nil {
				w.logger.Error("cron: run failed", "job", w.job.Name(), "err", err)
			}
			nextRun = NextRun(w.schedule, w.now())
			w.logger.Debug("cron: next run scheduled", "at", nextRun)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
