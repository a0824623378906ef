package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bher20/marketdash/internal/storage"
)

var (
	// ErrTrackerLoad wraps failures reading the tracker store other than
	// missing or malformed data.
	ErrTrackerLoad = errors.New("refresh: load tracker")
	// ErrTrackerSave wraps failures persisting the tracker at the end of a run.
	ErrTrackerSave = errors.New("refresh: save tracker")
)

// Producer fetches one resource from upstream and persists it. Only the
// error matters to the orchestrator.
type Producer func(ctx context.Context) error

// Task binds a resource id to its producer and cadence.
type Task struct {
	ID      string
	Produce Producer
	Mode    Mode
	// Also lists resources written by the same producer; they are stamped
	// together with ID on success.
	Also []string
}

// Status is the result of one task in a run.
type Status int

const (
	StatusSkipped Status = iota
	StatusRefreshed
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSkipped:
		return "skipped"
	case StatusRefreshed:
		return "refreshed"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Outcome is the explicit per-task result collected by a run.
type Outcome struct {
	ID          string
	Mode        Mode
	Status      Status
	Err         error
	Started     time.Time
	Duration    time.Duration
	RefreshedAt time.Time
}

// Report summarizes one run.
type Report struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Outcomes []Outcome
}

func (r Report) count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

func (r Report) Refreshed() int { return r.count(StatusRefreshed) }
func (r Report) Failed() int    { return r.count(StatusFailed) }
func (r Report) Skipped() int   { return r.count(StatusSkipped) }

// Failures returns the failed outcomes in task order.
func (r Report) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			out = append(out, o)
		}
	}
	return out
}

// Config holds orchestrator dependencies.
type Config struct {
	Store storage.TrackerStore
	// Clock defaults to time.Now.
	Clock  func() time.Time
	Logger *slog.Logger
	// OnOutcome, when set, is called after every task.
	OnOutcome func(Outcome)
}

// Orchestrator runs refresh tasks sequentially against a tracker store.
// It takes no lock on the store: two overlapping runs both read the same
// prior state and the last one to save wins.
type Orchestrator struct {
	store     storage.TrackerStore
	clock     func() time.Time
	logger    *slog.Logger
	onOutcome func(Outcome)
}

// New creates an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Store == nil {
		return nil, errors.New("refresh: nil tracker store")
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Orchestrator{
		store:     cfg.Store,
		clock:     cfg.Clock,
		logger:    cfg.Logger,
		onOutcome: cfg.OnOutcome,
	}, nil
}

// ValidateTasks checks ids are non-empty and unique, producers are set and
// modes are known.
func ValidateTasks(tasks []Task) error {
	seen := make(map[string]bool, len(tasks))
	for i, t := range tasks {
		if t.ID == "" {
			return fmt.Errorf("refresh: task %d has empty id", i)
		}
		if seen[t.ID] {
			return fmt.Errorf("refresh: duplicate task id %q", t.ID)
		}
		seen[t.ID] = true
		if t.Produce == nil {
			return fmt.Errorf("refresh: task %q has nil producer", t.ID)
		}
		if !t.Mode.Valid() {
			return fmt.Errorf("refresh: task %q has invalid mode %v", t.ID, t.Mode)
		}
		for _, a := range t.Also {
			if a == "" || a == t.ID {
				return fmt.Errorf("refresh: task %q has invalid companion id %q", t.ID, a)
			}
		}
	}
	return nil
}

// Run evaluates tasks in order, invokes the due producers and persists the
// tracker once at the end. Producer failures are recorded in the report and
// never abort the run. Only tracker load/save errors are returned.
func (o *Orchestrator) Run(ctx context.Context, tasks []Task) (Report, error) {
	rep := Report{RunID: uuid.NewString(), Started: o.clock()}
	if err := ValidateTasks(tasks); err != nil {
		return rep, err
	}
	log := o.logger.With("run_id", rep.RunID)

	tracker, err := LoadTracker(ctx, o.store, log)
	if err != nil {
		rep.Finished = o.clock()
		return rep, fmt.Errorf("%w: %w", ErrTrackerLoad, err)
	}

	for _, task := range tasks {
		out := o.runTask(ctx, log, tracker, task)
		rep.Outcomes = append(rep.Outcomes, out)
		if o.onOutcome != nil {
			o.onOutcome(out)
		}
	}
	rep.Finished = o.clock()

	if err := tracker.Save(ctx, o.store); err != nil {
		log.Error("tracker save failed", "err", err)
		return rep, fmt.Errorf("%w: %w", ErrTrackerSave, err)
	}

	log.Info("refresh run complete",
		"refreshed", rep.Refreshed(),
		"failed", rep.Failed(),
		"skipped", rep.Skipped(),
		"duration", rep.Finished.Sub(rep.Started),
	)
	return rep, nil
}

func (o *Orchestrator) runTask(ctx context.Context, log *slog.Logger, tracker *Tracker, task Task) Outcome {
	out := Outcome{ID: task.ID, Mode: task.Mode, Started: o.clock()}
	if !tracker.Due(task.ID, out.Started, task.Mode) {
		log.Debug("resource fresh", "resource", task.ID, "mode", task.Mode)
		return out
	}

	log.Info("refreshing resource", "resource", task.ID, "mode", task.Mode)
	err := produce(ctx, task.Produce)
	finished := o.clock()
	out.Duration = finished.Sub(out.Started)
	if err != nil {
		out.Status = StatusFailed
		out.Err = err
		log.Error("refresh failed", "resource", task.ID, "err", err)
		return out
	}

	out.Status = StatusRefreshed
	out.RefreshedAt = finished
	tracker.MarkRefreshed(task.ID, finished)
	for _, id := range task.Also {
		tracker.MarkRefreshed(id, finished)
	}
	return out
}

// produce runs p, turning a panic into an error.
func produce(ctx context.Context, p Producer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("producer panicked: %v", r)
		}
	}()
	return p(ctx)
}

// TaskState is the freshness of one task as seen from the persisted tracker.
type TaskState struct {
	ID          string     `json:"resource_id"`
	Mode        string     `json:"mode"`
	LastRefresh *time.Time `json:"last_update"`
	Due         bool       `json:"due"`
}

// Inspect reports the tracker state of every task without running any
// producer or writing the store.
func (o *Orchestrator) Inspect(ctx context.Context, tasks []Task) ([]TaskState, error) {
	tracker, err := LoadTracker(ctx, o.store, o.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTrackerLoad, err)
	}
	now := o.clock()
	out := make([]TaskState, 0, len(tasks))
	for _, t := range tasks {
		st := TaskState{ID: t.ID, Mode: t.Mode.String(), Due: tracker.Due(t.ID, now, t.Mode)}
		if ts, ok := tracker.Get(t.ID); ok {
			st.LastRefresh = &ts
		}
		out = append(out, st)
	}
	return out, nil
}
