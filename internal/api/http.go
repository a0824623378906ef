package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bher20/marketdash/internal/cron"
	"github.com/bher20/marketdash/internal/datasets"
	"github.com/bher20/marketdash/internal/metrics"
	"github.com/bher20/marketdash/internal/refresh"
	"github.com/bher20/marketdash/internal/storage"
)

// Inspector reports tracker freshness. *refresh.Orchestrator satisfies it.
type Inspector interface {
	Inspect(ctx context.Context, tasks []refresh.Task) ([]refresh.TaskState, error)
}

// Refresher triggers one refresh run. *cron.Job satisfies it.
type Refresher interface {
	Run(ctx context.Context) (refresh.Report, error)
}

// Deps are the collaborators served over HTTP.
type Deps struct {
	Store     storage.Storage
	Inspector Inspector
	Refresher Refresher
	Tasks     func() []refresh.Task
	// JobName selects the scheduled_jobs row shown by /refresh/status.
	// Defaults to cron.DefaultJobName.
	JobName string
	Logger  *slog.Logger
}

// NewMux constructs the HTTP mux, wiring in datasets, refresh control,
// metrics and health endpoints.
func NewMux(d Deps) *http.ServeMux {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.JobName == "" {
		d.JobName = cron.DefaultJobName
	}
	mux := http.NewServeMux()

	// Metrics endpoint.
	mux.Handle("/metrics", promhttp.Handler())

	// Health / readiness / liveness.
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("live"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := d.Store.Ping(r.Context()); err != nil {
			d.Logger.Warn("readyz: store ping failed", "err", err)
			http.Error(w, "store not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	mux.HandleFunc("/fx/matrix", instrument("/fx/matrix", handleMatrix(d)))
	mux.HandleFunc("/datasets/", instrument("/datasets", handleDataset(d)))
	mux.HandleFunc("/refresh/status", instrument("/refresh/status", handleStatus(d)))
	mux.HandleFunc("/refresh", instrument("/refresh", handleRefresh(d)))

	return mux
}

// statusRecorder captures the response code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

func instrument(path string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		metrics.RequestsTotal.WithLabelValues(path).Inc()
		h(rec, r)
		metrics.RequestDurationSeconds.WithLabelValues(path).Observe(time.Since(start).Seconds())
		if rec.code >= 400 {
			metrics.RequestErrorsTotal.WithLabelValues(path, strconv.Itoa(rec.code)).Inc()
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func wantsCSV(r *http.Request) bool {
	if f := r.URL.Query().Get("format"); f != "" {
		return strings.EqualFold(f, "csv")
	}
	return strings.Contains(r.Header.Get("Accept"), "text/csv")
}

// handleMatrix serves the cached FX cross-rate table as JSON or CSV.
func handleMatrix(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		m, err := datasets.LoadMatrix(r.Context(), d.Store)
		if err != nil {
			d.Logger.Error("load fx matrix failed", "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if m == nil {
			http.Error(w, "fx matrix not refreshed yet", http.StatusNotFound)
			return
		}
		w.Header().Set("Last-Modified", m.Fetched.UTC().Format(http.TimeFormat))
		if wantsCSV(r) {
			w.Header().Set("Content-Type", "text/csv")
			if err := m.Table.WriteCSV(w); err != nil {
				d.Logger.Error("write fx matrix csv failed", "err", err)
			}
			return
		}
		writeJSON(w, http.StatusOK, m)
	}
}

// handleDataset serves /datasets/{resource} straight from the snapshot cache.
func handleDataset(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/datasets/")
		if id == "" || strings.Contains(id, "/") {
			http.NotFound(w, r)
			return
		}
		snap, err := d.Store.GetSnapshot(r.Context(), id)
		if err != nil {
			d.Logger.Error("get snapshot failed", "resource", id, "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if snap == nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", snap.ContentType)
		w.Header().Set("Last-Modified", snap.FetchedAt.UTC().Format(http.TimeFormat))
		_, _ = w.Write(snap.Payload)
	}
}

// StatusResponse is the body returned by GET /refresh/status. Job is nil
// until the scheduled job has run once.
type StatusResponse struct {
	Resources []refresh.TaskState   `json:"resources"`
	Job       *storage.ScheduledJob `json:"job"`
}

// handleStatus reports per-resource freshness and the last scheduled run
// without refreshing anything.
func handleStatus(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		states, err := d.Inspector.Inspect(r.Context(), d.Tasks())
		if err != nil {
			d.Logger.Error("inspect tracker failed", "err", err)
			http.Error(w, "tracker unavailable", http.StatusInternalServerError)
			return
		}
		job, err := d.Store.GetScheduledJob(r.Context(), d.JobName)
		if err != nil {
			d.Logger.Error("get scheduled job failed", "job", d.JobName, "err", err)
			http.Error(w, "job store unavailable", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, StatusResponse{Resources: states, Job: job})
	}
}

// RefreshResponse is the body returned by POST /refresh.
type RefreshResponse struct {
	RunID     string          `json:"run_id"`
	Refreshed int             `json:"refreshed"`
	Skipped   int             `json:"skipped"`
	Failed    int             `json:"failed"`
	Outcomes  []OutcomeStatus `json:"outcomes"`
	Error     string          `json:"error,omitempty"`
}

// OutcomeStatus is the wire form of one task outcome.
type OutcomeStatus struct {
	Resource   string  `json:"resource"`
	Mode       string  `json:"mode"`
	Status     string  `json:"status"`
	Error      string  `json:"error,omitempty"`
	DurationMs float64 `json:"duration_ms"`
}

func toResponse(rep refresh.Report) RefreshResponse {
	resp := RefreshResponse{
		RunID:     rep.RunID,
		Refreshed: rep.Refreshed(),
		Skipped:   rep.Skipped(),
		Failed:    rep.Failed(),
		Outcomes:  make([]OutcomeStatus, 0, len(rep.Outcomes)),
	}
	for _, o := range rep.Outcomes {
		st := OutcomeStatus{
			Resource:   o.ID,
			Mode:       o.Mode.String(),
			Status:     o.Status.String(),
			DurationMs: float64(o.Duration.Microseconds()) / 1000,
		}
		if o.Err != nil {
			st.Error = o.Err.Error()
		}
		resp.Outcomes = append(resp.Outcomes, st)
	}
	return resp
}

// handleRefresh runs the orchestrator once, synchronously.
func handleRefresh(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		rep, err := d.Refresher.Run(r.Context())
		if errors.Is(err, cron.ErrRunInProgress) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		resp := toResponse(rep)
		if err != nil {
			d.Logger.Error("manual refresh failed", "err", err)
			resp.Error = err.Error()
			writeJSON(w, http.StatusInternalServerError, resp)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
