package intake

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/DevangML/TaskArena/internal/logger"
	"github.com/DevangML/TaskArena/internal/observability"
	"github.com/DevangML/TaskArena/internal/queue"
	"github.com/DevangML/TaskArena/internal/status"
	"github.com/DevangML/TaskArena/pkg/api"
)

// Handlers holds all HTTP handlers and their dependencies.
type Handlers struct {
	queue   *queue.Store
	status  *status.Reader
	metrics *observability.JobMetrics
	log     *slog.Logger
}

// NewHandlers creates a Handlers instance. metrics may be nil.
func NewHandlers(q *queue.Store, s *status.Reader, m *observability.JobMetrics, log *slog.Logger) *Handlers {
	return &Handlers{queue: q, status: s, metrics: m, log: log}
}

// SubmitJob handles POST /jobs. It validates the target directory, derives
// the repo key, and enqueues a descriptor; execution happens elsewhere.
func (h *Handlers) SubmitJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx, h.log)

	var req api.SubmitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Dir == "" || req.Prompt == "" {
		h.httpError(w, "Both 'dir' and 'prompt' are required", http.StatusBadRequest)
		return
	}

	dir, err := normalizeDir(req.Dir)
	if err != nil {
		h.httpError(w, "Invalid directory: "+req.Dir, http.StatusBadRequest)
		return
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		h.httpError(w, "Directory does not exist: "+dir, http.StatusBadRequest)
		return
	}

	job := &queue.Job{
		ID:        uuid.NewString(),
		Dir:       dir,
		Prompt:    req.Prompt,
		RepoKey:   queue.RepoKey(dir),
		CreatedAt: time.Now().UTC(),
	}

	if err := h.queue.Enqueue(job); err != nil {
		log.Error("enqueue failed", "error", err)
		h.httpError(w, "Failed to enqueue job", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordSubmitted(ctx)
	log.Info("job submitted", "job_id", job.ID, "repo_key", job.RepoKey)

	h.respondJSON(w, http.StatusOK, api.SubmitJobResponse{ID: job.ID, RepoKey: job.RepoKey})
}

// GetJob handles GET /jobs/{id}: the lifecycle stage plus the final outcome
// once one exists.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	resp, err := h.status.Job(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Failed to read job status", http.StatusInternalServerError)
		return
	}
	h.respondJSON(w, http.StatusOK, resp)
}

// ListArtifacts handles GET /jobs/{id}/artifacts.
func (h *Handlers) ListArtifacts(w http.ResponseWriter, r *http.Request) {
	resp, err := h.status.Artifacts(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Failed to list artifacts", http.StatusInternalServerError)
		return
	}
	h.respondJSON(w, http.StatusOK, resp)
}

// ListRuns handles GET /runs: recent run-log outcomes, oldest first.
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.httpError(w, "Invalid limit: "+raw, http.StatusBadRequest)
			return
		}
		limit = n
	}

	resp, err := h.status.Runs(limit)
	if err != nil {
		h.httpError(w, "Failed to read run history", http.StatusInternalServerError)
		return
	}
	h.respondJSON(w, http.StatusOK, resp)
}

// GetArtifact handles GET /jobs/{id}/artifacts/{name}, returning raw text.
func (h *Handlers) GetArtifact(w http.ResponseWriter, r *http.Request) {
	content, err := h.status.Artifact(r.PathValue("id"), r.PathValue("name"))
	if err != nil {
		h.httpError(w, "Artifact not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(content))
}

// Healthz is a liveness probe.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Readyz reports whether the queue store is usable.
func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if _, err := h.queue.Depth(); err != nil {
		h.httpError(w, "Queue unavailable", http.StatusServiceUnavailable)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// normalizeDir expands a leading ~ and makes the path absolute.
func normalizeDir(dir string) (string, error) {
	if dir == "~" || strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
	}
	return filepath.Abs(dir)
}

// A helper function to write standard JSON responses.
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// A helper function to return consistent error messages.
func (h *Handlers) httpError(w http.ResponseWriter, message string, code int) {
	h.respondJSON(w, code, api.ErrorResponse{
		Error: message,
		Code:  strconv.Itoa(code),
	})
}
