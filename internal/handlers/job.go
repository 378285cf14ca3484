package handlers

import (
	"errors"
	"net/http"

	"github.com/diewo77/sales-portal/httpx"
	"github.com/diewo77/sales-portal/internal/jobs"
	"github.com/diewo77/sales-portal/internal/models"
	"github.com/google/uuid"
)

type JobHandler struct {
	runner *jobs.Runner
	store  *jobs.Store
}

func NewJobHandler(runner *jobs.Runner, store *jobs.Store) *JobHandler {
	return &JobHandler{runner: runner, store: store}
}

type launchResponse struct {
	ID     uuid.UUID        `json:"id"`
	Status models.JobStatus `json:"status"`
}

// Launch stores a queued job and returns at once.
func (h *JobHandler) Launch(w http.ResponseWriter, r *http.Request) {
	var in jobs.LaunchInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		invalidJSON(w)
		return
	}
	job, err := h.runner.Launch(r.Context(), in)
	switch {
	case errors.Is(err, jobs.ErrQueueFull):
		httpx.JSONError(w, http.StatusServiceUnavailable, "queue_full", map[string]string{"id": job.ID.String()})
		return
	case errors.Is(err, jobs.ErrClosed):
		httpx.JSONError(w, http.StatusServiceUnavailable, "shutting_down", nil)
		return
	case err != nil:
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, launchResponse{ID: job.ID, Status: models.JobStatusQueued})
}

func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	page := httpx.PageParam(r)
	list, total, err := h.store.List(r.Context(), page)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.NewPage(list, page, jobs.JobPageSize, total))
}

func (h *JobHandler) View(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}
	job, err := h.store.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, job)
}

func (h *JobHandler) Logs(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}
	page := httpx.PageParam(r)
	logs, total, err := h.store.Logs(r.Context(), id, page)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.NewPage(logs, page, jobs.LogPageSize, total))
}

func jobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return uuid.Nil, false
	}
	return id, true
}
