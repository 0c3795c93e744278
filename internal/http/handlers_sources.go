package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/target/harvester/internal/domain/model"
	"github.com/target/harvester/internal/service"
)

// Ingester runs the pipeline for one source synchronously.
type Ingester interface {
	Run(ctx context.Context, req service.RunRequest) (*model.RunResult, error)
}

// SourceHandlers serves source registration and per-source run endpoints.
type SourceHandlers struct {
	Sources  *service.SourceService
	Dispatch *service.DispatchService
	Catalog  *service.CatalogService
	Ingest   Ingester
}

// Upsert creates or replaces a source by name.
func (h *SourceHandlers) Upsert(w http.ResponseWriter, r *http.Request) {
	var req model.UpsertSourceRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	src, err := h.Sources.Upsert(r.Context(), &req)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, src)
}

// List returns sources ordered by name. ?name= looks up a single source.
func (h *SourceHandlers) List(w http.ResponseWriter, r *http.Request) {
	if name := strings.TrimSpace(r.URL.Query().Get("name")); name != "" {
		src, err := h.Sources.GetByName(r.Context(), name)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, []*model.Source{src})
		return
	}

	limit, offset := ParseLimitOffset(r, service.DefaultListLimit, service.MaxListLimit)
	sources, err := h.Sources.List(r.Context(), limit, offset)
	if err != nil {
		WriteError(w, err)
		return
	}
	if sources == nil {
		sources = []*model.Source{}
	}
	WriteJSON(w, http.StatusOK, sources)
}

// Get returns one source.
func (h *SourceHandlers) Get(w http.ResponseWriter, r *http.Request) {
	src, err := h.Sources.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, src)
}

// Delete removes a source. Its postings stay in the catalog.
func (h *SourceHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Sources.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type enqueueRunBody struct {
	Priority   int `json:"priority"`
	MaxRetries int `json:"max_retries"`
}

type enqueueRunResponse struct {
	JobID  string          `json:"job_id"`
	Status model.JobStatus `json:"status"`
}

// EnqueueRun queues an ingest run and answers 202 with the job id.
func (h *SourceHandlers) EnqueueRun(w http.ResponseWriter, r *http.Request) {
	var body enqueueRunBody
	if r.ContentLength > 0 && !DecodeJSON(w, r, &body) {
		return
	}

	job, err := h.Dispatch.EnqueueRun(r.Context(), chi.URLParam(r, "id"), service.EnqueueOptions{
		Priority:   body.Priority,
		MaxRetries: body.MaxRetries,
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	w.Header().Set("Location", "/api/jobs/"+job.ID)
	WriteJSON(w, http.StatusAccepted, enqueueRunResponse{JobID: job.ID, Status: job.Status})
}

// RunSync executes the pipeline inline and returns the run result.
func (h *SourceHandlers) RunSync(w http.ResponseWriter, r *http.Request) {
	res, err := h.Ingest.Run(r.Context(), service.RunRequest{SourceID: chi.URLParam(r, "id")})
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

// ListRuns returns run logs for a source within ?since= and ?until=.
func (h *SourceHandlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	since, until, err := service.ParseWindow(q.Get("since"), q.Get("until"))
	if err != nil {
		WriteError(w, err)
		return
	}

	logs, err := h.Catalog.ListRunLogs(r.Context(), model.RunLogListOptions{
		SourceID: chi.URLParam(r, "id"),
		Since:    since,
		Until:    until,
		Limit:    parseIntQuery(r, "limit", service.DefaultListLimit),
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	if logs == nil {
		logs = []*model.RunLog{}
	}
	WriteJSON(w, http.StatusOK, logs)
}

// ListJobs returns recent dispatch jobs for a source.
func (h *SourceHandlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit, _ := ParseLimitOffset(r, service.DefaultListLimit, service.MaxListLimit)
	jobs, err := h.Dispatch.ListJobs(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		WriteError(w, err)
		return
	}
	if jobs == nil {
		jobs = []*model.Job{}
	}
	WriteJSON(w, http.StatusOK, jobs)
}

// Summary returns the source with its posting count and latest run.
func (h *SourceHandlers) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Catalog.Summary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, summary)
}
