package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/target/harvester/internal/service"
)

// JobHandlers exposes dispatch job status.
type JobHandlers struct {
	Dispatch *service.DispatchService
}

// Get returns one dispatch job.
func (h *JobHandlers) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.Dispatch.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// Stats returns queue depth by status.
func (h *JobHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Dispatch.Stats(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}
