package httpx

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/target/harvester/internal/domain/model"
	"github.com/target/harvester/internal/service"
)

// PostingHandlers serves the posting catalog.
type PostingHandlers struct {
	Catalog *service.CatalogService
}

// List returns postings filtered by source_id, remote, tag and q.
func (h *PostingHandlers) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	remote, err := parseBoolQuery(r, "remote")
	if err != nil {
		WriteError(w, err)
		return
	}
	limit, offset := ParseLimitOffset(r, service.DefaultListLimit, service.MaxListLimit)
	opts := model.PostingListOptions{
		Remote: remote,
		Tag:    q.Get("tag"),
		Query:  q.Get("q"),
		Limit:  limit,
		Offset: offset,
	}
	if id := strings.TrimSpace(q.Get("source_id")); id != "" {
		opts.SourceID = &id
	}

	postings, err := h.Catalog.ListPostings(r.Context(), opts)
	if err != nil {
		WriteError(w, err)
		return
	}
	if postings == nil {
		postings = []*model.Posting{}
	}
	WriteJSON(w, http.StatusOK, postings)
}

// Get returns one posting.
func (h *PostingHandlers) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.Catalog.GetPosting(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, p)
}
