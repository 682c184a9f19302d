package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-pkgz/lgr"

	"github.com/evjev/readstash/pkg/api"
	"github.com/evjev/readstash/pkg/domain"
	"github.com/evjev/readstash/pkg/store"
)

// contentResponse is the wire shape for article content
type contentResponse struct {
	ID         string             `json:"id"`
	Status     string             `json:"status"`
	HTML       string             `json:"html,omitempty"`
	Text       string             `json:"text,omitempty"`
	Highlights []domain.Highlight `json:"highlights,omitempty"`
}

// articleContentHandler serves rendered content for a single item. The cached
// body is preferred unless refresh=true forces a remote fetch; format=text
// returns a plain-text rendition instead of HTML.
func (s *Server) articleContentHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	refresh := r.URL.Query().Get("refresh") == "true"

	content, err := s.fetcher.FetchArticleContent(r.Context(), id, s.username, !refresh)
	if err != nil {
		RenderError(w, r, err, statusForFetchError(err))
		return
	}

	resp := contentResponse{
		ID:         id,
		Status:     string(content.Status),
		HTML:       content.HTML,
		Highlights: content.Highlights,
	}

	if r.URL.Query().Get("format") == "text" {
		text, err := s.text.Render(content.HTML)
		if err != nil {
			RenderError(w, r, fmt.Errorf("render text for %s: %w", id, err), http.StatusUnprocessableEntity)
			return
		}
		resp.HTML = ""
		resp.Text = text
	}

	RenderJSON(w, r, http.StatusOK, resp)
}

// articlePDFHandler serves the stored binary document for a PDF article
func (s *Server) articlePDFHandler(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	data, err := s.storage.GetArticlePDF(r.Context(), slug)
	if errors.Is(err, store.ErrNotFound) {
		RenderError(w, r, fmt.Errorf("no pdf stored for %s", slug), http.StatusNotFound)
		return
	}
	if err != nil {
		RenderError(w, r, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		lgr.Printf("[WARN] failed to write pdf response for %s: %v", slug, err)
	}
}

// prefetchRequest is the wire shape for a prefetch sweep request
type prefetchRequest struct {
	ItemIDs []string `json:"item_ids"`
	Limit   int      `json:"limit"`
}

// prefetchHandler starts a background warm-up sweep and returns immediately.
// Explicit item IDs are used when provided, otherwise records without cached
// content are selected from the local store.
func (s *Server) prefetchHandler(w http.ResponseWriter, r *http.Request) {
	// a bare POST without a body is a valid request for the pending fallback
	var req prefetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		RenderError(w, r, fmt.Errorf("decode request: %w", err), http.StatusBadRequest)
		return
	}

	itemIDs := req.ItemIDs
	if len(itemIDs) == 0 {
		limit := req.Limit
		if limit <= 0 {
			limit = 50
		}
		var err error
		itemIDs, err = s.storage.ListPendingArticleIDs(r.Context(), limit)
		if err != nil {
			RenderError(w, r, fmt.Errorf("list pending items: %w", err), http.StatusInternalServerError)
			return
		}
	}

	// the sweep outlives the request, it runs on its own context
	s.sweeps.Add(1)
	go func() {
		defer s.sweeps.Done()
		s.fetcher.PrefetchArticles(context.Background(), itemIDs, s.username)
	}()

	RenderJSON(w, r, http.StatusAccepted, map[string]interface{}{"queued": len(itemIDs)})
}

// statusForFetchError maps fetch error categories to HTTP status codes
func statusForFetchError(err error) int {
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, api.ErrBadData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, api.ErrNetwork):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
