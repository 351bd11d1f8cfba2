package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
)

// HandleDocument serves and replaces the shared document. GET returns the current document as
// plain text; PUT is the editor's synchronous write-back, which stores the new value and notifies
// all observers over the document topic. Last writer wins; an edit during a streamed exchange is
// simply overwritten by the next extracted block.
func (m Main) HandleDocument(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		_, document := m.state.snapshot()
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, document)
	case http.MethodPut:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			m.logger.Error("Failed to read document body",
				slog.String(errLoggerKey, err.Error()))
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		m.state.setDocument(string(body))
		m.publishDocument(string(body))
		w.WriteHeader(http.StatusNoContent)
	default:
		m.logger.Error("Method not allowed", slog.String("method", r.Method))
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleRevisions lists the stored document snapshots as JSON, newest first. Bodies are omitted;
// a snapshot is fetched in full only when restored.
func (m Main) HandleRevisions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		m.logger.Error("Method not allowed", slog.String("method", r.Method))
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	revisions, err := m.store.Revisions(r.Context())
	if err != nil {
		m.logger.Error("Failed to list revisions",
			slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(revisions); err != nil {
		m.logger.Error("Failed to encode revisions",
			slog.String(errLoggerKey, err.Error()))
	}
}

// HandleRevisionRestore loads a stored snapshot back into the shared document and notifies all
// observers. It expects an "id" form field and returns 404 for an unknown snapshot.
func (m Main) HandleRevisionRestore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		m.logger.Error("Method not allowed", slog.String("method", r.Method))
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.FormValue("id")
	if id == "" {
		http.Error(w, "Revision id is required", http.StatusBadRequest)
		return
	}

	revision, err := m.store.Revision(r.Context(), id)
	if err != nil {
		m.logger.Error("Failed to load revision",
			slog.String("id", id),
			slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if revision.ID == "" {
		http.Error(w, "Revision not found", http.StatusNotFound)
		return
	}

	m.state.setDocument(revision.Document)
	m.publishDocument(revision.Document)
	w.WriteHeader(http.StatusNoContent)
}
