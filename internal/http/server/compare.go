package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/matthewgall/epicdeals/internal/archive"
	"github.com/matthewgall/epicdeals/internal/compare"
)

type compareRequest struct {
	Products []compare.ProductInput `json:"products"`
	Query    string                 `json:"query"`
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var body compareRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		body = compareRequest{}
	}

	comparison, err := s.compare.Reconcile(r.Context(), body.Products)
	switch {
	case errors.Is(err, compare.ErrMissingCredentials):
		respondError(w, http.StatusInternalServerError, err)
	case errors.Is(err, compare.ErrNoProducts):
		respondError(w, http.StatusBadRequest, err)
	case err != nil:
		log.Printf("Warning: compare failed: %v", err)
		respondError(w, http.StatusInternalServerError, err)
	default:
		respondJSON(w, http.StatusOK, comparison)
	}
}

func (s *Server) handleComparisonSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.recorder == nil {
		respondJSON(w, http.StatusNotFound, map[string]string{"error": "archive_disabled"})
		return
	}

	snapshot, err := s.recorder.Load(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, archive.ErrInvalidKey):
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_id"})
	case errors.Is(err, archive.ErrNotFound):
		respondJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
	case err != nil:
		log.Printf("Warning: loading comparison snapshot: %v", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "archive_unavailable"})
	default:
		respondJSON(w, http.StatusOK, snapshot)
	}
}
