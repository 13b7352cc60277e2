package server

import (
	"log"
	"net/http"
	"strings"

	"github.com/matthewgall/epicdeals/internal/providers/ebaydeals"
)

func (s *Server) handleDeals(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit, err := intParam(query.Get("limit"), ebaydeals.DefaultLimit)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be an integer"})
		return
	}
	offset, err := intParam(query.Get("offset"), 0)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "offset must be an integer"})
		return
	}

	page, err := s.deals.Scrape(r.Context(), limit, offset)
	if err != nil {
		log.Printf("Warning: deals scrape failed: %v", err)
		respondJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error":         "Failed to scrape authentic deals",
			"itemSummaries": []ebaydeals.DealSummary{},
		})
		return
	}

	if marketplace := strings.TrimSpace(query.Get("marketplace")); marketplace != "" {
		page.Marketplace = marketplace
	}
	respondJSON(w, http.StatusOK, page)
}
