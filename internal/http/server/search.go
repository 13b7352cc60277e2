package server

import (
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/matthewgall/epicdeals/internal/models"
	"github.com/matthewgall/epicdeals/internal/providers/ebay"
)

type searchResponse struct {
	Items               []models.Listing   `json:"items"`
	Total               int                `json:"total"`
	PopularBrands       map[string]string  `json:"popularBrands"`
	Marketplace         string             `json:"marketplace"`
	SupportsRefurbished bool               `json:"supportsRefurbished"`
	AppliedFilters      ebay.AppliedFacets `json:"appliedFilters"`
	Source              string             `json:"source,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseSearchRequest(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if req.Deals {
		if resp, ok := s.searchDealsPages(r, req); ok {
			respondJSON(w, http.StatusOK, resp)
			return
		}
	}

	result, err := s.ebay.Search(r.Context(), req)
	if err != nil {
		s.respondSearchError(w, err)
		return
	}

	items := result.Items
	if items == nil {
		items = []models.Listing{}
	}
	respondJSON(w, http.StatusOK, searchResponse{
		Items:               items,
		Total:               result.Total,
		PopularBrands:       ebay.PopularBrands,
		Marketplace:         req.Marketplace,
		SupportsRefurbished: ebay.SupportsRefurbished(req.Marketplace),
		AppliedFilters:      result.AppliedFacets,
	})
}

// searchDealsPages answers a deals search from the scraped deals pages. It
// reports false when the Browse API should be asked instead.
func (s *Server) searchDealsPages(r *http.Request, req ebay.SearchRequest) (*searchResponse, bool) {
	page, err := s.deals.Scrape(r.Context(), req.Limit, req.Offset)
	if err != nil {
		log.Printf("Warning: deals scrape failed: %v", err)
	}

	var items []models.Listing
	if page != nil {
		items = page.Listings()
	}
	if len(items) == 0 && s.ebayConfigured() {
		return nil, false
	}
	if items == nil {
		items = []models.Listing{}
	}

	brands := req.Brands
	if brands == nil {
		brands = []string{}
	}
	resp := &searchResponse{
		Items:               items,
		Total:               len(items),
		PopularBrands:       ebay.PopularBrands,
		Marketplace:         req.Marketplace,
		SupportsRefurbished: ebay.SupportsRefurbished(req.Marketplace),
		AppliedFilters: ebay.AppliedFacets{
			Conditions:    req.Conditions,
			Brands:        brands,
			CategoryID:    req.CategoryID,
			FreeShipping:  req.FreeShipping,
			BuyingOptions: req.BuyingOptions,
			PriceRange:    ebay.PriceRange{Min: req.Min, Max: req.Max},
		},
	}
	if page != nil {
		resp.Source = page.Source
	}
	return resp, true
}

func (s *Server) respondSearchError(w http.ResponseWriter, err error) {
	var statusErr *ebay.StatusError
	switch {
	case errors.As(err, &statusErr):
		status := statusErr.Status
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		respondJSON(w, status, map[string]string{
			"error":   fmt.Sprintf("eBay %s failed: %d", statusErr.Op, statusErr.Status),
			"details": statusErr.Body,
		})
	default:
		log.Printf("Warning: search failed: %v", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func (s *Server) ebayConfigured() bool {
	return strings.TrimSpace(s.config.EBay.ClientID) != "" && strings.TrimSpace(s.config.EBay.ClientSecret) != ""
}

func (s *Server) parseSearchRequest(r *http.Request) (ebay.SearchRequest, error) {
	query := r.URL.Query()

	req := ebay.SearchRequest{
		Query:         strings.TrimSpace(query.Get("q")),
		Conditions:    models.FacetRefurbished,
		CategoryID:    strings.TrimSpace(query.Get("categoryId")),
		FreeShipping:  query.Get("freeShipping") == "true",
		BuyingOptions: models.BuyingFixedPrice,
		Sort:          strings.TrimSpace(query.Get("sort")),
		Marketplace:   strings.TrimSpace(query.Get("marketplace")),
		Deals:         query.Get("deals") == "true",
	}
	if req.Marketplace == "" {
		req.Marketplace = s.config.EBay.Marketplace
	}

	var err error
	if req.Offset, err = intParam(query.Get("offset"), 0); err != nil || req.Offset < 0 {
		return req, errors.New("offset must be a non-negative integer")
	}
	if req.Limit, err = intParam(query.Get("limit"), ebay.MaxLimit); err != nil || req.Limit < 0 {
		return req, errors.New("limit must be a non-negative integer")
	}
	if req.Limit == 0 || req.Limit > ebay.MaxLimit {
		req.Limit = ebay.MaxLimit
	}

	if value := strings.TrimSpace(query.Get("conditions")); value != "" {
		facet := models.ConditionFacet(value)
		if !facet.Valid() {
			return req, fmt.Errorf("unknown conditions facet %q", value)
		}
		req.Conditions = facet
	}
	if value := strings.TrimSpace(query.Get("buyingOptions")); value != "" {
		option := models.BuyingOption(strings.ToUpper(value))
		if !option.Valid() {
			return req, fmt.Errorf("unknown buying option %q", value)
		}
		req.BuyingOptions = option
	}
	for _, brand := range strings.Split(query.Get("brands"), ",") {
		if brand = strings.TrimSpace(brand); brand != "" {
			req.Brands = append(req.Brands, brand)
		}
	}

	minPrice, err := priceParam(query.Get("min"))
	if err != nil {
		return req, fmt.Errorf("invalid min price: %w", err)
	}
	maxPrice, err := priceParam(query.Get("max"))
	if err != nil {
		return req, fmt.Errorf("invalid max price: %w", err)
	}
	if req.Min, req.Max, err = ebay.ValidatePriceRange(minPrice, maxPrice); err != nil {
		return req, err
	}

	return req, nil
}

func intParam(value string, fallback int) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	return strconv.Atoi(value)
}

func priceParam(value string) (*float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return nil, fmt.Errorf("price %q is not a finite number", value)
	}
	return &parsed, nil
}
