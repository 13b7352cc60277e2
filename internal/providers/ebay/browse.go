package ebay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/matthewgall/epicdeals/internal/config"
	"github.com/matthewgall/epicdeals/internal/models"
)

const (
	browseSearchPath = "/buy/browse/v1/item_summary/search"
	tokenPath        = "/identity/v1/oauth2/token"
	// MaxLimit is the largest page the Browse API serves.
	MaxLimit          = 200
	defaultCategoryID = "293"
	placeholderImage  = "https://picsum.photos/400/400"
)

type Client struct {
	baseURL    string
	tokens     *TokenCache
	httpClient *http.Client
	timeout    time.Duration
	campaignID string
	rotationID string
}

type SearchRequest struct {
	Query         string
	Limit         int
	Offset        int
	Conditions    models.ConditionFacet
	Brands        []string
	CategoryID    string
	FreeShipping  bool
	BuyingOptions models.BuyingOption
	Sort          string
	Marketplace   string
	Deals         bool
	Min           *float64
	Max           *float64
}

type PriceRange struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

type AppliedFacets struct {
	Conditions    models.ConditionFacet `json:"conditions"`
	Brands        []string              `json:"brands"`
	CategoryID    string                `json:"categoryId"`
	FreeShipping  bool                  `json:"freeShipping"`
	BuyingOptions models.BuyingOption   `json:"buyingOptions"`
	PriceRange    PriceRange            `json:"priceRange"`
}

type SearchResult struct {
	Items         []models.Listing
	Total         int
	AppliedFacets AppliedFacets
}

type amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type image struct {
	ImageURL string `json:"imageUrl"`
}

type itemSummary struct {
	ItemID         string  `json:"itemId"`
	LegacyItemID   string  `json:"legacyItemId"`
	Title          string  `json:"title"`
	Price          *amount `json:"price"`
	MarketingPrice *struct {
		OriginalPrice *amount `json:"originalPrice"`
	} `json:"marketingPrice"`
	Image               *image  `json:"image"`
	ThumbnailImages     []image `json:"thumbnailImages"`
	AdditionalImages    []image `json:"additionalImages"`
	ItemWebURL          string  `json:"itemWebUrl"`
	ItemAffiliateWebURL string  `json:"itemAffiliateWebUrl"`
	Condition           string  `json:"condition"`
}

type searchResponse struct {
	Total         int           `json:"total"`
	ItemSummaries []itemSummary `json:"itemSummaries"`
}

// New builds a Browse API client. The token cache is shared across requests.
func New(cfg *config.EBayConfig, tokens *TokenCache) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.APIBaseURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{},
		timeout:    timeout,
		campaignID: cfg.AffiliateCampaignID,
		rotationID: cfg.AffiliateRotationID,
	}
}

// NewTokenCacheFor returns a token cache pointed at the identity endpoint under cfg.APIBaseURL.
func NewTokenCacheFor(cfg *config.EBayConfig, opts ...TokenOption) *TokenCache {
	base := strings.TrimRight(cfg.APIBaseURL, "/")
	if base == "" {
		base = "https://api.ebay.com"
	}
	opts = append([]TokenOption{WithTokenEndpoint(base + tokenPath)}, opts...)
	return NewTokenCache(cfg.ClientID, cfg.ClientSecret, opts...)
}

// Search runs one Browse query, applies the title and condition post-filter
// when a query is given, and retries once with a compound query when that
// filter leaves nothing.
func (c *Client) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	req = normalizeRequest(req)

	items, err := c.fetchListings(ctx, req, req.Query)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.Query) != "" && !req.Deals {
		filtered := PostFilter(items, req.Query)

		if len(filtered) == 0 {
			if compound, ok := CompoundQuery(req.Query); ok {
				retry, err := c.fetchListings(ctx, req, compound)
				if err != nil {
					return nil, err
				}
				filtered = PostFilter(retry, compound)
			}
		}
		items = filtered
	}

	return &SearchResult{
		Items:         items,
		Total:         len(items),
		AppliedFacets: appliedFacets(req),
	}, nil
}

func normalizeRequest(req SearchRequest) SearchRequest {
	if req.Limit <= 0 || req.Limit > MaxLimit {
		req.Limit = MaxLimit
	}
	if req.Offset < 0 {
		req.Offset = 0
	}
	if req.Conditions == "" {
		req.Conditions = models.FacetRefurbished
	}
	if req.BuyingOptions == "" {
		req.BuyingOptions = models.BuyingFixedPrice
	}
	if req.Marketplace == "" {
		req.Marketplace = "EBAY_US"
	}
	return req
}

func appliedFacets(req SearchRequest) AppliedFacets {
	brands := req.Brands
	if brands == nil {
		brands = []string{}
	}
	return AppliedFacets{
		Conditions:    req.Conditions,
		Brands:        brands,
		CategoryID:    req.CategoryID,
		FreeShipping:  req.FreeShipping,
		BuyingOptions: req.BuyingOptions,
		PriceRange:    PriceRange{Min: req.Min, Max: req.Max},
	}
}

// searchParams builds the Browse query string for req with q as the free text.
func searchParams(req SearchRequest, q string) url.Values {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(req.Limit))
	params.Set("offset", strconv.Itoa(req.Offset))
	params.Set("fieldgroups", "ASPECT_REFINEMENTS,EXTENDED")

	filter := BuildFilter(FilterOptions{
		Conditions:          req.Conditions,
		SupportsRefurbished: SupportsRefurbished(req.Marketplace),
		Min:                 req.Min,
		Max:                 req.Max,
		BuyingOptions:       req.BuyingOptions,
		FreeShipping:        req.FreeShipping,
		Currency:            CurrencyFor(req.Marketplace),
	})
	if filter != "" {
		params.Set("filter", filter)
	}

	q = strings.TrimSpace(q)
	if req.Deals || q == "" {
		category := req.CategoryID
		if category == "" {
			category = defaultCategoryID
		}
		params.Set("category_ids", category)
		params.Set("sort", "newlyListed")
	} else {
		params.Set("q", q)
	}

	if req.Sort != "" && !req.Deals {
		params.Set("sort", req.Sort)
	}
	if req.CategoryID != "" && !req.Deals {
		params.Set("category_ids", req.CategoryID)
	}

	if len(req.Brands) > 0 && req.CategoryID != "" {
		names := make([]string, 0, len(req.Brands))
		for _, brand := range req.Brands {
			if name := NormalizeBrand(brand); name != "" {
				names = append(names, name)
			}
		}
		if len(names) > 0 {
			params.Set("aspect_filter", fmt.Sprintf("categoryId:%s,Brand:{%s}", req.CategoryID, strings.Join(names, "|")))
		}
	}

	return params
}

func (c *Client) fetchListings(ctx context.Context, req SearchRequest, q string) ([]models.Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.baseURL + browseSearchPath + "?" + searchParams(req, q).Encode()

	status, body, err := c.get(ctx, endpoint, req.Marketplace)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		c.tokens.Invalidate()
		status, body, err = c.get(ctx, endpoint, req.Marketplace)
		if err != nil {
			return nil, err
		}
	}
	if status < 200 || status > 299 {
		return nil, &StatusError{Op: "search", Status: status, Body: string(body)}
	}

	var response searchResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	items := make([]models.Listing, 0, len(response.ItemSummaries))
	for _, summary := range response.ItemSummaries {
		items = append(items, c.toListing(summary))
	}
	return items, nil
}

func (c *Client) get(ctx context.Context, endpoint, marketplace string) (int, []byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-EBAY-C-MARKETPLACE-ID", marketplace)
	req.Header.Set("Accept", "application/json")

	// #nosec G704 -- request targets the configured eBay API host.
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return 0, nil, fmt.Errorf("reading response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) toListing(summary itemSummary) models.Listing {
	listing := models.Listing{
		ID:        firstNonEmpty(summary.ItemID, summary.LegacyItemID),
		Title:     summary.Title,
		Price:     parseAmount(summary.Price),
		ImageURL:  pickImage(summary),
		ItemURL:   AddAffiliateParams(firstNonEmpty(summary.ItemWebURL, summary.ItemAffiliateWebURL), c.campaignID, c.rotationID),
		Condition: summary.Condition,
	}
	if listing.ID == "" {
		listing.ID = uuid.NewString()
	}
	if summary.MarketingPrice != nil {
		if original := parseAmount(summary.MarketingPrice.OriginalPrice); original > 0 {
			listing.OriginalPrice = &original
		}
	}
	listing.ApplySavings()
	return listing
}

func pickImage(summary itemSummary) string {
	if summary.Image != nil && summary.Image.ImageURL != "" {
		return summary.Image.ImageURL
	}
	for _, candidates := range [][]image{summary.ThumbnailImages, summary.AdditionalImages} {
		if len(candidates) > 0 && candidates[0].ImageURL != "" {
			return candidates[0].ImageURL
		}
	}
	return placeholderImage
}

func parseAmount(value *amount) float64 {
	if value == nil {
		return 0
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value.Value), 64)
	if err != nil {
		return 0
	}
	return parsed
}

// AddAffiliateParams tags an ebay.com URL with the partner network parameters.
func AddAffiliateParams(rawURL, campaignID, rotationID string) string {
	if rawURL == "" || campaignID == "" || !strings.Contains(rawURL, "ebay.com") {
		return rawURL
	}
	separator := "?"
	if strings.Contains(rawURL, "?") {
		separator = "&"
	}
	return fmt.Sprintf("%s%smkcid=1&mkrid=%s&siteid=0&campid=%s&toolid=10001", rawURL, separator, rotationID, campaignID)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
