package brave

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/matthewgall/epicdeals/internal/cache"
	"github.com/matthewgall/epicdeals/internal/config"
	"github.com/matthewgall/epicdeals/internal/models"
	"golang.org/x/time/rate"
)

const (
	requestCount = 8
	// MaxResults is how many web results are kept per query.
	MaxResults = 5
)

var ErrMissingAPIKey = errors.New("brave search api key is not configured")

// StatusError is a non-2xx answer from the search API.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("brave search failed: %d", e.Status)
	}
	return fmt.Sprintf("brave search failed: %d %s", e.Status, e.Body)
}

type Client struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	timeout    time.Duration
	limiter    *rate.Limiter
	cache      cache.Cache
	cacheTTL   time.Duration
}

type searchResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

func New(cfg *config.SearchConfig, cache cache.Cache, cacheTTL time.Duration) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}
	return &Client{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		endpoint:   cfg.URL,
		httpClient: &http.Client{},
		timeout:    timeout,
		limiter:    rate.NewLimiter(limit, MaxResults),
		cache:      cache,
		cacheTTL:   cacheTTL,
	}
}

func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Search asks for new-retail results for query and returns at most MaxResults.
func (c *Client) Search(ctx context.Context, query string) ([]models.WebResult, error) {
	if !c.Configured() {
		return nil, ErrMissingAPIKey
	}

	cacheKey := "web:" + strings.ToLower(strings.TrimSpace(query))
	cached, ok, err := cache.Lookup[[]models.WebResult](ctx, c.cache, models.ProviderBrave, cacheKey)
	if err != nil {
		log.Printf("Warning: reading cached search for %q: %v", query, err)
	} else if ok {
		return cached, nil
	}

	// the timeout covers the limiter wait as well as the request
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	params := url.Values{}
	params.Set("q", query+" buy new price")
	params.Set("count", strconv.Itoa(requestCount))
	params.Set("search_lang", "en")
	params.Set("country", "us")
	params.Set("result_filter", "web")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", c.apiKey)

	// #nosec G704 -- request targets the configured search endpoint.
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Status: resp.StatusCode, Body: summarizeBody(body)}
	}

	var payload searchResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	results := make([]models.WebResult, 0, MaxResults)
	for _, item := range payload.Web.Results {
		if len(results) == MaxResults {
			break
		}
		results = append(results, models.WebResult{
			Title:       item.Title,
			URL:         item.URL,
			Description: item.Description,
			Site:        hostname(item.URL),
		})
	}

	if err := cache.Store(ctx, c.cache, models.ProviderBrave, cacheKey, results, c.cacheTTL); err != nil {
		log.Printf("Warning: failed to cache search for %q: %v", query, err)
	}

	return results, nil
}

func hostname(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}

func summarizeBody(body []byte) string {
	text := strings.Join(strings.Fields(string(body)), " ")
	if len(text) > 300 {
		return text[:300] + "..."
	}
	return text
}
