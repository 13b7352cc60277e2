package ebaydeals

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/matthewgall/epicdeals/internal/config"
	"golang.org/x/time/rate"
)

// Fetcher retrieves the raw markup of one deals page.
type Fetcher interface {
	FetchPage(ctx context.Context, pageURL string) (string, error)
}

// PageStatusError is a non-2xx answer for a deals page.
type PageStatusError struct {
	URL    string
	Status int
}

func (e *PageStatusError) Error() string {
	return fmt.Sprintf("deals page %s returned %d", e.URL, e.Status)
}

type HTTPFetcher struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
	limiter    *rate.Limiter
}

func NewHTTPFetcher(cfg *config.DealsConfig) *HTTPFetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}
	return &HTTPFetcher{
		httpClient: &http.Client{},
		userAgent:  cfg.UserAgent,
		timeout:    timeout,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

func (f *HTTPFetcher) FetchPage(ctx context.Context, pageURL string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for rate limiter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	f.setBrowserHeaders(req)

	// #nosec G704 -- request targets the configured deals pages.
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching deals page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &PageStatusError{URL: pageURL, Status: resp.StatusCode}
	}

	reader, err := decodedBody(resp)
	if err != nil {
		return "", fmt.Errorf("decoding deals page: %w", err)
	}
	body, err := io.ReadAll(io.LimitReader(reader, 16<<20))
	if err != nil {
		return "", fmt.Errorf("reading deals page: %w", err)
	}
	return string(body), nil
}

func (f *HTTPFetcher) setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Accept-Encoding", "gzip, br")
}

// decodedBody unwraps the content encodings requested in setBrowserHeaders.
func decodedBody(resp *http.Response) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		return gzipReader, nil
	case "br":
		return brotli.NewReader(resp.Body), nil
	default:
		return resp.Body, nil
	}
}
