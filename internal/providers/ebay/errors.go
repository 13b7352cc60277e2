package ebay

import (
	"errors"
	"fmt"
	"strings"
)

var ErrMissingCredentials = errors.New("Missing eBay credentials. Set EBAY_APP_ID/EBAY_CERT_ID (or EBAY_CLIENT_ID/EBAY_CLIENT_SECRET).") //nolint:staticcheck // surfaced to API clients verbatim

// StatusError is a non-2xx answer from the identity or browse endpoints.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 300 {
		body = body[:300] + "..."
	}
	if body == "" {
		return fmt.Sprintf("eBay %s failed: %d", e.Op, e.Status)
	}
	return fmt.Sprintf("eBay %s failed: %d %s", e.Op, e.Status, body)
}
