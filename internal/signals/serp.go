package signals

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/karalisweb/leadaudit/internal/domain"
)

// SerpChecker corroborates paid-listing activity via an external search
// results inspection service. The check is costed, so callers can skip it.
type SerpChecker interface {
	PaidListings(ctx context.Context, siteDomain, brand string) (bool, error)
}

// HTTPSerpChecker calls the SERP inspection collaborator over HTTP.
type HTTPSerpChecker struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPSerpChecker creates a SERP checker against the given base URL.
func NewHTTPSerpChecker(baseURL, apiKey string, timeout time.Duration) *HTTPSerpChecker {
	return &HTTPSerpChecker{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type serpResponse struct {
	PaidListings bool `json:"paidListings"`
}

// PaidListings reports whether the brand's SERP shows paid placements.
func (c *HTTPSerpChecker) PaidListings(ctx context.Context, siteDomain, brand string) (bool, error) {
	endpoint := fmt.Sprintf("%s/v1/serp?domain=%s&brand=%s",
		c.baseURL, url.QueryEscape(siteDomain), url.QueryEscape(brand))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("building serp request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, domain.ExternalAPIError("serp", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, domain.ExternalAPIError("serp", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var body serpResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, domain.ExternalAPIError("serp", fmt.Errorf("decoding response: %w", err))
	}

	return body.PaidListings, nil
}
