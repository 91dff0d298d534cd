// Package amazon talks to the upstream product catalogue for the UK
// marketplace. It exposes a small client that fetches refresh candidates for
// a category and helpers for building tagged affiliate URLs.
//
// The client throttles outbound calls with a token-bucket limiter so that a
// refresh sweep over many categories cannot exceed the upstream request
// budget, and it never retries on its own: retry policy belongs to the
// refresh pipeline.
package amazon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// ErrSourceUnavailable is returned when the upstream catalogue cannot be
// reached or answers with a server-side failure. Callers treat it as
// transient and may retry the whole batch later.
var ErrSourceUnavailable = errors.New("product source unavailable")

// Candidate is one product row as returned by the upstream catalogue, before
// eligibility filtering. Optional attributes are pointers so that "absent"
// and "zero" stay distinguishable downstream.
type Candidate struct {
	ASIN        string   `json:"asin"`
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	ImageURL    string   `json:"image_url"`
	Price       *float64 `json:"price,omitempty"`
	Currency    string   `json:"currency,omitempty"`
	Rating      *float64 `json:"rating,omitempty"`
	ReviewCount int      `json:"review_count"`
	InStock     bool     `json:"in_stock"`
	BSRRank     *int     `json:"bsr_rank,omitempty"`
	BSRCategory string   `json:"bsr_category,omitempty"`
}

// Client fetches product candidates from the upstream catalogue.
type Client struct {
	// BaseURL is the catalogue endpoint, e.g. "https://catalog.internal/v1".
	BaseURL string
	// PartnerTag is the affiliate tag appended to product URLs.
	PartnerTag string
	// HTTP is the underlying HTTP client. Timeouts are configured here.
	HTTP *http.Client
	// Limiter throttles outbound requests across all goroutines sharing
	// this client.
	Limiter *rate.Limiter
	// Log is the client's structured logger.
	Log zerolog.Logger
}

// NewClient constructs a Client with the given endpoint, affiliate tag and
// request budget (requests per second, with the same burst).
func NewClient(baseURL, partnerTag string, rps float64, log zerolog.Logger) *Client {
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		BaseURL:    baseURL,
		PartnerTag: partnerTag,
		HTTP:       &http.Client{Timeout: 15 * time.Second},
		Limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		Log:        log,
	}
}

// FetchCandidates returns the candidate products for an upstream category ID,
// with every candidate URL already carrying the partner tag.
// The call blocks until the limiter grants a token or ctx is cancelled.
// Upstream 5xx responses and transport failures surface as
// ErrSourceUnavailable; 4xx responses are permanent and returned verbatim.
func (c *Client) FetchCandidates(ctx context.Context, amazonCategoryID string) ([]Candidate, error) {
	if err := c.Limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/categories/%s/products", c.BaseURL, url.PathEscape(amazonCategoryID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		c.Log.Warn().Err(err).Str("category", amazonCategoryID).Msg("catalogue request failed")
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		c.Log.Warn().Int("status", resp.StatusCode).Str("category", amazonCategoryID).Msg("catalogue server error")
		return nil, fmt.Errorf("%w: status %d", ErrSourceUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalogue: unexpected status %d for category %s", resp.StatusCode, amazonCategoryID)
	}

	var payload struct {
		Products []Candidate `json:"products"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("catalogue: decode response: %w", err)
	}

	// Candidates leave the client ready to serve: the stored product URL
	// carries the partner tag.
	for i := range payload.Products {
		payload.Products[i].URL = c.AffiliateURL(payload.Products[i].URL)
	}

	c.Log.Debug().
		Str("category", amazonCategoryID).
		Int("candidates", len(payload.Products)).
		Dur("took", time.Since(start)).
		Msg("fetched candidates")
	return payload.Products, nil
}

// AffiliateURL returns the product URL with the client's partner tag
// appended. A URL that fails to parse is returned unchanged.
func (c *Client) AffiliateURL(rawURL string) string {
	if c.PartnerTag == "" {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Set("tag", c.PartnerTag)
	u.RawQuery = q.Encode()
	return u.String()
}
