// Package ingest fetches company facts from SEC EDGAR.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mauv0809/thesis-engine/internal/facts"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL    = "https://data.sec.gov"
	DefaultTickersURL = "https://www.sec.gov/files/company_tickers.json"
	defaultTimeout    = 60 * time.Second
	// SEC allows 10 requests per second per client.
	DefaultRateLimit = 10
	maxAttempts      = 3
)

// ErrNotFound is returned when SEC has no document for the request.
var ErrNotFound = errors.New("not found")

// Client is a rate-limited SEC EDGAR client.
type Client struct {
	baseURL    string
	tickersURL string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	backoff    func(attempt int) time.Duration
	logger     zerolog.Logger

	mu     sync.Mutex
	status Status
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets the data.sec.gov base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithTickersURL sets the ticker mapping URL.
func WithTickersURL(u string) ClientOption {
	return func(c *Client) {
		c.tickersURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithRateLimit sets requests per second.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithBackoff sets the wait before a retry attempt.
func WithBackoff(fn func(attempt int) time.Duration) ClientOption {
	return func(c *Client) {
		c.backoff = fn
	}
}

// NewClient creates a client. SEC rejects requests without a descriptive
// User-Agent.
func NewClient(userAgent string, logger zerolog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		tickersURL: DefaultTickersURL,
		userAgent:  userAgent,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		backoff: func(attempt int) time.Duration {
			return time.Duration(1<<attempt) * time.Second
		},
		logger: logger.With().Str("component", "sec").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchCompanyFacts downloads and parses the companyfacts document.
func (c *Client) FetchCompanyFacts(ctx context.Context, cik string) (*facts.CompanyFacts, error) {
	id, padded, err := NormalizeCIK(cik)
	if err != nil {
		return nil, err
	}

	var resp CompanyFactsResponse
	u := fmt.Sprintf("%s/api/xbrl/companyfacts/CIK%s.json", c.baseURL, padded)
	if err := c.getJSON(ctx, u, &resp); err != nil {
		c.record(padded, err)
		return nil, fmt.Errorf("fetching company facts for %s: %w", padded, err)
	}
	c.record(padded, nil)
	if resp.CIK == 0 {
		resp.CIK = id
	}

	cf, skipped := ParseCompanyFacts(&resp)
	c.logger.Info().
		Str("cik", padded).
		Str("entity", cf.EntityName).
		Int("concepts", len(cf.Keys())).
		Int("skipped", skipped).
		Msg("company facts fetched")
	return cf, nil
}

// LookupCIK resolves a ticker symbol using SEC's ticker mapping.
func (c *Client) LookupCIK(ctx context.Context, ticker string) (TickerEntry, error) {
	want := strings.ToUpper(strings.TrimSpace(ticker))
	if want == "" {
		return TickerEntry{}, fmt.Errorf("empty ticker")
	}

	var entries map[string]TickerEntry
	if err := c.getJSON(ctx, c.tickersURL, &entries); err != nil {
		return TickerEntry{}, fmt.Errorf("fetching ticker mapping: %w", err)
	}
	for _, e := range entries {
		if strings.EqualFold(e.Ticker, want) {
			return e, nil
		}
	}
	return TickerEntry{}, fmt.Errorf("ticker %s: %w", want, ErrNotFound)
}

// Status returns a copy of the activity counters.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Client) record(cik string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.LastCIK = cik
	if err != nil {
		c.status.Failures++
		c.status.LastError = err.Error()
		return
	}
	c.status.LastError = ""
}

// getJSON performs a GET with retries and decodes the body into out.
func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			wait := c.backoff(attempt)
			c.logger.Warn().Err(lastErr).Int("attempt", attempt).Dur("backoff", wait).Msg("retrying request")
			c.mu.Lock()
			c.status.Retries++
			c.mu.Unlock()

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		body, err := c.doRequest(ctx, u)
		if err == nil {
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("parsing response: %w", err)
			}
			return nil
		}
		lastErr = err

		// Don't retry on context cancellation or a missing document
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, ErrNotFound) {
			return err
		}
	}
	return fmt.Errorf("all retries failed: %w", lastErr)
}

func (c *Client) doRequest(ctx context.Context, u string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	c.mu.Lock()
	c.status.Requests++
	c.mu.Unlock()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("rate limited (429)")
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
