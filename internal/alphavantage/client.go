// Package alphavantage wraps the Alpha Vantage NEWS_SENTIMENT endpoint.
// Responses are returned as raw JSON so the news normalizer can decode the
// feed payload itself.
package alphavantage

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

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the base URL for the Alpha Vantage API.
	DefaultBaseURL = "https://www.alphavantage.co"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// timeLayout is the YYYYMMDDTHHMM form the API expects for time_from/time_to.
	timeLayout = "20060102T1504"
)

// Client is an Alpha Vantage API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets requests per second; the free tier allows very few.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
		}
	}
}

// NewClient creates a new Alpha Vantage client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(1), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewsQuery selects NEWS_SENTIMENT results.
type NewsQuery struct {
	Tickers []string
	Topics  []string
	From    time.Time
	To      time.Time
	Limit   int
}

// APIError is returned for non-200 responses and for the error envelopes
// the API sends with status 200.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Alpha Vantage API error: %s (status: %d)", e.Message, e.StatusCode)
}

// GetNewsSentiment returns the raw NEWS_SENTIMENT JSON body.
func (c *Client) GetNewsSentiment(ctx context.Context, query NewsQuery) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	params := url.Values{}
	params.Set("function", "NEWS_SENTIMENT")
	params.Set("apikey", c.apiKey)
	params.Set("sort", "LATEST")
	if len(query.Tickers) > 0 {
		params.Set("tickers", strings.Join(query.Tickers, ","))
	}
	if len(query.Topics) > 0 {
		params.Set("topics", strings.Join(query.Topics, ","))
	}
	if !query.From.IsZero() {
		params.Set("time_from", query.From.UTC().Format(timeLayout))
	}
	if !query.To.IsZero() {
		params.Set("time_to", query.To.UTC().Format(timeLayout))
	}
	if query.Limit > 0 {
		params.Set("limit", strconv.Itoa(query.Limit))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/query?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	if c.logger != nil {
		c.logger.Debug().Strs("tickers", query.Tickers).Strs("topics", query.Topics).Msg("Alpha Vantage news request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}
	if msg := envelopeError(body); msg != "" {
		return "", &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	return string(body), nil
}

// envelopeError extracts the message of a 200 response that carries no feed.
func envelopeError(body []byte) string {
	var envelope map[string]interface{}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	if _, ok := envelope["feed"]; ok {
		return ""
	}
	for _, key := range []string{"Error Message", "Information", "Note"} {
		if msg, ok := envelope[key].(string); ok && msg != "" {
			return msg
		}
	}
	return ""
}
