package api

import (
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/rickgao/pricetables/internal/retry"
)

// Client performs GET requests against one price provider.
type Client struct {
	source     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	header     http.Header

	policy  retry.Policy
	limiter *rate.Limiter
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new provider client. source names the provider in
// logs, metrics and errors.
func NewClient(source, baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		source:  source,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: slog.Default(),
		header: make(http.Header),
		policy: retry.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Source returns the provider name.
func (c *Client) Source() string {
	return c.source
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetryPolicy sets the retry policy. The retry classifier is always
// replaced by the client's transport-failure check.
func WithRetryPolicy(p retry.Policy) ClientOption {
	return func(c *Client) {
		c.policy = p
	}
}

// WithRateLimit limits outbound requests to r per second with the given burst.
func WithRateLimit(r rate.Limit, burst int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(r, burst)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.header.Set(key, value)
	}
}
