package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rickgao/pricetables/internal/metrics"
	"github.com/rickgao/pricetables/internal/retry"
	"github.com/rickgao/pricetables/internal/version"
)

// APIError represents a non-2xx response from a provider.
type APIError struct {
	Source     string
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s api error %d: %s", e.Source, e.StatusCode, e.Message)
}

// IsRetryable returns true if the error should trigger a retry.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// transportError marks a failure to exchange a request with the provider.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

// isTransient reports whether err is a transport failure worth retrying.
// Validation and decode errors are not.
func isTransient(err error) bool {
	var te *transportError
	if errors.As(err, &te) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRetryable()
	}
	return false
}

// endpoint builds the full request URL.
func (c *Client) endpoint(path string, query url.Values) string {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}
	return fullURL
}

// doRequest performs a single GET request.
func (c *Client) doRequest(ctx context.Context, fullURL string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	for key, values := range c.header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordFetchAttempt(c.source, "transport_error", time.Since(start).Seconds())
		return nil, &transportError{err: fmt.Errorf("do request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordFetchAttempt(c.source, "transport_error", time.Since(start).Seconds())
		return nil, &transportError{err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode >= 400 {
		metrics.RecordFetchAttempt(c.source, fmt.Sprintf("http_%d", resp.StatusCode), time.Since(start).Seconds())
		return nil, &APIError{
			Source:     c.source,
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       body,
		}
	}

	metrics.RecordFetchAttempt(c.source, "ok", time.Since(start).Seconds())
	return body, nil
}

// get performs a GET request under the client's retry policy. Exhausting
// the attempts yields a *FetchExhaustedError.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.endpoint(path, query)

	policy := c.policy
	policy.Retryable = isTransient
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		c.logger.Debug("retrying request",
			"source", c.source,
			"attempt", attempt,
			"backoff", delay,
			"error", err,
		)
	}

	var body []byte
	err := policy.Do(ctx, func(ctx context.Context) error {
		b, err := c.doRequest(ctx, fullURL)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		var exhausted *retry.ExhaustedError
		if errors.As(err, &exhausted) {
			return nil, &FetchExhaustedError{
				Source:   c.source,
				URL:      redactURL(fullURL),
				Attempts: exhausted.Attempts,
				Err:      exhausted.Err,
			}
		}
		return nil, err
	}

	return body, nil
}

// secretParams are query parameters never echoed into errors or logs.
var secretParams = []string{"api_token", "x_cg_demo_api_key", "x_cg_pro_api_key"}

// redactURL masks credentials carried in the query string.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	changed := false
	for _, p := range secretParams {
		if q.Has(p) {
			q.Set(p, "REDACTED")
			changed = true
		}
	}
	if !changed {
		return raw
	}
	u.RawQuery = q.Encode()
	return u.String()
}
