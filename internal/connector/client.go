package connector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"github.com/yourorg/datalens/internal/circuitbreaker"
	"golang.org/x/time/rate"
)

// maxBodySize caps upstream payloads read into memory.
const maxBodySize = 16 << 20

// newRetryClient creates a new HTTP client with retry capabilities.
// Transport errors and 5xx responses are retried; the final response is
// passed through so callers can inspect its status.
func newRetryClient() *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 3
	c.RetryWaitMin = 500 * time.Millisecond
	c.RetryWaitMax = 3 * time.Second
	c.Logger = nil
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return c
}

// NewHTTPClient returns the retrying client connectors use by default.
func NewHTTPClient() *http.Client {
	return newRetryClient().StandardClient()
}

// upstream performs guarded GET requests against one provider.
type upstream struct {
	connector string
	client    *http.Client
	breaker   *circuitbreaker.CircuitBreaker
	limiter   *rate.Limiter
	headers   map[string]string
}

func newUpstream(connector string, opts Options, headers map[string]string) *upstream {
	client := opts.HTTPClient
	if client == nil {
		client = NewHTTPClient()
	}
	return &upstream{
		connector: connector,
		client:    client,
		breaker:   opts.Breaker,
		limiter:   opts.Limiter,
		headers:   headers,
	}
}

// circuitOpen reports whether the breaker currently rejects calls.
func (u *upstream) circuitOpen() error {
	if u.breaker == nil {
		return nil
	}
	return u.breaker.Allow()
}

// get fetches rawURL and returns the body of a 2xx response.
// Every failure is returned as *FetchError.
func (u *upstream) get(ctx context.Context, rawURL string) ([]byte, error) {
	if err := u.circuitOpen(); err != nil {
		return nil, &FetchError{Connector: u.connector, Err: err}
	}
	if u.limiter != nil {
		if err := u.limiter.Wait(ctx); err != nil {
			return nil, &FetchError{Connector: u.connector, Err: fmt.Errorf("rate limiter: %w", err)}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{Connector: u.connector, Err: fmt.Errorf("error creating request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range u.headers {
		req.Header.Set(k, v)
	}

	logrus.WithFields(logrus.Fields{"connector": u.connector, "url": redact(rawURL)}).Debug("Fetching upstream data")
	resp, err := u.client.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = redact(urlErr.URL)
		}
		u.recordFailure(err)
		return nil, &FetchError{Connector: u.connector, Err: fmt.Errorf("error fetching data: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		u.recordFailure(err)
		return nil, &FetchError{Connector: u.connector, StatusCode: resp.StatusCode, Err: fmt.Errorf("error reading response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// The provider body stays in the logs, callers only see the status.
		logrus.WithFields(logrus.Fields{
			"connector": u.connector,
			"url":       redact(rawURL),
			"status":    resp.StatusCode,
			"body":      truncate(body, 256),
		}).Warn("Upstream returned an error response")

		err := fmt.Errorf("API error: %s", http.StatusText(resp.StatusCode))
		// Only provider side trouble counts against the breaker. Any other
		// answer shows the provider is up.
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			u.recordFailure(err)
		} else {
			u.recordSuccess()
		}
		return nil, &FetchError{Connector: u.connector, StatusCode: resp.StatusCode, Err: err}
	}

	u.recordSuccess()
	return body, nil
}

func (u *upstream) recordFailure(err error) {
	if u.breaker == nil || errors.Is(err, context.Canceled) {
		return
	}
	u.breaker.RecordFailure(err)
}

func (u *upstream) recordSuccess() {
	if u.breaker != nil {
		u.breaker.RecordSuccess()
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// redact hides credentials in logged URLs.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	for _, k := range []string{"apikey", "api_key"} {
		if q.Has(k) {
			q.Set(k, "REDACTED")
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// parseError wraps a payload decoding failure.
func (u *upstream) parseError(err error) error {
	return &FetchError{Connector: u.connector, Err: fmt.Errorf("error decoding response: %w", err)}
}
