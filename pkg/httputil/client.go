package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Sentinel errors returned by [Client.Get].
var (
	ErrNotFound = errors.New("not found")
	ErrNetwork  = errors.New("network error")
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 60 * time.Second

// Client performs GET requests with default headers and retries.
type Client struct {
	http    *http.Client
	headers map[string]string
	policy  Policy
}

// NewClient returns a client sending headers with every request. hc may be
// nil.
func NewClient(hc *http.Client, headers map[string]string, policy Policy) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{http: hc, headers: headers, policy: policy}
}

// Get fetches url and returns the whole body. Network failures and 5xx
// responses are retried; a 404 yields [ErrNotFound].
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	var data []byte
	err := Retry(ctx, c.policy, func() error {
		body, err := c.do(ctx, url)
		if err != nil {
			return err
		}
		defer body.Close()
		data, err = io.ReadAll(body)
		if err != nil {
			return &RetryableError{Err: fmt.Errorf("%w: read %s: %v", ErrNetwork, url, err)}
		}
		return nil
	})
	return data, err
}

func (c *Client) do(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &RetryableError{Err: fmt.Errorf("%w: %v", ErrNetwork, err)}
	}
	if err := checkStatus(resp.StatusCode); err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	return resp.Body, nil
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusTooManyRequests || code >= 500:
		return &RetryableError{Err: fmt.Errorf("%w: status %d", ErrNetwork, code)}
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}
