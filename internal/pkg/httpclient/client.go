package httpclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client wraps resty for calls to Paymentwall APIs.
type Client struct {
	r *resty.Client
}

// New creates a new HTTP client with sensible defaults.
func New() *Client {
	r := resty.New().
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second)

	return &Client{r: r}
}

// WithTimeout sets a custom timeout.
func (c *Client) WithTimeout(d time.Duration) *Client {
	c.r.SetTimeout(d)
	return c
}

// WithRetry overrides the retry policy. A count of zero disables retries.
func (c *Client) WithRetry(count int, wait time.Duration) *Client {
	c.r.SetRetryCount(count).SetRetryWaitTime(wait).SetRetryMaxWaitTime(wait)
	return c
}

// WithHeader sets a custom header.
func (c *Client) WithHeader(key, value string) *Client {
	c.r.SetHeader(key, value)
	return c
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Status, e.Body)
}

// PostForm sends a POST request with form data and returns the response body.
func (c *Client) PostForm(ctx context.Context, url string, data map[string]string) ([]byte, error) {
	resp, err := c.r.R().SetContext(ctx).SetFormData(data).Post(url)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return resp.Body(), &StatusError{Status: resp.StatusCode(), Body: resp.String()}
	}
	return resp.Body(), nil
}

// Raw returns the underlying resty client for advanced usage.
func (c *Client) Raw() *resty.Client {
	return c.r
}
