package metaapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"census/internal/census"
)

const maxPayloadSize = 512 << 20

// Response is the outcome of fetching one item.
type Response struct {
	ID     string
	Status int
	// Payload is set only for 200 responses.
	Payload *census.Payload
	Latency time.Duration
}

// Fetcher retrieves one item's metadata.
type Fetcher interface {
	Fetch(ctx context.Context, id string) (Response, error)
}

// Client is the HTTP metadata API client.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

var _ Fetcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// New creates a metadata API client rooted at baseURL.
func New(baseURL, userAgent string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("metadata api base url required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse metadata api url: %w", err)
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  strings.TrimSpace(userAgent),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Fetch requests {base}/{id}. Transport and decode failures are errors; any
// non-200 status is returned without a payload and without an error.
func (c *Client) Fetch(ctx context.Context, id string) (Response, error) {
	out := Response{ID: id}
	id = strings.TrimSpace(id)
	if id == "" {
		return out, errors.New("item id must not be empty")
	}

	resp, latency, err := c.get(ctx, c.baseURL+"/"+url.PathEscape(id))
	out.Latency = latency
	if err != nil {
		return out, fmt.Errorf("fetch %s: %w", id, err)
	}
	defer resp.Body.Close()

	out.Status = resp.StatusCode
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return out, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadSize))
	if err != nil {
		return out, fmt.Errorf("read %s (latency=%v): %w", id, latency, err)
	}
	payload, err := census.DecodePayload(body)
	if err != nil {
		return out, fmt.Errorf("fetch %s: %w", id, err)
	}
	out.Payload = payload
	return out, nil
}

// Check reports whether the API answers at all. Any response below 500
// counts as reachable.
func (c *Client) Check(ctx context.Context) (int, error) {
	resp, latency, err := c.get(ctx, c.baseURL+"/")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode >= http.StatusInternalServerError {
		return resp.StatusCode, fmt.Errorf("metadata api returned %d (latency=%v)", resp.StatusCode, latency)
	}
	return resp.StatusCode, nil
}

func (c *Client) get(ctx context.Context, endpoint string) (*http.Response, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, latency, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	return resp, latency, nil
}
