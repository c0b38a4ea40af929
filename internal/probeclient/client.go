// Package probeclient provides the base HTTP client for provider adapters:
// request building with per-call auth placement, single-attempt execution
// within a fixed bound, and standardized classification of failures into the
// core taxonomy. There are no retries — a probe is one network attempt, and
// on failure control moves to the next candidate or operation.
package probeclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"keymate/internal/core"
	"keymate/internal/httpclient"
)

// Hooks receives observations about completed probes. Used to wire metrics
// without the client depending on a metrics backend.
type Hooks struct {
	// ObserveProbe is called once per network attempt with the terminal
	// status code (0 for transport-level failures) and elapsed time.
	ObserveProbe func(provider core.ProviderID, statusCode int, failure core.FailureClass, elapsed time.Duration)
}

// Config holds configuration for a provider probe client.
type Config struct {
	// Provider identifies the provider for error values and hooks.
	Provider core.ProviderID

	// BaseURL is the API base URL.
	BaseURL string

	// Timeout bounds each attempt. Zero means httpclient.DefaultProbeTimeout.
	Timeout time.Duration

	// Hooks receives per-attempt observations.
	Hooks Hooks
}

// Client is a single-attempt HTTP client for one provider.
type Client struct {
	httpClient *http.Client
	config     Config
}

// Request describes one provider API call. Auth material goes either in
// Headers or Query depending on the provider's convention — never both.
type Request struct {
	Method   string
	Endpoint string
	Query    url.Values
	Headers  map[string]string
}

// Response is a completed HTTP exchange. Body is fully read and the
// connection released before Response is returned.
type Response struct {
	StatusCode int
	Body       []byte
}

// New creates a probe client with the given configuration.
func New(cfg Config) *Client {
	hc := httpclient.DefaultConfig()
	if cfg.Timeout > 0 {
		hc.Timeout = cfg.Timeout
	}
	return &Client{
		httpClient: httpclient.NewHTTPClient(&hc),
		config:     cfg,
	}
}

// NewWithHTTPClient creates a probe client with a custom HTTP client.
// If client is nil, http.DefaultClient is used.
func NewWithHTTPClient(cfg Config, client *http.Client) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		httpClient: client,
		config:     cfg,
	}
}

// SetBaseURL updates the base URL.
func (c *Client) SetBaseURL(baseURL string) {
	c.config.BaseURL = baseURL
}

// BaseURL returns the current base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Do executes a single attempt. A non-nil error is always a *core.ProbeError
// describing a transport-level failure; HTTP error statuses are returned in
// the Response for the caller to classify (validation treats them as data,
// fetch operations convert them via core.ClassifyStatus).
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, core.NewProbeError(c.config.Provider, core.FailureTransport, 0, "failed to build request: "+err.Error(), err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		pe := classifyTransportError(c.config.Provider, err)
		c.observe(0, pe.Class, time.Since(start))
		return nil, pe
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := readBody(resp)
	if err != nil {
		pe := core.NewProbeError(c.config.Provider, core.FailureTransport, resp.StatusCode, "failed to read response: "+err.Error(), err)
		c.observe(resp.StatusCode, pe.Class, time.Since(start))
		return nil, pe
	}

	var failure core.FailureClass
	if resp.StatusCode != http.StatusOK {
		failure = core.ClassifyStatus(c.config.Provider, resp.StatusCode, body).Class
	}
	c.observe(resp.StatusCode, failure, time.Since(start))

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

// GetJSON executes a GET request and, on HTTP 200, unmarshals the body into
// result. Non-200 statuses come back as classified *core.ProbeError values.
func (c *Client) GetJSON(ctx context.Context, req Request, result interface{}) error {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return core.ClassifyStatus(c.config.Provider, resp.StatusCode, resp.Body)
	}
	if result != nil {
		if err := json.Unmarshal(resp.Body, result); err != nil {
			return core.NewProbeError(c.config.Provider, core.FailureParse, resp.StatusCode, "failed to unmarshal response: "+err.Error(), err)
		}
	}
	return nil
}

func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	u := c.config.BaseURL + req.Endpoint
	if encoded := req.Query.Encode(); encoded != "" {
		u += "?" + encoded
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, nil)
	if err != nil {
		return nil, err
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	// Forward request ID if present in context
	if requestID := core.GetRequestID(ctx); requestID != "" {
		httpReq.Header.Set("X-Request-ID", requestID)
	}

	return httpReq, nil
}

func (c *Client) observe(statusCode int, failure core.FailureClass, elapsed time.Duration) {
	if c.config.Hooks.ObserveProbe != nil {
		c.config.Hooks.ObserveProbe(c.config.Provider, statusCode, failure, elapsed)
	}
}

func readBody(resp *http.Response) ([]byte, error) {
	return io.ReadAll(resp.Body)
}

// classifyTransportError separates timeouts from connection-level failures.
func classifyTransportError(provider core.ProviderID, err error) *core.ProbeError {
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return core.NewTimeoutError(provider, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return core.NewTimeoutError(provider, err)
	}
	return core.NewTransportError(provider, err)
}
