package kai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultBaseURL   = "http://localhost:3000"
	defaultUserAgent = "kai-client-go/" + Version

	tokenHeader = "x-storageapi-token"
	urlHeader   = "x-storageapi-url"
)

// Config wires authentication, base URL, retries, and telemetry for the
// client. StorageAPIToken and StorageAPIURL are the Keboola Storage API
// credentials the backend authenticates against; they are sent as headers
// on every /api request.
type Config struct {
	BaseURL         string
	StorageAPIToken string
	StorageAPIURL   string
	HTTPClient      *http.Client
	UserAgent       string
	Telemetry       TelemetryHooks
	Retry           RetryConfig
}

// Client talks to the Kai conversational backend.
type Client struct {
	baseURL    string
	token      string
	storageURL string
	httpClient *http.Client
	userAgent  string
	telemetry  TelemetryHooks
	retry      RetryConfig
}

// NewClient validates the configuration and returns a ready-to-use Client.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.StorageAPIToken) == "" {
		return nil, errors.New("kai: storage API token required")
	}
	if strings.TrimSpace(cfg.StorageAPIURL) == "" {
		return nil, errors.New("kai: storage API URL required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	normalized, err := normalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	retry := cfg.Retry
	if retry.MaxAttempts == 0 {
		retry = defaultRetryConfig()
	}
	return &Client{
		baseURL:    normalized,
		token:      strings.TrimSpace(cfg.StorageAPIToken),
		storageURL: strings.TrimSpace(cfg.StorageAPIURL),
		httpClient: httpClient,
		userAgent:  ua,
		telemetry:  cfg.Telemetry,
		retry:      retry.normalized(),
	}, nil
}

// BaseURL returns the normalized backend URL the client targets.
func (c *Client) BaseURL() string { return c.baseURL }

// NewChatID mints a fresh chat identifier.
func NewChatID() string { return uuid.NewString() }

// NewMessageID mints a fresh message identifier.
func NewMessageID() string { return uuid.NewString() }

func normalizeBaseURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errors.New("kai: base URL required")
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("kai: invalid base URL: %w", err)
	}
	if u.Scheme == "" {
		return "", errors.New("kai: base URL missing scheme (http/https)")
	}
	if u.Host == "" {
		return "", errors.New("kai: base URL missing host")
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	return strings.TrimSuffix(u.String(), "/"), nil
}

func (c *Client) newJSONRequest(ctx context.Context, method, path string, payload any) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path), body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	injectTraceparent(ctx, req)
	return req, nil
}

// authorize attaches the storage API credentials. The /ping endpoint is the
// only one called without them.
func (c *Client) authorize(req *http.Request) {
	req.Header.Set(tokenHeader, c.token)
	req.Header.Set(urlHeader, c.storageURL)
}

func (c *Client) prepare(req *http.Request) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
}

// send performs a single request attempt and decodes non-2xx responses into
// an APIError. The caller owns the response body on success.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	c.prepare(req)
	if c.telemetry.OnHTTPRequest != nil {
		c.telemetry.OnHTTPRequest(req)
	}
	c.telemetry.log(LogLevelInfo, "http_request", map[string]any{
		"method": req.Method,
		"url":    req.URL.String(),
	})
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if c.telemetry.OnHTTPResponse != nil {
		c.telemetry.OnHTTPResponse(req, resp, err, time.Since(start))
	}
	c.telemetry.metric("kai_http_request_latency_ms", float64(time.Since(start).Milliseconds()), map[string]string{
		"path": req.URL.Path,
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, decodeAPIError(resp)
	}
	return resp, nil
}

// doJSON performs an authenticated JSON call with retries on transient
// failures, decoding the response into out when out is non-nil. Streaming
// requests do not go through here; they are never retried.
func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any) error {
	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if delay := c.retry.backoffDelay(attempt); delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		req, err := c.newJSONRequest(ctx, method, path, payload)
		if err != nil {
			return err
		}
		c.authorize(req)
		resp, err := c.send(req)
		if err != nil {
			lastErr = err
			if retryableError(err) && attempt < c.retry.MaxAttempts {
				continue
			}
			return err
		}
		defer resp.Body.Close()
		if out == nil {
			io.Copy(io.Discard, resp.Body) //nolint:errcheck
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return lastErr
}

func (c *Client) buildURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

func injectTraceparent(ctx context.Context, req *http.Request) {
	span := trace.SpanFromContext(ctx)
	sc := span.SpanContext()
	if !sc.IsValid() {
		return
	}
	traceparent := fmt.Sprintf("00-%s-%s-01", sc.TraceID().String(), sc.SpanID().String())
	req.Header.Set("Traceparent", traceparent)
}
