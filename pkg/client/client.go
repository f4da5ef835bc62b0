// Package client talks to a groundlink daemon over its HTTP API.
package client

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

	"groundlink/pkg/log"
	"groundlink/pkg/models"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	defaultRetryMax     = 3
	defaultRetryWaitMin = 100 * time.Millisecond
	defaultRetryWaitMax = 2 * time.Second
	defaultTimeout      = 30 * time.Second
)

// ErrNotFound matches API errors for unknown stations or transfers.
var ErrNotFound = errors.New("not found")

// APIError is a non-2xx response from the daemon.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return "groundlink returned status " + http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("groundlink returned status %d: %s", e.StatusCode, e.Message)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Options tunes the client. Zero values select the defaults.
type Options struct {
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Timeout      time.Duration
}

// Client is a groundlink API client.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
}

// New returns a client for the daemon at baseURL.
func New(baseURL string, opts Options) *Client {
	if opts.RetryMax <= 0 {
		opts.RetryMax = defaultRetryMax
	}
	if opts.RetryWaitMin <= 0 {
		opts.RetryWaitMin = defaultRetryWaitMin
	}
	if opts.RetryWaitMax <= 0 {
		opts.RetryWaitMax = defaultRetryWaitMax
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	httpClient := CreateRetryableClient(opts.RetryMax, opts.RetryWaitMin, opts.RetryWaitMax)
	httpClient.HTTPClient.Timeout = opts.Timeout

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// CreateRetryableClient creates a retryable HTTP client that only retries
// when no response was received.
func CreateRetryableClient(retryMax int, retryWaitMin, retryWaitMax time.Duration) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = retryMax
	client.RetryWaitMin = retryWaitMin
	client.RetryWaitMax = retryWaitMax
	client.Logger = nil
	client.CheckRetry = customRetryPolicy
	return client
}

// customRetryPolicy retries connection and timeout errors but hands every
// HTTP response, including 4xx and 5xx, straight back to the caller.
func customRetryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if resp != nil {
		return false, nil
	}

	if err != nil {
		return true, nil //nolint:nilerr // retryablehttp reports the final error itself
	}

	return false, nil
}

// Stations lists every registered station.
func (c *Client) Stations(ctx context.Context) ([]models.StationInfo, error) {
	var out []models.StationInfo
	err := c.doJSON(ctx, http.MethodGet, "/stations", nil, &out)
	return out, err
}

// Station fetches one station.
func (c *Client) Station(ctx context.Context, id string) (models.StationInfo, error) {
	var out models.StationInfo
	err := c.doJSON(ctx, http.MethodGet, "/stations/"+url.PathEscape(id), nil, &out)
	return out, err
}

// Health lists the health of every station.
func (c *Client) Health(ctx context.Context) ([]models.HealthReport, error) {
	var out []models.HealthReport
	err := c.doJSON(ctx, http.MethodGet, "/health", nil, &out)
	return out, err
}

// StationHealth fetches the health of one station.
func (c *Client) StationHealth(ctx context.Context, id string) (models.HealthReport, error) {
	var out models.HealthReport
	err := c.doJSON(ctx, http.MethodGet, "/stations/"+url.PathEscape(id)+"/health", nil, &out)
	return out, err
}

// Route asks which path a transfer between from and to would take.
func (c *Client) Route(ctx context.Context, from, to string) (models.RouteInfo, error) {
	query := url.Values{"from": {from}, "to": {to}}
	var out models.RouteInfo
	err := c.doJSON(ctx, http.MethodGet, "/route?"+query.Encode(), nil, &out)
	return out, err
}

// Submit queues a transfer and returns its id.
func (c *Client) Submit(ctx context.Context, request models.SubmitRequest) (string, error) {
	var out models.SubmitResponse
	if err := c.doJSON(ctx, http.MethodPost, "/transfers", request, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// Transfer fetches the state of one transfer.
func (c *Client) Transfer(ctx context.Context, id string) (models.TransferState, error) {
	var out models.TransferState
	err := c.doJSON(ctx, http.MethodGet, "/transfers/"+url.PathEscape(id), nil, &out)
	return out, err
}

// Transfers lists tracked transfers, optionally only those with status.
func (c *Client) Transfers(ctx context.Context, status string) ([]models.TransferState, error) {
	path := "/transfers"
	if status != "" {
		path += "?" + url.Values{"status": {status}}.Encode()
	}
	var out []models.TransferState
	err := c.doJSON(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// Cancel withdraws a pending transfer.
func (c *Client) Cancel(ctx context.Context, id string) (bool, error) {
	var out models.CancelResponse
	err := c.doJSON(ctx, http.MethodPost, "/transfers/"+url.PathEscape(id)+"/cancel", nil, &out)
	return out.Cancelled, err
}

// Stop fails a transfer that is being processed.
func (c *Client) Stop(ctx context.Context, id string) (bool, error) {
	var out models.StopResponse
	err := c.doJSON(ctx, http.MethodPost, "/transfers/"+url.PathEscape(id)+"/stop", nil, &out)
	return out.Stopped, err
}

// doJSON sends body as JSON, when present, and decodes a 2xx response into result.
func (c *Client) doJSON(ctx context.Context, method, path string, body, result any) error {
	var payload io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(encoded)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Str("path", path).Msg("Failed to close response body")
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var decoded models.ErrorResponse
		if json.Unmarshal(respBody, &decoded) == nil {
			apiErr.Message = decoded.Error
		}
		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}
