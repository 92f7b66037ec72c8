// Package client provides an HTTP client for the twin's /admin endpoints.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/acharya-hq/smokecheck/internal/twin"
)

// AdminClient talks to a twin's /admin/* endpoints.
type AdminClient struct {
	baseURL string
	http    *http.Client
}

// New creates an AdminClient for the twin at baseURL with a 5-second timeout.
func New(baseURL string) *AdminClient {
	return &AdminClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// Health checks GET /admin/health. Returns (ok, response body or error message).
func (c *AdminClient) Health(ctx context.Context) (bool, string) {
	body, status, err := c.do(ctx, http.MethodGet, "/admin/health", nil)
	if err != nil {
		return false, err.Error()
	}
	if status == http.StatusOK {
		return true, body
	}
	return false, fmt.Sprintf("status %d: %s", status, body)
}

// Reset calls POST /admin/reset, dropping all tests, faults and logged requests.
func (c *AdminClient) Reset(ctx context.Context) (string, error) {
	return c.expectOK(ctx, "reset", http.MethodPost, "/admin/reset", nil)
}

// Requests returns the twin's request log, oldest first.
func (c *AdminClient) Requests(ctx context.Context) ([]twin.RequestLogEntry, error) {
	body, err := c.expectOK(ctx, "requests", http.MethodGet, "/admin/requests", nil)
	if err != nil {
		return nil, err
	}
	var entries []twin.RequestLogEntry
	if err := json.Unmarshal([]byte(body), &entries); err != nil {
		return nil, fmt.Errorf("decoding request log: %w", err)
	}
	return entries, nil
}

// SetFault injects a fault for f.Path.
func (c *AdminClient) SetFault(ctx context.Context, f twin.Fault) (string, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return "", err
	}
	return c.expectOK(ctx, "set fault", http.MethodPost, "/admin/faults", data)
}

// ClearFaults removes every injected fault.
func (c *AdminClient) ClearFaults(ctx context.Context) (string, error) {
	return c.expectOK(ctx, "clear faults", http.MethodDelete, "/admin/faults", nil)
}

func (c *AdminClient) expectOK(ctx context.Context, what, method, path string, payload []byte) (string, error) {
	body, status, err := c.do(ctx, method, path, payload)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("%s returned status %d: %s", what, status, body)
	}
	return body, nil
}

func (c *AdminClient) do(ctx context.Context, method, path string, payload []byte) (string, int, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return "", 0, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return strings.TrimSpace(string(body)), resp.StatusCode, nil
}
