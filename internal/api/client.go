// Package api is a typed client for the ACHARYA recruiting service's
// company-test endpoints. Every response is decoded into a record type and
// validated before callers see it.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout matches the per-request timeout of the scenario runner.
const DefaultTimeout = 10 * time.Second

// RequestIDHeader carries the run ID on every request.
const RequestIDHeader = "X-Request-Id"

type requestIDKey struct{}

// ContextWithRequestID returns a context whose requests carry id in the
// X-Request-Id header.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// Client talks to the service rooted at a base URL.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for per-request debug events.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client. A non-positive timeout selects DefaultTimeout.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login calls POST /api/login.
func (c *Client) Login(ctx context.Context, creds Credentials) (*LoginResponse, error) {
	const op = "login"
	body, err := c.do(ctx, op, http.MethodPost, "/api/login", "", creds)
	if err != nil {
		return nil, err
	}
	var resp LoginResponse
	if err := decode(op, body, &resp, resp.validate); err != nil {
		return nil, err
	}
	resp.Raw = body
	return &resp, nil
}

// AssignCompanyTest calls POST /api/recruiter/assign-company-test.
func (c *Client) AssignCompanyTest(ctx context.Context, token string, a Assignment) (*AssignResponse, error) {
	const op = "assign company test"
	body, err := c.do(ctx, op, http.MethodPost, "/api/recruiter/assign-company-test", token, a)
	if err != nil {
		return nil, err
	}
	var resp AssignResponse
	if err := decode(op, body, &resp, resp.validate); err != nil {
		return nil, err
	}
	resp.Raw = body
	return &resp, nil
}

// ListCompanyTests calls GET /api/candidate/company-tests.
func (c *Client) ListCompanyTests(ctx context.Context, token string) (*ListResponse, error) {
	const op = "list company tests"
	body, err := c.do(ctx, op, http.MethodGet, "/api/candidate/company-tests", token, nil)
	if err != nil {
		return nil, err
	}
	var resp ListResponse
	if err := decode(op, body, &resp, resp.validate); err != nil {
		return nil, err
	}
	resp.Raw = body
	return &resp, nil
}

// GetCompanyTest calls GET /api/candidate/company-tests/{id}.
func (c *Client) GetCompanyTest(ctx context.Context, token, id string) (*DetailResponse, error) {
	const op = "get company test"
	body, err := c.do(ctx, op, http.MethodGet, "/api/candidate/company-tests/"+url.PathEscape(id), token, nil)
	if err != nil {
		return nil, err
	}
	var resp DetailResponse
	if err := decode(op, body, &resp, resp.validate); err != nil {
		return nil, err
	}
	resp.Raw = body
	return &resp, nil
}

// SubmitCompanyTest calls POST /api/candidate/submit-company-test/{id}.
func (c *Client) SubmitCompanyTest(ctx context.Context, token, id string, answers []Answer) (*SubmitResponse, error) {
	const op = "submit company test"
	payload := map[string]any{"answers": answers}
	body, err := c.do(ctx, op, http.MethodPost, "/api/candidate/submit-company-test/"+url.PathEscape(id), token, payload)
	if err != nil {
		return nil, err
	}
	var resp SubmitResponse
	if err := decode(op, body, &resp, resp.validate); err != nil {
		return nil, err
	}
	resp.Raw = body
	return &resp, nil
}

// CompanyTestResults calls GET /api/recruiter/company-test-results/{candidate}.
func (c *Client) CompanyTestResults(ctx context.Context, token, candidate string) (*ResultsResponse, error) {
	const op = "company test results"
	body, err := c.do(ctx, op, http.MethodGet, "/api/recruiter/company-test-results/"+url.PathEscape(candidate), token, nil)
	if err != nil {
		return nil, err
	}
	var resp ResultsResponse
	if err := decode(op, body, &resp, resp.validate); err != nil {
		return nil, err
	}
	resp.Raw = body
	return &resp, nil
}

// do sends one request and returns the body of a 200 response.
func (c *Client) do(ctx context.Context, op, method, path, token string, payload any) ([]byte, error) {
	start := time.Now()

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, &Error{Kind: KindTransport, Op: op, Err: fmt.Errorf("encoding request body: %w", err)}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Op: op, Err: fmt.Errorf("building request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		req.Header.Set(RequestIDHeader, id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed", zap.String("op", op), zap.String("method", method),
			zap.String("path", path), zap.Error(err))
		return nil, &Error{Kind: KindTransport, Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Op: op, Err: fmt.Errorf("reading response body: %w", err)}
	}

	c.logger.Debug("request",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{
			Kind:       KindStatus,
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	return body, nil
}

// decode unmarshals body into v and runs its schema check.
func decode(op string, body []byte, v any, validate func() error) error {
	if err := json.Unmarshal(body, v); err != nil {
		return contractErr(op, "response body is not valid JSON for this endpoint: %w", err)
	}
	if err := validate(); err != nil {
		return contractErr(op, "%w", err)
	}
	return nil
}
