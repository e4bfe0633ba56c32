package partnerapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/parceirolabs/auditrecon/internal/interfaces"
	"github.com/parceirolabs/auditrecon/internal/models"
)

const (
	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 10

	// DefaultUserAgent identifies the engine to the backend.
	DefaultUserAgent = "auditrecon/1.0"
)

// Client is a partner backend audit API client.
type Client struct {
	baseURL    string
	tokens     interfaces.TokenStore
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
	userAgent  string
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets the backend base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithUserAgent sets a custom user agent string.
func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// NewClient creates a new partner backend client. The bearer credential is
// read from tokens on every request, so a token refreshed or cleared by the
// session collaborator takes effect immediately.
func NewClient(tokens interfaces.TokenStore, opts ...ClientOption) *Client {
	c := &Client{
		tokens: tokens,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter:   rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		userAgent: DefaultUserAgent,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// triggerRequest is the body for individual and bulk audit triggers.
type triggerRequest struct {
	PartnerIDs  []string `json:"partnerIds,omitempty"`
	RequestedBy string   `json:"requestedBy,omitempty"`
}

// do performs a request against the API and decodes the job representation.
func (c *Client) do(ctx context.Context, method, path string, body any) (models.RawJob, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.New().String())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	if c.logger != nil {
		c.logger.Debug().
			Str("method", method).
			Str("path", path).
			Msg("Partner API request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, newAPIError(resp.StatusCode, path, respBody)
	}

	var raw models.RawJob
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return raw, nil
}

// TriggerAudit starts an audit job for a single partner.
func (c *Client) TriggerAudit(ctx context.Context, partnerID, requestedBy string) (models.RawJob, error) {
	path := "/partners/" + url.PathEscape(partnerID) + "/audit"
	return c.do(ctx, http.MethodPost, path, triggerRequest{RequestedBy: requestedBy})
}

// TriggerBulkAudit starts one audit job covering multiple partners.
func (c *Client) TriggerBulkAudit(ctx context.Context, partnerIDs []string, requestedBy string) (models.RawJob, error) {
	return c.do(ctx, http.MethodPost, "/partners/audit", triggerRequest{
		PartnerIDs:  partnerIDs,
		RequestedBy: requestedBy,
	})
}

// GetAuditJob retrieves the current representation of a job.
func (c *Client) GetAuditJob(ctx context.Context, jobID string) (models.RawJob, error) {
	return c.do(ctx, http.MethodGet, "/partners/audit/"+url.PathEscape(jobID), nil)
}

// ReprocessAuditJob restarts a job on the backend.
func (c *Client) ReprocessAuditJob(ctx context.Context, jobID string) (models.RawJob, error) {
	return c.do(ctx, http.MethodPost, "/partners/audit/"+url.PathEscape(jobID)+"/reprocess", nil)
}

// CancelAuditJob requests cancellation of a job. Cancellation may be
// asynchronous on the backend side; callers should re-fetch the job for the
// authoritative terminal state.
func (c *Client) CancelAuditJob(ctx context.Context, jobID string) (models.RawJob, error) {
	return c.do(ctx, http.MethodPost, "/partners/audit/"+url.PathEscape(jobID)+"/cancel", nil)
}
