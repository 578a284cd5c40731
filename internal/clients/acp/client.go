// Package acp provides the HTTP client for the external auth control plane's
// source-mapping endpoint.
package acp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/rezilient/restore-request-service/internal/common"
	"github.com/rezilient/restore-request-service/internal/interfaces"
	"github.com/rezilient/restore-request-service/internal/models"
)

const (
	DefaultTimeout   = 5 * time.Second
	DefaultRateLimit = 10 // requests per second

	resolvePath = "/v1/source-mappings/resolve"
)

// Client implements interfaces.SourceMappingResolver against the external
// ACP. Upstream failures never surface as Go errors; they map to outage (or
// not_found for a definitive 404) so callers can choose the reason code.
type Client struct {
	baseURL       string
	internalToken string
	httpClient    *http.Client
	logger        *common.Logger
	limiter       *rate.Limiter
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithLogger sets the logger.
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout sets the absolute deadline applied to each resolve call.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithRateLimit sets the request rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// NewClient creates an ACP client.
func NewClient(baseURL, internalToken string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:       baseURL,
		internalToken: internalToken,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// resolveResponse is the ACP's wire shape for both hits and misses.
type resolveResponse struct {
	Mapping    *models.SourceMapping `json:"mapping,omitempty"`
	ReasonCode string                `json:"reason_code,omitempty"`
	Message    string                `json:"message,omitempty"`
}

// ResolveSourceMapping POSTs the lookup to the control plane. Timeouts and
// unexpected statuses map to outage; a 404 with the unknown-mapping reason
// maps to not_found.
func (c *Client) ResolveSourceMapping(ctx context.Context, req interfaces.SourceMappingRequest) models.SourceMappingResult {
	if err := c.limiter.Wait(ctx); err != nil {
		return models.SourceMappingResult{Kind: models.MappingOutage, Message: fmt.Sprintf("rate limit wait: %v", err)}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return models.SourceMappingResult{Kind: models.MappingOutage, Message: fmt.Sprintf("encode request: %v", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+resolvePath, bytes.NewReader(body))
	if err != nil {
		return models.SourceMappingResult{Kind: models.MappingOutage, Message: fmt.Sprintf("create request: %v", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.internalToken)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn().Err(err).Str("base_url", c.baseURL).Msg("ACP resolve failed")
		return models.SourceMappingResult{Kind: models.MappingOutage, Message: fmt.Sprintf("ACP request failed: %v", err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return models.SourceMappingResult{Kind: models.MappingOutage, Message: fmt.Sprintf("read ACP response: %v", err), StatusCode: resp.StatusCode}
	}

	c.logger.Debug().
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Str("tenant_id", req.TenantID).
		Msg("ACP resolve")

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var parsed resolveResponse
		if err := json.Unmarshal(data, &parsed); err != nil || parsed.Mapping == nil {
			return models.SourceMappingResult{Kind: models.MappingOutage, Message: "malformed ACP response", StatusCode: resp.StatusCode}
		}
		return models.SourceMappingResult{Kind: models.MappingFound, Mapping: parsed.Mapping}

	case resp.StatusCode == http.StatusNotFound:
		var parsed resolveResponse
		_ = json.Unmarshal(data, &parsed)
		if parsed.ReasonCode == "" || parsed.ReasonCode == string(models.ReasonBlockedUnknownSourceMapping) {
			return models.SourceMappingResult{Kind: models.MappingNotFound, Message: parsed.Message, StatusCode: resp.StatusCode}
		}
		return models.SourceMappingResult{Kind: models.MappingOutage, Message: parsed.Message, StatusCode: resp.StatusCode}

	default:
		return models.SourceMappingResult{
			Kind:       models.MappingOutage,
			Message:    fmt.Sprintf("ACP returned status %d", resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
	}
}
