package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Config holds the configuration for connecting to the Agentgate API.
type Config struct {
	APIURL      string // Base URL, e.g. "http://localhost:8080"
	AdminSecret string // Admin secret for block-list access; optional
}

// AgentgateClient is a pure HTTP client for the Agentgate API.
type AgentgateClient struct {
	cfg        Config
	httpClient *http.Client
}

// NewAgentgateClient creates a new client for the Agentgate API.
func NewAgentgateClient(cfg Config) *AgentgateClient {
	return &AgentgateClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// apiError represents an error response from the API.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// doRequest makes an HTTP request to the API and returns the response body.
func (c *AgentgateClient) doRequest(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	u, err := url.Parse(c.cfg.APIURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if c.cfg.AdminSecret != "" {
		req.Header.Set("X-Admin-Secret", c.cfg.AdminSecret)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	return json.RawMessage(respBody), nil
}

// Assess submits a transaction context for scoring.
func (c *AgentgateClient) Assess(ctx context.Context, tc map[string]any) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodPost, "/v1/assess", nil, tc)
}

// GetAssessment fetches a stored assessment by id.
func (c *AgentgateClient) GetAssessment(ctx context.Context, id string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/assessments/"+url.PathEscape(id), nil, nil)
}

// ListHighRisk lists unreviewed high-risk assessments.
func (c *AgentgateClient) ListHighRisk(ctx context.Context, limit int) (json.RawMessage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.doRequest(ctx, http.MethodGet, "/v1/assessments/high-risk", q, nil)
}

// GetReputation returns reputation data for one agent platform.
func (c *AgentgateClient) GetReputation(ctx context.Context, platform string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/reputation/"+url.PathEscape(platform), nil, nil)
}

// GetRiskStats returns aggregate assessment statistics.
func (c *AgentgateClient) GetRiskStats(ctx context.Context, since string) (json.RawMessage, error) {
	q := url.Values{}
	if since != "" {
		q.Set("since", since)
	}
	return c.doRequest(ctx, http.MethodGet, "/v1/risk/stats", q, nil)
}

// ListBlocked returns block-list entries. Requires the admin secret.
func (c *AgentgateClient) ListBlocked(ctx context.Context) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/admin/lists/block", nil, nil)
}

// RecordOutcome reports a settlement outcome for a transaction.
func (c *AgentgateClient) RecordOutcome(ctx context.Context, body map[string]any) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodPost, "/v1/outcomes", nil, body)
}
