// Package cortex is a client for the Snowflake Cortex REST surface used by
// VIGIL: the named agent run endpoint (streamed as server-sent events),
// Cortex Search services, and Cortex LLM completion.
package cortex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrNotConfigured is returned when no host or credentials are configured.
var ErrNotConfigured = errors.New("cortex: not configured")

// Config describes the Snowflake account and agent to call.
type Config struct {
	Host      string // account host, e.g. "xy12345.snowflakecomputing.com"
	Account   string
	User      string
	Database  string
	Schema    string
	AgentName string
	Timeout   time.Duration
}

// Defaults for Config fields left empty.
const (
	DefaultDatabase  = "RISK_PLANNING_DB"
	DefaultSchema    = "CONSTRUCTION_RISK"
	DefaultAgentName = "VIGIL_RISK_AGENT"
	DefaultModel     = "mistral-large2"
)

// Client calls Cortex REST endpoints. It is safe for concurrent use.
type Client struct {
	cfg        Config
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the https://{host} base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Client. tokens supplies the bearer token for every request.
func New(cfg Config, tokens TokenSource, logger *slog.Logger, opts ...Option) *Client {
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.Schema == "" {
		cfg.Schema = DefaultSchema
	}
	if cfg.AgentName == "" {
		cfg.AgentName = DefaultAgentName
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	c := &Client{
		cfg:    cfg,
		tokens: tokens,
		// No client-level timeout: agent streams are bounded by the request context.
		httpClient: &http.Client{},
		logger:     logger.With("component", "cortex"),
	}
	if cfg.Host != "" {
		c.baseURL = "https://" + cfg.Host
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether the client has somewhere to send requests.
func (c *Client) Configured() bool {
	return c != nil && c.baseURL != "" && c.tokens != nil
}

// Database returns the configured database name.
func (c *Client) Database() string { return c.cfg.Database }

// post sends a JSON body and returns the response. The caller closes the body.
func (c *Client) post(ctx context.Context, path string, body any, accept string) (*http.Response, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	token, tokenType, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("cortex: token: %w", err)
	}

	buf, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("cortex: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("cortex: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Snowflake-Authorization-Token-Type", tokenType)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cortex: send request: %w", err)
	}
	return resp, nil
}

// StatusError is a non-200 response from Cortex.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("cortex: status %d: %s", e.StatusCode, e.Body)
}

func statusError(resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
}
