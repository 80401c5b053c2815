package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

// Client talks to a running folio server.
type Client struct {
	baseURL   string
	healthURL string
	client    *http.Client
	logger    *slog.Logger
}

// Config holds client configuration
type Config struct {
	// BaseURL includes the API prefix, e.g. http://127.0.0.1:5005/api
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger
	// CACert trusts a self-signed server certificate.
	CACert   string
	Insecure bool // Skip TLS verification
}

// DefaultConfig returns default client configuration
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://127.0.0.1:5005/api",
		Timeout: 10 * time.Second,
	}
}

// New creates a new folio API client
func New(config Config) *Client {
	def := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = def.BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = def.Timeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	transport := &http.Transport{}
	if config.Insecure || config.CACert != "" {
		tlsConfig, err := setupClientTLS(config)
		if err != nil {
			config.Logger.Error("TLS setup failed", "error", err)
		} else {
			transport.TLSClientConfig = tlsConfig
		}
	}

	base := strings.TrimRight(config.BaseURL, "/")
	return &Client{
		baseURL:   base,
		healthURL: rootOf(base) + "/healthz",
		logger:    config.Logger,
		client: &http.Client{
			Timeout:   config.Timeout,
			Transport: transport,
		},
	}
}

// rootOf strips the path from an absolute URL.
func rootOf(u string) string {
	scheme := strings.Index(u, "://")
	if scheme < 0 {
		return u
	}
	if i := strings.Index(u[scheme+3:], "/"); i >= 0 {
		return u[:scheme+3+i]
	}
	return u
}

// IsReachable checks if the server is running and reachable
func (c *Client) IsReachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.healthURL, nil)
	if err != nil {
		c.logger.Debug("Failed to create request for reachability check", "error", err)
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("Server unreachable", "error", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	ok := resp.StatusCode == http.StatusOK
	c.logger.Debug("Server reachability check", "reachable", ok, "status", resp.StatusCode)
	return ok
}

// Projects fetches the categorized project list.
func (c *Client) Projects(ctx context.Context) ([]Project, error) {
	var out []Project
	if err := c.do(ctx, http.MethodGet, "/projects", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Project{}
	}
	return out, nil
}

// Heartbeat sends one liveness ping.
func (c *Client) Heartbeat(ctx context.Context) error {
	var out StatusResponse
	if err := c.do(ctx, http.MethodPost, "/heartbeat", nil, &out); err != nil {
		return err
	}
	if out.Status != "ok" {
		return fmt.Errorf("unexpected heartbeat status %q", out.Status)
	}
	return nil
}

// Contact submits a contact form message.
func (c *Client) Contact(ctx context.Context, req ContactRequest) (StatusResponse, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return StatusResponse{}, fmt.Errorf("marshal request: %w", err)
	}
	var out StatusResponse
	if err := c.do(ctx, http.MethodPost, "/contact", data, &out); err != nil {
		return StatusResponse{}, err
	}
	return out, nil
}

// setupClientTLS configures TLS settings for HTTP client
func setupClientTLS(config Config) (*tls.Config, error) {
	// #nosec G402 opt-in for local self-signed servers
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if config.Insecure {
		tlsConfig.InsecureSkipVerify = true
		return tlsConfig, nil
	}
	caCert, err := os.ReadFile(config.CACert)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caCert) {
		return nil, errors.New("failed to parse CA certificate")
	}
	tlsConfig.RootCAs = pool
	return tlsConfig, nil
}

// do performs a request and decodes a JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	url := c.baseURL + path
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rdr)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("HTTP request failed", "error", err, "url", url)
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return c.handleErrorResponse(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// handleErrorResponse handles HTTP error responses
func (c *Client) handleErrorResponse(resp *http.Response) error {
	var sr StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		c.logger.Error("Failed to decode error response", "status", resp.StatusCode)
		return &APIError{StatusCode: resp.StatusCode}
	}
	c.logger.Error("API request failed", "error", sr.Message, "status", resp.StatusCode)
	return &APIError{StatusCode: resp.StatusCode, Message: sr.Message}
}
