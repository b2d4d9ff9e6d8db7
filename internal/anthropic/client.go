// Package anthropic is the gateway to the Anthropic messages API. It hides
// request shaping, web search tool attachment, rate limit retries and
// response text extraction behind a single Complete call.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/storeforge/storeforge/internal/metrics"
	"github.com/storeforge/storeforge/pkg/retry"
)

const (
	defaultBaseURL   = "https://api.anthropic.com/v1"
	defaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 8000
	apiVersion       = "2023-06-01"
	searchToolType   = "web_search_20250305"
)

// Config configures a Client. Zero values fall back to production defaults;
// only APIKey is required.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
	Retry     retry.Policy
}

// Client talks to the Anthropic messages endpoint.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Client from cfg.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultPolicy()
	}

	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     slog.Default().With("component", "anthropic"),
	}, nil
}

type messageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
	Tools     []tool    `json:"tools,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type tool struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type messageResponse struct {
	Content []contentBlock `json:"content"`
	Error   *apiError      `json:"error"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// RateLimitError signals a 429 from the API. It carries the server's
// Retry-After hint so the retry policy can honor it.
type RateLimitError struct {
	Wait time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("anthropic: rate limited (retry after %s)", e.Wait)
}

func (e *RateLimitError) Retryable() bool { return true }

func (e *RateLimitError) RetryAfter() time.Duration { return e.Wait }

// serverError covers 5xx responses, which are worth retrying.
type serverError struct {
	status int
	body   string
}

func (e *serverError) Error() string {
	return fmt.Sprintf("anthropic: server error %d: %s", e.status, e.body)
}

func (e *serverError) Retryable() bool { return true }

// Complete sends one system+user exchange and returns the concatenated text
// of the response. When webSearch is set the request carries the web search
// tool, letting the model ground its answer in live results.
func (c *Client) Complete(ctx context.Context, system, user string, webSearch bool) (string, error) {
	req := messageRequest{
		Model:     c.config.Model,
		MaxTokens: c.config.MaxTokens,
		System:    system,
		Messages:  []message{{Role: "user", Content: user}},
	}
	if webSearch {
		req.Tools = []tool{{Type: searchToolType, Name: "web_search"}}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("anthropic: marshal request: %w", err)
	}

	var text string
	attempt := 0
	err = retry.Do(ctx, c.config.Retry, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			metrics.GatewayRetriesTotal.WithLabelValues("anthropic").Inc()
			c.logger.Warn("retrying completion", "attempt", attempt)
		}
		var callErr error
		text, callErr = c.complete(ctx, payload)
		return callErr
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

func (c *Client) complete(ctx context.Context, payload []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("anthropic: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.config.APIKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("anthropic: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("anthropic: read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", &RateLimitError{Wait: retryAfter(resp.Header)}
	case resp.StatusCode >= 500:
		return "", &serverError{status: resp.StatusCode, body: truncate(string(body), 200)}
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("anthropic: unexpected status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var msg messageResponse
	if err := json.Unmarshal(body, &msg); err != nil {
		return "", fmt.Errorf("anthropic: decode response: %w", err)
	}
	if msg.Error != nil {
		return "", fmt.Errorf("anthropic: API error %s: %s", msg.Error.Type, msg.Error.Message)
	}

	// Tool use interleaves search blocks with text; only text blocks carry
	// the answer.
	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("anthropic: response contained no text blocks")
	}
	return sb.String(), nil
}

func retryAfter(h http.Header) time.Duration {
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
