// Package qwen talks to the hosted multimodal model endpoint. The request
// shape is fixed; the response envelope is not under our control and is
// handled by ExtractText without assuming any stable schema.
package qwen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"fapiao/internal/config"
	"fapiao/internal/domain"
)

// Content is one entry of a user message: either an image data URL or text.
type Content struct {
	Image string `json:"image,omitempty"`
	Text  string `json:"text,omitempty"`
}

// message is a single request message.
type message struct {
	Role    string    `json:"role"`
	Content []Content `json:"content"`
}

// Client invokes the model endpoint over HTTP.
type Client struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

// NewClient creates a Client from the qwen config.
func NewClient(cfg *config.QwenConfig) *Client {
	return NewClientWithEndpoint(cfg, cfg.Endpoint)
}

// NewClientWithEndpoint creates a Client pointing at a custom endpoint (for testing).
func NewClientWithEndpoint(cfg *config.QwenConfig, endpoint string) *Client {
	timeout := cfg.Timeout()
	if timeout == 0 {
		timeout = 300 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		client:   &http.Client{Timeout: timeout},
	}
}

// Invoke sends one user message with the given content blocks and returns
// the raw response envelope. token overrides the configured API key when
// non-empty; the configured-key fallback serves callers that construct the
// Client directly, since the HTTP layer requires a per-request token. A
// non-2xx status yields *domain.UpstreamError.
func (c *Client) Invoke(ctx context.Context, token string, contents []Content) ([]byte, error) {
	reqBody := map[string]interface{}{
		"model": c.model,
		"input": map[string]interface{}{
			"messages": []message{
				{Role: "user", Content: contents},
			},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token == "" {
		token = c.apiKey
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling model endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.UpstreamError{Status: resp.StatusCode, Body: truncate(string(respBody), 500)}
	}

	return respBody, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
