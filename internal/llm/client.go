// Package llm provides a synchronous client for an OpenAI-compatible chat
// completion backend. Local servers (Ollama, llama.cpp, vLLM) differ in the
// response envelope they emit; the client tolerates both the standard
// choices array and the native single-message form.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"codewright/internal/logging"
)

// ErrBackendUnavailable marks a failure to obtain a completion. It is the
// one fatal error class: the agent loop aborts the task on it rather than
// reporting it back to the model.
var ErrBackendUnavailable = errors.New("model backend unavailable")

// Message is one turn of a conversation sent to the backend.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Config configures the backend client.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Client talks to an OpenAI-compatible chat completion endpoint.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

// NewClient creates a backend client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream"`
}

// chatResponse covers both response envelopes: the OpenAI choices array and
// the native chat-completion single message.
type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Message *Message `json:"message"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends the conversation and returns the assistant's reply text.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	start := time.Now()
	logging.APIDebug("Complete: model=%s turns=%d", c.model, len(messages))

	reqBody := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Stream:      false,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.APIError("Complete: request failed: %v", err)
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %v", ErrBackendUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		logging.APIError("Complete: status %d: %s", resp.StatusCode, body)
		return "", fmt.Errorf("%w: status %d: %s", ErrBackendUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: parsing response: %v", ErrBackendUnavailable, err)
	}

	if parsed.Error != nil {
		return "", fmt.Errorf("%w: API error: %s", ErrBackendUnavailable, parsed.Error.Message)
	}

	content, ok := extractContent(parsed)
	if !ok {
		return "", fmt.Errorf("%w: no completion in response", ErrBackendUnavailable)
	}

	logging.API("Complete: %v response_len=%d", time.Since(start), len(content))
	return content, nil
}

// extractContent pulls the reply out of whichever envelope the backend used.
func extractContent(resp chatResponse) (string, bool) {
	if len(resp.Choices) > 0 {
		return resp.Choices[0].Message.Content, true
	}
	if resp.Message != nil {
		return resp.Message.Content, true
	}
	return "", false
}

// CheckHealth probes the backend. Failure is reported, not fatal: local
// servers sometimes don't implement /models.
func (c *Client) CheckHealth(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/models", nil)
	if err != nil {
		return false
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode < 500
}

// SetModel changes the model used for completions.
func (c *Client) SetModel(model string) {
	c.model = model
}

// Model returns the current model.
func (c *Client) Model() string {
	return c.model
}
