package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"ocrdocs-backend/internal/shared/telemetry"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 120 * time.Second
	// replies larger than this are not summaries
	maxResponseBytes = 4 << 20
)

// APIError is a non-2xx reply or an error object from the API.
type APIError struct {
	Status  int
	Type    string
	Message string
}

func (e *APIError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("openai status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("openai status %d: %s (%s)", e.Status, e.Message, e.Type)
}

// Client implements summarize.Model over the Chat Completions endpoint.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at a compatible API root.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithHTTPClient replaces the transport, e.g. for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient requires both the key and model. The request timeout comes from
// OPENAI_TIMEOUT_SECONDS and defaults to two minutes.
func NewClient(apiKey, model string, opts ...Option) (*Client, error) {
	switch {
	case strings.TrimSpace(model) == "":
		return nil, errors.New("LLM_MODEL is required for the openai summarizer")
	case strings.TrimSpace(apiKey) == "":
		return nil, errors.New("OPENAI_API_KEY is required for the openai summarizer")
	}
	c := &Client{
		apiKey:  apiKey,
		model:   strings.TrimSpace(model),
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: timeoutFromEnv()},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func timeoutFromEnv() time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(os.Getenv("OPENAI_TIMEOUT_SECONDS")))
	if err != nil || secs <= 0 {
		return defaultTimeout
	}
	return time.Duration(secs) * time.Second
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float32  `json:"temperature,omitempty"`
}

type completionReply struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Summarize asks the model for a minLength..maxLength word summary of chunk.
func (c *Client) Summarize(ctx context.Context, chunk string, minLength, maxLength int) (string, error) {
	messages := BuildSummaryPrompt(chunk, minLength, maxLength)
	reply, status, err := c.complete(ctx, completionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature(),
	})
	if err != nil {
		return "", err
	}
	if reply.Error != nil || status >= http.StatusBadRequest {
		apiErr := &APIError{Status: status, Message: http.StatusText(status)}
		if reply.Error != nil {
			apiErr.Type, apiErr.Message = reply.Error.Type, reply.Error.Message
		}
		return "", apiErr
	}
	if len(reply.Choices) == 0 {
		return "", errors.New("openai reply missing choices")
	}
	summary := strings.TrimSpace(reply.Choices[0].Message.Content)
	if summary == "" {
		return "", errors.New("openai reply has empty content")
	}

	fields := map[string]any{"model": c.model, "prompt_hash": promptHash(messages)}
	if reply.Usage != nil {
		fields["prompt_tokens"] = reply.Usage.PromptTokens
		fields["completion_tokens"] = reply.Usage.CompletionTokens
	}
	telemetry.Debug("llm.summary", fields)
	return summary, nil
}

// complete posts one request and decodes the reply body whatever the status.
func (c *Client) complete(ctx context.Context, body completionRequest) (completionReply, int, error) {
	var reply completionReply
	payload, err := json.Marshal(body)
	if err != nil {
		return reply, 0, fmt.Errorf("encode openai request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return reply, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return reply, 0, fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return reply, resp.StatusCode, fmt.Errorf("read openai reply: %w", err)
	}
	if err := json.Unmarshal(raw, &reply); err != nil {
		return reply, resp.StatusCode, fmt.Errorf("parse openai reply (status %d): %w", resp.StatusCode, err)
	}
	return reply, resp.StatusCode, nil
}

// temperature pins sampling to 0; gpt-5 models reject the parameter.
func (c *Client) temperature() *float32 {
	if strings.HasPrefix(strings.ToLower(c.model), "gpt-5") {
		return nil
	}
	zero := float32(0)
	return &zero
}
