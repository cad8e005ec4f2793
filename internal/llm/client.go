// Package llm is the client for the OpenAI-compatible narrative-analysis
// service (LM Studio in development). It owns the chat-completions transport,
// prompt construction, and the fenced-JSON parsing of model output.
//
// Every caller must treat this service as optional: transport failures are
// reported as ErrUnavailable (wrapped) and sessions degrade to rule-based
// behavior instead of failing.
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

	"github.com/rs/zerolog/log"

	"github.com/healthsphere/go-health-backend/internal/config"
)

// ErrUnavailable marks the narrative service as unreachable or misbehaving.
// Callers degrade rather than surface this as a fatal failure.
var ErrUnavailable = errors.New("narrative service unavailable")

// APIError is a non-success response from the narrative service. It carries
// the status code and a best-effort copy of the body.
type APIError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("narrative service returned %d: %s", e.StatusCode, truncate(e.Body, 200))
}

// Client calls the chat-completions endpoint of an OpenAI-compatible server.
// The zero value is not usable; construct with NewClient.
type Client struct {
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
	http        *http.Client
}

// NewClient builds a Client from configuration. The underlying http.Client
// carries the configured per-request timeout; callers additionally pass a
// context so user cancellation aborts in-flight calls.
func NewClient(cfg config.LLMConfig) *Client {
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		http:        &http.Client{Timeout: cfg.Timeout},
	}
}

// chatRequest is the wire shape of a chat-completions call.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends one prompt and returns the model's reply text. maxTokens
// and temperature <= 0 fall back to the client defaults.
//
// Error semantics:
//   - context cancellation is returned as-is (callers must not retry it)
//   - connection failures wrap ErrUnavailable
//   - non-2xx statuses return *APIError wrapping ErrUnavailable
func (c *Client) Complete(ctx context.Context, system, prompt string, maxTokens int, temperature float64) (string, error) {
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	if temperature <= 0 {
		temperature = c.temperature
	}
	if system == "" {
		system = "You are a helpful assistant."
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Stream:      false,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		log.Warn().Err(err).Str("url", c.baseURL).Msg("narrative service unreachable")
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
		log.Warn().Int("status", resp.StatusCode).Msg("narrative service error")
		return "", fmt.Errorf("%w: %s", ErrUnavailable, apiErr)
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: response missing choices", ErrUnavailable)
	}

	log.Debug().
		Dur("latency", time.Since(start)).
		Int("prompt_bytes", len(prompt)).
		Msg("narrative completion")

	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

// truncate caps s at max bytes for error messages and logs.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
