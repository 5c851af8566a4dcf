// Package openai is a thin client for a chat-completion endpoint. It sends
// one user-role message per request and normalizes failures into the
// application's error taxonomy. No retries and no timeout policy beyond the
// transport default — that belongs to the calling layer.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	appErrors "conexiones-backend/pkg/errors"
)

// DefaultModel is used when the caller specifies none.
const DefaultModel = "gpt-4.1-mini"

const defaultEndpoint = "https://api.openai.com/v1/chat/completions"

// Client calls a chat-completion API with bearer-token authorization.
type Client struct {
	apiKey      string
	endpoint    string
	model       string
	temperature float64
	httpClient  *http.Client
	logger      *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the completion endpoint URL.
func WithEndpoint(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.endpoint = url
		}
	}
}

// WithModel overrides the default model identifier.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(c *Client) {
		c.temperature = t
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a completion client. An empty apiKey is allowed at
// construction; calls then fail with a configuration error, which lets the
// process run with the template strategy only.
func NewClient(apiKey string, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		apiKey:      apiKey,
		endpoint:    defaultEndpoint,
		model:       DefaultModel,
		temperature: 0.8,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether the client has a credential.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends the prompt as a single user message and returns the first
// completion's text.
func (c *Client) Complete(ctx context.Context, prompt, model string) (string, error) {
	if !c.Configured() {
		return "", appErrors.NewConfiguration("OPENAI_API_KEY is not set")
	}
	if model == "" {
		model = c.model
	}

	body, err := json.Marshal(completionRequest{
		Model:       model,
		Messages:    []message{{Role: "user", Content: prompt}},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", appErrors.NewInternal("failed to marshal completion request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", appErrors.NewInternal("failed to create completion request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", appErrors.NewProvider(fmt.Sprintf("completion request failed: %v", err), 0)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", appErrors.NewProvider("failed to read completion response", resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", appErrors.NewProvider(providerMessage(respBody, resp.StatusCode), resp.StatusCode)
	}

	var completion completionResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return "", appErrors.NewProvider("failed to decode completion response", resp.StatusCode)
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "", appErrors.NewEmptyResponse("completion contained no text")
	}

	c.logger.Debug("completion call",
		zap.String("model", model),
		zap.Duration("duration", time.Since(start)),
	)
	return completion.Choices[0].Message.Content, nil
}

// providerMessage extracts the provider-reported message from an error
// body, falling back to a generic message with the HTTP status.
func providerMessage(body []byte, status int) string {
	var payload errorResponse
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	return fmt.Sprintf("OpenAI API error (%d)", status)
}
