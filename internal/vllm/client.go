// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package vllm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/jeranaias/vllmchat-tui/internal/model"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the chat server client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeNotRunning
	ErrTypeTimeout
	ErrTypeRequestFailed
	ErrTypeInvalidResponse
	ErrTypeConnection
)

// Sentinel errors for easy checking.
var (
	ErrNotRunning = &ClientError{Type: ErrTypeNotRunning, Message: "server is not reachable"}
	ErrTimeout    = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
)

// IsNotRunning checks if an error indicates the server is unreachable.
func IsNotRunning(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeNotRunning
	}
	return errors.Is(err, ErrNotRunning)
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeTimeout
	}
	return errors.Is(err, ErrTimeout)
}

// IsRequestFailed checks if an error is a non-success response on request
// initiation.
func IsRequestFailed(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeRequestFailed
	}
	return false
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the chat server client.
type ClientConfig struct {
	// BaseURL of the OpenAI-compatible server (default: http://localhost:8000)
	BaseURL string

	// Timeout for non-streaming requests (default: 30s).
	// Streaming reads carry no timeout; a stalled stream blocks until
	// interrupt.
	Timeout time.Duration

	// DefaultModel to use if none specified
	DefaultModel string

	// ContextLength of the served model, used for max_tokens derivation
	// (default: 32768)
	ContextLength int

	// ProbeRetries is the attempt count for the startup availability
	// probe (default: 10)
	ProbeRetries int

	// ProbeDelay between probe attempts (default: 2s)
	ProbeDelay time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:       "http://localhost:8000",
		Timeout:       30 * time.Second,
		DefaultModel:  "Qwen/QwQ-32B-AWQ",
		ContextLength: 32768,
		ProbeRetries:  10,
		ProbeDelay:    2 * time.Second,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with an OpenAI-compatible chat server.
//
// Example:
//
//	client := vllm.NewClient()
//	if err := client.WaitForServer(ctx, nil); err != nil {
//	    log.Fatal("server not available:", err)
//	}
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
}

// NewClient creates a new client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a new client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	// Fill in defaults for any zero values
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:8000"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.DefaultModel == "" {
		config.DefaultModel = "Qwen/QwQ-32B-AWQ"
	}
	if config.ContextLength == 0 {
		config.ContextLength = 32768
	}
	if config.ProbeRetries == 0 {
		config.ProbeRetries = 10
	}
	if config.ProbeDelay == 0 {
		config.ProbeDelay = 2 * time.Second
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// CheckRunning verifies that the server is reachable.
func (c *Client) CheckRunning(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/v1/models", nil)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ErrNotRunning
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &ClientError{
			Type:    ErrTypeConnection,
			Message: "unexpected status from server: " + resp.Status,
		}
	}

	return nil
}

// ProbeProgress reports one probe attempt to the caller.
type ProbeProgress func(attempt, maxAttempts int)

// WaitForServer probes the server until it responds, retrying with a fixed
// delay. Returns an error when the attempt budget is exhausted. This is
// the only retry in the client; generation failures are never retried.
func (c *Client) WaitForServer(ctx context.Context, progress ProbeProgress) error {
	var lastErr error
	for attempt := 1; attempt <= c.config.ProbeRetries; attempt++ {
		if progress != nil {
			progress(attempt, c.config.ProbeRetries)
		}

		lastErr = c.CheckRunning(ctx)
		if lastErr == nil {
			return nil
		}

		if attempt < c.config.ProbeRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.config.ProbeDelay):
			}
		}
	}

	return &ClientError{
		Type:    ErrTypeNotRunning,
		Message: "server did not become available after " + itoa(c.config.ProbeRetries) + " attempts",
		Cause:   lastErr,
	}
}

// =============================================================================
// MODEL OPERATIONS
// =============================================================================

// ListModels retrieves all model identifiers served by the endpoint.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/v1/models", nil)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, ErrNotRunning
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ClientError{
			Type:    ErrTypeInvalidResponse,
			Message: "failed to list models: " + resp.Status,
		}
	}

	var result listModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}

	return result.Data, nil
}

// ServesModel checks whether the endpoint lists the given model.
func (c *Client) ServesModel(ctx context.Context, name string) bool {
	models, err := c.ListModels(ctx)
	if err != nil {
		return false
	}
	for _, m := range models {
		if m.ID == name {
			return true
		}
	}
	return false
}

// =============================================================================
// MAX TOKENS
// =============================================================================

// minCompletionTokens is the floor for the derived completion budget.
const minCompletionTokens = 512

// MaxTokensFor derives the completion token budget from the context
// length and a rough prompt estimate: ~4 characters per token plus 10 per
// message of structural overhead, 10 for the reply priming, and a safety
// margin of 50.
func (c *Client) MaxTokensFor(messages []model.WireMessage) int {
	promptTokens := 10
	for _, m := range messages {
		promptTokens += len(m.Content)/4 + 10
	}

	budget := c.config.ContextLength - promptTokens - 50
	if budget < minCompletionTokens {
		budget = minCompletionTokens
	}
	return budget
}

// =============================================================================
// STREAMING CHAT
// =============================================================================

// StreamCallback is called for each chunk received during streaming.
type StreamCallback func(chunk StreamChunk)

// ChatStream sends a streaming chat request and calls the callback for
// each chunk. The callback is called synchronously in the order chunks are
// received. Returns when streaming is complete or an error occurs.
func (c *Client) ChatStream(ctx context.Context, chatModel string, messages []model.WireMessage, callback StreamCallback) error {
	if chatModel == "" {
		chatModel = c.config.DefaultModel
	}

	reqBody := ChatRequest{
		Model:     chatModel,
		Messages:  messages,
		Stream:    true,
		MaxTokens: c.MaxTokensFor(messages),
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	// Use a client without timeout for streaming; cancellation comes from
	// the context only
	streamClient := &http.Client{}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := streamClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return ErrTimeout
		}
		return ErrNotRunning
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Try to read the error message from the body
		var serverErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&serverErr); err == nil && serverErr.Error.Message != "" {
			return &ClientError{
				Type:    ErrTypeRequestFailed,
				Message: serverErr.Error.Message,
			}
		}
		return &ClientError{
			Type:    ErrTypeRequestFailed,
			Message: "stream request failed: " + resp.Status,
		}
	}

	reader := NewStreamReader(resp.Body)
	return reader.Process(ctx, callback)
}

// ChatStreamChan sends a streaming chat request and returns a channel of
// chunks. The channel is closed when streaming is complete or an error
// occurs. Errors are delivered as chunks with the Error field set.
func (c *Client) ChatStreamChan(ctx context.Context, chatModel string, messages []model.WireMessage) <-chan StreamChunk {
	ch := make(chan StreamChunk)

	go func() {
		defer close(ch)

		err := c.ChatStream(ctx, chatModel, messages, func(chunk StreamChunk) {
			select {
			case ch <- chunk:
			case <-ctx.Done():
				return
			}
		})

		if err != nil {
			select {
			case ch <- StreamChunk{Error: err, Done: true}:
			case <-ctx.Done():
			}
		}
	}()

	return ch
}

// =============================================================================
// UTILITY METHODS
// =============================================================================

// GetConfig returns the client configuration.
func (c *Client) GetConfig() *ClientConfig {
	return c.config
}

// SetModel updates the default model.
func (c *Client) SetModel(chatModel string) {
	c.config.DefaultModel = chatModel
}

// GetDefaultModel returns the current default model.
func (c *Client) GetDefaultModel() string {
	return c.config.DefaultModel
}

// itoa formats a small non-negative integer without fmt.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
