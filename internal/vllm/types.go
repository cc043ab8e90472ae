// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package vllm provides the HTTP client for OpenAI-compatible chat
// completion servers such as vLLM.
package vllm

import "github.com/jeranaias/vllmchat-tui/internal/model"

// =============================================================================
// REQUEST TYPES
// =============================================================================

// ChatRequest is the body sent to the chat completions endpoint.
type ChatRequest struct {
	Model     string              `json:"model"`
	Messages  []model.WireMessage `json:"messages"`
	Stream    bool                `json:"stream"`
	MaxTokens int                 `json:"max_tokens,omitempty"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// streamEvent is the JSON payload carried by one SSE data line.
type streamEvent struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// StreamChunk is one parsed event delivered to stream callbacks.
type StreamChunk struct {
	// Content is the incremental text fragment, empty for keep-alive or
	// role-only events.
	Content string

	// Done is set when the sentinel line or a finish reason arrives.
	Done bool

	// FinishReason from the server, if any ("stop", "length", ...).
	FinishReason string

	// Error is set on chunks delivered through ChatStreamChan when the
	// stream fails.
	Error error
}

// ModelInfo describes one model served by the endpoint.
type ModelInfo struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by"`
}

// listModelsResponse is the body of the models endpoint.
type listModelsResponse struct {
	Data []ModelInfo `json:"data"`
}

// apiError is the error body an OpenAI-compatible server returns on a
// non-success status.
type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
