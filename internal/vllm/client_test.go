// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package vllm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/vllmchat-tui/internal/model"
)

func testClient(baseURL string) *Client {
	return NewClientWithConfig(&ClientConfig{
		BaseURL:      baseURL,
		Timeout:      time.Second,
		ProbeRetries: 3,
		ProbeDelay:   time.Millisecond,
	})
}

// =============================================================================
// HEALTH CHECK TESTS
// =============================================================================

func TestCheckRunning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	assert.NoError(t, client.CheckRunning(context.Background()))
}

func TestCheckRunningUnreachable(t *testing.T) {
	client := testClient("http://127.0.0.1:1")
	err := client.CheckRunning(context.Background())
	assert.True(t, IsNotRunning(err), "expected a not-running error, got %v", err)
}

func TestWaitForServerRetriesThenSucceeds(t *testing.T) {
	failures := 2
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failures > 0 {
			failures--
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	client := testClient(srv.URL)

	var attempts int
	err := client.WaitForServer(context.Background(), func(attempt, max int) {
		attempts = attempt
		assert.Equal(t, 3, max)
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWaitForServerExhaustsRetries(t *testing.T) {
	client := testClient("http://127.0.0.1:1")
	err := client.WaitForServer(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, IsNotRunning(err))
}

// =============================================================================
// MODEL LISTING TESTS
// =============================================================================

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"id":"Qwen/QwQ-32B-AWQ","object":"model"}]}`))
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	models, err := client.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "Qwen/QwQ-32B-AWQ", models[0].ID)

	assert.True(t, client.ServesModel(context.Background(), "Qwen/QwQ-32B-AWQ"))
	assert.False(t, client.ServesModel(context.Background(), "other-model"))
}

// =============================================================================
// MAX TOKENS TESTS
// =============================================================================

func TestMaxTokensFor(t *testing.T) {
	client := NewClientWithConfig(&ClientConfig{ContextLength: 32768})

	messages := []model.WireMessage{
		{Role: "system", Content: "be brief"},  // 8 chars -> 2 + 10
		{Role: "user", Content: "hello there"}, // 11 chars -> 2 + 10
	}

	// 32768 - (10 + 12 + 12) - 50
	assert.Equal(t, 32684, client.MaxTokensFor(messages))
}

func TestMaxTokensForFloor(t *testing.T) {
	client := NewClientWithConfig(&ClientConfig{ContextLength: 1024})

	huge := []model.WireMessage{
		{Role: "user", Content: string(make([]byte, 100000))},
	}
	assert.Equal(t, minCompletionTokens, client.MaxTokensFor(huge))
}

// =============================================================================
// STREAMING CHAT TESTS
// =============================================================================

func TestChatStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)

		var req ChatRequest
		require.NoError(t, jsonDecode(r, &req))
		assert.True(t, req.Stream)
		assert.NotZero(t, req.MaxTokens)
		// Only role and content cross the wire
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(sse(delta("Hel"), delta("lo"), "[DONE]")))
	}))
	defer srv.Close()

	client := testClient(srv.URL)

	var content string
	var fragments int
	err := client.ChatStream(context.Background(), "test-model",
		[]model.WireMessage{{Role: "user", Content: "hi"}},
		func(chunk StreamChunk) {
			content += chunk.Content
			if chunk.Content != "" {
				fragments++
			}
		})

	require.NoError(t, err)
	assert.Equal(t, "Hello", content)
	assert.Equal(t, 2, fragments)
}

func TestChatStreamNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"model overloaded","type":"server_error"}}`))
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	err := client.ChatStream(context.Background(), "", nil, func(StreamChunk) {
		t.Error("callback must not fire on a failed request")
	})

	require.Error(t, err)
	assert.True(t, IsRequestFailed(err))
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestChatStreamChanDeliversError(t *testing.T) {
	client := testClient("http://127.0.0.1:1")

	ch := client.ChatStreamChan(context.Background(), "", nil)
	var last StreamChunk
	for chunk := range ch {
		last = chunk
	}
	require.Error(t, last.Error)
	assert.True(t, last.Done)
}

// jsonDecode decodes a request body for assertions.
func jsonDecode(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
