// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package vllm

import (
	"context"
	"strings"
	"testing"
)

// sse builds a stream body from data-line payloads.
func sse(payloads ...string) string {
	var b strings.Builder
	for _, p := range payloads {
		b.WriteString("data: ")
		b.WriteString(p)
		b.WriteString("\n\n")
	}
	return b.String()
}

func delta(content string) string {
	return `{"choices":[{"delta":{"content":"` + content + `"}}]}`
}

func collect(t *testing.T, body string) ([]StreamChunk, *StreamReader) {
	t.Helper()
	reader := NewStreamReader(strings.NewReader(body))
	var chunks []StreamChunk
	err := reader.Process(context.Background(), func(chunk StreamChunk) {
		chunks = append(chunks, chunk)
	})
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	return chunks, reader
}

// =============================================================================
// STREAM READER TESTS
// =============================================================================

func TestStreamFragmentsAccumulate(t *testing.T) {
	body := sse(delta("Hel"), delta("lo"), "[DONE]")
	_, reader := collect(t, body)

	if got := reader.Accumulated(); got != "Hello" {
		t.Errorf("Expected accumulated 'Hello', got %q", got)
	}
	if got := reader.TokenCount(); got != 2 {
		t.Errorf("Expected token count 2, got %d", got)
	}
}

func TestStreamMalformedLineSkipped(t *testing.T) {
	body := sse(delta("Hel"), `{not json`, delta("lo"), "[DONE]")
	_, reader := collect(t, body)

	if got := reader.Accumulated(); got != "Hello" {
		t.Errorf("Malformed line broke accumulation: got %q", got)
	}
	if got := reader.TokenCount(); got != 2 {
		t.Errorf("Expected token count 2, got %d", got)
	}
}

func TestStreamSentinelEndsStream(t *testing.T) {
	body := sse(delta("a"), "[DONE]", delta("never"))
	chunks, reader := collect(t, body)

	last := chunks[len(chunks)-1]
	if !last.Done {
		t.Error("Expected final chunk to be Done")
	}
	if reader.Accumulated() != "a" {
		t.Errorf("Content after sentinel was processed: %q", reader.Accumulated())
	}
}

func TestStreamBlankAndNonDataLinesSkipped(t *testing.T) {
	body := "\n\n: keep-alive comment\nevent: ping\n" + sse(delta("x"), "[DONE]")
	_, reader := collect(t, body)

	if got := reader.Accumulated(); got != "x" {
		t.Errorf("Expected 'x', got %q", got)
	}
	if got := reader.TokenCount(); got != 1 {
		t.Errorf("Expected token count 1, got %d", got)
	}
}

func TestStreamEmptyDeltaNotCounted(t *testing.T) {
	// Role-priming events carry no content and must not count
	body := sse(`{"choices":[{"delta":{"role":"assistant"}}]}`, delta("hi"), "[DONE]")
	_, reader := collect(t, body)

	if got := reader.TokenCount(); got != 1 {
		t.Errorf("Empty delta was counted: got %d", got)
	}
}

func TestStreamEndsOnSourceClosure(t *testing.T) {
	// No sentinel; the reader finishes cleanly at EOF
	body := sse(delta("partial"))
	chunks, reader := collect(t, body)

	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
	if reader.Accumulated() != "partial" {
		t.Errorf("Expected 'partial', got %q", reader.Accumulated())
	}
}

func TestStreamFinishReasonMarksDone(t *testing.T) {
	body := sse(`{"choices":[{"delta":{"content":"end"},"finish_reason":"stop"}]}`)
	chunks, _ := collect(t, body)

	if len(chunks) != 1 || !chunks[0].Done {
		t.Errorf("finish_reason did not mark the chunk done: %+v", chunks)
	}
	if chunks[0].FinishReason != "stop" {
		t.Errorf("Expected finish reason 'stop', got %q", chunks[0].FinishReason)
	}
}

func TestStreamContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reader := NewStreamReader(strings.NewReader(sse(delta("a"), "[DONE]")))
	err := reader.Process(ctx, func(StreamChunk) {})
	if err == nil {
		t.Error("Expected context error from cancelled Process")
	}
}

func TestStreamMissingChoicesSkipped(t *testing.T) {
	body := sse(`{"choices":[]}`, delta("ok"), "[DONE]")
	_, reader := collect(t, body)

	if got := reader.Accumulated(); got != "ok" {
		t.Errorf("Expected 'ok', got %q", got)
	}
}
