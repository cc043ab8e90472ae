// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"
)

// =============================================================================
// HEIGHT ESTIMATION TESTS
// =============================================================================

func TestEstimateHeight(t *testing.T) {
	tests := []struct {
		name    string
		content string
		width   int
		want    int
	}{
		{"empty content", "", 80, 3},
		{"single short line", "hello", 80, 3},
		{"explicit newlines", "a\nb\nc", 80, 5},
		{"wrap at width", strings.Repeat("x", 140), 80, 5},
		{"narrow width floors at 40", strings.Repeat("x", 80), 20, 5},
		{"newlines plus wrap", "a\nb" + strings.Repeat("x", 137), 80, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateHeight(tt.content, tt.width); got != tt.want {
				t.Errorf("EstimateHeight(%q, %d) = %d, want %d", tt.content, tt.width, got, tt.want)
			}
		})
	}
}

func TestEstimateHeightDeterministic(t *testing.T) {
	content := "some content\nwith a newline"
	first := EstimateHeight(content, 80)
	for i := 0; i < 100; i++ {
		if got := EstimateHeight(content, 80); got != first {
			t.Fatalf("Estimate changed between calls: %d != %d", got, first)
		}
	}
}

// =============================================================================
// HEIGHT CACHE TESTS
// =============================================================================

func TestHeightCacheHit(t *testing.T) {
	cache := NewHeightCache()
	msg := NewAssistantMessage()
	msg.AppendFragment("finalized content")
	msg.FinalizeStream(nil)

	first := cache.HeightFor(msg, 80)
	second := cache.HeightFor(msg, 80)

	if first != second {
		t.Errorf("Cache returned different values: %d != %d", first, second)
	}
	if cache.Len() != 1 {
		t.Errorf("Expected 1 cache entry, got %d", cache.Len())
	}
}

func TestHeightCacheKeyedByWidth(t *testing.T) {
	cache := NewHeightCache()
	msg := NewUserMessage(strings.Repeat("x", 300))

	cache.HeightFor(msg, 80)
	cache.HeightFor(msg, 120)

	if cache.Len() != 2 {
		t.Errorf("Expected 2 entries for 2 widths, got %d", cache.Len())
	}
}

func TestHeightCacheSkipsStreamingMessages(t *testing.T) {
	cache := NewHeightCache()
	msg := NewAssistantMessage()

	// Every fragment changes content; none of these states may be cached
	for i := 0; i < 50; i++ {
		msg.AppendFragment("tok ")
		cache.HeightFor(msg, 80)
	}

	if cache.Len() != 0 {
		t.Errorf("Streaming states were cached: %d entries", cache.Len())
	}

	msg.FinalizeStream(nil)
	cache.HeightFor(msg, 80)
	if cache.Len() != 1 {
		t.Errorf("Expected 1 entry after finalize, got %d", cache.Len())
	}
}

func TestHeightCacheClear(t *testing.T) {
	cache := NewHeightCache()
	cache.HeightFor(NewUserMessage("a"), 80)
	cache.HeightFor(NewUserMessage("b"), 80)

	cache.Clear()

	if cache.Len() != 0 {
		t.Errorf("Expected empty cache after clear, got %d entries", cache.Len())
	}
}
