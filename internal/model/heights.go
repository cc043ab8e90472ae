// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "strings"

// =============================================================================
// HEIGHT ESTIMATION
// =============================================================================

// frameOverhead accounts for the frame, border, and title rows each
// rendered message carries in addition to its wrapped content.
const frameOverhead = 3

// EstimateHeight returns an approximate rendered line count for content at
// the given width. This is a wrapping heuristic, not exact terminal wrap:
// explicit newlines plus a length-based wrap estimate plus frame overhead.
// Under- and over-estimation are both tolerated by the scroll window.
func EstimateHeight(content string, width int) int {
	wrapWidth := width - 10
	if wrapWidth < 40 {
		wrapWidth = 40
	}
	return strings.Count(content, "\n") + len(content)/wrapWidth + frameOverhead
}

// =============================================================================
// HEIGHT CACHE
// =============================================================================

// heightKey identifies one estimate. Content is part of the key, so a
// mutating (streaming) message would mint a new entry per fragment; the
// cache therefore only admits finalized messages.
type heightKey struct {
	role    Role
	content string
	width   int
}

// HeightCache memoizes height estimates per (role, content, width).
// Streaming messages are estimated on the fly and never stored, which
// bounds the cache to one entry per finalized message per width.
type HeightCache struct {
	entries map[heightKey]int
}

// NewHeightCache creates an empty height cache.
func NewHeightCache() *HeightCache {
	return &HeightCache{
		entries: make(map[heightKey]int),
	}
}

// HeightFor returns the estimated height of a message at the given width,
// consulting the cache for finalized messages.
func (c *HeightCache) HeightFor(m *Message, width int) int {
	if m.IsStreaming {
		return EstimateHeight(m.DisplayContent(), width)
	}

	key := heightKey{role: m.Role, content: m.Content, width: width}
	if h, ok := c.entries[key]; ok {
		return h
	}

	h := EstimateHeight(m.Content, width)
	c.entries[key] = h
	return h
}

// Len returns the number of cached entries.
func (c *HeightCache) Len() int {
	return len(c.entries)
}

// Clear drops all cached entries.
func (c *HeightCache) Clear() {
	c.entries = make(map[heightKey]int)
}
