// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the interactive chat view for the TUI.
//
// This file implements redraw throttling for stream rendering. Fragments
// always mutate transcript state immediately; the gate only decides when
// the conversation pane is re-rendered, preventing excessive redraw work
// (>1000fps on fast streams) while keeping visual updates smooth.
package chat

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/time/rate"
)

// =============================================================================
// REDRAW POLICY
// =============================================================================

// RedrawPolicy selects how stream fragments are coalesced into redraws.
type RedrawPolicy string

const (
	// RedrawFragment re-renders on every received fragment.
	RedrawFragment RedrawPolicy = "fragment"

	// RedrawInterval re-renders at most once per fixed wall-clock period.
	RedrawInterval RedrawPolicy = "interval"

	// RedrawBatch re-renders once every N fragments, with a frame-rate
	// floor so slow streams still update.
	RedrawBatch RedrawPolicy = "batch"
)

// ParseRedrawPolicy maps a config string to a policy, defaulting to batch.
func ParseRedrawPolicy(s string) RedrawPolicy {
	switch RedrawPolicy(s) {
	case RedrawFragment, RedrawInterval, RedrawBatch:
		return RedrawPolicy(s)
	default:
		return RedrawBatch
	}
}

// =============================================================================
// REDRAW GATE
// =============================================================================

// RedrawGate batches fragment arrivals into redraw decisions.
//
// Thread-safety: all operations are protected by a mutex. The gate is
// normally consulted only from the Bubble Tea update loop, but keeping it
// safe lets tick commands and tests probe it freely.
type RedrawGate struct {
	mu      sync.Mutex
	policy  RedrawPolicy
	pending int
	last    time.Time

	batchSize   int
	minInterval time.Duration
	limiter     *rate.Limiter
}

// NewRedrawGate creates a gate for the given policy.
// batchSize applies to the batch policy; maxFPS caps the redraw rate for
// both the batch floor and the interval policy.
func NewRedrawGate(policy RedrawPolicy, batchSize, maxFPS int) *RedrawGate {
	if batchSize <= 0 {
		batchSize = 15
	}
	if maxFPS <= 0 || maxFPS > 120 {
		maxFPS = 30
	}

	interval := time.Second / time.Duration(maxFPS)
	return &RedrawGate{
		policy:      policy,
		batchSize:   batchSize,
		minInterval: interval,
		limiter:     rate.NewLimiter(rate.Every(interval), 1),
		last:        time.Now(),
	}
}

// Note records one fragment arrival and reports whether the conversation
// pane should be re-rendered now.
func (g *RedrawGate) Note() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.pending++

	switch g.policy {
	case RedrawFragment:
		g.resetLocked()
		return true
	case RedrawInterval:
		if g.limiter.Allow() {
			g.resetLocked()
			return true
		}
		return false
	default: // batch
		if g.pending >= g.batchSize || time.Since(g.last) >= g.minInterval {
			g.resetLocked()
			return true
		}
		return false
	}
}

// Flush reports whether deferred fragments are waiting and clears them.
// Called from the redraw tick so trailing fragments of a slow stream are
// rendered even when the policy threshold was never reached.
func (g *RedrawGate) Flush() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pending == 0 {
		return false
	}
	g.resetLocked()
	return true
}

// Pending returns the number of fragments since the last redraw.
func (g *RedrawGate) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending
}

// Reset clears accumulated state without triggering a redraw.
func (g *RedrawGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resetLocked()
}

func (g *RedrawGate) resetLocked() {
	g.pending = 0
	g.last = time.Now()
}

// Interval returns the tick period matching the gate's frame-rate cap.
func (g *RedrawGate) Interval() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.minInterval
}

// =============================================================================
// REDRAW TICK COMMAND
// =============================================================================

// redrawTickCmd schedules the next redraw tick while a stream is active.
func redrawTickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return RedrawTickMsg{Time: t}
	})
}
