// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// =============================================================================
// STATS TRACKER
// =============================================================================

// minElapsed is the epsilon floor for rate computation. Elapsed time never
// enters the division below this value.
const minElapsed = 0.1

// Rate display constants.
const (
	// MaxExpectedRate is the rate that fills the proportion bar completely.
	MaxExpectedRate = 100
	// RateBarCells is the fixed width of the proportion bar.
	RateBarCells = 20
)

// Rate tier thresholds in tokens per second.
const (
	RateTierFast   = 70
	RateTierGood   = 40
	RateTierMedium = 20
)

// StatsTracker follows one generation: stream event count, elapsed time,
// and derived rate. The counter tracks stream events, not model tokens.
type StatsTracker struct {
	tokenCount int
	startTime  time.Time
	endTime    time.Time
	generating bool
	statusText string
}

// NewStatsTracker creates an idle tracker.
func NewStatsTracker() *StatsTracker {
	return &StatsTracker{
		statusText: "Ready",
	}
}

// Start marks the beginning of a generation and resets counters.
func (s *StatsTracker) Start() {
	s.tokenCount = 0
	s.startTime = time.Now()
	s.endTime = time.Time{}
	s.generating = true
	s.statusText = "Generating..."
}

// RecordFragment counts one received stream fragment.
func (s *StatsTracker) RecordFragment() {
	s.tokenCount++
}

// Finish marks the end of a generation and freezes the final snapshot
// values for status display.
func (s *StatsTracker) Finish() {
	s.endTime = time.Now()
	s.generating = false

	snap := s.Snapshot()
	s.statusText = "Done: " + formatInt(snap.TokenCount) + " tokens in " +
		formatDuration(snap.ElapsedSeconds) + " (" +
		formatInt(snap.TokensPerSecond) + " tok/s)"
}

// Fail marks the end of a failed generation.
func (s *StatsTracker) Fail(reason string) {
	s.endTime = time.Now()
	s.generating = false
	s.statusText = "Error: " + reason
}

// Generating reports whether a generation is in flight.
func (s *StatsTracker) Generating() bool {
	return s.generating
}

// TokenCount returns the current stream event count.
func (s *StatsTracker) TokenCount() int {
	return s.tokenCount
}

// elapsed returns seconds since Start, floored at minElapsed so the rate
// division never sees a non-positive denominator.
func (s *StatsTracker) elapsed() float64 {
	if s.startTime.IsZero() {
		return minElapsed
	}
	end := s.endTime
	if s.generating || end.IsZero() {
		end = time.Now()
	}
	secs := end.Sub(s.startTime).Seconds()
	if secs < minElapsed {
		return minElapsed
	}
	return secs
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// StatsSnapshot is an immutable view of the tracker, recomputed on every
// update tick.
type StatsSnapshot struct {
	TokenCount      int
	ElapsedSeconds  float64
	TokensPerSecond int
	Generating      bool
	StatusText      string
}

// Snapshot computes the current snapshot. Rate is tokens divided by the
// epsilon-floored elapsed time, truncated to an integer.
func (s *StatsTracker) Snapshot() StatsSnapshot {
	elapsed := s.elapsed()
	return StatsSnapshot{
		TokenCount:      s.tokenCount,
		ElapsedSeconds:  elapsed,
		TokensPerSecond: int(float64(s.tokenCount) / elapsed),
		Generating:      s.generating,
		StatusText:      s.statusText,
	}
}

// =============================================================================
// RATE DISPLAY
// =============================================================================

// RateTier buckets a rate for display coloring.
type RateTier int

const (
	TierSlow RateTier = iota
	TierMedium
	TierGood
	TierFast
)

// TierFor returns the display tier for a rate.
func TierFor(tokensPerSecond int) RateTier {
	switch {
	case tokensPerSecond >= RateTierFast:
		return TierFast
	case tokensPerSecond >= RateTierGood:
		return TierGood
	case tokensPerSecond >= RateTierMedium:
		return TierMedium
	default:
		return TierSlow
	}
}

// RateBarFill returns how many of the bar's cells are filled for a rate,
// as a proportion of MaxExpectedRate clamped to [0, RateBarCells].
func RateBarFill(tokensPerSecond int) int {
	percent := tokensPerSecond * 100 / MaxExpectedRate
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return RateBarCells * percent / 100
}
