// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"
)

// =============================================================================
// STATS TRACKER TESTS
// =============================================================================

func TestStatsTrackerStartResets(t *testing.T) {
	tracker := NewStatsTracker()
	tracker.Start()
	tracker.RecordFragment()
	tracker.RecordFragment()
	tracker.Finish()

	tracker.Start()

	if tracker.TokenCount() != 0 {
		t.Errorf("Start should reset token count, got %d", tracker.TokenCount())
	}
	if !tracker.Generating() {
		t.Error("Tracker should be generating after Start")
	}
}

func TestStatsRateEpsilonFloor(t *testing.T) {
	tracker := NewStatsTracker()
	tracker.Start()
	for i := 0; i < 1000; i++ {
		tracker.RecordFragment()
	}

	// Elapsed is near zero here; the floor keeps the rate finite
	snap := tracker.Snapshot()
	if snap.ElapsedSeconds < minElapsed {
		t.Errorf("Elapsed %f below floor %f", snap.ElapsedSeconds, minElapsed)
	}
	if snap.TokensPerSecond > 1000*10 {
		t.Errorf("Rate %d exceeds the floored maximum", snap.TokensPerSecond)
	}
}

func TestStatsSnapshotIdle(t *testing.T) {
	tracker := NewStatsTracker()
	snap := tracker.Snapshot()

	if snap.Generating {
		t.Error("Fresh tracker should not be generating")
	}
	if snap.TokenCount != 0 {
		t.Errorf("Expected 0 tokens, got %d", snap.TokenCount)
	}
	if snap.StatusText != "Ready" {
		t.Errorf("Expected 'Ready' status, got %q", snap.StatusText)
	}
}

func TestStatsFinishRecordsFinalSnapshot(t *testing.T) {
	tracker := NewStatsTracker()
	tracker.Start()
	tracker.RecordFragment()
	tracker.RecordFragment()
	tracker.Finish()

	snap := tracker.Snapshot()
	if snap.Generating {
		t.Error("Tracker should be idle after Finish")
	}
	if snap.TokenCount != 2 {
		t.Errorf("Expected 2 tokens, got %d", snap.TokenCount)
	}
	if !strings.HasPrefix(snap.StatusText, "Done:") {
		t.Errorf("Expected final status text, got %q", snap.StatusText)
	}
}

func TestStatsFailStatus(t *testing.T) {
	tracker := NewStatsTracker()
	tracker.Start()
	tracker.Fail("connection refused")

	snap := tracker.Snapshot()
	if snap.Generating {
		t.Error("Tracker should be idle after Fail")
	}
	if snap.StatusText != "Error: connection refused" {
		t.Errorf("Unexpected status text %q", snap.StatusText)
	}
}

// =============================================================================
// RATE DISPLAY TESTS
// =============================================================================

func TestTierFor(t *testing.T) {
	tests := []struct {
		rate int
		want RateTier
	}{
		{0, TierSlow},
		{19, TierSlow},
		{20, TierMedium},
		{39, TierMedium},
		{40, TierGood},
		{69, TierGood},
		{70, TierFast},
		{500, TierFast},
	}

	for _, tt := range tests {
		if got := TierFor(tt.rate); got != tt.want {
			t.Errorf("TierFor(%d) = %d, want %d", tt.rate, got, tt.want)
		}
	}
}

func TestRateBarFill(t *testing.T) {
	tests := []struct {
		rate int
		want int
	}{
		{0, 0},
		{50, 10},
		{100, 20},
		{250, 20}, // clamped to the max expected rate
		{-5, 0},   // clamped at zero
		{25, 5},
	}

	for _, tt := range tests {
		if got := RateBarFill(tt.rate); got != tt.want {
			t.Errorf("RateBarFill(%d) = %d, want %d", tt.rate, got, tt.want)
		}
	}
}
