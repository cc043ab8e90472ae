// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"testing"
	"time"
)

func TestParseRedrawPolicy(t *testing.T) {
	tests := []struct {
		in   string
		want RedrawPolicy
	}{
		{"fragment", RedrawFragment},
		{"interval", RedrawInterval},
		{"batch", RedrawBatch},
		{"", RedrawBatch},
		{"bogus", RedrawBatch},
	}
	for _, tt := range tests {
		if got := ParseRedrawPolicy(tt.in); got != tt.want {
			t.Errorf("ParseRedrawPolicy(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRedrawGateFragmentPolicy(t *testing.T) {
	gate := NewRedrawGate(RedrawFragment, 15, 30)

	for i := 0; i < 5; i++ {
		if !gate.Note() {
			t.Fatalf("Fragment policy must redraw on every fragment (fragment %d)", i)
		}
	}
	if gate.Pending() != 0 {
		t.Errorf("Pending = %d after redraws, want 0", gate.Pending())
	}
}

func TestRedrawGateBatchPolicy(t *testing.T) {
	gate := NewRedrawGate(RedrawBatch, 3, 120)
	// Pretend a flush just happened so the frame-rate floor stays quiet.
	gate.Reset()

	if gate.Note() {
		t.Error("First fragment should not trigger a batch redraw")
	}
	if gate.Note() {
		t.Error("Second fragment should not trigger a batch redraw")
	}
	if !gate.Note() {
		t.Error("Third fragment should trigger the batch redraw")
	}
	if gate.Pending() != 0 {
		t.Errorf("Pending = %d after batch redraw, want 0", gate.Pending())
	}
}

func TestRedrawGateBatchTimeFloor(t *testing.T) {
	gate := NewRedrawGate(RedrawBatch, 1000, 120)
	gate.Reset()

	if gate.Note() {
		t.Fatal("Fragment below batch size should not redraw immediately")
	}
	time.Sleep(15 * time.Millisecond) // past the 120fps floor (~8.3ms)
	if !gate.Note() {
		t.Error("Fragment after the frame interval should redraw")
	}
}

func TestRedrawGateIntervalPolicy(t *testing.T) {
	gate := NewRedrawGate(RedrawInterval, 0, 30)

	// The limiter starts with one token available.
	if !gate.Note() {
		t.Error("First fragment should consume the initial limiter token")
	}
	if gate.Note() {
		t.Error("Immediate second fragment should be rate limited")
	}
}

func TestRedrawGateFlush(t *testing.T) {
	gate := NewRedrawGate(RedrawBatch, 100, 30)
	gate.Reset()

	if gate.Flush() {
		t.Error("Flush with no pending fragments should report false")
	}

	gate.Note()
	if !gate.Flush() {
		t.Error("Flush with pending fragments should report true")
	}
	if gate.Pending() != 0 {
		t.Errorf("Pending = %d after flush, want 0", gate.Pending())
	}
}

func TestRedrawGateDefaults(t *testing.T) {
	gate := NewRedrawGate(RedrawBatch, 0, 0)
	if gate.batchSize != 15 {
		t.Errorf("Default batch size = %d, want 15", gate.batchSize)
	}
	if gate.Interval() != time.Second/30 {
		t.Errorf("Default interval = %v, want %v", gate.Interval(), time.Second/30)
	}
}
