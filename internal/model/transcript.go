// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"
)

// =============================================================================
// SCROLL STATE
// =============================================================================

// ScrollState tracks which part of the transcript is visible.
//
// While FollowLatest is true the visible window always ends at the newest
// message. Scrolling up leaves follow mode; scrolling forward past the last
// index re-enables it.
type ScrollState struct {
	FollowLatest   bool
	ScrollPosition int
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Transcript is the ordered, append-only message store for one session.
// It owns the message sequence exclusively; the stream consumer mutates at
// most the newest assistant message, through the transcript's methods.
type Transcript struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Messages  []*Message `json:"messages"`

	scroll  ScrollState
	heights *HeightCache
}

// NewTranscript creates an empty transcript. A non-empty systemPrompt is
// seeded as the first message and survives Clear.
func NewTranscript(systemPrompt string) *Transcript {
	now := time.Now()
	t := &Transcript{
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []*Message{},
		scroll:    ScrollState{FollowLatest: true},
		heights:   NewHeightCache(),
	}
	if systemPrompt != "" {
		t.Messages = append(t.Messages, NewSystemMessage(systemPrompt))
	}
	return t
}

// Append adds a message and keeps the window anchored to the end while
// following.
func (t *Transcript) Append(role Role, content string) *Message {
	msg := NewMessage(role, content)
	t.Messages = append(t.Messages, msg)
	t.UpdatedAt = time.Now()

	if t.scroll.FollowLatest {
		t.scroll.ScrollPosition = len(t.Messages) - 1
	}

	if t.Title == "" && role == RoleUser {
		t.Title = msg.Preview(50)
	}

	return msg
}

// StartAssistant appends a new streaming assistant message and returns it.
func (t *Transcript) StartAssistant() *Message {
	msg := NewAssistantMessage()
	t.Messages = append(t.Messages, msg)
	t.UpdatedAt = time.Now()

	if t.scroll.FollowLatest {
		t.scroll.ScrollPosition = len(t.Messages) - 1
	}

	return msg
}

// Active returns the newest message if it is a streaming assistant
// message, nil otherwise.
func (t *Transcript) Active() *Message {
	last := t.Last()
	if last != nil && last.Role == RoleAssistant && last.IsStreaming {
		return last
	}
	return nil
}

// AppendToActive appends a fragment to the streaming assistant message.
// Returns false if no message is currently streaming.
func (t *Transcript) AppendToActive(fragment string) bool {
	active := t.Active()
	if active == nil {
		return false
	}
	active.AppendFragment(fragment)
	t.UpdatedAt = time.Now()
	return true
}

// FinalizeActive completes the streaming assistant message. An interrupted
// generation leaves whatever content accumulated in place.
func (t *Transcript) FinalizeActive(snap *StatsSnapshot) {
	if active := t.Active(); active != nil {
		active.FinalizeStream(snap)
		t.UpdatedAt = time.Now()
	}
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	return len(t.Messages)
}

// Last returns the newest message, or nil for an empty transcript.
func (t *Transcript) Last() *Message {
	if len(t.Messages) == 0 {
		return nil
	}
	return t.Messages[len(t.Messages)-1]
}

// Clear removes all messages except a leading system prompt, resets scroll
// state, and drops cached heights.
func (t *Transcript) Clear() {
	var kept []*Message
	if len(t.Messages) > 0 && t.Messages[0].Role == RoleSystem {
		kept = []*Message{t.Messages[0]}
	}
	t.Messages = kept
	t.Title = ""
	t.UpdatedAt = time.Now()
	t.scroll = ScrollState{FollowLatest: true}
	t.heights.Clear()
}

// EstimateTokens returns a rough token estimate across all messages.
func (t *Transcript) EstimateTokens() int {
	total := 0
	for _, msg := range t.Messages {
		total += msg.EstimateTokens()
	}
	return total
}

// =============================================================================
// SCROLLING
// =============================================================================

// ScrollUp moves the window one message toward the start and leaves follow
// mode.
func (t *Transcript) ScrollUp() {
	if t.scroll.FollowLatest {
		t.scroll.FollowLatest = false
		t.scroll.ScrollPosition = len(t.Messages) - 1
		if t.scroll.ScrollPosition < 0 {
			t.scroll.ScrollPosition = 0
		}
	}
	if t.scroll.ScrollPosition > 0 {
		t.scroll.ScrollPosition--
	}
}

// ScrollDown moves the window one message toward the end. Reaching the
// last index re-enables follow mode.
func (t *Transcript) ScrollDown() {
	t.scroll.ScrollPosition++
	if t.scroll.ScrollPosition >= len(t.Messages)-1 {
		t.scroll.ScrollPosition = len(t.Messages) - 1
		if t.scroll.ScrollPosition < 0 {
			t.scroll.ScrollPosition = 0
		}
		t.scroll.FollowLatest = true
	}
}

// Scroll returns the current scroll state.
func (t *Transcript) Scroll() ScrollState {
	return t.scroll
}

// =============================================================================
// VISIBLE WINDOW
// =============================================================================

// Visible computes the contiguous slice of messages to render.
//
// Following: accumulate from the newest message backward while estimated
// heights fit availableHeight. Not following: accumulate forward from the
// scroll position. A non-empty transcript always yields at least one
// message, even when its estimate alone exceeds availableHeight.
func (t *Transcript) Visible(availableHeight, width int) []*Message {
	if len(t.Messages) == 0 {
		return nil
	}

	if t.scroll.FollowLatest {
		used := 0
		start := len(t.Messages)
		for i := len(t.Messages) - 1; i >= 0; i-- {
			h := t.heights.HeightFor(t.Messages[i], width)
			if used+h > availableHeight && start < len(t.Messages) {
				break
			}
			used += h
			start = i
		}
		return t.Messages[start:]
	}

	pos := t.scroll.ScrollPosition
	if pos < 0 {
		pos = 0
	}
	if pos >= len(t.Messages) {
		pos = len(t.Messages) - 1
	}

	used := 0
	end := pos
	for i := pos; i < len(t.Messages); i++ {
		h := t.heights.HeightFor(t.Messages[i], width)
		if used+h > availableHeight && end > pos {
			break
		}
		used += h
		end = i + 1
	}
	return t.Messages[pos:end]
}

// =============================================================================
// WIRE CONVERSION
// =============================================================================

// ToWire converts the transcript to transport form, dropping timestamps
// and local metrics.
func (t *Transcript) ToWire() []WireMessage {
	wire := make([]WireMessage, 0, len(t.Messages))
	for _, msg := range t.Messages {
		wire = append(wire, msg.ToWire())
	}
	return wire
}

// TranscriptFromWire reconstructs a transcript from transport forms,
// preserving role and content order.
func TranscriptFromWire(wire []WireMessage) *Transcript {
	t := NewTranscript("")
	for _, w := range wire {
		t.Append(Role(w.Role), w.Content)
	}
	return t
}
