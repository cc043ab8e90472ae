// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the interactive chat view for the TUI.
//
// This file defines all Bubble Tea message types used by the chat
// interface. Messages are organized into the following categories:
//   - Streaming: stream start, fragment delivery, completion, errors
//   - Server: availability checks and model listing
//   - Persistence: conversation save results and history summaries
//   - UI state: redraw ticks and config reloads
//
// All message types follow Bubble Tea conventions and are immutable.
package chat

import (
	"time"

	"github.com/jeranaias/vllmchat-tui/internal/config"
	"github.com/jeranaias/vllmchat-tui/internal/history"
	"github.com/jeranaias/vllmchat-tui/internal/vllm"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamStartMsg signals that a generation request was dispatched.
type StreamStartMsg struct {
	MessageID string
	StartTime time.Time
}

// StreamFragmentMsg delivers one incremental text fragment from the stream.
type StreamFragmentMsg struct {
	MessageID string
	Fragment  string
}

// StreamCompleteMsg signals that streaming finished cleanly (sentinel,
// finish_reason, or source closure).
type StreamCompleteMsg struct {
	MessageID string
}

// StreamErrorMsg signals a failure during request setup or streaming.
type StreamErrorMsg struct {
	MessageID string
	Err       error
}

// =============================================================================
// SERVER MESSAGES
// =============================================================================

// ServerStatusMsg reports inference server reachability.
type ServerStatusMsg struct {
	Running bool
	Err     error
}

// ModelsMsg delivers the list of models the server exposes.
type ModelsMsg struct {
	Models []vllm.ModelInfo
	Err    error
}

// =============================================================================
// PERSISTENCE MESSAGES
// =============================================================================

// SavedMsg reports the result of saving the current conversation.
type SavedMsg struct {
	ID  string
	Err error
}

// ExportedMsg reports the result of exporting the conversation to a file.
type ExportedMsg struct {
	Path string
	Err  error
}

// HistorySummaryMsg delivers aggregate generation statistics.
type HistorySummaryMsg struct {
	Summary *history.Summary
	Err     error
}

// =============================================================================
// UI STATE MESSAGES
// =============================================================================

// RedrawTickMsg drives throttled redraws while a stream is active.
type RedrawTickMsg struct {
	Time time.Time
}

// ConfigReloadedMsg is sent when the config watcher observes a change.
type ConfigReloadedMsg struct {
	Config *config.Config
}
