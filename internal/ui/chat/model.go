// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the interactive chat view for the TUI.
package chat

import (
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/vllmchat-tui/internal/config"
	"github.com/jeranaias/vllmchat-tui/internal/history"
	"github.com/jeranaias/vllmchat-tui/internal/model"
	"github.com/jeranaias/vllmchat-tui/internal/storage"
	"github.com/jeranaias/vllmchat-tui/internal/ui/components"
	"github.com/jeranaias/vllmchat-tui/internal/ui/styles"
	"github.com/jeranaias/vllmchat-tui/internal/vllm"
)

// =============================================================================
// LAYOUT CONSTANTS
// =============================================================================

const (
	// minConversationHeight is the floor for the conversation pane.
	minConversationHeight = 10

	// minContentWidth is the floor for message rendering width.
	minContentWidth = 60

	// chromeRows is the fixed height consumed by header, input area and
	// stats bar around the conversation pane.
	chromeRows = 8

	// inputRows is the height of the multi-line input editor.
	inputRows = 3
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat session. The update loop is
// the single writer of transcript state; the streaming goroutine only
// delivers messages through program.Send.
type Model struct {
	// Immutable collaborators
	cfg     *config.Config
	client  *vllm.Client
	store   *storage.ConversationStore
	histLog *history.Log
	theme   *styles.Theme
	keys    KeyMap

	// Conversation state
	transcript *model.Transcript
	stats      *model.StatsTracker
	chatModel  string

	// Streaming
	runner        *StreamRunner
	gate          *RedrawGate
	activeID      string
	streamStarted time.Time

	// Input
	input      textarea.Model
	lastSubmit time.Time
	debounce   time.Duration

	// Rendering
	header    *components.Header
	statsBar  *components.StatsBar
	mdRender  *glamour.TermRenderer
	mdCache   map[string]string
	convCache string
	convDirty bool
	showHelp  bool

	width  int
	height int
}

// New creates a chat model. The stream runner must be attached with
// SetProgram once the Bubble Tea program exists.
func New(cfg *config.Config, client *vllm.Client, store *storage.ConversationStore, histLog *history.Log) *Model {
	if cfg == nil {
		cfg = config.Default()
	}

	theme := styles.NewTheme(cfg.UI.Theme)

	ta := textarea.New()
	ta.Placeholder = "Type a message (Ctrl+J to send)"
	ta.Prompt = "> "
	ta.ShowLineNumbers = false
	ta.SetHeight(inputRows)
	ta.CharLimit = 0
	ta.Focus()

	chatModel := cfg.DefaultModel
	if client != nil && chatModel == "" {
		chatModel = client.GetDefaultModel()
	}

	header := components.NewHeader(theme)
	header.SetModel(chatModel)

	m := &Model{
		cfg:        cfg,
		client:     client,
		store:      store,
		histLog:    histLog,
		theme:      theme,
		keys:       DefaultKeyMap(),
		transcript: model.NewTranscript(cfg.Chat.SystemPrompt),
		stats:      model.NewStatsTracker(),
		chatModel:  chatModel,
		gate: NewRedrawGate(
			ParseRedrawPolicy(cfg.UI.RedrawPolicy),
			cfg.UI.RedrawBatchSize,
			cfg.UI.RedrawMaxFPS,
		),
		input:     ta,
		debounce:  time.Duration(cfg.UI.SubmitDebounceMs) * time.Millisecond,
		header:    header,
		statsBar:  components.NewStatsBar(theme),
		mdCache:   make(map[string]string),
		convDirty: true,
		width:     80,
		height:    24,
	}

	m.statsBar.SetModel(chatModel)
	return m
}

// SetProgram attaches the running Bubble Tea program so stream output can
// be delivered from the network goroutine.
func (m *Model) SetProgram(p *tea.Program) {
	m.runner = NewStreamRunner(p, m.client)
}

// Transcript exposes the conversation for persistence on shutdown.
func (m *Model) Transcript() *model.Transcript {
	return m.transcript
}

// ChatModel returns the model identifier used for generation requests.
func (m *Model) ChatModel() string {
	return m.chatModel
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		checkServerCmd(m.client),
		listModelsCmd(m.client),
	)
}

// conversationSize returns the pane dimensions for the current terminal.
func (m *Model) conversationSize() (height, width int) {
	height = m.height - chromeRows
	if height < minConversationHeight {
		height = minConversationHeight
	}
	width = m.width - 4
	if width < minContentWidth {
		width = minContentWidth
	}
	return height, width
}

// invalidate marks the conversation pane for re-rendering.
func (m *Model) invalidate() {
	m.convDirty = true
}

// markdownRenderer lazily builds the glamour renderer at the current width.
func (m *Model) markdownRenderer(width int) *glamour.TermRenderer {
	if m.mdRender != nil {
		return m.mdRender
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	m.mdRender = r
	return r
}
